package bmtshard

import "errors"

var (
	// ErrEmptyData is returned from [Commit] when there is no payload to commit to.
	ErrEmptyData = errors.New("cannot commit to empty data")

	// ErrShardRejected is returned from [*Receiver.AddShard]
	// when the shard does not prove against the committed root.
	ErrShardRejected = errors.New("shard rejected")

	// ErrAlreadyHaveShard is returned from [*Receiver.AddShard]
	// when the shard at that index was already accepted.
	ErrAlreadyHaveShard = errors.New("already have shard")

	// ErrNotEnoughShards is returned from [*Receiver.Reconstruct]
	// before the receiver holds as many shards as there are data shards.
	ErrNotEnoughShards = errors.New("not enough shards to reconstruct")

	// ErrInconsistentEncoding is returned from [*Receiver.Reconstruct]
	// when every accepted shard matched the root,
	// but the shards rebuilt from them do not.
	// That can only happen if the committer built the tree
	// over shards that are not a valid erasure coding.
	ErrInconsistentEncoding = errors.New("committed shards are not a consistent erasure coding")

	// ErrUnsupportedShape is returned from [Commit] and [NewReceiver]
	// when the depth and data shard count cannot be erasure coded.
	ErrUnsupportedShape = errors.New("unsupported shard shape")
)
