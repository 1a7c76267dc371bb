// Package bmtshard commits to a payload by erasure coding it
// and building a [bmt.Tree] over the resulting shards.
//
// The originating side calls [Commit], which splits the payload into
// data shards, adds Reed-Solomon parity shards so that there is one shard
// per leaf of the tree, and returns the root along with an inclusion proof
// for every shard.
//
// The receiving side creates a [Receiver] with the committed root
// and feeds it shards in any order.
// Every shard is checked against the root before it is accepted,
// so once enough shards are held the payload can be rebuilt
// without trusting whoever delivered them.
//
// [bmt.Tree]: https://pkg.go.dev/github.com/gordian-engine/bmt/bmt#Tree
package bmtshard
