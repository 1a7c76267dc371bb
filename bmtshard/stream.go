package bmtshard

// ShardStream is a linked list of accepted shard indices,
// written by the [Receiver] and readable by any number of goroutines.
// Each reader follows Next at its own pace.
//
// Idx and Next may only be read after Ready is closed.
// A reader that stops following the stream
// keeps every later node reachable until the Receiver is discarded.
type ShardStream struct {
	Ready chan struct{}
	Next  *ShardStream
	Idx   int
}

func newShardStream() *ShardStream {
	return &ShardStream{Ready: make(chan struct{})}
}

// publish sets s's index and closes s.Ready.
// It must be called exactly once per node.
func (s *ShardStream) publish(idx int) *ShardStream {
	s.Idx = idx
	s.Next = newShardStream()
	close(s.Ready)
	return s.Next
}
