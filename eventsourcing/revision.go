package eventsourcing

// StreamState expresses the precondition a writer places on a stream when
// appending events. The store rejects the append when the precondition does
// not hold.
type StreamState interface {
	toRawInt64() int64
}

// Any means append without checking the current revision.
type Any struct{}

func (Any) toRawInt64() int64 { return -1 } // special marker

// NoStream means the stream should not exist yet.
type NoStream struct{}

func (NoStream) toRawInt64() int64 { return 0 }

// StreamExists means the stream must exist.
type StreamExists struct{}

func (StreamExists) toRawInt64() int64 { return -2 } // special marker

// Revision matches exactly a numeric revision.
type Revision uint64

func (r Revision) toRawInt64() int64 { return int64(r) }
