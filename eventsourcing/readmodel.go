package eventsourcing

// ReadModel is a query-side record projected from an event stream. The
// applied version is the stream position of the last event folded into the
// record; projectors compare it against an incoming envelope's version to
// drop redeliveries.
type ReadModel interface {
	AppliedVersion() uint64
}
