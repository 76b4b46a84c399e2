package aggregates

// Aggregate is implemented by every concrete aggregate type stored in a
// Repository. A concrete type embeds exactly one Meta and any number of
// domain-specific fields, all of which must round-trip through JSON.
type Aggregate interface {
	AggregateMeta() Meta
}

// Root is the polymorphic replay contract of one aggregate type: a pure
// function folding one event onto a possibly-absent prior state to produce
// a new state.
//
// ApplyEvent obligations:
//   - creation event, prior == nil: construct a brand-new aggregate with
//     Meta{ID: event.AggregateID, Version: 1, CreatedAt: event.CreatedAt}
//     and domain fields taken from event.DataJSON
//   - any other recognized event, prior != nil: construct a new aggregate
//     reusing unaffected fields from the prior state and applying the
//     transition's effect (a deletion event calls prior Meta.Deleted)
//   - unrecognized event name: fail with *UnhandledDomainEventError
//     carrying the offending name, never a silent no-op
//
// The fold must be deterministic and side-effect-free: identical
// (event, prior) pairs always yield identical new states. It has no access
// to the persistence backend, which keeps it unit-testable in isolation.
type Root[T Aggregate] interface {
	ApplyEvent(event ModelEvent, prior *T) (T, error)
}
