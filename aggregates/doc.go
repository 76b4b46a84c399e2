// Package aggregates provides an event-sourced aggregate store: domain
// objects are never mutated in place, state changes are recorded as
// immutable ModelEvents, and the current state of an aggregate is derived
// by folding events onto a prior state.
//
// The store keeps exactly one current-state projection per aggregate id,
// so reads are O(1) lookups instead of full log replays. Deletion is a
// soft marker: a removed aggregate stays inspectable for error reporting
// but is invisible to normal queries.
//
// Key types:
//   - Meta: identity, version and soft-delete metadata of an aggregate
//   - ModelEvent: the immutable envelope recording "a thing happened"
//   - Root: the pure fold contract a concrete aggregate type implements
//   - Repository: identity assignment, atomic persistence and all reads
//   - Backend: the key-value persistence contract engines implement
//
// Common usage pattern:
//
//	repo, err := aggregates.NewRepository[core.User](core.UserRoot{}, "User", backend)
//	if err != nil {
//		// handle error
//	}
//
//	event, err := repo.AddWithAuthor(ctx, core.UserAttributes{Email: "john@x"}, "someAuthor")
//	user, err := repo.GetByID(ctx, event.AggregateID)
//
// Backends live in the engine subpackages: redisengine (Redis),
// postgresengine (PostgreSQL), memoryengine (in-process, for tests).
package aggregates
