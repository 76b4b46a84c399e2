package aggregates

import (
	"errors"
	"fmt"
)

var (
	// ErrEntryNotFound matches every *EntryNotFoundError via errors.Is.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrEntryDeleted matches every *EntryDeletedError via errors.Is.
	ErrEntryDeleted = errors.New("entry is deleted")

	// ErrUnhandledDomainEvent matches every *UnhandledDomainEventError via errors.Is.
	ErrUnhandledDomainEvent = errors.New("unhandled domain event")
)

// EntryNotFoundError is returned by GetByID when the given id was never
// issued by the repository.
type EntryNotFoundError struct {
	Alias string
	ID    ID
}

func (e *EntryNotFoundError) Error() string {
	return fmt.Sprintf("%s with id %q not found.", e.Alias, e.ID)
}

func (e *EntryNotFoundError) Is(target error) bool {
	return target == ErrEntryNotFound
}

// EntryDeletedError is returned by GetByID when the aggregate exists but
// has been soft-deleted. Entry holds the full last-known aggregate
// instance, so callers can still inspect the pre-deletion attributes.
type EntryDeletedError struct {
	Alias string
	ID    ID
	Entry Aggregate
}

func (e *EntryDeletedError) Error() string {
	return fmt.Sprintf("%s with id %q is deleted.", e.Alias, e.ID)
}

func (e *EntryDeletedError) Is(target error) bool {
	return target == ErrEntryDeleted
}

// UnhandledDomainEventError is raised by an aggregate type's fold when it
// receives an event name it does not recognize. It signals that the replay
// logic is out of sync with the event log, a programming or versioning
// defect rather than a data problem, and is fatal to the operation in
// progress.
type UnhandledDomainEventError struct {
	EventName EventName
}

func (e *UnhandledDomainEventError) Error() string {
	return fmt.Sprintf("unhandled domain event %q", e.EventName)
}

func (e *UnhandledDomainEventError) Is(target error) bool {
	return target == ErrUnhandledDomainEvent
}
