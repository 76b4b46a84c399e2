package aggregates

import (
	"errors"
)

// ID is an alias type for the opaque identity of an aggregate, unique
// within one repository's alias namespace.
type ID = string

// EventName is an alias type for the event-type tag of a ModelEvent.
type EventName = string

var ErrNilBackend = errors.New("nil backend supplied")
var ErrNilRoot = errors.New("nil aggregate root supplied")
var ErrEmptyAlias = errors.New("empty alias supplied")

var ErrNextIDFailed = errors.New("obtaining next aggregate id failed")
var ErrEncodingAttributesFailed = errors.New("encoding attributes to json failed")
var ErrEncodingEventFailed = errors.New("encoding model event to json failed")
var ErrEncodingStateFailed = errors.New("encoding aggregate state to json failed")
var ErrDecodingStateFailed = errors.New("decoding aggregate state from json failed")
var ErrPersistingEventFailed = errors.New("persisting event and state failed")
var ErrLoadingStateFailed = errors.New("loading aggregate state failed")
var ErrListingIDsFailed = errors.New("listing known aggregate ids failed")
