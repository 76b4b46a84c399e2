package aggregates

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidDataJSON = errors.New("event data json is not valid")
var ErrEmptyEventName = errors.New("empty event name supplied")
var ErrEmptyAggregateID = errors.New("empty aggregate id supplied")

// ModelEvents is an alias type for a slice of ModelEvent.
type ModelEvents = []ModelEvent

// ModelEvent is the immutable envelope for a domain event: what happened,
// to whom, by whom, and when. It carries everything needed both to persist
// durably and to feed the replay fold, and is never updated after
// construction.
//
// CreatedBy is nil for unattributed events; it is never an empty string,
// so an absent author cannot collide with a real value.
//
// While its properties are exported, it should only be constructed with
// the supplied factory methods:
//   - BuildModelEvent
//   - BuildModelEventUnattributed
type ModelEvent struct {
	EventID     string          `json:"eventId"`
	Name        EventName       `json:"name"`
	AggregateID ID              `json:"aggregateId"`
	DataJSON    json.RawMessage `json:"data"`
	CreatedAt   time.Time       `json:"createdAt"`
	CreatedBy   *string         `json:"createdBy,omitempty"`
}

// BuildModelEvent is a factory method for an attributed ModelEvent.
//
// It assigns a fresh EventID and populates the event with the given scalar
// input. Returns an error if dataJSON is not valid JSON or name/aggregateID
// are empty.
func BuildModelEvent(name EventName, aggregateID ID, dataJSON []byte, createdAt time.Time, author string) (ModelEvent, error) {
	event, err := BuildModelEventUnattributed(name, aggregateID, dataJSON, createdAt)
	if err != nil {
		return ModelEvent{}, err
	}

	event.CreatedBy = &author

	return event, nil
}

// BuildModelEventUnattributed is a factory method for a ModelEvent without
// an author (CreatedBy stays absent).
func BuildModelEventUnattributed(name EventName, aggregateID ID, dataJSON []byte, createdAt time.Time) (ModelEvent, error) {
	if name == "" {
		return ModelEvent{}, ErrEmptyEventName
	}

	if aggregateID == "" {
		return ModelEvent{}, ErrEmptyAggregateID
	}

	if !json.Valid(dataJSON) {
		return ModelEvent{}, ErrInvalidDataJSON
	}

	return ModelEvent{
		EventID:     uuid.NewString(),
		Name:        name,
		AggregateID: aggregateID,
		DataJSON:    dataJSON,
		CreatedAt:   createdAt,
	}, nil
}

// Author returns the author identifier and whether the event is attributed.
func (e ModelEvent) Author() (string, bool) {
	if e.CreatedBy == nil {
		return "", false
	}

	return *e.CreatedBy, true
}
