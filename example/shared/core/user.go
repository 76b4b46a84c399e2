package core

import (
	"errors"

	jsoniter "github.com/json-iterator/go"

	"github.com/eventfold/aggregates-go/aggregates"
)

var ErrPriorStateMissing = errors.New("prior user state missing for non-creation event")

// UserAlias is the repository alias for the User aggregate; it namespaces
// the storage keys and yields the UserCreatedEvent / UserDeletedEvent
// event names.
const UserAlias = "User"

const UserCreatedEventName = aggregates.EventName(UserAlias + "CreatedEvent")
const UserDeletedEventName = aggregates.EventName(UserAlias + "DeletedEvent")

// UserAttributes is the initial attribute set carried by a creation event.
type UserAttributes struct {
	Email string `json:"email"`
}

// User is an example aggregate. It is an immutable value: events produce
// new User instances, existing ones are never mutated.
type User struct {
	Meta  aggregates.Meta `json:"meta"`
	Email string          `json:"email"`
}

func (u User) AggregateMeta() aggregates.Meta {
	return u.Meta
}

// UserRoot is the replay contract of the User aggregate: a pure fold with
// one case per recognized event name.
type UserRoot struct{}

// ApplyEvent folds one event onto a possibly-absent prior state.
func (UserRoot) ApplyEvent(event aggregates.ModelEvent, prior *User) (User, error) {
	switch event.Name {
	case UserCreatedEventName:
		attributes := new(UserAttributes)
		if err := jsoniter.ConfigFastest.Unmarshal(event.DataJSON, attributes); err != nil {
			return User{}, err
		}

		return User{
			Meta:  aggregates.BuildMeta(event.AggregateID, event.CreatedAt),
			Email: attributes.Email,
		}, nil

	case UserDeletedEventName:
		if prior == nil {
			return User{}, ErrPriorStateMissing
		}

		return User{
			Meta:  prior.Meta.Deleted(event.CreatedAt),
			Email: prior.Email,
		}, nil

	default:
		return User{}, &aggregates.UnhandledDomainEventError{EventName: event.Name}
	}
}

// Ensure UserRoot implements the replay contract for User.
var _ aggregates.Root[User] = UserRoot{}
