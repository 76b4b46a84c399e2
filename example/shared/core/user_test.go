package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventfold/aggregates-go/aggregates"
)

func Test_UserRoot_ApplyEvent_Created(t *testing.T) {
	createdAt := time.Now()
	event, err := aggregates.BuildModelEventUnattributed(UserCreatedEventName, "1", []byte(`{"email":"john@x"}`), createdAt)
	require.NoError(t, err)

	user, err := UserRoot{}.ApplyEvent(event, nil)
	require.NoError(t, err)

	assert.Equal(t, "1", user.Meta.ID)
	assert.Equal(t, uint(1), user.Meta.Version)
	assert.Equal(t, createdAt, user.Meta.CreatedAt)
	assert.False(t, user.Meta.IsDeleted())
	assert.Equal(t, "john@x", user.Email)
}

func Test_UserRoot_ApplyEvent_Deleted(t *testing.T) {
	createdAt := time.Now()
	deletedAt := createdAt.Add(time.Minute)
	prior := User{
		Meta:  aggregates.BuildMeta("1", createdAt),
		Email: "john@x",
	}

	event, err := aggregates.BuildModelEventUnattributed(UserDeletedEventName, "1", []byte(`{}`), deletedAt)
	require.NoError(t, err)

	user, err := UserRoot{}.ApplyEvent(event, &prior)
	require.NoError(t, err)

	assert.True(t, user.Meta.IsDeleted())
	assert.Equal(t, uint(2), user.Meta.Version)
	assert.Equal(t, deletedAt, *user.Meta.DeletedAt)
	assert.Equal(t, "john@x", user.Email)

	// The prior value stays untouched.
	assert.False(t, prior.Meta.IsDeleted())
}

func Test_UserRoot_ApplyEvent_Deleted_WithoutPrior(t *testing.T) {
	event, err := aggregates.BuildModelEventUnattributed(UserDeletedEventName, "1", []byte(`{}`), time.Now())
	require.NoError(t, err)

	_, err = UserRoot{}.ApplyEvent(event, nil)
	assert.ErrorIs(t, err, ErrPriorStateMissing)
}

func Test_UserRoot_ApplyEvent_UnhandledEventName(t *testing.T) {
	event, err := aggregates.BuildModelEventUnattributed("UserRenamedEvent", "1", []byte(`{}`), time.Now())
	require.NoError(t, err)

	_, err = UserRoot{}.ApplyEvent(event, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, aggregates.ErrUnhandledDomainEvent)
	assert.Equal(t, `unhandled domain event "UserRenamedEvent"`, err.Error())
}

func Test_UserRoot_ApplyEvent_InvalidAttributes(t *testing.T) {
	event, err := aggregates.BuildModelEventUnattributed(UserCreatedEventName, "1", []byte(`{"email":7}`), time.Now())
	require.NoError(t, err)

	_, err = UserRoot{}.ApplyEvent(event, nil)
	assert.Error(t, err)
}

// Replaying the same events yields the same state, no matter how often.
func Test_UserRoot_ApplyEvent_IsDeterministic(t *testing.T) {
	createdAt := time.Now()
	created, err := aggregates.BuildModelEventUnattributed(UserCreatedEventName, "1", []byte(`{"email":"john@x"}`), createdAt)
	require.NoError(t, err)

	deleted, err := aggregates.BuildModelEventUnattributed(UserDeletedEventName, "1", []byte(`{}`), createdAt.Add(time.Minute))
	require.NoError(t, err)

	replay := func() User {
		state, applyErr := UserRoot{}.ApplyEvent(created, nil)
		require.NoError(t, applyErr)

		state, applyErr = UserRoot{}.ApplyEvent(deleted, &state)
		require.NoError(t, applyErr)

		return state
	}

	first := replay()
	second := replay()

	assert.Equal(t, first, second)
}
