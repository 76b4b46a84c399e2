package redisengine_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventfold/aggregates-go/aggregates"
	"github.com/eventfold/aggregates-go/aggregates/redisengine"
	"github.com/eventfold/aggregates-go/example/shared/core"
)

func newTestBackend(t *testing.T, options ...redisengine.Option) *redisengine.Backend {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	backend, err := redisengine.New(client, options...)
	require.NoError(t, err)

	return backend
}

func Test_New_NilClient(t *testing.T) {
	_, err := redisengine.New(nil)
	assert.ErrorIs(t, err, redisengine.ErrNilClient)
}

func Test_Backend_Incr(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)

	first, err := backend.Incr(ctx, "User:id-seq")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)

	second, err := backend.Incr(ctx, "User:id-seq")
	require.NoError(t, err)
	assert.Equal(t, int64(2), second)
}

func Test_Backend_Get_Absent(t *testing.T) {
	backend := newTestBackend(t)

	value, found, err := backend.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, value)
}

func Test_Backend_Commit_And_ReadBack(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)

	err := backend.Commit(ctx, aggregates.WriteBatch{
		EventsKey: "User:events",
		Event:     []byte(`{"name":"UserCreatedEvent"}`),
		StateKey:  "User:state:1",
		State:     []byte(`{"email":"john@x"}`),
		IDsKey:    "User:ids",
		NewID:     "1",
	})
	require.NoError(t, err)

	state, found, err := backend.Get(ctx, "User:state:1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte(`{"email":"john@x"}`), state)

	events, err := backend.List(ctx, "User:events")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, []byte(`{"name":"UserCreatedEvent"}`), events[0])

	ids, err := backend.List(ctx, "User:ids")
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, []byte("1"), ids[0])
}

func Test_Backend_GetMulti(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)

	require.NoError(t, backend.Commit(ctx, aggregates.WriteBatch{
		EventsKey: "k:events", Event: []byte(`{}`),
		StateKey: "a", State: []byte("va"),
	}))
	require.NoError(t, backend.Commit(ctx, aggregates.WriteBatch{
		EventsKey: "k:events", Event: []byte(`{}`),
		StateKey: "c", State: []byte("vc"),
	}))

	values, err := backend.GetMulti(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.Equal(t, []byte("va"), values[0])
	assert.Nil(t, values[1])
	assert.Equal(t, []byte("vc"), values[2])

	empty, err := backend.GetMulti(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func Test_Backend_KeyPrefix(t *testing.T) {
	ctx := context.Background()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	backend, err := redisengine.New(client, redisengine.WithKeyPrefix("app1:"))
	require.NoError(t, err)

	_, err = backend.Incr(ctx, "User:id-seq")
	require.NoError(t, err)

	raw, getErr := server.Get("app1:User:id-seq")
	require.NoError(t, getErr)
	assert.Equal(t, "1", raw)
}

// Test_Repository_WithRedisBackend runs the full aggregate lifecycle
// against the Redis backend.
func Test_Repository_WithRedisBackend(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)

	repository, err := aggregates.NewRepository[core.User](core.UserRoot{}, core.UserAlias, backend)
	require.NoError(t, err)

	johnEvent, err := repository.Add(ctx, core.UserAttributes{Email: "john@x"})
	require.NoError(t, err)

	_, err = repository.Add(ctx, core.UserAttributes{Email: "jane@x"})
	require.NoError(t, err)

	all, err := repository.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "john@x", all[0].Email)
	assert.Equal(t, "jane@x", all[1].Email)

	john, err := repository.GetByID(ctx, johnEvent.AggregateID)
	require.NoError(t, err)

	_, err = repository.Remove(ctx, john)
	require.NoError(t, err)

	all, err = repository.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "jane@x", all[0].Email)

	_, err = repository.GetByID(ctx, johnEvent.AggregateID)
	assert.ErrorIs(t, err, aggregates.ErrEntryDeleted)
}
