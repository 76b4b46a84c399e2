package aggregates_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventfold/aggregates-go/aggregates"
	"github.com/eventfold/aggregates-go/aggregates/memoryengine"
	"github.com/eventfold/aggregates-go/example/shared/core"
	"github.com/eventfold/aggregates-go/testutil/helper"
)

func newUserRepository(t *testing.T, backend aggregates.Backend, options ...aggregates.Option) *aggregates.Repository[core.User] {
	t.Helper()

	repository, err := aggregates.NewRepository[core.User](core.UserRoot{}, core.UserAlias, backend, options...)
	require.NoError(t, err)

	return repository
}

func Test_NewRepository_Validation(t *testing.T) {
	backend := memoryengine.New()

	_, err := aggregates.NewRepository[core.User](nil, core.UserAlias, backend)
	assert.ErrorIs(t, err, aggregates.ErrNilRoot)

	_, err = aggregates.NewRepository[core.User](core.UserRoot{}, "", backend)
	assert.ErrorIs(t, err, aggregates.ErrEmptyAlias)

	_, err = aggregates.NewRepository[core.User](core.UserRoot{}, core.UserAlias, nil)
	assert.ErrorIs(t, err, aggregates.ErrNilBackend)
}

func Test_Repository_Add_AssignsFreshIDs(t *testing.T) {
	ctx := context.Background()
	repository := newUserRepository(t, memoryengine.New())

	first, err := repository.Add(ctx, core.UserAttributes{Email: "john@x"})
	require.NoError(t, err)

	second, err := repository.Add(ctx, core.UserAttributes{Email: "jane@x"})
	require.NoError(t, err)

	assert.Equal(t, "1", first.AggregateID)
	assert.Equal(t, "2", second.AggregateID)
	assert.Equal(t, core.UserCreatedEventName, first.Name)
	assert.Nil(t, first.CreatedBy)

	user, err := repository.GetByID(ctx, first.AggregateID)
	require.NoError(t, err)
	assert.Equal(t, "john@x", user.Email)
	assert.Equal(t, uint(1), user.Meta.Version)
	// time.Equal, not reflect equality: the projection round-trips through
	// JSON, which drops the monotonic reading and normalizes the location.
	assert.True(t, first.CreatedAt.Equal(user.Meta.CreatedAt))
	assert.False(t, user.Meta.IsDeleted())
}

func Test_Repository_AddWithAuthor(t *testing.T) {
	ctx := context.Background()
	repository := newUserRepository(t, memoryengine.New())

	event, err := repository.AddWithAuthor(ctx, core.UserAttributes{Email: "john@x"}, "admin@x")
	require.NoError(t, err)

	author, attributed := event.Author()
	assert.True(t, attributed)
	assert.Equal(t, "admin@x", author)
}

func Test_Repository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repository := newUserRepository(t, memoryengine.New())

	johnEvent, err := repository.Add(ctx, core.UserAttributes{Email: "john@x"})
	require.NoError(t, err)

	janeEvent, err := repository.Add(ctx, core.UserAttributes{Email: "jane@x"})
	require.NoError(t, err)

	all, err := repository.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "john@x", all[0].Email)
	assert.Equal(t, "jane@x", all[1].Email)

	john, err := repository.GetByID(ctx, johnEvent.AggregateID)
	require.NoError(t, err)

	deleteEvent, err := repository.Remove(ctx, john)
	require.NoError(t, err)
	assert.Equal(t, core.UserDeletedEventName, deleteEvent.Name)
	assert.Equal(t, johnEvent.AggregateID, deleteEvent.AggregateID)

	all, err = repository.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "jane@x", all[0].Email)

	_, found, err := repository.FindByID(ctx, johnEvent.AggregateID)
	require.NoError(t, err)
	assert.False(t, found)

	jane, found, err := repository.FindByID(ctx, janeEvent.AggregateID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "jane@x", jane.Email)
}

func Test_Repository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	repository := newUserRepository(t, memoryengine.New())

	_, err := repository.GetByID(ctx, "999")
	require.Error(t, err)
	assert.ErrorIs(t, err, aggregates.ErrEntryNotFound)
	assert.Equal(t, `User with id "999" not found.`, err.Error())
}

func Test_Repository_GetByID_Deleted(t *testing.T) {
	ctx := context.Background()
	repository := newUserRepository(t, memoryengine.New())

	created, err := repository.Add(ctx, core.UserAttributes{Email: "john@x"})
	require.NoError(t, err)

	john, err := repository.GetByID(ctx, created.AggregateID)
	require.NoError(t, err)

	_, err = repository.Remove(ctx, john)
	require.NoError(t, err)

	_, err = repository.GetByID(ctx, created.AggregateID)
	require.Error(t, err)
	assert.ErrorIs(t, err, aggregates.ErrEntryDeleted)
	assert.Equal(t, fmt.Sprintf("User with id %q is deleted.", created.AggregateID), err.Error())

	var deletedErr *aggregates.EntryDeletedError
	require.ErrorAs(t, err, &deletedErr)
	assert.True(t, deletedErr.Entry.AggregateMeta().IsDeleted())
	assert.Equal(t, uint(2), deletedErr.Entry.AggregateMeta().Version)

	entry, ok := deletedErr.Entry.(core.User)
	require.True(t, ok)
	assert.Equal(t, "john@x", entry.Email)
}

func Test_Repository_RemoveWithAuthor(t *testing.T) {
	ctx := context.Background()
	repository := newUserRepository(t, memoryengine.New())

	created, err := repository.Add(ctx, core.UserAttributes{Email: "john@x"})
	require.NoError(t, err)

	john, err := repository.GetByID(ctx, created.AggregateID)
	require.NoError(t, err)

	event, err := repository.RemoveWithAuthor(ctx, john, "admin@x")
	require.NoError(t, err)

	author, attributed := event.Author()
	assert.True(t, attributed)
	assert.Equal(t, "admin@x", author)
}

func Test_Repository_FindAll_Empty(t *testing.T) {
	repository := newUserRepository(t, memoryengine.New())

	all, err := repository.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

// admin is a second aggregate type for namespacing tests; it shares the
// backend with User repositories but owns the "Admin" alias.
type admin struct {
	Meta  aggregates.Meta `json:"meta"`
	Email string          `json:"email"`
}

func (a admin) AggregateMeta() aggregates.Meta {
	return a.Meta
}

type adminRoot struct{}

func (adminRoot) ApplyEvent(event aggregates.ModelEvent, prior *admin) (admin, error) {
	switch event.Name {
	case "AdminCreatedEvent":
		attributes := new(core.UserAttributes)
		if err := jsoniter.ConfigFastest.Unmarshal(event.DataJSON, attributes); err != nil {
			return admin{}, err
		}

		return admin{
			Meta:  aggregates.BuildMeta(event.AggregateID, event.CreatedAt),
			Email: attributes.Email,
		}, nil

	case "AdminDeletedEvent":
		if prior == nil {
			return admin{}, core.ErrPriorStateMissing
		}

		return admin{
			Meta:  prior.Meta.Deleted(event.CreatedAt),
			Email: prior.Email,
		}, nil

	default:
		return admin{}, &aggregates.UnhandledDomainEventError{EventName: event.Name}
	}
}

func Test_Repository_AliasNamespacing(t *testing.T) {
	ctx := context.Background()
	backend := memoryengine.New()
	users := newUserRepository(t, backend)

	admins, err := aggregates.NewRepository[admin](adminRoot{}, "Admin", backend)
	require.NoError(t, err)

	userEvent, err := users.Add(ctx, core.UserAttributes{Email: "john@x"})
	require.NoError(t, err)

	adminEvent, err := admins.Add(ctx, core.UserAttributes{Email: "root@x"})
	require.NoError(t, err)

	// Each alias owns its own id sequence and id log.
	assert.Equal(t, "1", userEvent.AggregateID)
	assert.Equal(t, "1", adminEvent.AggregateID)
	assert.Equal(t, aggregates.EventName("AdminCreatedEvent"), adminEvent.Name)

	allUsers, err := users.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, allUsers, 1)
	assert.Equal(t, "john@x", allUsers[0].Email)

	allAdmins, err := admins.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, allAdmins, 1)
	assert.Equal(t, "root@x", allAdmins[0].Email)
}

func Test_IsRepository(t *testing.T) {
	repository := newUserRepository(t, memoryengine.New())

	assert.True(t, aggregates.IsRepository(repository))
	assert.True(t, repository.Is(repository))
	assert.False(t, aggregates.IsRepository(memoryengine.New()))
	assert.False(t, aggregates.IsRepository(nil))
	assert.False(t, aggregates.IsRepository("User"))
}

func Test_Repository_FindAll_SkipsMissingProjection(t *testing.T) {
	ctx := context.Background()
	backend := memoryengine.New()
	logSpy := helper.NewLogHandlerSpy(false)
	repository := newUserRepository(t, backend, aggregates.WithLogger(slog.New(logSpy)))

	_, err := repository.Add(ctx, core.UserAttributes{Email: "john@x"})
	require.NoError(t, err)

	// Register an id whose projection is absent, the shape a store is left
	// in by an interrupted non-atomic write.
	commitErr := backend.Commit(ctx, aggregates.WriteBatch{
		EventsKey: "User:events",
		Event:     []byte(`{}`),
		StateKey:  "orphan",
		State:     []byte(`{}`),
		IDsKey:    "User:ids",
		NewID:     "99",
	})
	require.NoError(t, commitErr)

	all, err := repository.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "john@x", all[0].Email)

	assert.True(t, logSpy.HasLog(slog.LevelWarn, "known id has no stored projection, skipping"))
}

func Test_Repository_Observability(t *testing.T) {
	ctx := context.Background()
	logSpy := helper.NewLogHandlerSpy(false)
	metricsSpy := helper.NewMetricsCollectorSpy(true)
	tracingSpy := helper.NewTracingCollectorSpy(true)

	repository := newUserRepository(t, memoryengine.New(),
		aggregates.WithLogger(slog.New(logSpy)),
		aggregates.WithMetrics(metricsSpy),
		aggregates.WithTracing(tracingSpy),
	)

	_, err := repository.Add(ctx, core.UserAttributes{Email: "john@x"})
	require.NoError(t, err)

	assert.True(t, logSpy.HasLog(slog.LevelInfo, "aggregate added"))
	assert.True(t, metricsSpy.HasDurationRecord("aggregates_operation_duration_seconds", "operation", "add"))

	span := tracingSpy.FindSpan("aggregates.add")
	require.NotNil(t, span)
	assert.True(t, span.Finished)
	assert.Equal(t, "success", span.FinishStatus)
	assert.Equal(t, "User", span.StartAttrs["alias"])
}

func Test_Repository_Observability_ErrorPath(t *testing.T) {
	ctx := context.Background()
	metricsSpy := helper.NewMetricsCollectorSpy(true)
	tracingSpy := helper.NewTracingCollectorSpy(true)

	repository := newUserRepository(t, failingBackend{},
		aggregates.WithMetrics(metricsSpy),
		aggregates.WithTracing(tracingSpy),
	)

	_, err := repository.Add(ctx, core.UserAttributes{Email: "john@x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, aggregates.ErrNextIDFailed)

	assert.True(t, metricsSpy.HasCounterRecord("aggregates_operation_errors_total", "error_type", "next_id"))

	span := tracingSpy.FindSpan("aggregates.add")
	require.NotNil(t, span)
	assert.Equal(t, "error", span.FinishStatus)
	assert.Equal(t, "next_id", span.Span.Attributes["error_type"])
}

func Test_Repository_BackendFailuresAreWrapped(t *testing.T) {
	ctx := context.Background()
	repository := newUserRepository(t, failingBackend{})

	_, err := repository.Add(ctx, core.UserAttributes{Email: "john@x"})
	assert.ErrorIs(t, err, aggregates.ErrNextIDFailed)
	assert.ErrorIs(t, err, errBackendDown)

	_, _, err = repository.FindByID(ctx, "1")
	assert.ErrorIs(t, err, aggregates.ErrLoadingStateFailed)

	_, err = repository.GetByID(ctx, "1")
	assert.ErrorIs(t, err, aggregates.ErrLoadingStateFailed)

	_, err = repository.FindAll(ctx)
	assert.ErrorIs(t, err, aggregates.ErrListingIDsFailed)
}

var errBackendDown = errors.New("backend down")

// failingBackend fails every call, for exercising the error paths.
type failingBackend struct{}

func (failingBackend) Incr(_ context.Context, _ string) (int64, error) {
	return 0, errBackendDown
}

func (failingBackend) Get(_ context.Context, _ string) ([]byte, bool, error) {
	return nil, false, errBackendDown
}

func (failingBackend) GetMulti(_ context.Context, _ []string) ([][]byte, error) {
	return nil, errBackendDown
}

func (failingBackend) List(_ context.Context, _ string) ([][]byte, error) {
	return nil, errBackendDown
}

func (failingBackend) Commit(_ context.Context, _ aggregates.WriteBatch) error {
	return errBackendDown
}
