package aggregates

import (
	"context"
	"errors"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
)

const (
	keySeqSuffix    = ":id-seq"
	keyIDsSuffix    = ":ids"
	keyEventsSuffix = ":events"
	keyStateInfix   = ":state:"

	createdEventSuffix = "CreatedEvent"
	deletedEventSuffix = "DeletedEvent"

	logMsgNextIDFailed       = "obtaining next aggregate id failed"
	logMsgEncodingFailed     = "encoding for persistence failed"
	logMsgFoldFailed         = "applying event to aggregate state failed"
	logMsgCommitFailed       = "committing event and state to backend failed"
	logMsgLoadStateFailed    = "loading aggregate state failed"
	logMsgDecodeStateFailed  = "decoding aggregate state failed"
	logMsgListIDsFailed      = "listing known aggregate ids failed"
	logMsgMissingProjection  = "known id has no stored projection, skipping"
	logMsgEntryAdded         = "aggregate added"
	logMsgEntryRemoved       = "aggregate removed"
	logMsgOperation          = "repository operation: "
	logAttrError             = "error"
	logAttrAlias             = "alias"
	logAttrAggregateID       = "aggregate_id"
	logAttrEventName         = "event_name"
	logAttrVersion           = "version"
	logAttrEntryCount        = "entry_count"
	logAttrDurationMS        = "duration_ms"
	operationAdd             = "add"
	operationRemove          = "remove"
	operationFindByID        = "find_by_id"
	operationGetByID         = "get_by_id"
	operationFindAll         = "find_all"
	metricOperationDuration  = "aggregates_operation_duration_seconds"
	metricOperationErrors    = "aggregates_operation_errors_total"
	metricEntriesScanned     = "aggregates_entries_scanned"
	spanNamePrefix           = "aggregates."
	spanAttrOperation        = "operation"
	spanAttrAlias            = "alias"
	spanAttrAggregateID      = "aggregate_id"
	spanAttrErrorType        = "error_type"
	statusSuccess            = "success"
	statusError              = "error"
	errorTypeNextID          = "next_id"
	errorTypeEncoding        = "encoding"
	errorTypeFold            = "fold"
	errorTypeCommit          = "commit"
	errorTypeLoad            = "load"
	errorTypeDecode          = "decode"
	errorTypeNotFound        = "not_found"
	errorTypeDeleted         = "deleted"
)

// jsonAPI is the codec used for every value persisted through a Backend.
var jsonAPI = jsoniter.ConfigFastest

// Marker is implemented by every Repository regardless of its aggregate
// type. It replaces the structural field-sniffing capability check of
// duck-typed ports: IsRepository answers "is this object usable as an
// aggregate repository" with an explicit type assertion instead of
// name/field coincidence.
type Marker interface {
	Alias() string
	isAggregateRepository()
}

// IsRepository reports whether candidate is an aggregate repository of any
// aggregate type.
func IsRepository(candidate any) bool {
	_, ok := candidate.(Marker)
	return ok
}

// Repository orchestrates identity assignment, atomic persistence of
// (event, new-state) pairs and all read paths for one aggregate type.
//
// Each instance owns a private namespace within the shared backend, keyed
// by its alias; repositories with different aliases never read or write
// each other's keys.
//
// Per aggregate id, versions strictly increase by one per applied event,
// but concurrent writers against the same id are not serialized: two
// concurrent Remove calls can both fold the same prior projection, and the
// write landing last wins. Only identity assignment and the per-call
// event/state write pair are atomic.
type Repository[T Aggregate] struct {
	root             Root[T]
	alias            string
	backend          Backend
	logger           Logger
	contextualLogger ContextualLogger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector
}

// NewRepository creates a Repository for one aggregate type with optional
// configuration.
//
// The alias is the human-readable type alias used for storage key
// namespacing, event naming and error messages (e.g. "User" yields
// "UserCreatedEvent" / "UserDeletedEvent" and keys like "User:state:1").
func NewRepository[T Aggregate](root Root[T], alias string, backend Backend, options ...Option) (*Repository[T], error) {
	if root == nil {
		return nil, ErrNilRoot
	}

	if alias == "" {
		return nil, ErrEmptyAlias
	}

	if backend == nil {
		return nil, ErrNilBackend
	}

	cfg := repositoryConfig{}
	for _, option := range options {
		if err := option(&cfg); err != nil {
			return nil, err
		}
	}

	return &Repository[T]{
		root:             root,
		alias:            alias,
		backend:          backend,
		logger:           cfg.logger,
		contextualLogger: cfg.contextualLogger,
		metricsCollector: cfg.metricsCollector,
		tracingCollector: cfg.tracingCollector,
	}, nil
}

// Alias returns the repository's human-readable type alias.
func (r *Repository[T]) Alias() string {
	return r.alias
}

// Is reports whether candidate is an aggregate repository (of any
// aggregate type). See IsRepository.
func (r *Repository[T]) Is(candidate any) bool {
	return IsRepository(candidate)
}

func (r *Repository[T]) isAggregateRepository() {}

// CreatedEventName returns the event-type tag recorded by Add.
func (r *Repository[T]) CreatedEventName() EventName {
	return r.alias + createdEventSuffix
}

// DeletedEventName returns the event-type tag recorded by Remove.
func (r *Repository[T]) DeletedEventName() EventName {
	return r.alias + deletedEventSuffix
}

// Add creates a new aggregate from the given attributes and returns the
// unattributed creation event. A fresh, never-before-used id is assigned
// atomically; the event, the projected state and the id registration are
// committed together.
func (r *Repository[T]) Add(ctx context.Context, attributes any) (ModelEvent, error) {
	return r.add(ctx, attributes, nil)
}

// AddWithAuthor is Add with the creation event attributed to author.
func (r *Repository[T]) AddWithAuthor(ctx context.Context, attributes any, author string) (ModelEvent, error) {
	return r.add(ctx, attributes, &author)
}

func (r *Repository[T]) add(ctx context.Context, attributes any, author *string) (ModelEvent, error) {
	start := time.Now()
	ctx, span := r.startSpan(ctx, operationAdd, nil)

	sequence, incrErr := r.backend.Incr(ctx, r.alias+keySeqSuffix)
	if incrErr != nil {
		joined := errors.Join(ErrNextIDFailed, incrErr)
		r.observeError(ctx, span, operationAdd, errorTypeNextID, logMsgNextIDFailed, joined, start)

		return ModelEvent{}, joined
	}

	newID := strconv.FormatInt(sequence, 10)

	dataJSON, marshalErr := jsonAPI.Marshal(attributes)
	if marshalErr != nil {
		joined := errors.Join(ErrEncodingAttributesFailed, marshalErr)
		r.observeError(ctx, span, operationAdd, errorTypeEncoding, logMsgEncodingFailed, joined, start)

		return ModelEvent{}, joined
	}

	event, buildErr := r.buildEvent(r.CreatedEventName(), newID, dataJSON, author)
	if buildErr != nil {
		r.observeError(ctx, span, operationAdd, errorTypeEncoding, logMsgEncodingFailed, buildErr, start)

		return ModelEvent{}, buildErr
	}

	newState, foldErr := r.root.ApplyEvent(event, nil)
	if foldErr != nil {
		r.observeError(ctx, span, operationAdd, errorTypeFold, logMsgFoldFailed, foldErr, start)

		return ModelEvent{}, foldErr
	}

	if commitErr := r.commit(ctx, event, newState, newID); commitErr != nil {
		r.observeError(ctx, span, operationAdd, errorTypeCommit, logMsgCommitFailed, commitErr, start)

		return ModelEvent{}, commitErr
	}

	r.observeSuccess(ctx, span, operationAdd, start,
		logMsgEntryAdded,
		logAttrAlias, r.alias,
		logAttrAggregateID, newID,
		logAttrEventName, event.Name,
	)

	return event, nil
}

// Remove soft-deletes the given aggregate and returns the unattributed
// deletion event. The projection is overwritten with the marked state, not
// erased, so history and the last-known attributes remain retrievable.
//
// The caller supplies the aggregate instance it believes is current; no
// check against the latest persisted version is performed before folding.
func (r *Repository[T]) Remove(ctx context.Context, aggregate T) (ModelEvent, error) {
	return r.remove(ctx, aggregate, nil)
}

// RemoveWithAuthor is Remove with the deletion event attributed to author.
func (r *Repository[T]) RemoveWithAuthor(ctx context.Context, aggregate T, author string) (ModelEvent, error) {
	return r.remove(ctx, aggregate, &author)
}

func (r *Repository[T]) remove(ctx context.Context, aggregate T, author *string) (ModelEvent, error) {
	start := time.Now()
	id := aggregate.AggregateMeta().ID
	ctx, span := r.startSpan(ctx, operationRemove, map[string]string{spanAttrAggregateID: id})

	event, buildErr := r.buildEvent(r.DeletedEventName(), id, []byte(`{}`), author)
	if buildErr != nil {
		r.observeError(ctx, span, operationRemove, errorTypeEncoding, logMsgEncodingFailed, buildErr, start)

		return ModelEvent{}, buildErr
	}

	newState, foldErr := r.root.ApplyEvent(event, &aggregate)
	if foldErr != nil {
		r.observeError(ctx, span, operationRemove, errorTypeFold, logMsgFoldFailed, foldErr, start)

		return ModelEvent{}, foldErr
	}

	if commitErr := r.commit(ctx, event, newState, ""); commitErr != nil {
		r.observeError(ctx, span, operationRemove, errorTypeCommit, logMsgCommitFailed, commitErr, start)

		return ModelEvent{}, commitErr
	}

	r.observeSuccess(ctx, span, operationRemove, start,
		logMsgEntryRemoved,
		logAttrAlias, r.alias,
		logAttrAggregateID, id,
		logAttrVersion, newState.AggregateMeta().Version,
	)

	return event, nil
}

// buildEvent constructs the ModelEvent for one write, attributed when
// author is non-nil.
func (r *Repository[T]) buildEvent(name EventName, id ID, dataJSON []byte, author *string) (ModelEvent, error) {
	if author != nil {
		return BuildModelEvent(name, id, dataJSON, time.Now(), *author)
	}

	return BuildModelEventUnattributed(name, id, dataJSON, time.Now())
}

// commit serializes the event and the new projection and lands them
// atomically; a non-empty newID additionally registers the id in the
// known-ids log.
func (r *Repository[T]) commit(ctx context.Context, event ModelEvent, newState T, newID ID) error {
	eventJSON, eventErr := jsonAPI.Marshal(event)
	if eventErr != nil {
		return errors.Join(ErrEncodingEventFailed, eventErr)
	}

	stateJSON, stateErr := jsonAPI.Marshal(newState)
	if stateErr != nil {
		return errors.Join(ErrEncodingStateFailed, stateErr)
	}

	batch := WriteBatch{
		EventsKey: r.alias + keyEventsSuffix,
		Event:     eventJSON,
		StateKey:  r.stateKey(event.AggregateID),
		State:     stateJSON,
	}

	if newID != "" {
		batch.IDsKey = r.alias + keyIDsSuffix
		batch.NewID = newID
	}

	if commitErr := r.backend.Commit(ctx, batch); commitErr != nil {
		return errors.Join(ErrPersistingEventFailed, commitErr)
	}

	return nil
}

// FindByID looks up the current projection for id. It returns found ==
// false if no such id is known and also if the aggregate is soft-deleted;
// deletion and absence are indistinguishable to this method by design. It
// is the "soft" read path for callers that only want to know "is this
// usable right now".
func (r *Repository[T]) FindByID(ctx context.Context, id ID) (T, bool, error) {
	var empty T

	start := time.Now()
	ctx, span := r.startSpan(ctx, operationFindByID, map[string]string{spanAttrAggregateID: id})

	state, found, err := r.loadState(ctx, id)
	if err != nil {
		r.observeError(ctx, span, operationFindByID, errorTypeLoad, logMsgLoadStateFailed, err, start)

		return empty, false, err
	}

	if !found || state.AggregateMeta().IsDeleted() {
		r.observeSuccess(ctx, span, operationFindByID, start, "")
		return empty, false, nil
	}

	r.observeSuccess(ctx, span, operationFindByID, start, "")

	return state, true, nil
}

// GetByID looks up the current projection for id. It is the "strict" read
// path: an unknown id fails with *EntryNotFoundError, a soft-deleted one
// with *EntryDeletedError carrying the full last-known aggregate as Entry.
func (r *Repository[T]) GetByID(ctx context.Context, id ID) (T, error) {
	var empty T

	start := time.Now()
	ctx, span := r.startSpan(ctx, operationGetByID, map[string]string{spanAttrAggregateID: id})

	state, found, err := r.loadState(ctx, id)
	if err != nil {
		r.observeError(ctx, span, operationGetByID, errorTypeLoad, logMsgLoadStateFailed, err, start)

		return empty, err
	}

	if !found {
		notFound := &EntryNotFoundError{Alias: r.alias, ID: id}
		r.observeError(ctx, span, operationGetByID, errorTypeNotFound, notFound.Error(), notFound, start)

		return empty, notFound
	}

	if state.AggregateMeta().IsDeleted() {
		deleted := &EntryDeletedError{Alias: r.alias, ID: id, Entry: state}
		r.observeError(ctx, span, operationGetByID, errorTypeDeleted, deleted.Error(), deleted, start)

		return empty, deleted
	}

	r.observeSuccess(ctx, span, operationGetByID, start, "")

	return state, nil
}

// FindAll returns every known, non-deleted aggregate in ascending creation
// order. It performs a full scan of the known ids; no pagination.
//
// A known id whose projection is missing (a store left inconsistent by an
// interrupted write outside an atomic Commit) is skipped with a warning
// rather than failing the whole scan; no automatic repair is attempted.
func (r *Repository[T]) FindAll(ctx context.Context) ([]T, error) {
	start := time.Now()
	ctx, span := r.startSpan(ctx, operationFindAll, nil)

	rawIDs, listErr := r.backend.List(ctx, r.alias+keyIDsSuffix)
	if listErr != nil {
		joined := errors.Join(ErrListingIDsFailed, listErr)
		r.observeError(ctx, span, operationFindAll, errorTypeLoad, logMsgListIDsFailed, joined, start)

		return nil, joined
	}

	stateKeys := make([]string, len(rawIDs))
	for i, rawID := range rawIDs {
		stateKeys[i] = r.stateKey(string(rawID))
	}

	entries := make([]T, 0, len(stateKeys))

	if len(stateKeys) > 0 {
		values, getErr := r.backend.GetMulti(ctx, stateKeys)
		if getErr != nil {
			joined := errors.Join(ErrLoadingStateFailed, getErr)
			r.observeError(ctx, span, operationFindAll, errorTypeLoad, logMsgLoadStateFailed, joined, start)

			return nil, joined
		}

		for i, value := range values {
			if value == nil {
				r.logWarn(ctx, logMsgMissingProjection, logAttrAlias, r.alias, logAttrAggregateID, string(rawIDs[i]))
				continue
			}

			state, decodeErr := r.decodeState(value)
			if decodeErr != nil {
				r.observeError(ctx, span, operationFindAll, errorTypeDecode, logMsgDecodeStateFailed, decodeErr, start)

				return nil, decodeErr
			}

			if state.AggregateMeta().IsDeleted() {
				continue
			}

			entries = append(entries, state)
		}
	}

	r.recordValue(ctx, metricEntriesScanned, float64(len(stateKeys)), operationFindAll, statusSuccess)
	r.observeSuccess(ctx, span, operationFindAll, start,
		logMsgOperation+operationFindAll,
		logAttrAlias, r.alias,
		logAttrEntryCount, len(entries),
	)

	return entries, nil
}

func (r *Repository[T]) stateKey(id ID) string {
	return r.alias + keyStateInfix + id
}

func (r *Repository[T]) loadState(ctx context.Context, id ID) (T, bool, error) {
	var empty T

	raw, found, getErr := r.backend.Get(ctx, r.stateKey(id))
	if getErr != nil {
		return empty, false, errors.Join(ErrLoadingStateFailed, getErr)
	}

	if !found {
		return empty, false, nil
	}

	state, decodeErr := r.decodeState(raw)
	if decodeErr != nil {
		return empty, false, decodeErr
	}

	return state, true, nil
}

func (r *Repository[T]) decodeState(raw []byte) (T, error) {
	var state T

	if err := jsonAPI.Unmarshal(raw, &state); err != nil {
		return state, errors.Join(ErrDecodingStateFailed, err)
	}

	return state, nil
}
