package redisengine

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eventfold/aggregates-go/aggregates"
)

const (
	logMsgCommandExecuted = "executed redis command for: "
	logMsgCommitFailed    = "redis transaction pipeline failed"
	logMsgCommandFailed   = "redis command failed"
	logAttrError          = "error"
	logAttrKey            = "key"
	logAttrKeyCount       = "key_count"
	logAttrDurationMS     = "duration_ms"
	actionIncr            = "incr"
	actionGet             = "get"
	actionGetMulti        = "mget"
	actionList            = "lrange"
	actionCommit          = "commit"
)

var ErrNilClient = errors.New("nil redis client supplied")
var ErrIncrFailed = errors.New("redis incr failed")
var ErrGetFailed = errors.New("redis get failed")
var ErrGetMultiFailed = errors.New("redis mget failed")
var ErrListFailed = errors.New("redis lrange failed")
var ErrCommitFailed = errors.New("redis transaction failed")

// Logger interface for command logging, warnings, and error reporting.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Backend is a Redis implementation of aggregates.Backend. It supports
// customizable logging and an optional key prefix so multiple installations
// can share one Redis database.
type Backend struct {
	client    redis.UniversalClient
	keyPrefix string
	logger    Logger
}

// New creates a Backend using the given Redis client with optional
// configuration. The client may be a single-node client, a cluster client
// or a ring.
func New(client redis.UniversalClient, options ...Option) (*Backend, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	b := &Backend{client: client}

	for _, option := range options {
		if err := option(b); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// Incr atomically increments the counter stored at key and returns the new
// value.
func (b *Backend) Incr(ctx context.Context, key string) (int64, error) {
	start := time.Now()
	value, err := b.client.Incr(ctx, b.key(key)).Result()
	b.logCommand(actionIncr, key, time.Since(start))

	if err != nil {
		b.logError(logMsgCommandFailed, err, logAttrKey, key)
		return 0, errors.Join(ErrIncrFailed, err)
	}

	return value, nil
}

// Get returns the value stored at key, or found == false if the key is
// absent.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	value, err := b.client.Get(ctx, b.key(key)).Bytes()
	b.logCommand(actionGet, key, time.Since(start))

	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}

	if err != nil {
		b.logError(logMsgCommandFailed, err, logAttrKey, key)
		return nil, false, errors.Join(ErrGetFailed, err)
	}

	return value, true, nil
}

// GetMulti returns the values for the given keys in order; absent keys
// yield nil elements.
func (b *Backend) GetMulti(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = b.key(key)
	}

	start := time.Now()
	results, err := b.client.MGet(ctx, prefixed...).Result()
	b.logCommandCount(actionGetMulti, len(keys), time.Since(start))

	if err != nil {
		b.logError(logMsgCommandFailed, err, logAttrKeyCount, len(keys))
		return nil, errors.Join(ErrGetMultiFailed, err)
	}

	values := make([][]byte, len(results))
	for i, result := range results {
		if result == nil {
			continue
		}

		// go-redis returns MGET elements as strings
		if s, ok := result.(string); ok {
			values[i] = []byte(s)
		}
	}

	return values, nil
}

// List returns all entries of the Redis list stored at key in insertion
// order.
func (b *Backend) List(ctx context.Context, key string) ([][]byte, error) {
	start := time.Now()
	entries, err := b.client.LRange(ctx, b.key(key), 0, -1).Result()
	b.logCommand(actionList, key, time.Since(start))

	if err != nil {
		b.logError(logMsgCommandFailed, err, logAttrKey, key)
		return nil, errors.Join(ErrListFailed, err)
	}

	values := make([][]byte, len(entries))
	for i, entry := range entries {
		values[i] = []byte(entry)
	}

	return values, nil
}

// Commit applies the write batch inside one MULTI/EXEC transaction
// pipeline.
func (b *Backend) Commit(ctx context.Context, batch aggregates.WriteBatch) error {
	pipe := b.client.TxPipeline()
	pipe.RPush(ctx, b.key(batch.EventsKey), batch.Event)
	pipe.Set(ctx, b.key(batch.StateKey), batch.State, 0)

	if batch.IDsKey != "" {
		pipe.RPush(ctx, b.key(batch.IDsKey), batch.NewID)
	}

	start := time.Now()
	_, err := pipe.Exec(ctx)
	b.logCommand(actionCommit, batch.StateKey, time.Since(start))

	if err != nil {
		b.logError(logMsgCommitFailed, err, logAttrKey, batch.StateKey)
		return errors.Join(ErrCommitFailed, err)
	}

	return nil
}

func (b *Backend) key(key string) string {
	return b.keyPrefix + key
}

// logCommand logs executed commands with timing at debug level if the
// logger is configured.
func (b *Backend) logCommand(action string, key string, duration time.Duration) {
	if b.logger != nil {
		b.logger.Debug(logMsgCommandExecuted+action, logAttrDurationMS, toMilliseconds(duration), logAttrKey, key)
	}
}

func (b *Backend) logCommandCount(action string, keyCount int, duration time.Duration) {
	if b.logger != nil {
		b.logger.Debug(logMsgCommandExecuted+action, logAttrDurationMS, toMilliseconds(duration), logAttrKeyCount, keyCount)
	}
}

func (b *Backend) logError(msg string, err error, args ...any) {
	if b.logger != nil {
		allArgs := []any{logAttrError, err.Error()}
		allArgs = append(allArgs, args...)
		b.logger.Error(msg, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3
// decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// Ensure Backend implements aggregates.Backend.
var _ aggregates.Backend = (*Backend)(nil)
