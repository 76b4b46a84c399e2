package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/eventfold/aggregates-go/aggregates"
	"github.com/eventfold/aggregates-go/aggregates/postgresengine/internal/adapters"
)

const (
	defaultCountersTableName = "aggregate_counters"
	defaultEntriesTableName  = "aggregate_entries"
	defaultLogsTableName     = "aggregate_logs"

	logMsgBuildQueryFailed = "failed to build query"
	logMsgDBQueryFailed    = "database query execution failed"
	logMsgCloseRowsFailed  = "failed to close database rows"
	logMsgScanRowFailed    = "failed to scan database row"
	logMsgTxFailed         = "database transaction failed during commit"
	logMsgSQLExecuted      = "executed sql for: "
	logAttrError           = "error"
	logAttrQuery           = "query"
	logAttrKey             = "key"
	logAttrDurationMS      = "duration_ms"
	logActionIncr          = "incr"
	logActionGet           = "get"
	logActionGetMulti      = "get_multi"
	logActionList          = "list"
	logActionCommit        = "commit"

	colCounterKey   = "counter_key"
	colCounterValue = "counter_value"
	colEntryKey     = "entry_key"
	colEntryValue   = "entry_value"
	colLogKey       = "log_key"
	colLogValue     = "log_value"
	colLogPosition  = "log_position"

	dialectPostgres = "postgres"
)

var ErrNilDatabaseConnection = errors.New("nil database connection supplied")
var ErrEmptyTableNameSupplied = errors.New("empty table name supplied")
var ErrBuildingQueryFailed = errors.New("building query failed")
var ErrIncrFailed = errors.New("incrementing counter failed")
var ErrNoCounterRowReturned = errors.New("no counter row returned")
var ErrGetFailed = errors.New("reading entry failed")
var ErrListFailed = errors.New("reading log failed")
var ErrScanningDBRowFailed = errors.New("scanning database row failed")
var ErrCommitFailed = errors.New("committing write batch failed")

// Logger interface for SQL query logging, warnings, and error reporting.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Backend implements the aggregates.Backend contract on PostgreSQL. It
// keeps three tables: one for atomic counters, one for current projections
// (plain key/value) and one for ordered logs (event history, known ids).
// Commit lands its statements inside one transaction.
//
// It leverages a database adapter and supports customizable logging and
// table name configuration.
type Backend struct {
	db       adapters.DBAdapter
	counters string
	entries  string
	logs     string
	logger   Logger
}

// NewBackendFromPGXPool creates a new Backend using a pgx Pool with
// optional configuration.
func NewBackendFromPGXPool(db *pgxpool.Pool, options ...Option) (*Backend, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newBackend(adapters.NewPGXAdapter(db), options...)
}

// NewBackendFromSQLDB creates a new Backend using a sql.DB with optional
// configuration.
func NewBackendFromSQLDB(db *sql.DB, options ...Option) (*Backend, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newBackend(adapters.NewSQLAdapter(db), options...)
}

// NewBackendFromSQLX creates a new Backend using a sqlx.DB with optional
// configuration.
func NewBackendFromSQLX(db *sqlx.DB, options ...Option) (*Backend, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newBackend(adapters.NewSQLXAdapter(db), options...)
}

func newBackend(db adapters.DBAdapter, options ...Option) (*Backend, error) {
	b := &Backend{
		db:       db,
		counters: defaultCountersTableName,
		entries:  defaultEntriesTableName,
		logs:     defaultLogsTableName,
	}

	for _, option := range options {
		if err := option(b); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// Schema returns the DDL creating the backend's tables under their
// configured names. Production installations typically manage migrations
// themselves; see CreateTablesIfNotExist for test setup and simple
// deployments.
func (b *Backend) Schema() string {
	return strings.Join(b.schemaStatements(), "\n")
}

// schemaStatements returns the DDL as individual statements, one per
// string, so they can be executed through drivers that reject
// multi-statement strings.
func (b *Backend) schemaStatements() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s TEXT PRIMARY KEY,
	%s BIGINT NOT NULL
);`, b.counters, colCounterKey, colCounterValue),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s TEXT PRIMARY KEY,
	%s TEXT NOT NULL
);`, b.entries, colEntryKey, colEntryValue),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s BIGSERIAL PRIMARY KEY,
	%s TEXT NOT NULL,
	%s TEXT NOT NULL
);`, b.logs, colLogPosition, colLogKey, colLogValue),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_%[2]s_idx ON %[1]s (%[2]s, %[3]s);`,
			b.logs, colLogKey, colLogPosition),
	}
}

// CreateTablesIfNotExist executes the Schema DDL statement by statement.
// Intended for test setup and simple deployments.
func (b *Backend) CreateTablesIfNotExist(ctx context.Context) error {
	for _, stmt := range b.schemaStatements() {
		if _, err := b.db.Exec(ctx, stmt); err != nil {
			b.logError(logMsgDBQueryFailed, err, logAttrQuery, stmt)
			return err
		}
	}

	return nil
}

// Incr atomically increments the counter stored at key and returns the new
// value, creating the counter at 1 on first use.
func (b *Backend) Incr(ctx context.Context, key string) (int64, error) {
	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(b.counters).
		Cols(colCounterKey, colCounterValue).
		Vals(goqu.Vals{key, 1}).
		OnConflict(goqu.DoUpdate(
			colCounterKey,
			goqu.Record{colCounterValue: goqu.L(b.counters + "." + colCounterValue + " + 1")},
		)).
		Returning(colCounterValue)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		b.logError(logMsgBuildQueryFailed, toSQLErr, logAttrKey, key)
		return 0, errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := b.executeQuery(ctx, sqlQuery, logActionIncr)
	if queryErr != nil {
		return 0, errors.Join(ErrIncrFailed, queryErr)
	}
	defer b.closeRows(rows)

	if !rows.Next() {
		return 0, errors.Join(ErrIncrFailed, ErrNoCounterRowReturned)
	}

	var value int64
	if scanErr := rows.Scan(&value); scanErr != nil {
		b.logError(logMsgScanRowFailed, scanErr, logAttrKey, key)
		return 0, errors.Join(ErrIncrFailed, ErrScanningDBRowFailed, scanErr)
	}

	return value, nil
}

// Get returns the value stored at key, or found == false if the key is
// absent.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(b.entries).
		Select(colEntryValue).
		Where(goqu.Ex{colEntryKey: key})

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		b.logError(logMsgBuildQueryFailed, toSQLErr, logAttrKey, key)
		return nil, false, errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := b.executeQuery(ctx, sqlQuery, logActionGet)
	if queryErr != nil {
		return nil, false, errors.Join(ErrGetFailed, queryErr)
	}
	defer b.closeRows(rows)

	if !rows.Next() {
		return nil, false, nil
	}

	var value string
	if scanErr := rows.Scan(&value); scanErr != nil {
		b.logError(logMsgScanRowFailed, scanErr, logAttrKey, key)
		return nil, false, errors.Join(ErrGetFailed, ErrScanningDBRowFailed, scanErr)
	}

	return []byte(value), true, nil
}

// GetMulti returns the values for the given keys in order; absent keys
// yield nil elements.
func (b *Backend) GetMulti(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	selectStmt := goqu.Dialect(dialectPostgres).
		From(b.entries).
		Select(colEntryKey, colEntryValue).
		Where(goqu.Ex{colEntryKey: keys})

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		b.logError(logMsgBuildQueryFailed, toSQLErr)
		return nil, errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := b.executeQuery(ctx, sqlQuery, logActionGetMulti)
	if queryErr != nil {
		return nil, errors.Join(ErrGetFailed, queryErr)
	}
	defer b.closeRows(rows)

	byKey := make(map[string][]byte, len(keys))

	for rows.Next() {
		var key, value string
		if scanErr := rows.Scan(&key, &value); scanErr != nil {
			b.logError(logMsgScanRowFailed, scanErr)
			return nil, errors.Join(ErrGetFailed, ErrScanningDBRowFailed, scanErr)
		}

		byKey[key] = []byte(value)
	}

	values := make([][]byte, len(keys))
	for i, key := range keys {
		values[i] = byKey[key]
	}

	return values, nil
}

// List returns all entries of the log stored at key in insertion order.
func (b *Backend) List(ctx context.Context, key string) ([][]byte, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(b.logs).
		Select(colLogValue).
		Where(goqu.Ex{colLogKey: key}).
		Order(goqu.I(colLogPosition).Asc())

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		b.logError(logMsgBuildQueryFailed, toSQLErr, logAttrKey, key)
		return nil, errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := b.executeQuery(ctx, sqlQuery, logActionList)
	if queryErr != nil {
		return nil, errors.Join(ErrListFailed, queryErr)
	}
	defer b.closeRows(rows)

	entries := make([][]byte, 0)

	for rows.Next() {
		var value string
		if scanErr := rows.Scan(&value); scanErr != nil {
			b.logError(logMsgScanRowFailed, scanErr, logAttrKey, key)
			return nil, errors.Join(ErrListFailed, ErrScanningDBRowFailed, scanErr)
		}

		entries = append(entries, []byte(value))
	}

	return entries, nil
}

// Commit applies the write batch inside one transaction: the event-log
// append, the projection upsert and the optional id registration become
// visible together or not at all.
func (b *Backend) Commit(ctx context.Context, batch aggregates.WriteBatch) error {
	queries, buildErr := b.buildCommitQueries(batch)
	if buildErr != nil {
		return buildErr
	}

	start := time.Now()
	txErr := b.db.ExecInTx(ctx, queries)
	b.logQueryWithDuration(logActionCommit, batch.StateKey, time.Since(start))

	if txErr != nil {
		b.logError(logMsgTxFailed, txErr, logAttrKey, batch.StateKey)
		return errors.Join(ErrCommitFailed, txErr)
	}

	return nil
}

func (b *Backend) buildCommitQueries(batch aggregates.WriteBatch) ([]string, error) {
	builder := goqu.Dialect(dialectPostgres)
	queries := make([]string, 0, 3)

	appendStmt := builder.
		Insert(b.logs).
		Cols(colLogKey, colLogValue).
		Vals(goqu.Vals{batch.EventsKey, string(batch.Event)})

	appendQuery, _, appendErr := appendStmt.ToSQL()
	if appendErr != nil {
		b.logError(logMsgBuildQueryFailed, appendErr, logAttrKey, batch.EventsKey)
		return nil, errors.Join(ErrBuildingQueryFailed, appendErr)
	}
	queries = append(queries, appendQuery)

	upsertStmt := builder.
		Insert(b.entries).
		Cols(colEntryKey, colEntryValue).
		Vals(goqu.Vals{batch.StateKey, string(batch.State)}).
		OnConflict(goqu.DoUpdate(
			colEntryKey,
			goqu.Record{colEntryValue: goqu.L("excluded." + colEntryValue)},
		))

	upsertQuery, _, upsertErr := upsertStmt.ToSQL()
	if upsertErr != nil {
		b.logError(logMsgBuildQueryFailed, upsertErr, logAttrKey, batch.StateKey)
		return nil, errors.Join(ErrBuildingQueryFailed, upsertErr)
	}
	queries = append(queries, upsertQuery)

	if batch.IDsKey != "" {
		registerStmt := builder.
			Insert(b.logs).
			Cols(colLogKey, colLogValue).
			Vals(goqu.Vals{batch.IDsKey, batch.NewID})

		registerQuery, _, registerErr := registerStmt.ToSQL()
		if registerErr != nil {
			b.logError(logMsgBuildQueryFailed, registerErr, logAttrKey, batch.IDsKey)
			return nil, errors.Join(ErrBuildingQueryFailed, registerErr)
		}
		queries = append(queries, registerQuery)
	}

	return queries, nil
}

// executeQuery executes the SQL query with timing information.
func (b *Backend) executeQuery(ctx context.Context, sqlQuery string, action string) (adapters.DBRows, error) {
	start := time.Now()
	rows, queryErr := b.db.Query(ctx, sqlQuery)
	b.logQueryWithDuration(action, sqlQuery, time.Since(start))

	if queryErr != nil {
		b.logError(logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		return nil, queryErr
	}

	return rows, nil
}

// closeRows safely closes database rows and logs any errors.
func (b *Backend) closeRows(rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		if b.logger != nil {
			b.logger.Warn(logMsgCloseRowsFailed, logAttrError, closeErr.Error())
		}
	}
}

// logQueryWithDuration logs executed SQL with timing at debug level if the
// logger is configured.
func (b *Backend) logQueryWithDuration(action string, sqlQuery string, duration time.Duration) {
	if b.logger != nil {
		b.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, b.toMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logError logs error information at the error level if the logger is configured.
func (b *Backend) logError(message string, err error, args ...any) {
	if b.logger != nil {
		allArgs := []any{logAttrError, err.Error()}
		allArgs = append(allArgs, args...)
		b.logger.Error(message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (b *Backend) toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// Ensure Backend implements aggregates.Backend.
var _ aggregates.Backend = (*Backend)(nil)
