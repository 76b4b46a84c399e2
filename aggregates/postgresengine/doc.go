// Package postgresengine implements the aggregates.Backend contract on
// PostgreSQL, for installations that already run Postgres and do not want
// a second datastore for the aggregate store.
//
// Storage layout (table names configurable via WithTableNames):
//   - aggregate_counters: atomic counters, one row per counter key,
//     incremented with an upsert returning the new value
//   - aggregate_entries: current projections, plain key/value rows
//   - aggregate_logs: ordered logs (event history, known ids), insertion
//     order preserved by a bigserial position column
//
// Commit executes its statements inside one transaction, so the event-log
// append, the projection upsert and the id registration become visible
// together or not at all.
//
// Three database libraries are supported through internal adapters:
// pgxpool.Pool, database/sql and sqlx.
package postgresengine
