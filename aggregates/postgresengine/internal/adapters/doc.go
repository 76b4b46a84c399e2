// Package adapters provides database adapter implementations for the
// PostgreSQL key-value engine.
//
// This package implements the adapter pattern to support multiple
// PostgreSQL database libraries: pgx.Pool, sql.DB, and sqlx.DB. All
// adapters provide equivalent functionality through a common DBAdapter
// interface, allowing the engine to work seamlessly with any supported
// database connection type.
//
// Beyond plain query/exec, adapters expose ExecInTx so a Commit batch of
// the aggregate store lands inside one transaction.
package adapters
