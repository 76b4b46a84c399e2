package adapters

import "context"

// DBAdapter defines the interface for database operations needed by the
// key-value engine. ExecInTx runs all given statements inside one
// transaction, so a Commit batch lands atomically.
type DBAdapter interface {
	Query(ctx context.Context, query string) (DBRows, error)
	Exec(ctx context.Context, query string) (DBResult, error)
	ExecInTx(ctx context.Context, queries []string) error
}

// DBRows defines the interface for query result rows.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
}

// DBResult defines the interface for execution results.
type DBResult interface {
	RowsAffected() (int64, error)
}
