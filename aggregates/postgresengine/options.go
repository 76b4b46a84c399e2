package postgresengine

// Option defines a functional option for configuring the Backend.
type Option func(*Backend) error

// WithTableNames sets the table names for counters, entries and logs.
func WithTableNames(counters, entries, logs string) Option {
	return func(b *Backend) error {
		if counters == "" || entries == "" || logs == "" {
			return ErrEmptyTableNameSupplied
		}

		b.counters = counters
		b.entries = entries
		b.logs = logs

		return nil
	}
}

// WithLogger sets the logger for the Backend.
// The logger will receive messages at different levels based on the
// logger's configured level:
//
// Debug level: SQL queries with execution timing (development use)
// Warn level: non-critical issues like cleanup failures
// Error level: critical failures that cause operation failures.
func WithLogger(logger Logger) Option {
	return func(b *Backend) error {
		b.logger = logger
		return nil
	}
}
