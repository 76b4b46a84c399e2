package redisengine

// Option defines a functional option for configuring the Backend.
type Option func(*Backend) error

// WithKeyPrefix sets a prefix prepended to every key the backend touches,
// so multiple installations can share one Redis database without key
// collisions. The repository's alias namespacing applies on top of it.
func WithKeyPrefix(prefix string) Option {
	return func(b *Backend) error {
		b.keyPrefix = prefix
		return nil
	}
}

// WithLogger sets the logger for the Backend.
//
// Debug level: executed commands with timing (development use)
// Error level: failed commands and transactions.
func WithLogger(logger Logger) Option {
	return func(b *Backend) error {
		b.logger = logger
		return nil
	}
}
