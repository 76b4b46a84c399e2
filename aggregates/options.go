package aggregates

// Option defines a functional option for configuring a Repository. Options
// are not generic over the aggregate type, so the same option values can be
// reused across repositories of different types.
type Option func(*repositoryConfig) error

type repositoryConfig struct {
	logger           Logger
	contextualLogger ContextualLogger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector
}

// WithLogger sets the logger for the Repository.
// The logger will receive messages at different levels based on the
// logger's configured level:
//
// Debug level: per-operation details (development use)
// Info level: operation summaries with ids and counts (production-safe)
// Warn level: non-critical anomalies like skipped inconsistent entries
// Error level: failures that cause operation failures.
func WithLogger(logger Logger) Option {
	return func(cfg *repositoryConfig) error {
		cfg.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Repository.
// The contextual logger will receive log messages with context information
// including automatic trace/span correlation when tracing is enabled.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(cfg *repositoryConfig) error {
		cfg.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Repository.
// The collector will receive operation durations, scan sizes and error
// counts.
func WithMetrics(collector MetricsCollector) Option {
	return func(cfg *repositoryConfig) error {
		cfg.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Repository.
// The collector will receive one span per repository operation, with
// context propagation into the backend calls and error tracking.
func WithTracing(collector TracingCollector) Option {
	return func(cfg *repositoryConfig) error {
		cfg.tracingCollector = collector
		return nil
	}
}
