package aggregates

import (
	"context"
	"math"
	"time"
)

// startSpan starts a tracing span for one repository operation if a tracing
// collector is configured.
func (r *Repository[T]) startSpan(ctx context.Context, operation string, extraAttrs map[string]string) (context.Context, SpanContext) {
	if r.tracingCollector == nil {
		return ctx, nil
	}

	attrs := map[string]string{
		spanAttrOperation: operation,
		spanAttrAlias:     r.alias,
	}
	for key, value := range extraAttrs {
		attrs[key] = value
	}

	return r.tracingCollector.StartSpan(ctx, spanNamePrefix+operation, attrs)
}

// observeSuccess finishes the span, records duration metrics and logs the
// operation summary (when msg is non-empty) after a successful operation.
func (r *Repository[T]) observeSuccess(
	ctx context.Context,
	span SpanContext,
	operation string,
	start time.Time,
	msg string,
	args ...any,
) {
	duration := time.Since(start)

	r.recordDuration(ctx, duration, operation, statusSuccess)

	if span != nil && r.tracingCollector != nil {
		span.SetStatus(statusSuccess)
		r.tracingCollector.FinishSpan(span, statusSuccess, nil)
	}

	if msg != "" {
		args = append(args, logAttrDurationMS, toMilliseconds(duration))
		r.logInfo(ctx, msg, args...)
	}
}

// observeError finishes the span, records error metrics and logs the error
// after a failed operation.
func (r *Repository[T]) observeError(
	ctx context.Context,
	span SpanContext,
	operation string,
	errorType string,
	msg string,
	err error,
	start time.Time,
) {
	duration := time.Since(start)

	r.recordDuration(ctx, duration, operation, statusError)
	r.incrementCounter(ctx, metricOperationErrors, operation, errorType)

	if span != nil && r.tracingCollector != nil {
		span.SetStatus(statusError)
		span.AddAttribute(spanAttrErrorType, errorType)
		r.tracingCollector.FinishSpan(span, statusError, map[string]string{spanAttrErrorType: errorType})
	}

	r.logError(ctx, msg, err, logAttrAlias, r.alias)
}

func (r *Repository[T]) recordDuration(ctx context.Context, duration time.Duration, operation, status string) {
	if r.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		spanAttrAlias:     r.alias,
		"status":          status,
	}

	if contextual, ok := r.metricsCollector.(ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metricOperationDuration, duration, labels)
		return
	}

	r.metricsCollector.RecordDuration(metricOperationDuration, duration, labels)
}

func (r *Repository[T]) incrementCounter(ctx context.Context, metric string, operation, errorType string) {
	if r.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		spanAttrAlias:     r.alias,
		spanAttrErrorType: errorType,
	}

	if contextual, ok := r.metricsCollector.(ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	r.metricsCollector.IncrementCounter(metric, labels)
}

func (r *Repository[T]) recordValue(ctx context.Context, metric string, value float64, operation, status string) {
	if r.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		spanAttrAlias:     r.alias,
		"status":          status,
	}

	if contextual, ok := r.metricsCollector.(ContextualMetricsCollector); ok {
		contextual.RecordValueContext(ctx, metric, value, labels)
		return
	}

	r.metricsCollector.RecordValue(metric, value, labels)
}

// logInfo logs operational information, preferring the contextual logger
// when both are configured.
func (r *Repository[T]) logInfo(ctx context.Context, msg string, args ...any) {
	if r.contextualLogger != nil {
		r.contextualLogger.InfoContext(ctx, msg, args...)
		return
	}

	if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}

func (r *Repository[T]) logWarn(ctx context.Context, msg string, args ...any) {
	if r.contextualLogger != nil {
		r.contextualLogger.WarnContext(ctx, msg, args...)
		return
	}

	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}

func (r *Repository[T]) logError(ctx context.Context, msg string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if r.contextualLogger != nil {
		r.contextualLogger.ErrorContext(ctx, msg, allArgs...)
		return
	}

	if r.logger != nil {
		r.logger.Error(msg, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3
// decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
