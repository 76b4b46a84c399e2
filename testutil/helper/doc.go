// Package helper provides spy implementations of the aggregates
// observability interfaces, used by tests to assert logging, metrics and
// tracing instrumentation without a real backend.
package helper
