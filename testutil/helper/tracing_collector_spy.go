package helper

import (
	"context"
	"sync"

	"github.com/eventfold/aggregates-go/aggregates"
)

// SpySpanContext is a test implementation of the SpanContext interface.
type SpySpanContext struct {
	Name       string
	Attributes map[string]string
	Status     string
	mu         sync.Mutex
}

// SetStatus implements the SpanContext interface.
func (s *SpySpanContext) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = status
}

// AddAttribute implements the SpanContext interface.
func (s *SpySpanContext) AddAttribute(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Attributes == nil {
		s.Attributes = make(map[string]string)
	}
	s.Attributes[key] = value
}

// SpySpanRecord captures one started span together with its final state.
type SpySpanRecord struct {
	Name         string
	StartAttrs   map[string]string
	FinishStatus string
	FinishAttrs  map[string]string
	Finished     bool
	Span         *SpySpanContext
}

// TracingCollectorSpy captures tracing calls for testing.
// It implements the TracingCollector interface of the aggregates package.
type TracingCollectorSpy struct {
	spans       []*SpySpanRecord
	mu          sync.Mutex
	recordCalls bool
}

// NewTracingCollectorSpy creates a new TracingCollectorSpy.
// Switchable to record the calls, or behave like a no-op collector.
func NewTracingCollectorSpy(recordCalls bool) *TracingCollectorSpy {
	return &TracingCollectorSpy{
		spans:       make([]*SpySpanRecord, 0),
		recordCalls: recordCalls,
	}
}

// StartSpan implements the TracingCollector interface.
func (s *TracingCollectorSpy) StartSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, aggregates.SpanContext) {
	span := &SpySpanContext{Name: name}

	if !s.recordCalls {
		return ctx, span
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.spans = append(s.spans, &SpySpanRecord{
		Name:       name,
		StartAttrs: copyLabels(attrs),
		Span:       span,
	})

	return ctx, span
}

// FinishSpan implements the TracingCollector interface.
func (s *TracingCollectorSpy) FinishSpan(spanCtx aggregates.SpanContext, status string, attrs map[string]string) {
	spySpan, ok := spanCtx.(*SpySpanContext)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.spans {
		if record.Span == spySpan {
			record.Finished = true
			record.FinishStatus = status
			record.FinishAttrs = copyLabels(attrs)
		}
	}
}

// Spans returns all captured span records.
func (s *TracingCollectorSpy) Spans() []*SpySpanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	spans := make([]*SpySpanRecord, len(s.spans))
	copy(spans, s.spans)

	return spans
}

// Reset clears all captured span records.
func (s *TracingCollectorSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spans = s.spans[:0]
}

// HasSpan checks whether a span with the given name was started.
func (s *TracingCollectorSpy) HasSpan(name string) bool {
	return s.FindSpan(name) != nil
}

// FindSpan returns the first captured span with the given name, or nil.
func (s *TracingCollectorSpy) FindSpan(name string) *SpySpanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.spans {
		if record.Name == name {
			return record
		}
	}

	return nil
}

var _ aggregates.TracingCollector = (*TracingCollectorSpy)(nil)
