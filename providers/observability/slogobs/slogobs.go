// Package slogobs implements observability.Provider on Go's standard library
// slog. Spans log their start and end at debug level with elapsed duration;
// metrics aggregate in memory and log on update.
package slogobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jong-choi/langflow/providers/observability"
)

// Observer routes tracing, metrics, and log events through a slog.Logger.
type Observer struct {
	logger  *slog.Logger
	metrics *metricsStore
}

var _ observability.Provider = (*Observer)(nil)

// New creates an observer. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{logger: logger, metrics: newMetricsStore()}
}

// StartSpan begins a named span and logs its start at debug level. The
// returned Span logs elapsed duration on End.
func (observer *Observer) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	span := &slogSpan{
		name:      name,
		startTime: time.Now(),
		logger:    observer.logger,
		attrs:     attrs,
	}
	observer.logger.LogAttrs(ctx, slog.LevelDebug, "span started", spanLogAttrs(name, "span.start", attrs)...)
	return observability.ContextWithSpan(ctx, span), span
}

func spanLogAttrs(name, event string, attrs []observability.Attribute) []slog.Attr {
	logAttrs := []slog.Attr{
		slog.String("span", name),
		slog.String("event", event),
	}
	for _, attr := range attrs {
		logAttrs = append(logAttrs, slog.Any(attr.Key, attr.Value))
	}
	return logAttrs
}

type slogSpan struct {
	name      string
	startTime time.Time
	logger    *slog.Logger
	attrs     []observability.Attribute
	status    observability.StatusCode
	mu        sync.Mutex
}

func (span *slogSpan) End() {
	span.mu.Lock()
	defer span.mu.Unlock()

	logAttrs := spanLogAttrs(span.name, "span.end", span.attrs)
	logAttrs = append(logAttrs, slog.Duration("duration", time.Since(span.startTime)))
	level := slog.LevelDebug
	if span.status == observability.StatusError {
		level = slog.LevelWarn
	}
	span.logger.LogAttrs(context.Background(), level, "span ended", logAttrs...)
}

func (span *slogSpan) SetAttributes(attrs ...observability.Attribute) {
	span.mu.Lock()
	defer span.mu.Unlock()
	span.attrs = append(span.attrs, attrs...)
}

func (span *slogSpan) SetStatus(code observability.StatusCode, description string) {
	span.mu.Lock()
	defer span.mu.Unlock()
	span.status = code
	if description != "" {
		span.attrs = append(span.attrs, observability.String("status.description", description))
	}
}

func (span *slogSpan) RecordError(err error) {
	if err == nil {
		return
	}
	span.mu.Lock()
	defer span.mu.Unlock()
	span.status = observability.StatusError
	span.attrs = append(span.attrs, observability.Error(err))
}

func (span *slogSpan) AddEvent(name string, attrs ...observability.Attribute) {
	span.mu.Lock()
	logAttrs := spanLogAttrs(span.name, name, attrs)
	span.mu.Unlock()
	span.logger.LogAttrs(context.Background(), slog.LevelDebug, "span event", logAttrs...)
}

// --- METRICS ---

type metricsStore struct {
	mu         sync.Mutex
	counters   map[string]*slogCounter
	histograms map[string]*slogHistogram
}

func newMetricsStore() *metricsStore {
	return &metricsStore{
		counters:   make(map[string]*slogCounter),
		histograms: make(map[string]*slogHistogram),
	}
}

func (observer *Observer) Counter(name string) observability.Counter {
	observer.metrics.mu.Lock()
	defer observer.metrics.mu.Unlock()
	counter, ok := observer.metrics.counters[name]
	if !ok {
		counter = &slogCounter{name: name, logger: observer.logger}
		observer.metrics.counters[name] = counter
	}
	return counter
}

func (observer *Observer) Histogram(name string) observability.Histogram {
	observer.metrics.mu.Lock()
	defer observer.metrics.mu.Unlock()
	histogram, ok := observer.metrics.histograms[name]
	if !ok {
		histogram = &slogHistogram{name: name, logger: observer.logger}
		observer.metrics.histograms[name] = histogram
	}
	return histogram
}

type slogCounter struct {
	name   string
	logger *slog.Logger
	mu     sync.Mutex
	total  int64
}

func (counter *slogCounter) Add(ctx context.Context, value int64, attrs ...observability.Attribute) {
	counter.mu.Lock()
	counter.total += value
	total := counter.total
	counter.mu.Unlock()

	logAttrs := []slog.Attr{
		slog.String("metric", counter.name),
		slog.Int64("value", value),
		slog.Int64("total", total),
	}
	for _, attr := range attrs {
		logAttrs = append(logAttrs, slog.Any(attr.Key, attr.Value))
	}
	counter.logger.LogAttrs(ctx, slog.LevelDebug, "counter", logAttrs...)
}

type slogHistogram struct {
	name   string
	logger *slog.Logger
	mu     sync.Mutex
	count  int64
	sum    float64
}

func (histogram *slogHistogram) Record(ctx context.Context, value float64, attrs ...observability.Attribute) {
	histogram.mu.Lock()
	histogram.count++
	histogram.sum += value
	count, sum := histogram.count, histogram.sum
	histogram.mu.Unlock()

	logAttrs := []slog.Attr{
		slog.String("metric", histogram.name),
		slog.Float64("value", value),
		slog.Int64("count", count),
		slog.Float64("mean", sum/float64(count)),
	}
	for _, attr := range attrs {
		logAttrs = append(logAttrs, slog.Any(attr.Key, attr.Value))
	}
	histogram.logger.LogAttrs(ctx, slog.LevelDebug, "histogram", logAttrs...)
}

// --- LOGGING ---

func (observer *Observer) log(ctx context.Context, level slog.Level, msg string, attrs []observability.Attribute) {
	logAttrs := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		logAttrs = append(logAttrs, slog.Any(attr.Key, attr.Value))
	}
	observer.logger.LogAttrs(ctx, level, msg, logAttrs...)
}

func (observer *Observer) Debug(ctx context.Context, msg string, attrs ...observability.Attribute) {
	observer.log(ctx, slog.LevelDebug, msg, attrs)
}

func (observer *Observer) Info(ctx context.Context, msg string, attrs ...observability.Attribute) {
	observer.log(ctx, slog.LevelInfo, msg, attrs)
}

func (observer *Observer) Warn(ctx context.Context, msg string, attrs ...observability.Attribute) {
	observer.log(ctx, slog.LevelWarn, msg, attrs)
}

func (observer *Observer) Error(ctx context.Context, msg string, attrs ...observability.Attribute) {
	observer.log(ctx, slog.LevelError, msg, attrs)
}
