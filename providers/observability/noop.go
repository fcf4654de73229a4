package observability

import "context"

// Noop is a Provider that discards everything. It is the default when no
// provider is configured, so call sites never need nil checks.
type Noop struct{}

var _ Provider = Noop{}

func (Noop) StartSpan(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	return ctx, noopSpan{}
}

func (Noop) Counter(name string) Counter     { return noopCounter{} }
func (Noop) Histogram(name string) Histogram { return noopHistogram{} }

func (Noop) Debug(ctx context.Context, msg string, attrs ...Attribute) {}
func (Noop) Info(ctx context.Context, msg string, attrs ...Attribute)  {}
func (Noop) Warn(ctx context.Context, msg string, attrs ...Attribute)  {}
func (Noop) Error(ctx context.Context, msg string, attrs ...Attribute) {}

type noopSpan struct{}

func (noopSpan) End()                                          {}
func (noopSpan) SetAttributes(attrs ...Attribute)              {}
func (noopSpan) SetStatus(code StatusCode, description string) {}
func (noopSpan) RecordError(err error)                         {}
func (noopSpan) AddEvent(name string, attrs ...Attribute)      {}

type noopCounter struct{}

func (noopCounter) Add(ctx context.Context, value int64, attrs ...Attribute) {}

type noopHistogram struct{}

func (noopHistogram) Record(ctx context.Context, value float64, attrs ...Attribute) {}
