package observability

import "context"

type spanKey struct{}

// ContextWithSpan attaches span to ctx so nested node executions can parent
// their own spans onto the enclosing run.
func ContextWithSpan(ctx context.Context, span Span) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, spanKey{}, span)
}

// SpanFromContext returns the span attached to ctx, or nil when the caller
// runs outside any traced scope.
func SpanFromContext(ctx context.Context) Span {
	if ctx == nil {
		return nil
	}
	span, _ := ctx.Value(spanKey{}).(Span)
	return span
}
