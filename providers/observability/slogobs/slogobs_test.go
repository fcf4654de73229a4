package slogobs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/jong-choi/langflow/providers/observability"
)

func newTestObserver() (*Observer, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(logger), &buf
}

func TestSpanLifecycle(t *testing.T) {
	observer, buf := newTestObserver()

	ctx, span := observer.StartSpan(context.Background(), "node.execute",
		observability.String("node_id", "chat-1"))
	if got := observability.SpanFromContext(ctx); got != span {
		t.Error("span not attached to returned context")
	}

	span.AddEvent("retry", observability.Int("attempt", 2))
	span.End()

	output := buf.String()
	for _, want := range []string{"span started", "span ended", "node.execute", "chat-1", "retry", "duration"} {
		if !strings.Contains(output, want) {
			t.Errorf("log output missing %q:\n%s", want, output)
		}
	}
}

func TestSpanRecordErrorRaisesEndLevel(t *testing.T) {
	observer, buf := newTestObserver()

	_, span := observer.StartSpan(context.Background(), "node.execute")
	span.RecordError(errors.New("provider unavailable"))
	span.End()

	output := buf.String()
	if !strings.Contains(output, "provider unavailable") {
		t.Errorf("recorded error missing from output:\n%s", output)
	}
	if !strings.Contains(output, `"level":"WARN"`) {
		t.Errorf("errored span end should log at WARN:\n%s", output)
	}
}

func TestCounterAccumulates(t *testing.T) {
	observer, buf := newTestObserver()

	counter := observer.Counter("flows.completed")
	counter.Add(context.Background(), 1)
	counter.Add(context.Background(), 2)

	if same := observer.Counter("flows.completed"); same != counter {
		t.Error("Counter should return the same instrument for a name")
	}
	if !strings.Contains(buf.String(), `"total":3`) {
		t.Errorf("counter total not accumulated:\n%s", buf.String())
	}
}

func TestHistogramMean(t *testing.T) {
	observer, buf := newTestObserver()

	histogram := observer.Histogram("node.duration_ms")
	histogram.Record(context.Background(), 10)
	histogram.Record(context.Background(), 30)

	if !strings.Contains(buf.String(), `"mean":20`) {
		t.Errorf("histogram mean not reported:\n%s", buf.String())
	}
}

func TestLoggerLevels(t *testing.T) {
	observer, buf := newTestObserver()

	observer.Info(context.Background(), "run finished", observability.String("session", "s1"))
	observer.Error(context.Background(), "run failed", observability.Error(errors.New("boom")))

	output := buf.String()
	if !strings.Contains(output, "run finished") || !strings.Contains(output, `"session":"s1"`) {
		t.Errorf("info log incomplete:\n%s", output)
	}
	if !strings.Contains(output, `"level":"ERROR"`) || !strings.Contains(output, "boom") {
		t.Errorf("error log incomplete:\n%s", output)
	}
}
