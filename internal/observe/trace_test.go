package observe

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// newSpanRecorder installs an in-memory tracer provider as the global one and
// returns its exporter for inspecting recorded spans.
func newSpanRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(orig) })
	return exp
}

func isHex(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func TestStartSpan_RecordsPipelineSpan(t *testing.T) {
	exp := newSpanRecorder(t)

	ctx, span := StartSpan(context.Background(), "coordinator.process")
	cid := CorrelationID(ctx)
	if len(cid) != 32 || !isHex(cid) {
		t.Errorf("correlation ID = %q, want 32 hex characters", cid)
	}
	span.End()

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	if spans[0].Name != "coordinator.process" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "coordinator.process")
	}
}

func TestStartSpan_KeepsDetachedLineage(t *testing.T) {
	newSpanRecorder(t)

	// The drain loop drops the caller's context but keeps its span context,
	// so a pipeline span must end up under the caller's trace.
	callerCtx, caller := StartSpan(context.Background(), "mcpserver.speak")
	defer caller.End()

	detached := trace.ContextWithSpanContext(context.Background(),
		trace.SpanContextFromContext(callerCtx))
	ctx, span := StartSpan(detached, "coordinator.process")
	defer span.End()

	if got, want := CorrelationID(ctx), CorrelationID(callerCtx); got != want {
		t.Errorf("pipeline trace ID = %q, want caller's %q", got, want)
	}
}

func TestCorrelationID_EmptyWithoutSpan(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID(background) = %q, want empty", got)
	}
}

func TestLogger_AnnotatesWithTrace(t *testing.T) {
	newSpanRecorder(t)

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx, span := StartSpan(context.Background(), "synthesis")
	defer span.End()

	Logger(ctx).Info("utterance spoken", "chars", 12)

	out := buf.String()
	if !strings.Contains(out, "trace_id=") || !strings.Contains(out, "span_id=") {
		t.Errorf("log line missing trace annotations: %s", out)
	}
}

func TestLogger_PlainWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	Logger(context.Background()).Info("startup")

	if out := buf.String(); strings.Contains(out, "trace_id") {
		t.Errorf("log line should carry no trace annotations: %s", out)
	}
}
