package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func recordingTracer(t *testing.T) (*tracetest.SpanRecorder, trace.Tracer) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return rec, tp.Tracer("test")
}

func TestInitTracingDisabled(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	shutdown, err := InitTracing("test", "0.0.0")
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	shutdown()
	if IsTracingEnabled() {
		t.Error("tracing enabled without an endpoint")
	}
}

func TestSampleRatio(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"", 1},
		{"0.25", 0.25},
		{"1", 1},
		{"0", 1},
		{"2", 1},
		{"abc", 1},
	}
	for _, tt := range tests {
		t.Setenv("OTEL_TRACES_SAMPLER_ARG", tt.in)
		if got := sampleRatio(); got != tt.want {
			t.Errorf("sampleRatio(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSpanStatusHelpers(t *testing.T) {
	rec, tracer := recordingTracer(t)

	ctx := WithCorrelation(context.Background(), "corr-1")
	_, ok := tracer.Start(ctx, "ok")
	SetSpanHTTPStatus(ok, 200)
	SetSpanSuccess(ok)
	ok.End()

	_, bad := tracer.Start(ctx, "bad")
	SetSpanHTTPStatus(bad, 503)
	bad.End()

	_, failed := tracer.Start(ctx, "failed")
	RecordError(failed, errors.New("lookup failed"))
	failed.End()

	spans := rec.Ended()
	if len(spans) != 3 {
		t.Fatalf("ended spans = %d, want 3", len(spans))
	}
	want := map[string]codes.Code{"ok": codes.Ok, "bad": codes.Error, "failed": codes.Error}
	for _, s := range spans {
		if got := s.Status().Code; got != want[s.Name()] {
			t.Errorf("span %s status = %v, want %v", s.Name(), got, want[s.Name()])
		}
	}
	if n := len(spans[2].Events()); n != 1 {
		t.Errorf("failed span events = %d, want 1 exception event", n)
	}
}

func TestStartSpanTagsCorrelation(t *testing.T) {
	ctx := WithCorrelation(context.Background(), "corr-2")
	_, span := StartSpan(ctx, "test", "noop")
	defer span.End()
	if span == nil {
		t.Fatal("StartSpan returned nil span")
	}
}
