package tracer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"insomnia-keeper/internal/infra/config"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TracerConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer shutdown(context.Background())

	tp := otel.GetTracerProvider()
	if _, ok := tp.(noop.TracerProvider); !ok {
		t.Errorf("expected noop provider, got %T", tp)
	}
}

func TestSetupNoopAndEmptyExporter(t *testing.T) {
	for _, exporter := range []string{"noop", ""} {
		shutdown, err := Setup(context.Background(), config.TracerConfig{Enabled: true, Exporter: exporter})
		if err != nil {
			t.Fatalf("Setup(%q): %v", exporter, err)
		}
		if _, ok := otel.GetTracerProvider().(noop.TracerProvider); !ok {
			t.Errorf("exporter %q: expected noop provider", exporter)
		}
		shutdown(context.Background())
	}
}

func TestSetupStdoutWritesToExportWriter(t *testing.T) {
	var buf bytes.Buffer
	prev := exportWriter
	exportWriter = &buf
	t.Cleanup(func() {
		exportWriter = prev
		otel.SetTracerProvider(noop.NewTracerProvider())
	})

	shutdown, err := Setup(context.Background(), config.TracerConfig{Enabled: true, Exporter: "stdout"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	_, span := StartInvocation(context.Background(), "getBalance", "01J0000000000000000000000", "local")
	EndInvocation(span, true, 4, nil)
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}

	if !strings.Contains(buf.String(), invocationSpan) {
		t.Errorf("exported spans missing %q:\n%s", invocationSpan, buf.String())
	}
}

func TestExportWriterDefaultsToStderr(t *testing.T) {
	if exportWriter != os.Stderr {
		t.Errorf("exportWriter = %v, want os.Stderr", exportWriter)
	}
}

func TestSetupUnsupportedExporter(t *testing.T) {
	_, err := Setup(context.Background(), config.TracerConfig{Enabled: true, Exporter: "invalid"})
	if err == nil {
		t.Error("expected error for unsupported exporter")
	}
}

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })
	return rec
}

func attrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestInvocationSpanSuccess(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartInvocation(context.Background(), "getBalance", "id-1", "local")
	EndInvocation(span, true, 7, nil)

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	got := spans[0]
	if got.Name() != invocationSpan {
		t.Errorf("name = %q", got.Name())
	}
	if got.SpanKind() != trace.SpanKindClient {
		t.Errorf("kind = %v", got.SpanKind())
	}
	if got.Status().Code != codes.Ok {
		t.Errorf("status = %v", got.Status().Code)
	}
	a := attrs(got)
	if a[AttrOperation].AsString() != "getBalance" || a[AttrInvocationID].AsString() != "id-1" || a[AttrBackend].AsString() != "local" {
		t.Errorf("start attributes = %v", a)
	}
	if !a[AttrSuccess].AsBool() || a[AttrDataBytes].AsInt64() != 7 {
		t.Errorf("outcome attributes = %v", a)
	}
}

func TestInvocationSpanFailure(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartInvocation(context.Background(), "transfer", "id-2", "local")
	EndInvocation(span, false, 0, errors.New("wallet tool wrote to stderr"))
	_, bare := StartInvocation(context.Background(), "transfer", "id-3", "local")
	EndInvocation(bare, false, 0, nil)

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if s := spans[0].Status(); s.Code != codes.Error || s.Description != "wallet tool wrote to stderr" {
		t.Errorf("status = %+v", s)
	}
	if len(spans[0].Events()) != 1 {
		t.Errorf("expected one recorded error event, got %d", len(spans[0].Events()))
	}
	if attrs(spans[0])[AttrSuccess].AsBool() {
		t.Error("wallet.success should be false")
	}
	if spans[1].Status().Code != codes.Error {
		t.Errorf("failure without cause: status = %v", spans[1].Status().Code)
	}
}
