// Package tracer wires OpenTelemetry for wallet tool invocations.
package tracer

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"insomnia-keeper/internal/infra/config"
)

const (
	tracerName     = "insomnia-keeper"
	invocationSpan = "walletcli.invoke"
)

// Span attributes recorded for every wallet tool invocation.
const (
	AttrOperation    = attribute.Key("wallet.operation")
	AttrInvocationID = attribute.Key("wallet.invocation_id")
	AttrBackend      = attribute.Key("wallet.backend")
	AttrSuccess      = attribute.Key("wallet.success")
	AttrDataBytes    = attribute.Key("wallet.data_bytes")
)

// exportWriter receives spans from the "stdout" exporter. Stdout itself is
// reserved for command results.
var exportWriter io.Writer = os.Stderr

// Setup installs the global TracerProvider described by cfg and returns its
// shutdown function. A disabled tracer or the "noop" exporter installs a
// noop provider.
func Setup(ctx context.Context, cfg config.TracerConfig) (func(context.Context) error, error) {
	noopShutdown := func(context.Context) error { return nil }

	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return noopShutdown, nil
	}

	switch cfg.Exporter {
	case "noop", "":
		otel.SetTracerProvider(noop.NewTracerProvider())
		return noopShutdown, nil
	case "stdout":
	default:
		return nil, fmt.Errorf("unsupported exporter: %s", cfg.Exporter)
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(exportWriter),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, fmt.Errorf("create stdout exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// StartSpan starts a named span on the keeper tracer.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, opts...)
}

// StartInvocation starts the span covering one wallet tool call.
func StartInvocation(ctx context.Context, operation, invocationID, backend string) (context.Context, trace.Span) {
	return StartSpan(ctx, invocationSpan,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			AttrOperation.String(operation),
			AttrInvocationID.String(invocationID),
			AttrBackend.String(backend),
		),
	)
}

// EndInvocation records the outcome of a wallet tool call and ends span.
// cause is only recorded for failed calls.
func EndInvocation(span trace.Span, success bool, dataBytes int, cause error) {
	span.SetAttributes(AttrSuccess.Bool(success), AttrDataBytes.Int(dataBytes))
	switch {
	case success:
		span.SetStatus(codes.Ok, "")
	case cause != nil:
		RecordError(span, cause)
	default:
		span.SetStatus(codes.Error, "wallet tool call failed")
	}
	span.End()
}

// RecordError records err on span and marks the span failed.
func RecordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
