// Package tracing owns the process-wide OpenTelemetry tracer provider.
// Spans are exported to Langfuse over OTLP/HTTP when credentials are set;
// otherwise every tracer is a no-op.
package tracing

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ShayCichocki/validator/internal/config"
	"github.com/ShayCichocki/validator/internal/version"
)

const instrumentationName = "github.com/ShayCichocki/validator"

// Span attribute keys.
const (
	AttrSessionID  = attribute.Key("session.id")
	AttrThreadID   = attribute.Key("langfuse.trace.metadata.thread_id")
	AttrSpecialist = attribute.Key("validator.specialist")
	AttrTool       = attribute.Key("validator.tool")
	AttrModel      = attribute.Key("gen_ai.request.model")
	AttrInputTok   = attribute.Key("gen_ai.usage.input_tokens")
	AttrOutputTok  = attribute.Key("gen_ai.usage.output_tokens")
)

// Provider hands out tracers and flushes spans on shutdown.
type Provider struct {
	tp  trace.TracerProvider
	sdk *sdktrace.TracerProvider
}

// Setup builds the provider for cfg. It never fails for disabled tracing.
func Setup(ctx context.Context, cfg config.TracingConfig) (*Provider, error) {
	if !cfg.Enabled() {
		return Disabled(), nil
	}

	exp, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(Endpoint(cfg.Host)),
		otlptracehttp.WithHeaders(map[string]string{
			"Authorization": BasicAuth(cfg.PublicKey, cfg.SecretKey),
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", "validator"),
		attribute.String("service.version", version.Get()),
	)
	return NewProvider(sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)), nil
}

// NewProvider wraps an SDK tracer provider.
func NewProvider(tp *sdktrace.TracerProvider) *Provider {
	return &Provider{tp: tp, sdk: tp}
}

// Disabled returns a provider whose tracers record nothing.
func Disabled() *Provider {
	return &Provider{tp: noop.NewTracerProvider()}
}

// Enabled reports whether spans are exported.
func (p *Provider) Enabled() bool {
	return p != nil && p.sdk != nil
}

// Tracer returns the validator tracer. A nil provider yields a no-op tracer.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil {
		return noop.NewTracerProvider().Tracer(instrumentationName)
	}
	return p.tp.Tracer(instrumentationName, trace.WithInstrumentationVersion(version.Get()))
}

// Shutdown flushes pending spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	if err := p.sdk.ForceFlush(ctx); err != nil {
		return fmt.Errorf("flush traces: %w", err)
	}
	return p.sdk.Shutdown(ctx)
}

// Endpoint returns the OTLP traces URL for a Langfuse host.
func Endpoint(host string) string {
	return strings.TrimRight(host, "/") + "/api/public/otel/v1/traces"
}

// BasicAuth builds the Authorization header value for a Langfuse key pair.
func BasicAuth(publicKey, secretKey string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(publicKey+":"+secretKey))
}

// StartTurn opens the root span for one orchestrator turn.
func StartTurn(ctx context.Context, tracer trace.Tracer, sessionID, threadID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "orchestrator.turn",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(AttrSessionID.String(sessionID), AttrThreadID.String(threadID)),
	)
}
