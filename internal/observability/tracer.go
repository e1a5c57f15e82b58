package observability

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jwebster45206/dilemma-engine/internal/config"
)

// ServiceName is reported as service.name on every span.
const ServiceName = "dilemma-engine"

// Config holds the configuration for OpenTelemetry tracing
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Enabled        bool
	LangfuseHost   string
	PublicKey      string
	SecretKey      string
}

// FromAppConfig maps the application config onto tracing settings.
func FromAppConfig(cfg *config.Config, version string) Config {
	return Config{
		ServiceName:    ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Environment,
		Enabled:        cfg.TracingEnabled,
		LangfuseHost:   cfg.LangfuseHost,
		PublicKey:      cfg.LangfusePublicKey,
		SecretKey:      cfg.LangfuseSecretKey,
	}
}

// TracerProvider wraps the OpenTelemetry tracer provider with cleanup
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	enabled  bool
}

// InitTracing initializes OpenTelemetry tracing with Langfuse export.
// When tracing is disabled a no-op provider is returned.
func InitTracing(ctx context.Context, cfg Config) (*TracerProvider, error) {
	if !cfg.Enabled {
		return &TracerProvider{enabled: false}, nil
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(5*time.Second),
			sdktrace.WithMaxExportBatchSize(100),
		),
		sdktrace.WithResource(newResource(cfg)),
		sdktrace.WithSpanProcessor(gameInjector{}),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return &TracerProvider{provider: tp, enabled: true}, nil
}

// Tracer returns a named tracer, or a no-op tracer when disabled.
func (tp *TracerProvider) Tracer(name string, options ...trace.TracerOption) trace.Tracer {
	if tp == nil || !tp.enabled {
		return noop.NewTracerProvider().Tracer(name, options...)
	}
	return otel.Tracer(name, options...)
}

// Shutdown flushes pending spans.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp == nil || !tp.enabled || tp.provider == nil {
		return nil
	}
	return tp.provider.Shutdown(ctx)
}

// IsEnabled returns whether tracing is enabled
func (tp *TracerProvider) IsEnabled() bool {
	return tp != nil && tp.enabled
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	auth := base64.StdEncoding.EncodeToString([]byte(cfg.PublicKey + ":" + cfg.SecretKey))
	endpoint := strings.TrimSuffix(cfg.LangfuseHost, "/") + "/api/public/otel/v1/traces"

	return otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(endpoint),
		otlptracehttp.WithHeaders(map[string]string{
			"Authorization": "Basic " + auth,
		}),
		otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
		otlptracehttp.WithTimeout(30*time.Second),
	)
}

func newResource(cfg Config) *resource.Resource {
	return resource.NewWithAttributes(
		"",
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		attribute.String("deployment.environment", cfg.Environment),
	)
}

// GenAIAttributes builds GenAI semantic convention attributes for a model call.
// Token counts of zero are left out.
func GenAIAttributes(operation, system, model string, inputTokens, outputTokens int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("gen_ai.operation.name", operation),
		attribute.String("gen_ai.system", system),
		attribute.String("gen_ai.request.model", model),
	}
	if inputTokens > 0 {
		attrs = append(attrs, attribute.Int("gen_ai.usage.input_tokens", inputTokens))
	}
	if outputTokens > 0 {
		attrs = append(attrs, attribute.Int("gen_ai.usage.output_tokens", outputTokens))
	}
	return attrs
}

type ctxKey string

const gameIDKey ctxKey = "game_id"

// WithGameID tags spans started under ctx with the run's game ID.
func WithGameID(ctx context.Context, gameID string) context.Context {
	if gameID == "" {
		return ctx
	}
	return context.WithValue(ctx, gameIDKey, gameID)
}

// GameID returns the game ID stored by WithGameID.
func GameID(ctx context.Context) string {
	id, _ := ctx.Value(gameIDKey).(string)
	return id
}

// gameInjector copies the game ID onto spans so traces group per run.
type gameInjector struct{}

func (gameInjector) OnStart(ctx context.Context, s sdktrace.ReadWriteSpan) {
	if id := GameID(ctx); id != "" {
		s.SetAttributes(
			attribute.String("langfuse.session.id", id),
			attribute.String("game.id", id),
		)
	}
}

func (gameInjector) OnEnd(sdktrace.ReadOnlySpan)      {}
func (gameInjector) Shutdown(context.Context) error   { return nil }
func (gameInjector) ForceFlush(context.Context) error { return nil }
