package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Config struct {
	Enabled      bool
	ServiceName  string
	Version      string
	Environment  string
	OTLPEndpoint string // empty disables trace export
	MetricsPort  string // empty disables the /metrics listener
}

// ShutdownFunc flushes and stops everything Init started.
type ShutdownFunc func(context.Context) error

type shutdowns []func(context.Context) error

func (s shutdowns) run(ctx context.Context) error {
	var errs []error
	// Reverse order: the metrics listener goes first, providers last.
	for i := len(s) - 1; i >= 0; i-- {
		errs = append(errs, s[i](ctx))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("telemetry shutdown: %w", err)
	}
	return nil
}

// Init installs the global meter and tracer providers. Metrics are exposed
// for Prometheus scraping on MetricsPort and traces are batched to an OTLP
// collector. When cfg.Enabled is false the otel no-op providers stay in place
// and the returned ShutdownFunc does nothing.
func Init(ctx context.Context, cfg Config, logger *slog.Logger) (ShutdownFunc, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var stack shutdowns

	if !cfg.Enabled {
		logger.Info("telemetry disabled")
		return stack.run, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
	if err != nil {
		return stack.run, fmt.Errorf("failed to create resource: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	meterShutdown, err := setupMetrics(res, registry)
	if err != nil {
		return stack.run, err
	}
	stack = append(stack, meterShutdown)

	if cfg.OTLPEndpoint != "" {
		traceShutdown, err := setupTracing(ctx, res, cfg.OTLPEndpoint)
		if err != nil {
			return stack.run, err
		}
		stack = append(stack, traceShutdown)
	} else {
		logger.Warn("no OTLP endpoint configured, traces are not exported")
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.MetricsPort != "" {
		srv := NewMetricsServer(":"+cfg.MetricsPort, registry)
		go func() {
			logger.Info("metrics server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		stack = append(stack, srv.Shutdown)
	}

	logger.Info("telemetry initialized",
		"service", cfg.ServiceName, "metrics_port", cfg.MetricsPort, "otlp_endpoint", cfg.OTLPEndpoint)
	return stack.run, nil
}

func setupMetrics(res *resource.Resource, registry *prometheus.Registry) (func(context.Context) error, error) {
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)
	return provider.Shutdown, nil
}

func setupTracing(ctx context.Context, res *resource.Resource, endpoint string) (func(context.Context) error, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}

// NewMetricsServer serves gatherer on /metrics.
func NewMetricsServer(addr string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}
