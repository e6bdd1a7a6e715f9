// Package telemetry wires the daemon's optional observability surface
// (SPEC_FULL.md §2 DOMAIN STACK): otel tracing/metric spans around each
// connection's accept -> decide -> execute -> respond lifecycle, stdout
// exported, plus prometheus counters exposed on a loopback-only debug
// HTTP listener. Both are off by default and never change access-control
// behavior, only what gets observed.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Config controls whether tracing/metrics are active and where the
// prometheus debug listener binds.
type Config struct {
	// Enabled turns on otel tracing/metrics (stdout exporters) and the
	// prometheus /metrics listener. Off by default.
	Enabled bool

	// MetricsAddr is the loopback address the prometheus handler binds
	// to when Enabled. Defaults to "127.0.0.1:9090".
	MetricsAddr string
}

// metrics holds the daemon's prometheus collectors (C7).
type metrics struct {
	requestsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		requestsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "ganesha",
			Name:      "requests_total",
			Help:      "Total number of command requests handled by the daemon, labeled by decision.",
		}, []string{"decision"}),
		commandDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ganesha",
			Name:      "command_duration_seconds",
			Help:      "Command request latency from accept to respond, labeled by outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
}

// Provider bundles the tracer, otel meter, and prometheus registry the
// daemon instruments its per-connection handling with. A disabled
// Provider's tracer/meter are no-ops and no listener is started, so
// callers never need a nil check to use one.
type Provider struct {
	cfg      Config
	tracer   trace.Tracer
	meter    metric.Meter
	requests metric.Int64Counter

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	metrics        *metrics
	registry       *prometheus.Registry
	server         *http.Server
}

// NewProvider builds a Provider. When cfg.Enabled is false, it returns a
// Provider with an inert tracer/meter and no listener bound.
func NewProvider(cfg Config) (*Provider, error) {
	reg := prometheus.NewRegistry()
	m := newMetrics(reg)

	if !cfg.Enabled {
		p := &Provider{cfg: cfg, tracer: otel.Tracer("ganesha"), meter: otel.Meter("ganesha"), metrics: m, registry: reg}
		p.requests, _ = p.meter.Int64Counter("ganesha.requests")
		return p, nil
	}

	traceExporter, err := stdouttrace.New(stdouttrace.WithoutTimestamps())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExporter))
	otel.SetTracerProvider(tp)

	metricExporter, err := stdoutmetric.New()
	if err != nil {
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(30*time.Second))))
	otel.SetMeterProvider(mp)

	meter := mp.Meter("ganesha")
	requests, err := meter.Int64Counter("ganesha.requests", metric.WithDescription("Command requests handled by the daemon"))
	if err != nil {
		return nil, err
	}

	p := &Provider{
		cfg: cfg, tracer: tp.Tracer("ganesha"), meter: meter, requests: requests,
		tracerProvider: tp, meterProvider: mp, metrics: m, registry: reg,
	}
	p.startMetricsListener()
	return p, nil
}

// startMetricsListener binds the prometheus /metrics handler to a
// loopback address, per SPEC_FULL.md §2's "off by default" requirement.
func (p *Provider) startMetricsListener() {
	addr := p.cfg.MetricsAddr
	if addr == "" {
		addr = "127.0.0.1:9090"
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))
	p.server = &http.Server{Addr: addr, Handler: mux}
	go func() { _ = p.server.ListenAndServe() }()
}

// Shutdown stops the metrics listener and flushes the tracer/meter
// providers, if either was started.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.server != nil {
		_ = p.server.Close()
	}
	if p.meterProvider != nil {
		_ = p.meterProvider.Shutdown(ctx)
	}
	if p.tracerProvider != nil {
		return p.tracerProvider.Shutdown(ctx)
	}
	return nil
}

// StartRequest starts the span covering one connection's full
// accept -> decide -> execute -> respond lifecycle.
func (p *Provider) StartRequest(ctx context.Context) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "daemon.request", trace.WithSpanKind(trace.SpanKindServer))
}

// SetRequestID attaches the wire request id to span once it is known
// (it isn't until the request body has been parsed).
func (p *Provider) SetRequestID(span trace.Span, requestID string) {
	span.SetAttributes(attribute.String("ganesha.request_id", requestID))
}

// RecordDecision annotates span with the access decision, increments
// the prometheus requests_total counter, and records one otel counter
// event, all labeled allow/deny.
func (p *Provider) RecordDecision(ctx context.Context, span trace.Span, allowed bool, risk string) {
	label := "deny"
	if allowed {
		label = "allow"
	}
	span.SetAttributes(attribute.Bool("ganesha.allowed", allowed), attribute.String("ganesha.risk", risk))
	p.metrics.requestsTotal.WithLabelValues(label).Inc()
	if p.requests != nil {
		p.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("decision", label)))
	}
}

// ObserveCommandDuration records how long a request took end to end,
// labeled by its final outcome (allow, deny, timeout, failed).
func (p *Provider) ObserveCommandDuration(outcome string, seconds float64) {
	p.metrics.commandDuration.WithLabelValues(outcome).Observe(seconds)
}

// EndRequest ends span, recording err as a span error if non-nil.
func (p *Provider) EndRequest(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}
