package metrics

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the OTLP meter provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ExportInterval   time.Duration
	ServiceName      string
	Environment      string
}

// Metrics holds the booking workflow counters pushed over OTLP. The
// scheduler and HTTP histograms live on the Prometheus registry instead.
type Metrics struct {
	ordersCreated    metric.Int64Counter
	paymentsVerified metric.Int64Counter
	cancellations    metric.Int64Counter
	refunds          metric.Int64Counter
	refundedPaise    metric.Int64Counter
	rateLimitDenied  metric.Int64Counter
}

// labelKeys are the only attributes booking counters may carry. Anything
// identifying a customer or booking would explode series counts.
var labelKeys = []attribute.Key{"category", "endpoint", "status_code", "gateway", "outcome", "reason"}

// NewProvider installs the global meter provider. A disabled config installs
// the no-op provider so instruments still resolve.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}
	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(resource.NewWithAttributes("",
			attribute.String("service.name", serviceName(cfg)),
			attribute.String("deployment.environment", cfg.Environment),
		)),
	)
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{OnStop: provider.Shutdown})
	}
	log.Info("metrics exporting",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
		zap.Duration("interval", interval),
	)
	return provider, nil
}

// New registers the booking counters on provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(serviceName(cfg))

	var errs []error
	counter := func(name string, opts ...metric.Int64CounterOption) metric.Int64Counter {
		c, err := meter.Int64Counter(name, opts...)
		errs = append(errs, err)
		return c
	}
	m := &Metrics{
		ordersCreated:    counter("trailbook_orders_created_total", metric.WithDescription("Pending bookings created with a gateway order.")),
		paymentsVerified: counter("trailbook_payments_verified_total", metric.WithDescription("Payment verification outcomes.")),
		cancellations:    counter("trailbook_cancellations_total"),
		refunds:          counter("trailbook_refunds_total"),
		refundedPaise:    counter("trailbook_refunded_paise_total", metric.WithUnit("paise")),
		rateLimitDenied:  counter("trailbook_rate_limit_denied_total"),
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// NewNoop returns counters bound to a no-op provider.
func NewNoop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

func (m *Metrics) RecordOrderCreated(ctx context.Context, category string) {
	if m == nil {
		return
	}
	m.ordersCreated.Add(ctx, 1, labels(attribute.String("category", category)))
}

// RecordPaymentVerification counts verify outcomes: "confirmed", "duplicate" or "failed".
func (m *Metrics) RecordPaymentVerification(ctx context.Context, gateway, outcome string) {
	if m == nil {
		return
	}
	m.paymentsVerified.Add(ctx, 1, labels(
		attribute.String("gateway", gateway),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecordCancellation(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.cancellations.Add(ctx, 1, labels(attribute.String("reason", reason)))
}

// RecordRefund counts a refund attempt. Only completed refunds add to the
// refunded amount.
func (m *Metrics) RecordRefund(ctx context.Context, outcome string, amount int64) {
	if m == nil {
		return
	}
	m.refunds.Add(ctx, 1, labels(attribute.String("outcome", outcome)))
	if outcome == "completed" && amount > 0 {
		m.refundedPaise.Add(ctx, amount)
	}
}

func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	m.rateLimitDenied.Add(ctx, 1, labels(attribute.String("endpoint", endpoint)))
}

func labels(attrs ...attribute.KeyValue) metric.AddOption {
	return metric.WithAttributes(FilterAttributes(attrs...)...)
}

// FilterAttributes drops attributes outside the allowed label keys and trims
// string values.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	kept := attrs[:0:0]
	for _, attr := range attrs {
		if !slices.Contains(labelKeys, attr.Key) {
			continue
		}
		if attr.Value.Type() == attribute.STRING {
			attr = attr.Key.String(strings.TrimSpace(attr.Value.AsString()))
		}
		kept = append(kept, attr)
	}
	return kept
}

func serviceName(cfg Config) string {
	if name := strings.TrimSpace(cfg.ServiceName); name != "" {
		return name
	}
	return "trailbook"
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	ctx := context.Background()
	switch protocol {
	case "http":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(ctx, opts...)
	case "grpc", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}
