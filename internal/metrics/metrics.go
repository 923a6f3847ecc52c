package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// Metrics holds the engine's business counters. A nil *Metrics is valid
// and records nothing, so metrics stay optional in every service.
type Metrics struct {
	CheckoutsCompleted  metric.Int64Counter
	CheckoutsRejected   metric.Int64Counter
	AvailabilityQueries metric.Int64Counter
	CacheHits           metric.Int64Counter
	CacheMisses         metric.Int64Counter
	GatewayEvents       metric.Int64Counter
}

// Init sets up the OTLP HTTP exporter and the engine's instruments.
// An empty endpoint disables export entirely and returns (nil, nil, nil).
func Init(ctx context.Context, serviceName, endpoint string) (*Metrics, *sdkmetric.MeterProvider, error) {
	if endpoint == "" {
		return nil, nil, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("metrics resource: %w", err)
	}

	exporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(endpoint),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("metrics exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(15*time.Second))),
	)
	otel.SetMeterProvider(provider)
	meter := provider.Meter(serviceName)

	m := &Metrics{}
	if m.CheckoutsCompleted, err = meter.Int64Counter("rental.checkouts.completed",
		metric.WithDescription("Carts successfully converted into orders")); err != nil {
		return nil, nil, err
	}
	if m.CheckoutsRejected, err = meter.Int64Counter("rental.checkouts.rejected",
		metric.WithDescription("Checkout attempts aborted, by reason")); err != nil {
		return nil, nil, err
	}
	if m.AvailabilityQueries, err = meter.Int64Counter("rental.availability.queries",
		metric.WithDescription("Availability lookups served")); err != nil {
		return nil, nil, err
	}
	if m.CacheHits, err = meter.Int64Counter("rental.availability.cache_hits"); err != nil {
		return nil, nil, err
	}
	if m.CacheMisses, err = meter.Int64Counter("rental.availability.cache_misses"); err != nil {
		return nil, nil, err
	}
	if m.GatewayEvents, err = meter.Int64Counter("rental.gateway.events",
		metric.WithDescription("Payment gateway events processed, by outcome")); err != nil {
		return nil, nil, err
	}
	return m, provider, nil
}

func (m *Metrics) CheckoutCompleted(ctx context.Context) {
	if m == nil {
		return
	}
	m.CheckoutsCompleted.Add(ctx, 1)
}

func (m *Metrics) CheckoutRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.CheckoutsRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) AvailabilityQuery(ctx context.Context, cacheHit bool) {
	if m == nil {
		return
	}
	m.AvailabilityQueries.Add(ctx, 1)
	if cacheHit {
		m.CacheHits.Add(ctx, 1)
	} else {
		m.CacheMisses.Add(ctx, 1)
	}
}

func (m *Metrics) GatewayEvent(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.GatewayEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
