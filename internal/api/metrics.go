package api

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds domain-level counters the HTTP instrumentation cannot derive
// on its own. A nil *Metrics is valid and records nothing.
type Metrics struct {
	ordersCreated    metric.Int64Counter
	discountsApplied metric.Int64Counter
	tokensIssued     metric.Int64Counter
}

// NewMetrics registers the API counters on the given meter provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter("github.com/xenking/storefront-admin/internal/api")

	ordersCreated, err := meter.Int64Counter("storefront.orders.created",
		metric.WithDescription("Orders created through the admin API"))
	if err != nil {
		return nil, errors.Wrap(err, "orders counter")
	}
	discountsApplied, err := meter.Int64Counter("storefront.discounts.applied",
		metric.WithDescription("Coupon applications, split by outcome"))
	if err != nil {
		return nil, errors.Wrap(err, "discounts counter")
	}
	tokensIssued, err := meter.Int64Counter("storefront.tokens.issued",
		metric.WithDescription("Bearer tokens issued"))
	if err != nil {
		return nil, errors.Wrap(err, "tokens counter")
	}

	return &Metrics{
		ordersCreated:    ordersCreated,
		discountsApplied: discountsApplied,
		tokensIssued:     tokensIssued,
	}, nil
}

func (m *Metrics) orderCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.ordersCreated.Add(ctx, 1)
}

func (m *Metrics) discountApplied(ctx context.Context, applied bool) {
	if m == nil {
		return
	}
	m.discountsApplied.Add(ctx, 1, metric.WithAttributes(attribute.Bool("applied", applied)))
}

func (m *Metrics) tokenIssued(ctx context.Context, typ string) {
	if m == nil {
		return
	}
	m.tokensIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("type", typ)))
}
