// Package telemetry initializes OpenTelemetry metrics and the arena's counters.
package telemetry

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
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const scope = "agent-arena"

type Shutdown func(ctx context.Context) error

// Init installs a global meter provider exporting over OTLP/HTTP. With an
// empty endpoint the global no-op provider stays in place.
func Init(ctx context.Context, endpoint, serviceName string, insecure bool) (Shutdown, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create resource: %w", err)
	}
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(endpoint)}
	if insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exp, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(15*time.Second))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp.Shutdown, nil
}

func Meter() metric.Meter {
	return otel.GetMeterProvider().Meter(scope)
}

// Metrics are the domain counters. A nil *Metrics records nothing.
type Metrics struct {
	queueJoins    metric.Int64Counter
	queueLeaves   metric.Int64Counter
	matchesPaired metric.Int64Counter
	settlements   metric.Int64Counter
	conflicts     metric.Int64Counter
	houseFees     metric.Int64Counter
	escrowSwept   metric.Int64Counter
}

func NewMetrics(m metric.Meter) (*Metrics, error) {
	var (
		out Metrics
		err error
	)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&out.queueJoins, "arena.queue.joins", "Agents admitted to the matchmaking queue"},
		{&out.queueLeaves, "arena.queue.leaves", "Queue entries removed before pairing"},
		{&out.matchesPaired, "arena.matches.paired", "Matches created by the pairing step"},
		{&out.settlements, "arena.matches.settled", "Matches settled"},
		{&out.conflicts, "arena.matches.settle_conflicts", "Settlement attempts that lost the race"},
		{&out.houseFees, "arena.house_fees", "House fee collected in credits"},
		{&out.escrowSwept, "arena.escrow.swept", "Orphaned escrow holds refunded by the janitor"},
	}
	for _, c := range counters {
		*c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("telemetry: counter %s: %w", c.name, err)
		}
	}
	return &out, nil
}

func (m *Metrics) QueueJoined(ctx context.Context, gameType string) {
	if m == nil {
		return
	}
	m.queueJoins.Add(ctx, 1, metric.WithAttributes(attribute.String("game_type", gameType)))
}

func (m *Metrics) QueueLeft(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.queueLeaves.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) MatchPaired(ctx context.Context, gameType string) {
	if m == nil {
		return
	}
	m.matchesPaired.Add(ctx, 1, metric.WithAttributes(attribute.String("game_type", gameType)))
}

func (m *Metrics) MatchSettled(ctx context.Context, draw bool, houseFee int64) {
	if m == nil {
		return
	}
	m.settlements.Add(ctx, 1, metric.WithAttributes(attribute.Bool("draw", draw)))
	m.houseFees.Add(ctx, houseFee)
}

func (m *Metrics) SettleConflict(ctx context.Context) {
	if m == nil {
		return
	}
	m.conflicts.Add(ctx, 1)
}

func (m *Metrics) EscrowSwept(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.escrowSwept.Add(ctx, int64(n))
}
