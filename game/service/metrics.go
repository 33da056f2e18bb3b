package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/wricardo/placement-grid/game/service"

// serviceMetrics holds the placement counters. They report through the
// global meter provider and are no-ops unless an SDK is installed.
type serviceMetrics struct {
	placed    metric.Int64Counter
	rejected  metric.Int64Counter
	evicted   metric.Int64Counter
	expanded  metric.Int64Counter
	exhausted metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) (*serviceMetrics, error) {
	var (
		sm  serviceMetrics
		err error
	)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&sm.placed, "placement.placed", "Items committed to a grid"},
		{&sm.rejected, "placement.rejected", "Drops sent back to the pool"},
		{&sm.evicted, "placement.evicted", "Items evicted by a placement"},
		{&sm.expanded, "placement.expanded", "Slots unlocked by expansion"},
		{&sm.exhausted, "placement.pool_exhausted", "Items the pool could not house"},
	}
	for _, c := range counters {
		*c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("creating %s counter: %w", c.name, err)
		}
	}
	return &sm, nil
}

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

func noopMetrics() *serviceMetrics {
	sm, _ := newServiceMetrics(noop.NewMeterProvider().Meter(instrumentationName))
	return sm
}

func add(c metric.Int64Counter, n int, attrs ...attribute.KeyValue) {
	if n <= 0 {
		return
	}
	c.Add(context.Background(), int64(n), metric.WithAttributes(attrs...))
}
