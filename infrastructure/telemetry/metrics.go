// Package telemetry provides observability infrastructure including
// OpenTelemetry metrics support for the cache runtime.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/felixgeelhaar/modelcache/domain/cache"
)

// MetricsProvider provides access to metrics instruments.
type MetricsProvider struct {
	meter metric.Meter

	// Counters
	hits         metric.Int64Counter
	misses       metric.Int64Counter
	puts         metric.Int64Counter
	evictions    metric.Int64Counter
	expirations  metric.Int64Counter
	promotions   metric.Int64Counter
	demotions    metric.Int64Counter
	replFailures metric.Int64Counter
	errors       metric.Int64Counter

	// Histograms
	lookupDuration metric.Float64Histogram
	putDuration    metric.Float64Histogram

	// Gauges (using UpDownCounter for OpenTelemetry)
	occupancyBytes   metric.Int64UpDownCounter
	occupancyEntries metric.Int64UpDownCounter

	initOnce sync.Once
	initErr  error
}

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the name of the meter (default: "github.com/felixgeelhaar/modelcache").
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
	// Attributes are default attributes to attach to all metrics.
	Attributes []attribute.KeyValue
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/felixgeelhaar/modelcache",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsProvider creates a new metrics provider.
func NewMetricsProvider(config MetricsConfig) *MetricsProvider {
	if config.MeterName == "" {
		config = DefaultMetricsConfig()
	}

	provider := otel.GetMeterProvider()
	meter := provider.Meter(
		config.MeterName,
		metric.WithInstrumentationVersion(config.MeterVersion),
	)

	mp := &MetricsProvider{
		meter: meter,
	}

	mp.initOnce.Do(func() {
		mp.initErr = mp.initInstruments()
	})

	return mp
}

// initInstruments initializes all metric instruments.
func (mp *MetricsProvider) initInstruments() error {
	var err error

	// Counters
	mp.hits, err = mp.meter.Int64Counter(
		"modelcache.hits",
		metric.WithDescription("Number of cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	mp.misses, err = mp.meter.Int64Counter(
		"modelcache.misses",
		metric.WithDescription("Number of cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return err
	}

	mp.puts, err = mp.meter.Int64Counter(
		"modelcache.puts",
		metric.WithDescription("Number of cache writes"),
		metric.WithUnit("{put}"),
	)
	if err != nil {
		return err
	}

	mp.evictions, err = mp.meter.Int64Counter(
		"modelcache.evictions",
		metric.WithDescription("Number of evicted entries"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return err
	}

	mp.expirations, err = mp.meter.Int64Counter(
		"modelcache.expirations",
		metric.WithDescription("Number of expired entries"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return err
	}

	mp.promotions, err = mp.meter.Int64Counter(
		"modelcache.promotions",
		metric.WithDescription("Number of entries promoted between tiers"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return err
	}

	mp.demotions, err = mp.meter.Int64Counter(
		"modelcache.demotions",
		metric.WithDescription("Number of entries demoted between tiers"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return err
	}

	mp.replFailures, err = mp.meter.Int64Counter(
		"modelcache.replication.failures",
		metric.WithDescription("Number of failed replication writes"),
		metric.WithUnit("{write}"),
	)
	if err != nil {
		return err
	}

	mp.errors, err = mp.meter.Int64Counter(
		"modelcache.errors",
		metric.WithDescription("Number of errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	// Histograms
	mp.lookupDuration, err = mp.meter.Float64Histogram(
		"modelcache.lookup.duration",
		metric.WithDescription("Duration of cache lookups"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	mp.putDuration, err = mp.meter.Float64Histogram(
		"modelcache.put.duration",
		metric.WithDescription("Duration of cache writes"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	// Gauges (UpDownCounters)
	mp.occupancyBytes, err = mp.meter.Int64UpDownCounter(
		"modelcache.occupancy.bytes",
		metric.WithDescription("Bytes held in the fast tier"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	mp.occupancyEntries, err = mp.meter.Int64UpDownCounter(
		"modelcache.occupancy.entries",
		metric.WithDescription("Entries held in the fast tier"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Error returns any initialization error.
func (mp *MetricsProvider) Error() error {
	return mp.initErr
}

// RecordLookup records a cache lookup with its hit source.
func (mp *MetricsProvider) RecordLookup(ctx context.Context, modality cache.Modality, source string, hit bool, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("modality", string(modality)),
		attribute.Bool("hit", hit),
	}
	if hit {
		attrs = append(attrs, attribute.String("source", source))
		mp.hits.Add(ctx, 1, metric.WithAttributes(attrs...))
	} else {
		mp.misses.Add(ctx, 1, metric.WithAttributes(attrs...))
	}

	mp.lookupDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordPut records a cache write.
func (mp *MetricsProvider) RecordPut(ctx context.Context, modality cache.Modality, bytes int64, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("modality", string(modality)),
	}

	mp.puts.Add(ctx, 1, metric.WithAttributes(attrs...))
	mp.putDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordEviction records evicted entries.
func (mp *MetricsProvider) RecordEviction(ctx context.Context, tier cache.Tier, count int64) {
	attrs := []attribute.KeyValue{
		attribute.String("tier", string(tier)),
	}

	mp.evictions.Add(ctx, count, metric.WithAttributes(attrs...))
}

// RecordExpiration records expired entries.
func (mp *MetricsProvider) RecordExpiration(ctx context.Context, tier cache.Tier, count int64) {
	attrs := []attribute.KeyValue{
		attribute.String("tier", string(tier)),
	}

	mp.expirations.Add(ctx, count, metric.WithAttributes(attrs...))
}

// RecordPromotion records an entry promoted between tiers.
func (mp *MetricsProvider) RecordPromotion(ctx context.Context, from, to cache.Tier) {
	attrs := []attribute.KeyValue{
		attribute.String("tier.from", string(from)),
		attribute.String("tier.to", string(to)),
	}

	mp.promotions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDemotion records an entry demoted between tiers.
func (mp *MetricsProvider) RecordDemotion(ctx context.Context, from, to cache.Tier) {
	attrs := []attribute.KeyValue{
		attribute.String("tier.from", string(from)),
		attribute.String("tier.to", string(to)),
	}

	mp.demotions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordReplicationFailure records a failed replication write.
func (mp *MetricsProvider) RecordReplicationFailure(ctx context.Context, tier cache.Tier) {
	attrs := []attribute.KeyValue{
		attribute.String("tier", string(tier)),
	}

	mp.replFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordError records an error.
func (mp *MetricsProvider) RecordError(ctx context.Context, errorType string, details map[string]string) {
	attrs := []attribute.KeyValue{
		attribute.String("error.type", errorType),
	}
	for k, v := range details {
		attrs = append(attrs, attribute.String(k, v))
	}

	mp.errors.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordOccupancyDelta adjusts the fast tier occupancy gauges.
func (mp *MetricsProvider) RecordOccupancyDelta(ctx context.Context, bytes int64, entries int64) {
	mp.occupancyBytes.Add(ctx, bytes)
	mp.occupancyEntries.Add(ctx, entries)
}

// NoopMetricsProvider is a no-op metrics provider for testing or when metrics are disabled.
type NoopMetricsProvider struct{}

// RecordLookup is a no-op.
func (n *NoopMetricsProvider) RecordLookup(ctx context.Context, modality cache.Modality, source string, hit bool, duration time.Duration) {
}

// RecordPut is a no-op.
func (n *NoopMetricsProvider) RecordPut(ctx context.Context, modality cache.Modality, bytes int64, duration time.Duration) {
}

// RecordEviction is a no-op.
func (n *NoopMetricsProvider) RecordEviction(ctx context.Context, tier cache.Tier, count int64) {}

// RecordExpiration is a no-op.
func (n *NoopMetricsProvider) RecordExpiration(ctx context.Context, tier cache.Tier, count int64) {}

// RecordPromotion is a no-op.
func (n *NoopMetricsProvider) RecordPromotion(ctx context.Context, from, to cache.Tier) {}

// RecordDemotion is a no-op.
func (n *NoopMetricsProvider) RecordDemotion(ctx context.Context, from, to cache.Tier) {}

// RecordReplicationFailure is a no-op.
func (n *NoopMetricsProvider) RecordReplicationFailure(ctx context.Context, tier cache.Tier) {}

// RecordError is a no-op.
func (n *NoopMetricsProvider) RecordError(ctx context.Context, errorType string, details map[string]string) {
}

// RecordOccupancyDelta is a no-op.
func (n *NoopMetricsProvider) RecordOccupancyDelta(ctx context.Context, bytes int64, entries int64) {}

// Metrics defines the interface for metrics recording.
type Metrics interface {
	RecordLookup(ctx context.Context, modality cache.Modality, source string, hit bool, duration time.Duration)
	RecordPut(ctx context.Context, modality cache.Modality, bytes int64, duration time.Duration)
	RecordEviction(ctx context.Context, tier cache.Tier, count int64)
	RecordExpiration(ctx context.Context, tier cache.Tier, count int64)
	RecordPromotion(ctx context.Context, from, to cache.Tier)
	RecordDemotion(ctx context.Context, from, to cache.Tier)
	RecordReplicationFailure(ctx context.Context, tier cache.Tier)
	RecordError(ctx context.Context, errorType string, details map[string]string)
	RecordOccupancyDelta(ctx context.Context, bytes int64, entries int64)
}

// Ensure implementations satisfy the interface.
var (
	_ Metrics = (*MetricsProvider)(nil)
	_ Metrics = (*NoopMetricsProvider)(nil)
)
