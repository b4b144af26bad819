package s3vkit

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordProvision is called after each bucket or index reconciliation.
	RecordProvision(kind string, outcome Outcome, duration time.Duration, err error)

	// RecordPut is called after each batch insert with the number of records
	// submitted.
	RecordPut(count int, duration time.Duration, err error)

	// RecordQuery is called after each query with the requested k and the
	// number of matches kept after client-side filtering.
	RecordQuery(k, kept int, duration time.Duration, err error)

	// RecordDelete is called after each delete with the number of keys.
	RecordDelete(count int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordProvision(string, Outcome, time.Duration, error) {}
func (NoopMetricsCollector) RecordPut(int, time.Duration, error)                   {}
func (NoopMetricsCollector) RecordQuery(int, int, time.Duration, error)            {}
func (NoopMetricsCollector) RecordDelete(int, time.Duration, error)                {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	ProvisionCount   atomic.Int64
	ProvisionCreated atomic.Int64
	ProvisionErrors  atomic.Int64
	PutCount         atomic.Int64
	PutRecords       atomic.Int64
	PutErrors        atomic.Int64
	QueryCount       atomic.Int64
	QueryMatches     atomic.Int64
	QueryErrors      atomic.Int64
	QueryTotalNanos  atomic.Int64
	DeleteCount      atomic.Int64
	DeleteKeys       atomic.Int64
	DeleteErrors     atomic.Int64
}

// RecordProvision implements MetricsCollector.
func (b *BasicMetricsCollector) RecordProvision(_ string, outcome Outcome, _ time.Duration, err error) {
	b.ProvisionCount.Add(1)
	if err != nil {
		b.ProvisionErrors.Add(1)
		return
	}
	if outcome == Created {
		b.ProvisionCreated.Add(1)
	}
}

// RecordPut implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPut(count int, _ time.Duration, err error) {
	b.PutCount.Add(1)
	if err != nil {
		b.PutErrors.Add(1)
		return
	}
	b.PutRecords.Add(int64(count))
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(_ int, kept int, duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
		return
	}
	b.QueryMatches.Add(int64(kept))
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(count int, _ time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
		return
	}
	b.DeleteKeys.Add(int64(count))
}

// MetricsStats is a point-in-time snapshot of BasicMetricsCollector.
type MetricsStats struct {
	ProvisionCount   int64
	ProvisionCreated int64
	ProvisionErrors  int64
	PutCount         int64
	PutRecords       int64
	PutErrors        int64
	QueryCount       int64
	QueryMatches     int64
	QueryErrors      int64
	AvgQueryLatency  time.Duration
	DeleteCount      int64
	DeleteKeys       int64
	DeleteErrors     int64
}

// GetStats returns a snapshot of the collected counters.
func (b *BasicMetricsCollector) GetStats() MetricsStats {
	s := MetricsStats{
		ProvisionCount:   b.ProvisionCount.Load(),
		ProvisionCreated: b.ProvisionCreated.Load(),
		ProvisionErrors:  b.ProvisionErrors.Load(),
		PutCount:         b.PutCount.Load(),
		PutRecords:       b.PutRecords.Load(),
		PutErrors:        b.PutErrors.Load(),
		QueryCount:       b.QueryCount.Load(),
		QueryMatches:     b.QueryMatches.Load(),
		QueryErrors:      b.QueryErrors.Load(),
		DeleteCount:      b.DeleteCount.Load(),
		DeleteKeys:       b.DeleteKeys.Load(),
		DeleteErrors:     b.DeleteErrors.Load(),
	}
	if s.QueryCount > 0 {
		s.AvgQueryLatency = time.Duration(b.QueryTotalNanos.Load() / s.QueryCount)
	}
	return s
}
