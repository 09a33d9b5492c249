//
// # Licensing
//
// This file is part of the GAuth project and is licensed under the Apache License 2.0.
// It incorporates code and concepts from:
//   - OAuth 2.0 and OpenID Connect (Apache 2.0 License)
//   - Model Context Protocol (MIT License)
// See the LICENSE file in the project root for details.

// Package tokenmetrics exposes Prometheus counters and histograms for
// the token service's operations and its column store round trips.
// Like pkg/tokenaudit, this is a pure side-channel: recording a metric
// never fails the operation it describes.
package tokenmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records token-service metrics. The zero value is not
// usable; build one with New.
type Collector struct {
	operations   *prometheus.CounterVec
	storeLatency *prometheus.HistogramVec
}

// New creates the metric vectors. Call Register to attach them to a
// prometheus.Registerer; tests typically use a throwaway registry
// instead of the global default.
func New() *Collector {
	return &Collector{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokensvc_token_operations_total",
				Help: "Total number of issue/validate/refresh calls by category and result.",
			},
			[]string{"operation", "category", "result"},
		),
		storeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tokensvc_store_roundtrip_seconds",
				Help:    "Column store round-trip duration in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms to ~0.2s
			},
			[]string{"method"},
		),
	}
}

// Register attaches the collector's vectors to reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	if err := reg.Register(c.operations); err != nil {
		return err
	}
	return reg.Register(c.storeLatency)
}

// RecordOperation increments the operation counter.
func (c *Collector) RecordOperation(operation, category, result string) {
	c.operations.WithLabelValues(operation, category, result).Inc()
}

// ObserveStoreRoundTrip records how long a columnstore call took.
func (c *Collector) ObserveStoreRoundTrip(method string, d time.Duration) {
	c.storeLatency.WithLabelValues(method).Observe(d.Seconds())
}

// Timer measures a store round trip and records it on Stop.
type Timer struct {
	start     time.Time
	method    string
	collector *Collector
}

// NewTimer starts timing a columnstore call.
func (c *Collector) NewTimer(method string) *Timer {
	return &Timer{start: time.Now(), method: method, collector: c}
}

// Stop records the elapsed duration against the originating method.
func (t *Timer) Stop() {
	t.collector.ObserveStoreRoundTrip(t.method, time.Since(t.start))
}
