// Package monitoring records per-stage latency samples and throughput
// counters, computes percentiles off the hot path, renders a
// fixed-bucket log-scale histogram, and mirrors the counters onto
// Prometheus collectors for external scraping.
package monitoring

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/wojciech-wais/low-latency-trading-system/internal/container"
)

// DefaultSampleCapacity is the per-stage sample window. Older samples
// are overwritten once the window is full.
const DefaultSampleCapacity = 100_000

// LatencyTracker keeps a rolling window of nanosecond samples for one
// pipeline stage. RecordSample is O(1) and allocation-free; Stats sorts
// a copy and is meant to run off the hot path.
type LatencyTracker struct {
	name    string
	samples *container.Circular[uint64]
	count   uint64
}

// LatencyStats is a snapshot of a tracker's distribution.
type LatencyStats struct {
	Name    string
	Count   uint64
	Min     uint64
	Max     uint64
	Mean    float64
	P50     uint64
	P90     uint64
	P95     uint64
	P99     uint64
	P999    uint64
}

func NewLatencyTracker(name string, capacity int) *LatencyTracker {
	return &LatencyTracker{
		name:    name,
		samples: container.NewCircular[uint64](capacity),
	}
}

func (t *LatencyTracker) Name() string { return t.name }

// RecordSample adds one nanosecond measurement.
func (t *LatencyTracker) RecordSample(ns uint64) {
	t.samples.Push(ns)
	t.count++
}

func (t *LatencyTracker) Count() uint64 { return t.count }

// Stats sorts a copy of the retained window and derives percentiles.
func (t *LatencyTracker) Stats() LatencyStats {
	stats := LatencyStats{Name: t.name, Count: t.count}
	n := t.samples.Size()
	if n == 0 {
		return stats
	}

	sorted := t.samples.Snapshot()
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum uint64
	for _, v := range sorted {
		sum += v
	}
	stats.Min = sorted[0]
	stats.Max = sorted[n-1]
	stats.Mean = float64(sum) / float64(n)
	stats.P50 = percentile(sorted, 0.50)
	stats.P90 = percentile(sorted, 0.90)
	stats.P95 = percentile(sorted, 0.95)
	stats.P99 = percentile(sorted, 0.99)
	stats.P999 = percentile(sorted, 0.999)
	return stats
}

func percentile(sorted []uint64, p float64) uint64 {
	idx := int(p * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// WriteCSV dumps the retained sample window, one value per line, for
// offline analysis.
func (t *LatencyTracker) WriteCSV(path string) error {
	var b strings.Builder
	b.WriteString("latency_ns\n")
	for _, v := range t.samples.Snapshot() {
		fmt.Fprintf(&b, "%d\n", v)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("monitoring: write csv %s: %w", path, err)
	}
	return nil
}
