package monitoring

import (
	"fmt"
	"strings"
)

// Histogram bucket boundaries in nanoseconds, log-scale. A sample lands
// in the first bucket whose upper bound exceeds it; the last bucket is
// unbounded.
var bucketBounds = [...]uint64{
	10,            // 0-10ns
	100,           // 10-100ns
	1_000,         // 100ns-1µs
	10_000,        // 1-10µs
	100_000,       // 10-100µs
	1_000_000,     // 100µs-1ms
}

var bucketLabels = [...]string{
	"0-10ns",
	"10-100ns",
	"100ns-1µs",
	"1-10µs",
	"10-100µs",
	"100µs-1ms",
	">1ms",
}

// NumBuckets is the fixed bucket count of Histogram.
const NumBuckets = len(bucketBounds) + 1

// Histogram is a fixed log-bucket latency histogram. Record is O(1)
// over a handful of compares; not safe for concurrent use.
type Histogram struct {
	counts [NumBuckets]uint64
	total  uint64
}

// Record adds one nanosecond sample.
func (h *Histogram) Record(ns uint64) {
	for i, bound := range bucketBounds {
		if ns < bound {
			h.counts[i]++
			h.total++
			return
		}
	}
	h.counts[NumBuckets-1]++
	h.total++
}

func (h *Histogram) Total() uint64 { return h.total }

// Bucket returns the count in bucket i.
func (h *Histogram) Bucket(i int) uint64 { return h.counts[i] }

// Render draws a text bar chart, one row per bucket, bars scaled to the
// largest bucket.
func (h *Histogram) Render() string {
	const barWidth = 50

	var max uint64
	for _, c := range h.counts {
		if c > max {
			max = c
		}
	}

	var b strings.Builder
	for i, c := range h.counts {
		bar := 0
		if max > 0 {
			bar = int(c * barWidth / max)
		}
		pct := 0.0
		if h.total > 0 {
			pct = 100.0 * float64(c) / float64(h.total)
		}
		fmt.Fprintf(&b, "  %-10s %10d (%5.1f%%) %s\n",
			bucketLabels[i], c, pct, strings.Repeat("#", bar))
	}
	return b.String()
}
