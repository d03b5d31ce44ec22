package monitoring

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLatencyTrackerPercentiles(t *testing.T) {
	tr := NewLatencyTracker("test", 1000)
	for i := uint64(1); i <= 100; i++ {
		tr.RecordSample(i * 10)
	}

	s := tr.Stats()
	require.Equal(t, uint64(100), s.Count)
	require.Equal(t, uint64(10), s.Min)
	require.Equal(t, uint64(1000), s.Max)
	require.InDelta(t, 505.0, s.Mean, 0.001)
	require.Equal(t, uint64(510), s.P50)
	require.Equal(t, uint64(1000), s.P999)
}

func TestLatencyTrackerOverwritesOldest(t *testing.T) {
	tr := NewLatencyTracker("test", 4)
	for i := uint64(1); i <= 10; i++ {
		tr.RecordSample(i)
	}
	s := tr.Stats()
	// Only the last four samples are retained.
	require.Equal(t, uint64(7), s.Min)
	require.Equal(t, uint64(10), s.Max)
	require.Equal(t, uint64(10), s.Count)
}

func TestEmptyTrackerStats(t *testing.T) {
	tr := NewLatencyTracker("idle", 16)
	s := tr.Stats()
	require.Zero(t, s.Count)
	require.Zero(t, s.Max)
}

func TestHistogramBucketing(t *testing.T) {
	var h Histogram
	h.Record(5)           // 0-10ns
	h.Record(50)          // 10-100ns
	h.Record(500)         // 100ns-1µs
	h.Record(5_000)       // 1-10µs
	h.Record(50_000)      // 10-100µs
	h.Record(500_000)     // 100µs-1ms
	h.Record(5_000_000)   // >1ms

	require.Equal(t, uint64(7), h.Total())
	for i := 0; i < NumBuckets; i++ {
		require.Equal(t, uint64(1), h.Bucket(i), "bucket %d", i)
	}
}

func TestHistogramBoundaries(t *testing.T) {
	var h Histogram
	h.Record(10) // exactly 10ns goes to the second bucket
	require.Equal(t, uint64(0), h.Bucket(0))
	require.Equal(t, uint64(1), h.Bucket(1))
}

func TestHistogramRender(t *testing.T) {
	var h Histogram
	for i := 0; i < 100; i++ {
		h.Record(500)
	}
	out := h.Render()
	require.Contains(t, out, "100ns-1µs")
	require.Contains(t, out, "#")
}

func TestCollectorCountersAndSummary(t *testing.T) {
	c := NewCollector()
	for i := 0; i < 10; i++ {
		c.IncQuotes()
	}
	c.IncOrders()
	c.IncFills()
	c.RecordLatency(StageRiskCheck, 80)
	c.RecordTickToTrade(2_500)
	c.Sync()

	report := c.SummaryReport(time.Second, 30.0, 29.999999999, 150000.0, true)
	require.Contains(t, report, "Quotes in:       10")
	require.Contains(t, report, "risk_check")
	require.Contains(t, report, "$30.00")
	require.Contains(t, report, "$150000.00")
	require.Contains(t, report, "KILL SWITCH")
}

func TestWriteCSV(t *testing.T) {
	tr := NewLatencyTracker("csv", 16)
	tr.RecordSample(123)
	tr.RecordSample(456)

	path := filepath.Join(t.TempDir(), "latency.csv")
	require.NoError(t, tr.WriteCSV(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Equal(t, []string{"latency_ns", "123", "456"}, lines)
}
