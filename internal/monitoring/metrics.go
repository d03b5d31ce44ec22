package monitoring

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Stage identifies one measured segment of the pipeline.
type Stage int

const (
	StageMarketData Stage = iota
	StageOrderBook
	StageStrategy
	StageRiskCheck
	StageExecution
	numStages
)

var stageNames = [numStages]string{
	"market_data",
	"order_book",
	"strategy",
	"risk_check",
	"execution",
}

// Collector aggregates per-stage latency trackers, the tick-to-trade
// histogram, and throughput counters. Hot-path recording methods touch
// only fixed arrays; the Prometheus mirror is refreshed periodically by
// Sync, off the hot path.
type Collector struct {
	stages      [numStages]*LatencyTracker
	tickToTrade Histogram

	quotesIn       uint64
	bookUpdates    uint64
	ordersEnqueued uint64
	fills          uint64

	registry    *prometheus.Registry
	promQuotes  prometheus.Counter
	promUpdates prometheus.Counter
	promOrders  prometheus.Counter
	promFills   prometheus.Counter
	promLatency *prometheus.GaugeVec

	lastQuotes uint64
	lastOrders uint64
	lastFills  uint64
	lastBook   uint64
}

// NewCollector constructs a Collector with DefaultSampleCapacity per
// stage and a dedicated Prometheus registry.
func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}
	for i := range c.stages {
		c.stages[i] = NewLatencyTracker(stageNames[i], DefaultSampleCapacity)
	}

	c.promQuotes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tradesim",
		Name:      "quotes_received_total",
		Help:      "Market-data quotes consumed by the core loop",
	})
	c.promUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tradesim",
		Name:      "book_updates_total",
		Help:      "Order book updates applied",
	})
	c.promOrders = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tradesim",
		Name:      "orders_enqueued_total",
		Help:      "Risk-approved orders enqueued for execution",
	})
	c.promFills = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tradesim",
		Name:      "fills_total",
		Help:      "Execution reports carrying a fill",
	})
	c.promLatency = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tradesim",
		Name:      "stage_latency_nanoseconds",
		Help:      "Per-stage latency percentiles over the sample window",
	}, []string{"stage", "quantile"})

	c.registry.MustRegister(c.promQuotes, c.promUpdates, c.promOrders, c.promFills, c.promLatency)
	return c
}

func (c *Collector) RecordLatency(stage Stage, ns uint64) {
	c.stages[stage].RecordSample(ns)
}

// RecordTickToTrade feeds the end-to-end histogram: market-data receipt
// to order enqueue.
func (c *Collector) RecordTickToTrade(ns uint64) {
	c.tickToTrade.Record(ns)
}

func (c *Collector) IncQuotes()       { c.quotesIn++ }
func (c *Collector) IncBookUpdates()  { c.bookUpdates++ }
func (c *Collector) IncOrders()       { c.ordersEnqueued++ }
func (c *Collector) IncFills()        { c.fills++ }

func (c *Collector) QuotesIn() uint64       { return c.quotesIn }
func (c *Collector) BookUpdates() uint64    { return c.bookUpdates }
func (c *Collector) OrdersEnqueued() uint64 { return c.ordersEnqueued }
func (c *Collector) Fills() uint64          { return c.fills }

func (c *Collector) StageTracker(stage Stage) *LatencyTracker { return c.stages[stage] }
func (c *Collector) TickToTrade() *Histogram                  { return &c.tickToTrade }

// Sync pushes the counter deltas and current percentiles onto the
// Prometheus collectors. The simulator calls it from the core loop's
// once-per-second sync tick, not per quote.
func (c *Collector) Sync() {
	c.promQuotes.Add(float64(c.quotesIn - c.lastQuotes))
	c.promUpdates.Add(float64(c.bookUpdates - c.lastBook))
	c.promOrders.Add(float64(c.ordersEnqueued - c.lastOrders))
	c.promFills.Add(float64(c.fills - c.lastFills))
	c.lastQuotes = c.quotesIn
	c.lastBook = c.bookUpdates
	c.lastOrders = c.ordersEnqueued
	c.lastFills = c.fills

	for _, tr := range c.stages {
		s := tr.Stats()
		if s.Count == 0 {
			continue
		}
		c.promLatency.WithLabelValues(s.Name, "0.5").Set(float64(s.P50))
		c.promLatency.WithLabelValues(s.Name, "0.99").Set(float64(s.P99))
		c.promLatency.WithLabelValues(s.Name, "0.999").Set(float64(s.P999))
	}
}

// ServeMetrics exposes the registry at /metrics on addr. Bind failures
// are reported through errFn and are non-fatal.
func (c *Collector) ServeMetrics(addr string, errFn func(error)) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && errFn != nil {
			errFn(err)
		}
	}()
}

// SummaryReport renders the end-of-run text report: throughput,
// per-stage latency, the tick-to-trade histogram, and P&L figures.
// Monetary values are formatted through decimal so the report never
// shows float artifacts like 969.9999999999999.
func (c *Collector) SummaryReport(elapsed time.Duration, realizedPnL, totalPnL, capitalUsed float64, killSwitchFired bool) string {
	var b strings.Builder

	secs := elapsed.Seconds()
	if secs <= 0 {
		secs = 1
	}

	b.WriteString("=== Run Summary ===\n")
	fmt.Fprintf(&b, "Duration:        %v\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(&b, "Quotes in:       %d (%.0f/s)\n", c.quotesIn, float64(c.quotesIn)/secs)
	fmt.Fprintf(&b, "Book updates:    %d\n", c.bookUpdates)
	fmt.Fprintf(&b, "Orders enqueued: %d (%.0f/s)\n", c.ordersEnqueued, float64(c.ordersEnqueued)/secs)
	fmt.Fprintf(&b, "Fills:           %d\n", c.fills)

	b.WriteString("\n--- Stage latency (ns) ---\n")
	for _, tr := range c.stages {
		s := tr.Stats()
		if s.Count == 0 {
			continue
		}
		fmt.Fprintf(&b, "%-12s n=%-10d min=%-8d p50=%-8d p99=%-8d p99.9=%-8d max=%d\n",
			s.Name, s.Count, s.Min, s.P50, s.P99, s.P999, s.Max)
	}

	b.WriteString("\n--- Tick-to-trade ---\n")
	b.WriteString(c.tickToTrade.Render())

	b.WriteString("\n--- P&L ---\n")
	fmt.Fprintf(&b, "Realized P&L: %s\n", money(realizedPnL))
	fmt.Fprintf(&b, "Total P&L:    %s\n", money(totalPnL))
	fmt.Fprintf(&b, "Capital used: %s\n", money(capitalUsed))
	if killSwitchFired {
		b.WriteString("\n*** KILL SWITCH TRIGGERED DURING RUN ***\n")
	}
	return b.String()
}

func money(v float64) string {
	return "$" + decimal.NewFromFloat(v).Round(2).StringFixed(2)
}
