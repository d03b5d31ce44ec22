package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wojciech-wais/low-latency-trading-system/internal/config"
	"github.com/wojciech-wais/low-latency-trading-system/internal/types"
)

type nullSink struct{}

func (nullSink) Debug(msg string, ctx ...interface{}) {}
func (nullSink) Info(msg string, ctx ...interface{})  {}
func (nullSink) Warn(msg string, ctx ...interface{})  {}
func (nullSink) Error(msg string, ctx ...interface{}) {}

func testConfig() config.SystemConfig {
	cfg := config.Default()
	cfg.MarketDataQueueSize = 1024
	cfg.OrderQueueSize = 1024
	cfg.ExecutionReportQueueSize = 1024
	cfg.FeedRateMsgsPerSec = 100_000
	cfg.EnableLogging = false
	return cfg
}

func quote(instrument types.InstrumentID, bid, ask types.Price) types.MarketDataMessage {
	return types.MarketDataMessage{
		Instrument:  instrument,
		BidPrice:    bid,
		AskPrice:    ask,
		BidQuantity: 500,
		AskQuantity: 500,
		Timestamp:   types.NowNS(),
		MsgType:     types.MDSnapshot,
	}
}

func TestProcessQuoteUpdatesBookAndMarkPrice(t *testing.T) {
	s, err := New(testConfig(), nullSink{})
	require.NoError(t, err)

	s.processQuote(quote(0, 14995, 15005))

	require.Equal(t, types.Price(14995), s.books[0].BestBid())
	require.Equal(t, types.Price(15005), s.books[0].BestAsk())
	require.Equal(t, uint64(1), s.metrics.QuotesIn())
	require.Equal(t, uint64(1), s.metrics.BookUpdates())
	require.Equal(t, types.Price(15000), s.lastMid[0])
}

func TestApplyQuoteReplacesSyntheticOrders(t *testing.T) {
	s, err := New(testConfig(), nullSink{})
	require.NoError(t, err)

	s.processQuote(quote(0, 14990, 15010))
	s.processQuote(quote(0, 14980, 15020))

	// The old synthetic orders must be gone, not layered underneath.
	bids, asks := s.books[0].GetDepth(8)
	require.Len(t, bids, 1)
	require.Len(t, asks, 1)
	require.Equal(t, types.Price(14980), bids[0].Price)
	require.Equal(t, types.Price(15020), asks[0].Price)
}

func TestProcessLastTradeMarksWithoutBookUpdate(t *testing.T) {
	s, err := New(testConfig(), nullSink{})
	require.NoError(t, err)

	s.processQuote(types.MarketDataMessage{
		Instrument:   0,
		LastPrice:    15100,
		LastQuantity: 50,
		Timestamp:    types.NowNS(),
		MsgType:      types.MDExecutionRpt,
	})

	require.Equal(t, types.Price(15100), s.lastMid[0])
	require.Zero(t, s.metrics.BookUpdates())
	require.Equal(t, types.Price(0), s.books[0].BestBid())
}

func TestQuotesDriveOrderFlow(t *testing.T) {
	s, err := New(testConfig(), nullSink{})
	require.NoError(t, err)

	// Warm the strategies with enough quotes that the market maker has
	// a mid price to quote around.
	for i := 0; i < 20; i++ {
		s.processQuote(quote(0, 14995, 15005))
	}
	require.Positive(t, s.orderRing.Size())
	require.Positive(t, s.metrics.OrdersEnqueued())
}

func TestSubmitOrderRejectedByRiskGateIsNotEnqueued(t *testing.T) {
	s, err := New(testConfig(), nullSink{})
	require.NoError(t, err)
	s.lastMid[0] = 15000

	s.submitOrder(types.OrderRequest{
		ID: 1, Instrument: 0, Side: types.Buy, Type: types.Limit,
		Price: 15000, Quantity: 100_000, // over MaxOrderSize
	}, types.NowNS())

	require.Zero(t, s.orderRing.Size())
	require.Zero(t, s.metrics.OrdersEnqueued())
	require.Equal(t, uint64(1), s.riskMgr.ChecksRejected())
}

func TestDrainReportsUpdatesLedgerAndStrategies(t *testing.T) {
	s, err := New(testConfig(), nullSink{})
	require.NoError(t, err)

	s.reportRing.TryPush(types.ExecutionReport{
		OrderID: 7, Instrument: 0, Side: types.Buy,
		Status: types.Filled, Price: 15000,
		Quantity: 100, FilledQuantity: 100, LeavesQuantity: 0,
		Timestamp: types.NowNS(),
	})
	s.drainReports()

	require.Equal(t, uint64(1), s.metrics.Fills())
	require.Equal(t, int64(100), s.riskMgr.PositionTracker().Position(0))
}

func TestEndToEndBoundedRun(t *testing.T) {
	cfg := testConfig()
	cfg.SimulationDurationMs = 200
	s, err := New(cfg, nullSink{})
	require.NoError(t, err)

	s.Run(time.Duration(cfg.SimulationDurationMs)*time.Millisecond, nil)

	require.Positive(t, s.metrics.QuotesIn())
	require.Positive(t, s.metrics.BookUpdates())
	summary := s.Summary()
	require.Contains(t, summary, "Quotes in:")
	require.Contains(t, summary, "Tick-to-trade")
}

func TestStopIsIdempotent(t *testing.T) {
	s, err := New(testConfig(), nullSink{})
	require.NoError(t, err)
	s.Start()
	time.Sleep(10 * time.Millisecond)
	s.Stop()
	s.Stop()
}
