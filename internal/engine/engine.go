// Package engine wires the full pipeline together: feed → market-data
// dispatch → core loop (book, strategies, risk) → execution engine →
// report drain. It owns the three long-running loops and their
// cooperative shutdown.
package engine

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wojciech-wais/low-latency-trading-system/internal/affinity"
	"github.com/wojciech-wais/low-latency-trading-system/internal/config"
	"github.com/wojciech-wais/low-latency-trading-system/internal/execution"
	"github.com/wojciech-wais/low-latency-trading-system/internal/logging"
	"github.com/wojciech-wais/low-latency-trading-system/internal/marketdata"
	"github.com/wojciech-wais/low-latency-trading-system/internal/monitoring"
	"github.com/wojciech-wais/low-latency-trading-system/internal/orderbook"
	"github.com/wojciech-wais/low-latency-trading-system/internal/ring"
	"github.com/wojciech-wais/low-latency-trading-system/internal/risk"
	"github.com/wojciech-wais/low-latency-trading-system/internal/strategy"
	"github.com/wojciech-wais/low-latency-trading-system/internal/types"
)

// syntheticIDBase is the order-id range the core books use for their
// quote-mirroring bid/ask orders, far above any strategy-allocated id.
const syntheticIDBase types.OrderID = 1 << 62

// syncInterval is the cadence for the off-hot-path work the core loop
// performs: Prometheus sync, strategy timers, drawdown supervision.
const syncInterval = time.Second

// Simulator owns every component of one simulation run.
type Simulator struct {
	cfg config.SystemConfig

	mdRing     *ring.SPSC[types.MarketDataMessage]
	orderRing  *ring.SPSC[types.OrderRequest]
	reportRing *ring.SPSC[types.ExecutionReport]

	feed    *marketdata.FeedSimulator
	handler *marketdata.Handler

	books      []*orderbook.OrderBook
	strategies []strategy.Strategy
	riskMgr    *risk.Manager
	execEngine *execution.Engine
	metrics    *monitoring.Collector

	coreLog *logging.Logger
	feedLog *logging.Logger
	execLog *logging.Logger

	running  atomic.Bool
	wg       sync.WaitGroup
	started  time.Time
	elapsed  time.Duration
	lastSync time.Time

	lastMid [types.MaxInstruments]types.Price
}

// New constructs a fully wired Simulator from cfg. sink is the shared
// logging backend; each loop gets its own async Logger over it.
func New(cfg config.SystemConfig, sink logging.Sink) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulator{
		cfg:        cfg,
		mdRing:     ring.New[types.MarketDataMessage](cfg.MarketDataQueueSize),
		orderRing:  ring.New[types.OrderRequest](cfg.OrderQueueSize),
		reportRing: ring.New[types.ExecutionReport](cfg.ExecutionReportQueueSize),
		metrics:    monitoring.NewCollector(),
	}

	s.coreLog = logging.New(sink, 4096, cfg.EnableLogging)
	s.feedLog = logging.New(sink, 4096, cfg.EnableLogging)
	s.execLog = logging.New(sink, 4096, cfg.EnableLogging)

	s.feed = marketdata.NewFeedSimulator(42, types.ToDoublePrice(types.Price(cfg.InitialPrice)), cfg.Volatility)
	s.handler = marketdata.NewHandler(s.mdRing)

	s.books = make([]*orderbook.OrderBook, cfg.NumInstruments)
	for i := range s.books {
		s.books[i] = orderbook.New(types.InstrumentID(i))
	}

	s.riskMgr = risk.NewManager(risk.Limits{
		MaxPositionPerInstrument: cfg.Risk.MaxPositionPerInstrument,
		MaxTotalPosition:         cfg.Risk.MaxTotalPosition,
		MaxCapital:               cfg.Risk.MaxCapital,
		MaxOrderSize:             types.Quantity(cfg.Risk.MaxOrderSize),
		MaxOrdersPerSecond:       cfg.Risk.MaxOrdersPerSecond,
		MaxPriceDeviationPct:     cfg.Risk.MaxPriceDeviationPct,
		MaxDrawdownPct:           cfg.Risk.MaxDrawdownPct,
	})

	s.execEngine = execution.NewEngine(s.orderRing, s.reportRing)
	s.execEngine.SetRateLimit(cfg.Risk.MaxOrdersPerSecond)
	for _, ex := range cfg.ActiveExchanges() {
		s.execEngine.AddExchange(execution.Config{
			ID:              types.ExchangeID(ex.ID),
			Name:            ex.Name,
			LatencyNS:       ex.LatencyNS,
			FillProbability: ex.FillProbability,
			Enabled:         ex.Enabled,
		})
	}
	s.execEngine.SeedBooks(types.Price(cfg.InitialPrice), 10, 500)
	s.execEngine.SetLoopStartHook(func() {
		runtime.LockOSThread()
		if err := affinity.Pin(cfg.ExecutionCore); err != nil {
			s.execLog.Warn("core pinning failed", "loop", "execution", "err", err.Error())
		}
	})

	s.strategies = []strategy.Strategy{
		strategy.NewMarketMaker(0, cfg.MarketMakerSpreadBps, cfg.MaxInventory),
		strategy.NewMomentum(0, cfg.MomentumFastWindow, cfg.MomentumSlowWindow, cfg.BreakoutBps),
	}
	if cfg.NumInstruments >= 2 {
		s.strategies = append(s.strategies,
			strategy.NewPairsTrading(0, 1, cfg.PairsLookbackWindow, cfg.PairsEntryZ, cfg.PairsExitZ))
	}

	return s, nil
}

func (s *Simulator) Metrics() *monitoring.Collector { return s.metrics }
func (s *Simulator) RiskManager() *risk.Manager     { return s.riskMgr }
func (s *Simulator) Handler() *marketdata.Handler   { return s.handler }

// UseReplay switches the feed to CSV replay mode.
func (s *Simulator) UseReplay(path string) error {
	return s.feed.OpenReplay(path)
}

// Start launches the feed, core, and execution loops. Returns
// immediately; the run ends when Stop is called or the configured
// duration elapses in Run.
func (s *Simulator) Start() {
	if s.running.Swap(true) {
		return
	}
	s.started = time.Now()
	s.lastSync = s.started

	if s.cfg.MetricsAddr != "" {
		s.metrics.ServeMetrics(s.cfg.MetricsAddr, func(err error) {
			s.coreLog.Warn("metrics endpoint failed", "addr", s.cfg.MetricsAddr, "err", err.Error())
		})
	}

	s.coreLog.Info("simulator starting",
		"instruments", s.cfg.NumInstruments,
		"exchanges", s.cfg.NumExchanges,
		"strategies", len(s.strategies))

	s.execEngine.Start()

	s.wg.Add(2)
	go s.feedLoop()
	go s.coreLoop()
}

// Stop cooperatively shuts everything down: feed and core loops first,
// then the execution engine (which drains its input queue), then one
// final report drain so late fills still reach the ledger.
func (s *Simulator) Stop() {
	if !s.running.Swap(false) {
		return
	}
	s.wg.Wait()
	s.execEngine.Stop()
	// The execution loop's shutdown drain may have produced reports
	// after the core loop exited.
	time.Sleep(time.Millisecond)
	s.drainReports()
	s.elapsed = time.Since(s.started)

	s.coreLog.Info("simulator stopped",
		"quotes", s.metrics.QuotesIn(),
		"orders", s.metrics.OrdersEnqueued(),
		"fills", s.metrics.Fills())

	s.coreLog.Stop()
	s.feedLog.Stop()
	s.execLog.Stop()
}

// Run starts the simulator and blocks until duration elapses or stop is
// closed, then shuts down.
func (s *Simulator) Run(duration time.Duration, stop <-chan struct{}) {
	s.Start()
	select {
	case <-time.After(duration):
	case <-stop:
	}
	s.Stop()
}

// Summary renders the end-of-run report.
func (s *Simulator) Summary() string {
	pt := s.riskMgr.PositionTracker()
	return s.metrics.SummaryReport(s.elapsed,
		pt.RealizedPnL(), pt.TotalPnL(), pt.CapitalUsed(),
		s.riskMgr.KillSwitchActive())
}

// feedLoop generates frames at the configured rate and publishes the
// parsed quotes onto the market-data ring.
func (s *Simulator) feedLoop() {
	defer s.wg.Done()
	runtime.LockOSThread()
	if err := affinity.Pin(s.cfg.MarketDataCore); err != nil {
		s.feedLog.Warn("core pinning failed", "loop", "feed", "err", err.Error())
	}

	interval := time.Duration(0)
	if s.cfg.FeedRateMsgsPerSec > 0 {
		interval = time.Duration(float64(time.Second) / s.cfg.FeedRateMsgsPerSec)
	}
	start := time.Now()
	var emitted uint64

	for s.running.Load() {
		if interval > 0 {
			expected := uint64(time.Since(start) / interval)
			if emitted >= expected {
				continue
			}
		}
		frame, ok := s.feed.NextFrame()
		if !ok {
			s.feedLog.Info("replay exhausted", "frames", emitted)
			return
		}
		s.handler.HandleFrame(frame)
		emitted++
	}
}

// coreLoop is the hot path: drain execution reports, consume quotes,
// refresh the core books, run strategies, risk-check the intents, and
// enqueue approvals for execution.
func (s *Simulator) coreLoop() {
	defer s.wg.Done()
	runtime.LockOSThread()
	if err := affinity.Pin(s.cfg.StrategyCore); err != nil {
		s.coreLog.Warn("core pinning failed", "loop", "core", "err", err.Error())
	}

	for s.running.Load() {
		s.drainReports()

		msg, ok := s.mdRing.TryPop()
		if ok {
			s.processQuote(msg)
		}

		if now := time.Now(); now.Sub(s.lastSync) >= syncInterval {
			s.lastSync = now
			s.onSyncTick()
		}
	}

	// Best-effort drain of quotes still queued at shutdown.
	for {
		msg, ok := s.mdRing.TryPop()
		if !ok {
			break
		}
		s.processQuote(msg)
	}
	s.drainReports()
}

func (s *Simulator) processQuote(msg types.MarketDataMessage) {
	t0 := types.NowNS()
	s.metrics.IncQuotes()
	s.metrics.RecordLatency(monitoring.StageMarketData, uint64(t0-msg.Timestamp))

	if int(msg.Instrument) >= len(s.books) {
		return
	}

	// Execution-report frames carry a last trade, not a quote. They mark
	// the instrument and fan out to strategies without touching the book.
	if msg.MsgType == types.MDExecutionRpt {
		if msg.LastPrice > 0 {
			s.lastMid[msg.Instrument] = msg.LastPrice
			s.riskMgr.PositionTracker().UpdateMarkPrice(msg.Instrument, msg.LastPrice)
		}
		trade := types.Trade{
			Instrument: msg.Instrument,
			Price:      msg.LastPrice,
			Quantity:   msg.LastQuantity,
			Timestamp:  msg.Timestamp,
		}
		for _, st := range s.strategies {
			st.OnTrade(trade)
		}
		return
	}

	mid := (msg.BidPrice + msg.AskPrice) / 2
	s.lastMid[msg.Instrument] = mid
	s.riskMgr.PositionTracker().UpdateMarkPrice(msg.Instrument, mid)

	bookStart := types.NowNS()
	book := s.books[msg.Instrument]
	s.applyQuote(book, msg)
	s.metrics.RecordLatency(monitoring.StageOrderBook, uint64(types.NowNS()-bookStart))
	s.metrics.IncBookUpdates()

	stratStart := types.NowNS()
	for _, st := range s.strategies {
		st.OnMarketData(msg)
		st.OnOrderBookUpdate(msg.Instrument, book.BestBid(), book.BestAsk())
	}
	for _, st := range s.strategies {
		for _, req := range st.GenerateOrders() {
			s.submitOrder(req, msg.Timestamp)
		}
	}
	s.metrics.RecordLatency(monitoring.StageStrategy, uint64(types.NowNS()-stratStart))
}

// applyQuote mirrors the quote's top of book into the core book by
// cancel-and-replacing one synthetic resting order per side.
func (s *Simulator) applyQuote(book *orderbook.OrderBook, msg types.MarketDataMessage) {
	bidID := syntheticIDBase + types.OrderID(msg.Instrument)*2
	askID := bidID + 1

	book.CancelOrder(bidID)
	book.CancelOrder(askID)
	if msg.BidPrice > 0 && msg.BidQuantity > 0 {
		book.AddOrder(bidID, types.Buy, types.Limit, msg.BidPrice, msg.BidQuantity, msg.Timestamp)
	}
	if msg.AskPrice > 0 && msg.AskQuantity > 0 {
		book.AddOrder(askID, types.Sell, types.Limit, msg.AskPrice, msg.AskQuantity, msg.Timestamp)
	}
}

func (s *Simulator) submitOrder(req types.OrderRequest, quoteTS types.Timestamp) {
	riskStart := types.NowNS()
	result := s.riskMgr.CheckOrder(req, s.lastMid[req.Instrument])
	s.metrics.RecordLatency(monitoring.StageRiskCheck, uint64(types.NowNS()-riskStart))

	if result != risk.Approved {
		s.coreLog.Debug("order rejected by risk gate",
			"order", uint64(req.ID), "reason", result.String())
		return
	}
	if !s.orderRing.TryPush(req) {
		s.coreLog.Warn("order queue full", "order", uint64(req.ID))
		return
	}
	s.metrics.IncOrders()
	s.metrics.RecordTickToTrade(uint64(types.NowNS() - quoteTS))
}

func (s *Simulator) drainReports() {
	for {
		report, ok := s.reportRing.TryPop()
		if !ok {
			return
		}
		s.metrics.RecordLatency(monitoring.StageExecution, uint64(types.NowNS()-report.Timestamp))
		if report.FilledQuantity > 0 {
			s.metrics.IncFills()
			s.riskMgr.PositionTracker().OnFill(report.Instrument, report.Side, report.FilledQuantity, report.Price)
		}
		for _, st := range s.strategies {
			st.OnExecutionReport(report)
		}
	}
}

// onSyncTick does the once-per-second work: strategy timers, drawdown
// supervision, and the Prometheus mirror.
func (s *Simulator) onSyncTick() {
	now := types.NowNS()
	for _, st := range s.strategies {
		st.OnTimer(now)
	}
	wasArmed := s.riskMgr.KillSwitchActive()
	s.riskMgr.OnPnLUpdate(s.riskMgr.PositionTracker().TotalPnL())
	if !wasArmed && s.riskMgr.KillSwitchActive() {
		s.coreLog.Error("kill switch armed on drawdown breach",
			"total_pnl", s.riskMgr.PositionTracker().TotalPnL())
	}
	s.metrics.Sync()
}
