package execution

import (
	"sync/atomic"

	"github.com/wojciech-wais/low-latency-trading-system/internal/ring"
	"github.com/wojciech-wais/low-latency-trading-system/internal/types"
)

// QueueCapacity is a ring capacity for the engine's input/output SPSC
// rings. The engine does not build its rings: NewEngine takes them
// ready-made and does not read this constant.
const QueueCapacity = 65536

const oneSecondNS = 1_000_000_000

// Engine consumes OrderRequests from an input ring, routes each to a
// venue, and produces ExecutionReports on an output ring. It carries
// its own rate limiter, distinct from the pre-trade risk gate's.
type Engine struct {
	input  *ring.SPSC[types.OrderRequest]
	output *ring.SPSC[types.ExecutionReport]
	router *Router

	running atomic.Bool

	// loopStart, when set, runs at the top of the run-loop goroutine,
	// before the first pop. Used to lock and pin the loop's OS thread.
	loopStart func()

	maxOrdersPerSec uint32
	ordersProcessed uint64
	ordersThrottled uint64

	rateWindowStart types.Timestamp
	ordersInWindow  uint32
}

// NewEngine constructs an Engine over the given input/output rings.
func NewEngine(input *ring.SPSC[types.OrderRequest], output *ring.SPSC[types.ExecutionReport]) *Engine {
	return &Engine{
		input:           input,
		output:          output,
		router:          NewRouter(),
		maxOrdersPerSec: 10000,
	}
}

func (e *Engine) AddExchange(config Config) {
	e.router.AddExchange(NewExchange(config))
}

func (e *Engine) SetRateLimit(maxOrdersPerSec uint32) { e.maxOrdersPerSec = maxOrdersPerSec }
func (e *Engine) SetLoopStartHook(fn func())          { e.loopStart = fn }
func (e *Engine) SetRoutingStrategy(s RoutingStrategy) { e.router.SetRoutingStrategy(s) }
func (e *Engine) Running() bool                        { return e.running.Load() }
func (e *Engine) OrdersProcessed() uint64              { return e.ordersProcessed }
func (e *Engine) OrdersThrottled() uint64              { return e.ordersThrottled }

// ProcessOrder runs a single order through the rate limiter and router,
// synchronously. Used directly by tests and by the Run loop.
func (e *Engine) ProcessOrder(request types.OrderRequest) types.ExecutionReport {
	if !e.checkRateLimit() {
		e.ordersThrottled++
		return types.ExecutionReport{
			OrderID:    request.ID,
			Instrument: request.Instrument,
			Side:       request.Side,
			Status:     types.Rejected,
			Timestamp:  types.NowNS(),
		}
	}
	e.ordersProcessed++
	return e.router.RouteOrder(request)
}

func (e *Engine) checkRateLimit() bool {
	now := types.NowNS()
	if uint64(now)-uint64(e.rateWindowStart) >= oneSecondNS {
		e.rateWindowStart = now
		e.ordersInWindow = 0
	}
	if e.ordersInWindow >= e.maxOrdersPerSec {
		return false
	}
	e.ordersInWindow++
	return true
}

// SeedBooks seeds every venue's internal book for more realistic fills.
func (e *Engine) SeedBooks(midPrice types.Price, levels int, qtyPerLevel types.Quantity) {
	for _, ex := range e.router.exchanges {
		ex.SeedBook(midPrice, levels, qtyPerLevel)
	}
}

// Start launches the engine's run loop in a new goroutine. Shutdown is
// cooperative via the running flag, not context cancellation.
func (e *Engine) Start() {
	if e.running.Swap(true) {
		return
	}
	go e.runLoop()
}

func (e *Engine) Stop() {
	e.running.Store(false)
}

func (e *Engine) runLoop() {
	if e.loopStart != nil {
		e.loopStart()
	}
	for e.running.Load() {
		if request, ok := e.input.TryPop(); ok {
			report := e.ProcessOrder(request)
			e.output.TryPush(report)
		}
	}
	// Drain requests still queued at shutdown so no approved order is
	// silently lost.
	for {
		request, ok := e.input.TryPop()
		if !ok {
			break
		}
		report := e.ProcessOrder(request)
		e.output.TryPush(report)
	}
}
