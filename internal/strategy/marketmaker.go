package strategy

import (
	"math"

	"github.com/wojciech-wais/low-latency-trading-system/internal/container"
	"github.com/wojciech-wais/low-latency-trading-system/internal/types"
)

// MaxOrdersPerTick bounds the per-strategy order buffer GenerateOrders
// returns a view over.
const MaxOrdersPerTick = 8

// returnWindow is the number of recent mid-price returns the market
// maker keeps to estimate realized volatility for spread scaling.
const returnWindow = 50

// MarketMaker quotes symmetrically around the observed mid price,
// skewing its quotes against existing inventory and widening its spread
// as realized volatility rises.
type MarketMaker struct {
	instrument    types.InstrumentID
	baseSpreadBps float64
	maxInventory  int64

	inventory int64
	lastMid   types.Price
	haveMid   bool
	returns   *container.Circular[float64]

	buf    [MaxOrdersPerTick]types.OrderRequest
	bufLen int
}

func NewMarketMaker(instrument types.InstrumentID, baseSpreadBps float64, maxInventory int64) *MarketMaker {
	return &MarketMaker{
		instrument:    instrument,
		baseSpreadBps: baseSpreadBps,
		maxInventory:  maxInventory,
		returns:       container.NewCircular[float64](returnWindow),
	}
}

func (m *MarketMaker) Name() string { return "market-maker" }

func (m *MarketMaker) OnMarketData(msg types.MarketDataMessage) {
	if msg.Instrument != m.instrument || msg.BidPrice <= 0 || msg.AskPrice <= 0 {
		return
	}
	mid := (msg.BidPrice + msg.AskPrice) / 2
	if m.haveMid && m.lastMid > 0 {
		ret := (float64(mid) - float64(m.lastMid)) / float64(m.lastMid)
		m.returns.Push(ret)
	}
	m.lastMid = mid
	m.haveMid = true
}

func (m *MarketMaker) OnOrderBookUpdate(instrument types.InstrumentID, bestBid, bestAsk types.Price) {
	if instrument != m.instrument || bestBid <= 0 || bestAsk <= 0 {
		return
	}
	mid := (bestBid + bestAsk) / 2
	m.lastMid = mid
	m.haveMid = true
}

func (m *MarketMaker) OnTrade(trade types.Trade) {}

func (m *MarketMaker) OnExecutionReport(report types.ExecutionReport) {
	if report.Instrument != m.instrument || report.FilledQuantity == 0 {
		return
	}
	if report.Side == types.Buy {
		m.inventory += int64(report.FilledQuantity)
	} else {
		m.inventory -= int64(report.FilledQuantity)
	}
}

func (m *MarketMaker) OnTimer(now types.Timestamp) {}

// volatility returns the standard deviation of recent mid-price returns.
func (m *MarketMaker) volatility() float64 {
	n := m.returns.Size()
	if n < 2 {
		return 0
	}
	samples := m.returns.Snapshot()
	var mean float64
	for _, r := range samples {
		mean += r
	}
	mean /= float64(n)

	var variance float64
	for _, r := range samples {
		d := r - mean
		variance += d * d
	}
	variance /= float64(n - 1)
	return math.Sqrt(variance)
}

// GenerateOrders emits a symmetric bid/ask pair around the last known
// mid price, widened by realized volatility and skewed away from the
// direction that would grow inventory past its limit.
func (m *MarketMaker) GenerateOrders() []types.OrderRequest {
	m.bufLen = 0
	if !m.haveMid || m.lastMid <= 0 {
		return m.buf[:0]
	}

	vol := m.volatility()
	spreadBps := m.baseSpreadBps * (1.0 + vol*100.0)
	halfSpread := types.Price(float64(m.lastMid) * spreadBps / 10000.0 / 2.0)
	if halfSpread < 1 {
		halfSpread = 1
	}

	skew := types.Price(0)
	if m.maxInventory > 0 {
		ratio := float64(m.inventory) / float64(m.maxInventory)
		skew = types.Price(ratio * float64(halfSpread))
	}

	bidPrice := m.lastMid - halfSpread - skew
	askPrice := m.lastMid + halfSpread - skew
	qty := types.Quantity(100)

	if m.inventory < m.maxInventory {
		m.emit(types.Buy, types.Limit, bidPrice, qty)
	}
	if m.inventory > -m.maxInventory {
		m.emit(types.Sell, types.Limit, askPrice, qty)
	}
	return m.buf[:m.bufLen]
}

func (m *MarketMaker) emit(side types.Side, otype types.OrderType, price types.Price, qty types.Quantity) {
	if m.bufLen >= MaxOrdersPerTick {
		return
	}
	m.buf[m.bufLen] = types.OrderRequest{
		ID:         allocOrderID(),
		Instrument: m.instrument,
		Side:       side,
		Type:       otype,
		Price:      price,
		Quantity:   qty,
		Timestamp:  types.NowNS(),
	}
	m.bufLen++
}
