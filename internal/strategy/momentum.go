package strategy

import "github.com/wojciech-wais/low-latency-trading-system/internal/types"

// Momentum follows breakouts in the fast/slow EMA crossover, buying
// when the fast EMA breaks above the slow EMA by more than
// breakoutBps and selling on the symmetric downside breakout.
type Momentum struct {
	instrument  types.InstrumentID
	fastAlpha   float64
	slowAlpha   float64
	breakoutBps float64

	fastEMA, slowEMA float64
	haveEMA          bool
	position         int64

	buf    [MaxOrdersPerTick]types.OrderRequest
	bufLen int
}

// NewMomentum constructs a Momentum strategy. fastWindow and slowWindow
// are simple-moving-average-equivalent window lengths converted to EMA
// smoothing factors (alpha = 2/(window+1)).
func NewMomentum(instrument types.InstrumentID, fastWindow, slowWindow int, breakoutBps float64) *Momentum {
	return &Momentum{
		instrument:  instrument,
		fastAlpha:   2.0 / (float64(fastWindow) + 1.0),
		slowAlpha:   2.0 / (float64(slowWindow) + 1.0),
		breakoutBps: breakoutBps,
	}
}

func (m *Momentum) Name() string { return "momentum" }

func (m *Momentum) OnMarketData(msg types.MarketDataMessage) {
	if msg.Instrument != m.instrument || msg.BidPrice <= 0 || msg.AskPrice <= 0 {
		return
	}
	mid := float64((msg.BidPrice + msg.AskPrice) / 2)
	if !m.haveEMA {
		m.fastEMA, m.slowEMA, m.haveEMA = mid, mid, true
		return
	}
	m.fastEMA = m.fastAlpha*mid + (1-m.fastAlpha)*m.fastEMA
	m.slowEMA = m.slowAlpha*mid + (1-m.slowAlpha)*m.slowEMA
}

func (m *Momentum) OnOrderBookUpdate(instrument types.InstrumentID, bestBid, bestAsk types.Price) {}
func (m *Momentum) OnTrade(trade types.Trade)                                                     {}

func (m *Momentum) OnExecutionReport(report types.ExecutionReport) {
	if report.Instrument != m.instrument || report.FilledQuantity == 0 {
		return
	}
	if report.Side == types.Buy {
		m.position += int64(report.FilledQuantity)
	} else {
		m.position -= int64(report.FilledQuantity)
	}
}

func (m *Momentum) OnTimer(now types.Timestamp) {}

// GenerateOrders emits a buy when the fast EMA breaks breakoutBps above
// the slow EMA and no long position is already held, and the symmetric
// sell on a downside breakout.
func (m *Momentum) GenerateOrders() []types.OrderRequest {
	m.bufLen = 0
	if !m.haveEMA || m.slowEMA == 0 {
		return m.buf[:0]
	}

	deviationBps := (m.fastEMA - m.slowEMA) / m.slowEMA * 10000.0
	qty := types.Quantity(100)

	if deviationBps >= m.breakoutBps && m.position <= 0 {
		m.emit(types.Buy, qty)
	} else if deviationBps <= -m.breakoutBps && m.position >= 0 {
		m.emit(types.Sell, qty)
	}
	return m.buf[:m.bufLen]
}

func (m *Momentum) emit(side types.Side, qty types.Quantity) {
	if m.bufLen >= MaxOrdersPerTick {
		return
	}
	m.buf[m.bufLen] = types.OrderRequest{
		ID:         allocOrderID(),
		Instrument: m.instrument,
		Side:       side,
		Type:       types.Market,
		Quantity:   qty,
		Timestamp:  types.NowNS(),
	}
	m.bufLen++
}
