package strategy

import (
	"math"

	"github.com/wojciech-wais/low-latency-trading-system/internal/container"
	"github.com/wojciech-wais/low-latency-trading-system/internal/types"
)

// pairState tracks which leg, if any, the pair is currently positioned
// in, so entries and exits fire exactly once per crossing.
type pairState uint8

const (
	pairFlat pairState = iota
	pairLongSpread
	pairShortSpread
)

// PairsTrading trades the spread between two instruments, entering when
// the rolling z-score of the spread crosses entryZ and exiting back to
// flat when it reverts inside exitZ.
type PairsTrading struct {
	instrumentA, instrumentB types.InstrumentID
	lookback                 int
	entryZ, exitZ            float64

	priceA, priceB types.Price
	haveA, haveB   bool
	spreads        *container.Circular[float64]
	state          pairState

	buf    [MaxOrdersPerTick]types.OrderRequest
	bufLen int
}

func NewPairsTrading(instrumentA, instrumentB types.InstrumentID, lookback int, entryZ, exitZ float64) *PairsTrading {
	return &PairsTrading{
		instrumentA: instrumentA,
		instrumentB: instrumentB,
		lookback:    lookback,
		entryZ:      entryZ,
		exitZ:       exitZ,
		spreads:     container.NewCircular[float64](lookback),
	}
}

func (p *PairsTrading) Name() string { return "pairs-trading" }

func (p *PairsTrading) OnMarketData(msg types.MarketDataMessage) {
	if msg.BidPrice <= 0 || msg.AskPrice <= 0 {
		return
	}
	mid := (msg.BidPrice + msg.AskPrice) / 2
	switch msg.Instrument {
	case p.instrumentA:
		p.priceA, p.haveA = mid, true
	case p.instrumentB:
		p.priceB, p.haveB = mid, true
	default:
		return
	}
	if p.haveA && p.haveB {
		p.spreads.Push(float64(p.priceA) - float64(p.priceB))
	}
}

func (p *PairsTrading) OnOrderBookUpdate(instrument types.InstrumentID, bestBid, bestAsk types.Price) {}
func (p *PairsTrading) OnTrade(trade types.Trade)                                                     {}
func (p *PairsTrading) OnExecutionReport(report types.ExecutionReport)                                {}
func (p *PairsTrading) OnTimer(now types.Timestamp)                                                   {}

// zScore returns the current spread's z-score against the rolling
// window's mean and standard deviation, or (0, false) if the window
// isn't full yet.
func (p *PairsTrading) zScore() (float64, bool) {
	if p.spreads.Size() < p.lookback {
		return 0, false
	}
	samples := p.spreads.Snapshot()
	var mean float64
	for _, s := range samples {
		mean += s
	}
	mean /= float64(len(samples))

	var variance float64
	for _, s := range samples {
		d := s - mean
		variance += d * d
	}
	variance /= float64(len(samples))
	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return 0, false
	}

	current := samples[len(samples)-1]
	return (current - mean) / stddev, true
}

// GenerateOrders drives the flat/long-spread/short-spread state machine:
// entering long-spread (buy A, sell B) when z <= -entryZ, short-spread
// (sell A, buy B) when z >= entryZ, and flattening either when |z|
// falls back inside exitZ.
func (p *PairsTrading) GenerateOrders() []types.OrderRequest {
	p.bufLen = 0
	z, ok := p.zScore()
	if !ok {
		return p.buf[:0]
	}

	qty := types.Quantity(50)

	switch p.state {
	case pairFlat:
		if z <= -p.entryZ {
			p.emit(p.instrumentA, types.Buy, qty)
			p.emit(p.instrumentB, types.Sell, qty)
			p.state = pairLongSpread
		} else if z >= p.entryZ {
			p.emit(p.instrumentA, types.Sell, qty)
			p.emit(p.instrumentB, types.Buy, qty)
			p.state = pairShortSpread
		}
	case pairLongSpread:
		if math.Abs(z) <= p.exitZ {
			p.emit(p.instrumentA, types.Sell, qty)
			p.emit(p.instrumentB, types.Buy, qty)
			p.state = pairFlat
		}
	case pairShortSpread:
		if math.Abs(z) <= p.exitZ {
			p.emit(p.instrumentA, types.Buy, qty)
			p.emit(p.instrumentB, types.Sell, qty)
			p.state = pairFlat
		}
	}
	return p.buf[:p.bufLen]
}

func (p *PairsTrading) emit(instrument types.InstrumentID, side types.Side, qty types.Quantity) {
	if p.bufLen >= MaxOrdersPerTick {
		return
	}
	p.buf[p.bufLen] = types.OrderRequest{
		ID:         allocOrderID(),
		Instrument: instrument,
		Side:       side,
		Type:       types.Market,
		Quantity:   qty,
		Timestamp:  types.NowNS(),
	}
	p.bufLen++
}
