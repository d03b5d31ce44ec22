package risk

import (
	"github.com/wojciech-wais/low-latency-trading-system/internal/types"
)

// PositionTracker maintains per-instrument position, weighted-average
// entry price, mark price, and realized/unrealized P&L using flat
// arrays indexed by InstrumentID rather than maps, so updates on the
// fill path never allocate or hash. Average prices, P&L, and capital
// are dollar-denominated; fixed-point prices are scaled down on entry.
type PositionTracker struct {
	positions    [types.MaxInstruments]int64
	avgPrices    [types.MaxInstruments]float64
	markPrices   [types.MaxInstruments]types.Price
	instrumentPL [types.MaxInstruments]float64
	realizedPnL  float64
}

// OnFill updates position and realized P&L for a fill. The
// weighted-average entry price is recomputed only when the fill adds
// to an existing same-sign position; a fill that reduces or reverses a
// position realizes P&L on the reducing portion and, if the position
// flips sign, starts a fresh average price from the fill price for the
// new residual position.
func (pt *PositionTracker) OnFill(instrument types.InstrumentID, side types.Side, quantity types.Quantity, price types.Price) {
	i := instrument
	qty := int64(quantity)
	fillPrice := float64(price) / types.PriceScale
	pos := pt.positions[i]
	avg := pt.avgPrices[i]

	if side == types.Buy {
		if pos >= 0 {
			totalCost := avg*float64(pos) + fillPrice*float64(qty)
			pos += qty
			if pos > 0 {
				avg = totalCost / float64(pos)
			}
		} else {
			coverQty := qty
			if coverQty > -pos {
				coverQty = -pos
			}
			pnl := float64(coverQty) * (avg - fillPrice)
			pt.realizedPnL += pnl
			pt.instrumentPL[i] += pnl
			pos += qty
			if pos > 0 {
				avg = fillPrice
			} else if pos == 0 {
				avg = 0
			}
		}
	} else {
		if pos <= 0 {
			totalCost := avg*float64(-pos) + fillPrice*float64(qty)
			pos -= qty
			if pos < 0 {
				avg = totalCost / float64(-pos)
			}
		} else {
			coverQty := qty
			if coverQty > pos {
				coverQty = pos
			}
			pnl := float64(coverQty) * (fillPrice - avg)
			pt.realizedPnL += pnl
			pt.instrumentPL[i] += pnl
			pos -= qty
			if pos < 0 {
				avg = fillPrice
			} else if pos == 0 {
				avg = 0
			}
		}
	}

	pt.positions[i] = pos
	pt.avgPrices[i] = avg
}

func (pt *PositionTracker) UpdateMarkPrice(instrument types.InstrumentID, price types.Price) {
	pt.markPrices[instrument] = price
}

func (pt *PositionTracker) Position(instrument types.InstrumentID) int64 {
	return pt.positions[instrument]
}

func (pt *PositionTracker) AvgPrice(instrument types.InstrumentID) float64 {
	return pt.avgPrices[instrument]
}

func (pt *PositionTracker) TotalAbsolutePosition() int64 {
	var total int64
	for _, p := range pt.positions {
		if p < 0 {
			total += -p
		} else {
			total += p
		}
	}
	return total
}

func (pt *PositionTracker) RealizedPnL() float64 { return pt.realizedPnL }

func (pt *PositionTracker) UnrealizedPnL() float64 {
	var total float64
	for i := 0; i < types.MaxInstruments; i++ {
		mark := pt.markPrices[i]
		if mark == 0 {
			continue
		}
		pos := pt.positions[i]
		avg := pt.avgPrices[i]
		markPrice := float64(mark) / types.PriceScale
		if pos > 0 {
			total += float64(pos) * (markPrice - avg)
		} else if pos < 0 {
			total += float64(-pos) * (avg - markPrice)
		}
	}
	return total
}

func (pt *PositionTracker) TotalPnL() float64 {
	return pt.realizedPnL + pt.UnrealizedPnL()
}

// CapitalUsed sums |position| * reference price across instruments,
// preferring mark price when known and falling back to average entry
// price otherwise.
func (pt *PositionTracker) CapitalUsed() float64 {
	var total float64
	for i := 0; i < types.MaxInstruments; i++ {
		pos := pt.positions[i]
		if pos == 0 {
			continue
		}
		refPrice := float64(pt.markPrices[i]) / types.PriceScale
		if refPrice == 0 {
			refPrice = pt.avgPrices[i]
		}
		abs := pos
		if abs < 0 {
			abs = -abs
		}
		total += float64(abs) * refPrice
	}
	return total
}

func (pt *PositionTracker) Reset() {
	*pt = PositionTracker{}
}
