// Package risk implements the pre-trade risk gate and the position
// ledger it consults. CheckOrder is the hot-path entry point: ordered
// checks, no heap allocation, no division on the fat-finger check.
package risk

import (
	"sync/atomic"

	"github.com/wojciech-wais/low-latency-trading-system/internal/types"
)

// CheckResult enumerates the outcome of a pre-trade risk check. The
// declaration order is not the runtime evaluation order; see CheckOrder
// for the order that matters. The numeric tags only need to be stable
// identifiers.
type CheckResult uint8

const (
	Approved CheckResult = iota
	KillSwitchActive
	PositionLimitBreached
	CapitalLimitBreached
	OrderSizeTooLarge
	OrderRateExceeded
	FatFingerPrice
)

func (r CheckResult) String() string {
	switch r {
	case Approved:
		return "Approved"
	case KillSwitchActive:
		return "KillSwitchActive"
	case PositionLimitBreached:
		return "PositionLimitBreached"
	case CapitalLimitBreached:
		return "CapitalLimitBreached"
	case OrderSizeTooLarge:
		return "OrderSizeTooLarge"
	case OrderRateExceeded:
		return "OrderRateExceeded"
	case FatFingerPrice:
		return "FatFingerPrice"
	default:
		return "Unknown"
	}
}

// Limits bounds the risk gate's acceptance criteria.
type Limits struct {
	MaxPositionPerInstrument int64
	MaxTotalPosition         int64
	MaxCapital               float64
	MaxOrderSize             types.Quantity
	MaxOrdersPerSecond       uint32
	MaxPriceDeviationPct     float64
	MaxDrawdownPct           float64
}

const oneSecondNS = 1_000_000_000

// Manager is the pre-trade risk gate. All hot-path methods avoid
// allocation; the kill switch is an atomic flag, so it can be armed and
// read from any goroutine. In the simulator both the drawdown monitor
// and the risk checks run on the core loop.
type Manager struct {
	limits    Limits
	positions PositionTracker

	killSwitch atomic.Bool

	priceDeviationThreshold float64

	orderCountInWindow uint32
	rateWindowStart    types.Timestamp

	peakPnL             float64
	maxDrawdownThreshold float64

	checksPerformed uint64
	checksRejected  uint64
}

// NewManager constructs a Manager with the given limits.
func NewManager(limits Limits) *Manager {
	m := &Manager{limits: limits}
	m.updatePrecomputed()
	return m
}

func (m *Manager) updatePrecomputed() {
	m.priceDeviationThreshold = m.limits.MaxPriceDeviationPct / 100.0
	m.maxDrawdownThreshold = m.limits.MaxDrawdownPct / 100.0
}

func (m *Manager) SetLimits(limits Limits) {
	m.limits = limits
	m.updatePrecomputed()
}

func (m *Manager) Limits() Limits { return m.limits }

func (m *Manager) ActivateKillSwitch()   { m.killSwitch.Store(true) }
func (m *Manager) DeactivateKillSwitch() { m.killSwitch.Store(false) }
func (m *Manager) KillSwitchActive() bool { return m.killSwitch.Load() }

func (m *Manager) PositionTracker() *PositionTracker { return &m.positions }

func (m *Manager) ResetRateCounter() {
	m.orderCountInWindow = 0
	m.rateWindowStart = types.NowNS()
}

func (m *Manager) ChecksPerformed() uint64 { return m.checksPerformed }
func (m *Manager) ChecksRejected() uint64  { return m.checksRejected }

// CheckOrder runs the ordered pre-trade checks against request, given
// the current market price for the instrument (0 if unknown, which
// skips the fat-finger check). Checks run in a fixed order (kill
// switch, order size, per-instrument position, aggregate position,
// capital, rate limit, fat finger) and stop at the first rejection, so
// the rate-limit window only advances for orders that reach that check.
func (m *Manager) CheckOrder(request types.OrderRequest, currentMarketPrice types.Price) CheckResult {
	m.checksPerformed++

	if m.killSwitch.Load() {
		m.checksRejected++
		return KillSwitchActive
	}

	if request.Quantity > m.limits.MaxOrderSize {
		m.checksRejected++
		return OrderSizeTooLarge
	}

	signedQty := int64(request.Quantity)
	if request.Side == types.Sell {
		signedQty = -signedQty
	}
	currentPos := m.positions.Position(request.Instrument)
	newPos := currentPos + signedQty

	absNewPos := newPos
	if absNewPos < 0 {
		absNewPos = -absNewPos
	}
	if absNewPos > m.limits.MaxPositionPerInstrument {
		m.checksRejected++
		return PositionLimitBreached
	}

	absCurrentPos := currentPos
	if absCurrentPos < 0 {
		absCurrentPos = -absCurrentPos
	}
	total := m.positions.TotalAbsolutePosition()
	delta := absNewPos - absCurrentPos
	if total+delta > m.limits.MaxTotalPosition {
		m.checksRejected++
		return PositionLimitBreached
	}

	incrementalCapital := float64(request.Quantity) * float64(request.Price) / types.PriceScale
	if m.positions.CapitalUsed()+incrementalCapital > m.limits.MaxCapital {
		m.checksRejected++
		return CapitalLimitBreached
	}

	now := types.NowNS()
	if uint64(now)-uint64(m.rateWindowStart) >= oneSecondNS {
		m.rateWindowStart = now
		m.orderCountInWindow = 0
	}
	m.orderCountInWindow++
	if m.orderCountInWindow > m.limits.MaxOrdersPerSecond {
		m.checksRejected++
		return OrderRateExceeded
	}

	if currentMarketPrice > 0 {
		priceDiff := request.Price - currentMarketPrice
		if priceDiff < 0 {
			priceDiff = -priceDiff
		}
		threshold := types.Price(float64(currentMarketPrice) * m.priceDeviationThreshold)
		if priceDiff > threshold {
			m.checksRejected++
			return FatFingerPrice
		}
	}

	return Approved
}

// OnPnLUpdate tracks the running P&L peak and arms the kill switch if
// drawdown from that peak exceeds MaxDrawdownPct.
func (m *Manager) OnPnLUpdate(totalPnL float64) {
	if totalPnL > m.peakPnL {
		m.peakPnL = totalPnL
	}
	if m.peakPnL > 0 {
		drawdown := (m.peakPnL - totalPnL) / m.peakPnL
		if drawdown > m.maxDrawdownThreshold {
			m.ActivateKillSwitch()
		}
	}
}

func (m *Manager) SetPeakPnL(peak float64) { m.peakPnL = peak }
