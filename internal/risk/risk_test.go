package risk

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wojciech-wais/low-latency-trading-system/internal/types"
)

func defaultLimits() Limits {
	return Limits{
		MaxPositionPerInstrument: 10000,
		MaxTotalPosition:         50000,
		MaxCapital:               10_000_000.0,
		MaxOrderSize:             1000,
		MaxOrdersPerSecond:       10000,
		MaxPriceDeviationPct:     5.0,
		MaxDrawdownPct:           2.0,
	}
}

func TestApprovedOrder(t *testing.T) {
	m := NewManager(defaultLimits())
	req := types.OrderRequest{Instrument: 0, Side: types.Buy, Quantity: 10, Price: 10000}
	require.Equal(t, Approved, m.CheckOrder(req, 10000))
}

func TestKillSwitchRejectsAll(t *testing.T) {
	m := NewManager(defaultLimits())
	m.ActivateKillSwitch()
	req := types.OrderRequest{Instrument: 0, Side: types.Buy, Quantity: 10, Price: 10000}
	require.Equal(t, KillSwitchActive, m.CheckOrder(req, 10000))
}

func TestOrderSizeTooLarge(t *testing.T) {
	m := NewManager(defaultLimits())
	req := types.OrderRequest{Instrument: 0, Side: types.Buy, Quantity: 5000, Price: 10000}
	require.Equal(t, OrderSizeTooLarge, m.CheckOrder(req, 10000))
}

func TestPositionLimitBreached(t *testing.T) {
	m := NewManager(defaultLimits())
	req := types.OrderRequest{Instrument: 0, Side: types.Buy, Quantity: 999, Price: 10000}
	for i := 0; i < 10; i++ {
		m.PositionTracker().OnFill(0, types.Buy, 999, 10000)
	}
	require.Equal(t, PositionLimitBreached, m.CheckOrder(req, 10000))
}

func TestFatFingerPrice(t *testing.T) {
	m := NewManager(defaultLimits())
	req := types.OrderRequest{Instrument: 0, Side: types.Buy, Quantity: 10, Price: 20000}
	require.Equal(t, FatFingerPrice, m.CheckOrder(req, 10000))
}

func TestFatFingerSkippedWhenMarketPriceUnknown(t *testing.T) {
	m := NewManager(defaultLimits())
	req := types.OrderRequest{Instrument: 0, Side: types.Buy, Quantity: 10, Price: 999999}
	require.Equal(t, Approved, m.CheckOrder(req, 0))
}

func TestRejectionIsSideEffectFree(t *testing.T) {
	m := NewManager(defaultLimits())
	before := m.PositionTracker().Position(0)
	req := types.OrderRequest{Instrument: 0, Side: types.Buy, Quantity: 5000, Price: 10000}
	m.CheckOrder(req, 10000)
	require.Equal(t, before, m.PositionTracker().Position(0), "risk check must not mutate position on rejection")
}

func TestKillSwitchArmsOnDrawdownBreach(t *testing.T) {
	m := NewManager(defaultLimits())
	m.OnPnLUpdate(10000)
	require.False(t, m.KillSwitchActive())
	m.OnPnLUpdate(9700) // 3% drawdown > 2% threshold
	require.True(t, m.KillSwitchActive())
}

func TestPositionLedgerLongThenShortFlipRealizesPnL(t *testing.T) {
	var pt PositionTracker
	pt.OnFill(0, types.Buy, 100, 10000) // long 100 @ 100.00
	require.Equal(t, int64(100), pt.Position(0))
	require.InDelta(t, 100.0, pt.AvgPrice(0), 1e-9)

	pt.OnFill(0, types.Sell, 150, 10100) // sell through flat into short 50
	require.Equal(t, int64(-50), pt.Position(0))
	require.InDelta(t, 100.0*(101.00-100.00), pt.RealizedPnL(), 1e-6)
	require.InDelta(t, 101.0, pt.AvgPrice(0), 1e-9, "new short leg starts a fresh average price")
}

func TestTotalAbsolutePositionSumsAcrossInstruments(t *testing.T) {
	var pt PositionTracker
	pt.OnFill(0, types.Buy, 100, 10000)
	pt.OnFill(1, types.Sell, 40, 5000)
	require.Equal(t, int64(140), pt.TotalAbsolutePosition())
}
