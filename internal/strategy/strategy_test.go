package strategy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wojciech-wais/low-latency-trading-system/internal/types"
)

func snapshot(instrument types.InstrumentID, bid, ask types.Price) types.MarketDataMessage {
	return types.MarketDataMessage{
		Instrument:  instrument,
		BidPrice:    bid,
		AskPrice:    ask,
		BidQuantity: 100,
		AskQuantity: 100,
		MsgType:     types.MDSnapshot,
	}
}

func TestMarketMakerQuotesAroundMid(t *testing.T) {
	mm := NewMarketMaker(0, 10.0, 100)

	// No mid yet, nothing to quote.
	require.Empty(t, mm.GenerateOrders())

	mm.OnMarketData(snapshot(0, 14990, 15010))
	orders := mm.GenerateOrders()
	require.Len(t, orders, 2)

	var bid, ask types.OrderRequest
	for _, o := range orders {
		if o.Side == types.Buy {
			bid = o
		} else {
			ask = o
		}
	}
	require.Less(t, bid.Price, types.Price(15000))
	require.Greater(t, ask.Price, types.Price(15000))
	require.Equal(t, types.Limit, bid.Type)
	require.NotEqual(t, bid.ID, ask.ID)
}

func TestMarketMakerStopsQuotingAtInventoryLimit(t *testing.T) {
	mm := NewMarketMaker(0, 10.0, 100)
	mm.OnMarketData(snapshot(0, 14990, 15010))

	// Simulate filling the bid up to the inventory cap.
	mm.OnExecutionReport(types.ExecutionReport{
		Instrument: 0, Side: types.Buy, FilledQuantity: 100, Status: types.Filled,
	})

	orders := mm.GenerateOrders()
	require.Len(t, orders, 1)
	require.Equal(t, types.Sell, orders[0].Side)
}

func TestMarketMakerSkewsAgainstInventory(t *testing.T) {
	mm := NewMarketMaker(0, 10.0, 100)
	mm.OnMarketData(snapshot(0, 14990, 15010))
	flat := mm.GenerateOrders()
	var flatBid types.Price
	for _, o := range flat {
		if o.Side == types.Buy {
			flatBid = o.Price
		}
	}

	mm.OnExecutionReport(types.ExecutionReport{
		Instrument: 0, Side: types.Buy, FilledQuantity: 50, Status: types.Filled,
	})
	skewed := mm.GenerateOrders()
	var skewedBid types.Price
	for _, o := range skewed {
		if o.Side == types.Buy {
			skewedBid = o.Price
		}
	}
	// Long inventory pushes both quotes down so the bid is less eager.
	require.Less(t, skewedBid, flatBid)
}

func TestMarketMakerIgnoresOtherInstruments(t *testing.T) {
	mm := NewMarketMaker(0, 10.0, 100)
	mm.OnMarketData(snapshot(7, 14990, 15010))
	require.Empty(t, mm.GenerateOrders())
}

func TestMomentumBuysOnUpsideBreakout(t *testing.T) {
	m := NewMomentum(0, 2, 10, 5.0)

	m.OnMarketData(snapshot(0, 14990, 15010))
	require.Empty(t, m.GenerateOrders())

	// Push price up hard; the fast EMA leads the slow one.
	for price := types.Price(15100); price <= 16000; price += 100 {
		m.OnMarketData(snapshot(0, price-10, price+10))
	}
	orders := m.GenerateOrders()
	require.Len(t, orders, 1)
	require.Equal(t, types.Buy, orders[0].Side)
	require.Equal(t, types.Market, orders[0].Type)
}

func TestMomentumDoesNotPyramidLongs(t *testing.T) {
	m := NewMomentum(0, 2, 10, 5.0)
	m.OnMarketData(snapshot(0, 14990, 15010))
	for price := types.Price(15100); price <= 16000; price += 100 {
		m.OnMarketData(snapshot(0, price-10, price+10))
	}
	require.Len(t, m.GenerateOrders(), 1)

	m.OnExecutionReport(types.ExecutionReport{
		Instrument: 0, Side: types.Buy, FilledQuantity: 100, Status: types.Filled,
	})
	// Still broken out, but already long.
	require.Empty(t, m.GenerateOrders())
}

func TestMomentumSellsOnDownsideBreakout(t *testing.T) {
	m := NewMomentum(0, 2, 10, 5.0)
	m.OnMarketData(snapshot(0, 15990, 16010))
	for price := types.Price(15900); price >= 15000; price -= 100 {
		m.OnMarketData(snapshot(0, price-10, price+10))
	}
	orders := m.GenerateOrders()
	require.Len(t, orders, 1)
	require.Equal(t, types.Sell, orders[0].Side)
}

func feedPair(p *PairsTrading, a, b types.Price) {
	p.OnMarketData(snapshot(0, a-5, a+5))
	p.OnMarketData(snapshot(1, b-5, b+5))
}

func TestPairsEntersShortSpreadOnHighZ(t *testing.T) {
	p := NewPairsTrading(0, 1, 20, 2.0, 0.5)

	// Stable spread of 100 with a little noise to keep stddev nonzero.
	for i := 0; i < 19; i++ {
		noise := types.Price(i % 2)
		feedPair(p, 15100+noise, 15000)
	}
	require.Empty(t, p.GenerateOrders())

	// Spread blows out: A rich relative to B.
	feedPair(p, 15400, 15000)
	orders := p.GenerateOrders()
	require.Len(t, orders, 2)

	byInstrument := map[types.InstrumentID]types.Side{}
	for _, o := range orders {
		byInstrument[o.Instrument] = o.Side
	}
	require.Equal(t, types.Sell, byInstrument[0])
	require.Equal(t, types.Buy, byInstrument[1])
}

func TestPairsExitsWhenSpreadReverts(t *testing.T) {
	p := NewPairsTrading(0, 1, 20, 2.0, 1.5)
	for i := 0; i < 19; i++ {
		noise := types.Price(i % 2)
		feedPair(p, 15100+noise, 15000)
	}
	feedPair(p, 15400, 15000)
	require.Len(t, p.GenerateOrders(), 2)

	// Generating again without reversion must not re-enter.
	require.Empty(t, p.GenerateOrders())

	// Feed the spread back toward the window mean until |z| <= exit.
	// Alternating noise keeps the window's stddev nonzero.
	for i := 0; i < 15; i++ {
		feedPair(p, 15115+types.Price(i%2), 15000)
	}
	orders := p.GenerateOrders()
	require.Len(t, orders, 2)
	byInstrument := map[types.InstrumentID]types.Side{}
	for _, o := range orders {
		byInstrument[o.Instrument] = o.Side
	}
	require.Equal(t, types.Buy, byInstrument[0])
	require.Equal(t, types.Sell, byInstrument[1])
}

func TestGenerateOrdersReusesBuffer(t *testing.T) {
	mm := NewMarketMaker(0, 10.0, 100)
	mm.OnMarketData(snapshot(0, 14990, 15010))

	first := mm.GenerateOrders()
	require.Len(t, first, 2)
	firstID := first[0].ID

	second := mm.GenerateOrders()
	require.Len(t, second, 2)
	// Same backing storage, fresh contents.
	require.Same(t, &first[0], &second[0])
	require.NotEqual(t, firstID, second[0].ID)
}
