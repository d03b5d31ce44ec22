package orderbook

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wojciech-wais/low-latency-trading-system/internal/types"
)

func TestRestingOrderThenMatch(t *testing.T) {
	ob := New(0)

	trades := ob.AddOrder(1, types.Buy, types.Limit, 10000, 100, 1)
	require.Empty(t, trades)
	require.Equal(t, types.Price(10000), ob.BestBid())
	require.Equal(t, types.Quantity(100), ob.BestBidQuantity())

	trades = ob.AddOrder(2, types.Sell, types.Limit, 10000, 40, 2)
	require.Len(t, trades, 1)
	require.Equal(t, types.OrderID(1), trades[0].BuyerOrderID)
	require.Equal(t, types.OrderID(2), trades[0].SellerOrderID)
	require.Equal(t, types.Quantity(40), trades[0].Quantity)
	require.Equal(t, types.Price(10000), trades[0].Price)

	require.Equal(t, types.Quantity(60), ob.BestBidQuantity())
}

func TestPartialIOCCancelsRemainder(t *testing.T) {
	ob := New(0)
	ob.AddOrder(1, types.Sell, types.Limit, 10000, 30, 1)

	trades := ob.AddOrder(2, types.Buy, types.IOC, 10000, 100, 2)
	require.Len(t, trades, 1)
	require.Equal(t, types.Quantity(30), trades[0].Quantity)
	require.Equal(t, types.Price(0), ob.BestAsk())

	// The IOC order's unfilled remainder must not rest on the book.
	require.False(t, ob.CancelOrder(2))
}

func TestFOKRejectedLeavesBookUntouched(t *testing.T) {
	ob := New(0)
	ob.AddOrder(1, types.Sell, types.Limit, 10000, 10, 1)

	bidBefore, askBefore := ob.BestBid(), ob.BestAsk()
	askQtyBefore := ob.BestAskQuantity()

	trades := ob.AddOrder(2, types.Buy, types.FOK, 10000, 100, 2)
	require.Empty(t, trades)
	require.False(t, ob.CancelOrder(2), "rejected FOK must not be resting")
	require.Equal(t, bidBefore, ob.BestBid())
	require.Equal(t, askBefore, ob.BestAsk())
	require.Equal(t, askQtyBefore, ob.BestAskQuantity())
}

func TestFOKFillsInFullWhenLiquiditySuffices(t *testing.T) {
	ob := New(0)
	ob.AddOrder(1, types.Sell, types.Limit, 10000, 50, 1)
	ob.AddOrder(2, types.Sell, types.Limit, 10001, 50, 2)

	trades := ob.AddOrder(3, types.Buy, types.FOK, 10001, 100, 3)
	require.Len(t, trades, 2)
	var filled types.Quantity
	for _, tr := range trades {
		filled += tr.Quantity
	}
	require.Equal(t, types.Quantity(100), filled)
	require.Equal(t, types.Price(0), ob.BestAsk())
}

func TestFOKRejectedWhenFillExceedsTradeCap(t *testing.T) {
	ob := New(0)
	// Enough aggregate quantity, but spread over more resting orders
	// than a single match may consume.
	for i := 0; i < MaxTradesPerMatch+1; i++ {
		ob.AddOrder(types.OrderID(i+1), types.Sell, types.Limit, 10000, 1, types.Timestamp(i))
	}

	askQtyBefore := ob.BestAskQuantity()
	trades := ob.AddOrder(1000, types.Buy, types.FOK, 10000, types.Quantity(MaxTradesPerMatch+1), 999)
	require.Empty(t, trades)
	require.Equal(t, askQtyBefore, ob.BestAskQuantity(), "rejected FOK must not consume resting orders")
	require.False(t, ob.CancelOrder(1000))
}

func TestCancelOrder(t *testing.T) {
	ob := New(0)
	ob.AddOrder(1, types.Buy, types.Limit, 9900, 10, 1)
	require.True(t, ob.CancelOrder(1))
	require.Equal(t, types.Price(0), ob.BestBid())
	require.False(t, ob.CancelOrder(1))
	require.False(t, ob.CancelOrder(999))
}

func TestPriceTimePriorityFIFO(t *testing.T) {
	ob := New(0)
	ob.AddOrder(1, types.Buy, types.Limit, 10000, 10, 1)
	ob.AddOrder(2, types.Buy, types.Limit, 10000, 10, 2)

	trades := ob.AddOrder(3, types.Sell, types.Limit, 10000, 10, 3)
	require.Len(t, trades, 1)
	require.Equal(t, types.OrderID(1), trades[0].BuyerOrderID, "earlier resting order at the same price fills first")
}

func TestDepthAndVWAP(t *testing.T) {
	ob := New(0)
	ob.AddOrder(1, types.Buy, types.Limit, 9900, 10, 1)
	ob.AddOrder(2, types.Buy, types.Limit, 9800, 20, 2)
	ob.AddOrder(3, types.Sell, types.Limit, 10000, 5, 3)

	bids, asks := ob.GetDepth(10)
	require.Len(t, bids, 2)
	require.Equal(t, types.Price(9900), bids[0].Price, "best bid first")
	require.Len(t, asks, 1)

	vwap := ob.VWAP(types.Buy, 2)
	require.InDelta(t, (9900.0*10+9800.0*20)/30.0, vwap, 1e-9)
}

func TestCancelUnknownOrderIsNoop(t *testing.T) {
	ob := New(0)
	require.False(t, ob.CancelOrder(42))
}

func TestPoolExhaustionReturnsNoTradesWithoutPanic(t *testing.T) {
	ob := New(0)
	for i := 0; i < OrderPoolSize; i++ {
		ob.AddOrder(types.OrderID(i+1), types.Buy, types.Limit, types.Price(1000+i), 1, types.Timestamp(i))
	}
	require.NotPanics(t, func() {
		ob.AddOrder(types.OrderID(OrderPoolSize+1), types.Buy, types.Limit, 1, 1, 0)
	})
}
