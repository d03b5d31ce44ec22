// Package strategy defines the capability surface strategies implement
// and provides three conforming strategies: a market maker, a pairs
// trader, and a momentum follower.
package strategy

import (
	"sync/atomic"

	"github.com/wojciech-wais/low-latency-trading-system/internal/types"
)

// Strategy is the capability interface every strategy implements. Event
// callbacks update internal state only; GenerateOrders is where intents
// are emitted, called once per tick after the event callbacks for that
// tick have run.
type Strategy interface {
	Name() string
	OnMarketData(msg types.MarketDataMessage)
	OnOrderBookUpdate(instrument types.InstrumentID, bestBid, bestAsk types.Price)
	OnTrade(trade types.Trade)
	OnExecutionReport(report types.ExecutionReport)
	OnTimer(now types.Timestamp)

	// GenerateOrders returns a view over a buffer owned by the
	// strategy, reused (and so invalidated) on the next call. Callers
	// must consume the slice before calling GenerateOrders again.
	GenerateOrders() []types.OrderRequest
}

var nextOrderID atomic.Uint64

// allocOrderID hands out process-unique order ids across all
// strategies.
func allocOrderID() types.OrderID {
	return types.OrderID(nextOrderID.Add(1))
}
