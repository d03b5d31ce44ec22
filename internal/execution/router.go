package execution

import "github.com/wojciech-wais/low-latency-trading-system/internal/types"

// RoutingStrategy selects which venue an order is sent to.
type RoutingStrategy uint8

const (
	RoundRobin RoutingStrategy = iota
	LowestLatency
	BestPrice
)

// Router routes orders to one of several venues and remembers which
// venue each outstanding order went to, so cancels can be routed back
// to the correct venue.
type Router struct {
	exchanges      []*Exchange
	orderExchange  map[types.OrderID]types.ExchangeID
	strategy       RoutingStrategy
	roundRobinIdx  int
}

// NewRouter constructs a Router defaulting to RoundRobin.
func NewRouter() *Router {
	return &Router{
		orderExchange: make(map[types.OrderID]types.ExchangeID),
		strategy:      RoundRobin,
	}
}

func (r *Router) AddExchange(e *Exchange) {
	r.exchanges = append(r.exchanges, e)
}

func (r *Router) SetRoutingStrategy(s RoutingStrategy) { r.strategy = s }
func (r *Router) ExchangeCount() int                   { return len(r.exchanges) }

// RouteOrder selects a venue and submits request to it, recording the
// assignment for later cancel routing. Returns an immediate Rejected
// report if no venue is available.
func (r *Router) RouteOrder(request types.OrderRequest) types.ExecutionReport {
	exchange := r.selectExchange(request)
	if exchange == nil {
		return types.ExecutionReport{
			OrderID:   request.ID,
			Status:    types.Rejected,
			Timestamp: types.NowNS(),
		}
	}
	r.orderExchange[request.ID] = exchange.ID()
	return exchange.SubmitOrder(request)
}

// CancelOrder routes a cancel to the venue the original order went to.
func (r *Router) CancelOrder(orderID types.OrderID) types.ExecutionReport {
	exchangeID, ok := r.orderExchange[orderID]
	if !ok {
		return types.ExecutionReport{OrderID: orderID, Status: types.Rejected, Timestamp: types.NowNS()}
	}
	for _, e := range r.exchanges {
		if e.ID() == exchangeID {
			report := e.CancelOrder(orderID)
			if report.Status == types.Cancelled {
				delete(r.orderExchange, orderID)
			}
			return report
		}
	}
	return types.ExecutionReport{OrderID: orderID, Status: types.Rejected, Timestamp: types.NowNS()}
}

// selectExchange picks a venue per the configured strategy. BestPrice
// selects the venue whose internal book shows the best resting price
// on the order's side, falling back to round-robin when no venue has a
// resting quote on that side yet.
func (r *Router) selectExchange(request types.OrderRequest) *Exchange {
	if len(r.exchanges) == 0 {
		return nil
	}

	switch r.strategy {
	case LowestLatency:
		var best *Exchange
		for _, e := range r.exchanges {
			if !e.config.Enabled {
				continue
			}
			if best == nil || e.config.LatencyNS < best.config.LatencyNS {
				best = e
			}
		}
		if best != nil {
			return best
		}
		return r.exchanges[0]

	case BestPrice:
		if best := r.bestPriceExchange(request); best != nil {
			return best
		}
		fallthrough

	default: // RoundRobin
		e := r.exchanges[r.roundRobinIdx%len(r.exchanges)]
		r.roundRobinIdx++
		return e
	}
}

func (r *Router) bestPriceExchange(request types.OrderRequest) *Exchange {
	var best *Exchange
	var bestPrice types.Price
	found := false

	for _, e := range r.exchanges {
		if !e.config.Enabled {
			continue
		}
		var price types.Price
		var ok bool
		if request.Side == types.Buy {
			price = e.book.BestAsk()
			ok = price > 0
		} else {
			price = e.book.BestBid()
			ok = price > 0
		}
		if !ok {
			continue
		}
		if !found {
			best, bestPrice, found = e, price, true
			continue
		}
		if request.Side == types.Buy && price < bestPrice {
			best, bestPrice = e, price
		} else if request.Side == types.Sell && price > bestPrice {
			best, bestPrice = e, price
		}
	}
	return best
}
