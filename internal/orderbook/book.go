// Package orderbook implements a per-instrument price-time priority
// limit order book: descending bids, ascending asks, an intrusive FIFO
// per price level, O(1) cancel via an id-to-handle map, and a cached
// best-bid/best-ask pair recomputed only when a mutation can affect the
// top of book.
package orderbook

import (
	"sort"

	"github.com/wojciech-wais/low-latency-trading-system/internal/pool"
	"github.com/wojciech-wais/low-latency-trading-system/internal/types"
)

// OrderPoolSize bounds the number of resting orders a single book can
// hold at once. The backing slab is allocated once at construction.
const OrderPoolSize = 65536

// MaxTradesPerMatch bounds the number of trades a single AddOrder call
// can produce. A marketable order that would need more trades than
// this is filled up to the bound and left resting (Limit) or cancelled
// (IOC/Market) for the remainder. An FOK order that would need more
// trades than this is rejected before matching, with no fills.
const MaxTradesPerMatch = 64

// orderEntry is the resting-order record stored in the pool. prev/next
// are intrusive FIFO links within a price level, by pool handle.
type orderEntry struct {
	id             types.OrderID
	instrument     types.InstrumentID
	side           types.Side
	otype          types.OrderType
	status         types.OrderStatus
	price          types.Price
	quantity       types.Quantity
	filledQuantity types.Quantity
	timestamp      types.Timestamp
	prev, next     uint32
}

func (e *orderEntry) remaining() types.Quantity {
	return e.quantity - e.filledQuantity
}

// priceLevel is one price point's FIFO queue of resting orders.
type priceLevel struct {
	price         types.Price
	totalQuantity types.Quantity
	orderCount    int
	head, tail    uint32
}

// DepthEntry is one row of a book-depth snapshot.
type DepthEntry struct {
	Price      types.Price
	Quantity   types.Quantity
	OrderCount int
}

// OrderBook is a single instrument's limit order book. Not safe for
// concurrent use: each owner (a venue's single internal book, or one of
// the simulator's per-instrument core books) mutates it from a single
// goroutine.
type OrderBook struct {
	instrument types.InstrumentID
	pool       *pool.Pool[orderEntry]
	orders     map[types.OrderID]uint32

	bidPrices []types.Price // descending
	bidLevels map[types.Price]*priceLevel
	askPrices []types.Price // ascending
	askLevels map[types.Price]*priceLevel

	bestBid, bestAsk       types.Price
	bestBidQty, bestAskQty types.Quantity

	tradeBuf [MaxTradesPerMatch]types.Trade
}

// New constructs an empty order book for instrument.
func New(instrument types.InstrumentID) *OrderBook {
	return &OrderBook{
		instrument: instrument,
		pool:       pool.New[orderEntry](OrderPoolSize),
		orders:     make(map[types.OrderID]uint32),
		bidLevels:  make(map[types.Price]*priceLevel),
		askLevels:  make(map[types.Price]*priceLevel),
	}
}

func (ob *OrderBook) Instrument() types.InstrumentID { return ob.instrument }

// AddOrder submits a new order for matching. Returns the trades it
// produced, if any. For FOK orders, a dry-run pass over the opposite
// side determines fillability before any book state is touched, so a
// rejected FOK never mutates resting orders or the cached BBO.
func (ob *OrderBook) AddOrder(id types.OrderID, side types.Side, otype types.OrderType,
	price types.Price, quantity types.Quantity, timestamp types.Timestamp) []types.Trade {

	if otype == types.FOK {
		if !ob.canFillFully(side, price, quantity) {
			return nil
		}
	}

	handle := ob.pool.Acquire()
	if handle == pool.Invalid {
		return nil
	}
	entry := ob.pool.Get(handle)
	*entry = orderEntry{
		id:         id,
		instrument: ob.instrument,
		side:       side,
		otype:      otype,
		status:     types.New,
		price:      price,
		quantity:   quantity,
		timestamp:  timestamp,
		prev:       pool.Invalid,
		next:       pool.Invalid,
	}
	ob.orders[id] = handle

	return ob.matchOrder(handle)
}

func (ob *OrderBook) matchOrder(handle uint32) []types.Trade {
	entry := ob.pool.Get(handle)
	tradeCount := 0

	if entry.otype == types.Market {
		tradeCount = ob.tryMatchMarket(handle)
	} else {
		tradeCount = ob.tryMatchLimit(handle)
	}

	entry = ob.pool.Get(handle)
	remaining := entry.remaining()

	switch {
	case remaining == 0:
		entry.status = types.Filled
		delete(ob.orders, entry.id)
		ob.pool.Release(handle)
	case entry.otype == types.IOC || entry.otype == types.Market || entry.otype == types.FOK:
		if entry.filledQuantity > 0 {
			entry.status = types.PartiallyFilled
		} else {
			entry.status = types.Cancelled
		}
		delete(ob.orders, entry.id)
		ob.pool.Release(handle)
	default: // Limit, rests on book
		if entry.filledQuantity > 0 {
			entry.status = types.PartiallyFilled
		} else {
			entry.status = types.New
		}
		ob.addToBook(handle, entry)
	}

	return ob.tradeBuf[:tradeCount]
}

// canFillFully reports whether an order of side/price/quantity could be
// matched in full against the current opposite side, without mutating
// any state. It mirrors the price-eligibility rule the matching loop
// applies and also counts one trade per resting order consumed, so a
// fill that would need more than MaxTradesPerMatch trades is rejected
// here rather than truncated mid-match.
func (ob *OrderBook) canFillFully(side types.Side, price types.Price, quantity types.Quantity) bool {
	var available types.Quantity
	trades := 0
	if side == types.Buy {
		for _, p := range ob.askPrices {
			if p > price {
				break
			}
			for h := ob.askLevels[p].head; h != pool.Invalid; {
				resting := ob.pool.Get(h)
				if trades == MaxTradesPerMatch {
					return false
				}
				trades++
				available += resting.remaining()
				if available >= quantity {
					return true
				}
				h = resting.next
			}
		}
	} else {
		for _, p := range ob.bidPrices {
			if p < price {
				break
			}
			for h := ob.bidLevels[p].head; h != pool.Invalid; {
				resting := ob.pool.Get(h)
				if trades == MaxTradesPerMatch {
					return false
				}
				trades++
				available += resting.remaining()
				if available >= quantity {
					return true
				}
				h = resting.next
			}
		}
	}
	return false
}

func (ob *OrderBook) tryMatchLimit(handle uint32) int {
	entry := ob.pool.Get(handle)
	tradeCount := 0

	if entry.side == types.Buy {
		for len(ob.askPrices) > 0 && tradeCount < MaxTradesPerMatch {
			levelPrice := ob.askPrices[0]
			if levelPrice > entry.price {
				break
			}
			tradeCount = ob.drainLevel(handle, ob.askLevels, &ob.askPrices, levelPrice, tradeCount)
			entry = ob.pool.Get(handle)
			if entry.remaining() == 0 {
				break
			}
		}
		ob.updateBestAsk()
	} else {
		for len(ob.bidPrices) > 0 && tradeCount < MaxTradesPerMatch {
			levelPrice := ob.bidPrices[0]
			if levelPrice < entry.price {
				break
			}
			tradeCount = ob.drainLevel(handle, ob.bidLevels, &ob.bidPrices, levelPrice, tradeCount)
			entry = ob.pool.Get(handle)
			if entry.remaining() == 0 {
				break
			}
		}
		ob.updateBestBid()
	}
	return tradeCount
}

func (ob *OrderBook) tryMatchMarket(handle uint32) int {
	entry := ob.pool.Get(handle)
	tradeCount := 0

	if entry.side == types.Buy {
		for len(ob.askPrices) > 0 && tradeCount < MaxTradesPerMatch {
			levelPrice := ob.askPrices[0]
			tradeCount = ob.drainLevel(handle, ob.askLevels, &ob.askPrices, levelPrice, tradeCount)
			entry = ob.pool.Get(handle)
			if entry.remaining() == 0 {
				break
			}
		}
		ob.updateBestAsk()
	} else {
		for len(ob.bidPrices) > 0 && tradeCount < MaxTradesPerMatch {
			levelPrice := ob.bidPrices[0]
			tradeCount = ob.drainLevel(handle, ob.bidLevels, &ob.bidPrices, levelPrice, tradeCount)
			entry = ob.pool.Get(handle)
			if entry.remaining() == 0 {
				break
			}
		}
		ob.updateBestBid()
	}
	return tradeCount
}

// drainLevel matches the incoming order (handle) against resting orders
// at levelPrice's FIFO queue until the incoming order is filled, the
// level is exhausted, or the trade cap is hit. Returns the updated
// trade count.
func (ob *OrderBook) drainLevel(handle uint32, levels map[types.Price]*priceLevel, prices *[]types.Price,
	levelPrice types.Price, tradeCount int) int {

	level := levels[levelPrice]

	for level.head != pool.Invalid && tradeCount < MaxTradesPerMatch {
		entry := ob.pool.Get(handle)
		entryRemaining := entry.remaining()
		if entryRemaining == 0 {
			break
		}

		restingHandle := level.head
		resting := ob.pool.Get(restingHandle)
		restingRemaining := resting.remaining()
		fillQty := entryRemaining
		if restingRemaining < fillQty {
			fillQty = restingRemaining
		}

		trade := &ob.tradeBuf[tradeCount]
		tradeCount++
		if entry.side == types.Buy {
			trade.BuyerOrderID = entry.id
			trade.SellerOrderID = resting.id
		} else {
			trade.BuyerOrderID = resting.id
			trade.SellerOrderID = entry.id
		}
		trade.Instrument = ob.instrument
		trade.Price = resting.price
		trade.Quantity = fillQty
		trade.Timestamp = entry.timestamp

		entry.filledQuantity += fillQty
		resting.filledQuantity += fillQty
		level.totalQuantity -= fillQty

		if resting.remaining() == 0 {
			resting.status = types.Filled
			ob.unlinkFromLevel(level, restingHandle, resting)
			delete(ob.orders, resting.id)
			ob.pool.Release(restingHandle)
		} else {
			resting.status = types.PartiallyFilled
		}
	}

	if level.head == pool.Invalid {
		delete(levels, levelPrice)
		*prices = removeSortedPrice(*prices, levelPrice)
	}

	return tradeCount
}

func (ob *OrderBook) unlinkFromLevel(level *priceLevel, handle uint32, entry *orderEntry) {
	if entry.prev != pool.Invalid {
		ob.pool.Get(entry.prev).next = entry.next
	} else {
		level.head = entry.next
	}
	if entry.next != pool.Invalid {
		ob.pool.Get(entry.next).prev = entry.prev
	} else {
		level.tail = entry.prev
	}
	entry.prev = pool.Invalid
	entry.next = pool.Invalid
	level.orderCount--
}

func (ob *OrderBook) addToBook(handle uint32, entry *orderEntry) {
	if entry.side == types.Buy {
		level, ok := ob.bidLevels[entry.price]
		if !ok {
			level = &priceLevel{price: entry.price, head: pool.Invalid, tail: pool.Invalid}
			ob.bidLevels[entry.price] = level
			ob.bidPrices = insertSortedDesc(ob.bidPrices, entry.price)
		}
		ob.appendToLevel(level, handle, entry)
		ob.updateBestBid()
	} else {
		level, ok := ob.askLevels[entry.price]
		if !ok {
			level = &priceLevel{price: entry.price, head: pool.Invalid, tail: pool.Invalid}
			ob.askLevels[entry.price] = level
			ob.askPrices = insertSortedAsc(ob.askPrices, entry.price)
		}
		ob.appendToLevel(level, handle, entry)
		ob.updateBestAsk()
	}
}

func (ob *OrderBook) appendToLevel(level *priceLevel, handle uint32, entry *orderEntry) {
	entry.prev = level.tail
	entry.next = pool.Invalid
	if level.tail != pool.Invalid {
		ob.pool.Get(level.tail).next = handle
	} else {
		level.head = handle
	}
	level.tail = handle
	level.totalQuantity += entry.remaining()
	level.orderCount++
}

// CancelOrder removes a resting order. Returns false if id is unknown.
func (ob *OrderBook) CancelOrder(id types.OrderID) bool {
	handle, ok := ob.orders[id]
	if !ok {
		return false
	}
	entry := ob.pool.Get(handle)
	entry.status = types.Cancelled
	ob.removeFromBook(handle, entry)
	delete(ob.orders, id)
	ob.pool.Release(handle)
	return true
}

func (ob *OrderBook) removeFromBook(handle uint32, entry *orderEntry) {
	if entry.side == types.Buy {
		level, ok := ob.bidLevels[entry.price]
		if ok {
			ob.unlinkFromLevel(level, handle, entry)
			if level.head == pool.Invalid {
				delete(ob.bidLevels, entry.price)
				ob.bidPrices = removeSortedPrice(ob.bidPrices, entry.price)
			}
		}
		ob.updateBestBid()
	} else {
		level, ok := ob.askLevels[entry.price]
		if ok {
			ob.unlinkFromLevel(level, handle, entry)
			if level.head == pool.Invalid {
				delete(ob.askLevels, entry.price)
				ob.askPrices = removeSortedPrice(ob.askPrices, entry.price)
			}
		}
		ob.updateBestAsk()
	}
}

// ModifyOrder cancels and re-submits id with new parameters. The order
// loses its time priority.
func (ob *OrderBook) ModifyOrder(id types.OrderID, newPrice types.Price, newQuantity types.Quantity) []types.Trade {
	handle, ok := ob.orders[id]
	if !ok {
		return nil
	}
	entry := ob.pool.Get(handle)
	side, otype, ts := entry.side, entry.otype, entry.timestamp

	ob.removeFromBook(handle, entry)
	delete(ob.orders, id)
	ob.pool.Release(handle)

	return ob.AddOrder(id, side, otype, newPrice, newQuantity, ts)
}

func (ob *OrderBook) updateBestBid() {
	if len(ob.bidPrices) == 0 {
		ob.bestBid = 0
		ob.bestBidQty = 0
		return
	}
	p := ob.bidPrices[0]
	ob.bestBid = p
	ob.bestBidQty = ob.bidLevels[p].totalQuantity
}

func (ob *OrderBook) updateBestAsk() {
	if len(ob.askPrices) == 0 {
		ob.bestAsk = 0
		ob.bestAskQty = 0
		return
	}
	p := ob.askPrices[0]
	ob.bestAsk = p
	ob.bestAskQty = ob.askLevels[p].totalQuantity
}

func (ob *OrderBook) BestBid() types.Price            { return ob.bestBid }
func (ob *OrderBook) BestAsk() types.Price            { return ob.bestAsk }
func (ob *OrderBook) BestBidQuantity() types.Quantity { return ob.bestBidQty }
func (ob *OrderBook) BestAskQuantity() types.Quantity { return ob.bestAskQty }

// Spread returns ask - bid, or 0 if either side is empty.
func (ob *OrderBook) Spread() types.Price {
	if len(ob.bidPrices) == 0 || len(ob.askPrices) == 0 {
		return 0
	}
	return ob.bestAsk - ob.bestBid
}

// GetDepth fills up to maxLevels rows per side, best price first.
func (ob *OrderBook) GetDepth(maxLevels int) (bids, asks []DepthEntry) {
	for i := 0; i < maxLevels && i < len(ob.bidPrices); i++ {
		p := ob.bidPrices[i]
		l := ob.bidLevels[p]
		bids = append(bids, DepthEntry{Price: p, Quantity: l.totalQuantity, OrderCount: l.orderCount})
	}
	for i := 0; i < maxLevels && i < len(ob.askPrices); i++ {
		p := ob.askPrices[i]
		l := ob.askLevels[p]
		asks = append(asks, DepthEntry{Price: p, Quantity: l.totalQuantity, OrderCount: l.orderCount})
	}
	return bids, asks
}

// VWAP computes the volume-weighted average price over the top levels
// levels deep on the given side. Returns 0 if the side is empty.
func (ob *OrderBook) VWAP(side types.Side, levels int) float64 {
	var totalValue, totalQty float64
	prices, levelMap := ob.bidPrices, ob.bidLevels
	if side == types.Sell {
		prices, levelMap = ob.askPrices, ob.askLevels
	}
	for i := 0; i < levels && i < len(prices); i++ {
		l := levelMap[prices[i]]
		qty := float64(l.totalQuantity)
		totalValue += float64(l.price) * qty
		totalQty += qty
	}
	if totalQty == 0 {
		return 0
	}
	return totalValue / totalQty
}

func insertSortedDesc(s []types.Price, p types.Price) []types.Price {
	i := sort.Search(len(s), func(i int) bool { return s[i] <= p })
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = p
	return s
}

func insertSortedAsc(s []types.Price, p types.Price) []types.Price {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= p })
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = p
	return s
}

func removeSortedPrice(s []types.Price, p types.Price) []types.Price {
	for i, v := range s {
		if v == p {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
