// Package execution simulates multi-venue order execution: a routing
// layer that picks a venue per order, and per-venue simulators that
// apply a fill-probability model over an internal order book.
package execution

import (
	"math/rand"

	"github.com/wojciech-wais/low-latency-trading-system/internal/orderbook"
	"github.com/wojciech-wais/low-latency-trading-system/internal/types"
)

// Config describes a single simulated venue.
type Config struct {
	ID              types.ExchangeID
	Name            string
	LatencyNS       uint64
	FillProbability float64
	Enabled         bool
}

// Exchange simulates a single venue: orders are either rejected
// outright (sampled against FillProbability) or matched against an
// internal order book, producing realistic partial fills.
type Exchange struct {
	config         Config
	book           *orderbook.OrderBook
	rng            *rand.Rand
	nextExecID     types.OrderID
	ordersProcessed uint64
	fillsCount     uint64
	rejectsCount   uint64
}

// NewExchange constructs a venue simulator. The PRNG is seeded
// deterministically from the venue's id (id*1000+42) so runs are
// reproducible.
func NewExchange(config Config) *Exchange {
	return &Exchange{
		config:     config,
		book:       orderbook.New(0),
		rng:        rand.New(rand.NewSource(int64(config.ID)*1000 + 42)),
		nextExecID: 1,
	}
}

func (e *Exchange) ID() types.ExchangeID     { return e.config.ID }
func (e *Exchange) Config() Config           { return e.config }
func (e *Exchange) OrdersProcessed() uint64  { return e.ordersProcessed }
func (e *Exchange) Fills() uint64            { return e.fillsCount }
func (e *Exchange) Rejects() uint64          { return e.rejectsCount }
func (e *Exchange) Book() *orderbook.OrderBook { return e.book }

// SubmitOrder applies the venue's fill-probability model and, if the
// order is not rejected outright, matches it against the venue's
// internal book.
func (e *Exchange) SubmitOrder(request types.OrderRequest) types.ExecutionReport {
	e.ordersProcessed++

	report := types.ExecutionReport{
		OrderID:    request.ID,
		ExecID:     e.nextExecID,
		Instrument: request.Instrument,
		Side:       request.Side,
		Timestamp:  types.NowNS() + types.Timestamp(e.config.LatencyNS),
		Exchange:   e.config.ID,
	}
	e.nextExecID++

	if e.rng.Float64() > e.config.FillProbability {
		e.rejectsCount++
		report.Status = types.Rejected
		report.Price = request.Price
		report.Quantity = request.Quantity
		report.FilledQuantity = 0
		report.LeavesQuantity = request.Quantity
		return report
	}

	trades := e.book.AddOrder(request.ID, request.Side, request.Type, request.Price, request.Quantity, request.Timestamp)

	if len(trades) > 0 {
		var totalFilled types.Quantity
		var lastFillPrice types.Price
		for _, tr := range trades {
			totalFilled += tr.Quantity
			lastFillPrice = tr.Price
		}
		leaves := request.Quantity - totalFilled
		report.FilledQuantity = totalFilled
		report.LeavesQuantity = leaves
		report.Price = lastFillPrice
		if leaves == 0 {
			report.Status = types.Filled
		} else {
			report.Status = types.PartiallyFilled
		}
		e.fillsCount++
		return report
	}

	if request.Type == types.IOC || request.Type == types.Market {
		report.Status = types.Cancelled
		report.Price = 0
		report.Quantity = 0
		report.FilledQuantity = 0
		report.LeavesQuantity = request.Quantity
	} else {
		report.Status = types.New
		report.Price = request.Price
		report.Quantity = request.Quantity
		report.FilledQuantity = 0
		report.LeavesQuantity = request.Quantity
	}
	return report
}

// CancelOrder attempts to cancel a resting order on this venue.
func (e *Exchange) CancelOrder(orderID types.OrderID) types.ExecutionReport {
	report := types.ExecutionReport{
		OrderID:   orderID,
		ExecID:    e.nextExecID,
		Timestamp: types.NowNS(),
		Exchange:  e.config.ID,
	}
	e.nextExecID++

	if e.book.CancelOrder(orderID) {
		report.Status = types.Cancelled
	} else {
		report.Status = types.Rejected
	}
	return report
}

// SeedBook seeds the venue's internal book with resting orders on both
// sides of midPrice, for more realistic subsequent fills.
func (e *Exchange) SeedBook(midPrice types.Price, levels int, qtyPerLevel types.Quantity) {
	oid := types.OrderID(900000000)
	for i := 1; i <= levels; i++ {
		e.book.AddOrder(oid, types.Buy, types.Limit, midPrice-types.Price(i), qtyPerLevel, 0)
		oid++
		e.book.AddOrder(oid, types.Sell, types.Limit, midPrice+types.Price(i), qtyPerLevel, 0)
		oid++
	}
}
