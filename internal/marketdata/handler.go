package marketdata

import (
	"hash/fnv"

	"github.com/wojciech-wais/low-latency-trading-system/internal/ring"
	"github.com/wojciech-wais/low-latency-trading-system/internal/types"
)

// knownSymbols holds the five compile-time known symbol-to-instrument
// mappings. Anything else falls back to a bounded hash.
var knownSymbols = map[string]types.InstrumentID{
	"AAPL": 0,
	"GOOG": 1,
	"MSFT": 2,
	"AMZN": 3,
	"TSLA": 4,
}

// hashFallbackBase is the first instrument id reserved for the hash
// fallback. Ids 0-4 are reserved for knownSymbols, so the fallback
// range is disjoint from them and collisions can only occur among
// unknown symbols, never against a compile-time known one.
const hashFallbackBase = 5

// SymbolToInstrumentID maps a ticker symbol to an InstrumentID. Known
// symbols map to their fixed ids; anything else hashes into
// [hashFallbackBase, MaxInstruments).
func SymbolToInstrumentID(symbol string) types.InstrumentID {
	if id, ok := knownSymbols[symbol]; ok {
		return id
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol))
	span := uint32(types.MaxInstruments - hashFallbackBase)
	return types.InstrumentID(hashFallbackBase + h.Sum32()%span)
}

// Handler parses tag-value frames and publishes MarketDataMessages onto
// an SPSC ring, counting drops on overflow rather than blocking.
type Handler struct {
	parser   *Parser
	out      *ring.SPSC[types.MarketDataMessage]
	dropped  uint64
	parsed   uint64
	ignored  uint64
	rejected uint64
}

func NewHandler(out *ring.SPSC[types.MarketDataMessage]) *Handler {
	return &Handler{parser: NewParser(), out: out}
}

// HandleFrame parses message and, if it carries market data, publishes
// the resulting MarketDataMessage. Snapshots ('W') carry the quote
// fields, execution reports ('8') the last-trade fields. New-order
// frames ('D') are order entry, not market data, and are counted but
// not published. Returns false if the frame failed to parse, carried
// no publishable data, or the output ring was full (counted as a drop).
func (h *Handler) HandleFrame(message string) bool {
	if !h.parser.Parse(message) {
		h.rejected++
		return false
	}

	var msg types.MarketDataMessage
	switch h.parser.MsgType() {
	case "W":
		msg = types.MarketDataMessage{
			Instrument:  SymbolToInstrumentID(h.parser.Symbol()),
			BidPrice:    h.parser.BidPrice(),
			AskPrice:    h.parser.AskPrice(),
			BidQuantity: h.parser.BidSize(),
			AskQuantity: h.parser.AskSize(),
			Timestamp:   types.NowNS(),
			MsgType:     types.MDSnapshot,
		}
	case "8":
		msg = types.MarketDataMessage{
			Instrument:   SymbolToInstrumentID(h.parser.Symbol()),
			LastPrice:    h.parser.Price(),
			LastQuantity: h.parser.Quantity(),
			Timestamp:    types.NowNS(),
			MsgType:      types.MDExecutionRpt,
		}
	case "D":
		h.ignored++
		return false
	default:
		h.rejected++
		return false
	}

	h.parsed++
	if !h.out.TryPush(msg) {
		h.dropped++
		return false
	}
	return true
}

func (h *Handler) Parsed() uint64   { return h.parsed }
func (h *Handler) Dropped() uint64  { return h.dropped }
func (h *Handler) Ignored() uint64  { return h.ignored }
func (h *Handler) Rejected() uint64 { return h.rejected }
