// Package marketdata implements the tag-value (FIX-like) frame parser,
// the handler that turns parsed frames into MarketDataMessages on an
// SPSC ring, and a synthetic feed generator for standalone simulation.
package marketdata

import (
	"strconv"
	"strings"

	"github.com/wojciech-wais/low-latency-trading-system/internal/types"
)

// MaxCommonTags bounds the flat array used for O(1) lookup of tags
// below this threshold; tags at or above it fall back to a small
// linear-scan slice.
const MaxCommonTags = 128

// Delimiter separates fields in a frame. Real FIX uses SOH (0x01); '|'
// is substituted here for readability.
const Delimiter = '|'

type extraField struct {
	tag   int
	value string
}

// Parser is a reusable tag-value frame parser. Call Parse, then read
// fields with Get* until the next Parse call, which resets all state.
type Parser struct {
	common []string
	extra  []extraField
	valid  bool
}

// NewParser constructs a ready-to-use Parser.
func NewParser() *Parser {
	return &Parser{common: make([]string, MaxCommonTags)}
}

// Parse decodes message into tag/value fields. Returns false if the
// message is empty, contains a non-numeric tag, or has no MsgType (35)
// field.
func (p *Parser) Parse(message string) bool {
	p.reset()
	if message == "" {
		return false
	}

	pos := 0
	for pos < len(message) {
		eq := strings.IndexByte(message[pos:], '=')
		if eq < 0 {
			break
		}
		eq += pos

		tag := 0
		for i := pos; i < eq; i++ {
			c := message[i]
			if c < '0' || c > '9' {
				p.valid = false
				return false
			}
			tag = tag*10 + int(c-'0')
		}

		delim := strings.IndexByte(message[eq+1:], Delimiter)
		var value string
		var next int
		if delim < 0 {
			value = message[eq+1:]
			next = len(message)
		} else {
			delim += eq + 1
			value = message[eq+1 : delim]
			next = delim
		}

		if tag > 0 && tag < MaxCommonTags {
			p.common[tag] = value
		} else {
			p.extra = append(p.extra, extraField{tag, value})
		}

		pos = next + 1
	}

	p.valid = p.MsgType() != ""
	return p.valid
}

func (p *Parser) reset() {
	for i := range p.common {
		p.common[i] = ""
	}
	p.extra = p.extra[:0]
	p.valid = false
}

func (p *Parser) Valid() bool { return p.valid }

// Get returns the raw field value for tag, or "" if absent.
func (p *Parser) Get(tag int) string {
	if tag > 0 && tag < MaxCommonTags {
		return p.common[tag]
	}
	for _, f := range p.extra {
		if f.tag == tag {
			return f.value
		}
	}
	return ""
}

func (p *Parser) MsgType() string { return p.Get(35) }

func (p *Parser) OrderID() types.OrderID {
	return types.OrderID(parseUint64(p.Get(11)))
}

func (p *Parser) Symbol() string { return p.Get(55) }

func (p *Parser) Side() types.Side {
	if p.Get(54) == "1" {
		return types.Buy
	}
	return types.Sell
}

func (p *Parser) Price() types.Price { return parsePriceField(p.Get(44)) }

func (p *Parser) Quantity() types.Quantity { return types.Quantity(parseUint64(p.Get(38))) }

func (p *Parser) OrderType() types.OrderType {
	switch p.Get(40) {
	case "1":
		return types.Market
	case "2":
		return types.Limit
	case "3":
		return types.IOC
	case "4":
		return types.FOK
	default:
		return types.Limit
	}
}

func (p *Parser) BidPrice() types.Price     { return parsePriceField(p.Get(132)) }
func (p *Parser) AskPrice() types.Price     { return parsePriceField(p.Get(133)) }
func (p *Parser) BidSize() types.Quantity   { return types.Quantity(parseUint64(p.Get(134))) }
func (p *Parser) AskSize() types.Quantity   { return types.Quantity(parseUint64(p.Get(135))) }

// parsePriceField parses a decimal string into fixed-point Price at
// PriceScale (2 digits), truncating any further fractional digits and
// zero-padding a short fraction. Digit-by-digit rather than
// strconv.ParseFloat so no float rounding enters the parse.
func parsePriceField(s string) types.Price {
	if s == "" {
		return 0
	}
	negative := false
	i := 0
	if s[0] == '-' {
		negative = true
		i++
	}

	var integerPart, decimalPart int64
	decimalDigits := 0
	inDecimal := false

	for ; i < len(s); i++ {
		c := s[i]
		if c == '.' {
			inDecimal = true
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		if inDecimal {
			if decimalDigits < 2 {
				decimalPart = decimalPart*10 + int64(c-'0')
				decimalDigits++
			}
		} else {
			integerPart = integerPart*10 + int64(c-'0')
		}
	}
	for decimalDigits < 2 {
		decimalPart *= 10
		decimalDigits++
	}

	result := types.Price(integerPart*types.PriceScale + decimalPart)
	if negative {
		result = -result
	}
	return result
}

func parseUint64(s string) uint64 {
	if s == "" {
		return 0
	}
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	v, err := strconv.ParseUint(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return v
}
