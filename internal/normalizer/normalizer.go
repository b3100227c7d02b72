// Package normalizer translates venue-specific book ticker messages into
// canonical quotes. Translation is pure: no side effects, no I/O.
package normalizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/you/arb-core/internal/types"
)

var (
	// ErrMalformedMessage marks messages missing required fields or
	// carrying values of the wrong semantic type.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrUnknownPair marks messages whose venue symbol has no canonical
	// pair mapping.
	ErrUnknownPair = errors.New("unknown pair")
)

// rawBookTicker is the wire shape shared by the supported venue feeds:
// prices and sizes as decimal strings, a per-symbol update id and an
// optional event time in unix milliseconds.
type rawBookTicker struct {
	Symbol  string `json:"s"`
	BidPx   string `json:"b"`
	BidQty  string `json:"B"`
	AskPx   string `json:"a"`
	AskQty  string `json:"A"`
	Seq     uint64 `json:"u"`
	EventMs int64  `json:"E"`
}

type Normalizer struct {
	venue   types.VenueID
	symbols map[string]types.Pair
	now     func() time.Time
}

func New(venue types.VenueID, symbols map[string]types.Pair) *Normalizer {
	return &Normalizer{venue: venue, symbols: symbols, now: time.Now}
}

// Normalize converts one raw venue message into a canonical Quote.
func (n *Normalizer) Normalize(raw []byte) (types.Quote, error) {
	var m rawBookTicker
	if err := json.Unmarshal(raw, &m); err != nil {
		return types.Quote{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if m.Symbol == "" {
		return types.Quote{}, fmt.Errorf("%w: missing symbol", ErrMalformedMessage)
	}
	if m.Seq == 0 {
		return types.Quote{}, fmt.Errorf("%w: missing sequence", ErrMalformedMessage)
	}

	pair, ok := n.symbols[m.Symbol]
	if !ok {
		return types.Quote{}, fmt.Errorf("%w: %s %s", ErrUnknownPair, n.venue, m.Symbol)
	}

	bid, err := parsePx("bid", m.BidPx)
	if err != nil {
		return types.Quote{}, err
	}
	ask, err := parsePx("ask", m.AskPx)
	if err != nil {
		return types.Quote{}, err
	}
	bidQty, err := parseQty("bid qty", m.BidQty)
	if err != nil {
		return types.Quote{}, err
	}
	askQty, err := parseQty("ask qty", m.AskQty)
	if err != nil {
		return types.Quote{}, err
	}

	observed := n.now()
	if m.EventMs > 0 {
		observed = time.UnixMilli(m.EventMs)
	}

	return types.Quote{
		Venue:      n.venue,
		Pair:       pair,
		BidPx:      bid,
		BidQty:     bidQty,
		AskPx:      ask,
		AskQty:     askQty,
		Seq:        m.Seq,
		ObservedAt: observed,
	}, nil
}

func parsePx(field, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: bad %s %q", ErrMalformedMessage, field, s)
	}
	return v, nil
}

func parseQty(field, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: bad %s %q", ErrMalformedMessage, field, s)
	}
	return v, nil
}
