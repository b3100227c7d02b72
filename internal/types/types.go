package types

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/sha3"
)

// VenueID identifies a trading venue (CEX or on-chain liquidity source).
type VenueID string

// Pair is a canonical trading pair symbol, e.g. "BTC-USD".
type Pair string

// Quote is the latest best bid/ask observed on one venue for one pair.
// Quotes are immutable; a newer quote for the same (venue, pair) supersedes
// an older one, it never mutates it.
type Quote struct {
	Venue      VenueID
	Pair       Pair
	BidPx      float64
	BidQty     float64
	AskPx      float64
	AskQty     float64
	Seq        uint64
	ObservedAt time.Time
}

// Opportunity is a detected cross-venue spread: buy the ask on BuyVenue,
// sell into the bid on SellVenue.
type Opportunity struct {
	Pair       Pair      `json:"pair"`
	BuyVenue   VenueID   `json:"buy_venue"`
	SellVenue  VenueID   `json:"sell_venue"`
	BuyPx      float64   `json:"buy_px"`
	SellPx     float64   `json:"sell_px"`
	SpreadBps  float64   `json:"spread_bps"`
	NetBps     float64   `json:"net_bps"`     // spread net of fees and slippage
	NetQuote   float64   `json:"net_quote"`   // net profit in quote units per 1 base unit
	LatencyMs  float64   `json:"latency_ms"`  // combined venue latency estimate, used for ranking
	DetectedAt time.Time `json:"detected_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Key        string    `json:"key"`
}

// OpportunityKey hashes (pair, buy venue, sell venue) into a stable hex key.
// The key identifies a venue-pair ordering, not a detection instant: a new
// detection with the same key refreshes the previous one.
func OpportunityKey(pair Pair, buy, sell VenueID) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(pair))
	h.Write([]byte{'|'})
	h.Write([]byte(buy))
	h.Write([]byte{'|'})
	h.Write([]byte(sell))
	return hex.EncodeToString(h.Sum(nil))
}
