// snapshot.go — Plain-value copy of one store slot at an instant.

package store

import (
	"main/constants"
	"main/types"
)

// SecuritySnapshot is a reader's copy of one slot. Plain data, freely
// copyable; derived accessors below.
type SecuritySnapshot struct {
	SecurityID     types.SecurityID
	BestBid        types.Price
	BestAsk        types.Price
	LastTradePrice types.Price
	LastUpdateNs   uint64
	NumBidLevels   uint8
	NumAskLevels   uint8
	Bids           [constants.BookDepth]PriceLevel
	Asks           [constants.BookDepth]PriceLevel
	UpdateCount    uint64
	TotalVolume    uint64
}

// MidPrice returns the arithmetic mean of the best bid and ask. When either
// side is unknown it falls back to the last trade price — which stays zero
// under sources with no trade stream, so a zero return is a valid "unknown".
//
//go:inline
func (s *SecuritySnapshot) MidPrice() types.Price {
	if s.BestBid.IsZero() || s.BestAsk.IsZero() {
		return s.LastTradePrice
	}
	return s.BestBid.Add(s.BestAsk).Div(2)
}

// SpreadBps returns the bid/ask spread in basis points of the mid price.
// Zero when either side or the mid is unknown.
func (s *SecuritySnapshot) SpreadBps() float64 {
	if s.BestBid.IsZero() || s.BestAsk.IsZero() {
		return 0.0
	}
	mid := s.MidPrice()
	if mid.IsZero() {
		return 0.0
	}
	return s.BestAsk.Sub(s.BestBid).Dollars() / mid.Dollars() * 10000.0
}
