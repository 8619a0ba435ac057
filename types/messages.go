// ============================================================================
// L2 MARKET DATA MESSAGE - FIXED WIRE LAYOUT
// ============================================================================
//
// Fixed-size message records moved through the SPSC ring and across the UDP
// publisher. Every structure here has an exact, asserted byte layout so a
// message can be cast to and from its wire form with a single 192-byte copy.
//
// Layout analysis (MarketDataL2Message, 192 bytes, native little-endian):
//   offset size field
//   0      8    Header {SeqNo u32, Length u16, Type u16}
//   8      8    SecurityID [8]byte
//   16     8    TimestampNs u64
//   24     80   Bids [5]{Price u64, Quantity u64}
//   104    80   Asks [5]{Price u64, Quantity u64}
//   184    1    NumBidLevels u8
//   185    1    NumAskLevels u8
//   186    6    padding to 8-byte alignment
//
// Ordering contract:
//   - Bids sorted strictly descending by price, asks strictly ascending.
//   - NumBidLevels/NumAskLevels ≤ BookDepth; entries beyond the count are
//     carried but undefined and must be ignored by consumers.
//
// ⚠️ The codec casts struct memory directly — layouts are verified by the
// init-time assertions below and must never change without a wire bump.

package types

import (
	"unsafe"

	"main/constants"
)

// ============================================================================
// MESSAGE TYPE REGISTRY
// ============================================================================

const (
	// MsgTypeMarketDataL2 tags a 192-byte five-deep book update.
	MsgTypeMarketDataL2 uint16 = 1
)

// MessageSize is the exact wire size of a MarketDataL2Message.
const MessageSize = 192

// ============================================================================
// CORE DATA STRUCTURES
// ============================================================================

// SecurityID is an 8-byte ASCII symbol, NUL-padded on the right.
// Equality is byte-wise; ordering is unspecified.
type SecurityID [constants.MaxSymbolLength]byte

// SecurityIDFromString builds an id from a symbol string. Symbols longer
// than 8 bytes keep their first 8 bytes; shorter ones are NUL-padded.
//
//go:inline
func SecurityIDFromString(symbol string) SecurityID {
	var id SecurityID
	copy(id[:], symbol)
	return id
}

// String trims the NUL padding back off for display paths. Allocates;
// never call on the hot path.
func (id SecurityID) String() string {
	n := 0
	for n < len(id) && id[n] != 0 {
		n++
	}
	return string(id[:n])
}

// IsZero reports an all-NUL (unset) id.
//
//go:inline
func (id SecurityID) IsZero() bool {
	return id == SecurityID{}
}

// PriceLevel is one rung of a book side: 16 bytes, no padding.
type PriceLevel struct {
	Price    Price  // 8B - level price, fixed point
	Quantity uint64 // 8B - displayed quantity at this level
}

// MessageHeader prefixes every wire message: 8 bytes, no padding.
type MessageHeader struct {
	SeqNo  uint32 // 4B - per-source monotone sequence number
	Length uint16 // 2B - total message length in bytes
	Type   uint16 // 2B - message type tag (MsgType*)
}

// MarketDataL2Message is a five-deep book update for one security.
// Fixed 192-byte record; see the layout analysis in the file header.
//
//go:notinheap
//go:align 64
type MarketDataL2Message struct {
	Header       MessageHeader                       // 8B
	SecurityID   SecurityID                          // 8B
	TimestampNs  uint64                              // 8B - nanoseconds, stamped by the producer path
	Bids         [constants.BookDepth]PriceLevel     // 80B - descending
	Asks         [constants.BookDepth]PriceLevel     // 80B - ascending
	NumBidLevels uint8                               // 1B - valid bid entries, ≤ BookDepth
	NumAskLevels uint8                               // 1B - valid ask entries, ≤ BookDepth
	_            [6]byte                             // 6B - pad record to 8-byte multiple
}

// ============================================================================
// LAYOUT ASSERTIONS
// ============================================================================

func init() {
	if unsafe.Sizeof(PriceLevel{}) != 16 {
		panic("types: PriceLevel size is not 16 bytes")
	}
	if unsafe.Sizeof(MessageHeader{}) != 8 {
		panic("types: MessageHeader size is not 8 bytes")
	}
	if unsafe.Sizeof(MarketDataL2Message{}) != MessageSize {
		panic("types: MarketDataL2Message size is not 192 bytes")
	}
}

// ============================================================================
// WIRE CODEC - SINGLE-COPY CASTS
// ============================================================================

// Encode copies the message into its exact wire form. Native endianness:
// the wire format is defined for little-endian hosts only.
//
//go:nosplit
//go:inline
func (m *MarketDataL2Message) Encode(out *[MessageSize]byte) {
	*out = *(*[MessageSize]byte)(unsafe.Pointer(m))
}

// DecodeL2 reinterprets a 192-byte wire record as a message. The input is
// copied; the returned message does not alias the buffer.
//
//go:nosplit
//go:inline
func DecodeL2(in *[MessageSize]byte) MarketDataL2Message {
	return *(*MarketDataL2Message)(unsafe.Pointer(in))
}
