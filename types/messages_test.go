// -----------------------------------------------------------------------------
// messages_test.go — Wire layout and codec checks for the L2 message
// -----------------------------------------------------------------------------

package types

import (
	"testing"
	"unsafe"

	"main/utils"
)

// TestWireLayoutOffsets pins the field offsets the codec and every external
// receiver depend on. A failure here is a wire format break.
func TestWireLayoutOffsets(t *testing.T) {
	var m MarketDataL2Message

	base := uintptr(unsafe.Pointer(&m))
	offsets := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"Header", uintptr(unsafe.Pointer(&m.Header)) - base, 0},
		{"SecurityID", uintptr(unsafe.Pointer(&m.SecurityID)) - base, 8},
		{"TimestampNs", uintptr(unsafe.Pointer(&m.TimestampNs)) - base, 16},
		{"Bids", uintptr(unsafe.Pointer(&m.Bids)) - base, 24},
		{"Asks", uintptr(unsafe.Pointer(&m.Asks)) - base, 104},
		{"NumBidLevels", uintptr(unsafe.Pointer(&m.NumBidLevels)) - base, 184},
		{"NumAskLevels", uintptr(unsafe.Pointer(&m.NumAskLevels)) - base, 185},
	}
	for _, o := range offsets {
		if o.got != o.want {
			t.Fatalf("%s at offset %d, want %d", o.name, o.got, o.want)
		}
	}

	if size := unsafe.Sizeof(m); size != MessageSize {
		t.Fatalf("message size %d, want %d", size, MessageSize)
	}
}

func TestSecurityIDRoundTrip(t *testing.T) {
	cases := []struct{ in, out string }{
		{"", ""},
		{"V", "V"},
		{"AAPL", "AAPL"},
		{"EURUSD", "EURUSD"},
		{"ABCDEFGH", "ABCDEFGH"},
		{"TOOLONGSYMBOL", "TOOLONGS"}, // first 8 bytes survive
	}
	for _, c := range cases {
		if got := SecurityIDFromString(c.in).String(); got != c.out {
			t.Fatalf("round trip %q = %q, want %q", c.in, got, c.out)
		}
	}
}

func TestSecurityIDPadding(t *testing.T) {
	id := SecurityIDFromString("JPM")
	for i := 3; i < len(id); i++ {
		if id[i] != 0 {
			t.Fatalf("byte %d of short symbol = %d, want NUL", i, id[i])
		}
	}
	if id.IsZero() {
		t.Fatal("populated id must not be zero")
	}
	if !(SecurityID{}).IsZero() {
		t.Fatal("empty id must be zero")
	}
}

// TestCodecRoundTrip drives one fully populated message through the wire
// cast and back.
func TestCodecRoundTrip(t *testing.T) {
	var msg MarketDataL2Message
	msg.Header = MessageHeader{SeqNo: 7, Length: MessageSize, Type: MsgTypeMarketDataL2}
	msg.SecurityID = SecurityIDFromString("NVDA")
	msg.TimestampNs = 123456789
	msg.NumBidLevels = 3
	msg.NumAskLevels = 2
	for i := 0; i < 3; i++ {
		msg.Bids[i] = PriceLevel{Price: PriceFromDollars(450.0 - float64(i)*0.01), Quantity: uint64(100 + i)}
	}
	for i := 0; i < 2; i++ {
		msg.Asks[i] = PriceLevel{Price: PriceFromDollars(450.1 + float64(i)*0.01), Quantity: uint64(200 + i)}
	}

	var wire [MessageSize]byte
	msg.Encode(&wire)
	got := DecodeL2(&wire)

	if got != msg {
		t.Fatal("decoded message differs from the original")
	}
	if got.Asks[0].Price <= got.Bids[0].Price {
		t.Fatal("book crossed after round trip")
	}

	// Spot-check raw wire words at their specified offsets.
	if utils.Load64(wire[16:]) != msg.TimestampNs {
		t.Fatal("timestamp word not at offset 16")
	}
	if utils.Load64(wire[24:]) != msg.Bids[0].Price.Raw() {
		t.Fatal("first bid price word not at offset 24")
	}
}
