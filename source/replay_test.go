// -----------------------------------------------------------------------------
// replay_test.go — Journal capture, replay, and JSONL import tests
// -----------------------------------------------------------------------------
//
//  Verifies: recorded streams replay byte-identically (sha3 fingerprint
//  over the wire images), subscription filtering skips foreign rows, the
//  source stops itself at journal exhaustion, and the JSONL importer
//  tolerates malformed lines.
// -----------------------------------------------------------------------------

package source

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"main/types"

	"golang.org/x/crypto/sha3"
)

// journalPath returns a fresh sqlite path under the test's temp dir.
func journalPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "capture.db")
}

// captureMessages journals count messages for each listed symbol and
// returns the sha3 fingerprint of the first symbol's messages only.
func captureMessages(t *testing.T, path string, symbols []string, count int) [32]byte {
	t.Helper()

	rec, err := OpenRecorder(path)
	if err != nil {
		t.Fatalf("open recorder: %v", err)
	}

	hasher := sha3.New256()
	for i := 0; i < count; i++ {
		for _, sym := range symbols {
			var msg types.MarketDataL2Message
			msg.Header.SeqNo = uint32(i + 1)
			msg.Header.Length = types.MessageSize
			msg.Header.Type = types.MsgTypeMarketDataL2
			msg.SecurityID = types.SecurityIDFromString(sym)
			msg.TimestampNs = uint64(1000 + i)
			msg.NumBidLevels = 1
			msg.NumAskLevels = 1
			msg.Bids[0] = types.PriceLevel{Price: types.PriceFromDollars(100 + float64(i)), Quantity: 10}
			msg.Asks[0] = types.PriceLevel{Price: types.PriceFromDollars(101 + float64(i)), Quantity: 10}

			if err := rec.Append(&msg); err != nil {
				t.Fatalf("append: %v", err)
			}
			if sym == symbols[0] {
				var wire [types.MessageSize]byte
				msg.Encode(&wire)
				hasher.Write(wire[:])
			}
		}
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("close recorder: %v", err)
	}

	var sum [32]byte
	copy(sum[:], hasher.Sum(nil))
	return sum
}

// TestRecordReplayRoundTrip journals a two-symbol stream and replays it
// with a single-symbol subscription: the delivered stream must be
// byte-identical to the recorded rows for that symbol, in order.
func TestRecordReplayRoundTrip(t *testing.T) {
	path := journalPath(t)
	want := captureMessages(t, path, []string{"AAPL", "MSFT"}, 50)

	src := NewReplaySource(path, 0) // no pacing

	var mu sync.Mutex
	hasher := sha3.New256()
	delivered := 0
	src.SetCallback(func(m *types.MarketDataL2Message) {
		mu.Lock()
		var wire [types.MessageSize]byte
		m.Encode(&wire)
		hasher.Write(wire[:])
		delivered++
		mu.Unlock()
	})

	if !src.Subscribe(types.SecurityIDFromString("AAPL")) {
		t.Fatal("subscribe failed")
	}
	if !src.Start() {
		t.Fatal("start failed")
	}

	// Replay stops itself at journal exhaustion.
	deadline := time.After(5 * time.Second)
	for src.IsRunning() {
		select {
		case <-deadline:
			t.Fatal("replay never finished")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if delivered != 50 {
		t.Fatalf("delivered %d messages, want 50 (MSFT rows must be skipped)", delivered)
	}
	var got [32]byte
	copy(got[:], hasher.Sum(nil))
	if got != want {
		t.Fatal("replayed stream fingerprint differs from the recorded one")
	}
}

func TestReplayLifecycle(t *testing.T) {
	path := journalPath(t)
	captureMessages(t, path, []string{"TSLA"}, 5)

	src := NewReplaySource(path, 0)
	src.SetCallback(func(*types.MarketDataL2Message) {})

	if !src.Start() {
		t.Fatal("start failed")
	}
	if src.Start() {
		t.Fatal("double start succeeded")
	}
	src.Stop()
	src.Stop() // idempotent
	if src.IsRunning() {
		t.Fatal("stopped source reports running")
	}
}

func TestReplayMissingJournal(t *testing.T) {
	// sqlite will create an empty database file; the replay then finds no
	// rows and winds down on its own rather than failing to start.
	src := NewReplaySource(filepath.Join(t.TempDir(), "absent.db"), 0)
	src.SetCallback(func(*types.MarketDataL2Message) {})
	if !src.Start() {
		t.Fatal("start on a fresh journal path failed")
	}

	deadline := time.After(5 * time.Second)
	for src.IsRunning() {
		select {
		case <-deadline:
			t.Fatal("empty replay never finished")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

// TestImportJSONL feeds the importer a mixed capture: valid ticks, a
// malformed line, and an empty line.
func TestImportJSONL(t *testing.T) {
	path := journalPath(t)

	capture := strings.Join([]string{
		`{"s":"AAPL","t":1000,"b":[[175.01,300],[175.00,250]],"a":[[175.03,200]]}`,
		``,
		`{"s":"AAPL","t":2000,"b":[[175.02,100]],"a":[[175.04,50],[175.05,60]]}`,
		`{not json`,
		`{"t":3000,"b":[],"a":[]}`, // no symbol
	}, "\n")

	imported, skipped, err := ImportJSONL(path, strings.NewReader(capture))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if imported != 2 || skipped != 2 {
		t.Fatalf("imported/skipped = %d/%d, want 2/2", imported, skipped)
	}

	// Replay the imported journal and verify the normalized books.
	src := NewReplaySource(path, 0)

	var mu sync.Mutex
	var msgs []types.MarketDataL2Message
	src.SetCallback(func(m *types.MarketDataL2Message) {
		mu.Lock()
		msgs = append(msgs, *m)
		mu.Unlock()
	})
	src.Subscribe(types.SecurityIDFromString("AAPL"))
	if !src.Start() {
		t.Fatal("start failed")
	}

	deadline := time.After(5 * time.Second)
	for src.IsRunning() {
		select {
		case <-deadline:
			t.Fatal("replay never finished")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(msgs) != 2 {
		t.Fatalf("replayed %d messages, want 2", len(msgs))
	}
	first := msgs[0]
	if first.NumBidLevels != 2 || first.NumAskLevels != 1 {
		t.Fatalf("levels = %d/%d, want 2/1", first.NumBidLevels, first.NumAskLevels)
	}
	if first.Bids[0].Price != types.PriceFromDollars(175.01) || first.Bids[0].Quantity != 300 {
		t.Fatalf("bids[0] = %+v", first.Bids[0])
	}
	if first.TimestampNs != 1000 {
		t.Fatalf("timestamp = %d, want 1000", first.TimestampNs)
	}
}
