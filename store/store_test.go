// -----------------------------------------------------------------------------
// store_test.go — Unit-tests for the security store slot table
// -----------------------------------------------------------------------------
//
//  Verifies: slot lifecycle (add/remove/clear), capacity exhaustion, the
//  update/snapshot protocols with level zero-fill, derived snapshot math,
//  and the single-writer/multi-reader coherence contract under real
//  concurrent readers.
// -----------------------------------------------------------------------------

package store

import (
	"sync"
	"sync/atomic"
	"testing"

	"main/constants"
	"main/types"
)

func id(symbol string) types.SecurityID {
	return types.SecurityIDFromString(symbol)
}

// l2 builds an update with n descending bid levels from bid0 and n
// ascending ask levels from ask0, all quantities qty.
func l2(sym string, bid0, ask0 types.Price, n uint8, qty uint64) types.MarketDataL2Message {
	var msg types.MarketDataL2Message
	msg.Header.Length = types.MessageSize
	msg.Header.Type = types.MsgTypeMarketDataL2
	msg.SecurityID = id(sym)
	msg.TimestampNs = 1
	msg.NumBidLevels = n
	msg.NumAskLevels = n
	for i := uint8(0); i < n; i++ {
		msg.Bids[i] = PriceLevel{Price: bid0 - types.Price(i)*100, Quantity: qty}
		msg.Asks[i] = PriceLevel{Price: ask0 + types.Price(i)*100, Quantity: qty}
	}
	return msg
}

func TestAddRemoveLifecycle(t *testing.T) {
	st := New()

	if !st.AddSecurity(id("AAPL")) {
		t.Fatal("first add failed")
	}
	if st.AddSecurity(id("AAPL")) {
		t.Fatal("duplicate add succeeded")
	}
	if !st.Contains(id("AAPL")) || st.Size() != 1 {
		t.Fatal("store does not reflect the added security")
	}

	if !st.RemoveSecurity(id("AAPL")) {
		t.Fatal("remove failed")
	}
	if st.RemoveSecurity(id("AAPL")) {
		t.Fatal("second remove succeeded")
	}
	if st.Contains(id("AAPL")) || st.Size() != 0 {
		t.Fatal("store still reflects the removed security")
	}
}

// TestAddUpdateSnapshot drives the reference scenario: three-deep book on
// AAPL with known best prices, mid, and spread.
func TestAddUpdateSnapshot(t *testing.T) {
	st := New()
	st.AddSecurity(id("AAPL"))

	msg := l2("AAPL", types.PriceFromRaw(1_750_000), types.PriceFromRaw(1_750_500), 3, 1000)
	msg.Bids[0].Quantity = 1000
	if !st.UpdateFromL2(&msg) {
		t.Fatal("update for a live security failed")
	}

	var snap SecuritySnapshot
	if !st.Snapshot(id("AAPL"), &snap) {
		t.Fatal("snapshot for a live security failed")
	}

	if snap.BestBid.Raw() != 1_750_000 || snap.BestAsk.Raw() != 1_750_500 {
		t.Fatalf("best bid/ask = %d/%d, want 1750000/1750500", snap.BestBid.Raw(), snap.BestAsk.Raw())
	}
	if snap.NumBidLevels != 3 || snap.NumAskLevels != 3 {
		t.Fatalf("levels = %d/%d, want 3/3", snap.NumBidLevels, snap.NumAskLevels)
	}
	if snap.Bids[0].Quantity != 1000 {
		t.Fatalf("bids[0].quantity = %d, want 1000", snap.Bids[0].Quantity)
	}
	if snap.UpdateCount != 1 {
		t.Fatalf("update count = %d, want 1", snap.UpdateCount)
	}
	if mid := snap.MidPrice(); mid.Raw() != 1_750_250 {
		t.Fatalf("mid = %d, want 1750250", mid.Raw())
	}
	if bps := snap.SpreadBps(); bps < 2.85 || bps > 2.87 {
		t.Fatalf("spread = %v bps, want ≈2.857", bps)
	}
}

func TestUpdateUnknownSecurity(t *testing.T) {
	st := New()
	msg := l2("GHOST", 100, 200, 1, 1)
	if st.UpdateFromL2(&msg) {
		t.Fatal("update for an unknown security succeeded")
	}
}

// TestZeroLevelsLeaveBestUnchanged checks that an empty side neither moves
// the best price nor leaves stale depth behind.
func TestZeroLevelsLeaveBestUnchanged(t *testing.T) {
	st := New()
	st.AddSecurity(id("MSFT"))

	first := l2("MSFT", types.PriceFromDollars(350.00), types.PriceFromDollars(350.05), 5, 10)
	st.UpdateFromL2(&first)

	second := l2("MSFT", 0, 0, 0, 0)
	second.NumAskLevels = 1
	second.Asks[0] = PriceLevel{Price: types.PriceFromDollars(350.10), Quantity: 7}
	st.UpdateFromL2(&second)

	var snap SecuritySnapshot
	st.Snapshot(id("MSFT"), &snap)

	if snap.BestBid != types.PriceFromDollars(350.00) {
		t.Fatal("empty bid side moved the best bid")
	}
	if snap.NumBidLevels != 0 {
		t.Fatalf("bid levels = %d, want 0 after empty-side update", snap.NumBidLevels)
	}
	for i, lvl := range snap.Bids {
		if lvl != (PriceLevel{}) {
			t.Fatalf("stale bid level %d survived: %+v", i, lvl)
		}
	}
	if snap.NumAskLevels != 1 || snap.Asks[0].Quantity != 7 {
		t.Fatal("shallow ask side not applied")
	}
	for i := 1; i < constants.BookDepth; i++ {
		if snap.Asks[i] != (PriceLevel{}) {
			t.Fatalf("stale ask level %d survived", i)
		}
	}
}

// TestCapacityExhaustion fills every slot, checks the overflow add fails,
// and verifies a freed slot is immediately reusable.
func TestCapacityExhaustion(t *testing.T) {
	st := New()

	for i := 0; i < constants.MaxSecurities; i++ {
		sym := types.SecurityID{'S', byte('A' + i/26%26), byte('A' + i%26), byte('0' + i/676)}
		if !st.AddSecurity(sym) {
			t.Fatalf("add %d failed below capacity", i)
		}
	}
	if st.Size() != constants.MaxSecurities {
		t.Fatalf("size = %d, want %d", st.Size(), constants.MaxSecurities)
	}

	if st.AddSecurity(id("OVER")) {
		t.Fatal("add beyond capacity succeeded")
	}

	victim := types.SecurityID{'S', 'A', 'A', '0'}
	if !st.RemoveSecurity(victim) {
		t.Fatal("remove of a full-table resident failed")
	}
	if !st.AddSecurity(id("OVER")) {
		t.Fatal("add after freeing a slot failed")
	}
}

func TestClear(t *testing.T) {
	st := New()
	st.AddSecurity(id("AAPL"))
	st.AddSecurity(id("MSFT"))

	st.Clear()
	if st.Size() != 0 || st.Contains(id("AAPL")) || len(st.AllSecurities()) != 0 {
		t.Fatal("clear left live slots behind")
	}

	if !st.AddSecurity(id("AAPL")) {
		t.Fatal("add after clear failed")
	}
}

func TestAllSecurities(t *testing.T) {
	st := New()
	want := map[string]bool{"AAPL": true, "MSFT": true, "TSLA": true}
	for sym := range want {
		st.AddSecurity(id(sym))
	}

	got := st.AllSecurities()
	if len(got) != len(want) {
		t.Fatalf("listed %d securities, want %d", len(got), len(want))
	}
	for _, g := range got {
		if !want[g.String()] {
			t.Fatalf("unexpected security %q", g.String())
		}
	}
}

// TestConcurrentReadersNeverSeeCrossedBook runs one writer against four
// snapshot readers. The writer keeps every bid strictly below every ask
// across the whole run, so any interleaving of adjacent updates must still
// satisfy bid < ask.
func TestConcurrentReadersNeverSeeCrossedBook(t *testing.T) {
	const updates = 1000

	st := New()
	st.AddSecurity(id("TSLA"))

	var stopReaders atomic.Bool
	var crossed atomic.Bool
	var wg sync.WaitGroup

	for reader := 0; reader < 4; reader++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var snap SecuritySnapshot
			for !stopReaders.Load() {
				if !st.Snapshot(id("TSLA"), &snap) {
					continue
				}
				if !snap.BestBid.IsZero() && !snap.BestAsk.IsZero() && snap.BestBid > snap.BestAsk {
					crossed.Store(true)
					return
				}
			}
		}()
	}

	for i := 0; i < updates; i++ {
		msg := l2("TSLA",
			types.PriceFromRaw(uint64(2_500_000+i)),
			types.PriceFromRaw(uint64(2_600_000+i)),
			5, uint64(100+i))
		msg.TimestampNs = uint64(i + 1)
		if !st.UpdateFromL2(&msg) {
			t.Fatal("writer update failed")
		}
	}

	stopReaders.Store(true)
	wg.Wait()

	if crossed.Load() {
		t.Fatal("a reader observed a crossed book")
	}

	var snap SecuritySnapshot
	st.Snapshot(id("TSLA"), &snap)
	if snap.UpdateCount != updates {
		t.Fatalf("update count = %d, want %d", snap.UpdateCount, updates)
	}
}

// TestConcurrentAddersOneWinner races adders for 512 distinct securities
// into an empty 256-slot table and checks the claim protocol never
// double-books a slot.
func TestConcurrentAddersOneWinner(t *testing.T) {
	st := New()

	var wg sync.WaitGroup
	var added atomic.Int64
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 64; i++ {
				sym := types.SecurityID{byte('A' + g), byte('A' + i/26), byte('A' + i%26)}
				if st.AddSecurity(sym) {
					added.Add(1)
				}
			}
		}(g)
	}
	wg.Wait()

	// 8×64 = 512 distinct ids raced into 256 slots: exactly capacity wins.
	if added.Load() != constants.MaxSecurities {
		t.Fatalf("adds succeeded = %d, want %d", added.Load(), constants.MaxSecurities)
	}
	if st.Size() != constants.MaxSecurities {
		t.Fatalf("size = %d, want %d", st.Size(), constants.MaxSecurities)
	}
}
