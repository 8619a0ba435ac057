// ============================================================================
// SECURITY STORE - SINGLE-WRITER / MULTI-READER SLOT TABLE
// ============================================================================
//
// Fixed-capacity consolidated state table: one cache-aligned slot per
// security, updated by exactly one writer thread (the feed's consumer) and
// read concurrently by any number of snapshot readers. Last-write-wins; no
// reconciliation, no history.
//
// Architecture overview:
//   - 256 address-stable slots, claimed and released via a per-slot atomic
//     state word; linear scan lookup (see constants.MaxSecurities rationale)
//   - Writer protocol publishes per-side level data under an acquire/release
//     pairing on numLevels, so readers never observe a level entry that was
//     not written before the corresponding count
//   - Cross-field snapshots are deliberately NOT atomic: a reader may see a
//     mix of two adjacent updates, which is acceptable for a consolidated
//     last-write-wins view
//
// Slot lifecycle (per-slot state word):
//   slotFree ──AddSecurity claim──▶ slotClaim ──init + publish──▶ slotLive
//   slotLive ──RemoveSecurity/Clear──▶ slotFree
//
//   The claim CAS linearizes concurrent AddSecurity racers on one slot:
//   exactly one wins, initializes the fields, and only then publishes
//   slotLive with release ordering. Readers id-match with an acquire load,
//   so a live slot always carries fully initialized immutable fields.
//
// Safety model:
//   - All operations are wait-free and allocation-free except the
//     convenience accessors that return slices
//   - UpdateFromL2 must only ever run on one thread at a time
//   - ⚠️  Level arrays are copied non-atomically by design; coherence is
//     guaranteed only per side, via the numLevels protocol

package store

import (
	"sync/atomic"

	"main/constants"
	"main/types"
)

// Per-slot occupancy states.
const (
	slotFree  uint32 = iota // unoccupied, claimable
	slotClaim               // won by an AddSecurity racer, fields initializing
	slotLive                // initialized and visible to readers and the writer
)

// ============================================================================
// CORE DATA STRUCTURES
// ============================================================================

// OrderBookSide holds one side of a stored book. The level array is plain
// memory guarded by the numLevels publication protocol.
type OrderBookSide struct {
	numLevels atomic.Uint32                   // 4B - valid entries, release-published last
	_         [4]byte                         // 4B - align levels to 8
	levels    [constants.BookDepth]PriceLevel // 80B - level storage, writer-owned
}

// PriceLevel aliases the wire-level type; stored verbatim.
type PriceLevel = types.PriceLevel

// SecurityData is one store slot. Cache-line padded and address-stable:
// slots are never copied or moved after construction.
//
// Memory layout (256 bytes, 4 cache lines):
//   - Bytes 0-47: state word, security id, best bid/ask, last trade,
//     last update time
//   - Bytes 48-223: bid side, then ask side (88 bytes each)
//   - Bytes 224-255: update/volume counters, padding
//
//go:notinheap
//go:align 64
type SecurityData struct {
	state atomic.Uint32    // 4B - slotFree/slotClaim/slotLive
	_     [4]byte          // 4B - align id
	id    types.SecurityID // 8B - immutable between claim and release

	bestBid      atomic.Uint64 // 8B - raw Price, 0 = unknown
	bestAsk      atomic.Uint64 // 8B - raw Price, 0 = unknown
	lastTrade    atomic.Uint64 // 8B - raw Price, 0 = unknown (no trade stream)
	lastUpdateNs atomic.Uint64 // 8B - release-published first on every update

	bids OrderBookSide // 88B
	asks OrderBookSide // 88B

	updateCount atomic.Uint64 // 8B - messages applied to this slot
	totalVolume atomic.Uint64 // 8B - reserved accumulator (no trade stream)

	_ [16]byte // pad slot to a 64-byte multiple
}

// matches reports whether the slot is live and carries the given id.
// The acquire load pairs with the claim path's release publish, making the
// id (written before slotLive) visible to every matching reader.
//
//go:nosplit
//go:inline
func (s *SecurityData) matches(id types.SecurityID) bool {
	return s.state.Load() == slotLive && s.id == id
}

// initialize resets all per-security state and publishes the slot live.
// Only ever called by the single AddSecurity claim winner.
func (s *SecurityData) initialize(id types.SecurityID) {
	s.id = id
	s.bestBid.Store(0)
	s.bestAsk.Store(0)
	s.lastTrade.Store(0)
	s.lastUpdateNs.Store(0)
	s.updateCount.Store(0)
	s.totalVolume.Store(0)
	s.bids.numLevels.Store(0)
	s.asks.numLevels.Store(0)
	s.state.Store(slotLive) // release: everything above happens-before visibility
}

// deactivate retires the slot. Readers mid-snapshot may still observe the
// old field values; they were valid at the acquire of the state word.
//
//go:nosplit
//go:inline
func (s *SecurityData) deactivate() {
	s.state.Store(slotFree)
}

// ============================================================================
// SECURITY STORE
// ============================================================================

// SecurityStore is the consolidated per-security state table.
//
// Threading contract:
//   - UpdateFromL2: exactly one writer thread
//   - Snapshot/AllSecurities/Size/Contains: any threads
//   - AddSecurity/RemoveSecurity/Clear: any threads; serialized against each
//     other only by the per-slot claim protocol
type SecurityStore struct {
	securities  [constants.MaxSecurities]SecurityData
	activeCount atomic.Int64
}

// New constructs a store with every slot inactive. The slot table is the
// only allocation the store ever performs.
func New() *SecurityStore {
	return &SecurityStore{}
}

// find returns the live slot carrying id, or nil.
//
//go:nosplit
func (st *SecurityStore) find(id types.SecurityID) *SecurityData {
	for i := range st.securities {
		if st.securities[i].matches(id) {
			return &st.securities[i]
		}
	}
	return nil
}

// ============================================================================
// SLOT MANAGEMENT
// ============================================================================

// AddSecurity claims a free slot for id and publishes it live.
//
// Returns false when id is already present or every slot is claimed.
// Concurrent callers racing on the same free slot are linearized by the
// claim CAS: exactly one proceeds to initialize.
func (st *SecurityStore) AddSecurity(id types.SecurityID) bool {
	if st.find(id) != nil {
		return false
	}

	for i := range st.securities {
		slot := &st.securities[i]
		if slot.state.CompareAndSwap(slotFree, slotClaim) {
			slot.initialize(id)
			st.activeCount.Add(1)
			return true
		}
	}

	return false // Table full
}

// RemoveSecurity retires the slot carrying id. False if not found.
func (st *SecurityStore) RemoveSecurity(id types.SecurityID) bool {
	slot := st.find(id)
	if slot == nil {
		return false
	}

	slot.deactivate()
	st.activeCount.Add(-1)
	return true
}

// Clear retires every live slot.
func (st *SecurityStore) Clear() {
	for i := range st.securities {
		if st.securities[i].state.Load() == slotLive {
			st.securities[i].deactivate()
		}
	}
	st.activeCount.Store(0)
}

// Size returns the number of live slots.
//
//go:nosplit
//go:inline
func (st *SecurityStore) Size() int {
	return int(st.activeCount.Load())
}

// Contains reports whether id has a live slot.
//
//go:nosplit
//go:inline
func (st *SecurityStore) Contains(id types.SecurityID) bool {
	return st.find(id) != nil
}

// ============================================================================
// WRITER PATH
// ============================================================================

// UpdateFromL2 applies one message to the slot matching its security id.
// Single-writer only. Returns false when no live slot matches.
//
// Publication protocol (per update):
//  1. lastUpdateNs stored first — readers acquire it before anything else
//  2. Best prices stored relaxed, and only for sides with ≥1 level
//  3. Per side: level entries copied, remainder zeroed, THEN numLevels
//     published — a reader that observes numLevels == n is guaranteed to
//     observe levels[0..n) from this or a later update
//  4. updateCount incremented relaxed
//
//go:norace
func (st *SecurityStore) UpdateFromL2(msg *types.MarketDataL2Message) bool {
	slot := st.find(msg.SecurityID)
	if slot == nil {
		return false
	}

	slot.lastUpdateNs.Store(msg.TimestampNs)

	if msg.NumBidLevels > 0 {
		slot.bestBid.Store(msg.Bids[0].Price.Raw())
	}
	if msg.NumAskLevels > 0 {
		slot.bestAsk.Store(msg.Asks[0].Price.Raw())
	}

	updateBookSide(&slot.bids, &msg.Bids, msg.NumBidLevels)
	updateBookSide(&slot.asks, &msg.Asks, msg.NumAskLevels)

	slot.updateCount.Add(1)
	return true
}

// updateBookSide replaces one side's level array and publishes the count.
// Entries beyond the valid count are zeroed before publication so stale
// levels from a deeper previous update can never leak into a snapshot.
//
//go:nosplit
func updateBookSide(side *OrderBookSide, levels *[constants.BookDepth]PriceLevel, numLevels uint8) {
	n := int(numLevels)
	if n > constants.BookDepth {
		n = constants.BookDepth
	}

	copy(side.levels[:n], levels[:n])
	for i := n; i < constants.BookDepth; i++ {
		side.levels[i] = PriceLevel{}
	}

	side.numLevels.Store(uint32(n))
}

// ============================================================================
// READER PATH
// ============================================================================

// Snapshot copies the slot matching id into *out. False if not found.
//
// The copy is NOT atomic across fields: adjacent updates may interleave
// between sides or between the best prices and the level arrays. Each side
// is self-consistent — the numLevels acquire pairs with the writer's
// release, covering the level bytes copied below it.
//
//go:norace
func (st *SecurityStore) Snapshot(id types.SecurityID, out *SecuritySnapshot) bool {
	slot := st.find(id)
	if slot == nil {
		return false
	}

	out.SecurityID = slot.id
	out.LastUpdateNs = slot.lastUpdateNs.Load()
	out.BestBid = types.Price(slot.bestBid.Load())
	out.BestAsk = types.Price(slot.bestAsk.Load())
	out.LastTradePrice = types.Price(slot.lastTrade.Load())
	out.UpdateCount = slot.updateCount.Load()
	out.TotalVolume = slot.totalVolume.Load()

	out.NumBidLevels = uint8(slot.bids.numLevels.Load())
	out.NumAskLevels = uint8(slot.asks.numLevels.Load())

	out.Bids = slot.bids.levels
	out.Asks = slot.asks.levels

	return true
}

// AllSecurities returns the ids of every live slot. Allocates; advisory
// use only — a slot may retire between the scan and the caller's use.
func (st *SecurityStore) AllSecurities() []types.SecurityID {
	result := make([]types.SecurityID, 0, st.activeCount.Load())

	for i := range st.securities {
		slot := &st.securities[i]
		if slot.state.Load() == slotLive {
			result = append(result, slot.id)
		}
	}

	return result
}
