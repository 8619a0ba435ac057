// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: constants.go — Pipeline-wide tunables and sizing constants
//
// Purpose:
//   - Defines compile-time constants for ring sizing, store capacity,
//     book depth, and memory guardrails.
//   - Central place for the CLI's preset subscription universe.
//
// Notes:
//   - Sized for a single-host simulated feed: one producer thread, one
//     consumer thread, up to a few hundred securities.
//   - Power-of-2 sizing keeps index math to a single AND on the hot path.
//
// ⚠️ No runtime logic here — all values must be compile-time resolvable
// ─────────────────────────────────────────────────────────────────────────────

package constants

// ───────────────────────────── Book Geometry ──────────────────────────────

const (
	// BookDepth is the number of price levels carried per side of an L2
	// message and per side of a stored book. The wire layout (192-byte
	// message) is derived from this value and asserted at init time.
	BookDepth = 5

	// MaxSymbolLength is the widest security symbol that fits a SecurityID.
	// Longer symbols are truncated, shorter ones NUL-padded.
	MaxSymbolLength = 8
)

// ───────────────────────────── Store Capacity ──────────────────────────────

const (
	// MaxSecurities bounds both the consolidated store and every source's
	// subscription table: 256 cache-aligned slots make the store's table
	// 64 KiB (256-byte slots) and a source's 16 KiB (64-byte slots).
	// Lookup is a linear scan — at this size the whole table
	// streams through L2 cache faster than a hash probe would resolve,
	// and the slots stay address-stable for the lifetime of the process.
	MaxSecurities = 256
)

// ───────────────────────────── Ring Sizing ─────────────────────────────────

const (
	// FeedRingSize is the capacity of the feed's internal SPSC ring.
	// 1024 slots × 192 bytes = 192 KiB of preallocated transit buffer.
	// At the simulator's default cadence that is several milliseconds of
	// headroom before backpressure; overflow is dropped, never blocked on.
	FeedRingSize = 1024
)

// ─────────────────────────── Memory Guardrails ─────────────────────────────

const (
	// HeapSoftLimit triggers a manual, non-blocking GC cycle when exceeded.
	// The binary runs with the collector disabled; this cap bounds drift
	// from the cold paths (snapshot slices, statistics printing).
	HeapSoftLimit = 64 << 20 // 64 MiB

	// HeapHardLimit triggers panic if exceeded. The hot path allocates
	// nothing after construction, so crossing this cap means a leak.
	HeapHardLimit = 256 << 20 // 256 MiB
)

// ─────────────────────────── CLI / Reporting ───────────────────────────────

const (
	// StatsIntervalSec is the cadence of the statistics dump on stdout.
	StatsIntervalSec = 1
)

// PresetSymbols is the subscription universe the binary brings up at start.
var PresetSymbols = [...]string{
	"AAPL", "MSFT", "GOOGL", "TSLA", "META", "AMZN", "NVDA", "NFLX",
}
