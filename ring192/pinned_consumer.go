// pinned_consumer.go
//
// Low-latency SPSC consumer.
//
//   • Dedicated OS thread, optionally pinned to `core` (pass -1 to skip).
//   • Stays in **hot-spin** (tight loop, no cpuRelax) while
//       – new work has arrived within hotTimeout, OR
//       – producer keeps the hot flag == 1.
//   • After the grace window *and* once hot == 0 it drops to the
//     **cold-spin** path: cpuRelax every iteration.
//   • Exits only when *stop == 1 and closes `done` exactly once.
//
// Rationale: keep nanosecond latency during bursts yet avoid burning a
// full core when the feed is quiet.
//
// All cross-goroutine variables are accessed atomically; no other
// synchronisation primitives appear in the hot path.
//
// hot flag contract:
//     Producer             Consumer
//     --------             ------------------------------
//     Store 1  ─────────▶  read (wake / stay hot-spin)
//     ...push items…
//     (optionally) Store 0  ◀─ consumer never writes

package ring192

import (
	"runtime"
	"sync/atomic"
	"time"

	"main/types"
)

const (
	spinBudget = 256              // wrap point of the cold-spin miss counter; cpuRelax runs on every cold poll
	hotTimeout = 15 * time.Second // hot-spin grace after last delivery
)

// PinnedConsumer drains r until *stop is set, invoking fn for every
// dequeued message. The message pointer passed to fn is a thread-local
// scratch buffer, valid only for the duration of the call.
func PinnedConsumer(
	core int,
	r *Ring,
	stop, hot *uint32,
	fn func(*types.MarketDataL2Message),
	done chan<- struct{},
) {
	go func() {
		// ── thread & affinity ─────────────────────────────
		runtime.LockOSThread()
		if core >= 0 {
			SetAffinity(core)
		}
		defer func() {
			runtime.UnlockOSThread()
			close(done)
		}()

		var msg types.MarketDataL2Message
		last := time.Now() // last time Pop delivered
		miss := 0

		// ── main loop ─────────────────────────────────────
		for {
			// fast path: Pop succeeded → process & mark activity
			if r.Pop(&msg) {
				fn(&msg)
				last, miss = time.Now(), 0
				continue
			}

			// stop request?
			if atomic.LoadUint32(stop) != 0 {
				return
			}

			// ---------- choose spin mode ------------------
			hotSpin := atomic.LoadUint32(hot) != 0 ||
				time.Since(last) <= hotTimeout

			if hotSpin {
				// tight loop: no cpuRelax
				continue
			}

			// cold-spin path: power-friendlier
			if miss++; miss >= spinBudget {
				miss = 0
			}
			cpuRelax()
		}
	}()
}
