// ============================================================================
// MARKET DATA FEED - SOURCE → RING → STORE COORDINATOR
// ============================================================================
//
// The feed composes one source and one store with an internally owned SPSC
// ring and an internally owned consumer context:
//
//   Source thread:   delivery callback → timestamp → ring192.Push
//   Consumer thread: ring192.Pop → store.UpdateFromL2 → latency telemetry
//
// Key properties:
//   - Completely lock-free data path; the only blocking anywhere is the
//     sleep-mode consumer's configurable idle sleep
//   - Ring-full is handled by dropping: deterministic latency is preferred
//     to completeness, and every drop is counted (RingFullEvents)
//   - Subscribe is store-first with rollback, so the consumer can never
//     apply a message for a security the store does not know
//   - Statistics are best-effort relaxed counters, gated by config
//
// Consumer modes (selected by Config.ConsumerYieldUs):
//   - Sleep mode (> 0): a plain drain loop that sleeps the configured
//     microseconds on every empty poll and counts yields
//   - Spin mode (== 0): delegates the consumer context entirely to
//     ring192.PinnedConsumer — dedicated locked thread, optional core
//     affinity, hot-window spin fed by the producer's activity flag,
//     cold back-off when the feed goes quiet
//
// Threading model:
//   - Producer context: owned by the source (exactly one delivery thread)
//   - Consumer context: one dedicated thread, pinned in spin mode
//   - Control-plane calls (Start/Stop/Subscribe/...) from any thread
//
// Shutdown: Stop flips the running flag, stops the source, raises the
// consumer stop word, and joins the consumer. The producer callback
// short-circuits on the flag, so no new messages enter the ring during
// teardown; the spin-mode consumer drains residual slots before exiting,
// the sleep-mode consumer abandons them (a fresh feed owns a fresh ring).

package feed

import (
	"sync"
	"sync/atomic"
	"time"

	"main/constants"
	"main/control"
	"main/ring192"
	"main/source"
	"main/store"
	"main/types"
)

// ============================================================================
// CONFIGURATION
// ============================================================================

// Config tunes the consumer's idle behavior and telemetry.
type Config struct {
	// ConsumerYieldUs is the sleep taken when the ring is empty. 0 selects
	// spin mode: the consumer context is a ring192.PinnedConsumer driven
	// by the producer's activity flag instead of timed sleeps.
	ConsumerYieldUs uint32

	// EnableStatistics gates all counters and latency measurement.
	EnableStatistics bool

	// PinCore pins the spin-mode consumer thread to a CPU core; -1 leaves
	// placement to the scheduler. Ignored in sleep mode — affinity only
	// pays for itself on a thread that never yields its core.
	PinCore int
}

// DefaultConfig returns the standard low-latency configuration.
func DefaultConfig() Config {
	return Config{
		ConsumerYieldUs:  1,
		EnableStatistics: true,
		PinCore:          -1,
	}
}

// ============================================================================
// FEED
// ============================================================================

// Feed wires a source to a store through an SPSC ring.
type Feed struct {
	src source.Source
	st  *store.SecurityStore
	cfg Config

	ring         *ring192.Ring
	running      atomic.Uint32
	consumerStop uint32        // stop word for the consumer context
	done         chan struct{} // spin-mode consumer exit signal
	wg           sync.WaitGroup
	stats        Statistics
}

// New composes a feed. The source's callback is claimed here — a source
// instance belongs to exactly one feed.
func New(src source.Source, st *store.SecurityStore, cfg Config) *Feed {
	f := &Feed{
		src:  src,
		st:   st,
		cfg:  cfg,
		ring: ring192.New(constants.FeedRingSize),
	}
	src.SetCallback(f.onMarketData)
	return f
}

// Start resets telemetry, starts the source, and spawns the consumer
// context. False if already running or the source fails to start.
func (f *Feed) Start() bool {
	if f.running.Load() == 1 {
		return false
	}

	if f.cfg.EnableStatistics {
		f.stats.Reset()
	}

	if !f.src.Start() {
		return false
	}

	f.running.Store(1)
	atomic.StoreUint32(&f.consumerStop, 0)

	if f.cfg.ConsumerYieldUs == 0 {
		// Spin mode: the pinned consumer owns the drain loop. It watches
		// the feed's stop word and the global hot flag the producer
		// callback raises on every delivery.
		f.done = make(chan struct{})
		_, hotFlag := control.Flags()
		ring192.PinnedConsumer(f.cfg.PinCore, f.ring, &f.consumerStop, hotFlag, f.applyMessage, f.done)
	} else {
		f.wg.Add(1)
		go f.consumerLoop()
	}
	return true
}

// Stop halts the pipeline: flag down, source stopped, consumer joined.
// Idempotent.
func (f *Feed) Stop() {
	if !f.running.CompareAndSwap(1, 0) {
		return
	}

	f.src.Stop()
	atomic.StoreUint32(&f.consumerStop, 1)

	if f.done != nil {
		<-f.done
		f.done = nil
	}
	f.wg.Wait()
}

// IsRunning reports the lifecycle state.
func (f *Feed) IsRunning() bool { return f.running.Load() == 1 }

// Subscribe adds a security to the store, then to the source. A source
// failure rolls the store addition back, so partial subscriptions never
// survive.
func (f *Feed) Subscribe(id types.SecurityID) bool {
	if !f.st.AddSecurity(id) {
		return false // Already present or store full
	}

	if !f.src.Subscribe(id) {
		f.st.RemoveSecurity(id)
		return false
	}

	return true
}

// Unsubscribe removes a security from both sides; true only when both
// removals succeed.
func (f *Feed) Unsubscribe(id types.SecurityID) bool {
	srcOK := f.src.Unsubscribe(id)
	storeOK := f.st.RemoveSecurity(id)
	return srcOK && storeOK
}

// Statistics exposes the live telemetry counters.
func (f *Feed) Statistics() *Statistics { return &f.stats }

// RingUtilization returns occupied/capacity in [0,1] at some recent instant.
func (f *Feed) RingUtilization() float64 {
	return float64(f.ring.Size()) / float64(f.ring.Capacity())
}

// SubscribedSecurities delegates to the source (advisory; see Source).
func (f *Feed) SubscribedSecurities() []types.SecurityID {
	return f.src.SubscribedSecurities()
}

// ============================================================================
// PRODUCER PATH (runs on the source's delivery thread)
// ============================================================================

// onMarketData stamps and enqueues one delivered message. Never blocks:
// a full ring drops the message and counts the event.
//
//go:nosplit
func (f *Feed) onMarketData(msg *types.MarketDataL2Message) {
	if f.running.Load() != 1 {
		return // Feed is stopping; drop
	}

	control.SignalActivity()

	// Local copy so the latency stamp never mutates the source's buffer.
	m := *msg
	if f.cfg.EnableStatistics {
		m.TimestampNs = uint64(time.Now().UnixNano())
	}

	if f.ring.Push(&m) {
		if f.cfg.EnableStatistics {
			f.stats.MessagesProduced.Add(1)
		}
	} else if f.cfg.EnableStatistics {
		// Backpressure: deterministic latency beats completeness here.
		f.stats.RingFullEvents.Add(1)
	}
}

// ============================================================================
// CONSUMER PATH (dedicated thread)
// ============================================================================

// applyMessage is the consumer-side handler shared by both modes: one
// store update plus latency accounting. The message pointer is the
// consumer's scratch buffer, valid only for this call.
//
//go:nosplit
func (f *Feed) applyMessage(msg *types.MarketDataL2Message) {
	applied := f.st.UpdateFromL2(msg)

	if applied && f.cfg.EnableStatistics {
		f.stats.MessagesConsumed.Add(1)

		latency := uint64(time.Now().UnixNano()) - msg.TimestampNs
		f.stats.recordLatency(latency)
	}
}

// consumerLoop is the sleep-mode drain loop: pop until empty, then sleep
// the configured interval and count the yield. Spin mode never enters
// here — ring192.PinnedConsumer carries that discipline.
func (f *Feed) consumerLoop() {
	defer f.wg.Done()

	var msg types.MarketDataL2Message
	yield := time.Duration(f.cfg.ConsumerYieldUs) * time.Microsecond

	for atomic.LoadUint32(&f.consumerStop) == 0 {
		if f.ring.Pop(&msg) {
			f.applyMessage(&msg)
			continue
		}

		// Ring empty
		if f.cfg.EnableStatistics {
			f.stats.RingEmptyEvents.Add(1)
		}
		control.PollCooldown()

		time.Sleep(yield)
		if f.cfg.EnableStatistics {
			f.stats.ConsumerYields.Add(1)
		}
	}
}
