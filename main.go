// ════════════════════════════════════════════════════════════════════════════════════════════════
// Market Data Pipeline - Main Entry Point
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Main Entry Point & System Orchestration
//
// Description:
//   Brings up the simulated feed: simulator source → SPSC ring → security
//   store, subscribes the preset symbol universe, dumps statistics once per
//   second, and shuts down cleanly on SIGINT/SIGTERM.
//
// Architecture:
//   - Phase 1: Construct source, store, feed; register signal handlers
//   - Phase 2: Start pipeline, subscribe presets
//   - Phase 3: Steady state with GC disabled and heap guardrails
//
// Exit codes: 0 on clean shutdown, 1 if the feed fails to start.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	rtdebug "runtime/debug"
	"syscall"
	"time"

	"main/constants"
	"main/control"
	"main/debug"
	"main/feed"
	"main/source"
	"main/store"
	"main/types"
)

var memstats runtime.MemStats // Reused across guardrail checks

func main() {
	// ───── Phase 1: Construction ─────
	// Stress-shaped simulator: aggressive cadence with activity spikes to
	// exercise backpressure handling.
	cfg := source.DefaultSimulatorConfig()
	cfg.UpdateIntervalUs = 50
	cfg.MessagesPerBurst = 3
	cfg.Volatility = 0.005
	cfg.EnableActivitySpikes = true
	cfg.SpikeProbability = 10
	cfg.SpikeMultiplier = 15
	cfg.SpikeDurationUs = 2000

	sim := source.NewSimulator(cfg)
	st := store.New()
	f := feed.New(sim, st, feed.DefaultConfig())

	// Signal-driven shutdown: flip the global stop flag and stop the feed.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		debug.DropMessage("main", "received "+sig.String()+", shutting down")
		control.Shutdown()
		f.Stop()
	}()

	// ───── Phase 2: Bringup ─────
	if !f.Start() {
		debug.DropError("main: feed start failed", nil)
		os.Exit(1)
	}

	for _, symbol := range constants.PresetSymbols {
		if !f.Subscribe(types.SecurityIDFromString(symbol)) {
			debug.DropMessage("main", "subscribe failed: "+symbol)
		}
	}

	// ───── Phase 3: Steady state ─────
	// GC off; the hot path allocates nothing, so collection is driven
	// manually from the guardrail below.
	rtdebug.SetGCPercent(-1)

	for f.IsRunning() {
		time.Sleep(constants.StatsIntervalSec * time.Second)
		control.PollCooldown() // clear the hot flag across quiet intervals

		stats := f.Statistics()
		fmt.Printf("produced=%d consumed=%d ring_full=%d ring_empty=%d yields=%d avg_latency_ns=%.0f max_latency_ns=%d ring_util=%.2f\n",
			stats.MessagesProduced.Load(),
			stats.MessagesConsumed.Load(),
			stats.RingFullEvents.Load(),
			stats.RingEmptyEvents.Load(),
			stats.ConsumerYields.Load(),
			stats.AverageLatencyNs(),
			stats.MaxLatencyNs.Load(),
			f.RingUtilization(),
		)

		// Heap guardrails: trim on the soft limit, fail fast on the hard one.
		runtime.ReadMemStats(&memstats)
		if memstats.HeapAlloc > constants.HeapSoftLimit {
			rtdebug.SetGCPercent(100)
			runtime.GC()
			rtdebug.SetGCPercent(-1)
			debug.DropError("[GC] heap trimmed", nil)
		}
		if memstats.HeapAlloc > constants.HeapHardLimit {
			panic("heap usage exceeded hard cap — leak likely")
		}
	}

	debug.DropMessage("main", "market data feed stopped")
}
