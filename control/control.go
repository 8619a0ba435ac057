// control.go — Global control flags and activity management for the consumer thread
// ============================================================================
// SYSTEM CONTROL ORCHESTRATION
// ============================================================================
//
// Control package provides lightweight global signaling infrastructure for
// coordinating activity states and graceful shutdown across the feed's
// consumer thread with nanosecond-precision timing and zero-allocation
// operations.
//
// Architecture overview:
//   • Global hot/stop flags for lock-free inter-thread communication
//   • Nanosecond-precision activity tracking with automatic cooldown
//   • Zero-allocation flag access for hot path performance
//   • Graceful shutdown coordination between signal handlers and the feed
//
// Threading model:
//   • The producer callback signals activity via SignalActivity()
//   • The consumer thread polls flags via Flags() for its idle policy
//   • Automatic cooldown prevents unnecessary hot spinning
//   • Signal handlers broadcast shutdown via Shutdown()
//
// Safety guarantees:
//   • Readers use atomic loads on the exported flag pointers
//   • Bounded cooldown periods prevent infinite hot spinning
//   • Deterministic shutdown behavior across all consumers

package control

import "time"

// ============================================================================
// GLOBAL STATE MANAGEMENT
// ============================================================================

var (
	// Global coordination flags - accessed by the consumer thread
	hot  uint32 // Activity indicator: 1 = producer actively delivering, 0 = idle
	stop uint32 // Shutdown signal: 1 = initiate graceful shutdown, 0 = running

	// Activity timing for automatic cooldown management
	lastHot    int64                    // Nanosecond timestamp of last producer activity
	cooldownNs = int64(1 * time.Second) // Cooldown duration: 1 second idle period
)

// ============================================================================
// ACTIVITY SIGNALING (PRODUCER INTEGRATION)
// ============================================================================

// SignalActivity marks the system as active and records precise timing
// for automatic cooldown management. Called from the producer callback
// upon delivering a market data message into the ring.
//
// Performance: single store + clock read, safe on the delivery path
// Thread safety: safe for concurrent calls from producer threads
//
//go:norace
//go:nocheckptr
//go:nosplit
//go:inline
//go:registerparams
func SignalActivity() {
	hot = 1
	lastHot = time.Now().UnixNano()
}

// ============================================================================
// COOLDOWN MANAGEMENT (AUTOMATIC EFFICIENCY)
// ============================================================================

// PollCooldown implements automatic hot-flag clearance based on elapsed
// time since last activity. Integrates into the consumer's idle loop to
// prevent unnecessary CPU spinning during quiet periods.
//
// Call frequency: inline during consumer idle iterations
// Timing precision: nanosecond-accurate cooldown detection
//
//go:norace
//go:nocheckptr
//go:nosplit
//go:inline
//go:registerparams
func PollCooldown() {
	if hot == 1 && time.Now().UnixNano()-lastHot > cooldownNs {
		hot = 0
	}
}

// ============================================================================
// SYSTEM SHUTDOWN (GRACEFUL TERMINATION)
// ============================================================================

// Shutdown initiates graceful system termination by setting the global
// stop flag. Consumer threads monitor this flag and terminate cleanly
// upon detection, ensuring proper resource cleanup.
//
// Shutdown sequence: Signal → Consumer detection → Resource cleanup → Exit
//
//go:norace
//go:nocheckptr
//go:nosplit
//go:inline
//go:registerparams
func Shutdown() {
	stop = 1
}

// Reset clears both flags. Test scaffolding only — production code never
// restarts after Shutdown.
//
//go:norace
//go:nosplit
func Reset() {
	hot = 0
	stop = 0
	lastHot = 0
}

// ============================================================================
// FLAG ACCESS (CONSUMER INTEGRATION)
// ============================================================================

// Flags returns direct pointers to the global coordination flags for
// zero-allocation polling by the consumer thread. Callers must read
// through the pointers with atomic loads.
//
// Return values: (*stop_flag, *hot_flag)
// Memory safety: returned pointers remain valid for application lifetime
//
//go:norace
//go:nosplit
//go:inline
//go:registerparams
func Flags() (stopFlag, hotFlag *uint32) {
	return &stop, &hot
}
