// ============================================================================
// MARKET DATA SOURCE ABSTRACTION
// ============================================================================
//
// A Source produces L2 market data messages for subscribed securities and
// delivers them through a caller-provided callback on the source's own
// thread. Three concrete variants live in this package:
//
//   - Simulator: deterministic per-security pseudo-random book generator
//   - ReplaySource: paced replay of a sqlite-journaled capture
//   - ExchangeSource: websocket JSON depth feed normalized into L2 messages
//
// Callback contract:
//   - Set the callback before Start; it is not synchronized afterwards
//   - Invoked zero or more times per subscribed security between Start
//     and Stop, always on the source's delivery thread
//   - The message pointer is a delivery-thread scratch buffer: the callee
//     must copy what it keeps and return quickly (bounded work, no
//     allocation, no blocking)
//   - ⚠️  The callback must not reenter Start/Stop on the same source

package source

import "main/types"

// Callback receives one L2 message per delivery. See the contract above.
type Callback func(msg *types.MarketDataL2Message)

// Source is the capability set every market data variant satisfies.
type Source interface {
	// Start spins up the delivery thread. False if already running.
	Start() bool

	// Stop halts delivery and joins the thread. Idempotent.
	Stop()

	// IsRunning reports the lifecycle state.
	IsRunning() bool

	// Subscribe registers a security for delivery. False when already
	// subscribed or the subscription table is full.
	Subscribe(id types.SecurityID) bool

	// Unsubscribe deregisters a security. False when not subscribed.
	Unsubscribe(id types.SecurityID) bool

	// SetCallback installs the delivery callback. Must precede Start.
	SetCallback(cb Callback)

	// SubscribedSecurities lists current subscriptions. Advisory: the
	// ids are copied without re-checking liveness after the scan, so a
	// concurrent unsubscribe may leave a stale entry in the result.
	SubscribedSecurities() []types.SecurityID
}
