// ============================================================================
// LOCK-FREE SPSC RING BUFFER SYSTEM
// ============================================================================
//
// High-performance single-producer/single-consumer ring queue carrying
// fixed 192-byte L2 market data messages between the delivery callback and
// the store-update thread.
//
// Core capabilities:
//   - Lock-free SPSC operation with wait-free guarantees
//   - Fixed 192-byte payload: three cache lines per slot, no indirection
//   - Power-of-2 sizing with bit masking for O(1) operations
//   - Cache line isolation for producer/consumer cursor separation
//
// Architecture overview:
//   - Two monotonically increasing cursors: head (consumer-owned) and
//     tail (producer-owned), each on its own cache line
//   - Slot index = cursor & mask; full ⇔ tail-head == capacity;
//     empty ⇔ tail == head
//   - Observational accessors (Size/Empty/Full) are racy for the
//     non-owning side: the producer's view of head and the consumer's
//     view of tail are monotone lower bounds, never overestimates
//
// Performance characteristics:
//   - Zero allocation during steady-state operation
//   - Bounded latency with no blocking operations
//   - Predictable sequential memory access patterns
//
// Safety model:
//   - ⚠️  SPSC discipline required: one pushing thread, one popping thread
//   - External overflow management: Push returns false when full
//   - Both operations copy the 192-byte payload; no slot aliasing escapes

package ring192

import (
	"sync/atomic"

	"main/types"
)

// ============================================================================
// CORE DATA STRUCTURE
// ============================================================================

// Ring implements a cache-optimized SPSC ring buffer with isolation padding.
//
// Memory layout:
//   - Cache line 0: leading pad (isolates head from neighboring objects)
//   - Cache line 1: head cursor (consumer writes, producer reads)
//   - Cache line 2: tail cursor (producer writes, consumer reads)
//   - Cache line 3: immutable configuration (mask, capacity, buffer header)
//
// Isolation strategy:
//   - Producer and consumer cursors on separate cache lines
//   - Padding blocks eliminate false sharing between the cursors and
//     between the cursors and the buffer slice header
//
//go:notinheap
//go:align 64
type Ring struct {
	_    [64]byte      // Cache line isolation ahead of the head cursor
	head atomic.Uint64 // Consumer read position (monotone)

	_    [56]byte      // Cache line isolation for the tail cursor
	tail atomic.Uint64 // Producer write position (monotone)

	_ [56]byte // Isolate cursors from configuration

	// Immutable after New
	mask uint64                      // capacity - 1, for index masking
	size uint64                      // capacity, for the full check
	buf  []types.MarketDataL2Message // Backing slot array

	_ [3]uint64 // Tail padding to complete the final cache line
}

// ============================================================================
// CONSTRUCTOR
// ============================================================================

// New creates a ring buffer with the specified capacity.
// Capacity must be a positive power of two for bit-mask indexing.
//
// Memory allocation:
//   - Slot buffer: capacity × 192 bytes, allocated once
//   - No further allocation for the lifetime of the ring
//
// Panics:
//   - size <= 0 or non-power-of-2: construction contract violation
//
//go:norace
//go:nocheckptr
func New(size int) *Ring {
	if size <= 0 || size&(size-1) != 0 {
		panic("ring192: size must be >0 and power of two")
	}

	return &Ring{
		mask: uint64(size - 1),
		size: uint64(size),
		buf:  make([]types.MarketDataL2Message, size),
	}
}

// ============================================================================
// PRODUCER OPERATIONS
// ============================================================================

// Push attempts to enqueue one message. Wait-free.
//
// Algorithm:
//  1. Load own tail cursor, then the consumer's head cursor
//  2. Full when tail-head equals capacity: return false, cursor untouched
//  3. Copy the payload into slot tail&mask
//  4. Publish the new tail — the store releases the slot write to the
//     consumer's acquire load of tail
//
// Memory ordering:
//   - The head load may lag the consumer's true position; a stale value
//     only makes the ring look fuller than it is (spurious false, never
//     corruption)
//   - The tail store publishes the copied payload
//
// ⚠️  SAFETY REQUIREMENTS:
//   - Single producer only: concurrent Push calls corrupt the ring
//   - The payload is copied; the caller may reuse *msg immediately
//
// Returns:
//
//	true:  message enqueued
//	false: ring full, message dropped by the caller's policy
//
//go:norace
//go:nocheckptr
//go:nosplit
//go:inline
//go:registerparams
func (r *Ring) Push(msg *types.MarketDataL2Message) bool {
	t := r.tail.Load()
	h := r.head.Load()

	if t-h == r.size {
		return false // Full — consumer has not freed a slot yet
	}

	r.buf[t&r.mask] = *msg
	r.tail.Store(t + 1)
	return true
}

// ============================================================================
// CONSUMER OPERATIONS
// ============================================================================

// Pop attempts to dequeue the next message into *out. Wait-free.
//
// Algorithm:
//  1. Load own head cursor, then the producer's tail cursor
//  2. Empty when tail equals head: return false, *out untouched
//  3. Copy slot head&mask into *out
//  4. Publish the new head — frees the slot for producer reuse
//
// Memory ordering:
//   - The tail load acquires the producer's slot write; a message is
//     never observed before its payload bytes
//   - The head store releases the slot back to the producer
//
// ⚠️  SAFETY REQUIREMENTS:
//   - Single consumer only: concurrent Pop calls corrupt the ring
//
// Returns:
//
//	true:  *out holds the dequeued message
//	false: ring empty, *out unmodified
//
//go:norace
//go:nocheckptr
//go:nosplit
//go:inline
//go:registerparams
func (r *Ring) Pop(out *types.MarketDataL2Message) bool {
	h := r.head.Load()
	t := r.tail.Load()

	if t == h {
		return false // Empty — nothing published yet
	}

	*out = r.buf[h&r.mask]
	r.head.Store(h + 1)
	return true
}

// PopWait blocks by active polling until a message arrives.
// Designed for dedicated consumer threads where sleep/wake overhead is
// unacceptable; emits CPU relaxation hints between attempts.
//
// ⚠️  High CPU utilization while empty — pair with a dedicated core.
//
//go:norace
//go:nosplit
func (r *Ring) PopWait(out *types.MarketDataL2Message) {
	for !r.Pop(out) {
		cpuRelax()
	}
}

// ============================================================================
// OBSERVATIONAL ACCESSORS
// ============================================================================
//
// Size/Empty/Full are exact only for the owning side of each cursor.
// Cross-thread callers see a lagging view: the producer may observe a
// non-empty or full ring that has just drained, the consumer an empty or
// non-full ring that has just been filled.

// Size returns the number of occupied slots at some recent instant.
// Head is loaded before tail so a third-thread read never underflows;
// a read that straddles a pop and a push is capped at capacity.
//
//go:nosplit
//go:inline
func (r *Ring) Size() uint64 {
	h := r.head.Load()
	if n := r.tail.Load() - h; n < r.size {
		return n
	}
	return r.size
}

// Empty reports whether the ring held no messages at some recent instant.
//
//go:nosplit
//go:inline
func (r *Ring) Empty() bool {
	return r.tail.Load() == r.head.Load()
}

// Full reports whether the ring had no free slots at some recent instant.
//
//go:nosplit
//go:inline
func (r *Ring) Full() bool {
	return r.tail.Load()-r.head.Load() == r.size
}

// Capacity returns the fixed slot count.
//
//go:nosplit
//go:inline
func (r *Ring) Capacity() uint64 {
	return r.size
}
