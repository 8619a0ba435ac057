// ============================================================================
// SIMULATOR SOURCE - DETERMINISTIC PSEUDO-RANDOM BOOK GENERATOR
// ============================================================================
//
// Generates a stream of synthetic five-deep L2 messages with realistic
// price ranges and spreads at microsecond cadence. One delivery thread
// walks the subscription table each pass and emits a burst of messages per
// live security.
//
// Generation model:
//   - Per-security mid price performs a bounded random walk (±0.05% per
//     message), clamped to ≥ $1.00, seeded from the symbol's preset base
//   - Five bid levels descend from mid − spread/2, five ask levels ascend
//     from mid + spread/2, each spaced by a small random fraction of mid
//   - Quantities drawn uniformly from [MinQuantity, MaxQuantity)
//   - Optional activity spikes: with SpikeProbability% chance per pass the
//     burst count multiplies by SpikeMultiplier for SpikeDurationUs, and
//     the inter-pass sleep halves
//
// Randomness:
//   - Plain 64-bit LCGs, one per concern: the per-slot word drives the
//     price walk (reproducible per symbol), thread-local words drive
//     quantities, level spacing, and the spike draw
//   - No crypto, no locking, no allocation — a few multiplies per message
//
// Threading model:
//   - Subscribe/Unsubscribe from any thread (slot claim protocol)
//   - All generation and callback invocation on the one delivery thread

package source

import (
	"sync"
	"sync/atomic"
	"time"

	"main/constants"
	"main/types"
	"main/utils"
)

// LCG parameters shared by every generator concern (the classic
// glibc-style multiplier/increment pair).
const (
	lcgMul = 1103515245
	lcgInc = 12345
)

//go:nosplit
//go:inline
func lcgNext(state uint64) uint64 {
	return state*lcgMul + lcgInc
}

// ============================================================================
// CONFIGURATION
// ============================================================================

// SimulatorConfig tunes the generation process. Zero values are replaced
// by DefaultSimulatorConfig in NewSimulator only when the whole struct is
// zero; otherwise the caller's values are taken verbatim.
type SimulatorConfig struct {
	BasePrice        float64 // fallback base price for symbols without a preset
	Volatility       float64 // retained for config compatibility; unused by the reduced walk
	SpreadBps        float64 // target bid/ask spread in basis points of mid
	UpdateIntervalUs uint32  // target period between generation passes
	MinQuantity      uint32  // inclusive lower quantity bound per level
	MaxQuantity      uint32  // exclusive upper quantity bound per level
	MessagesPerBurst uint32  // messages per live security per pass

	// Stress testing parameters
	EnableActivitySpikes bool   // toggle stochastic bursts
	SpikeProbability     uint32 // per-pass percent chance (0-100) of entering a spike
	SpikeMultiplier      uint32 // burst multiplier during a spike
	SpikeDurationUs      uint32 // spike duration in microseconds
}

// DefaultSimulatorConfig returns the HFT-cadence defaults.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		BasePrice:            150.0,
		Volatility:           0.02,
		SpreadBps:            2.0,
		UpdateIntervalUs:     10,
		MinQuantity:          100,
		MaxQuantity:          1000,
		MessagesPerBurst:     5,
		EnableActivitySpikes: false,
		SpikeProbability:     5,
		SpikeMultiplier:      10,
		SpikeDurationUs:      1000,
	}
}

// ============================================================================
// SIMULATOR
// ============================================================================

// Simulator is the synthetic book generator. Satisfies Source.
type Simulator struct {
	cfg   SimulatorConfig
	table slotTable

	cb      Callback
	running atomic.Uint32 // 1 = delivery thread live
	seqNo   uint32        // delivery-thread-owned message sequence
	wg      sync.WaitGroup
}

// NewSimulator builds a simulator. A zero config selects the defaults.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	if cfg == (SimulatorConfig{}) {
		cfg = DefaultSimulatorConfig()
	}
	return &Simulator{cfg: cfg}
}

// SetCallback installs the delivery callback. Must precede Start.
func (s *Simulator) SetCallback(cb Callback) { s.cb = cb }

// Start spins up the delivery thread. False if already running.
func (s *Simulator) Start() bool {
	if !s.running.CompareAndSwap(0, 1) {
		return false
	}

	s.wg.Add(1)
	go s.deliveryLoop()
	return true
}

// Stop halts generation and joins the delivery thread. Idempotent.
func (s *Simulator) Stop() {
	if !s.running.CompareAndSwap(1, 0) {
		return
	}
	s.wg.Wait()
}

// IsRunning reports the lifecycle state.
func (s *Simulator) IsRunning() bool { return s.running.Load() == 1 }

// Subscribe registers a security, seeding its walk from the preset table.
// The preset lookup borrows the id bytes without allocating.
func (s *Simulator) Subscribe(id types.SecurityID) bool {
	n := 0
	for n < len(id) && id[n] != 0 {
		n++
	}
	base := BasePriceFor(utils.B2s(id[:n]), s.cfg.BasePrice)
	return s.table.subscribe(id, base)
}

// Unsubscribe deregisters a security.
func (s *Simulator) Unsubscribe(id types.SecurityID) bool {
	return s.table.unsubscribe(id)
}

// SubscribedSecurities lists current subscriptions (advisory; see Source).
func (s *Simulator) SubscribedSecurities() []types.SecurityID {
	return s.table.ids()
}

// ============================================================================
// DELIVERY THREAD
// ============================================================================

// deliveryLoop is the generation pass driver. Runs until Stop.
//
// Pass algorithm:
//  1. Spike bookkeeping: outside a spike, draw the spike LCG and enter
//     with SpikeProbability% chance; inside, exit when the end time passes
//  2. For every live slot, emit MessagesPerBurst × multiplier messages
//  3. Sleep UpdateIntervalUs minus elapsed (halved during spikes),
//     skipping the sleep entirely when the pass overran
func (s *Simulator) deliveryLoop() {
	defer s.wg.Done()

	// Thread-local generator concerns
	qtyRng := uint64(42)
	levelRng := uint64(123)
	spikeRng := uint64(12345)

	inSpike := false
	var spikeEnd time.Time

	for s.running.Load() == 1 {
		passStart := time.Now()

		burstMultiplier := uint32(1)
		if s.cfg.EnableActivitySpikes {
			if !inSpike {
				spikeRng = lcgNext(spikeRng)
				if uint32(spikeRng%100) < s.cfg.SpikeProbability {
					inSpike = true
					burstMultiplier = s.cfg.SpikeMultiplier
					spikeEnd = passStart.Add(time.Duration(s.cfg.SpikeDurationUs) * time.Microsecond)
				}
			} else {
				if !passStart.Before(spikeEnd) {
					inSpike = false
				} else {
					burstMultiplier = s.cfg.SpikeMultiplier
				}
			}
		}

		for i := range s.table.slots {
			slot := &s.table.slots[i]
			if slot.state.Load() != slotLive {
				continue
			}
			total := s.cfg.MessagesPerBurst * burstMultiplier
			for burst := uint32(0); burst < total; burst++ {
				s.generateFor(slot, &qtyRng, &levelRng)
			}
		}

		// Sleep the remainder of the interval; spikes run at double rate.
		elapsed := time.Since(passStart)
		interval := s.cfg.UpdateIntervalUs
		if inSpike {
			interval /= 2
		}
		if sleep := time.Duration(interval)*time.Microsecond - elapsed; sleep > 0 {
			time.Sleep(sleep)
		}
	}
}

// generateFor advances one slot's price walk and delivers one message.
//
//go:nosplit
func (s *Simulator) generateFor(slot *secSlot, qtyRng, levelRng *uint64) {
	if s.cb == nil {
		return
	}

	// Bounded drift: ±0.05% per message, clamped to ≥ $1.00.
	slot.rng = lcgNext(slot.rng)
	drift := (float64(slot.rng&0xFFFF)/65535.0 - 0.5) * 0.001
	slot.price *= 1.0 + drift
	if slot.price < 1.0 {
		slot.price = 1.0
	}
	slot.lastUpdateNs = uint64(time.Now().UnixNano())

	msg := s.buildMessage(slot, qtyRng, levelRng)
	s.cb(&msg)
}

// buildMessage assembles the five-deep book around the slot's current mid.
func (s *Simulator) buildMessage(slot *secSlot, qtyRng, levelRng *uint64) types.MarketDataL2Message {
	var msg types.MarketDataL2Message

	s.seqNo++
	msg.Header.SeqNo = s.seqNo
	msg.Header.Length = types.MessageSize
	msg.Header.Type = types.MsgTypeMarketDataL2
	msg.SecurityID = slot.id
	msg.TimestampNs = slot.lastUpdateNs

	spread := slot.price * (s.cfg.SpreadBps / 10000.0)
	qtySpan := uint64(s.cfg.MaxQuantity - s.cfg.MinQuantity)
	if qtySpan == 0 {
		qtySpan = 1
	}

	// Bid side: descending from mid − spread/2.
	msg.NumBidLevels = constants.BookDepth
	bid := slot.price - spread/2.0
	for i := 0; i < constants.BookDepth; i++ {
		msg.Bids[i].Price = types.PriceFromDollars(bid)
		*qtyRng = lcgNext(*qtyRng)
		msg.Bids[i].Quantity = uint64(s.cfg.MinQuantity) + *qtyRng%qtySpan
		*levelRng = lcgNext(*levelRng)
		spacing := 0.0001 + float64(*levelRng&0xFFFF)/65535.0*0.0004
		bid -= spacing * slot.price
	}

	// Ask side: ascending from mid + spread/2.
	msg.NumAskLevels = constants.BookDepth
	ask := slot.price + spread/2.0
	for i := 0; i < constants.BookDepth; i++ {
		msg.Asks[i].Price = types.PriceFromDollars(ask)
		*qtyRng = lcgNext(*qtyRng)
		msg.Asks[i].Quantity = uint64(s.cfg.MinQuantity) + *qtyRng%qtySpan
		*levelRng = lcgNext(*levelRng)
		spacing := 0.0001 + float64(*levelRng&0xFFFF)/65535.0*0.0004
		ask += spacing * slot.price
	}

	return msg
}
