// ════════════════════════════════════════════════════════════════════════════════════════════════
// Exchange Feed Source
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: websocket depth-tick ingestion
//
// Description:
//   Connects to a venue's websocket depth stream, decodes JSON ticks, and
//   normalizes them into L2 wire messages behind the standard Source
//   interface. Redials at once after a read failure; failed dials back off
//   exponentially.
//
// Tick format (venue-neutral depth tick, one JSON object per frame):
//     {"s":"AAPL","t":1690000000000,"b":[[175.01,300],...],"a":[[175.03,200],...]}
//
// Threading model:
//   - One read-loop thread owns decode and delivery
//   - Subscribe/Unsubscribe may run from any thread; subscription frames
//     are written under a mutex, never from the read loop
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package source

import (
	"sync"
	"sync/atomic"
	"time"

	"main/debug"
	"main/types"

	"github.com/gorilla/websocket"
	"github.com/sugawarayuuta/sonnet"
)

// ExchangeConfig addresses a venue's depth stream.
type ExchangeConfig struct {
	URL         string        // websocket endpoint, ws:// or wss://
	DialTimeout time.Duration // handshake deadline
	ReadTimeout time.Duration // per-frame read deadline
	MaxBackoff  time.Duration // reconnect backoff ceiling
}

// DefaultExchangeConfig fills the timeouts for a given endpoint.
func DefaultExchangeConfig(url string) ExchangeConfig {
	return ExchangeConfig{
		URL:         url,
		DialTimeout: 10 * time.Second,
		ReadTimeout: 60 * time.Second,
		MaxBackoff:  30 * time.Second,
	}
}

// ExchangeSource ingests a websocket depth feed. Satisfies Source.
type ExchangeSource struct {
	cfg   ExchangeConfig
	table slotTable

	cb      Callback
	running atomic.Uint32
	wg      sync.WaitGroup

	connMu sync.Mutex // guards conn for cross-thread writes and teardown
	conn   *websocket.Conn

	dropped atomic.Uint64 // malformed or symbol-less ticks discarded
	seqNo   uint32        // read-loop-owned message sequence
}

// NewExchangeSource builds an exchange source for the configured venue.
func NewExchangeSource(cfg ExchangeConfig) *ExchangeSource {
	return &ExchangeSource{cfg: cfg}
}

// SetCallback installs the delivery callback. Must precede Start.
func (e *ExchangeSource) SetCallback(cb Callback) { e.cb = cb }

// IsRunning reports the lifecycle state.
func (e *ExchangeSource) IsRunning() bool { return e.running.Load() == 1 }

// Dropped returns the count of discarded malformed ticks.
func (e *ExchangeSource) Dropped() uint64 { return e.dropped.Load() }

// Subscribe registers a security and, when connected, sends the venue
// subscribe frame for it.
func (e *ExchangeSource) Subscribe(id types.SecurityID) bool {
	if !e.table.subscribe(id, 0) {
		return false
	}
	e.sendSubscribe(id, true)
	return true
}

// Unsubscribe deregisters a security and notifies the venue.
func (e *ExchangeSource) Unsubscribe(id types.SecurityID) bool {
	if !e.table.unsubscribe(id) {
		return false
	}
	e.sendSubscribe(id, false)
	return true
}

// SubscribedSecurities lists current subscriptions (advisory; see Source).
func (e *ExchangeSource) SubscribedSecurities() []types.SecurityID {
	return e.table.ids()
}

// Start spins up the connect/read loop. False if already running.
func (e *ExchangeSource) Start() bool {
	if !e.running.CompareAndSwap(0, 1) {
		return false
	}

	e.wg.Add(1)
	go e.runLoop()
	return true
}

// Stop tears down the connection and joins the read loop. Idempotent.
func (e *ExchangeSource) Stop() {
	if !e.running.CompareAndSwap(1, 0) {
		return
	}
	e.closeConn()
	e.wg.Wait()
}

// ─────────────────────────── Connection Lifecycle ──────────────────────────

// runLoop dials, resubscribes, and reads until Stop. A broken read is
// followed by an immediate redial; each failed dial backs off
// exponentially before the next attempt.
func (e *ExchangeSource) runLoop() {
	defer e.wg.Done()

	retry := 0
	for e.running.Load() == 1 {
		if err := e.connect(); err != nil {
			debug.DropError("exchange: dial "+e.cfg.URL, err)
			e.sleepBackoff(retry)
			retry++
			continue
		}

		retry = 0
		e.readLoop()
		e.closeConn()
	}
}

// connect dials the venue and replays subscribe frames for every live
// subscription on the fresh connection.
func (e *ExchangeSource) connect() error {
	dialer := websocket.Dialer{HandshakeTimeout: e.cfg.DialTimeout}
	conn, _, err := dialer.Dial(e.cfg.URL, nil)
	if err != nil {
		return err
	}

	e.connMu.Lock()
	e.conn = conn
	e.connMu.Unlock()

	for _, id := range e.table.ids() {
		e.sendSubscribe(id, true)
	}
	return nil
}

// closeConn tears down the current connection, unblocking the read loop.
func (e *ExchangeSource) closeConn() {
	e.connMu.Lock()
	if e.conn != nil {
		e.conn.Close()
		e.conn = nil
	}
	e.connMu.Unlock()
}

// sleepBackoff waits before the next dial attempt: 1s doubling up to the
// configured ceiling.
func (e *ExchangeSource) sleepBackoff(retry int) {
	d := time.Second << uint(retry)
	if d > e.cfg.MaxBackoff || d <= 0 {
		d = e.cfg.MaxBackoff
	}
	time.Sleep(d)
}

// sendSubscribe writes one venue subscribe/unsubscribe frame. Silently a
// no-op while disconnected; connect replays the live set on reconnect.
func (e *ExchangeSource) sendSubscribe(id types.SecurityID, subscribe bool) {
	op := `{"op":"unsubscribe","symbol":"`
	if subscribe {
		op = `{"op":"subscribe","symbol":"`
	}

	e.connMu.Lock()
	defer e.connMu.Unlock()
	if e.conn == nil {
		return
	}
	if err := e.conn.WriteMessage(websocket.TextMessage, []byte(op+id.String()+`"}`)); err != nil {
		debug.DropError("exchange: subscribe write", err)
	}
}

// ─────────────────────────────── Read Loop ─────────────────────────────────

// readLoop decodes frames until the connection breaks or Stop is called.
func (e *ExchangeSource) readLoop() {
	e.connMu.Lock()
	conn := e.conn
	e.connMu.Unlock()
	if conn == nil {
		return
	}

	for e.running.Load() == 1 {
		conn.SetReadDeadline(time.Now().Add(e.cfg.ReadTimeout))
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if e.running.Load() == 1 {
				debug.DropError("exchange: read", err)
			}
			return
		}
		e.handleFrame(frame)
	}
}

// handleFrame decodes one tick and delivers it when subscribed.
// A malformed tick is dropped and counted, never delivered.
func (e *ExchangeSource) handleFrame(frame []byte) {
	var tick jsonTick
	if err := sonnet.Unmarshal(frame, &tick); err != nil || tick.Symbol == "" {
		e.dropped.Add(1)
		return
	}

	id := types.SecurityIDFromString(tick.Symbol)
	if e.table.find(id) == nil {
		return // Venue noise or a just-unsubscribed symbol
	}

	e.seqNo++
	msg := tickToMessage(&tick, e.seqNo)
	if msg.TimestampNs == 0 {
		msg.TimestampNs = uint64(time.Now().UnixNano())
	}
	if e.cb != nil {
		e.cb(&msg)
	}
}
