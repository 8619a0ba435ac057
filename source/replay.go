// ════════════════════════════════════════════════════════════════════════════════════════════════
// Capture Journal & Replay Source
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: sqlite-backed L2 stream capture and paced replay
//
// Description:
//   Records delivered L2 messages into a sqlite journal as raw 192-byte wire
//   blobs, and plays a journal back through the standard Source interface in
//   original sequence order with timestamp-derived pacing.
//
// Features:
//   - Batched insert transactions: the journal keeps up with burst delivery
//   - Seq-ordered replay scan, subscription-filtered, speed-scalable
//   - JSONL tick importer for bootstrapping journals from text captures
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package source

import (
	"bufio"
	"database/sql"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"main/constants"
	"main/debug"
	"main/types"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sugawarayuuta/sonnet"
)

// Journal schema: one row per delivered message, payload is the exact
// 192-byte wire image. seq is assigned at insert and defines replay order.
const (
	journalSchema = `CREATE TABLE IF NOT EXISTS l2_messages (
		seq         INTEGER PRIMARY KEY AUTOINCREMENT,
		security_id TEXT    NOT NULL,
		ts_ns       INTEGER NOT NULL,
		payload     BLOB    NOT NULL
	)`

	journalInsert = `INSERT INTO l2_messages (security_id, ts_ns, payload) VALUES (?, ?, ?)`
	journalSelect = `SELECT security_id, ts_ns, payload FROM l2_messages ORDER BY seq`

	// recorderBatch bounds rows per transaction. Large enough to amortize
	// fsync, small enough that a crash loses under a millisecond of burst.
	recorderBatch = 512
)

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// RECORDER
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Recorder appends L2 messages to a journal in batched transactions.
// Single-threaded: call Append from one goroutine only (wire it as a tap
// inside the delivery callback or the consumer loop, never both).
type Recorder struct {
	db      *sql.DB
	tx      *sql.Tx
	stmt    *sql.Stmt
	pending int
}

// OpenRecorder creates or appends to the journal at path.
func OpenRecorder(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(journalSchema); err != nil {
		db.Close()
		return nil, err
	}
	return &Recorder{db: db}, nil
}

// Append journals one message. The payload blob is the message's exact
// wire image; a replayed stream is byte-identical to the recorded one.
func (r *Recorder) Append(msg *types.MarketDataL2Message) error {
	if r.tx == nil {
		tx, err := r.db.Begin()
		if err != nil {
			return err
		}
		stmt, err := tx.Prepare(journalInsert)
		if err != nil {
			tx.Rollback()
			return err
		}
		r.tx, r.stmt = tx, stmt
	}

	var wire [types.MessageSize]byte
	msg.Encode(&wire)

	if _, err := r.stmt.Exec(msg.SecurityID.String(), int64(msg.TimestampNs), wire[:]); err != nil {
		return err
	}

	if r.pending++; r.pending >= recorderBatch {
		return r.Flush()
	}
	return nil
}

// Flush commits the open batch, if any.
func (r *Recorder) Flush() error {
	if r.tx == nil {
		return nil
	}
	r.stmt.Close()
	err := r.tx.Commit()
	r.tx, r.stmt, r.pending = nil, nil, 0
	return err
}

// Close flushes and releases the journal.
func (r *Recorder) Close() error {
	if err := r.Flush(); err != nil {
		r.db.Close()
		return err
	}
	return r.db.Close()
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// REPLAY SOURCE
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// ReplaySource plays a journal back through the Source interface.
//
// Pacing: inter-message gaps are reproduced from the journaled timestamps,
// divided by Speed. Speed 0 replays as fast as the consumer drains. The
// source marks itself stopped when the journal is exhausted.
type ReplaySource struct {
	path  string
	speed float64

	table   slotTable
	cb      Callback
	running atomic.Uint32
	wg      sync.WaitGroup
}

// NewReplaySource builds a replay source over the journal at path.
// speed 1.0 reproduces recorded time; 0 disables pacing.
func NewReplaySource(path string, speed float64) *ReplaySource {
	return &ReplaySource{path: path, speed: speed}
}

// SetCallback installs the delivery callback. Must precede Start.
func (r *ReplaySource) SetCallback(cb Callback) { r.cb = cb }

// IsRunning reports whether replay is still in progress.
func (r *ReplaySource) IsRunning() bool { return r.running.Load() == 1 }

// Subscribe registers a security filter; journal rows for other ids are
// skipped, not buffered.
func (r *ReplaySource) Subscribe(id types.SecurityID) bool {
	return r.table.subscribe(id, 0)
}

// Unsubscribe removes a security filter.
func (r *ReplaySource) Unsubscribe(id types.SecurityID) bool {
	return r.table.unsubscribe(id)
}

// SubscribedSecurities lists current filters (advisory; see Source).
func (r *ReplaySource) SubscribedSecurities() []types.SecurityID {
	return r.table.ids()
}

// Start opens the journal and spins up the replay thread.
// False if already running or the journal cannot be opened.
func (r *ReplaySource) Start() bool {
	if !r.running.CompareAndSwap(0, 1) {
		return false
	}

	db, err := sql.Open("sqlite3", r.path)
	if err != nil {
		debug.DropError("replay: open journal", err)
		r.running.Store(0)
		return false
	}

	r.wg.Add(1)
	go r.replayLoop(db)
	return true
}

// Stop halts replay and joins the thread. Idempotent; also reached
// internally when the journal is exhausted.
func (r *ReplaySource) Stop() {
	if !r.running.CompareAndSwap(1, 0) {
		return
	}
	r.wg.Wait()
}

// replayLoop scans the journal in seq order and delivers matching rows.
func (r *ReplaySource) replayLoop(db *sql.DB) {
	defer r.wg.Done()
	defer db.Close()

	rows, err := db.Query(journalSelect)
	if err != nil {
		debug.DropError("replay: journal scan", err)
		r.running.Store(0)
		return
	}
	defer rows.Close()

	var prevTs uint64
	for rows.Next() {
		if r.running.Load() != 1 {
			return // Stopped mid-replay
		}

		var (
			symbol  string
			tsNs    int64
			payload []byte
		)
		if err := rows.Scan(&symbol, &tsNs, &payload); err != nil {
			debug.DropError("replay: row scan", err)
			break
		}
		if len(payload) != types.MessageSize {
			continue // Foreign row; journal written by a different wire rev
		}

		msg := types.DecodeL2((*[types.MessageSize]byte)(payload))

		// Reproduce recorded inter-message gaps, scaled by speed.
		if r.speed > 0 && prevTs != 0 && msg.TimestampNs > prevTs {
			gap := time.Duration(float64(msg.TimestampNs-prevTs) / r.speed)
			time.Sleep(gap)
		}
		prevTs = msg.TimestampNs

		if r.table.find(msg.SecurityID) == nil {
			continue // Not subscribed — skip, never buffer
		}
		if r.cb != nil {
			r.cb(&msg)
		}
	}

	// Journal exhausted (or scan error): the source is no longer running.
	r.running.Store(0)
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// JSONL IMPORT
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// jsonTick is one line of a text capture: symbol, timestamp, and up to
// five [price, quantity] pairs per side in book order.
type jsonTick struct {
	Symbol string       `json:"s"`
	TsNs   uint64       `json:"t"`
	Bids   [][2]float64 `json:"b"`
	Asks   [][2]float64 `json:"a"`
}

// ImportJSONL converts a JSONL tick capture into journal rows at path.
// Malformed lines are skipped and counted in the second return value.
func ImportJSONL(path string, in io.Reader) (imported, skipped int, err error) {
	rec, err := OpenRecorder(path)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if cerr := rec.Close(); err == nil {
			err = cerr
		}
	}()

	scanner := bufio.NewScanner(in)
	var seq uint32
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var tick jsonTick
		if uerr := sonnet.Unmarshal(line, &tick); uerr != nil || tick.Symbol == "" {
			skipped++
			continue
		}

		seq++
		msg := tickToMessage(&tick, seq)
		if aerr := rec.Append(&msg); aerr != nil {
			return imported, skipped, aerr
		}
		imported++
	}
	return imported, skipped, scanner.Err()
}

// tickToMessage normalizes one decoded tick into the wire message form.
func tickToMessage(tick *jsonTick, seq uint32) types.MarketDataL2Message {
	var msg types.MarketDataL2Message
	msg.Header.SeqNo = seq
	msg.Header.Length = types.MessageSize
	msg.Header.Type = types.MsgTypeMarketDataL2
	msg.SecurityID = types.SecurityIDFromString(tick.Symbol)
	msg.TimestampNs = tick.TsNs

	for i, lvl := range tick.Bids {
		if i >= constants.BookDepth {
			break
		}
		msg.Bids[i] = types.PriceLevel{
			Price:    types.PriceFromDollars(lvl[0]),
			Quantity: uint64(lvl[1]),
		}
		msg.NumBidLevels++
	}
	for i, lvl := range tick.Asks {
		if i >= constants.BookDepth {
			break
		}
		msg.Asks[i] = types.PriceLevel{
			Price:    types.PriceFromDollars(lvl[0]),
			Quantity: uint64(lvl[1]),
		}
		msg.NumAskLevels++
	}
	return msg
}
