// publisher.go — Periodic consolidated-book broadcast over UDP.
//
// The publisher is a store reader, not part of the hot path: at a fixed
// rate it snapshots every live security and sends each book as one
// 192-byte wire datagram. Receivers decode with types.DecodeL2.

package udpsock

import (
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"main/debug"
	"main/store"
	"main/types"
)

// Publisher broadcasts store snapshots at a fixed rate.
type Publisher struct {
	st   *store.SecurityStore
	sock *Socket
	dst  syscall.SockaddrInet4
	hz   int

	running atomic.Uint32
	wg      sync.WaitGroup
	seqNo   uint32 // broadcast-thread-owned
}

// NewPublisher builds a publisher for host:port at hz snapshots per second.
// Rates below 1 Hz clamp to 1.
func NewPublisher(st *store.SecurityStore, host string, port, hz int) (*Publisher, error) {
	if hz < 1 {
		hz = 1
	}

	sock, err := New()
	if err != nil {
		return nil, err
	}

	dst, err := ResolveDestination(host, port)
	if err != nil {
		sock.Close()
		return nil, err
	}

	return &Publisher{st: st, sock: sock, dst: dst, hz: hz}, nil
}

// Start spins up the broadcast thread. False if already running.
func (p *Publisher) Start() bool {
	if !p.running.CompareAndSwap(0, 1) {
		return false
	}

	p.wg.Add(1)
	go p.broadcastLoop()
	return true
}

// Stop halts broadcasting, joins the thread, and closes the socket.
// Idempotent.
func (p *Publisher) Stop() {
	if !p.running.CompareAndSwap(1, 0) {
		return
	}
	p.wg.Wait()
	p.sock.Close()
}

// broadcastLoop snapshots and sends every live book once per tick.
func (p *Publisher) broadcastLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(time.Second / time.Duration(p.hz))
	defer ticker.Stop()

	var snap store.SecuritySnapshot
	var wire [types.MessageSize]byte

	for p.running.Load() == 1 {
		<-ticker.C

		for _, id := range p.st.AllSecurities() {
			if !p.st.Snapshot(id, &snap) {
				continue // Retired between scan and snapshot
			}

			p.seqNo++
			msg := snapshotToMessage(&snap, p.seqNo)
			msg.Encode(&wire)

			if err := p.sock.SendTo(wire[:], &p.dst); err != nil {
				debug.DropError("publisher: sendto", err)
			}
		}
	}
}

// snapshotToMessage rebuilds the wire form of a consolidated book.
func snapshotToMessage(snap *store.SecuritySnapshot, seq uint32) types.MarketDataL2Message {
	var msg types.MarketDataL2Message
	msg.Header.SeqNo = seq
	msg.Header.Length = types.MessageSize
	msg.Header.Type = types.MsgTypeMarketDataL2
	msg.SecurityID = snap.SecurityID
	msg.TimestampNs = snap.LastUpdateNs
	msg.Bids = snap.Bids
	msg.Asks = snap.Asks
	msg.NumBidLevels = snap.NumBidLevels
	msg.NumAskLevels = snap.NumAskLevels
	return msg
}
