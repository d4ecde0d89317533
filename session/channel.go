// Package session implements the per-peer session channel (spec.md §4.8,
// component C9) and the session manager (§4.9, C10): handshake, link
// lifecycle, receive dispatch with per-channel SN validation, and close.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package session

import (
	"sync"

	"github.com/zenohd/zenohd/cmn/config"
	"github.com/zenohd/zenohd/cmn/nlog"
	"github.com/zenohd/zenohd/link"
	"github.com/zenohd/zenohd/queue"
	"github.com/zenohd/zenohd/seqnum"
	"github.com/zenohd/zenohd/transport"
	"github.com/zenohd/zenohd/wire"
)

// Callback is the face's inbound hook: every application message a
// channel's reliable or best-effort receive path accepts is delivered
// here, along with the owning channel (so the routing layer can
// attribute it to a face) and whether it arrived on the reliable or
// best-effort sub-channel (carried forward into routing.Tables.RouteData's
// own reliable flag).
type Callback func(ch *Channel, m *wire.ZenohMessage, reliable bool)

// Channel is one peer's session state: its links, its SN generators
// (one pair for transmit, one pair for receive), and its callback.
type Channel struct {
	mu sync.Mutex

	peerID  string
	lease   int64 // milliseconds
	snRes   uint64
	batch   int

	q  *queue.Queue
	tx *transport.TxLoop

	txSN *transport.SNGenerators
	rxReliable   *seqnum.SeqNum
	rxBestEffort *seqnum.SeqNum

	rxLoops []*transport.RxLoop
	links   []link.Link

	cb     Callback
	closed bool
}

// newChannel constructs a channel from an already-agreed parameter set
// (the result of a completed handshake); see Manager.OpenSession and
// Manager.acceptHandshake for the two ways one gets built.
func newChannel(peerID string, lease int64, snRes uint64, batch int, txInitSN, rxInitSN uint64, cb Callback) (*Channel, error) {
	txRel, err := seqnum.New(txInitSN, snRes)
	if err != nil {
		return nil, err
	}
	txBE, err := seqnum.New(txInitSN, snRes)
	if err != nil {
		return nil, err
	}
	// The receive counters track "last accepted SN", one step behind the
	// first SN the peer will actually send, so that Set(rxInitSN) on the
	// first incoming frame satisfies Precedes (which is strict).
	rxStart := (rxInitSN + snRes - 1) % snRes
	rxRel, err := seqnum.New(rxStart, snRes)
	if err != nil {
		return nil, err
	}
	rxBE, err := seqnum.New(rxStart, snRes)
	if err != nil {
		return nil, err
	}
	q := queue.New([]queue.BucketSpec{
		{Capacity: config.Rom.Get().QueueCapacity[config.PrioControl], InitCredit: config.Rom.Get().InitCredits[config.PrioControl]},
		{Capacity: config.Rom.Get().QueueCapacity[config.PrioRetransmit], InitCredit: config.Rom.Get().InitCredits[config.PrioRetransmit]},
		{Capacity: config.Rom.Get().QueueCapacity[config.PrioData], InitCredit: config.Rom.Get().InitCredits[config.PrioData]},
	})
	ch := &Channel{
		peerID: peerID, lease: lease, snRes: snRes, batch: batch,
		q:            q,
		txSN:         &transport.SNGenerators{Reliable: txRel, BestEffort: txBE},
		rxReliable:   rxRel,
		rxBestEffort: rxBE,
		cb:           cb,
	}
	return ch, nil
}

func (c *Channel) PeerID() string { return c.peerID }

// AddLink stops the transmission loop, appends the link, and restarts it
// (spec.md §4.8); also starts a reception loop for the new link.
func (c *Channel) AddLink(l link.Link) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx != nil {
		c.q.Close()
		c.tx.Wait()
	}
	c.links = append(c.links, l)
	c.q = queue.New([]queue.BucketSpec{
		{Capacity: config.Rom.Get().QueueCapacity[config.PrioControl], InitCredit: config.Rom.Get().InitCredits[config.PrioControl]},
		{Capacity: config.Rom.Get().QueueCapacity[config.PrioRetransmit], InitCredit: config.Rom.Get().InitCredits[config.PrioRetransmit]},
		{Capacity: config.Rom.Get().QueueCapacity[config.PrioData], InitCredit: config.Rom.Get().InitCredits[config.PrioData]},
	})
	c.tx = transport.NewTxLoop(c.q, c.txSN, c.links, c.batch)
	go c.tx.Run()

	rx := transport.NewRxLoop(l, c.onSessionMessage)
	c.rxLoops = append(c.rxLoops, rx)
	go rx.Run()
}

// DelLink removes l; if no links remain the channel closes itself.
func (c *Channel) DelLink(l link.Link) {
	c.mu.Lock()
	for i, cur := range c.links {
		if cur.Equal(l) {
			c.links = append(c.links[:i], c.links[i+1:]...)
			break
		}
	}
	empty := len(c.links) == 0
	c.mu.Unlock()
	if c.tx != nil {
		c.tx.DelLink(l)
	}
	if empty {
		c.Close()
	}
}

// onSessionMessage is the RxLoop callback: dispatches non-FRAME session
// messages directly, validates FRAME SNs before delivering their
// contents to the face callback (spec.md §4.8 "Receive dispatch").
func (c *Channel) onSessionMessage(m *wire.SessionMessage, l link.Link) {
	switch {
	case m.Frame != nil:
		c.onFrame(m.Frame)
	case m.Close != nil:
		c.onClose(m.Close, l)
	case m.KeepAlive != nil, m.PingPong != nil, m.Sync != nil, m.AckNack != nil:
		// liveness/resync traffic: no face-visible effect in this core.
	default:
		nlog.Warningf("session %s: unexpected session message on open channel", c.peerID)
	}
}

func (c *Channel) onFrame(f *wire.Frame) {
	if f.IsFragment {
		// Fragment reassembly isn't implemented (spec.md §9(b)); decoding a
		// lone fragment's payload as a self-contained zenoh-message batch
		// would read garbage off a message that was never meant to stand
		// on its own, so reject it outright rather than risk delivering
		// corrupt messages to the callback.
		nlog.Warningf("session %s: dropping fragmented frame (reassembly not implemented)", c.peerID)
		return
	}
	c.mu.Lock()
	var gen *seqnum.SeqNum
	if f.Reliable {
		gen = c.rxReliable
	} else {
		gen = c.rxBestEffort
	}
	err := gen.Set(f.SN)
	cb := c.cb
	c.mu.Unlock()
	if err != nil {
		return // silently drop, per spec.md §4.8
	}
	raw, err := transport.DecodeFramePayload(f.Payload)
	if err != nil {
		nlog.Warningf("session %s: frame payload decompress error: %v", c.peerID, err)
		return
	}
	msgs, err := wire.DecodeZenohBatch(raw)
	if err != nil {
		nlog.Warningf("session %s: frame payload decode error: %v", c.peerID, err)
		return
	}
	if cb == nil {
		return
	}
	for _, m := range msgs {
		cb(c, m, f.Reliable)
	}
}

func (c *Channel) onClose(cl *wire.Close, l link.Link) {
	if cl.HasPeerID && cl.PeerID != c.peerID {
		return
	}
	if cl.LinkOnly {
		c.DelLink(l)
		return
	}
	c.Close()
}

// Send enqueues an application message for transmission on the given
// channel kind (reliable/best-effort), at the given queue priority.
func (c *Channel) Send(m *wire.ZenohMessage, reliable bool, priority int) {
	ch := transport.ChanBestEffort
	if reliable {
		ch = transport.ChanReliable
	}
	c.mu.Lock()
	q := c.q
	c.mu.Unlock()
	q.Push(&transport.Outbound{App: m, Channel: ch}, priority)
}

// SendSession enqueues a session-level message (e.g. KEEP_ALIVE) at the
// given priority, normally config.PrioControl.
func (c *Channel) SendSession(m *wire.SessionMessage, priority int) {
	c.mu.Lock()
	q := c.q
	c.mu.Unlock()
	q.Push(&transport.Outbound{Session: m}, priority)
}

// Close marks the channel dead, enqueues CLOSE then a stop-sentinel at
// the highest priority, waits for the transmission loop to reach the
// sentinel, then stops the channel's reception loops (spec.md §4.8 "Close").
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	q, tx := c.q, c.tx
	rxLoops := append([]*transport.RxLoop(nil), c.rxLoops...)
	c.mu.Unlock()

	if q != nil {
		q.Push(&transport.Outbound{Session: &wire.SessionMessage{Close: &wire.Close{Reason: wire.CloseGeneric}}}, config.PrioControl)
		q.Push(&transport.Outbound{Stop: true}, config.PrioControl)
	}
	if tx != nil {
		tx.Wait()
	}
	for _, rx := range rxLoops {
		rx.Stop()
	}
}

func (c *Channel) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// OnKeepAliveDue implements transport.Keeper: emits a KEEP_ALIVE each time
// the collector ticks this channel, once per configured
// Lease/KeepAliveDivisor interval. It is sent whether or not other traffic
// went out in that interval.
func (c *Channel) OnKeepAliveDue() {
	if !c.Alive() {
		return
	}
	c.SendSession(&wire.SessionMessage{KeepAlive: &wire.KeepAlive{PeerID: c.peerID, HasPeerID: true}}, config.PrioControl)
}
