// Package transport implements the per-session transmission loop (C7) and
// per-link reception loop (C8) from spec.md §4.6/§4.7: draining the
// credit queue, coalescing application messages into frames, batching
// frames onto MTU-sized link writes, and decoding bytes back into
// messages on the way in. Structurally this replaces aistore's HTTP-based
// streamBase/collector pair (transport/collect.go) with a single-session
// worker-goroutine loop better suited to a raw TCP Link, but keeps that
// package's idle-teardown min-heap shape (see collector.go).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package transport

import (
	"github.com/zenohd/zenohd/cmn/config"
	"github.com/zenohd/zenohd/cmn/nlog"
	"github.com/zenohd/zenohd/link"
	"github.com/zenohd/zenohd/metrics"
	"github.com/zenohd/zenohd/queue"
	"github.com/zenohd/zenohd/seqnum"
	"github.com/zenohd/zenohd/wire"
)

// Channel selects which per-direction SN generator and Frame.Reliable bit
// an outbound application message uses.
type Channel int

const (
	ChanNone Channel = iota
	ChanReliable
	ChanBestEffort
)

// Outbound is one item pushed through the credit queue. Exactly one of
// App/Session is set; Stop is the barrier sentinel from spec.md §4.6 step
// 4 ("a sentinel stop item terminates the loop").
type Outbound struct {
	App     *wire.ZenohMessage
	Session *wire.SessionMessage
	Channel Channel // meaningful only when App != nil
	Link    link.Link // nil => default link (index 0)
	Stop    bool
}

// SNGenerators is the pair of per-direction counters the transmission
// loop draws new frame SNs from; owned exclusively by the transmission
// loop while it runs (spec.md §5).
type SNGenerators struct {
	Reliable   *seqnum.SeqNum
	BestEffort *seqnum.SeqNum
}

type linkState struct {
	link  link.Link
	batch *wire.WriteBuf

	frameKind    Channel
	frameWriter  *wire.WriteBuf // accumulates application messages for the open frame
}

// TxLoop is the one-per-session transmission worker.
type TxLoop struct {
	q     *queue.Queue
	sn    *SNGenerators
	links []*linkState
	done  chan struct{}
}

func NewTxLoop(q *queue.Queue, sn *SNGenerators, links []link.Link, mtu int) *TxLoop {
	t := &TxLoop{q: q, sn: sn, done: make(chan struct{})}
	for _, l := range links {
		t.links = append(t.links, &linkState{link: l, batch: wire.NewWriteBuf(mtu)})
	}
	return t
}

// AddLink appends a link while the loop is not running; callers stop the
// loop, call AddLink, then restart it, per spec.md §4.8 "add_link stops
// the transmission loop, appends the link, restarts it".
func (t *TxLoop) AddLink(l link.Link, mtu int) {
	t.links = append(t.links, &linkState{link: l, batch: wire.NewWriteBuf(mtu)})
}

func (t *TxLoop) DelLink(l link.Link) {
	for i, ls := range t.links {
		if ls.link.Equal(l) {
			t.links = append(t.links[:i], t.links[i+1:]...)
			return
		}
	}
}

func (t *TxLoop) NumLinks() int { return len(t.links) }

// Run drives the loop until a Stop item is drained; it closes t.done
// once the barrier is reached, so Close() can wait on it.
func (t *TxLoop) Run() {
	defer close(t.done)
	for {
		item, _, ok := t.q.TryDrain()
		if !ok {
			// nothing eligible right now: send what is batched before blocking
			t.flushAll()
			item, _, ok = t.q.Drain()
		}
		if !ok {
			t.flushAll()
			return
		}
		ob := item.(*Outbound)
		if ob.Stop {
			t.flushAll()
			return
		}
		t.process(ob)
	}
}

func (t *TxLoop) targetLink(ob *Outbound) *linkState {
	if ob.Link != nil {
		for _, ls := range t.links {
			if ls.link.Equal(ob.Link) {
				return ls
			}
		}
	}
	if len(t.links) == 0 {
		return nil
	}
	return t.links[0]
}

func (t *TxLoop) process(ob *Outbound) {
	ls := t.targetLink(ob)
	if ls == nil {
		nlog.Warningf("transport: tx item has no target link, dropping")
		return
	}
	if ob.Session != nil {
		t.closeFrame(ls)
		t.writeWithRetry(ls, func(w *wire.WriteBuf) { wire.EncodeSession(w, ob.Session) })
		return
	}
	if ob.App == nil {
		return
	}
	if ls.frameKind != ob.Channel {
		t.closeFrame(ls)
		ls.frameKind = ob.Channel
		ls.frameWriter = wire.NewWriteBuf(0)
	}
	wire.EncodeZenoh(ls.frameWriter, ob.App)
}

// closeFrame finalises ls's open frame (if any), assigning it a fresh SN
// from the matching generator, and writes the resulting FRAME session
// message into ls's batch with retry-on-no-fit.
func (t *TxLoop) closeFrame(ls *linkState) {
	if ls.frameKind == ChanNone || ls.frameWriter == nil || ls.frameWriter.Len() == 0 {
		ls.frameKind = ChanNone
		ls.frameWriter = nil
		return
	}
	var sn uint64
	reliable := ls.frameKind == ChanReliable
	if reliable {
		sn = t.sn.Reliable.Get()
	} else {
		sn = t.sn.BestEffort.Get()
	}
	payload := EncodeFramePayload(ls.frameWriter.Bytes(), config.Rom.Get().CompressBatches)
	frame := &wire.Frame{Reliable: reliable, SN: sn, Payload: payload}
	t.writeWithRetry(ls, func(w *wire.WriteBuf) {
		wire.EncodeFrame(w, frame)
	})
	metrics.FramesSent.WithLabelValues(metrics.ChannelLabel(reliable)).Inc()
	ls.frameKind = ChanNone
	ls.frameWriter = nil
}

// writeWithRetry implements spec.md §4.6 step 4: attempt the encode, and
// if the result overflows the link's MTU, revert, flush what's already
// batched, and retry once; a message that still doesn't fit in an empty
// batch is dropped (fragmentation is reserved, not implemented). The
// batch's eventual 16-bit length prefix is prepended once, at flush time
// (see flush), rather than reserved per message up front -- WriteBuf has
// no in-place patch of already-frozen bytes, and computing the total
// length after the fact is just as cheap since flush already copies the
// batch into one contiguous slice before calling link.Send.
func (t *TxLoop) writeWithRetry(ls *linkState, encode func(w *wire.WriteBuf)) {
	mtu := ls.link.MTU()
	for attempt := 0; attempt < 2; attempt++ {
		mark := ls.batch.Mark()
		encode(ls.batch)
		if ls.batch.Len() <= mtu {
			return
		}
		ls.batch.Revert(mark)
		if attempt == 0 {
			t.flush(ls)
			continue
		}
		nlog.Warningf("transport: message exceeds link MTU %d after flush, dropping", mtu)
		return
	}
}

// flush sends ls's accumulated batch over its link, prefixing it with a
// 16-bit little-endian length if the link is stream-oriented, then clears
// the batch for reuse.
func (t *TxLoop) flush(ls *linkState) {
	if ls.batch.Len() == 0 {
		return
	}
	payload := ls.batch.Bytes()
	out := payload
	if ls.link.IsStreamOriented() {
		n := len(payload)
		out = make([]byte, 0, 2+len(payload))
		out = append(out, byte(n), byte(n>>8))
		out = append(out, payload...)
	}
	if err := ls.link.Send(out); err != nil {
		nlog.Warningf("transport: send on %s failed: %v", ls.link.Dst(), err)
	} else {
		metrics.BytesSent.Add(float64(len(out)))
	}
	ls.batch.Clear()
}

func (t *TxLoop) flushAll() {
	for _, ls := range t.links {
		t.closeFrame(ls)
		t.flush(ls)
	}
}

// Wait blocks until Run has reached the stop barrier.
func (t *TxLoop) Wait() { <-t.done }
