// Handshake: OPEN/ACCEPT negotiation (spec.md §4.8 "Handshake"), run
// directly over a link before any TxLoop/RxLoop exists for the channel
// it will produce -- the initial/pre-handshake path spec.md §4.9
// describes.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package session

import (
	"github.com/zenohd/zenohd/cmn/config"
	"github.com/zenohd/zenohd/cmn/cos"
	"github.com/zenohd/zenohd/link"
	"github.com/zenohd/zenohd/wire"
)

func sendSession(l link.Link, m *wire.SessionMessage) error {
	w := wire.NewWriteBuf(0)
	wire.EncodeSession(w, m)
	body := w.Bytes()
	out := make([]byte, 0, 2+len(body))
	n := len(body)
	out = append(out, byte(n), byte(n>>8))
	out = append(out, body...)
	return l.Send(out)
}

// recvSession performs one blocking length-delimited read and decode.
// Adequate for handshake traffic (small, a handful of fields); the
// steady-state per-link reception loop (transport.RxLoop) takes over
// once a channel exists.
func recvSession(l link.Link) (*wire.SessionMessage, error) {
	var pending []byte
	hdr := make([]byte, 2)
	for len(pending) < 2 {
		buf := make([]byte, 256)
		n, err := l.Recv(buf)
		if err != nil {
			return nil, err
		}
		pending = append(pending, buf[:n]...)
	}
	copy(hdr, pending[:2])
	need := int(hdr[0]) | int(hdr[1])<<8
	for len(pending) < 2+need {
		buf := make([]byte, 256)
		n, err := l.Recv(buf)
		if err != nil {
			return nil, err
		}
		pending = append(pending, buf[:n]...)
	}
	body := pending[2 : 2+need]
	return wire.DecodeSession(wire.NewReadBuf(body))
}

// OpenSession dials locator (scheme-qualified, e.g. "tcp/host:port"),
// performs the OPEN/ACCEPT handshake, and on success installs and
// returns the resulting Channel.
func (mgr *Manager) OpenSession(scheme, locator string) (*Channel, error) {
	lm := mgr.linkManager(scheme)
	l, err := lm.Dial(locator)
	if err != nil {
		return nil, err
	}

	cfg := config.Rom.Get()
	open := &wire.Open{
		PeerID: mgr.localPeerID, LeaseMS: uint64(cfg.LeaseMS),
		InitialSN: 0, SNResolution: cfg.SNResolution, HasSNRes: true,
	}
	if err := sendSession(l, &wire.SessionMessage{Open: open}); err != nil {
		_ = l.Close()
		return nil, err
	}

	reply, err := recvSession(l)
	if err != nil {
		_ = l.Close()
		return nil, err
	}
	if reply.Close != nil {
		_ = l.Close()
		return nil, cos.NewErrInvalidSession("peer refused OPEN: reason 0x%x", reply.Close.Reason)
	}
	accept := reply.Accept
	if accept == nil {
		_ = l.Close()
		return nil, cos.NewErrInvalidMessage("expected ACCEPT, got something else")
	}

	leaseOK := accept.LeaseMS <= open.LeaseMS
	snResOK := !accept.HasSNRes || accept.SNResolution <= open.SNResolution
	snRes := open.SNResolution
	if accept.HasSNRes {
		snRes = accept.SNResolution
	}
	snOK := accept.InitialSN < snRes
	if !leaseOK || !snResOK || !snOK {
		_ = sendSession(l, &wire.SessionMessage{Close: &wire.Close{Reason: wire.CloseInvalid}})
		_ = l.Close()
		return nil, cos.NewErrInvalidMessage("ACCEPT violates monotonicity constraints")
	}

	txInitSN := open.InitialSN
	if txInitSN >= snRes {
		txInitSN %= snRes
	}

	batch := cfg.BatchSize
	if l.MTU() < batch {
		batch = l.MTU()
	}
	ch, err := newChannel(accept.ApproverID, int64(accept.LeaseMS), snRes, batch, txInitSN, accept.InitialSN, mgr.cb)
	if err != nil {
		_ = l.Close()
		return nil, err
	}
	if err := mgr.register(ch); err != nil {
		_ = l.Close()
		return nil, err
	}
	if mgr.OnOpen != nil {
		mgr.OnOpen(ch)
	}
	ch.AddLink(l)
	return ch, nil
}

// acceptHandshake runs on the initial session's side of a newly accepted
// link: waits for OPEN, enforces accept-time limits, replies with ACCEPT
// or CLOSE, and on success builds and registers the resulting Channel.
func (mgr *Manager) acceptHandshake(l link.Link) {
	m, err := recvSession(l)
	if err != nil {
		_ = l.Close()
		return
	}
	open := m.Open
	if open == nil {
		_ = l.Close()
		return
	}

	mgr.mu.RLock()
	tooMany := len(mgr.sessions) >= config.Rom.Get().MaxSessions
	mgr.mu.RUnlock()
	if tooMany {
		_ = sendSession(l, &wire.SessionMessage{Close: &wire.Close{Reason: wire.CloseMaxSessions}})
		_ = l.Close()
		return
	}

	agreedLease, agreedSNRes := agreeParams(int64(open.LeaseMS), open.SNResolution)
	accept := &wire.Accept{
		OpenerID: open.PeerID, ApproverID: mgr.localPeerID,
		LeaseMS: uint64(agreedLease), InitialSN: 0,
		SNResolution: agreedSNRes, HasSNRes: true,
	}
	if err := sendSession(l, &wire.SessionMessage{Accept: accept}); err != nil {
		_ = l.Close()
		return
	}

	txInitSN := open.InitialSN
	if txInitSN >= agreedSNRes {
		txInitSN %= agreedSNRes
	}
	batch := config.Rom.Get().BatchSize
	if l.MTU() < batch {
		batch = l.MTU()
	}
	ch, err := newChannel(open.PeerID, agreedLease, agreedSNRes, batch, accept.InitialSN, txInitSN, mgr.cb)
	if err != nil {
		_ = l.Close()
		return
	}
	if err := mgr.register(ch); err != nil {
		_ = l.Close()
		return
	}
	if mgr.OnOpen != nil {
		mgr.OnOpen(ch)
	}
	ch.AddLink(l)
}
