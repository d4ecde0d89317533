// Session-level message structs and their codec: SCOUT/HELLO/OPEN/ACCEPT/
// CLOSE/SYNC/ACK_NACK/KEEP_ALIVE/PING_PONG (spec.md §4.3, §6). FRAME lives
// in frame.go since its payload feeds straight into the zenoh codec.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package wire

import "github.com/zenohd/zenohd/cmn/cos"

type Scout struct {
	WhatAmI  uint8
	HasWhat  bool
}

func EncodeScout(w *WriteBuf, m *Scout) {
	h := byte(IDScout)
	if m.HasWhat {
		h |= FlagW
	}
	w.Write(h)
	if m.HasWhat {
		w.Write(m.WhatAmI)
	}
}

func DecodeScout(header byte, r *ReadBuf) (*Scout, error) {
	m := &Scout{HasWhat: HasFlag(header, FlagW)}
	if m.HasWhat {
		b, err := r.Read()
		if err != nil {
			return nil, err
		}
		m.WhatAmI = b
	}
	return m, nil
}

type Hello struct {
	PeerID    string
	HasPeerID bool
	WhatAmI   uint8
	Locators  []string
}

func EncodeHello(w *WriteBuf, m *Hello) {
	h := byte(IDHello)
	if m.HasPeerID {
		h |= FlagI
	}
	if len(m.Locators) > 0 {
		h |= FlagL
	}
	w.Write(h)
	if m.HasPeerID {
		writeString(w, m.PeerID)
	}
	w.Write(m.WhatAmI)
	if len(m.Locators) > 0 {
		writeStringList(w, m.Locators)
	}
}

func DecodeHello(header byte, r *ReadBuf) (*Hello, error) {
	m := &Hello{HasPeerID: HasFlag(header, FlagI)}
	var err error
	if m.HasPeerID {
		if m.PeerID, err = readString(r); err != nil {
			return nil, err
		}
	}
	if m.WhatAmI, err = r.Read(); err != nil {
		return nil, err
	}
	if HasFlag(header, FlagL) {
		if m.Locators, err = readStringList(r); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Open is the session handshake's first message (spec.md §6). Lease is
// wire-encoded in milliseconds.
type Open struct {
	PeerID       string
	LeaseMS      uint64
	InitialSN    uint64
	SNResolution uint64
	HasSNRes     bool
	Locators     []string
}

func EncodeOpen(w *WriteBuf, m *Open) {
	h := byte(IDOpen)
	if m.HasSNRes {
		h |= FlagS
	}
	if len(m.Locators) > 0 {
		h |= FlagL
	}
	w.Write(h)
	w.Write(ProtocolVersion)
	writeString(w, m.PeerID)
	w.WriteBytes(PutUvarint(nil, m.LeaseMS))
	w.WriteBytes(PutUvarint(nil, m.InitialSN))
	if m.HasSNRes {
		w.WriteBytes(PutUvarint(nil, m.SNResolution))
	}
	if len(m.Locators) > 0 {
		writeStringList(w, m.Locators)
	}
}

func DecodeOpen(header byte, r *ReadBuf) (*Open, error) {
	m := &Open{HasSNRes: HasFlag(header, FlagS)}
	if _, err := r.Read(); err != nil { // protocol version, currently unchecked
		return nil, err
	}
	var err error
	if m.PeerID, err = readString(r); err != nil {
		return nil, err
	}
	if m.LeaseMS, err = readVarint(r); err != nil {
		return nil, err
	}
	if m.InitialSN, err = readVarint(r); err != nil {
		return nil, err
	}
	if m.HasSNRes {
		if m.SNResolution, err = readVarint(r); err != nil {
			return nil, err
		}
	}
	if HasFlag(header, FlagL) {
		if m.Locators, err = readStringList(r); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Accept is the handshake's reply. OpenerID echoes Open.PeerID so a link
// accepted out of order can still be matched to its pending dial.
type Accept struct {
	OpenerID     string
	ApproverID   string
	LeaseMS      uint64
	InitialSN    uint64
	SNResolution uint64
	HasSNRes     bool
	Locators     []string
}

func EncodeAccept(w *WriteBuf, m *Accept) {
	h := byte(IDAccept)
	if m.HasSNRes {
		h |= FlagS
	}
	if len(m.Locators) > 0 {
		h |= FlagL
	}
	w.Write(h)
	writeString(w, m.OpenerID)
	writeString(w, m.ApproverID)
	w.WriteBytes(PutUvarint(nil, m.LeaseMS))
	w.WriteBytes(PutUvarint(nil, m.InitialSN))
	if m.HasSNRes {
		w.WriteBytes(PutUvarint(nil, m.SNResolution))
	}
	if len(m.Locators) > 0 {
		writeStringList(w, m.Locators)
	}
}

func DecodeAccept(header byte, r *ReadBuf) (*Accept, error) {
	m := &Accept{HasSNRes: HasFlag(header, FlagS)}
	var err error
	if m.OpenerID, err = readString(r); err != nil {
		return nil, err
	}
	if m.ApproverID, err = readString(r); err != nil {
		return nil, err
	}
	if m.LeaseMS, err = readVarint(r); err != nil {
		return nil, err
	}
	if m.InitialSN, err = readVarint(r); err != nil {
		return nil, err
	}
	if m.HasSNRes {
		if m.SNResolution, err = readVarint(r); err != nil {
			return nil, err
		}
	}
	if HasFlag(header, FlagL) {
		if m.Locators, err = readStringList(r); err != nil {
			return nil, err
		}
	}
	return m, nil
}

type Close struct {
	PeerID    string
	HasPeerID bool
	Reason    uint8
	LinkOnly  bool
}

func EncodeClose(w *WriteBuf, m *Close) {
	h := byte(IDClose)
	if m.HasPeerID {
		h |= FlagI
	}
	if m.LinkOnly {
		h |= FlagK
	}
	w.Write(h)
	if m.HasPeerID {
		writeString(w, m.PeerID)
	}
	w.Write(m.Reason)
}

func DecodeClose(header byte, r *ReadBuf) (*Close, error) {
	m := &Close{HasPeerID: HasFlag(header, FlagI), LinkOnly: HasFlag(header, FlagK)}
	var err error
	if m.HasPeerID {
		if m.PeerID, err = readString(r); err != nil {
			return nil, err
		}
	}
	if m.Reason, err = r.Read(); err != nil {
		return nil, err
	}
	return m, nil
}

// Sync carries a channel's current base SN, used to resynchronise a
// reliable or best-effort channel after a gap is detected (spec.md §4.6).
type Sync struct {
	Reliable bool
	SN       uint64
	Count    uint64
	HasCount bool
}

func EncodeSync(w *WriteBuf, m *Sync) {
	h := byte(IDSync)
	if m.Reliable {
		h |= FlagR
	}
	if m.HasCount {
		h |= FlagC
	}
	w.Write(h)
	w.WriteBytes(PutUvarint(nil, m.SN))
	if m.HasCount {
		w.WriteBytes(PutUvarint(nil, m.Count))
	}
}

func DecodeSync(header byte, r *ReadBuf) (*Sync, error) {
	m := &Sync{Reliable: HasFlag(header, FlagR), HasCount: HasFlag(header, FlagC)}
	var err error
	if m.SN, err = readVarint(r); err != nil {
		return nil, err
	}
	if m.HasCount {
		if m.Count, err = readVarint(r); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// AckNack acknowledges up to SN-1 and, optionally, carries a bitmask of
// further out-of-order SNs received past the gap (spec.md §4.6 NACK path).
type AckNack struct {
	SN      uint64
	Mask    uint64
	HasMask bool
}

func EncodeAckNack(w *WriteBuf, m *AckNack) {
	h := byte(IDAckNack)
	if m.HasMask {
		h |= FlagM
	}
	w.Write(h)
	w.WriteBytes(PutUvarint(nil, m.SN))
	if m.HasMask {
		w.WriteBytes(PutUvarint(nil, m.Mask))
	}
}

func DecodeAckNack(header byte, r *ReadBuf) (*AckNack, error) {
	m := &AckNack{HasMask: HasFlag(header, FlagM)}
	var err error
	if m.SN, err = readVarint(r); err != nil {
		return nil, err
	}
	if m.HasMask {
		if m.Mask, err = readVarint(r); err != nil {
			return nil, err
		}
	}
	return m, nil
}

type KeepAlive struct {
	PeerID    string
	HasPeerID bool
}

func EncodeKeepAlive(w *WriteBuf, m *KeepAlive) {
	h := byte(IDKeepAlive)
	if m.HasPeerID {
		h |= FlagI
	}
	w.Write(h)
	if m.HasPeerID {
		writeString(w, m.PeerID)
	}
}

func DecodeKeepAlive(header byte, r *ReadBuf) (*KeepAlive, error) {
	m := &KeepAlive{HasPeerID: HasFlag(header, FlagI)}
	if m.HasPeerID {
		var err error
		if m.PeerID, err = readString(r); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// PingPong: a liveness probe distinct from keep-alive (spec.md supplemented
// feature) -- ping carries an opaque nonce that pong must echo back.
type PingPong struct {
	IsPing bool
	Nonce  uint64
}

func EncodePingPong(w *WriteBuf, m *PingPong) {
	h := byte(IDPingPong)
	if m.IsPing {
		h |= FlagP
	}
	w.Write(h)
	w.WriteBytes(PutUvarint(nil, m.Nonce))
}

func DecodePingPong(header byte, r *ReadBuf) (*PingPong, error) {
	m := &PingPong{IsPing: HasFlag(header, FlagP)}
	var err error
	if m.Nonce, err = readVarint(r); err != nil {
		return nil, err
	}
	return m, nil
}

//
// shared primitive encodings: length-prefixed strings, string lists,
// varint passthrough with cos error wrapping.
//

func writeString(w *WriteBuf, s string) {
	w.WriteBytes(PutUvarint(nil, uint64(len(s))))
	w.WriteBytes([]byte(s))
}

func readString(r *ReadBuf) (string, error) {
	n, err := readVarint(r)
	if err != nil {
		return "", err
	}
	b, err := r.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func writeStringList(w *WriteBuf, ss []string) {
	w.WriteBytes(PutUvarint(nil, uint64(len(ss))))
	for _, s := range ss {
		writeString(w, s)
	}
}

func readStringList(r *ReadBuf) ([]string, error) {
	n, err := readVarint(r)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	for i := uint64(0); i < n; i++ {
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// readVarint reads one varint off r byte-by-byte (bounded to MaxVarintLen);
// a short read returns r.Read's buffer-underflow error unchanged.
func readVarint(r *ReadBuf) (uint64, error) {
	var buf [MaxVarintLen]byte
	n := 0
	for ; n < MaxVarintLen; n++ {
		b, err := r.Read()
		if err != nil {
			return 0, err
		}
		buf[n] = b
		if b < 0x80 {
			n++
			break
		}
	}
	v, _, err := GetUvarint(buf[:n])
	if err != nil {
		return 0, err
	}
	if n == MaxVarintLen && buf[n-1] >= 0x80 {
		return 0, cos.NewErrInvalidMessage("varint out of 64-bit bound")
	}
	return v, nil
}
