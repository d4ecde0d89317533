// Top-level encode/decode dispatch (component C3): EncodeSession/
// DecodeSession operate on the top-level wire stream (ids 0x01..0x0a);
// EncodeZenoh/DecodeZenoh operate on a FRAME's payload (ids 0x01..0x05
// plus REPLY 0x1e) -- the same byte values in a different namespace,
// disambiguated purely by which of the two functions the caller invokes,
// per spec.md §3's "two ID namespaces" note. The attachment ids (0x1f in
// both namespaces) are defined in message.go but not decoded: both
// decoders return InvalidMessage for them.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package wire

import "github.com/zenohd/zenohd/cmn/cos"

// SessionMessage is the decoded union of everything that can appear at the
// top level of the wire stream.
type SessionMessage struct {
	Scout     *Scout
	Hello     *Hello
	Open      *Open
	Accept    *Accept
	Close     *Close
	Sync      *Sync
	AckNack   *AckNack
	KeepAlive *KeepAlive
	PingPong  *PingPong
	Frame     *Frame
}

// DecodeSession reads one session message's header and dispatches to the
// matching decoder. The caller (the per-link reception loop) is expected
// to have already delimited exactly one message's bytes into r via the
// stream's 16-bit length prefix.
func DecodeSession(r *ReadBuf) (*SessionMessage, error) {
	header, err := r.Read()
	if err != nil {
		return nil, err
	}
	id := MsgID(header)
	m := &SessionMessage{}
	switch id {
	case IDScout:
		m.Scout, err = DecodeScout(header, r)
	case IDHello:
		m.Hello, err = DecodeHello(header, r)
	case IDOpen:
		m.Open, err = DecodeOpen(header, r)
	case IDAccept:
		m.Accept, err = DecodeAccept(header, r)
	case IDClose:
		m.Close, err = DecodeClose(header, r)
	case IDSync:
		m.Sync, err = DecodeSync(header, r)
	case IDAckNack:
		m.AckNack, err = DecodeAckNack(header, r)
	case IDKeepAlive:
		m.KeepAlive, err = DecodeKeepAlive(header, r)
	case IDPingPong:
		m.PingPong, err = DecodePingPong(header, r)
	case IDFrame:
		m.Frame, err = DecodeFrame(header, r)
	default:
		return nil, cos.NewErrInvalidMessage("unknown session message id 0x%x", id)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// EncodeSession writes whichever field of m is non-nil (exactly one is
// expected to be set; callers build m with a single-field composite
// literal).
func EncodeSession(w *WriteBuf, m *SessionMessage) {
	switch {
	case m.Scout != nil:
		EncodeScout(w, m.Scout)
	case m.Hello != nil:
		EncodeHello(w, m.Hello)
	case m.Open != nil:
		EncodeOpen(w, m.Open)
	case m.Accept != nil:
		EncodeAccept(w, m.Accept)
	case m.Close != nil:
		EncodeClose(w, m.Close)
	case m.Sync != nil:
		EncodeSync(w, m.Sync)
	case m.AckNack != nil:
		EncodeAckNack(w, m.AckNack)
	case m.KeepAlive != nil:
		EncodeKeepAlive(w, m.KeepAlive)
	case m.PingPong != nil:
		EncodePingPong(w, m.PingPong)
	case m.Frame != nil:
		EncodeFrame(w, m.Frame)
	default:
		panic("wire: empty SessionMessage")
	}
}

// ZenohMessage is the decoded union of everything that can appear inside a
// FRAME's payload.
type ZenohMessage struct {
	Declare *Declare
	Data    *Data
	Query   *Query
	Pull    *Pull
	Unit    *Unit
	Reply   *Reply
}

// DecodeZenoh decodes one application message from r; a caller loops while
// r.Readable() > 0 to take every message packed into a FRAME's payload
// (see DecodeZenohBatch). IDReply (0x1e) is surfaced as its
// own field distinct from Data/Unit, since its ReplyContext decorator is
// unconditional rather than flag-gated.
func DecodeZenoh(r *ReadBuf) (*ZenohMessage, error) {
	header, err := r.Read()
	if err != nil {
		return nil, err
	}
	id := MsgID(header)
	m := &ZenohMessage{}
	switch id {
	case IDDeclare:
		m.Declare, err = DecodeDeclare(r)
	case IDData:
		m.Data, err = DecodeData(header, r, false)
	case IDQuery:
		m.Query, err = DecodeQuery(header, r)
	case IDPull:
		m.Pull, err = DecodePull(header, r)
	case IDUnit:
		m.Unit, err = DecodeUnit(r, false)
	case IDReply:
		m.Reply, err = DecodeReply(r)
	default:
		return nil, cos.NewErrInvalidMessage("unknown zenoh message id 0x%x", id)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func EncodeZenoh(w *WriteBuf, m *ZenohMessage) {
	switch {
	case m.Declare != nil:
		EncodeDeclare(w, m.Declare)
	case m.Data != nil:
		EncodeData(w, m.Data)
	case m.Query != nil:
		EncodeQuery(w, m.Query)
	case m.Pull != nil:
		EncodePull(w, m.Pull)
	case m.Unit != nil:
		EncodeUnit(w, m.Unit)
	case m.Reply != nil:
		EncodeReply(w, m.Reply)
	default:
		panic("wire: empty ZenohMessage")
	}
}

// DecodeZenohBatch decodes every application message packed into a single
// FRAME payload, in order -- a FRAME's Payload may carry more than one
// small message back-to-back (spec.md §4.3).
func DecodeZenohBatch(payload []byte) ([]*ZenohMessage, error) {
	r := NewReadBuf(payload)
	var out []*ZenohMessage
	for r.Readable() > 0 {
		m, err := DecodeZenoh(r)
		if err != nil {
			return out, err
		}
		out = append(out, m)
	}
	return out, nil
}
