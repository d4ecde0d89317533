// FRAME envelope (spec.md §4.3): a session-message wrapper carrying one
// sequence number and one or more application messages (or, when
// fragmented, a slice of one application message's payload).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package wire

import "github.com/zenohd/zenohd/cmn/cos"

// Frame is the decoded form of a FRAME message. Payload holds the raw,
// still-encoded application-message bytes (zero-copy slice of the
// read-buf's backing chunk); the session channel decodes them with
// DecodeZenohBatch after validating the frame's SN.
type Frame struct {
	Reliable bool
	IsFragment bool
	IsLastFragment bool
	SN      uint64
	Payload []byte
}

func frameHeader(f *Frame) byte {
	h := byte(IDFrame)
	if f.Reliable {
		h |= FlagR
	}
	if f.IsFragment {
		h |= FlagF
		if f.IsLastFragment {
			h |= FlagE
		}
	}
	return h
}

// EncodeFrame writes a FRAME's header, SN, and payload into w.
func EncodeFrame(w *WriteBuf, f *Frame) {
	w.Write(frameHeader(f))
	w.WriteBytes(PutUvarint(nil, f.SN))
	w.AppendSlice(f.Payload)
}

// DecodeFrame reads a FRAME's header (already consumed by the caller via
// Peek-style MsgID dispatch -- header is passed in), SN, and remaining
// payload bytes (the rest of the read-buf up to the stream's own length
// delimiter, which the caller has already sliced off into a bounded
// read-buf).
func DecodeFrame(header byte, r *ReadBuf) (*Frame, error) {
	f := &Frame{
		Reliable:       HasFlag(header, FlagR),
		IsFragment:     HasFlag(header, FlagF),
		IsLastFragment: HasFlag(header, FlagE),
	}
	if f.IsFragment {
		return nil, cos.NewErrInvalidMessage("fragmented FRAME: reassembly is not supported")
	}
	snBytes, err := readVarintBytes(r)
	if err != nil {
		return nil, err
	}
	sn, _, err := GetUvarint(snBytes)
	if err != nil {
		return nil, err
	}
	f.SN = sn
	rest, err := r.ReadBytes(r.Readable())
	if err != nil {
		return nil, err
	}
	f.Payload = rest
	return f, nil
}

// readVarintBytes reads just enough bytes off r to contain one complete
// varint, without knowing its length ahead of time: it peeks byte by byte
// (cheap -- ReadBuf.Read is zero-alloc) and stops at the first byte whose
// continuation bit is clear.
func readVarintBytes(r *ReadBuf) ([]byte, error) {
	var buf [MaxVarintLen]byte
	for i := 0; i < MaxVarintLen; i++ {
		b, err := r.Read()
		if err != nil {
			return nil, err
		}
		buf[i] = b
		if b < 0x80 {
			return buf[:i+1], nil
		}
	}
	return nil, cos.NewErrInvalidMessage("varint out of 64-bit bound")
}
