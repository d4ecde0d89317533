/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package wire_test

import (
	"bytes"
	"testing"

	"github.com/zenohd/zenohd/cmn/cos"
	"github.com/zenohd/zenohd/wire"
)

func TestUvarintRoundTrip(t *testing.T) {
	vals := []uint64{0, 1, 127, 128, 16383, 16384, 1 << 28, 1<<63 - 1, ^uint64(0)}
	for _, v := range vals {
		enc := wire.PutUvarint(nil, v)
		if len(enc) != wire.SizeUvarint(v) {
			t.Fatalf("size mismatch for %d: got %d want %d", v, wire.SizeUvarint(v), len(enc))
		}
		got, n, err := wire.GetUvarint(enc)
		if err != nil {
			t.Fatalf("decode %d: %v", v, err)
		}
		if n != len(enc) || got != v {
			t.Fatalf("roundtrip %d: got (%d,%d)", v, got, n)
		}
	}
}

func TestUvarintUnderflow(t *testing.T) {
	enc := wire.PutUvarint(nil, 1<<20)
	_, _, err := wire.GetUvarint(enc[:1])
	if !cos.IsErrBufferUnderflow(err) {
		t.Fatalf("expected underflow, got %v", err)
	}
}

func TestUvarintOverflow(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < wire.MaxVarintLen; i++ {
		buf.WriteByte(0x80)
	}
	_, _, err := wire.GetUvarint(buf.Bytes())
	if !cos.IsErrInvalidMessage(err) {
		t.Fatalf("expected invalid-message, got %v", err)
	}
}
