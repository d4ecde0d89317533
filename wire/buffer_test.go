/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package wire_test

import (
	"bytes"
	"testing"

	"github.com/zenohd/zenohd/wire"
)

func TestWriteBufSpillsChunks(t *testing.T) {
	w := wire.NewWriteBuf(4)
	w.WriteBytes([]byte("hello world"))
	if w.Len() != 11 {
		t.Fatalf("got len %d", w.Len())
	}
	rb := w.AsReadBuf()
	got, err := rb.ReadBytes(11)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("hello world")) {
		t.Fatalf("got %q", got)
	}
}

func TestWriteBufMarkRevert(t *testing.T) {
	w := wire.NewWriteBuf(0)
	w.WriteBytes([]byte("abc"))
	m := w.Mark()
	w.WriteBytes([]byte("defgh"))
	if w.Len() != 8 {
		t.Fatalf("got len %d before revert", w.Len())
	}
	w.Revert(m)
	if w.Len() != 3 {
		t.Fatalf("got len %d after revert", w.Len())
	}
	rb := w.AsReadBuf()
	got, _ := rb.ReadBytes(3)
	if string(got) != "abc" {
		t.Fatalf("got %q", got)
	}
}

func TestReadBufAcrossChunks(t *testing.T) {
	rb := wire.NewReadBuf([]byte("ab"), []byte("cd"), []byte("ef"))
	if rb.Readable() != 6 {
		t.Fatalf("got readable %d", rb.Readable())
	}
	got, err := rb.ReadBytes(4)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "abcd" {
		t.Fatalf("got %q", got)
	}
	if rb.Readable() != 2 {
		t.Fatalf("got remaining %d", rb.Readable())
	}
}

func TestReadBufPosRewind(t *testing.T) {
	rb := wire.NewReadBuf([]byte("hello"))
	_, _ = rb.Read()
	mark := rb.GetPos()
	_, _ = rb.ReadBytes(2)
	rb.SetPos(mark)
	if rb.Readable() != 4 {
		t.Fatalf("got readable %d after rewind", rb.Readable())
	}
}

func TestReadBufUnderflow(t *testing.T) {
	rb := wire.NewReadBuf([]byte("ab"))
	if _, err := rb.ReadBytes(3); err == nil {
		t.Fatal("expected underflow error")
	}
}
