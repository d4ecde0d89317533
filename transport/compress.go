// Optional per-frame payload compression (spec.md leaves batch framing
// otherwise untouched): a FRAME's Payload carries a one-byte marker ahead
// of the actual application-message bytes, grounded on the lz4 framing
// format pierrec/lz4/v3's Writer/Reader already produce (self-describing,
// no separate length bookkeeping needed on the decode side).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package transport

import (
	"bytes"
	"io"

	"github.com/pierrec/lz4/v3"

	"github.com/zenohd/zenohd/cmn/nlog"
)

const (
	payloadRaw byte = 0x00
	payloadLZ4 byte = 0x01
)

// EncodeFramePayload prefixes raw with a marker byte, lz4-compressing it
// first when compress is true. Falls back to raw on a compression error
// (e.g. an incompressible or pathological input) rather than dropping the
// frame.
func EncodeFramePayload(raw []byte, compress bool) []byte {
	if !compress || len(raw) == 0 {
		return append([]byte{payloadRaw}, raw...)
	}
	var buf bytes.Buffer
	buf.WriteByte(payloadLZ4)
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		nlog.Warningf("transport: lz4 compress failed, sending raw frame: %v", err)
		return append([]byte{payloadRaw}, raw...)
	}
	if err := w.Close(); err != nil {
		nlog.Warningf("transport: lz4 compress close failed, sending raw frame: %v", err)
		return append([]byte{payloadRaw}, raw...)
	}
	return buf.Bytes()
}

// DecodeFramePayload reverses EncodeFramePayload; the marker byte alone
// decides how to interpret the rest, regardless of this side's own
// CompressBatches setting.
func DecodeFramePayload(p []byte) ([]byte, error) {
	if len(p) == 0 {
		return p, nil
	}
	marker, body := p[0], p[1:]
	if marker == payloadRaw {
		return body, nil
	}
	r := lz4.NewReader(bytes.NewReader(body))
	return io.ReadAll(r)
}
