// Package wire implements the byte-level codec for the session and
// application messages: the variable-length integer encoding (this file),
// the chunked read/write buffers (buffer.go), and the message codec
// (message.go, frame.go, codec.go).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package wire

import "github.com/zenohd/zenohd/cmn/cos"

// MaxVarintLen is the longest encoding of a uint64: ceil(64/7) = 10 bytes.
const MaxVarintLen = 10

// PutUvarint appends the 7-bit continuation encoding of v to dst and
// returns the extended slice. The low 7 bits of each byte carry payload;
// the MSB set means "more bytes follow".
func PutUvarint(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// SizeUvarint returns the encoded length of v without allocating.
func SizeUvarint(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// GetUvarint decodes a varint from the front of src, returning the value,
// the number of bytes consumed, and an error.
//
//   - if src is too short to contain a full varint, returns
//     cos.ErrBufferUnderflow with Missing set to a lower-bound estimate
//     (at least 1) so the reception loop knows to read more and retry.
//   - if the 10th byte still has its continuation bit set, the value
//     would not fit in 64 bits: returns ErrInvalidMessage("out of 64-bit
//     bound"), per spec.md §4.1.
func GetUvarint(src []byte) (v uint64, n int, err error) {
	for i := 0; i < len(src); i++ {
		b := src[i]
		if i == MaxVarintLen-1 && b >= 0x80 {
			return 0, 0, cos.NewErrInvalidMessage("varint out of 64-bit bound")
		}
		v |= uint64(b&0x7f) << (7 * uint(i))
		if b < 0x80 {
			return v, i + 1, nil
		}
	}
	return 0, 0, cos.NewErrBufferUnderflow(1)
}
