// Package seqnum implements the bounded-modulo sequence-number counter
// (spec.md §4.4, component C4): a (value, resolution) pair with a
// half-resolution precedence window, used by every reliable and
// best-effort channel to generate and validate SNs.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package seqnum

import "github.com/zenohd/zenohd/cmn/cos"

// SeqNum is a counter over [0, Resolution). It is not safe for concurrent
// use; each reliable/best-effort channel owns one and serialises access
// through its own lock, same as the channel's other per-direction state.
type SeqNum struct {
	value      uint64
	resolution uint64
}

// New constructs a SeqNum at the given starting value. Fails with
// cos.ErrInvalidResolution unless 0 <= value < resolution.
func New(value, resolution uint64) (*SeqNum, error) {
	if resolution == 0 || value >= resolution {
		return nil, cos.NewErrInvalidResolution(value, resolution)
	}
	return &SeqNum{value: value, resolution: resolution}, nil
}

// Value returns the current value without advancing it.
func (s *SeqNum) Value() uint64 { return s.value }

// Resolution returns the counter's modulus.
func (s *SeqNum) Resolution() uint64 { return s.resolution }

// Get returns the current value and post-increments modulo Resolution.
func (s *SeqNum) Get() uint64 {
	v := s.value
	s.value = (s.value + 1) % s.resolution
	return v
}

// Precedes reports whether a logically precedes b within this counter's
// resolution: (b - a) mod resolution lies in (0, resolution/2].
func (s *SeqNum) Precedes(a, b uint64) bool {
	return Precedes(a, b, s.resolution)
}

// Precedes is the free-function form used by decoders that only have a
// resolution value on hand (e.g. the reception loop validating an
// incoming frame's SN against a channel's expected-next pointer before
// any SeqNum has been constructed for it).
func Precedes(a, b, resolution uint64) bool {
	if resolution == 0 {
		return false
	}
	diff := (b - a + resolution) % resolution
	half := resolution / 2
	return diff > 0 && diff <= half
}

// Set advances the counter to sn, but only if the current value precedes
// sn -- a duplicate, too-far-in-the-past, or too-far-in-the-future sn is
// rejected. Used by the receive path after validating an incoming
// frame's SN.
func (s *SeqNum) Set(sn uint64) error {
	if sn >= s.resolution {
		return cos.NewErrInvalidResolution(sn, s.resolution)
	}
	if !s.Precedes(s.value, sn) {
		return cos.NewErrInvalidMessage("sequence number %d does not precede current %d (resolution %d)",
			sn, s.value, s.resolution)
	}
	s.value = sn
	return nil
}
