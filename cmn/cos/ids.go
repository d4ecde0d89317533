// Package cos - peer/session identifier generation, grounded on aistore's
// cmn/cos/uuid.go (teris-io/shortid + a fast 3-letter tie breaker drawn
// from an atomic counter, for disambiguating concurrent generators).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import (
	"crypto/rand"

	"github.com/OneOfOne/xxhash"
	"github.com/teris-io/shortid"

	"github.com/zenohd/zenohd/cmn/atomic"
)

// alphabet for generated ids: 64 symbols, the same count as shortid's
// default, so every index of GenTie's 6-bit indexing below is a symbol.
const idABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

const (
	// LenPeerID is the target length (bytes) of a generated peer id; the
	// wire format itself accepts any 1..16 byte peer id (spec.md data
	// model), generation just needs to stay inside that range.
	LenPeerID = 9
)

var (
	sid  *shortid.Shortid
	rtie atomic.Uint32
)

// InitIDGen seeds the process-wide id generator. GenPeerID calls it on
// first use with a seed read from crypto/rand.
func InitIDGen(seed uint64) {
	sid = shortid.MustNew(4 /*worker*/, idABC, seed)
}

// GenPeerID returns a short, printable, process-unique peer id suitable for
// the OPEN/ACCEPT handshake's peer-id field. Peer-id *uniqueness* is a
// best-effort convenience for demos and tests; production deployments are
// expected to assign peer ids out of band.
func GenPeerID() string {
	if sid == nil {
		InitIDGen(defaultSeed())
	}
	return sid.MustGenerate()
}

// GenTie returns a fast 3-character tie-breaker, used to disambiguate a
// batch of ids minted in the same tick (e.g. concurrent query ids fired
// within one routing fan-out).
func GenTie() string {
	tie := rtie.Add(1)
	b0 := idABC[tie&0x3f]
	b1 := idABC[^tie&0x3f]
	b2 := idABC[(tie>>2)&0x3f]
	return string([]byte{b0, b1, b2})
}

// HashName64 is a fast non-cryptographic (xxhash) digest of a resource
// name. Nothing in this module calls it; the per-face "already declared"
// check in routing/face.go uses a cuckoo filter instead.
func HashName64(name string) uint64 {
	return xxhash.Checksum64S([]byte(name), 0)
}

func defaultSeed() uint64 {
	var b [8]byte
	_, _ = rand.Read(b[:])
	var v uint64
	for i, c := range b {
		v |= uint64(c) << (8 * i)
	}
	return v
}
