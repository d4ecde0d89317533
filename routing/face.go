// Face is one session's (or local application's) view into the routing
// tables: the declare_resource id mappings it owns, its outbound
// primitives sink, and -- for queries -- the pending replies it is still
// waiting to consolidate and forward back to its own originator.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package routing

import (
	cuckoo "github.com/seiflotfy/cuckoofilter"

	"github.com/zenohd/zenohd/wire"
)

// Primitives is the outbound half of a face: whatever declares
// resources/subscriptions/queryables and carries data/query/reply
// traffic out to whatever this face fronts (a remote session's Channel,
// or a local application). Grounded on the original's Primitives trait
// (zenoh-router/src/routing/broker.rs and primitives.rs analogues).
type Primitives interface {
	Resource(rid uint64, name string)
	ForgetResource(rid uint64)
	Subscriber(key wire.ResKey, mode wire.SubMode)
	ForgetSubscriber(key wire.ResKey)
	Queryable(key wire.ResKey)
	ForgetQueryable(key wire.ResKey)
	Data(key wire.ResKey, reliable bool, info *wire.DataInfo, payload []byte)
	Query(key wire.ResKey, predicate string, qid uint64, target wire.QueryTarget, consolidation wire.QueryConsolidation)
	Reply(qid uint64, reply *wire.Reply)
}

// queryFanout is shared by every destination a single incoming QUERY was
// dispatched to; remaining counts how many of those destinations have
// not yet sent their ReplyFinal. The originator only sees its own
// ReplyFinal once remaining reaches zero (spec.md §9 "final reply
// consolidation").
type queryFanout struct {
	srcFace   *Face
	srcQID    uint64
	remaining int
}

// Face is one endpoint attached to the routing tables.
type Face struct {
	ID      uint64
	WhatAmI uint8
	Primitives

	localMappings map[uint64]*Resource // this face's resource-id -> Resource, for its own incoming DECLAREs
	nextLocalID   uint64

	nextQID        uint64
	pendingQueries map[uint64]*queryFanout // this face's own qid -> fan-out it's part of

	// declaredFilter is a per-face approximate membership filter recording
	// which resource names have already been pushed to (or, for
	// DeclareResource, bound by) this face, so re-declaring the same name
	// -- including the full replay a newly joined face gets from NewFace --
	// doesn't re-emit a redundant RDECL/QDECL. A cuckoo filter is the right
	// shape here: false positives only cost a skipped, harmless resend,
	// never an incorrect route, and it never needs resizing the way a
	// plain map would keep growing under long-lived heavy DECLARE churn.
	declaredFilter *cuckoo.Filter
}

// faceFilterCapacity bounds the cuckoo filter's backing table; it is an
// approximate sizing hint; the filter degrades to more false positives
// (extra, harmless resends) well past this many distinct names, not to
// incorrect behavior.
const faceFilterCapacity = 4096

func newFace(id uint64, whatAmI uint8, p Primitives) *Face {
	return &Face{
		ID: id, WhatAmI: whatAmI, Primitives: p,
		localMappings:  make(map[uint64]*Resource),
		pendingQueries: make(map[uint64]*queryFanout),
		declaredFilter: cuckoo.NewFilter(faceFilterCapacity),
	}
}

// alreadyDeclared reports whether name was already recorded against this
// face by a prior markDeclared call.
func (f *Face) alreadyDeclared(name string) bool {
	return f.declaredFilter.Lookup([]byte(name))
}

// markDeclared records name as now declared against this face.
func (f *Face) markDeclared(name string) {
	f.declaredFilter.InsertUnique([]byte(name))
}

func (f *Face) nextLocalRID() uint64 {
	f.nextLocalID++
	return f.nextLocalID
}

// getMapping resolves a DECLARE's numeric resource id against this
// face's own prior Resource declarations, with id 0 meaning "the trie
// root" (spec.md §9's convention for resource ids, mirroring the
// original's `match prefixid { 0 => root, id => face.get_mapping(id) }`).
func (f *Face) getMapping(root *Resource, rid uint64) (*Resource, bool) {
	if rid == 0 {
		return root, true
	}
	r, ok := f.localMappings[rid]
	return r, ok
}
