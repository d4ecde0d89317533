// Tables is the shared routing state a local peer maintains across all
// of its faces: the resource trie plus the face registry, and the
// propagation/consolidation logic for pub/sub and query traffic
// (spec.md §9, component C11). Grounded on the original implementation's
// routing/tables.rs, routing/pubsub.rs and routing/queries.rs, adapted
// from async Rust with unsafe Arc mutation to a single mutex-guarded Go
// struct -- this core has no async runtime, so every operation here runs
// to completion under Tables.mu the way every other shared-state
// component in this module does (queue.Queue, session.Channel).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package routing

import (
	"sync"

	"github.com/zenohd/zenohd/cmn/nlog"
	"github.com/zenohd/zenohd/wire"
)

const (
	WhatAmIRouter = wire.WhatAmIRouter
	WhatAmIPeer   = wire.WhatAmIPeer
	WhatAmIClient = wire.WhatAmIClient
)

// Tables owns one local peer's routing state.
type Tables struct {
	mu sync.Mutex

	root       *Resource
	faces      map[uint64]*Face
	nextFaceID uint64
}

func NewTables() *Tables {
	return &Tables{root: NewRoot(), faces: make(map[uint64]*Face)}
}

// NewFace registers a new face and returns it; whatAmI is one of
// wire.WhatAmI{Router,Peer,Client} and governs the no-peer-to-peer-loop
// propagation policy used throughout this file. Every subscription and
// queryable already declared by some other face is immediately replayed
// to it, mirroring the original's Tables::declare_session (a newly
// attached face otherwise wouldn't learn about interest that was
// declared before it joined).
func (t *Tables) NewFace(whatAmI uint8, p Primitives) *Face {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextFaceID++
	f := newFace(t.nextFaceID, whatAmI, p)
	t.faces[f.ID] = f

	type replay struct {
		name      string
		mode      *wire.SubMode
		queryable bool
	}
	var pending []replay
	walkResources(t.root, func(r *Resource) {
		for id, ctx := range r.contexts {
			if id == f.ID || !shouldPropagate(ctx.Face, f) {
				continue
			}
			if ctx.SubMode != nil {
				pending = append(pending, replay{name: r.Name(), mode: ctx.SubMode})
			}
			if ctx.Queryable {
				pending = append(pending, replay{name: r.Name(), queryable: true})
			}
		}
	})
	for _, r := range pending {
		f.markDeclared(r.name)
		if r.queryable {
			f.Queryable(wire.ResKey{Suffix: r.name})
		} else {
			f.Subscriber(wire.ResKey{Suffix: r.name}, *r.mode)
		}
	}
	return f
}

// RemoveFace unregisters f and cleans up every resource node it was the
// sole remaining reference to.
func (t *Tables) RemoveFace(f *Face) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.faces, f.ID)
	for _, res := range f.localMappings {
		delete(res.contexts, f.ID)
		Clean(res)
	}
	var dead []*Resource
	walkResources(t.root, func(r *Resource) {
		if _, ok := r.contexts[f.ID]; ok {
			delete(r.contexts, f.ID)
			dead = append(dead, r)
		}
	})
	for _, r := range dead {
		Clean(r)
	}
}

// bestPrefixKey looks for the nearest ancestor of res (res itself
// included) that other already has a recognised id for -- either because
// other declared that prefix itself (ctx.HasRemote, set in
// DeclareResource) or because this router previously minted one for
// other on demand (ctx.HasLocal, set by bestKeyForFace below) -- and
// returns that id paired with the remaining suffix down to res. The root
// is never checked: id 0 always denotes it implicitly, so a caller that
// gets ok=false can fall back to ResKey{Suffix: res.Name()} safely.
func bestPrefixKey(res *Resource, other *Face) (wire.ResKey, bool) {
	full := res.Name()
	for n := res; n != nil && n.parent != nil; n = n.parent {
		ctx, ok := n.contexts[other.ID]
		if !ok {
			continue
		}
		prefixLen := len(n.Name())
		switch {
		case ctx.HasRemote:
			return wire.ResKey{ID: ctx.RemoteRID, Suffix: full[prefixLen:]}, true
		case ctx.HasLocal:
			return wire.ResKey{ID: ctx.LocalRID, Suffix: full[prefixLen:]}, true
		}
	}
	return wire.ResKey{}, false
}

// bestKeyForFace computes the most compact key other can resolve res
// through (spec.md §4.10 "best key (longest known prefix) for that remote
// face"). When allocate is true and no known prefix exists, it mints a
// fresh id from other's own per-face counter, registers it with a
// preceding Resource declaration, and remembers the mapping so later
// calls (including Forget*) reuse it; when false (the data/query routing
// path) it never mutates state, falling back to the literal full name.
func bestKeyForFace(res *Resource, other *Face, allocate bool) wire.ResKey {
	if key, ok := bestPrefixKey(res, other); ok {
		return key
	}
	if !allocate {
		return wire.ResKey{Suffix: res.Name()}
	}
	rid := other.nextLocalRID()
	other.Resource(rid, res.Name())
	ctx := res.ensureContext(other)
	ctx.LocalRID = rid
	ctx.HasLocal = true
	return wire.ResKey{ID: rid}
}

// shouldPropagate implements the original's router/peer full-mesh
// avoidance: a peer never forwards declarations or data to another peer
// on its behalf (both sides are assumed already linked directly), but
// routers always forward and clients always receive.
func shouldPropagate(src, dst *Face) bool {
	if src.ID == dst.ID {
		return false
	}
	return src.WhatAmI != WhatAmIPeer || dst.WhatAmI != WhatAmIPeer
}

// DeclareResource binds rid (as seen on f's wire) to key.
func (t *Tables) DeclareResource(f *Face, rid uint64, key wire.ResKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prefix, ok := f.getMapping(t.root, key.ID)
	if !ok {
		nlog.Warningf("routing: declare_resource %d on face %d: unknown prefix %d", rid, f.ID, key.ID)
		return
	}
	full := prefix.Name() + key.Suffix
	res := MakeResource(prefix, key.Suffix)
	ctx := res.ensureContext(f)
	// f told us itself that rid means this resource; remember it as the
	// id f recognises, so routing back to f later reuses it instead of
	// minting a separate one (spec.md §8 "route to F2, which declared
	// id=21 name=/test/client, uses key=(21, ...)").
	ctx.RemoteRID = rid
	ctx.HasRemote = true
	if !f.alreadyDeclared(full) {
		f.markDeclared(full)
	}
	f.localMappings[rid] = res
}

func (t *Tables) ForgetResource(f *Face, rid uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	res, ok := f.localMappings[rid]
	if !ok {
		return
	}
	delete(f.localMappings, rid)
	delete(res.contexts, f.ID)
	Clean(res)
}

func (t *Tables) resolveKey(f *Face, key wire.ResKey) (*Resource, bool) {
	prefix, ok := f.getMapping(t.root, key.ID)
	if !ok {
		return nil, false
	}
	return MakeResource(prefix, key.Suffix), true
}

// DeclareSubscription records f as a subscriber of key and fans the
// declaration out to every other face subject to the propagation policy
// (spec.md §9 "Subscription propagation").
func (t *Tables) DeclareSubscription(f *Face, key wire.ResKey, mode wire.SubMode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	res, ok := t.resolveKey(f, key)
	if !ok {
		nlog.Warningf("routing: declare_subscription on face %d: unknown prefix %d", f.ID, key.ID)
		return
	}
	ctx := res.ensureContext(f)
	ctx.SubMode = &mode

	name := res.Name()
	for id, other := range t.faces {
		if id == f.ID || !shouldPropagate(f, other) || other.alreadyDeclared(name) {
			continue
		}
		other.markDeclared(name)
		other.Subscriber(bestKeyForFace(res, other, true), mode)
	}
}

func (t *Tables) UndeclareSubscription(f *Face, key wire.ResKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prefix, ok := f.getMapping(t.root, key.ID)
	if !ok {
		return
	}
	res, ok := GetResource(prefix, key.Suffix)
	if !ok {
		return
	}
	if ctx, ok := res.contexts[f.ID]; ok {
		ctx.SubMode = nil
	}
	for id, other := range t.faces {
		if id == f.ID || !shouldPropagate(f, other) {
			continue
		}
		other.ForgetSubscriber(bestKeyForFace(res, other, false))
	}
	Clean(res)
}

// DeclareQueryable records f as a queryable for key, with the same
// propagation policy as subscriptions.
func (t *Tables) DeclareQueryable(f *Face, key wire.ResKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	res, ok := t.resolveKey(f, key)
	if !ok {
		nlog.Warningf("routing: declare_queryable on face %d: unknown prefix %d", f.ID, key.ID)
		return
	}
	res.ensureContext(f).Queryable = true

	name := res.Name()
	for id, other := range t.faces {
		if id == f.ID || !shouldPropagate(f, other) || other.alreadyDeclared(name) {
			continue
		}
		other.markDeclared(name)
		other.Queryable(bestKeyForFace(res, other, true))
	}
}

func (t *Tables) UndeclareQueryable(f *Face, key wire.ResKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prefix, ok := f.getMapping(t.root, key.ID)
	if !ok {
		return
	}
	res, ok := GetResource(prefix, key.Suffix)
	if !ok {
		return
	}
	if ctx, ok := res.contexts[f.ID]; ok {
		ctx.Queryable = false
	}
	for id, other := range t.faces {
		if id == f.ID || !shouldPropagate(f, other) {
			continue
		}
		other.ForgetQueryable(bestKeyForFace(res, other, false))
	}
	Clean(res)
}

// RouteData delivers a DATA message from f to every push-mode face with
// a matching subscription, and buffers it (replacing any previous
// sample) for every pull-mode one, which only sees it once it next
// issues PULL (spec.md §9 "Data routing").
func (t *Tables) RouteData(f *Face, key wire.ResKey, reliable bool, info *wire.DataInfo, payload []byte) {
	t.mu.Lock()
	prefix, ok := f.getMapping(t.root, key.ID)
	if !ok {
		t.mu.Unlock()
		nlog.Warningf("routing: route_data on face %d: unknown prefix %d", f.ID, key.ID)
		return
	}
	full := prefix.Name() + key.Suffix
	var pushTargets []routeTarget
	for _, res := range collectMatches(t.root, full) {
		for id, ctx := range res.contexts {
			if ctx.SubMode == nil || id == f.ID || !shouldPropagate(f, ctx.Face) {
				continue
			}
			if ctx.isPullMode() {
				ctx.pulled.key = bestKeyForFace(res, ctx.Face, false)
				ctx.pulled.info = info
				ctx.pulled.payload = payload
				ctx.pulled.has = true
				continue
			}
			pushTargets = append(pushTargets, routeTarget{face: ctx.Face, key: bestKeyForFace(res, ctx.Face, false)})
		}
	}
	t.mu.Unlock()

	for _, out := range pushTargets {
		out.face.Data(out.key, reliable, info, payload)
	}
}

// RoutePull delivers the latest buffered sample (if any) for one of f's
// pull-mode subscriptions.
func (t *Tables) RoutePull(f *Face, key wire.ResKey) {
	t.mu.Lock()
	prefix, ok := f.getMapping(t.root, key.ID)
	if !ok {
		t.mu.Unlock()
		nlog.Warningf("routing: pull on face %d: unknown prefix %d", f.ID, key.ID)
		return
	}
	res, ok := GetResource(prefix, key.Suffix)
	if !ok {
		t.mu.Unlock()
		return
	}
	ctx, ok := res.contexts[f.ID]
	if !ok || !ctx.pulled.has {
		t.mu.Unlock()
		return
	}
	k, info, payload := ctx.pulled.key, ctx.pulled.info, ctx.pulled.payload
	ctx.pulled.has = false
	t.mu.Unlock()

	f.Data(k, true, info, payload)
}

type routeTarget struct {
	face *Face
	key  wire.ResKey
}

// RouteQuery fans a QUERY out to every matching queryable, recording one
// pendingQuery per destination face so RouteReply can consolidate and
// forward replies back to the originator (spec.md §9 "Query routing").
func (t *Tables) RouteQuery(f *Face, key wire.ResKey, predicate string, qid uint64, target wire.QueryTarget, consolidation wire.QueryConsolidation) {
	t.mu.Lock()
	prefix, ok := f.getMapping(t.root, key.ID)
	if !ok {
		t.mu.Unlock()
		nlog.Warningf("routing: route_query on face %d: unknown prefix %d", f.ID, key.ID)
		return
	}
	full := prefix.Name() + key.Suffix

	type dispatch struct {
		face *Face
		key  wire.ResKey
		qid  uint64
	}
	var dispatches []dispatch
	seen := make(map[uint64]bool)
	for _, res := range collectMatches(t.root, full) {
		for id, ctx := range res.contexts {
			if !ctx.Queryable || id == f.ID || seen[id] || !shouldPropagate(f, ctx.Face) {
				continue
			}
			seen[id] = true
			dispatches = append(dispatches, dispatch{face: ctx.Face, key: bestKeyForFace(res, ctx.Face, false)})
		}
	}
	fanout := &queryFanout{srcFace: f, srcQID: qid, remaining: len(dispatches)}
	for i := range dispatches {
		d := &dispatches[i]
		d.face.nextQID++
		d.qid = d.face.nextQID
		d.face.pendingQueries[d.qid] = fanout
	}
	t.mu.Unlock()

	if len(dispatches) == 0 {
		f.Reply(qid, &wire.Reply{Context: wire.ReplyContext{IsFinal: true}})
		return
	}

	for _, d := range dispatches {
		if !shouldPropagate(f, d.face) {
			continue
		}
		d.face.Query(d.key, predicate, d.qid, target, consolidation)
	}
}

// RouteReply forwards a reply arriving on f (which is answering some
// pendingQuery) back to the query's originator, and -- only once every
// queryable that was asked has sent its final reply -- emits the
// originator-facing ReplyFinal (spec.md §9 "Final reply consolidation").
func (t *Tables) RouteReply(f *Face, qid uint64, reply *wire.Reply) {
	t.mu.Lock()
	fanout, ok := f.pendingQueries[qid]
	if !ok {
		t.mu.Unlock()
		nlog.Warningf("routing: route_reply on face %d: unknown query %d", f.ID, qid)
		return
	}
	// A reply carrying data (or a per-source final with no more data to
	// follow from elsewhere) forwards immediately; only the per-fan-out
	// final, once every dispatched queryable has sent its own, produces
	// the originator-facing ReplyFinal.
	final := reply.Context.IsFinal && reply.Data == nil
	if final {
		delete(f.pendingQueries, qid)
		fanout.remaining--
	}
	remaining := fanout.remaining
	t.mu.Unlock()

	if final {
		if remaining > 0 {
			return
		}
		fanout.srcFace.Reply(fanout.srcQID, &wire.Reply{Context: wire.ReplyContext{IsFinal: true}})
		return
	}
	fanout.srcFace.Reply(fanout.srcQID, reply)
}
