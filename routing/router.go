// Router wires a session.Manager's inbound application messages to a
// Tables, and adapts Tables' outbound Primitives calls back into wire
// messages on the right session.Channel -- the glue the original keeps
// in routing/broker.rs (Broker/Tables::declare_session) and
// routing/face.go (FaceHdl), split here into sessionPrimitives (the
// outbound adapter, primitives.go) and Router.onMessage (the inbound
// dispatcher).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package routing

import (
	"sync"

	"github.com/zenohd/zenohd/cmn/nlog"
	"github.com/zenohd/zenohd/session"
	"github.com/zenohd/zenohd/wire"
)

// Router owns one local peer's Tables and session.Manager, and creates
// one Face per session.Channel as soon as the channel's handshake
// completes (Manager.OnOpen), with faceFor as an idempotent fallback for
// any message that somehow beats that hook.
type Router struct {
	Tables  *Tables
	Manager *session.Manager

	// localWhatAmI is the role every face this router creates is
	// registered under: OPEN/ACCEPT as encoded in package wire carry no
	// whatami and session.Channel records none, so a remote peer's role
	// is not known and every face gets the router's own.
	localWhatAmI uint8

	mu    sync.Mutex
	faces map[string]*Face // peer id -> face
}

// NewRouter creates a router bound to localPeerID and starts no
// listeners; call Manager.AddLocator to accept incoming sessions.
func NewRouter(localPeerID string, whatAmI uint8) *Router {
	r := &Router{
		Tables:       NewTables(),
		localWhatAmI: whatAmI,
		faces:        make(map[string]*Face),
	}
	r.Manager = session.NewManager(localPeerID, r.onMessage)
	r.Manager.OnOpen = func(ch *session.Channel) { r.faceFor(ch) }
	return r
}

// faceFor returns (creating if needed) the Face fronting ch.
func (rt *Router) faceFor(ch *session.Channel) *Face {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if f, ok := rt.faces[ch.PeerID()]; ok {
		return f
	}
	f := rt.Tables.NewFace(rt.localWhatAmI, &sessionPrimitives{ch: ch})
	rt.faces[ch.PeerID()] = f
	nlog.Infof("routing: new face %d for peer %s", f.ID, ch.PeerID())
	return f
}

// RemoveFace drops the face bound to a now-closed channel; callers should
// invoke this from whatever watches session.Manager for session loss
// (spec.md doesn't name a close-notification hook, so the caller owns
// detecting it -- e.g. polling Manager.Lookup, or a future extension to
// session.Callback).
func (rt *Router) RemoveFace(peerID string) {
	rt.mu.Lock()
	f, ok := rt.faces[peerID]
	if ok {
		delete(rt.faces, peerID)
	}
	rt.mu.Unlock()
	if ok {
		rt.Tables.RemoveFace(f)
	}
}

// onMessage is the session.Callback: every application message accepted
// off any channel lands here and is translated into the matching Tables
// operation.
func (rt *Router) onMessage(ch *session.Channel, m *wire.ZenohMessage, reliable bool) {
	f := rt.faceFor(ch)
	switch {
	case m.Declare != nil:
		rt.dispatchDeclare(f, m.Declare)
	case m.Data != nil:
		rt.dispatchData(f, m.Data, reliable)
	case m.Query != nil:
		q := m.Query
		target := wire.QueryTarget{Storage: wire.TargetAll, Eval: wire.TargetAll}
		if q.Target != nil {
			target = *q.Target
		}
		rt.Tables.RouteQuery(f, q.Key, q.Predicate, q.QID, target, q.Consolidation)
	case m.Pull != nil:
		rt.Tables.RoutePull(f, m.Pull.Key)
	case m.Unit != nil:
		if m.Unit.Reply != nil {
			rt.Tables.RouteReply(f, m.Unit.Reply.QID, &wire.Reply{Context: *m.Unit.Reply})
		}
	case m.Reply != nil:
		rt.Tables.RouteReply(f, m.Reply.Context.QID, m.Reply)
	default:
		nlog.Warningf("routing: peer %s sent an empty application message", ch.PeerID())
	}
}

func (rt *Router) dispatchDeclare(f *Face, d *wire.Declare) {
	for i := range d.Decls {
		decl := &d.Decls[i]
		switch decl.Kind {
		case wire.DeclResource:
			rt.Tables.DeclareResource(f, decl.RID, decl.Key)
		case wire.DeclForgetResource:
			rt.Tables.ForgetResource(f, decl.RID)
		case wire.DeclSubscriber:
			rt.Tables.DeclareSubscription(f, decl.Key, decl.Mode)
		case wire.DeclForgetSubscriber:
			rt.Tables.UndeclareSubscription(f, decl.Key)
		case wire.DeclQueryable:
			rt.Tables.DeclareQueryable(f, decl.Key)
		case wire.DeclForgetQueryable:
			rt.Tables.UndeclareQueryable(f, decl.Key)
		case wire.DeclPublisher, wire.DeclForgetPublisher:
			// Publisher declarations are advisory only in this core: a
			// publisher doesn't need a routing-table entry for RouteData
			// to reach matching subscribers, so there's nothing to record.
		default:
			nlog.Warningf("routing: face %d sent unknown declaration kind 0x%x", f.ID, decl.Kind)
		}
	}
}

func (rt *Router) dispatchData(f *Face, d *wire.Data, reliable bool) {
	if d.Reply != nil {
		rt.Tables.RouteReply(f, d.Reply.QID, &wire.Reply{Context: *d.Reply, Data: d})
		return
	}
	rt.Tables.RouteData(f, d.Key, reliable, d.Info, d.Payload)
}
