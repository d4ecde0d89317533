/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package routing

import (
	"github.com/zenohd/zenohd/cmn/config"
	"github.com/zenohd/zenohd/session"
	"github.com/zenohd/zenohd/wire"
)

// sessionPrimitives implements Primitives by re-encoding every outbound
// call as a wire.ZenohMessage pushed onto ch's send queue, the adapter
// the original calls Mux (zenoh-protocol/src/proto/mux.rs): declarations
// travel reliably at control priority, data/query/reply traffic reliably
// (or not) at data priority, matching the original's Channel/Reliability
// split.
type sessionPrimitives struct {
	ch *session.Channel
}

func (p *sessionPrimitives) declare(decl wire.Declaration) {
	p.ch.Send(&wire.ZenohMessage{Declare: &wire.Declare{Decls: []wire.Declaration{decl}}}, true, config.PrioControl)
}

func (p *sessionPrimitives) Resource(rid uint64, name string) {
	p.declare(wire.Declaration{Kind: wire.DeclResource, RID: rid, Key: wire.ResKey{Suffix: name}})
}

func (p *sessionPrimitives) ForgetResource(rid uint64) {
	p.declare(wire.Declaration{Kind: wire.DeclForgetResource, RID: rid})
}

func (p *sessionPrimitives) Subscriber(key wire.ResKey, mode wire.SubMode) {
	p.declare(wire.Declaration{Kind: wire.DeclSubscriber, Key: key, Mode: mode})
}

func (p *sessionPrimitives) ForgetSubscriber(key wire.ResKey) {
	p.declare(wire.Declaration{Kind: wire.DeclForgetSubscriber, Key: key})
}

func (p *sessionPrimitives) Queryable(key wire.ResKey) {
	p.declare(wire.Declaration{Kind: wire.DeclQueryable, Key: key})
}

func (p *sessionPrimitives) ForgetQueryable(key wire.ResKey) {
	p.declare(wire.Declaration{Kind: wire.DeclForgetQueryable, Key: key})
}

func (p *sessionPrimitives) Data(key wire.ResKey, reliable bool, info *wire.DataInfo, payload []byte) {
	p.ch.Send(&wire.ZenohMessage{Data: &wire.Data{Key: key, Info: info, Payload: payload}}, reliable, config.PrioData)
}

func (p *sessionPrimitives) Query(key wire.ResKey, predicate string, qid uint64, target wire.QueryTarget, consolidation wire.QueryConsolidation) {
	p.ch.Send(&wire.ZenohMessage{Query: &wire.Query{
		Key: key, Predicate: predicate, QID: qid, Target: &target, Consolidation: consolidation,
	}}, true, config.PrioData)
}

// Reply stamps reply's ReplyContext with the face-local qid the
// destination queryable (or the original querier) expects to see on the
// wire -- Tables builds reply.Context without one, since that id is
// meaningful only on this one face (spec.md §9 "final reply
// consolidation").
func (p *sessionPrimitives) Reply(qid uint64, reply *wire.Reply) {
	ctx := reply.Context
	ctx.QID = qid
	if reply.Data != nil {
		d := *reply.Data
		d.Reply = &ctx
		p.ch.Send(&wire.ZenohMessage{Data: &d}, true, config.PrioData)
		return
	}
	p.ch.Send(&wire.ZenohMessage{Unit: &wire.Unit{Reply: &ctx}}, true, config.PrioData)
}
