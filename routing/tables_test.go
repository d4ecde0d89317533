/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package routing_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/zenohd/zenohd/routing"
	"github.com/zenohd/zenohd/wire"
)

type recorder struct {
	data    []wire.ResKey
	queries []uint64
	replies []*wire.Reply
	subs    []wire.ResKey
}

func (r *recorder) Resource(uint64, string) {}
func (r *recorder) ForgetResource(uint64)   {}
func (r *recorder) Subscriber(key wire.ResKey, _ wire.SubMode) {
	r.subs = append(r.subs, key)
}
func (r *recorder) ForgetSubscriber(wire.ResKey) {}
func (r *recorder) Queryable(wire.ResKey)                       {}
func (r *recorder) ForgetQueryable(wire.ResKey)                 {}
func (r *recorder) Data(key wire.ResKey, _ bool, _ *wire.DataInfo, _ []byte) {
	r.data = append(r.data, key)
}
func (r *recorder) Query(_ wire.ResKey, _ string, qid uint64, _ wire.QueryTarget, _ wire.QueryConsolidation) {
	r.queries = append(r.queries, qid)
}
func (r *recorder) Reply(_ uint64, reply *wire.Reply) { r.replies = append(r.replies, reply) }

var _ = Describe("Tables", func() {
	var tables *routing.Tables

	BeforeEach(func() {
		tables = routing.NewTables()
	})

	It("routes data to a literal subscription", func() {
		pub := &recorder{}
		sub := &recorder{}
		pubFace := tables.NewFace(routing.WhatAmIClient, pub)
		subFace := tables.NewFace(routing.WhatAmIClient, sub)

		tables.DeclareSubscription(subFace, wire.ResKey{Suffix: "/a/b"}, wire.SubMode{Kind: wire.SubModePush})
		tables.RouteData(pubFace, wire.ResKey{Suffix: "/a/b"}, true, nil, []byte("x"))

		Expect(sub.data).To(HaveLen(1))
		Expect(sub.data[0].Suffix).To(Equal("/a/b"))
	})

	It("routes data to a wildcard subscription", func() {
		pub := &recorder{}
		sub := &recorder{}
		pubFace := tables.NewFace(routing.WhatAmIClient, pub)
		subFace := tables.NewFace(routing.WhatAmIClient, sub)

		tables.DeclareSubscription(subFace, wire.ResKey{Suffix: "/a/*/c"}, wire.SubMode{Kind: wire.SubModePush})
		tables.RouteData(pubFace, wire.ResKey{Suffix: "/a/b/c"}, true, nil, []byte("y"))

		Expect(sub.data).To(HaveLen(1))
	})

	It("buffers a pull-mode sample until explicitly pulled", func() {
		pub := &recorder{}
		sub := &recorder{}
		pubFace := tables.NewFace(routing.WhatAmIClient, pub)
		subFace := tables.NewFace(routing.WhatAmIClient, sub)

		tables.DeclareSubscription(subFace, wire.ResKey{Suffix: "/a"}, wire.SubMode{Kind: wire.SubModePull})
		tables.RouteData(pubFace, wire.ResKey{Suffix: "/a"}, true, nil, []byte("z"))
		Expect(sub.data).To(BeEmpty())

		tables.RoutePull(subFace, wire.ResKey{Suffix: "/a"})
		Expect(sub.data).To(HaveLen(1))

		tables.RoutePull(subFace, wire.ResKey{Suffix: "/a"})
		Expect(sub.data).To(HaveLen(1), "a second pull with nothing new must not redeliver")
	})

	It("consolidates a query fan-out into a single final reply", func() {
		querier := &recorder{}
		qable1 := &recorder{}
		qable2 := &recorder{}
		qFace := tables.NewFace(routing.WhatAmIClient, querier)
		q1Face := tables.NewFace(routing.WhatAmIClient, qable1)
		q2Face := tables.NewFace(routing.WhatAmIClient, qable2)

		tables.DeclareQueryable(q1Face, wire.ResKey{Suffix: "/a"})
		tables.DeclareQueryable(q2Face, wire.ResKey{Suffix: "/a"})

		tables.RouteQuery(qFace, wire.ResKey{Suffix: "/a"}, "", 7, wire.QueryTarget{}, wire.ConsolidationNone)
		Expect(qable1.queries).To(HaveLen(1))
		Expect(qable2.queries).To(HaveLen(1))

		tables.RouteReply(q1Face, qable1.queries[0], &wire.Reply{Context: wire.ReplyContext{IsFinal: true}})
		Expect(querier.replies).To(BeEmpty(), "one queryable is still pending")

		tables.RouteReply(q2Face, qable2.queries[0], &wire.Reply{Context: wire.ReplyContext{IsFinal: true}})
		Expect(querier.replies).To(HaveLen(1))
		Expect(querier.replies[0].Context.IsFinal).To(BeTrue())
	})

	It("replays an existing subscription to a newly joined face", func() {
		sub := &recorder{}
		subFace := tables.NewFace(routing.WhatAmIClient, sub)
		tables.DeclareSubscription(subFace, wire.ResKey{Suffix: "/a"}, wire.SubMode{Kind: wire.SubModePush})

		joiner := &recorder{}
		tables.NewFace(routing.WhatAmIRouter, joiner)
		Expect(joiner.subs).To(HaveLen(1))
		Expect(joiner.subs[0].Suffix).To(Equal("/a"))
	})
})
