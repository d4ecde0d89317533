/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package routing_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zenohd/zenohd/routing"
	"github.com/zenohd/zenohd/wire"
)

var nextRouterTestPort int64 = 27447

func freeTCPLocator(t *testing.T) string {
	t.Helper()
	port := atomic.AddInt64(&nextRouterTestPort, 1)
	return fmt.Sprintf("tcp/127.0.0.1:%d", port)
}

type appRecorder struct {
	mu   sync.Mutex
	data []wire.ResKey
}

func (a *appRecorder) Resource(uint64, string)             {}
func (a *appRecorder) ForgetResource(uint64)               {}
func (a *appRecorder) Subscriber(wire.ResKey, wire.SubMode) {}
func (a *appRecorder) ForgetSubscriber(wire.ResKey)         {}
func (a *appRecorder) Queryable(wire.ResKey)                {}
func (a *appRecorder) ForgetQueryable(wire.ResKey)           {}
func (a *appRecorder) Data(key wire.ResKey, _ bool, _ *wire.DataInfo, _ []byte) {
	a.mu.Lock()
	a.data = append(a.data, key)
	a.mu.Unlock()
}
func (a *appRecorder) Query(wire.ResKey, string, uint64, wire.QueryTarget, wire.QueryConsolidation) {
}
func (a *appRecorder) Reply(uint64, *wire.Reply) {}

func (a *appRecorder) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.data)
}

// TestCrossSessionDataRouting connects two routers over a real TCP
// session, declares a wildcard subscription from a local application face
// on one side, and checks that data published through a local
// application face on the other side arrives there, having crossed the
// session as a replayed DECLARE(subscriber) followed by a DATA message.
func TestCrossSessionDataRouting(t *testing.T) {
	locator := freeTCPLocator(t)

	routerSide := routing.NewRouter("router-peer", routing.WhatAmIRouter)
	clientSide := routing.NewRouter("client-peer", routing.WhatAmIRouter)

	if err := routerSide.Manager.AddLocator("tcp", locator); err != nil {
		t.Fatalf("AddLocator: %v", err)
	}
	defer routerSide.Manager.Close()
	defer clientSide.Manager.Close()

	sub := &appRecorder{}
	subFace := routerSide.Tables.NewFace(routing.WhatAmIClient, sub)
	routerSide.Tables.DeclareSubscription(subFace, wire.ResKey{Suffix: "/demo/*"}, wire.SubMode{Kind: wire.SubModePush})

	if _, err := clientSide.Manager.OpenSession("tcp", locator); err != nil {
		t.Fatalf("OpenSession: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := routerSide.Manager.Lookup("client-peer"); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for router side to register the session")
		}
		time.Sleep(10 * time.Millisecond)
	}

	pub := &appRecorder{}
	pubFace := clientSide.Tables.NewFace(routing.WhatAmIClient, pub)

	// The router's replayed subscription declaration crosses the session
	// asynchronously, so retry the publish until it lands rather than
	// racing a single RouteData call against that in-flight DECLARE.
	deadline = time.Now().Add(2 * time.Second)
	for {
		clientSide.Tables.RouteData(pubFace, wire.ResKey{Suffix: "/demo/a"}, true, nil, []byte("hi"))
		if sub.count() > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for cross-session data delivery")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
