/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package session_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zenohd/zenohd/session"
	"github.com/zenohd/zenohd/wire"
)

var nextTestPort int64 = 17447

func freeTCPLocator(t *testing.T) string {
	t.Helper()
	port := atomic.AddInt64(&nextTestPort, 1)
	return fmt.Sprintf("tcp/127.0.0.1:%d", port)
}

func TestHandshakeRoundTrip(t *testing.T) {
	locator := freeTCPLocator(t)

	var mu sync.Mutex
	var gotAccepter []*wire.ZenohMessage
	accepter := session.NewManager("accepter-peer", func(ch *session.Channel, m *wire.ZenohMessage, reliable bool) {
		mu.Lock()
		gotAccepter = append(gotAccepter, m)
		mu.Unlock()
	})
	opener := session.NewManager("opener-peer", func(ch *session.Channel, m *wire.ZenohMessage, reliable bool) {})

	if err := accepter.AddLocator("tcp", locator); err != nil {
		t.Fatalf("AddLocator: %v", err)
	}
	defer accepter.Close()
	defer opener.Close()

	ch, err := opener.OpenSession("tcp", locator)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if ch.PeerID() != "accepter-peer" {
		t.Fatalf("expected peer id accepter-peer, got %q", ch.PeerID())
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := accepter.Lookup("opener-peer"); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for accepter to register the session")
		}
		time.Sleep(10 * time.Millisecond)
	}

	ch.Send(&wire.ZenohMessage{Data: &wire.Data{Key: wire.ResKey{ID: 42}, Payload: []byte("hello")}}, true, 2)

	deadline = time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(gotAccepter)
		mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for accepter to receive the data message")
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	m := gotAccepter[0]
	mu.Unlock()
	if m.Data == nil || string(m.Data.Payload) != "hello" || m.Data.Key.ID != 42 {
		t.Fatalf("unexpected message: %+v", m)
	}
}

func TestOpenSessionUnderDefaultLimits(t *testing.T) {
	// A single OPEN under the default limits (cmn/config's MaxSessions is
	// large) completes the handshake. The CLOSE(MAX_SESSIONS) reply that
	// register() sends once the limit is reached is not exercised here.
	locator := freeTCPLocator(t)
	accepter := session.NewManager("accepter-peer", func(*session.Channel, *wire.ZenohMessage, bool) {})
	opener := session.NewManager("opener-peer", func(*session.Channel, *wire.ZenohMessage, bool) {})
	if err := accepter.AddLocator("tcp", locator); err != nil {
		t.Fatalf("AddLocator: %v", err)
	}
	defer accepter.Close()
	defer opener.Close()

	if _, err := opener.OpenSession("tcp", locator); err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
}
