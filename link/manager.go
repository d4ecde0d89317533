// Manager owns one protocol scheme's active links and listeners
// (spec.md §4.9, §5 "link managers hold a map of active links under an
// async read-write lock"). Go's sync.RWMutex plays that role directly;
// the accept loop is supervised with golang.org/x/sync/errgroup so a
// listener failure surfaces instead of silently vanishing, the same
// supervision pattern other services in this stack's ecosystem use for
// long-running accept loops.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package link

import (
	"context"
	"net"
	"sync"

	"github.com/zenohd/zenohd/cmn/nlog"
	"golang.org/x/sync/errgroup"
)

// AcceptHandler is invoked once per newly accepted connection, before the
// handshake associates it with a real session; the initial session plays
// this role in the session manager.
type AcceptHandler func(l Link)

type Manager struct {
	mu        sync.RWMutex
	links     map[string]Link // keyed by dst
	listeners []net.Listener
	mtu       int
	onAccept  AcceptHandler
	grp       *errgroup.Group
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewManager(mtu int, onAccept AcceptHandler) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	grp, gctx := errgroup.WithContext(ctx)
	m := &Manager{
		links:    make(map[string]Link),
		mtu:      mtu,
		onAccept: onAccept,
		grp:      grp,
		ctx:      gctx,
		cancel:   cancel,
	}
	return m
}

// AddLocator starts listening on locator ("tcp/host:port") and registers
// each accepted connection via onAccept.
func (m *Manager) AddLocator(locator string) error {
	addr, err := ParseLocator(locator)
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.listeners = append(m.listeners, ln)
	m.mu.Unlock()

	m.grp.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				select {
				case <-m.ctx.Done():
					return nil
				default:
					nlog.Warningf("link manager: accept on %s: %v", locator, err)
					return err
				}
			}
			l := NewTCPLink(conn, m.mtu)
			m.Register(l)
			if m.onAccept != nil {
				m.onAccept(l)
			}
		}
	})
	return nil
}

// Dial opens a new outbound link and registers it.
func (m *Manager) Dial(locator string) (Link, error) {
	l, err := Dial(locator, m.mtu)
	if err != nil {
		return nil, err
	}
	m.Register(l)
	return l, nil
}

func (m *Manager) Register(l Link) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[l.Dst()] = l
}

func (m *Manager) Unregister(l Link) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.links[l.Dst()]; ok && cur.Equal(l) {
		delete(m.links, l.Dst())
	}
}

func (m *Manager) Lookup(dst string) (Link, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.links[dst]
	return l, ok
}

func (m *Manager) NumLinks() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.links)
}

// Close stops every listener and waits for the accept loops to exit.
func (m *Manager) Close() error {
	m.cancel()
	m.mu.RLock()
	lns := append([]net.Listener(nil), m.listeners...)
	m.mu.RUnlock()
	for _, ln := range lns {
		_ = ln.Close()
	}
	_ = m.grp.Wait()
	return nil
}
