// Manager owns the initial (pre-handshake) session, one link manager per
// protocol scheme, and the peer-id -> Channel map (spec.md §4.9,
// component C10).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package session

import (
	"sync"

	"github.com/zenohd/zenohd/cmn/config"
	"github.com/zenohd/zenohd/cmn/cos"
	"github.com/zenohd/zenohd/link"
	"github.com/zenohd/zenohd/metrics"
	"github.com/zenohd/zenohd/transport"
)

// Manager is the top-level entry point: one per local peer.
type Manager struct {
	mu sync.RWMutex

	localPeerID string
	cb          Callback

	// OnOpen, if set, fires once a Channel has been built and registered
	// (both the OpenSession and acceptHandshake direction), before any
	// data can arrive on it -- the hook a routing layer needs to create
	// its face eagerly, the way the original's SessionHandler.new_session
	// calls Tables::declare_session at session-establishment time rather
	// than on first received message.
	OnOpen func(ch *Channel)

	linkMgrs map[string]*link.Manager // scheme -> manager, e.g. "tcp"
	sessions map[string]*Channel      // peer-id -> channel

	// keepAlive ticks every registered Channel at the configured
	// Lease/KeepAliveDivisor interval (config KeepAliveInterval, not each
	// channel's negotiated lease); one collector per manager, shared across
	// every session it owns, the way aistore's single gc goroutine
	// (transport/collect.go) serves every stream rather than giving each
	// one its own ticker.
	keepAlive *transport.Collector
}

func NewManager(localPeerID string, cb Callback) *Manager {
	mgr := &Manager{
		localPeerID: localPeerID,
		cb:          cb,
		linkMgrs:    make(map[string]*link.Manager),
		sessions:    make(map[string]*Channel),
		keepAlive:   transport.NewCollector(config.Rom.Get().KeepAliveInterval()),
	}
	go mgr.keepAlive.Run()
	return mgr
}

// AddLocator starts a listener for scheme ("tcp") at locator, accruing
// incoming connections to the initial/pre-handshake path until their
// OPEN is decoded and associates them with a real Channel.
func (mgr *Manager) AddLocator(scheme, locator string) error {
	lm := mgr.linkManager(scheme)
	return lm.AddLocator(locator)
}

func (mgr *Manager) linkManager(scheme string) *link.Manager {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	lm, ok := mgr.linkMgrs[scheme]
	if !ok {
		lm = link.NewManager(config.Rom.Get().BatchSize, mgr.onAccept)
		mgr.linkMgrs[scheme] = lm
	}
	return lm
}

// onAccept is the initial session's per-connection hook: it starts a
// reception loop that watches only for OPEN (or CLOSE) until the
// handshake resolves, per spec.md "incoming connections accrue to the
// initial session until the OPEN/ACCEPT associates them with a real
// session."
func (mgr *Manager) onAccept(l link.Link) {
	go mgr.acceptHandshake(l)
}

// Lookup returns the channel for peerID, if one is open.
func (mgr *Manager) Lookup(peerID string) (*Channel, bool) {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	ch, ok := mgr.sessions[peerID]
	return ch, ok
}

func (mgr *Manager) register(ch *Channel) error {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if len(mgr.sessions) >= config.Rom.Get().MaxSessions {
		return cos.NewErrInvalidSession("max sessions reached")
	}
	if _, exists := mgr.sessions[ch.PeerID()]; exists {
		return cos.NewErrInvalidSession("duplicate session for peer %q", ch.PeerID())
	}
	mgr.sessions[ch.PeerID()] = ch
	metrics.ActiveSessions.Inc()
	mgr.keepAlive.Add(ch, 1)
	return nil
}

func (mgr *Manager) unregister(peerID string) {
	mgr.mu.Lock()
	_, existed := mgr.sessions[peerID]
	delete(mgr.sessions, peerID)
	mgr.mu.Unlock()
	if existed {
		metrics.ActiveSessions.Dec()
	}
}

// CloseSession closes and removes peerID's channel, if open.
func (mgr *Manager) CloseSession(peerID string) {
	mgr.mu.RLock()
	ch, ok := mgr.sessions[peerID]
	mgr.mu.RUnlock()
	if !ok {
		return
	}
	ch.Close()
	mgr.unregister(peerID)
}

// Close tears down every open session and every scheme's link manager.
func (mgr *Manager) Close() {
	mgr.mu.Lock()
	sessions := make([]*Channel, 0, len(mgr.sessions))
	for _, ch := range mgr.sessions {
		sessions = append(sessions, ch)
	}
	linkMgrs := make([]*link.Manager, 0, len(mgr.linkMgrs))
	for _, lm := range mgr.linkMgrs {
		linkMgrs = append(linkMgrs, lm)
	}
	mgr.mu.Unlock()

	for _, ch := range sessions {
		ch.Close()
		mgr.unregister(ch.PeerID())
	}
	for _, lm := range linkMgrs {
		lm.Close()
	}
	mgr.keepAlive.Stop()
	mgr.keepAlive.Wait()
}

// agreeParams computes the accepter's (L', R') given the opener's
// proposed (L, R): L' <= L, R' <= R (spec.md §4.8). Each side then
// derives its own transmit initial SN independently: "if the original
// S < R' use S, else use S mod R'" (see OpenSession/acceptHandshake).
func agreeParams(leaseMS int64, snRes uint64) (agreedLease int64, agreedSNRes uint64) {
	cfg := config.Rom.Get()
	agreedLease = leaseMS
	if cfg.LeaseMS < agreedLease {
		agreedLease = cfg.LeaseMS
	}
	agreedSNRes = snRes
	if cfg.SNResolution < agreedSNRes {
		agreedSNRes = cfg.SNResolution
	}
	return
}
