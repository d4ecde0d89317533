// Collector schedules keep-alive ticks across every active session's
// transmission loop with a single ticker goroutine, in the shape of
// aistore's stream collector (transport/collect.go): entries sit in a
// min-heap ordered by ticks-until-due. Every tick decrements every entry
// and fires those that reach zero; entries whose keeper is no longer
// alive are dropped. There is no idle teardown.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package transport

import (
	"container/heap"
	"sync"
	"time"

	"github.com/zenohd/zenohd/cmn/mono"
)

// Keeper is anything the collector can tick: a session implements this by
// emitting a KEEP_ALIVE (via its TxLoop's queue) when due, and reports
// back whether it's still alive so the collector can drop dead entries.
type Keeper interface {
	OnKeepAliveDue()
	Alive() bool
}

type keeperEntry struct {
	k     Keeper
	ticks int
	index int

	// firedAt is the mono.NanoTime() reading at the entry's last due-fire;
	// kept for the same reason aistore's stream collector tracks per-object
	// last-access time on its own heap entries -- a monotonic timestamp
	// cheaper to read than time.Now() on the tick-every-second hot path.
	firedAt int64
}

// Collector is a min-heap of keeperEntry ordered by ticks-until-due.
type Collector struct {
	mu       sync.Mutex
	heap     []*keeperEntry
	tickUnit time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewCollector(tickUnit time.Duration) *Collector {
	if tickUnit <= 0 {
		tickUnit = time.Second
	}
	return &Collector{tickUnit: tickUnit, stopCh: make(chan struct{}), doneCh: make(chan struct{})}
}

// Add registers k with an initial due-in-ticks count.
func (c *Collector) Add(k Keeper, initialTicks int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	heap.Push(c, &keeperEntry{k: k, ticks: initialTicks})
}

func (c *Collector) Run() {
	defer close(c.doneCh)
	t := time.NewTicker(c.tickUnit)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			c.tick()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Collector) Stop() { close(c.stopCh) }
func (c *Collector) Wait() { <-c.doneCh }

// tick decrements every entry's countdown; when it reaches zero the
// keeper's due callback fires and the entry is rescheduled (or dropped if
// the keeper reports it is no longer alive).
func (c *Collector) tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	live := c.heap[:0]
	for _, e := range c.heap {
		e.ticks--
		if e.ticks > 0 {
			live = append(live, e)
			continue
		}
		if !e.k.Alive() {
			continue
		}
		e.firedAt = mono.NanoTime()
		e.k.OnKeepAliveDue()
		e.ticks = 1
		live = append(live, e)
	}
	c.heap = live
	heap.Init(c)
}

// container/heap.Interface

func (c *Collector) Len() int { return len(c.heap) }
func (c *Collector) Less(i, j int) bool { return c.heap[i].ticks < c.heap[j].ticks }
func (c *Collector) Swap(i, j int) {
	c.heap[i], c.heap[j] = c.heap[j], c.heap[i]
	c.heap[i].index = i
	c.heap[j].index = j
}
func (c *Collector) Push(x any) {
	e := x.(*keeperEntry)
	e.index = len(c.heap)
	c.heap = append(c.heap, e)
}
func (c *Collector) Pop() any {
	old := c.heap
	n := len(old)
	e := old[n-1]
	c.heap = old[:n-1]
	return e
}
