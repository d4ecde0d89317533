// Package queue implements the bounded, multi-priority, credit-throttled
// queue (spec.md §4.5, component C5) that is the sole hand-off between
// producers and a session's transmission loop. Go has no first-class
// coroutines with cooperative suspension, so -- per spec.md §8's own
// guidance for such runtimes -- this is a worker-thread-friendly queue
// built on a mutex and condition variables, the way aistore's own
// concurrency primitives (cmn/atomic, transport's SQ/SCQ channel pair)
// favour a goroutine blocked on a channel/cond over manual scheduling.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package queue

import (
	"strconv"
	"sync"

	"github.com/zenohd/zenohd/cmn/debug"
	"github.com/zenohd/zenohd/metrics"
)

// SpendFunc computes how much credit an item costs to dispatch; the
// default spending policy (DefaultSpend) costs every item exactly 1.
type SpendFunc func(item any) int64

func DefaultSpend(any) int64 { return 1 }

type bucket struct {
	capacity int
	credit   int64
	spend    SpendFunc
	items    []any
}

// Queue is a fixed set of K priority buckets, numbered 0 (highest
// priority) through K-1 (lowest), each with its own capacity, credit
// counter, and spending policy.
type Queue struct {
	mu      sync.Mutex
	notFull *sync.Cond
	notEmpty *sync.Cond
	buckets []*bucket
	closed  bool
}

type BucketSpec struct {
	Capacity   int
	InitCredit int64
	Spend      SpendFunc // nil => DefaultSpend
}

func New(specs []BucketSpec) *Queue {
	q := &Queue{buckets: make([]*bucket, len(specs))}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)
	for i, s := range specs {
		spend := s.Spend
		if spend == nil {
			spend = DefaultSpend
		}
		q.buckets[i] = &bucket{capacity: s.Capacity, credit: s.InitCredit, spend: spend}
	}
	return q
}

func (q *Queue) NumBuckets() int { return len(q.buckets) }

// Push blocks until priority's bucket has room for one more item.
func (q *Queue) Push(item any, priority int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	b := q.buckets[priority]
	for len(b.items) >= b.capacity && !q.closed {
		q.notFull.Wait()
	}
	if q.closed {
		return
	}
	b.items = append(b.items, item)
	q.notEmpty.Broadcast()
}

// PushBatch atomically appends the whole batch once priority's bucket has
// room for all of it -- never half-applies a batch.
func (q *Queue) PushBatch(items []any, priority int) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	b := q.buckets[priority]
	for b.capacity-len(b.items) < len(items) && !q.closed {
		q.notFull.Wait()
	}
	if q.closed {
		return
	}
	b.items = append(b.items, items...)
	q.notEmpty.Broadcast()
}

// creditPositiveBucket returns the index of the highest-priority bucket
// that both has items and has positive credit, or -1 if none qualifies.
func (q *Queue) creditPositiveBucket() int {
	for i, b := range q.buckets {
		if len(b.items) > 0 && b.credit > 0 {
			return i
		}
	}
	return -1
}

// anyItems reports whether any bucket has a pending item, regardless of
// credit -- used to distinguish "nothing to do" from "everything is
// throttled" when deciding whether Drain should block.
func (q *Queue) anyItems() bool {
	for _, b := range q.buckets {
		if len(b.items) > 0 {
			return true
		}
	}
	return false
}

// Drain blocks until at least one bucket has a credit-positive item, then
// pops and returns exactly one item from the highest-priority such
// bucket, applying its spending policy. Callers loop on Drain to drain
// as many items as the current credit state allows; when no bucket is
// credit-positive but items remain queued, Drain still blocks (those
// items need a Recharge, not more pushes, to become eligible).
func (q *Queue) Drain() (item any, priority int, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if i := q.creditPositiveBucket(); i >= 0 {
			return q.pop(i), i, true
		}
		if q.closed {
			return nil, 0, false
		}
		q.notEmpty.Wait()
	}
}

// TryDrain is Drain's non-blocking variant: returns ok=false immediately
// if no bucket is currently both non-empty and credit-positive.
func (q *Queue) TryDrain() (item any, priority int, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	i := q.creditPositiveBucket()
	if i < 0 {
		return nil, 0, false
	}
	return q.pop(i), i, true
}

func (q *Queue) pop(i int) any {
	debug.AssertMutexLocked(&q.mu)
	b := q.buckets[i]
	debug.Assert(len(b.items) > 0, "pop of an empty bucket")
	item := b.items[0]
	b.items = b.items[1:]
	b.credit -= b.spend(item)
	q.notFull.Broadcast()
	publishCredit(i, b.credit)
	return item
}

// Recharge adds amount to priority's bucket credit; if the bucket becomes
// positive, waiting drainers are woken so they can re-check eligibility.
func (q *Queue) Recharge(priority int, amount int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	b := q.buckets[priority]
	b.credit += amount
	if b.credit > 0 {
		q.notEmpty.Broadcast()
	}
	publishCredit(priority, b.credit)
}

// publishCredit overwrites the process-wide last-observed credit gauge
// for priority; with many sessions sharing one process this only ever
// reflects whichever queue touched that priority most recently, the
// aggregate best-effort signal metrics.QueueCredit documents itself as.
func publishCredit(priority int, credit int64) {
	metrics.QueueCredit.WithLabelValues(strconv.Itoa(priority)).Set(float64(credit))
}

// Credit returns priority's current credit, for diagnostics/metrics.
func (q *Queue) Credit(priority int) int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buckets[priority].credit
}

// Close unblocks every waiter; subsequent Push calls are no-ops and Drain
// returns ok=false once queued items (if any) are exhausted by credit.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.notFull.Broadcast()
	q.notEmpty.Broadcast()
}
