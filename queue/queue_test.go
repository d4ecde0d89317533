/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package queue_test

import (
	"sync"
	"testing"
	"time"

	"github.com/zenohd/zenohd/queue"
)

func TestDrainPrefersHighestCreditPositiveBucket(t *testing.T) {
	q := queue.New([]queue.BucketSpec{
		{Capacity: 4, InitCredit: 0},
		{Capacity: 4, InitCredit: 1},
	})
	q.Push("ctrl", 0)
	q.Push("data", 1)

	item, pri, ok := q.TryDrain()
	if !ok || pri != 1 || item != "data" {
		t.Fatalf("expected bucket 1 first while bucket 0 has no credit, got item=%v pri=%d ok=%v", item, pri, ok)
	}

	q.Recharge(0, 2)
	item, pri, ok = q.TryDrain()
	if !ok || pri != 0 || item != "ctrl" {
		t.Fatalf("expected bucket 0 after recharge, got item=%v pri=%d ok=%v", item, pri, ok)
	}
}

func TestPushBlocksAtCapacity(t *testing.T) {
	q := queue.New([]queue.BucketSpec{{Capacity: 2, InitCredit: 10}})
	q.Push("a", 0)
	q.Push("b", 0)

	done := make(chan struct{})
	go func() {
		q.Push("c", 0) // blocks until a pop frees a slot
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("third push should have blocked at capacity 2")
	case <-time.After(30 * time.Millisecond):
	}

	q.TryDrain()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("push never unblocked after a pop freed capacity")
	}
}

func TestCreditThrottlingRatio(t *testing.T) {
	const cycles = 10_000
	q := queue.New([]queue.BucketSpec{
		{Capacity: cycles, InitCredit: 1},
		{Capacity: cycles, InitCredit: 1},
		{Capacity: cycles, InitCredit: 100},
	})
	for i := 0; i < cycles; i++ {
		q.Push("c", 0)
		q.Push("r", 1)
		q.Push("d", 2)
	}
	// recharge ctrl/retx every cycle (as a real transmission loop would
	// after spending their one credit), data is never recharged: its
	// initial 100 credits cap how many it can dispatch before starving.
	counts := map[int]int{}
	for i := 0; i < cycles; i++ {
		q.Recharge(0, 1)
		q.Recharge(1, 1)
		for {
			_, pri, ok := q.TryDrain()
			if !ok {
				break
			}
			counts[pri]++
			if counts[0] >= i+1 && counts[1] >= i+1 {
				break
			}
		}
	}
	if counts[2] > 100 {
		t.Fatalf("data bucket dispatched %d, want <= 100 (its fixed initial credit)", counts[2])
	}
	if counts[0] == 0 || counts[1] == 0 {
		t.Fatalf("ctrl/retx starved: counts=%v", counts)
	}
}

func TestRechargeWakesBlockedDrain(t *testing.T) {
	q := queue.New([]queue.BucketSpec{{Capacity: 4, InitCredit: 0}})
	q.Push("x", 0)

	var wg sync.WaitGroup
	var got any
	wg.Add(1)
	go func() {
		defer wg.Done()
		item, _, ok := q.Drain()
		if ok {
			got = item
		}
	}()

	time.Sleep(20 * time.Millisecond)
	q.Recharge(0, 1)
	wg.Wait()
	if got != "x" {
		t.Fatalf("got %v", got)
	}
}

func TestCloseUnblocksDrain(t *testing.T) {
	q := queue.New([]queue.BucketSpec{{Capacity: 4, InitCredit: 0}})
	done := make(chan struct{})
	go func() {
		_, _, ok := q.Drain()
		if ok {
			t.Error("expected Drain to report ok=false after Close")
		}
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	q.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Drain never unblocked after Close")
	}
}
