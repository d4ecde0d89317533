// Package atomic provides thin, typed wrappers over sync/atomic so call
// sites read as methods (Load/Store/Add/CAS) instead of free functions
// taking pointers. cmn/cos's GenTie counter uses them; session channel
// and sequence-number state is guarded by mutexes instead.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package atomic

import "sync/atomic"

type (
	Bool   struct{ v int32 }
	Int32  struct{ v int32 }
	Int64  struct{ v int64 }
	Uint32 struct{ v uint32 }
	Uint64 struct{ v uint64 }
)

func (b *Bool) Load() bool { return atomic.LoadInt32(&b.v) != 0 }
func (b *Bool) Store(val bool) {
	if val {
		atomic.StoreInt32(&b.v, 1)
	} else {
		atomic.StoreInt32(&b.v, 0)
	}
}

func (b *Bool) Swap(val bool) (old bool) {
	var new int32
	if val {
		new = 1
	}
	return atomic.SwapInt32(&b.v, new) != 0
}

// CAS: compare-and-swap from `from` to `to`; reports whether it took effect.
func (b *Bool) CAS(from, to bool) bool {
	var o, n int32
	if from {
		o = 1
	}
	if to {
		n = 1
	}
	return atomic.CompareAndSwapInt32(&b.v, o, n)
}

func (i *Int32) Load() int32         { return atomic.LoadInt32(&i.v) }
func (i *Int32) Store(val int32)     { atomic.StoreInt32(&i.v, val) }
func (i *Int32) Add(delta int32) int32 { return atomic.AddInt32(&i.v, delta) }
func (i *Int32) CAS(from, to int32) bool {
	return atomic.CompareAndSwapInt32(&i.v, from, to)
}

func (i *Int64) Load() int64           { return atomic.LoadInt64(&i.v) }
func (i *Int64) Store(val int64)       { atomic.StoreInt64(&i.v, val) }
func (i *Int64) Add(delta int64) int64 { return atomic.AddInt64(&i.v, delta) }
func (i *Int64) CAS(from, to int64) bool {
	return atomic.CompareAndSwapInt64(&i.v, from, to)
}

func (u *Uint32) Load() uint32           { return atomic.LoadUint32(&u.v) }
func (u *Uint32) Store(val uint32)       { atomic.StoreUint32(&u.v, val) }
func (u *Uint32) Add(delta uint32) uint32 { return atomic.AddUint32(&u.v, delta) }
func (u *Uint32) CAS(from, to uint32) bool {
	return atomic.CompareAndSwapUint32(&u.v, from, to)
}

func (u *Uint64) Load() uint64           { return atomic.LoadUint64(&u.v) }
func (u *Uint64) Store(val uint64)       { atomic.StoreUint64(&u.v, val) }
func (u *Uint64) Add(delta uint64) uint64 { return atomic.AddUint64(&u.v, delta) }
func (u *Uint64) Swap(val uint64) uint64 { return atomic.SwapUint64(&u.v, val) }
func (u *Uint64) CAS(from, to uint64) bool {
	return atomic.CompareAndSwapUint64(&u.v, from, to)
}
