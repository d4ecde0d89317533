//go:build debug

package debug

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"
)

func ON() bool { return true }

// Assert panics if cond is false. args, if given, are passed to fmt.Sprint
// and appended to the panic message.
func Assert(cond bool, args ...any) {
	if cond {
		return
	}
	if len(args) == 0 {
		panic("assertion failed")
	}
	panic("assertion failed: " + fmt.Sprint(args...))
}

func Assertf(cond bool, format string, args ...any) {
	if cond {
		return
	}
	panic("assertion failed: " + fmt.Sprintf(format, args...))
}

func AssertNoErr(err error) {
	if err != nil {
		panic("unexpected error: " + err.Error())
	}
}

func AssertFunc(f func() bool, args ...any) {
	Assert(f(), args...)
}

// mutexLocked bit-checks sync.Mutex's own internal state word rather than
// taking (and immediately blocking on) the lock itself -- the same trick
// the standard library's own race/lock tooling relies on, since Go gives
// no exported TryLock-and-check-only API for this build tag's purposes.
const mutexLocked = 1

func AssertMutexLocked(m *sync.Mutex) {
	state := atomic.LoadInt32((*int32)(unsafe.Pointer(m)))
	Assert(state&mutexLocked != 0, "mutex not locked")
}

func AssertRWMutexLocked(m *sync.RWMutex) {
	AssertMutexLocked((*sync.Mutex)(unsafe.Pointer(m)))
}

func AssertRWMutexRLocked(m *sync.RWMutex) {
	state := atomic.LoadInt32((*int32)(unsafe.Pointer(m)))
	Assert(state != 0, "rwmutex not locked")
}
