//go:build !mono

package mono

import "time"

var start = time.Now()

// NanoTime is the portable fallback: nanoseconds since package init,
// measured with time.Since, which uses the monotonic reading time.Now()
// carries on every platform Go supports, so it is monotonic even without
// the linkname trick the "mono" build tag enables.
func NanoTime() int64 { return int64(time.Since(start)) }
