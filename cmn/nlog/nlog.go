// Package nlog is a small, dependency-free, severity-leveled logger used
// throughout the session/transport/routing core in place of the standard
// library's bare `log` package, mirroring the shape (not the file-rotation
// machinery) of aistore's own nlog.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

const sevChar = "IWE"

type nlog struct {
	mw        sync.Mutex
	w         io.Writer
	threshold severity
}

var (
	mu    sync.Mutex
	title string
	dflt  = &nlog{w: os.Stderr}
)

// SetOutput redirects all subsequent log lines to w (default os.Stderr).
func SetOutput(w io.Writer) {
	dflt.mw.Lock()
	dflt.w = w
	dflt.mw.Unlock()
}

// SetThreshold suppresses severities below the given level; 0=info (default),
// 1=warning, 2=error-only.
func SetThreshold(level int) {
	dflt.mw.Lock()
	dflt.threshold = severity(level)
	dflt.mw.Unlock()
}

func SetTitle(s string) {
	mu.Lock()
	title = s
	mu.Unlock()
}

func log(sev severity, depth int, format string, args ...any) {
	dflt.mw.Lock()
	defer dflt.mw.Unlock()
	if sev < dflt.threshold {
		return
	}
	var b strings.Builder
	formatHdr(&b, sev, depth+2)
	if format == "" {
		fmt.Fprintln(&b, args...)
	} else {
		fmt.Fprintf(&b, format, args...)
		if !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
	}
	io.WriteString(dflt.w, b.String())
}

func formatHdr(b *strings.Builder, sev severity, depth int) {
	_, fn, ln, ok := runtime.Caller(depth)
	now := time.Now()
	b.WriteByte(sevChar[sev])
	b.WriteByte(' ')
	b.WriteString(now.Format("15:04:05.000000"))
	b.WriteByte(' ')
	if ok {
		if idx := strings.LastIndexByte(fn, filepath.Separator); idx >= 0 {
			fn = fn[idx+1:]
		}
		b.WriteString(fn)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(ln))
		b.WriteByte(' ')
	}
}

// Flush is a no-op here: there is no buffered file writer to sync, kept for
// call-site parity with aistore's nlog.Flush (used at shutdown points).
func Flush(...bool) {}
