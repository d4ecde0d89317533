// Package link defines the Link contract (spec.md §6, component C6) the
// transport engine requires from any byte pipe, plus a TCP-backed
// implementation. MTU and stream-orientation are the two properties the
// transmission loop's batching decisions (transport package) depend on.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package link

import (
	"net"

	"github.com/zenohd/zenohd/cmn/cos"
)

// Link is an ordered, reliable byte pipe to one peer.
type Link interface {
	// Send writes the entire payload or fails; reliable and ordered.
	Send(b []byte) error
	// Recv reads up to len(dst) bytes into dst, returning the count read.
	Recv(dst []byte) (int, error)
	MTU() int
	IsStreamOriented() bool
	Src() string
	Dst() string
	Close() error
	// Equal reports equality by (src, dst), per spec.md §6.
	Equal(other Link) bool
}

// DefaultMTU is used when a link doesn't otherwise constrain batch size;
// the session's configured BatchSize (cmn/config) is capped to this.
const DefaultMTU = 64 << 10

// TCPLink wraps a net.Conn as a stream-oriented Link.
type TCPLink struct {
	conn net.Conn
	mtu  int
	src  string
	dst  string
}

func NewTCPLink(conn net.Conn, mtu int) *TCPLink {
	if mtu <= 0 {
		mtu = DefaultMTU
	}
	return &TCPLink{
		conn: conn,
		mtu:  mtu,
		src:  conn.LocalAddr().String(),
		dst:  conn.RemoteAddr().String(),
	}
}

func (l *TCPLink) Send(b []byte) error {
	for len(b) > 0 {
		n, err := l.conn.Write(b)
		if err != nil {
			return cos.NewErrIO(err)
		}
		b = b[n:]
	}
	return nil
}

func (l *TCPLink) Recv(dst []byte) (int, error) {
	n, err := l.conn.Read(dst)
	if err != nil {
		return n, cos.NewErrIO(err)
	}
	return n, nil
}

func (l *TCPLink) MTU() int              { return l.mtu }
func (l *TCPLink) IsStreamOriented() bool { return true }
func (l *TCPLink) Src() string            { return l.src }
func (l *TCPLink) Dst() string            { return l.dst }
func (l *TCPLink) Close() error           { return l.conn.Close() }

func (l *TCPLink) Equal(other Link) bool {
	o, ok := other.(*TCPLink)
	if !ok {
		return false
	}
	return l.src == o.src && l.dst == o.dst
}

// Dial opens a new outbound TCP link to a "tcp/host:port"-style locator.
func Dial(locator string, mtu int) (*TCPLink, error) {
	addr, err := ParseLocator(locator)
	if err != nil {
		return nil, err
	}
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, cos.NewErrIO(err)
	}
	return NewTCPLink(conn, mtu), nil
}

// ParseLocator validates and strips the "tcp/" scheme prefix spec.md's
// OPEN/ACCEPT locator lists use (a placeholder scheme: no discovery
// protocol resolves it, the caller supplies it directly).
func ParseLocator(locator string) (string, error) {
	const prefix = "tcp/"
	if len(locator) <= len(prefix) || locator[:len(prefix)] != prefix {
		return "", cos.NewErrInvalidLocator("expected %q prefix, got %q", prefix, locator)
	}
	addr := locator[len(prefix):]
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return "", cos.NewErrInvalidLocator("%v", err)
	}
	return addr, nil
}
