/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package link_test

import (
	"net"
	"testing"
	"time"

	"github.com/zenohd/zenohd/link"
)

func TestParseLocator(t *testing.T) {
	if _, err := link.ParseLocator("udp/127.0.0.1:7447"); err == nil {
		t.Fatal("expected rejection of non-tcp scheme")
	}
	addr, err := link.ParseLocator("tcp/127.0.0.1:7447")
	if err != nil || addr != "127.0.0.1:7447" {
		t.Fatalf("got (%q, %v)", addr, err)
	}
}

func TestTCPLinkSendRecv(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	srvConnCh := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			srvConnCh <- c
		}
	}()

	clientConn, err := net.DialTimeout("tcp", ln.Addr().String(), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	serverConn := <-srvConnCh

	a := link.NewTCPLink(clientConn, 1024)
	b := link.NewTCPLink(serverConn, 1024)
	defer a.Close()
	defer b.Close()

	if a.MTU() != 1024 || !a.IsStreamOriented() {
		t.Fatalf("unexpected link properties")
	}
	if a.Equal(b) {
		t.Fatal("distinct links should not compare equal")
	}

	if err := a.Send([]byte("ping")); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 4)
	n, err := b.Recv(buf)
	if err != nil || n != 4 || string(buf) != "ping" {
		t.Fatalf("got (%d, %v, %q)", n, err, buf)
	}
}
