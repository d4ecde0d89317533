/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package wire_test

import (
	"testing"

	"github.com/zenohd/zenohd/wire"
)

func encodeDecodeSession(t *testing.T, m *wire.SessionMessage) *wire.SessionMessage {
	t.Helper()
	w := wire.NewWriteBuf(0)
	wire.EncodeSession(w, m)
	got, err := wire.DecodeSession(w.AsReadBuf())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return got
}

func TestOpenAcceptRoundTrip(t *testing.T) {
	open := &wire.Open{
		PeerID: "peerA", LeaseMS: 30_000, InitialSN: 0,
		SNResolution: 1 << 28, HasSNRes: true,
		Locators: []string{"tcp/127.0.0.1:7447"},
	}
	got := encodeDecodeSession(t, &wire.SessionMessage{Open: open})
	if got.Open == nil || got.Open.PeerID != "peerA" || got.Open.LeaseMS != 30_000 {
		t.Fatalf("got %+v", got.Open)
	}
	if !got.Open.HasSNRes || got.Open.SNResolution != 1<<28 {
		t.Fatalf("sn resolution not round-tripped: %+v", got.Open)
	}
	if len(got.Open.Locators) != 1 || got.Open.Locators[0] != "tcp/127.0.0.1:7447" {
		t.Fatalf("locators not round-tripped: %+v", got.Open)
	}

	accept := &wire.Accept{OpenerID: "peerA", ApproverID: "peerB", LeaseMS: 30_000, InitialSN: 5}
	got2 := encodeDecodeSession(t, &wire.SessionMessage{Accept: accept})
	if got2.Accept == nil || got2.Accept.ApproverID != "peerB" || got2.Accept.InitialSN != 5 {
		t.Fatalf("got %+v", got2.Accept)
	}
}

func TestCloseRoundTrip(t *testing.T) {
	c := &wire.Close{PeerID: "peerA", HasPeerID: true, Reason: wire.CloseMaxLinks, LinkOnly: true}
	got := encodeDecodeSession(t, &wire.SessionMessage{Close: c})
	if got.Close == nil || got.Close.Reason != wire.CloseMaxLinks || !got.Close.LinkOnly {
		t.Fatalf("got %+v", got.Close)
	}
}

func TestFrameWithDataPayload(t *testing.T) {
	zw := wire.NewWriteBuf(0)
	wire.EncodeZenoh(zw, &wire.ZenohMessage{Data: &wire.Data{
		Key:     wire.ResKey{ID: 7},
		Payload: []byte("hello"),
	}})
	payload, err := zw.AsReadBuf().ReadBytes(zw.Len())
	if err != nil {
		t.Fatal(err)
	}

	sw := wire.NewWriteBuf(0)
	wire.EncodeFrame(sw, &wire.Frame{Reliable: true, SN: 42, Payload: payload})
	got, err := wire.DecodeSession(sw.AsReadBuf())
	if err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if got.Frame == nil || got.Frame.SN != 42 || !got.Frame.Reliable {
		t.Fatalf("got %+v", got.Frame)
	}

	msgs, err := wire.DecodeZenohBatch(got.Frame.Payload)
	if err != nil {
		t.Fatalf("decode batch: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Data == nil || string(msgs[0].Data.Payload) != "hello" {
		t.Fatalf("got %+v", msgs)
	}
	if msgs[0].Data.Key.ID != 7 || !msgs[0].Data.Key.IsNumerical() {
		t.Fatalf("got key %+v", msgs[0].Data.Key)
	}
}

func TestDeclareRoundTrip(t *testing.T) {
	d := &wire.Declare{Decls: []wire.Declaration{
		{Kind: wire.DeclResource, RID: 1, Key: wire.ResKey{Suffix: "a/b/c"}},
		{Kind: wire.DeclSubscriber, Key: wire.ResKey{ID: 1}, Mode: wire.SubMode{Kind: wire.SubModePush}},
		{Kind: wire.DeclForgetSubscriber, Key: wire.ResKey{ID: 1}},
	}}
	zw := wire.NewWriteBuf(0)
	wire.EncodeZenoh(zw, &wire.ZenohMessage{Declare: d})
	got, err := wire.DecodeZenoh(zw.AsReadBuf())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Declare == nil || len(got.Declare.Decls) != 3 {
		t.Fatalf("got %+v", got.Declare)
	}
	if got.Declare.Decls[0].Key.Suffix != "a/b/c" {
		t.Fatalf("got resource decl %+v", got.Declare.Decls[0])
	}
	if got.Declare.Decls[1].Mode.Kind != wire.SubModePush {
		t.Fatalf("got sub mode %+v", got.Declare.Decls[1].Mode)
	}
}

func TestQueryReplyRoundTrip(t *testing.T) {
	q := &wire.Query{
		Key: wire.ResKey{Suffix: "sensors/temp"}, Predicate: "?above=10", QID: 99,
		Target:        &wire.QueryTarget{Storage: wire.TargetAll, Eval: wire.TargetBestMatching, EvalN: 1},
		Consolidation: wire.ConsolidationLastBroker,
	}
	zw := wire.NewWriteBuf(0)
	wire.EncodeZenoh(zw, &wire.ZenohMessage{Query: q})
	got, err := wire.DecodeZenoh(zw.AsReadBuf())
	if err != nil {
		t.Fatalf("decode query: %v", err)
	}
	if got.Query == nil || got.Query.QID != 99 || got.Query.Predicate != "?above=10" {
		t.Fatalf("got %+v", got.Query)
	}
	if got.Query.Target == nil || got.Query.Target.Storage != wire.TargetAll {
		t.Fatalf("got target %+v", got.Query.Target)
	}

	rw := wire.NewWriteBuf(0)
	wire.EncodeReply(rw, &wire.Reply{
		Context: wire.ReplyContext{QID: 99, Source: wire.ReplySourceStorage},
		Data:    &wire.Data{Key: wire.ResKey{Suffix: "sensors/temp"}, Payload: []byte("21.5")},
	})
	gotReply, err := wire.DecodeZenoh(rw.AsReadBuf())
	if err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if gotReply.Reply == nil || gotReply.Reply.Data == nil || string(gotReply.Reply.Data.Payload) != "21.5" {
		t.Fatalf("got %+v", gotReply.Reply)
	}
}
