// Application (zenoh) messages carried inside a FRAME payload: DATA,
// QUERY, PULL, UNIT, and REPLY (spec.md §4.4 data-plane messages; shapes
// grounded on original_source/zenoh-protocol/src/proto/msg.rs).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package wire

type Data struct {
	Key     ResKey
	Info    *DataInfo
	Payload []byte
	Reply   *ReplyContext // non-nil when this DATA answers a query
}

func EncodeData(w *WriteBuf, m *Data) {
	h := byte(IDData)
	if m.Key.IsNumerical() {
		h |= ZFlagK
	}
	if !m.Info.isEmpty() {
		h |= ZFlagI
	}
	w.Write(h)
	if m.Reply != nil {
		encodeReplyContext(w, m.Reply)
	}
	encodeResKey(w, m.Key)
	if !m.Info.isEmpty() {
		encodeDataInfo(w, m.Info)
	}
	w.WriteBytes(PutUvarint(nil, uint64(len(m.Payload))))
	w.AppendSlice(m.Payload)
}

// DecodeData decodes a DATA body. hasReply tells the decoder whether a
// ReplyContext decorator precedes the key -- the codec dispatcher passes
// this based on the sibling flag on the enclosing UNIT/DATA id (see
// codec.go DecodeZenoh).
func DecodeData(header byte, r *ReadBuf, hasReply bool) (*Data, error) {
	m := &Data{}
	var err error
	if hasReply {
		if m.Reply, err = decodeReplyContext(r); err != nil {
			return nil, err
		}
	}
	if m.Key, err = decodeResKey(r); err != nil {
		return nil, err
	}
	if HasFlag(header, ZFlagI) {
		if m.Info, err = decodeDataInfo(r); err != nil {
			return nil, err
		}
	}
	n, err := readVarint(r)
	if err != nil {
		return nil, err
	}
	if m.Payload, err = r.ReadBytes(int(n)); err != nil {
		return nil, err
	}
	return m, nil
}

func encodeDataInfo(w *WriteBuf, di *DataInfo) {
	var flags uint64
	if di.HasSourceID {
		flags |= 1 << 0
	}
	if di.HasSourceSN {
		flags |= 1 << 1
	}
	if di.HasFirstBroker {
		flags |= 1 << 2
	}
	if di.HasTimestamp {
		flags |= 1 << 3
	}
	if di.HasKind {
		flags |= 1 << 4
	}
	if di.HasEncoding {
		flags |= 1 << 5
	}
	w.WriteBytes(PutUvarint(nil, flags))
	if di.HasSourceID {
		writeString(w, di.SourceID)
	}
	if di.HasSourceSN {
		w.WriteBytes(PutUvarint(nil, di.SourceSN))
	}
	if di.HasFirstBroker {
		writeString(w, di.FirstBrokerID)
		w.WriteBytes(PutUvarint(nil, di.FirstBrokerSN))
	}
	if di.HasTimestamp {
		w.WriteBytes(PutUvarint(nil, di.Timestamp))
	}
	if di.HasKind {
		w.WriteBytes(PutUvarint(nil, di.Kind))
	}
	if di.HasEncoding {
		w.WriteBytes(PutUvarint(nil, di.Encoding))
	}
}

func decodeDataInfo(r *ReadBuf) (*DataInfo, error) {
	flags, err := readVarint(r)
	if err != nil {
		return nil, err
	}
	di := &DataInfo{}
	if di.HasSourceID = flags&(1<<0) != 0; di.HasSourceID {
		if di.SourceID, err = readString(r); err != nil {
			return nil, err
		}
	}
	if di.HasSourceSN = flags&(1<<1) != 0; di.HasSourceSN {
		if di.SourceSN, err = readVarint(r); err != nil {
			return nil, err
		}
	}
	if di.HasFirstBroker = flags&(1<<2) != 0; di.HasFirstBroker {
		if di.FirstBrokerID, err = readString(r); err != nil {
			return nil, err
		}
		if di.FirstBrokerSN, err = readVarint(r); err != nil {
			return nil, err
		}
	}
	if di.HasTimestamp = flags&(1<<3) != 0; di.HasTimestamp {
		if di.Timestamp, err = readVarint(r); err != nil {
			return nil, err
		}
	}
	if di.HasKind = flags&(1<<4) != 0; di.HasKind {
		if di.Kind, err = readVarint(r); err != nil {
			return nil, err
		}
	}
	if di.HasEncoding = flags&(1<<5) != 0; di.HasEncoding {
		if di.Encoding, err = readVarint(r); err != nil {
			return nil, err
		}
	}
	return di, nil
}

func encodeReplyContext(w *WriteBuf, rc *ReplyContext) {
	var flags byte
	if rc.IsFinal {
		flags |= 1 << 0
	}
	if rc.Source == ReplySourceStorage {
		flags |= 1 << 1
	}
	if rc.HasReplier {
		flags |= 1 << 2
	}
	w.Write(flags)
	w.WriteBytes(PutUvarint(nil, rc.QID))
	if rc.HasReplier {
		writeString(w, rc.ReplierID)
	}
}

func decodeReplyContext(r *ReadBuf) (*ReplyContext, error) {
	flags, err := r.Read()
	if err != nil {
		return nil, err
	}
	rc := &ReplyContext{
		IsFinal:    flags&(1<<0) != 0,
		HasReplier: flags&(1<<2) != 0,
	}
	if flags&(1<<1) != 0 {
		rc.Source = ReplySourceStorage
	} else {
		rc.Source = ReplySourceEval
	}
	if rc.QID, err = readVarint(r); err != nil {
		return nil, err
	}
	if rc.HasReplier {
		if rc.ReplierID, err = readString(r); err != nil {
			return nil, err
		}
	}
	return rc, nil
}

// Unit is an empty-payload application message, used as a bare final-reply
// marker (ReplyContext.IsFinal with no Data to carry) and as a liveness
// no-op inside a FRAME.
type Unit struct {
	Reply *ReplyContext
}

func EncodeUnit(w *WriteBuf, m *Unit) {
	w.Write(IDUnit)
	if m.Reply != nil {
		encodeReplyContext(w, m.Reply)
	}
}

func DecodeUnit(r *ReadBuf, hasReply bool) (*Unit, error) {
	m := &Unit{}
	if hasReply {
		rc, err := decodeReplyContext(r)
		if err != nil {
			return nil, err
		}
		m.Reply = rc
	}
	return m, nil
}

// Pull requests the next (or all remaining) queued sample(s) on a pull
// subscription (spec.md §4.4).
type Pull struct {
	Key        ResKey
	PullID     uint64
	MaxSamples uint64
	HasMax     bool
	IsFinal    bool
}

func EncodePull(w *WriteBuf, m *Pull) {
	h := byte(IDPull)
	if m.Key.IsNumerical() {
		h |= ZFlagK
	}
	if m.HasMax {
		h |= ZFlagN
	}
	if m.IsFinal {
		h |= ZFlagF
	}
	w.Write(h)
	encodeResKey(w, m.Key)
	w.WriteBytes(PutUvarint(nil, m.PullID))
	if m.HasMax {
		w.WriteBytes(PutUvarint(nil, m.MaxSamples))
	}
}

func DecodePull(header byte, r *ReadBuf) (*Pull, error) {
	m := &Pull{HasMax: HasFlag(header, ZFlagN), IsFinal: HasFlag(header, ZFlagF)}
	var err error
	if m.Key, err = decodeResKey(r); err != nil {
		return nil, err
	}
	if m.PullID, err = readVarint(r); err != nil {
		return nil, err
	}
	if m.HasMax {
		if m.MaxSamples, err = readVarint(r); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Query fans a request out to matching queryables (spec.md §4.4, §6 face
// callback "query").
type Query struct {
	Key            ResKey
	Predicate      string
	QID            uint64
	Target         *QueryTarget
	Consolidation  QueryConsolidation
}

func EncodeQuery(w *WriteBuf, m *Query) {
	h := byte(IDQuery)
	if m.Key.IsNumerical() {
		h |= ZFlagK
	}
	if m.Target != nil {
		h |= ZFlagT
	}
	w.Write(h)
	encodeResKey(w, m.Key)
	writeString(w, m.Predicate)
	w.WriteBytes(PutUvarint(nil, m.QID))
	if m.Target != nil {
		encodeQueryTarget(w, m.Target)
	}
	w.Write(byte(m.Consolidation))
}

func DecodeQuery(header byte, r *ReadBuf) (*Query, error) {
	m := &Query{}
	var err error
	if m.Key, err = decodeResKey(r); err != nil {
		return nil, err
	}
	if m.Predicate, err = readString(r); err != nil {
		return nil, err
	}
	if m.QID, err = readVarint(r); err != nil {
		return nil, err
	}
	if HasFlag(header, ZFlagT) {
		if m.Target, err = decodeQueryTarget(r); err != nil {
			return nil, err
		}
	}
	cb, err := r.Read()
	if err != nil {
		return nil, err
	}
	m.Consolidation = QueryConsolidation(cb)
	return m, nil
}

func encodeQueryTarget(w *WriteBuf, t *QueryTarget) {
	w.Write(byte(t.Storage))
	w.WriteBytes(PutUvarint(nil, t.StorageN))
	w.Write(byte(t.Eval))
	w.WriteBytes(PutUvarint(nil, t.EvalN))
}

func decodeQueryTarget(r *ReadBuf) (*QueryTarget, error) {
	sb, err := r.Read()
	if err != nil {
		return nil, err
	}
	sn, err := readVarint(r)
	if err != nil {
		return nil, err
	}
	eb, err := r.Read()
	if err != nil {
		return nil, err
	}
	en, err := readVarint(r)
	if err != nil {
		return nil, err
	}
	return &QueryTarget{Storage: Target(sb), StorageN: sn, Eval: Target(eb), EvalN: en}, nil
}

// Reply wraps a Data or a final Unit answering a Query; kept as a distinct
// id (0x1e) as in the original. Its body is a ReplyContext followed, when
// the reply is not final, by the answering Data's key and payload.
// DecodeZenoh decodes IDReply into ZenohMessage.Reply.
type Reply struct {
	Context ReplyContext
	Data    *Data // nil when the reply is a bare final marker
}

// EncodeReply does not carry a DataInfo decorator on its embedded Data (a
// final reply's payload provenance travels in the ReplyContext instead);
// callers needing full DataInfo on a reply encode a decorated Data message
// with Reply set instead of using the Reply type.
func EncodeReply(w *WriteBuf, m *Reply) {
	w.Write(IDReply)
	encodeReplyContext(w, &m.Context)
	if m.Data != nil {
		encodeResKey(w, m.Data.Key)
		w.WriteBytes(PutUvarint(nil, uint64(len(m.Data.Payload))))
		w.AppendSlice(m.Data.Payload)
	}
}

func DecodeReply(r *ReadBuf) (*Reply, error) {
	rc, err := decodeReplyContext(r)
	if err != nil {
		return nil, err
	}
	m := &Reply{Context: *rc}
	if rc.IsFinal {
		return m, nil
	}
	d := &Data{}
	if d.Key, err = decodeResKey(r); err != nil {
		return nil, err
	}
	n, err := readVarint(r)
	if err != nil {
		return nil, err
	}
	if d.Payload, err = r.ReadBytes(int(n)); err != nil {
		return nil, err
	}
	m.Data = d
	return m, nil
}
