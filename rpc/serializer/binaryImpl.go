package serializer

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/ValentinKolb/dGo/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct{}

// Bit flags to indicate which optional sections are present
const (
	hasRequest   byte = 1 << 0
	hasResponse  byte = 1 << 1
	hasTxn       byte = 1 << 2
	hasVersion   byte = 1 << 3
	hasOperation byte = 1 << 4
	hasPayload   byte = 1 << 5
	hasErr       byte = 1 << 6
)

// headerSize is MsgType + flags + status code
const headerSize = 3

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	w := &binWriter{buf: make([]byte, headerSize, 64)}
	w.buf[0] = byte(msg.MsgType)
	w.buf[2] = byte(msg.Code)

	var flags byte

	if msg.Request != nil {
		flags |= hasRequest
		w.putRequest(msg.Request)
	}
	if msg.Response != nil {
		flags |= hasResponse
		w.putResponse(msg.Response)
	}
	if msg.Txn != nil {
		flags |= hasTxn
		w.putTxn(msg.Txn)
	}
	if msg.Version != nil {
		flags |= hasVersion
		w.putString(msg.Version.Tag)
	}
	if msg.Operation != nil {
		flags |= hasOperation
		w.putOperation(msg.Operation)
	}
	if msg.Payload != nil {
		flags |= hasPayload
		w.putBytes(msg.Payload.Data)
	}
	if msg.Err != "" {
		flags |= hasErr
		w.putString(msg.Err)
	}

	// Set flags byte after knowing which sections are present
	w.buf[1] = flags

	return w.buf, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size
	if len(data) < headerSize {
		return fmt.Errorf("data too short for message header")
	}

	*msg = common.Message{
		MsgType: common.MessageType(data[0]),
		Code:    common.StatusCode(data[2]),
	}
	flags := data[1]

	r := &binReader{data: data, pos: headerSize}

	if flags&hasRequest != 0 {
		msg.Request = r.getRequest()
	}
	if flags&hasResponse != 0 {
		msg.Response = r.getResponse()
	}
	if flags&hasTxn != 0 {
		msg.Txn = r.getTxn()
	}
	if flags&hasVersion != 0 {
		msg.Version = &common.Version{Tag: r.getString()}
	}
	if flags&hasOperation != 0 {
		msg.Operation = r.getOperation()
	}
	if flags&hasPayload != 0 {
		msg.Payload = &common.Payload{Data: r.getBytes()}
	}
	if flags&hasErr != 0 {
		msg.Err = r.getString()
	}

	if r.err != nil {
		return r.err
	}
	if r.pos != len(data) {
		return fmt.Errorf("%d trailing bytes after message", len(data)-r.pos)
	}
	return nil
}

// --------------------------------------------------------------------------
// Writer
// --------------------------------------------------------------------------

// binWriter appends big endian, length prefixed fields to a buffer
type binWriter struct {
	buf []byte
}

func (w *binWriter) putUint64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

func (w *binWriter) putUint32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *binWriter) putBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *binWriter) putString(s string) {
	w.putUint32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *binWriter) putBytes(b []byte) {
	w.putUint32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *binWriter) putStrings(list []string) {
	w.putUint32(uint32(len(list)))
	for _, s := range list {
		w.putString(s)
	}
}

// putStringMap writes the map with sorted keys so the output is deterministic
func (w *binWriter) putStringMap(m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w.putUint32(uint32(len(keys)))
	for _, k := range keys {
		w.putString(k)
		w.putString(m[k])
	}
}

func (w *binWriter) putNquads(quads []*common.NQuad) {
	n := 0
	for _, q := range quads {
		if q != nil {
			n++
		}
	}
	w.putUint32(uint32(n))
	for _, q := range quads {
		if q == nil {
			continue
		}
		w.putString(q.Subject)
		w.putString(q.Predicate)
		w.putString(q.ObjectId)
		w.putString(q.ObjectValue)
		w.putString(q.Lang)
	}
}

func (w *binWriter) putMutation(m *common.Mutation) {
	w.putBytes(m.SetJson)
	w.putBytes(m.DeleteJson)
	w.putBytes(m.SetNquads)
	w.putBytes(m.DelNquads)
	w.putNquads(m.Set)
	w.putNquads(m.Del)
	w.putString(m.Cond)
	w.putBool(m.CommitNow)
}

func (w *binWriter) putRequest(req *common.Request) {
	w.putUint64(req.StartTs)
	w.putString(req.Query)
	w.putStringMap(req.Vars)

	n := 0
	for _, m := range req.Mutations {
		if m != nil {
			n++
		}
	}
	w.putUint32(uint32(n))
	for _, m := range req.Mutations {
		if m != nil {
			w.putMutation(m)
		}
	}

	w.putString(req.Hash)
	w.putBool(req.CommitNow)
	w.putBool(req.ReadOnly)
	w.putBool(req.BestEffort)
}

func (w *binWriter) putTxn(txn *common.TxnContext) {
	w.putUint64(txn.StartTs)
	w.putUint64(txn.CommitTs)
	w.putBool(txn.Aborted)
	w.putStrings(txn.Keys)
	w.putStrings(txn.Preds)
	w.putString(txn.Hash)
}

func (w *binWriter) putResponse(resp *common.Response) {
	w.putBytes(resp.Json)

	// optional sub sections are prefixed with a presence byte
	w.putBool(resp.Txn != nil)
	if resp.Txn != nil {
		w.putTxn(resp.Txn)
	}

	w.putBool(resp.Latency != nil)
	if l := resp.Latency; l != nil {
		w.putUint64(l.ParsingNs)
		w.putUint64(l.ProcessingNs)
		w.putUint64(l.EncodingNs)
		w.putUint64(l.AssignTimestampNs)
		w.putUint64(l.TotalNs)
	}

	w.putBool(resp.Metrics != nil)
	if resp.Metrics != nil {
		keys := make([]string, 0, len(resp.Metrics.NumUids))
		for k := range resp.Metrics.NumUids {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		w.putUint32(uint32(len(keys)))
		for _, k := range keys {
			w.putString(k)
			w.putUint64(resp.Metrics.NumUids[k])
		}
	}

	w.putStringMap(resp.Uids)
}

func (w *binWriter) putOperation(op *common.Operation) {
	w.putString(op.Schema)
	w.putString(op.DropAttr)
	w.putBool(op.DropAll)
	w.buf = append(w.buf, byte(op.DropOp))
	w.putString(op.DropValue)
	w.putBool(op.RunInBackground)
}

// --------------------------------------------------------------------------
// Reader
// --------------------------------------------------------------------------

// binReader is the counterpart of binWriter. The first error sticks and
// turns every further read into a no-op returning zero values.
type binReader struct {
	data []byte
	pos  int
	err  error
}

func (r *binReader) need(n int, what string) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.err = fmt.Errorf("data too short for %s", what)
		return false
	}
	return true
}

func (r *binReader) getUint64() uint64 {
	if !r.need(8, "uint64") {
		return 0
	}
	v := binary.BigEndian.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return v
}

func (r *binReader) getUint32() uint32 {
	if !r.need(4, "length") {
		return 0
	}
	v := binary.BigEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return v
}

func (r *binReader) getByte() byte {
	if !r.need(1, "byte") {
		return 0
	}
	v := r.data[r.pos]
	r.pos++
	return v
}

func (r *binReader) getBool() bool {
	return r.getByte() != 0
}

func (r *binReader) getString() string {
	n := int(r.getUint32())
	if !r.need(n, "string data") {
		return ""
	}
	s := string(r.data[r.pos : r.pos+n])
	r.pos += n
	return s
}

// bytes returns nil for zero length fields
func (r *binReader) getBytes() []byte {
	n := int(r.getUint32())
	if n == 0 || !r.need(n, "byte data") {
		return nil
	}
	b := make([]byte, n)
	copy(b, r.data[r.pos:r.pos+n])
	r.pos += n
	return b
}

// count reads a list length and checks it against the remaining data,
// every element takes at least minSize bytes
func (r *binReader) count(minSize int) int {
	n := int(r.getUint32())
	if r.err == nil && n*minSize > len(r.data)-r.pos {
		r.err = fmt.Errorf("list length %d exceeds message size", n)
		return 0
	}
	return n
}

func (r *binReader) getStrings() []string {
	n := r.count(4)
	if n == 0 {
		return nil
	}
	list := make([]string, n)
	for i := range list {
		list[i] = r.getString()
	}
	return list
}

func (r *binReader) getStringMap() map[string]string {
	n := r.count(8)
	if n == 0 {
		return nil
	}
	m := make(map[string]string, n)
	for i := 0; i < n; i++ {
		k := r.getString()
		m[k] = r.getString()
	}
	return m
}

func (r *binReader) getNquads() []*common.NQuad {
	n := r.count(20)
	if n == 0 {
		return nil
	}
	quads := make([]*common.NQuad, n)
	for i := range quads {
		quads[i] = &common.NQuad{
			Subject:     r.getString(),
			Predicate:   r.getString(),
			ObjectId:    r.getString(),
			ObjectValue: r.getString(),
			Lang:        r.getString(),
		}
	}
	return quads
}

func (r *binReader) getMutation() *common.Mutation {
	return &common.Mutation{
		SetJson:    r.getBytes(),
		DeleteJson: r.getBytes(),
		SetNquads:  r.getBytes(),
		DelNquads:  r.getBytes(),
		Set:        r.getNquads(),
		Del:        r.getNquads(),
		Cond:       r.getString(),
		CommitNow:  r.getBool(),
	}
}

func (r *binReader) getRequest() *common.Request {
	req := &common.Request{
		StartTs: r.getUint64(),
		Query:   r.getString(),
		Vars:    r.getStringMap(),
	}

	if n := r.count(1); n > 0 {
		req.Mutations = make([]*common.Mutation, n)
		for i := range req.Mutations {
			req.Mutations[i] = r.getMutation()
		}
	}

	req.Hash = r.getString()
	req.CommitNow = r.getBool()
	req.ReadOnly = r.getBool()
	req.BestEffort = r.getBool()
	return req
}

func (r *binReader) getTxn() *common.TxnContext {
	return &common.TxnContext{
		StartTs:  r.getUint64(),
		CommitTs: r.getUint64(),
		Aborted:  r.getBool(),
		Keys:     r.getStrings(),
		Preds:    r.getStrings(),
		Hash:     r.getString(),
	}
}

func (r *binReader) getResponse() *common.Response {
	resp := &common.Response{Json: r.getBytes()}

	if r.getBool() {
		resp.Txn = r.getTxn()
	}

	if r.getBool() {
		resp.Latency = &common.Latency{
			ParsingNs:         r.getUint64(),
			ProcessingNs:      r.getUint64(),
			EncodingNs:        r.getUint64(),
			AssignTimestampNs: r.getUint64(),
			TotalNs:           r.getUint64(),
		}
	}

	if r.getBool() {
		resp.Metrics = &common.Metrics{}
		if n := r.count(12); n > 0 {
			resp.Metrics.NumUids = make(map[string]uint64, n)
			for i := 0; i < n; i++ {
				k := r.getString()
				resp.Metrics.NumUids[k] = r.getUint64()
			}
		}
	}

	resp.Uids = r.getStringMap()
	return resp
}

func (r *binReader) getOperation() *common.Operation {
	return &common.Operation{
		Schema:          r.getString(),
		DropAttr:        r.getString(),
		DropAll:         r.getBool(),
		DropOp:          common.DropOp(r.getByte()),
		DropValue:       r.getString(),
		RunInBackground: r.getBool(),
	}
}
