package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Graph Protocol Types
// --------------------------------------------------------------------------

// TxnContext carries the transaction state the server hands back to the client.
// A StartTs of 0 means the server has not assigned a start timestamp yet.
type TxnContext struct {
	StartTs  uint64   `json:"start_ts,omitempty"`
	CommitTs uint64   `json:"commit_ts,omitempty"`
	Aborted  bool     `json:"aborted,omitempty"`
	Keys     []string `json:"keys,omitempty"`  // Conflict keys touched by the transaction
	Preds    []string `json:"preds,omitempty"` // Predicates touched by the transaction
	Hash     string   `json:"hash,omitempty"`  // Changes with every round trip
}

// NQuad is a single triple statement
type NQuad struct {
	Subject     string `json:"subject,omitempty"`
	Predicate   string `json:"predicate,omitempty"`
	ObjectId    string `json:"object_id,omitempty"`
	ObjectValue string `json:"object_value,omitempty"`
	Lang        string `json:"lang,omitempty"`
}

// Mutation is an opaque mutation payload. The driver never interprets its content.
type Mutation struct {
	SetJson    []byte   `json:"set_json,omitempty"`
	DeleteJson []byte   `json:"delete_json,omitempty"`
	SetNquads  []byte   `json:"set_nquads,omitempty"`
	DelNquads  []byte   `json:"del_nquads,omitempty"`
	Set        []*NQuad `json:"set,omitempty"`
	Del        []*NQuad `json:"del,omitempty"`
	Cond       string   `json:"cond,omitempty"`
	CommitNow  bool     `json:"commit_now,omitempty"`
}

// Request is a query, mutation or upsert sent to the server
type Request struct {
	StartTs    uint64            `json:"start_ts,omitempty"`
	Query      string            `json:"query,omitempty"`
	Vars       map[string]string `json:"vars,omitempty"`
	Mutations  []*Mutation       `json:"mutations,omitempty"`
	Hash       string            `json:"hash,omitempty"`
	CommitNow  bool              `json:"commit_now,omitempty"`
	ReadOnly   bool              `json:"read_only,omitempty"`
	BestEffort bool              `json:"best_effort,omitempty"`
}

// Latency holds the server side timings of a request in nanoseconds
type Latency struct {
	ParsingNs         uint64 `json:"parsing_ns,omitempty"`
	ProcessingNs      uint64 `json:"processing_ns,omitempty"`
	EncodingNs        uint64 `json:"encoding_ns,omitempty"`
	AssignTimestampNs uint64 `json:"assign_timestamp_ns,omitempty"`
	TotalNs           uint64 `json:"total_ns,omitempty"`
}

// Metrics holds opaque server metrics of a request
type Metrics struct {
	NumUids map[string]uint64 `json:"num_uids,omitempty"`
}

// Response is the answer to a Request
type Response struct {
	Json    []byte            `json:"json,omitempty"`
	Txn     *TxnContext       `json:"txn,omitempty"`
	Latency *Latency          `json:"latency,omitempty"`
	Metrics *Metrics          `json:"metrics,omitempty"`
	Uids    map[string]string `json:"uids,omitempty"` // Blank node name -> assigned uid
}

// Version is returned by the CheckVersion round trip
type Version struct {
	Tag string `json:"tag,omitempty"`
}

// DropOp selects what an Operation drops
type DropOp uint8

const (
	DropOpNone DropOp = iota
	DropOpAll
	DropOpData
	DropOpAttr
	DropOpType
)

// Operation alters the schema or drops data
type Operation struct {
	Schema          string `json:"schema,omitempty"`
	DropAttr        string `json:"drop_attr,omitempty"`
	DropAll         bool   `json:"drop_all,omitempty"`
	DropOp          DropOp `json:"drop_op,omitempty"`
	DropValue       string `json:"drop_value,omitempty"`
	RunInBackground bool   `json:"run_in_background,omitempty"`
}

// Payload is returned by the Alter round trip
type Payload struct {
	Data []byte `json:"data,omitempty"`
}

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which sections are set depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	Request   *Request    `json:"request,omitempty"`   // Used for: Query (request)
	Response  *Response   `json:"response,omitempty"`  // Used for: Query (response)
	Txn       *TxnContext `json:"txn,omitempty"`       // Used for: CommitOrAbort
	Version   *Version    `json:"version,omitempty"`   // Used for: CheckVersion (response)
	Operation *Operation  `json:"operation,omitempty"` // Used for: Alter (request)
	Payload   *Payload    `json:"payload,omitempty"`   // Used for: Alter (response)

	// Response only fields
	Code StatusCode `json:"code,omitempty"` // Rejection reason, only set together with Err
	Err  string     `json:"err,omitempty"`  // Empty if no error, otherwise contains the error message
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewQueryRequest creates a new Query request
func NewQueryRequest(req *Request) *Message {
	return &Message{
		MsgType: MsgTQuery,
		Request: req,
	}
}

// NewQueryResponse creates a new Query response
func NewQueryResponse(resp *Response, err error) *Message {
	msg := &Message{
		MsgType:  MsgTQuery,
		Response: resp,
	}
	setErr(msg, err)
	return msg
}

// NewCheckVersionRequest creates a new CheckVersion request
func NewCheckVersionRequest() *Message {
	return &Message{
		MsgType: MsgTCheckVersion,
	}
}

// NewCheckVersionResponse creates a new CheckVersion response
func NewCheckVersionResponse(tag string, err error) *Message {
	msg := &Message{
		MsgType: MsgTCheckVersion,
		Version: &Version{Tag: tag},
	}
	setErr(msg, err)
	return msg
}

// NewCommitOrAbortRequest creates a new CommitOrAbort request
func NewCommitOrAbortRequest(txn *TxnContext) *Message {
	return &Message{
		MsgType: MsgTCommitOrAbort,
		Txn:     txn,
	}
}

// NewCommitOrAbortResponse creates a new CommitOrAbort response
func NewCommitOrAbortResponse(txn *TxnContext, err error) *Message {
	msg := &Message{
		MsgType: MsgTCommitOrAbort,
		Txn:     txn,
	}
	setErr(msg, err)
	return msg
}

// NewAlterRequest creates a new Alter request
func NewAlterRequest(op *Operation) *Message {
	return &Message{
		MsgType:   MsgTAlter,
		Operation: op,
	}
}

// NewAlterResponse creates a new Alter response
func NewAlterResponse(payload *Payload, err error) *Message {
	msg := &Message{
		MsgType: MsgTAlter,
		Payload: payload,
	}
	setErr(msg, err)
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(code StatusCode, err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Code:    code,
		Err:     err,
	}
}

// setErr copies an error into the message, keeping the status code of a StatusError
func setErr(msg *Message, err error) {
	if err == nil {
		return
	}
	msg.Err = err.Error()
	msg.Code = StatusUnknown
	if se, ok := err.(*StatusError); ok {
		msg.Code = se.Code
		msg.Err = se.Msg
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTSuccess:
		return "success"
	case MsgTError:
		return "error"
	case MsgTQuery:
		return "query"
	case MsgTCheckVersion:
		return "checkVersion"
	case MsgTCommitOrAbort:
		return "commitOrAbort"
	case MsgTAlter:
		return "alter"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "success":
		*t = MsgTSuccess
	case "error":
		*t = MsgTError
	case "query":
		*t = MsgTQuery
	case "checkVersion":
		*t = MsgTCheckVersion
	case "commitOrAbort":
		*t = MsgTCommitOrAbort
	case "alter":
		*t = MsgTAlter
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// Graph operations

	MsgTQuery         // Query, mutate or upsert
	MsgTCheckVersion  // Liveness check
	MsgTCommitOrAbort // Finalize a transaction
	MsgTAlter         // Schema change or drop
)
