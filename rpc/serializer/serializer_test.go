package serializer

import (
	"reflect"
	"testing"

	"github.com/ValentinKolb/dGo/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of messages covering every section of the envelope
func testMessages() []common.Message {
	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// Query request of a running transaction
		{
			MsgType: common.MsgTQuery,
			Request: &common.Request{
				StartTs: 7,
				Query:   `{ q(func: eq(name, $n)) { uid } }`,
				Vars:    map[string]string{"$n": "alice", "$m": "bob"},
				Mutations: []*common.Mutation{
					{
						SetNquads: []byte(`_:a <name> "alice" .`),
						Set: []*common.NQuad{
							{Subject: "_:a", Predicate: "age", ObjectValue: "30"},
							{Subject: "_:a", Predicate: "name", ObjectValue: "Alice", Lang: "en"},
						},
						Cond:      "@if(eq(len(u), 0))",
						CommitNow: true,
					},
					{DelNquads: []byte(`<0x1> * * .`)},
				},
				Hash:       "h1",
				ReadOnly:   true,
				BestEffort: true,
			},
		},

		// Query response with every optional part
		{
			MsgType: common.MsgTQuery,
			Response: &common.Response{
				Json: []byte(`{"q":[{"uid":"0x1"}]}`),
				Txn: &common.TxnContext{
					StartTs: 7,
					Keys:    []string{"a", "b"},
					Preds:   []string{"name"},
					Hash:    "h2",
				},
				Latency: &common.Latency{ParsingNs: 1, ProcessingNs: 2, EncodingNs: 3, AssignTimestampNs: 4, TotalNs: 10},
				Metrics: &common.Metrics{NumUids: map[string]uint64{"q": 1}},
				Uids:    map[string]string{"a": "0x1"},
			},
		},

		// Finalize request
		{
			MsgType: common.MsgTCommitOrAbort,
			Txn:     &common.TxnContext{StartTs: 5, CommitTs: 9, Aborted: true},
		},

		// Version response
		{
			MsgType: common.MsgTCheckVersion,
			Version: &common.Version{Tag: "v1.2.3"},
		},

		// Alter request and response
		{
			MsgType:   common.MsgTAlter,
			Operation: &common.Operation{Schema: "name: string @index(exact) .", DropOp: common.DropOpAttr, DropValue: "age", RunInBackground: true},
		},
		{
			MsgType: common.MsgTAlter,
			Payload: &common.Payload{Data: []byte("ok")},
		},

		// Error response
		{
			MsgType: common.MsgTError,
			Code:    common.StatusAborted,
			Err:     "transaction has been aborted",
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestDeserializeResetsMessage tests that a reused message does not keep stale sections
func TestDeserializeResetsMessage(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			data, err := serializer.Serialize(common.Message{MsgType: common.MsgTCheckVersion})
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			result := common.Message{
				MsgType: common.MsgTQuery,
				Txn:     &common.TxnContext{StartTs: 3},
				Err:     "stale",
			}
			if err := serializer.Deserialize(data, &result); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			if result.Txn != nil || result.Err != "" || result.MsgType != common.MsgTCheckVersion {
				t.Errorf("stale fields survived: %+v", result)
			}
		})
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Too short header",
			data:        []byte{1, 0}, // No status code byte
			expectError: true,
		},
		{
			name:        "Valid header only",
			data:        []byte{1, 0, 0},
			expectError: false,
		},
		{
			name:        "Invalid length for version tag",
			data:        []byte{byte(common.MsgTCheckVersion), hasVersion, 0, 0, 0, 0, 5, 'a', 'b', 'c'},
			expectError: true,
		},
		{
			name:        "Truncated transaction context",
			data:        []byte{byte(common.MsgTCommitOrAbort), hasTxn, 0, 0, 0, 0, 0, 0, 0, 0, 7},
			expectError: true,
		},
		{
			name:        "Trailing bytes",
			data:        []byte{1, 0, 0, 42},
			expectError: true,
		},
		{
			name:        "Huge list length",
			data: []byte{byte(common.MsgTCommitOrAbort), hasTxn, 0,
				0, 0, 0, 0, 0, 0, 0, 1, // start ts
				0, 0, 0, 0, 0, 0, 0, 0, // commit ts
				0,                      // aborted
				0xff, 0xff, 0xff, 0xff, // number of keys
			},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}
