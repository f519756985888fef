// Package serializer turns driver messages into bytes and back. Both the client
// side pool and the in-memory server use the same IRPCSerializer so any transport
// can carry any encoding.
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//
//   - binarySerializerImpl: Compact big endian format. A flag byte in the header marks
//     which message sections follow, so absent sections cost nothing. Every read is
//     bounds checked and trailing bytes are rejected.
//
//   - jsonSerializerImpl: encoding/json based format, useful for debugging and for the
//     http transport where a readable body helps.
//
// Performance Characteristics:
//
//   - Binary: Smallest payload and fastest round trip, recommended for production use.
//
//   - JSON: Larger payloads (mutation bytes are base64 encoded) but human-readable.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use.
//
// Usage:
//
//	  s := serializer.NewBinarySerializer()
//	  data, err := s.Serialize(*common.NewCheckVersionRequest())
//	  // ... send data ...
//	  var resp common.Message
//	  err = s.Deserialize(receivedData, &resp)
package serializer
