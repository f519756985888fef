package serializer

import (
	"encoding/json"

	"github.com/ValentinKolb/dGo/rpc/common"
)

// NewJSONSerializer creates a new serializer using json encoding.
// Byte payloads (query results, nquads) are base64 encoded by encoding/json.
func NewJSONSerializer() IRPCSerializer {
	return jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IRPCSerializer interface using json encoding
type jsonSerializerImpl struct{}

func (jsonSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	*msg = common.Message{}
	return json.Unmarshal(b, msg)
}
