package grpc

import (
	"fmt"
)

// codecName names the raw codec. It is forced on the channel and the server, never registered globally.
const codecName = "dgo-raw"

// rawCodec passes already serialized messages through unchanged.
// Values are either []byte or *[]byte.
type rawCodec struct{}

func (rawCodec) Marshal(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case *[]byte:
		if b == nil {
			return nil, nil
		}
		return *b, nil
	default:
		return nil, fmt.Errorf("raw codec cannot marshal %T", v)
	}
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	b, ok := v.(*[]byte)
	if !ok {
		return fmt.Errorf("raw codec cannot unmarshal into %T", v)
	}
	// the buffer may be reused by grpc after the call returns
	*b = append((*b)[:0], data...)
	return nil
}

func (rawCodec) Name() string {
	return codecName
}
