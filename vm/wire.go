package vm

import (
	"fmt"
	"math"

	"github.com/fxamacker/cbor/v2"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalRecord serializes a Record to canonical CBOR. Equal records give
// equal bytes.
func MarshalRecord(r Record) ([]byte, error) {
	return cborEncMode.Marshal(r)
}

// UnmarshalRecord deserializes a Record and restores the Integer and Float
// value types.
func UnmarshalRecord(data []byte) (Record, error) {
	var raw map[string]any
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("vm: unmarshal record: %w", err)
	}
	return normalizeRecord(raw)
}

func normalizeRecord(raw map[string]any) (Record, error) {
	out := make(Record, len(raw))
	for k, v := range raw {
		nv, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("vm: unmarshal record: field %s: %w", k, err)
		}
		out[k] = nv
	}
	return out, nil
}

func normalize(v any) (any, error) {
	switch x := v.(type) {
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64: %w", x, ErrCertify)
		}
		return Integer(x), nil
	case int64:
		return Integer(x), nil
	case float64:
		return Float(x), nil
	case float32:
		return Float(x), nil
	case string:
		return x, nil
	case map[string]any:
		return normalizeRecord(x)
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, val := range x {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string key %v", k)
			}
			m[ks] = val
		}
		return normalizeRecord(m)
	}
	return nil, fmt.Errorf("unsupported value %T", v)
}
