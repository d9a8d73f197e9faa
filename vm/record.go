package vm

import (
	"fmt"
	"math"
	"strconv"
)

// Integer is a dumped integral value.
type Integer int64

// Float is a dumped floating point value.
type Float float64

// Record is a dumped object. Values are Integer, Float, string or a nested
// Record.
type Record map[string]any

// Clone returns a deep copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		if nested, ok := v.(Record); ok {
			v = nested.Clone()
		}
		out[k] = v
	}
	return out
}

// toI64 accepts the forms an integer field can take in a record. Strings
// carry the "%i64" text the C bodies produce.
func toI64(v any) (int64, error) {
	switch x := v.(type) {
	case Integer:
		return int64(x), nil
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("vm: %d overflows int64: %w", x, ErrCertify)
		}
		return int64(x), nil
	case Float:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("vm: %q is not an integer: %w", x, ErrCertify)
		}
		return n, nil
	}
	return 0, fmt.Errorf("vm: %T is not an integer: %w", v, ErrCertify)
}

func toF64(v any) (float64, error) {
	switch x := v.(type) {
	case Float:
		return float64(x), nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case Integer:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, fmt.Errorf("vm: %q is not a number: %w", x, ErrCertify)
		}
		return f, nil
	}
	return 0, fmt.Errorf("vm: %T is not a number: %w", v, ErrCertify)
}

// narrow applies the C cast to the member's declared type.
func narrow(spec string, n int64) Integer {
	switch spec {
	case "int8_t", "char":
		return Integer(int8(n))
	case "int16_t", "short":
		return Integer(int16(n))
	case "int32_t", "int":
		return Integer(int32(n))
	case "uint8_t":
		return Integer(uint8(n))
	case "uint16_t":
		return Integer(uint16(n))
	case "uint32_t":
		return Integer(uint32(n))
	case "bool", "bool_t", "chy_bool_t":
		if n != 0 {
			return 1
		}
		return 0
	}
	return Integer(n)
}

func narrowFloat(spec string, f float64) Float {
	if spec == "float" {
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return Float(f)
		}
		return Float(float32(f))
	}
	return Float(f)
}
