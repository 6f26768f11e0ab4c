package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ParseValue converts command line text into a value Encode accepts for t.
// Arrays and tuples are given as JSON; tuples may be JSON arrays or objects
// keyed by field name.
func ParseValue(t Type, s string) (any, error) {
	switch t.Kind {
	case SliceKind, ArrayKind, TupleKind:
		dec := json.NewDecoder(strings.NewReader(s))
		dec.UseNumber()
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %s value %q: %v", ErrTypeMismatch, t, s, err)
		}
		return fromJSON(t, raw)
	default:
		return parseScalar(t, s)
	}
}

func parseScalar(t Type, s string) (any, error) {
	s = strings.TrimSpace(s)
	switch t.Kind {
	case IntKind, UintKind:
		n, err := parseBigInt(s)
		if err != nil {
			return nil, err
		}
		if err := checkRange(t, n); err != nil {
			return nil, err
		}
		return n, nil
	case BoolKind:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a bool", ErrTypeMismatch, s)
		}
		return b, nil
	case AddressKind:
		return ToAddress(s)
	case FixedBytesKind, BytesKind:
		return toBytes(s)
	case StringKind:
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %s is not a scalar", ErrTypeMismatch, t)
	}
}

func fromJSON(t Type, raw any) (any, error) {
	switch t.Kind {
	case SliceKind, ArrayKind:
		items, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects a JSON array", ErrTypeMismatch, t)
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := fromJSON(*t.Elem, item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	case TupleKind:
		out := make(Struct, len(t.Fields))
		switch obj := raw.(type) {
		case []any:
			if len(obj) != len(t.Fields) {
				return nil, fmt.Errorf("%w: tuple %s has %d fields, got %d", ErrTypeMismatch, t, len(t.Fields), len(obj))
			}
			for i, f := range t.Fields {
				v, err := fromJSON(f.Type, obj[i])
				if err != nil {
					return nil, fmt.Errorf("field %d: %w", i, err)
				}
				out[i] = StructField{Name: f.Name, Value: v}
			}
		case map[string]any:
			for i, f := range t.Fields {
				item, ok := obj[f.Name]
				if !ok {
					return nil, fmt.Errorf("%w: tuple field %q missing", ErrTypeMismatch, f.Name)
				}
				v, err := fromJSON(f.Type, item)
				if err != nil {
					return nil, fmt.Errorf("field %s: %w", f.Name, err)
				}
				out[i] = StructField{Name: f.Name, Value: v}
			}
		default:
			return nil, fmt.Errorf("%w: tuple %s expects a JSON array or object", ErrTypeMismatch, t)
		}
		return out, nil
	default:
		switch v := raw.(type) {
		case json.Number:
			return parseScalar(t, v.String())
		case string:
			return parseScalar(t, v)
		case bool:
			if t.Kind != BoolKind {
				return nil, fmt.Errorf("%w: bool given for %s", ErrTypeMismatch, t)
			}
			return v, nil
		default:
			return nil, fmt.Errorf("%w: %T given for %s", ErrTypeMismatch, raw, t)
		}
	}
}

// JSONValue renders a decoded value in a JSON friendly form: integers as
// decimal strings, addresses and bytes as lower-case hex, tuples as objects
// that keep field order.
func JSONValue(v any) any {
	switch x := v.(type) {
	case *big.Int:
		if x == nil {
			return nil
		}
		return x.String()
	case common.Address:
		return strings.ToLower(x.Hex())
	case common.Hash:
		return x.Hex()
	case []byte:
		return hexutil.Encode(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = JSONValue(item)
		}
		return out
	case Struct:
		out := make(OrderedObject, len(x))
		for i, f := range x {
			out[i] = StructField{Name: f.Name, Value: JSONValue(f.Value)}
		}
		return out
	default:
		return v
	}
}

// OrderedObject marshals to a JSON object whose keys keep insertion order.
type OrderedObject []StructField

func (o OrderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		name := f.Name
		if name == "" {
			name = strconv.Itoa(i)
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
