package codec

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	bigOne   = big.NewInt(1)
	twoTo256 = new(big.Int).Lsh(bigOne, 256)
)

func toBigInt(v any) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return nil, fmt.Errorf("%w: nil integer", ErrTypeMismatch)
		}
		return new(big.Int).Set(n), nil
	case big.Int:
		return new(big.Int).Set(&n), nil
	case int:
		return big.NewInt(int64(n)), nil
	case int8:
		return big.NewInt(int64(n)), nil
	case int16:
		return big.NewInt(int64(n)), nil
	case int32:
		return big.NewInt(int64(n)), nil
	case int64:
		return big.NewInt(n), nil
	case uint:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	case string:
		return parseBigInt(n)
	default:
		return nil, fmt.Errorf("%w: %T is not an integer", ErrTypeMismatch, v)
	}
}

func parseBigInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	digits := strings.TrimPrefix(s, "-")
	base := 10
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		digits = digits[2:]
		base = 16
	}
	n, ok := new(big.Int).SetString(digits, base)
	if !ok || digits == "" {
		return nil, fmt.Errorf("%w: %q is not an integer", ErrTypeMismatch, s)
	}
	if neg {
		n.Neg(n)
	}
	return n, nil
}

// integerBounds returns the inclusive range of an intN/uintN type.
func integerBounds(t Type) (min, max *big.Int) {
	if t.Kind == UintKind {
		max = new(big.Int).Lsh(bigOne, uint(t.Size))
		return new(big.Int), max.Sub(max, bigOne)
	}
	half := new(big.Int).Lsh(bigOne, uint(t.Size-1))
	return new(big.Int).Neg(half), new(big.Int).Sub(half, bigOne)
}

func checkRange(t Type, n *big.Int) error {
	min, max := integerBounds(t)
	if n.Cmp(min) < 0 || n.Cmp(max) > 0 {
		return fmt.Errorf("%w: %s does not fit %s", ErrValueOutOfRange, n, t)
	}
	return nil
}

func toBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %T is not a bool", ErrTypeMismatch, v)
	}
	return b, nil
}

// ToAddress normalizes an address given as common.Address, 20 raw bytes or
// hex text in any letter case.
func ToAddress(v any) (common.Address, error) {
	switch a := v.(type) {
	case common.Address:
		return a, nil
	case *common.Address:
		if a == nil {
			return common.Address{}, fmt.Errorf("%w: nil address", ErrTypeMismatch)
		}
		return *a, nil
	case string:
		if !common.IsHexAddress(a) {
			return common.Address{}, fmt.Errorf("%w: invalid address %q", ErrTypeMismatch, a)
		}
		return common.HexToAddress(a), nil
	case []byte:
		if len(a) != common.AddressLength {
			return common.Address{}, fmt.Errorf("%w: address must be %d bytes, got %d", ErrValueOutOfRange, common.AddressLength, len(a))
		}
		return common.BytesToAddress(a), nil
	default:
		return common.Address{}, fmt.Errorf("%w: %T is not an address", ErrTypeMismatch, v)
	}
}

func toBytes(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		data, err := hexutil.Decode(b)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid hex bytes %q: %v", ErrTypeMismatch, b, err)
		}
		return data, nil
	case common.Hash:
		return b.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %T is not a byte sequence", ErrTypeMismatch, v)
	}
}

func toString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %T is not a string", ErrTypeMismatch, v)
	}
	return s, nil
}

func toList(v any) ([]any, error) {
	if list, ok := v.([]any); ok {
		return list, nil
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, fmt.Errorf("%w: %T is not a list", ErrTypeMismatch, v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func toTupleValues(t Type, v any) ([]any, error) {
	switch s := v.(type) {
	case Struct:
		if len(s) != len(t.Fields) {
			return nil, fmt.Errorf("%w: tuple %s has %d fields, got %d", ErrTypeMismatch, t, len(t.Fields), len(s))
		}
		return s.Values(), nil
	case map[string]any:
		out := make([]any, len(t.Fields))
		for i, f := range t.Fields {
			value, ok := s[f.Name]
			if !ok || f.Name == "" {
				return nil, fmt.Errorf("%w: tuple field %q missing", ErrTypeMismatch, f.Name)
			}
			out[i] = value
		}
		if len(s) != len(t.Fields) {
			return nil, fmt.Errorf("%w: tuple %s has %d fields, got %d", ErrTypeMismatch, t, len(t.Fields), len(s))
		}
		return out, nil
	default:
		list, err := toList(v)
		if err != nil {
			return nil, err
		}
		if len(list) != len(t.Fields) {
			return nil, fmt.Errorf("%w: tuple %s has %d fields, got %d", ErrTypeMismatch, t, len(t.Fields), len(list))
		}
		return list, nil
	}
}
