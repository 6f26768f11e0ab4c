package codec

import (
	"fmt"
	"math/big"
)

// Encode ABI-encodes values as the tuple described by types.
func Encode(types []Type, values []any) ([]byte, error) {
	if len(types) != len(values) {
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrTypeMismatch, len(types), len(values))
	}
	return encodeTuple(types, values)
}

// encodeTuple writes static members in place and dynamic members as offsets
// into a tail that follows the head. Offsets are relative to the start of
// the tuple.
func encodeTuple(types []Type, values []any) ([]byte, error) {
	headSize := 0
	for _, t := range types {
		headSize += t.HeadSize()
	}

	head := make([]byte, 0, headSize)
	var tail []byte
	for i, t := range types {
		enc, err := encodeValue(t, values[i])
		if err != nil {
			return nil, fmt.Errorf("value %d (%s): %w", i, t, err)
		}
		if t.IsDynamic() {
			head = append(head, uintWord(uint64(headSize+len(tail)))...)
			tail = append(tail, enc...)
			continue
		}
		head = append(head, enc...)
	}
	return append(head, tail...), nil
}

func encodeValue(t Type, v any) ([]byte, error) {
	switch t.Kind {
	case IntKind, UintKind:
		n, err := toBigInt(v)
		if err != nil {
			return nil, err
		}
		if err := checkRange(t, n); err != nil {
			return nil, err
		}
		return intWord(n), nil

	case BoolKind:
		b, err := toBool(v)
		if err != nil {
			return nil, err
		}
		if b {
			return uintWord(1), nil
		}
		return uintWord(0), nil

	case AddressKind:
		addr, err := ToAddress(v)
		if err != nil {
			return nil, err
		}
		return leftPad(addr.Bytes()), nil

	case FixedBytesKind:
		data, err := toBytes(v)
		if err != nil {
			return nil, err
		}
		if len(data) != t.Size {
			return nil, fmt.Errorf("%w: %s needs %d bytes, got %d", ErrValueOutOfRange, t, t.Size, len(data))
		}
		return rightPad(data), nil

	case BytesKind:
		data, err := toBytes(v)
		if err != nil {
			return nil, err
		}
		return encodeDynamicBytes(data), nil

	case StringKind:
		s, err := toString(v)
		if err != nil {
			return nil, err
		}
		return encodeDynamicBytes([]byte(s)), nil

	case SliceKind:
		list, err := toList(v)
		if err != nil {
			return nil, err
		}
		body, err := encodeTuple(repeat(*t.Elem, len(list)), list)
		if err != nil {
			return nil, err
		}
		return append(uintWord(uint64(len(list))), body...), nil

	case ArrayKind:
		list, err := toList(v)
		if err != nil {
			return nil, err
		}
		if len(list) != t.Size {
			return nil, fmt.Errorf("%w: %s needs %d elements, got %d", ErrValueOutOfRange, t, t.Size, len(list))
		}
		return encodeTuple(repeat(*t.Elem, len(list)), list)

	case TupleKind:
		values, err := toTupleValues(t, v)
		if err != nil {
			return nil, err
		}
		return encodeTuple(fieldTypes(t.Fields), values)

	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrInvalidType, t.Kind)
	}
}

func encodeDynamicBytes(data []byte) []byte {
	out := uintWord(uint64(len(data)))
	return append(out, rightPad(data)...)
}

func uintWord(n uint64) []byte {
	return intWord(new(big.Int).SetUint64(n))
}

// intWord writes n as a 256-bit two's complement big-endian word.
func intWord(n *big.Int) []byte {
	if n.Sign() < 0 {
		n = new(big.Int).Add(twoTo256, n)
	}
	return n.FillBytes(make([]byte, wordSize))
}

func leftPad(data []byte) []byte {
	out := make([]byte, paddedLen(len(data)))
	copy(out[len(out)-len(data):], data)
	return out
}

func rightPad(data []byte) []byte {
	out := make([]byte, paddedLen(len(data)))
	copy(out, data)
	return out
}

func paddedLen(n int) int {
	return (n + wordSize - 1) / wordSize * wordSize
}
