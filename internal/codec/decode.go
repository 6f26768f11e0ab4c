package codec

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Decode reverses Encode. Integers decode to *big.Int whatever their width.
// An empty type list accepts any input.
func Decode(types []Type, data []byte) ([]any, error) {
	if len(types) == 0 {
		return nil, nil
	}
	return decodeTuple(types, data)
}

// decodeTuple reads the head words of a tuple starting at data[0] and
// follows dynamic offsets, which are relative to that start.
func decodeTuple(types []Type, data []byte) ([]any, error) {
	out := make([]any, len(types))
	pos := 0
	for i, t := range types {
		if t.IsDynamic() {
			offset, err := readOffset(data, pos)
			if err != nil {
				return nil, fmt.Errorf("value %d (%s): %w", i, t, err)
			}
			value, err := decodeValue(t, data[offset:])
			if err != nil {
				return nil, fmt.Errorf("value %d (%s): %w", i, t, err)
			}
			out[i] = value
			pos += wordSize
			continue
		}

		size := t.HeadSize()
		if pos+size > len(data) {
			return nil, fmt.Errorf("value %d (%s): %w: need %d bytes at %d, have %d", i, t, ErrMalformedEncoding, size, pos, len(data))
		}
		value, err := decodeValue(t, data[pos:pos+size])
		if err != nil {
			return nil, fmt.Errorf("value %d (%s): %w", i, t, err)
		}
		out[i] = value
		pos += size
	}
	return out, nil
}

func decodeValue(t Type, data []byte) (any, error) {
	switch t.Kind {
	case IntKind, UintKind:
		word, err := readWord(data, 0)
		if err != nil {
			return nil, err
		}
		return decodeInteger(t, word)

	case BoolKind:
		word, err := readWord(data, 0)
		if err != nil {
			return nil, err
		}
		n := new(big.Int).SetBytes(word)
		if n.Sign() != 0 && n.Cmp(bigOne) != 0 {
			return nil, fmt.Errorf("%w: invalid bool word %x", ErrMalformedEncoding, word)
		}
		return n.Sign() != 0, nil

	case AddressKind:
		word, err := readWord(data, 0)
		if err != nil {
			return nil, err
		}
		return common.BytesToAddress(word[wordSize-common.AddressLength:]), nil

	case FixedBytesKind:
		word, err := readWord(data, 0)
		if err != nil {
			return nil, err
		}
		out := make([]byte, t.Size)
		copy(out, word[:t.Size])
		return out, nil

	case BytesKind:
		return readDynamicBytes(data)

	case StringKind:
		raw, err := readDynamicBytes(data)
		if err != nil {
			return nil, err
		}
		return string(raw), nil

	case SliceKind:
		n, err := readLength(data, 0)
		if err != nil {
			return nil, err
		}
		body := data[wordSize:]
		if elem := t.Elem.HeadSize(); elem > 0 && n > len(body)/elem {
			return nil, fmt.Errorf("%w: %d elements of %s exceed %d bytes", ErrMalformedEncoding, n, t.Elem, len(body))
		}
		return decodeList(repeat(*t.Elem, n), body)

	case ArrayKind:
		return decodeList(repeat(*t.Elem, t.Size), data)

	case TupleKind:
		values, err := decodeTuple(fieldTypes(t.Fields), data)
		if err != nil {
			return nil, err
		}
		out := make(Struct, len(values))
		for i, f := range t.Fields {
			out[i] = StructField{Name: f.Name, Value: values[i]}
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrInvalidType, t.Kind)
	}
}

func decodeList(types []Type, data []byte) ([]any, error) {
	if len(types) == 0 {
		return []any{}, nil
	}
	return decodeTuple(types, data)
}

// DecodeWord decodes a single static value type from one 32-byte word.
func DecodeWord(t Type, word []byte) (any, error) {
	switch t.Kind {
	case IntKind, UintKind, BoolKind, AddressKind, FixedBytesKind:
		if len(word) != wordSize {
			return nil, fmt.Errorf("%w: word has %d bytes", ErrMalformedEncoding, len(word))
		}
		return decodeValue(t, word)
	default:
		return nil, fmt.Errorf("%w: %s is not a value type", ErrTypeMismatch, t)
	}
}

func decodeInteger(t Type, word []byte) (*big.Int, error) {
	n := new(big.Int).SetBytes(word)
	if t.Kind == IntKind && word[0]&0x80 != 0 {
		n.Sub(n, twoTo256)
	}
	if err := checkRange(t, n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
	}
	return n, nil
}

func readWord(data []byte, pos int) ([]byte, error) {
	if pos < 0 || pos+wordSize > len(data) {
		return nil, fmt.Errorf("%w: need word at %d, have %d bytes", ErrMalformedEncoding, pos, len(data))
	}
	return data[pos : pos+wordSize], nil
}

// readLength reads a word that must hold a small non-negative integer.
func readLength(data []byte, pos int) (int, error) {
	word, err := readWord(data, pos)
	if err != nil {
		return 0, err
	}
	n := new(big.Int).SetBytes(word)
	if !n.IsInt64() || n.Int64() > int64(len(data)) {
		return 0, fmt.Errorf("%w: length %s exceeds %d bytes", ErrMalformedEncoding, n, len(data))
	}
	return int(n.Int64()), nil
}

func readOffset(data []byte, pos int) (int, error) {
	offset, err := readLength(data, pos)
	if err != nil {
		return 0, err
	}
	if offset > len(data) {
		return 0, fmt.Errorf("%w: offset %d beyond %d bytes", ErrMalformedEncoding, offset, len(data))
	}
	return offset, nil
}

func readDynamicBytes(data []byte) ([]byte, error) {
	n, err := readLength(data, 0)
	if err != nil {
		return nil, err
	}
	if wordSize+n > len(data) {
		return nil, fmt.Errorf("%w: %d bytes declared, %d available", ErrMalformedEncoding, n, len(data)-wordSize)
	}
	out := make([]byte, n)
	copy(out, data[wordSize:wordSize+n])
	return out, nil
}
