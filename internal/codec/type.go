package codec

import (
	"fmt"
	"strings"
)

// wordSize is the width of one ABI slot in bytes.
const wordSize = 32

// Kind identifies the variant of a Type.
type Kind uint8

const (
	IntKind Kind = iota + 1
	UintKind
	BoolKind
	AddressKind
	FixedBytesKind
	BytesKind
	StringKind
	SliceKind
	ArrayKind
	TupleKind
)

func (k Kind) String() string {
	switch k {
	case IntKind:
		return "int"
	case UintKind:
		return "uint"
	case BoolKind:
		return "bool"
	case AddressKind:
		return "address"
	case FixedBytesKind:
		return "fixed-bytes"
	case BytesKind:
		return "bytes"
	case StringKind:
		return "string"
	case SliceKind:
		return "slice"
	case ArrayKind:
		return "array"
	case TupleKind:
		return "tuple"
	default:
		return "unknown"
	}
}

// Field is a named tuple component.
type Field struct {
	Name string
	Type Type
}

// Type describes a contract parameter or return type.
//
// Size holds the bit width for integers, the byte count for fixed bytes and
// the element count for fixed arrays. Elem is set for slices and arrays,
// Fields for tuples. Types are values and are never mutated after
// construction.
type Type struct {
	Kind   Kind
	Size   int
	Elem   *Type
	Fields []Field
}

func Int(bits int) Type  { return Type{Kind: IntKind, Size: bits} }
func Uint(bits int) Type { return Type{Kind: UintKind, Size: bits} }
func Bool() Type         { return Type{Kind: BoolKind} }
func Address() Type      { return Type{Kind: AddressKind} }
func Bytes() Type        { return Type{Kind: BytesKind} }
func String() Type       { return Type{Kind: StringKind} }

// FixedBytes returns the bytesN type.
func FixedBytes(n int) Type { return Type{Kind: FixedBytesKind, Size: n} }

// SliceOf returns the dynamic array type T[].
func SliceOf(elem Type) Type {
	e := elem
	return Type{Kind: SliceKind, Elem: &e}
}

// MaxArrayLength bounds a single fixed array dimension, and MaxStaticSize
// bounds the in-place encoding of any fixed array.
const (
	MaxArrayLength = 1 << 16
	MaxStaticSize  = 1 << 24
)

// ArrayOf returns the fixed array type T[n].
func ArrayOf(elem Type, n int) Type {
	e := elem
	return Type{Kind: ArrayKind, Size: n, Elem: &e}
}

// TupleOf returns a tuple type with the given ordered fields.
func TupleOf(fields ...Field) Type {
	out := make([]Field, len(fields))
	copy(out, fields)
	return Type{Kind: TupleKind, Fields: out}
}

// Validate checks that the descriptor is well formed.
func (t Type) Validate() error {
	switch t.Kind {
	case IntKind, UintKind:
		if t.Size <= 0 || t.Size > 256 || t.Size%8 != 0 {
			return fmt.Errorf("%w: invalid integer width %d", ErrInvalidType, t.Size)
		}
	case BoolKind, AddressKind, BytesKind, StringKind:
	case FixedBytesKind:
		if t.Size <= 0 || t.Size > wordSize {
			return fmt.Errorf("%w: invalid fixed bytes size %d", ErrInvalidType, t.Size)
		}
	case SliceKind:
		if t.Elem == nil {
			return fmt.Errorf("%w: slice without element type", ErrInvalidType)
		}
		return t.Elem.Validate()
	case ArrayKind:
		if t.Elem == nil {
			return fmt.Errorf("%w: array without element type", ErrInvalidType)
		}
		if t.Size < 0 || t.Size > MaxArrayLength {
			return fmt.Errorf("%w: invalid array length %d", ErrInvalidType, t.Size)
		}
		if err := t.Elem.Validate(); err != nil {
			return err
		}
		if !t.Elem.IsDynamic() && t.Elem.HeadSize() > MaxStaticSize/max(t.Size, 1) {
			return fmt.Errorf("%w: array %s too large", ErrInvalidType, t)
		}
	case TupleKind:
		for _, f := range t.Fields {
			if err := f.Type.Validate(); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidType, t.Kind)
	}
	return nil
}

// IsDynamic reports whether values of this type are referenced by offset
// rather than written in place.
func (t Type) IsDynamic() bool {
	switch t.Kind {
	case BytesKind, StringKind, SliceKind:
		return true
	case ArrayKind:
		return t.Elem.IsDynamic()
	case TupleKind:
		for _, f := range t.Fields {
			if f.Type.IsDynamic() {
				return true
			}
		}
	}
	return false
}

// HeadSize is the number of bytes the type occupies in the head region of
// an enclosing tuple.
func (t Type) HeadSize() int {
	if t.IsDynamic() {
		return wordSize
	}
	switch t.Kind {
	case ArrayKind:
		return t.Size * t.Elem.HeadSize()
	case TupleKind:
		size := 0
		for _, f := range t.Fields {
			size += f.Type.HeadSize()
		}
		return size
	default:
		return wordSize
	}
}

// String returns the canonical wire-type string used in signatures.
func (t Type) String() string {
	switch t.Kind {
	case IntKind:
		return fmt.Sprintf("int%d", t.Size)
	case UintKind:
		return fmt.Sprintf("uint%d", t.Size)
	case BoolKind:
		return "bool"
	case AddressKind:
		return "address"
	case FixedBytesKind:
		return fmt.Sprintf("bytes%d", t.Size)
	case BytesKind:
		return "bytes"
	case StringKind:
		return "string"
	case SliceKind:
		return t.Elem.String() + "[]"
	case ArrayKind:
		return fmt.Sprintf("%s[%d]", t.Elem.String(), t.Size)
	case TupleKind:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = f.Type.String()
		}
		return "(" + strings.Join(parts, ",") + ")"
	default:
		return "invalid"
	}
}

// Equal reports whether two descriptors have the same wire layout. Tuple
// field names are ignored.
func (t Type) Equal(other Type) bool {
	return t.String() == other.String()
}

func repeat(t Type, n int) []Type {
	out := make([]Type, n)
	for i := range out {
		out[i] = t
	}
	return out
}

func fieldTypes(fields []Field) []Type {
	out := make([]Type, len(fields))
	for i, f := range fields {
		out[i] = f.Type
	}
	return out
}
