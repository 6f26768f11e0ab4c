package codec

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseType parses a canonical type string such as "uint256",
// "bytes32[2]" or "(uint256,bytes)[]". The aliases "uint", "int" and
// "byte" resolve to uint256, int256 and bytes1. Tuple fields parsed this
// way are unnamed.
func ParseType(s string) (Type, error) {
	p := typeParser{input: strings.TrimSpace(s)}
	t, err := p.parse()
	if err != nil {
		return Type{}, err
	}
	if p.pos != len(p.input) {
		return Type{}, fmt.Errorf("%w: unexpected %q in %q", ErrInvalidType, p.input[p.pos:], s)
	}
	if err := t.Validate(); err != nil {
		return Type{}, err
	}
	return t, nil
}

// MustParseType is ParseType for static declarations; it panics on error.
func MustParseType(s string) Type {
	t, err := ParseType(s)
	if err != nil {
		panic(err)
	}
	return t
}

type typeParser struct {
	input string
	pos   int
}

func (p *typeParser) parse() (Type, error) {
	var base Type
	if p.pos < len(p.input) && p.input[p.pos] == '(' {
		tuple, err := p.parseTuple()
		if err != nil {
			return Type{}, err
		}
		base = tuple
	} else {
		start := p.pos
		for p.pos < len(p.input) && isTypeNameByte(p.input[p.pos]) {
			p.pos++
		}
		name := p.input[start:p.pos]
		elem, err := elementaryType(name)
		if err != nil {
			return Type{}, err
		}
		base = elem
	}
	return p.parseSuffixes(base)
}

func (p *typeParser) parseTuple() (Type, error) {
	p.pos++ // '('
	var fields []Field
	if p.pos < len(p.input) && p.input[p.pos] == ')' {
		p.pos++
		return TupleOf(), nil
	}
	for {
		t, err := p.parse()
		if err != nil {
			return Type{}, err
		}
		fields = append(fields, Field{Type: t})
		if p.pos >= len(p.input) {
			return Type{}, fmt.Errorf("%w: unterminated tuple in %q", ErrInvalidType, p.input)
		}
		switch p.input[p.pos] {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return TupleOf(fields...), nil
		default:
			return Type{}, fmt.Errorf("%w: unexpected %q in %q", ErrInvalidType, p.input[p.pos], p.input)
		}
	}
}

func (p *typeParser) parseSuffixes(base Type) (Type, error) {
	for p.pos < len(p.input) && p.input[p.pos] == '[' {
		end := strings.IndexByte(p.input[p.pos:], ']')
		if end < 0 {
			return Type{}, fmt.Errorf("%w: unterminated array in %q", ErrInvalidType, p.input)
		}
		inner := p.input[p.pos+1 : p.pos+end]
		p.pos += end + 1
		if inner == "" {
			base = SliceOf(base)
			continue
		}
		n, err := strconv.Atoi(inner)
		if err != nil || n < 0 || n > MaxArrayLength {
			return Type{}, fmt.Errorf("%w: invalid array length %q", ErrInvalidType, inner)
		}
		base = ArrayOf(base, n)
	}
	return base, nil
}

func elementaryType(name string) (Type, error) {
	switch name {
	case "bool":
		return Bool(), nil
	case "address":
		return Address(), nil
	case "string":
		return String(), nil
	case "bytes":
		return Bytes(), nil
	case "byte":
		return FixedBytes(1), nil
	case "uint":
		return Uint(256), nil
	case "int":
		return Int(256), nil
	}
	switch {
	case strings.HasPrefix(name, "uint"):
		bits, err := strconv.Atoi(name[len("uint"):])
		if err != nil {
			return Type{}, fmt.Errorf("%w: %q", ErrInvalidType, name)
		}
		return Uint(bits), nil
	case strings.HasPrefix(name, "int"):
		bits, err := strconv.Atoi(name[len("int"):])
		if err != nil {
			return Type{}, fmt.Errorf("%w: %q", ErrInvalidType, name)
		}
		return Int(bits), nil
	case strings.HasPrefix(name, "bytes"):
		n, err := strconv.Atoi(name[len("bytes"):])
		if err != nil {
			return Type{}, fmt.Errorf("%w: %q", ErrInvalidType, name)
		}
		return FixedBytes(n), nil
	}
	return Type{}, fmt.Errorf("%w: unsupported type %q", ErrInvalidType, name)
}

func isTypeNameByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
