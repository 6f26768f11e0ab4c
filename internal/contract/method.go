package contract

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"contractbind/internal/codec"
)

// Mutability mirrors the stateMutability field of a compiler ABI.
type Mutability string

const (
	Pure       Mutability = "pure"
	View       Mutability = "view"
	NonPayable Mutability = "nonpayable"
	Payable    Mutability = "payable"
)

// Method describes a contract function.
type Method struct {
	Name       string
	Signature  string
	Selector   codec.Selector
	Inputs     codec.Arguments
	Outputs    codec.Arguments
	Mutability Mutability
}

// NewMethod builds a method descriptor and its selector.
func NewMethod(name string, mutability Mutability, inputs, outputs codec.Arguments) (*Method, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: method name is empty", codec.ErrInvalidType)
	}
	if err := inputs.Validate(); err != nil {
		return nil, fmt.Errorf("method %s inputs: %w", name, err)
	}
	if err := outputs.Validate(); err != nil {
		return nil, fmt.Errorf("method %s outputs: %w", name, err)
	}
	if mutability == "" {
		mutability = NonPayable
	}
	sig := codec.Signature(name, inputs.Types())
	return &Method{
		Name:       name,
		Signature:  sig,
		Selector:   codec.SelectorOf(sig),
		Inputs:     inputs,
		Outputs:    outputs,
		Mutability: mutability,
	}, nil
}

// IsConstant reports whether the method does not modify state.
func (m *Method) IsConstant() bool {
	return m.Mutability == Pure || m.Mutability == View
}

// EncodeCall returns selector || encode(inputs, args).
func (m *Method) EncodeCall(args ...any) ([]byte, error) {
	body, err := m.Inputs.Encode(args...)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Signature, err)
	}
	out := make([]byte, 0, len(m.Selector)+len(body))
	out = append(out, m.Selector[:]...)
	return append(out, body...), nil
}

// DecodeCall checks the selector and decodes the call arguments.
func (m *Method) DecodeCall(data []byte) ([]any, error) {
	if len(data) < len(m.Selector) || !bytes.Equal(data[:len(m.Selector)], m.Selector[:]) {
		prefix := data
		if len(prefix) > len(m.Selector) {
			prefix = prefix[:len(m.Selector)]
		}
		return nil, fmt.Errorf("%w: %s expects %s, got %s", ErrSelectorMismatch, m.Signature, m.Selector.Hex(), hexutil.Encode(prefix))
	}
	values, err := m.Inputs.Decode(data[len(m.Selector):])
	if err != nil {
		return nil, fmt.Errorf("decode %s arguments: %w", m.Signature, err)
	}
	return values, nil
}

// DecodeReturn decodes output bytes. A method without outputs accepts any
// bytes and yields no values.
func (m *Method) DecodeReturn(data []byte) ([]any, error) {
	if len(m.Outputs) == 0 {
		return nil, nil
	}
	values, err := m.Outputs.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s return: %w", m.Signature, err)
	}
	return values, nil
}

// DecodeReturnStruct is DecodeReturn with values keyed by output name.
func (m *Method) DecodeReturnStruct(data []byte) (codec.Struct, error) {
	values, err := m.DecodeReturn(data)
	if err != nil {
		return nil, err
	}
	names := m.Outputs.Names()
	out := make(codec.Struct, len(values))
	for i, v := range values {
		out[i] = codec.StructField{Name: names[i], Value: v}
	}
	return out, nil
}
