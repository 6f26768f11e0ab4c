package contract

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"contractbind/internal/codec"
)

// ParseJSON builds an Interface from a compiler JSON ABI. Table keys follow
// go-ethereum's disambiguation of overloaded names; signatures use the raw
// name.
func ParseJSON(r io.Reader) (*Interface, error) {
	parsed, err := abi.JSON(r)
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}

	iface := newInterface()
	for _, key := range sortedKeys(parsed.Methods) {
		gm := parsed.Methods[key]
		inputs, err := fromGethArguments(gm.Inputs)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", key, err)
		}
		outputs, err := fromGethArguments(gm.Outputs)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", key, err)
		}
		m, err := NewMethod(gm.RawName, mutabilityOf(gm), inputs, outputs)
		if err != nil {
			return nil, err
		}
		if err := iface.addMethod(key, m); err != nil {
			return nil, err
		}
	}
	for _, key := range sortedKeys(parsed.Events) {
		ge := parsed.Events[key]
		inputs, err := fromGethArguments(ge.Inputs)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", key, err)
		}
		e, err := NewEvent(ge.RawName, ge.Anonymous, inputs)
		if err != nil {
			return nil, err
		}
		if err := iface.addEvent(key, e); err != nil {
			return nil, err
		}
	}
	return iface, nil
}

// LoadJSONFile reads a JSON ABI file.
func LoadJSONFile(path string) (*Interface, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open abi: %w", err)
	}
	defer f.Close()
	return ParseJSON(f)
}

// mutabilityOf falls back to the legacy constant and payable flags.
func mutabilityOf(m abi.Method) Mutability {
	switch {
	case m.StateMutability != "":
		return Mutability(m.StateMutability)
	case m.Constant:
		return View
	case m.Payable:
		return Payable
	default:
		return NonPayable
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func fromGethArguments(args abi.Arguments) (codec.Arguments, error) {
	out := make(codec.Arguments, len(args))
	for i, arg := range args {
		t, err := fromGethType(arg.Type)
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s): %w", i, arg.Name, err)
		}
		out[i] = codec.Argument{Name: arg.Name, Type: t, Indexed: arg.Indexed}
	}
	return out, nil
}

// fromGethType converts a parsed go-ethereum type. Struct names are dropped;
// only the component layout survives.
func fromGethType(t abi.Type) (codec.Type, error) {
	switch t.T {
	case abi.IntTy:
		return codec.Int(t.Size), nil
	case abi.UintTy:
		return codec.Uint(t.Size), nil
	case abi.BoolTy:
		return codec.Bool(), nil
	case abi.StringTy:
		return codec.String(), nil
	case abi.BytesTy:
		return codec.Bytes(), nil
	case abi.FixedBytesTy:
		return codec.FixedBytes(t.Size), nil
	case abi.HashTy:
		return codec.FixedBytes(32), nil
	case abi.AddressTy:
		return codec.Address(), nil
	case abi.FunctionTy:
		return codec.FixedBytes(24), nil
	case abi.SliceTy, abi.ArrayTy:
		if t.Elem == nil {
			return codec.Type{}, fmt.Errorf("%w: %s without element", codec.ErrInvalidType, t.String())
		}
		elem, err := fromGethType(*t.Elem)
		if err != nil {
			return codec.Type{}, err
		}
		if t.T == abi.SliceTy {
			return codec.SliceOf(elem), nil
		}
		arr := codec.ArrayOf(elem, t.Size)
		if err := arr.Validate(); err != nil {
			return codec.Type{}, err
		}
		return arr, nil
	case abi.TupleTy:
		fields := make([]codec.Field, len(t.TupleElems))
		for i, elem := range t.TupleElems {
			ft, err := fromGethType(*elem)
			if err != nil {
				return codec.Type{}, err
			}
			name := ""
			if i < len(t.TupleRawNames) {
				name = t.TupleRawNames[i]
			}
			fields[i] = codec.Field{Name: name, Type: ft}
		}
		return codec.TupleOf(fields...), nil
	default:
		return codec.Type{}, fmt.Errorf("%w: unsupported abi type %s", codec.ErrInvalidType, t.String())
	}
}
