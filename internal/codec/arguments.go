package codec

import "fmt"

// Argument is a named, typed parameter. Indexed only applies to event
// parameters.
type Argument struct {
	Name    string
	Type    Type
	Indexed bool
}

// Arguments is an ordered parameter list.
type Arguments []Argument

// Types returns the argument types in order.
func (a Arguments) Types() []Type {
	out := make([]Type, len(a))
	for i, arg := range a {
		out[i] = arg.Type
	}
	return out
}

// Names returns argument names, substituting argN for unnamed positions.
func (a Arguments) Names() []string {
	out := make([]string, len(a))
	for i, arg := range a {
		out[i] = arg.Name
		if out[i] == "" {
			out[i] = fmt.Sprintf("arg%d", i)
		}
	}
	return out
}

func (a Arguments) Encode(values ...any) ([]byte, error) {
	return Encode(a.Types(), values)
}

func (a Arguments) Decode(data []byte) ([]any, error) {
	return Decode(a.Types(), data)
}

// Indexed returns the arguments stored in log topics.
func (a Arguments) Indexed() Arguments {
	var out Arguments
	for _, arg := range a {
		if arg.Indexed {
			out = append(out, arg)
		}
	}
	return out
}

// NonIndexed returns the arguments stored in log data.
func (a Arguments) NonIndexed() Arguments {
	var out Arguments
	for _, arg := range a {
		if !arg.Indexed {
			out = append(out, arg)
		}
	}
	return out
}

// Validate checks every argument type.
func (a Arguments) Validate() error {
	for i, arg := range a {
		if err := arg.Type.Validate(); err != nil {
			return fmt.Errorf("argument %d (%s): %w", i, arg.Name, err)
		}
	}
	return nil
}
