package codec

// StructField is one decoded tuple component.
type StructField struct {
	Name  string
	Value any
}

// Struct is a decoded tuple. Fields keep declaration order; Get looks a
// field up by name.
type Struct []StructField

// Get returns the value of the named field.
func (s Struct) Get(name string) (any, bool) {
	for _, f := range s {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Values returns the field values in declaration order.
func (s Struct) Values() []any {
	out := make([]any, len(s))
	for i, f := range s {
		out[i] = f.Value
	}
	return out
}
