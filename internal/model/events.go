package model

// DecodedEvent is a log decoded against an event descriptor. Args is keyed
// by argument name; Order keeps declaration order.
type DecodedEvent struct {
	Event     string         `json:"event"`
	Signature string         `json:"signature"`
	Args      map[string]any `json:"args"`
	Order     []string       `json:"order"`
	Log       LogRecord      `json:"log"`
}

// Arg returns the named argument.
func (e *DecodedEvent) Arg(name string) (any, bool) {
	v, ok := e.Args[name]
	return v, ok
}

// Values returns argument values in declaration order.
func (e *DecodedEvent) Values() []any {
	out := make([]any, len(e.Order))
	for i, name := range e.Order {
		out[i] = e.Args[name]
	}
	return out
}
