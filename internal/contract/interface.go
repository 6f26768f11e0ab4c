package contract

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"contractbind/internal/codec"
	"contractbind/internal/model"
)

// Interface is the fixed method and event table of a contract. It is built
// once and read concurrently afterwards.
type Interface struct {
	Methods map[string]*Method
	Events  map[string]*Event

	bySelector map[codec.Selector]*Method
	byTopic    map[common.Hash]*Event
}

// NewInterface builds a table from declared descriptors. Overloaded names
// are keyed name, name0, name1 and so on in declaration order.
func NewInterface(methods []*Method, events []*Event) (*Interface, error) {
	iface := newInterface()
	for _, m := range methods {
		if err := iface.addMethod(uniqueKey(m.Name, iface.hasMethod), m); err != nil {
			return nil, err
		}
	}
	for _, e := range events {
		if err := iface.addEvent(uniqueKey(e.Name, iface.hasEvent), e); err != nil {
			return nil, err
		}
	}
	return iface, nil
}

func newInterface() *Interface {
	return &Interface{
		Methods:    make(map[string]*Method),
		Events:     make(map[string]*Event),
		bySelector: make(map[codec.Selector]*Method),
		byTopic:    make(map[common.Hash]*Event),
	}
}

func (i *Interface) hasMethod(key string) bool {
	_, ok := i.Methods[key]
	return ok
}

func (i *Interface) hasEvent(key string) bool {
	_, ok := i.Events[key]
	return ok
}

func (i *Interface) addMethod(key string, m *Method) error {
	if other, ok := i.bySelector[m.Selector]; ok {
		return fmt.Errorf("selector %s of %s collides with %s", m.Selector.Hex(), m.Signature, other.Signature)
	}
	i.Methods[key] = m
	i.bySelector[m.Selector] = m
	return nil
}

func (i *Interface) addEvent(key string, e *Event) error {
	if other, ok := i.byTopic[e.ID]; ok && !e.Anonymous {
		return fmt.Errorf("topic %s of %s collides with %s", e.ID.Hex(), e.Signature, other.Signature)
	}
	i.Events[key] = e
	if !e.Anonymous {
		i.byTopic[e.ID] = e
	}
	return nil
}

func uniqueKey(name string, taken func(string) bool) string {
	if !taken(name) {
		return name
	}
	for n := 0; ; n++ {
		key := name + strconv.Itoa(n)
		if !taken(key) {
			return key
		}
	}
}

// Method looks a method up by its table key.
func (i *Interface) Method(name string) (*Method, error) {
	m, ok := i.Methods[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, name)
	}
	return m, nil
}

// Event looks an event up by its table key.
func (i *Interface) Event(name string) (*Event, error) {
	e, ok := i.Events[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, name)
	}
	return e, nil
}

// MethodBySelector finds the method a calldata prefix refers to.
func (i *Interface) MethodBySelector(sel codec.Selector) (*Method, error) {
	m, ok := i.bySelector[sel]
	if !ok {
		return nil, fmt.Errorf("%w: selector %s", ErrUnknownMethod, sel.Hex())
	}
	return m, nil
}

// EventByTopic finds the non-anonymous event with the given topic.
func (i *Interface) EventByTopic(topic common.Hash) (*Event, error) {
	e, ok := i.byTopic[topic]
	if !ok {
		return nil, fmt.Errorf("%w: topic %s", ErrUnknownEvent, topic.Hex())
	}
	return e, nil
}

// DecodeLog decodes a log with whichever event its first topic names.
func (i *Interface) DecodeLog(log model.LogRecord) (*model.DecodedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("%w: log has no topics", ErrEventMismatch)
	}
	e, err := i.EventByTopic(log.Topics[0])
	if err != nil {
		return nil, err
	}
	return e.DecodeLog(log)
}

// DecodeCalldata finds the method by selector and decodes its arguments.
func (i *Interface) DecodeCalldata(data []byte) (*Method, []any, error) {
	var sel codec.Selector
	if len(data) < len(sel) {
		return nil, nil, fmt.Errorf("%w: calldata shorter than a selector", ErrSelectorMismatch)
	}
	copy(sel[:], data)
	m, err := i.MethodBySelector(sel)
	if err != nil {
		return nil, nil, err
	}
	values, err := m.DecodeCall(data)
	if err != nil {
		return nil, nil, err
	}
	return m, values, nil
}

// MethodNames returns the table keys in sorted order.
func (i *Interface) MethodNames() []string {
	out := make([]string, 0, len(i.Methods))
	for name := range i.Methods {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// EventNames returns the table keys in sorted order.
func (i *Interface) EventNames() []string {
	out := make([]string, 0, len(i.Events))
	for name := range i.Events {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
