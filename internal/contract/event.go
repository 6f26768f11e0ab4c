package contract

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"contractbind/internal/codec"
	"contractbind/internal/model"
)

// IndexFilter constrains indexed event arguments by exact value, keyed by
// argument name. An empty filter matches every log of the event.
type IndexFilter map[string]any

// Event describes a contract event.
type Event struct {
	Name      string
	Signature string
	ID        common.Hash
	Inputs    codec.Arguments
	Anonymous bool
}

// NewEvent builds an event descriptor and its topic.
func NewEvent(name string, anonymous bool, inputs codec.Arguments) (*Event, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: event name is empty", codec.ErrInvalidType)
	}
	if err := inputs.Validate(); err != nil {
		return nil, fmt.Errorf("event %s inputs: %w", name, err)
	}
	sig := codec.Signature(name, inputs.Types())
	return &Event{
		Name:      name,
		Signature: sig,
		ID:        codec.TopicOf(sig),
		Inputs:    inputs,
		Anonymous: anonymous,
	}, nil
}

// topicOffset is the index of the first indexed argument in a log's topics.
func (e *Event) topicOffset() int {
	if e.Anonymous {
		return 0
	}
	return 1
}

// DecodeLog splits a log into indexed arguments read from topics and
// non-indexed arguments decoded from data.
func (e *Event) DecodeLog(log model.LogRecord) (*model.DecodedEvent, error) {
	offset := e.topicOffset()
	if !e.Anonymous && (len(log.Topics) == 0 || log.Topics[0] != e.ID) {
		return nil, fmt.Errorf("%w: %s expects topic %s, got %s", ErrEventMismatch, e.Signature, e.ID.Hex(), log.Topic0().Hex())
	}

	indexed := e.Inputs.Indexed()
	if len(log.Topics)-offset != len(indexed) {
		return nil, fmt.Errorf("%w: %s has %d indexed arguments, log carries %d topics", codec.ErrMalformedEncoding, e.Signature, len(indexed), len(log.Topics)-offset)
	}

	data, err := e.Inputs.NonIndexed().Decode(log.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s data: %w", e.Signature, err)
	}

	names := e.Inputs.Names()
	out := &model.DecodedEvent{
		Event:     e.Name,
		Signature: e.Signature,
		Args:      make(map[string]any, len(e.Inputs)),
		Order:     names,
		Log:       log,
	}
	topicIdx, dataIdx := offset, 0
	for i, arg := range e.Inputs {
		if arg.Indexed {
			v, err := codec.DecodeTopic(arg.Type, log.Topics[topicIdx])
			if err != nil {
				return nil, fmt.Errorf("decode %s topic %s: %w", e.Signature, names[i], err)
			}
			out.Args[names[i]] = v
			topicIdx++
			continue
		}
		out.Args[names[i]] = data[dataIdx]
		dataIdx++
	}
	return out, nil
}

// FilterTopics converts an index filter into per-position topic
// constraints, including the event topic at position 0.
func (e *Event) FilterTopics(filter IndexFilter) ([][]common.Hash, error) {
	indexed := e.Inputs.Indexed()
	names := indexedNames(e.Inputs)
	positions := make(map[string]int, len(indexed))
	for i, name := range names {
		positions[name] = i
	}
	for name := range filter {
		if _, ok := positions[name]; !ok {
			return nil, fmt.Errorf("%w: %s has no indexed argument %q", ErrUnknownArgument, e.Signature, name)
		}
	}

	offset := e.topicOffset()
	topics := make([][]common.Hash, offset+len(indexed))
	if !e.Anonymous {
		topics[0] = []common.Hash{e.ID}
	}
	last := offset - 1
	for i, arg := range indexed {
		value, ok := filter[names[i]]
		if !ok {
			continue
		}
		topic, err := codec.EncodeTopic(arg.Type, value)
		if err != nil {
			return nil, fmt.Errorf("filter %s.%s: %w", e.Name, names[i], err)
		}
		topics[offset+i] = []common.Hash{topic}
		last = offset + i
	}
	return topics[:last+1], nil
}

// Matches reports whether a decoded event satisfies the filter exactly.
func (e *Event) Matches(ev *model.DecodedEvent, filter IndexFilter) (bool, error) {
	if len(filter) == 0 {
		return true, nil
	}
	topics, err := e.FilterTopics(filter)
	if err != nil {
		return false, err
	}
	offset := e.topicOffset()
	for i := offset; i < len(topics); i++ {
		if len(topics[i]) == 0 {
			continue
		}
		if i >= len(ev.Log.Topics) || ev.Log.Topics[i] != topics[i][0] {
			return false, nil
		}
	}
	return true, nil
}

// indexedNames returns the names of indexed arguments, using the same argN
// fallback as DecodeLog.
func indexedNames(args codec.Arguments) []string {
	all := args.Names()
	var out []string
	for i, arg := range args {
		if arg.Indexed {
			out = append(out, all[i])
		}
	}
	return out
}
