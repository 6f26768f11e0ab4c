package codec

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// IsHashedTopic reports whether an indexed value of type t is stored as the
// Keccak-256 of its contents rather than the value itself.
func IsHashedTopic(t Type) bool {
	return t.Kind == StringKind || t.Kind == BytesKind
}

// EncodeTopic returns the topic word an indexed argument of type t would
// carry for value v.
func EncodeTopic(t Type, v any) (common.Hash, error) {
	switch t.Kind {
	case IntKind, UintKind, BoolKind, AddressKind, FixedBytesKind:
		word, err := encodeValue(t, v)
		if err != nil {
			return common.Hash{}, err
		}
		return common.BytesToHash(word), nil
	case StringKind:
		if h, ok := v.(common.Hash); ok {
			return h, nil
		}
		s, err := toString(v)
		if err != nil {
			return common.Hash{}, err
		}
		return crypto.Keccak256Hash([]byte(s)), nil
	case BytesKind:
		if h, ok := v.(common.Hash); ok {
			return h, nil
		}
		data, err := toBytes(v)
		if err != nil {
			return common.Hash{}, err
		}
		return crypto.Keccak256Hash(data), nil
	default:
		return common.Hash{}, fmt.Errorf("%w: cannot build a topic for %s", ErrTypeMismatch, t)
	}
}

// DecodeTopic recovers an indexed argument. Hashed types yield the topic
// hash itself since the preimage is not recoverable.
func DecodeTopic(t Type, topic common.Hash) (any, error) {
	if IsHashedTopic(t) {
		return topic, nil
	}
	switch t.Kind {
	case ArrayKind, SliceKind, TupleKind:
		return topic, nil
	}
	return DecodeWord(t, topic.Bytes())
}
