package codec

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Selector is the 4-byte function identifier that prefixes calldata.
type Selector [4]byte

func (s Selector) Hex() string { return "0x" + hex.EncodeToString(s[:]) }

func (s Selector) String() string { return s.Hex() }

// Bytes returns a copy of the selector.
func (s Selector) Bytes() []byte {
	out := make([]byte, len(s))
	copy(out, s[:])
	return out
}

// Signature renders the canonical form name(t1,t2,...).
func Signature(name string, types []Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return name + "(" + strings.Join(parts, ",") + ")"
}

// SelectorOf returns the first four bytes of keccak256(signature).
func SelectorOf(signature string) Selector {
	var sel Selector
	copy(sel[:], crypto.Keccak256([]byte(signature))[:4])
	return sel
}

// TopicOf returns keccak256(signature), the first topic of a non-anonymous
// event log.
func TopicOf(signature string) common.Hash {
	return crypto.Keccak256Hash([]byte(signature))
}
