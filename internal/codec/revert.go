package codec

import (
	"bytes"
	"fmt"
	"math/big"
)

var (
	// ErrorSelector prefixes the payload of require/revert with a message.
	ErrorSelector = SelectorOf("Error(string)")
	// PanicSelector prefixes the payload of failed assertions and
	// arithmetic checks.
	PanicSelector = SelectorOf("Panic(uint256)")
)

var panicReasons = map[uint64]string{
	0x00: "generic panic",
	0x01: "assert(false)",
	0x11: "arithmetic underflow or overflow",
	0x12: "division or modulo by zero",
	0x21: "enum overflow",
	0x22: "invalid encoded storage byte array accessed",
	0x31: "out-of-bounds array access; popping on an empty array",
	0x32: "out-of-bounds access of an array or bytesN",
	0x41: "out of memory",
	0x51: "uninitialized function",
}

// UnpackRevert extracts a human readable reason from revert data. It
// returns false when the payload is not a standard Error(string) or
// Panic(uint256) encoding.
func UnpackRevert(data []byte) (string, bool) {
	if len(data) < len(Selector{}) {
		return "", false
	}
	sel, body := data[:4], data[4:]
	switch {
	case bytes.Equal(sel, ErrorSelector[:]):
		values, err := Decode([]Type{String()}, body)
		if err != nil {
			return "", false
		}
		return values[0].(string), true
	case bytes.Equal(sel, PanicSelector[:]):
		values, err := Decode([]Type{Uint(256)}, body)
		if err != nil {
			return "", false
		}
		code := values[0].(*big.Int)
		if code.IsUint64() {
			if reason, ok := panicReasons[code.Uint64()]; ok {
				return fmt.Sprintf("panic: %s (0x%x)", reason, code), true
			}
		}
		return fmt.Sprintf("panic: code 0x%x", code), true
	}
	return "", false
}

// EncodeRevert builds an Error(string) payload.
func EncodeRevert(reason string) []byte {
	body, _ := Encode([]Type{String()}, []any{reason})
	return append(ErrorSelector.Bytes(), body...)
}
