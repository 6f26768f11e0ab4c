package codec

import "errors"

var (
	// ErrMalformedEncoding reports an offset, length or word that does not
	// fit the bytes being decoded.
	ErrMalformedEncoding = errors.New("malformed abi encoding")
	// ErrValueOutOfRange reports a value that does not fit its declared type.
	ErrValueOutOfRange = errors.New("value out of range")
	// ErrTypeMismatch reports a Go value that cannot represent the declared type.
	ErrTypeMismatch = errors.New("type mismatch")
	ErrInvalidType  = errors.New("invalid abi type")
)
