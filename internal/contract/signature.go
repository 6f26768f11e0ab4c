package contract

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var ErrInvalidSignature = errors.New("invalid signature")

// Signer is a node endpoint that signs with accounts it manages.
type Signer interface {
	SignMessage(ctx context.Context, address common.Address, message []byte) ([]byte, error)
}

// Signature is a 65-byte secp256k1 signature split into the parts an
// ecrecover-style method takes.
type Signature struct {
	V uint8
	R [32]byte
	S [32]byte
}

// SplitSignature parses r ‖ s ‖ v. A recovery id of 0 or 1 is shifted to
// 27 or 28.
func SplitSignature(sig []byte) (Signature, error) {
	if len(sig) != 65 {
		return Signature{}, fmt.Errorf("%w: want 65 bytes, got %d", ErrInvalidSignature, len(sig))
	}
	var out Signature
	copy(out.R[:], sig[:32])
	copy(out.S[:], sig[32:64])
	out.V = sig[64]
	if out.V < 27 {
		out.V += 27
	}
	if out.V != 27 && out.V != 28 {
		return Signature{}, fmt.Errorf("%w: v is %d", ErrInvalidSignature, sig[64])
	}
	return out, nil
}

// Bytes returns r ‖ s ‖ v.
func (s Signature) Bytes() []byte {
	out := make([]byte, 0, 65)
	out = append(out, s.R[:]...)
	out = append(out, s.S[:]...)
	return append(out, s.V)
}

func (s Signature) String() string { return hexutil.Encode(s.Bytes()) }

// Sign has the node sign message with account and splits the result.
func Sign(ctx context.Context, signer Signer, account common.Address, message []byte) (Signature, error) {
	raw, err := signer.SignMessage(ctx, account, message)
	if err != nil {
		return Signature{}, fmt.Errorf("sign with %s: %w", account.Hex(), err)
	}
	return SplitSignature(raw)
}
