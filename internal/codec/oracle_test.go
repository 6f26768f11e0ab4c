package codec

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

// Cross-checks the encoder against go-ethereum's reflection based packer.
func TestEncodeMatchesGethPacker(t *testing.T) {
	addr := common.HexToAddress("0x6ecbe1db9ef729cbe972c83fb886247691fb6beb")
	var word [32]byte
	copy(word[:], "left aligned")

	cases := []struct {
		typ  string
		ours any
		geth any
	}{
		{"uint256", big.NewInt(1991), big.NewInt(1991)},
		{"int256", big.NewInt(-42), big.NewInt(-42)},
		{"uint64", uint64(1 << 40), uint64(1 << 40)},
		{"int8", int8(-5), int8(-5)},
		{"bool", true, true},
		{"address", addr, addr},
		{"bytes32", word[:], word},
		{"bytes", []byte("dynamic payload longer than one word, spanning two"), []byte("dynamic payload longer than one word, spanning two")},
		{"string", "amet", "amet"},
		{"uint64[]", []uint64{1, 2, 3}, []uint64{1, 2, 3}},
		{"string[]", []string{"a", "bb"}, []string{"a", "bb"}},
		{"address[2]", [2]common.Address{addr, {}}, [2]common.Address{addr, {}}},
	}
	for _, tc := range cases {
		t.Run(tc.typ, func(t *testing.T) {
			gethType, err := abi.NewType(tc.typ, "", nil)
			require.NoError(t, err)
			want, err := abi.Arguments{{Type: gethType}}.Pack(tc.geth)
			require.NoError(t, err)

			got, err := Encode([]Type{MustParseType(tc.typ)}, []any{tc.ours})
			require.NoError(t, err)
			require.Equal(t, want, got)
		})
	}
}

func TestDecodeMatchesGethUnpacker(t *testing.T) {
	gethArgs := abi.Arguments{}
	for _, typ := range []string{"uint256", "string", "bytes", "uint16[]"} {
		gethType, err := abi.NewType(typ, "", nil)
		require.NoError(t, err)
		gethArgs = append(gethArgs, abi.Argument{Type: gethType})
	}
	data, err := gethArgs.Pack(big.NewInt(0x12345678), "zoom zoom", []byte{0x12, 0x34}, []uint16{9, 8})
	require.NoError(t, err)

	values, err := Decode([]Type{Uint(256), String(), Bytes(), SliceOf(Uint(16))}, data)
	require.NoError(t, err)
	require.Equal(t, "305419896", values[0].(*big.Int).String())
	require.Equal(t, "zoom zoom", values[1])
	require.Equal(t, []byte{0x12, 0x34}, values[2])
	require.Equal(t, []any{"9", "8"}, JSONValue(values[3]))
}
