package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTypeCanonical(t *testing.T) {
	cases := map[string]string{
		"uint":                 "uint256",
		"int":                  "int256",
		"byte":                 "bytes1",
		"address":              "address",
		"bytes32[2]":           "bytes32[2]",
		"uint8[][3]":           "uint8[][3]",
		"(uint256,bytes)[]":    "(uint256,bytes)[]",
		" (bool,(string,int))": "(bool,(string,int256))",
	}
	for in, want := range cases {
		typ, err := ParseType(in)
		require.NoError(t, err, in)
		require.Equal(t, want, typ.String(), in)
	}
}

func TestParseTypeRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "uint7", "uint264", "bytes0", "bytes33", "foo", "uint256[", "(uint256", "uint256]"} {
		_, err := ParseType(in)
		require.ErrorIs(t, err, ErrInvalidType, in)
	}
}

func TestParseTypeBoundsArrayLength(t *testing.T) {
	typ, err := ParseType("uint8[65536]")
	require.NoError(t, err)
	require.Equal(t, MaxArrayLength, typ.Size)

	for _, in := range []string{
		"string[1000000000]",
		"uint256[65537]",
		"uint256[99999999999999999999999]",
		"uint256[4096][4096]",
	} {
		_, err := ParseType(in)
		require.ErrorIs(t, err, ErrInvalidType, in)
	}

	require.ErrorIs(t, ArrayOf(Bool(), MaxArrayLength+1).Validate(), ErrInvalidType)
}

func TestTypeLayout(t *testing.T) {
	require.False(t, MustParseType("uint256[3]").IsDynamic())
	require.Equal(t, 96, MustParseType("uint256[3]").HeadSize())
	require.True(t, MustParseType("string[3]").IsDynamic())
	require.Equal(t, 32, MustParseType("string[3]").HeadSize())
	require.Equal(t, 64, MustParseType("(uint8,address)").HeadSize())
	require.True(t, MustParseType("(uint8,bytes)").IsDynamic())
	require.True(t, MustParseType("uint256").Equal(Uint(256)))
}
