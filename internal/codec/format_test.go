package codec

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestParseValueScalars(t *testing.T) {
	v, err := ParseValue(Uint(256), "0x10")
	require.NoError(t, err)
	require.Equal(t, "16", v.(*big.Int).String())

	v, err = ParseValue(Int(32), "-7")
	require.NoError(t, err)
	require.Equal(t, "-7", v.(*big.Int).String())

	_, err = ParseValue(Uint(8), "300")
	require.ErrorIs(t, err, ErrValueOutOfRange)

	v, err = ParseValue(Bool(), "true")
	require.NoError(t, err)
	require.Equal(t, true, v)

	v, err = ParseValue(Address(), "0x5409ED021D9299BF6814279A6A1411A7E866A631")
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0x5409ed021d9299bf6814279a6a1411a7e866a631"), v)

	v, err = ParseValue(Bytes(), "0x1234")
	require.NoError(t, err)
	require.Equal(t, []byte{0x12, 0x34}, v)

	v, err = ParseValue(String(), "zoom zoom")
	require.NoError(t, err)
	require.Equal(t, "zoom zoom", v)
}

func TestParseValueComposite(t *testing.T) {
	tuple := TupleOf(
		Field{Name: "someBytes", Type: Bytes()},
		Field{Name: "anInteger", Type: Uint(32)},
		Field{Name: "aString", Type: String()},
	)
	v, err := ParseValue(tuple, `{"someBytes":"0x01","anInteger":5,"aString":"abc"}`)
	require.NoError(t, err)
	s := v.(Struct)
	n, ok := s.Get("anInteger")
	require.True(t, ok)
	require.Equal(t, "5", n.(*big.Int).String())

	_, err = Encode([]Type{tuple}, []any{v})
	require.NoError(t, err)

	list, err := ParseValue(SliceOf(Uint(256)), `[1, "0x02", "3"]`)
	require.NoError(t, err)
	require.Equal(t, []any{"1", "2", "3"}, JSONValue(list))

	_, err = ParseValue(SliceOf(Uint(256)), `{"a":1}`)
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestJSONValueKeepsTupleOrder(t *testing.T) {
	v := Struct{
		{Name: "z", Value: big.NewInt(1)},
		{Name: "a", Value: []byte{0xab}},
		{Name: "m", Value: common.HexToAddress("0x5409ED021D9299BF6814279A6A1411A7E866A631")},
	}
	out, err := json.Marshal(JSONValue(v))
	require.NoError(t, err)
	require.Equal(t, `{"z":"1","a":"0xab","m":"0x5409ed021d9299bf6814279a6a1411a7e866a631"}`, string(out))
}
