package contract

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"contractbind/internal/awaiter"
	"contractbind/internal/codec"
	"contractbind/internal/model"
	"contractbind/internal/nodetest"
)

var dummyAddress = common.HexToAddress("0x0000000000000000000000000000000000001337")

func newDummy(t *testing.T) (*Contract, *nodetest.Node) {
	t.Helper()
	iface := abiGenDummy(t)
	node := nodetest.New()

	addOne := func(name string, constant int64) {
		m, err := iface.Method(name)
		require.NoError(t, err)
		node.HandleCall(m.Selector, func(msg model.CallMsg) ([]byte, error) {
			args, err := m.DecodeCall(msg.Data)
			if err != nil {
				return nil, err
			}
			sum := new(big.Int).Add(args[0].(*big.Int), big.NewInt(constant))
			return m.Outputs.Encode(sum)
		})
	}
	addOne("simpleInputSimpleOutput", 1975)

	revertWith := func(name, reason string) {
		m, err := iface.Method(name)
		require.NoError(t, err)
		node.HandleCall(m.Selector, func(model.CallMsg) ([]byte, error) {
			return nil, &model.RevertPayload{Data: codec.EncodeRevert(reason), Message: "execution reverted"}
		})
	}
	revertWith("simpleRevert", "SIMPLE_REVERT")
	revertWith("revertWithConstant", "REVERT_WITH_CONSTANT")
	revertWith("simpleRequire", "SIMPLE_REQUIRE")
	revertWith("requireWithConstant", "REQUIRE_WITH_CONSTANT")

	structOutput, err := iface.Method("structOutput")
	require.NoError(t, err)
	node.HandleCall(structOutput.Selector, func(model.CallMsg) ([]byte, error) {
		return structOutput.Outputs.Encode(map[string]any{
			"someBytes":            []byte("0x123"),
			"anInteger":            5,
			"aDynamicArrayOfBytes": [][]byte{[]byte("0x123"), []byte("0x321")},
			"aString":              "abc",
		})
	})

	ecrecoverFn, err := iface.Method("ecrecoverFn")
	require.NoError(t, err)
	node.HandleCall(ecrecoverFn.Selector, func(msg model.CallMsg) ([]byte, error) {
		args, err := ecrecoverFn.DecodeCall(msg.Data)
		if err != nil {
			return nil, err
		}
		sig := append(append(append([]byte{}, args[2].([]byte)...), args[3].([]byte)...), byte(args[1].(*big.Int).Uint64()-27))
		pub, err := crypto.SigToPub(accounts.TextHash(args[0].([]byte)), sig)
		if err != nil {
			return nil, &model.RevertPayload{Data: codec.EncodeRevert("BAD_SIGNATURE")}
		}
		return ecrecoverFn.Outputs.Encode(crypto.PubkeyToAddress(*pub))
	})

	multi, err := iface.Method("multiInputMultiOutput")
	require.NoError(t, err)
	node.HandleCall(multi.Selector, func(model.CallMsg) ([]byte, error) {
		return multi.Outputs.Encode("0x12345678", "0x87654321", "amet")
	})

	withAddress, err := iface.Method("withAddressInput")
	require.NoError(t, err)
	node.HandleCall(withAddress.Selector, func(msg model.CallMsg) ([]byte, error) {
		args, err := withAddress.DecodeCall(msg.Data)
		if err != nil {
			return nil, err
		}
		return withAddress.Outputs.Encode(args[0])
	})

	withdraw, err := iface.Method("withdraw")
	require.NoError(t, err)
	withdrawal, err := iface.Event("Withdrawal")
	require.NoError(t, err)
	node.HandleTransaction(withdraw.Selector, func(msg model.CallMsg) ([]nodetest.Log, error) {
		args, err := withdraw.DecodeCall(msg.Data)
		if err != nil {
			return nil, err
		}
		if args[0].(*big.Int).Sign() == 0 {
			return nil, &model.RevertPayload{Data: codec.EncodeRevert("NOTHING_TO_WITHDRAW")}
		}
		owner, err := codec.EncodeTopic(codec.Address(), msg.From)
		if err != nil {
			return nil, err
		}
		data, err := codec.Encode([]codec.Type{codec.Uint(256)}, []any{args[0]})
		if err != nil {
			return nil, err
		}
		return []nodetest.Log{{Topics: []common.Hash{withdrawal.ID, owner}, Data: data}}, nil
	})

	return New(dummyAddress, iface, node, nil), node
}

func TestSimpleInputSimpleOutput(t *testing.T) {
	c, _ := newDummy(t)

	call, err := c.Method("simpleInputSimpleOutput", 16)
	require.NoError(t, err)

	want := codec.SelectorOf("simpleInputSimpleOutput(uint256)")
	require.Equal(t, want, call.Selector())
	require.Equal(t,
		strings.TrimPrefix(want.Hex(), "0x")+"0000000000000000000000000000000000000000000000000000000000000010",
		hex.EncodeToString(call.EncodedData()))

	args, err := c.DecodeTransactionData("simpleInputSimpleOutput", call.EncodedData())
	require.NoError(t, err)
	require.Equal(t, "16", args[0].(*big.Int).String())

	out, err := call.Call(context.Background(), model.CallOpts{})
	require.NoError(t, err)
	require.Equal(t, "1991", out[0].(*big.Int).String())
}

func TestSimplePureFunctionSelector(t *testing.T) {
	iface := abiGenDummy(t)
	m, err := iface.Method("simplePureFunction")
	require.NoError(t, err)
	require.Equal(t, "0xa3c2f6b6", m.Selector.Hex())
	require.True(t, m.IsConstant())

	withdraw, err := iface.Method("withdraw")
	require.NoError(t, err)
	require.False(t, withdraw.IsConstant())
}

func TestCallSurfacesRevertReason(t *testing.T) {
	c, _ := newDummy(t)
	cases := map[string]string{
		"simpleRevert":        "SIMPLE_REVERT",
		"revertWithConstant":  "REVERT_WITH_CONSTANT",
		"simpleRequire":       "SIMPLE_REQUIRE",
		"requireWithConstant": "REQUIRE_WITH_CONSTANT",
	}
	for name, reason := range cases {
		t.Run(name, func(t *testing.T) {
			call, err := c.Method(name)
			require.NoError(t, err)
			_, err = call.Call(context.Background(), model.CallOpts{})

			var revert *RevertError
			require.ErrorAs(t, err, &revert)
			require.Equal(t, reason, revert.Reason)
			require.NotEmpty(t, revert.Raw)
		})
	}
}

func TestCallRawRevertPayload(t *testing.T) {
	c, node := newDummy(t)
	m, err := c.Interface().Method("simplePureFunction")
	require.NoError(t, err)
	node.HandleCall(m.Selector, func(model.CallMsg) ([]byte, error) {
		return nil, &model.RevertPayload{Data: []byte{0xde, 0xad, 0xbe, 0xef}}
	})

	call, err := c.Method("simplePureFunction")
	require.NoError(t, err)
	_, err = call.Call(context.Background(), model.CallOpts{})

	var revert *RevertError
	require.ErrorAs(t, err, &revert)
	require.Empty(t, revert.Reason)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, revert.Raw)
	require.Equal(t, "contract reverted: 0xdeadbeef", revert.Error())
}

func TestCallEndpointFailureIsNotRevert(t *testing.T) {
	c, node := newDummy(t)
	node.FailCalls(model.ErrEndpointUnavailable)

	call, err := c.Method("simpleInputSimpleOutput", 1)
	require.NoError(t, err)
	_, err = call.Call(context.Background(), model.CallOpts{})
	require.ErrorIs(t, err, model.ErrEndpointUnavailable)

	var revert *RevertError
	require.False(t, errors.As(err, &revert))
}

func TestStructOutput(t *testing.T) {
	c, _ := newDummy(t)
	call, err := c.Method("structOutput")
	require.NoError(t, err)

	out, err := call.Call(context.Background(), model.CallOpts{})
	require.NoError(t, err)
	require.Len(t, out, 1)

	s := out[0].(codec.Struct)
	require.Equal(t, []string{"someBytes", "anInteger", "aDynamicArrayOfBytes", "aString"},
		[]string{s[0].Name, s[1].Name, s[2].Name, s[3].Name})

	someBytes, _ := s.Get("someBytes")
	require.Equal(t, []byte("0x123"), someBytes)
	anInteger, _ := s.Get("anInteger")
	require.Equal(t, "5", anInteger.(*big.Int).String())
	list, _ := s.Get("aDynamicArrayOfBytes")
	require.Equal(t, []any{[]byte("0x123"), []byte("0x321")}, list)
	aString, _ := s.Get("aString")
	require.Equal(t, "abc", aString)
}

func TestMultiInputMultiOutput(t *testing.T) {
	c, _ := newDummy(t)
	call, err := c.Method("multiInputMultiOutput", 1991, "0x1234", "zoom zoom")
	require.NoError(t, err)

	args, err := call.Method().DecodeCall(call.EncodedData())
	require.NoError(t, err)
	require.Equal(t, "1991", args[0].(*big.Int).String())
	require.Equal(t, []byte{0x12, 0x34}, args[1])
	require.Equal(t, "zoom zoom", args[2])

	out, err := call.Call(context.Background(), model.CallOpts{})
	require.NoError(t, err)
	require.Equal(t, []any{[]byte{0x12, 0x34, 0x56, 0x78}, []byte{0x87, 0x65, 0x43, 0x21}, "amet"}, out)
}

func TestAddressInputsNormalize(t *testing.T) {
	c, _ := newDummy(t)
	lower := "0x5409ed021d9299bf6814279a6a1411a7e866a631"
	upper := "0x5409ED021D9299BF6814279A6A1411A7E866A631"

	a, err := c.Method("withAddressInput", lower, 1, 2, upper, 3)
	require.NoError(t, err)
	b, err := c.Method("withAddressInput", upper, 1, 2, lower, 3)
	require.NoError(t, err)
	require.Equal(t, a.EncodedData(), b.EncodedData())

	out, err := b.Call(context.Background(), model.CallOpts{})
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress(lower), out[0])
	require.Equal(t, lower, codec.JSONValue(out[0]))
}

func TestMethodFailsFast(t *testing.T) {
	c, _ := newDummy(t)

	_, err := c.Method("noSuchMethod")
	require.ErrorIs(t, err, ErrUnknownMethod)

	_, err = c.Method("simpleInputSimpleOutput", -1)
	require.ErrorIs(t, err, codec.ErrValueOutOfRange)

	_, err = c.Method("simpleInputSimpleOutput")
	require.ErrorIs(t, err, codec.ErrTypeMismatch)

	_, err = c.Method("withAddressInput", "not an address", 1, 2, dummyAddress, 3)
	require.ErrorIs(t, err, codec.ErrTypeMismatch)
}

func TestDecodeTransactionDataSelectorMismatch(t *testing.T) {
	c, _ := newDummy(t)
	other, err := c.Method("simplePureFunction")
	require.NoError(t, err)

	_, err = c.DecodeTransactionData("simpleInputSimpleOutput", other.EncodedData())
	require.ErrorIs(t, err, ErrSelectorMismatch)

	_, err = c.DecodeTransactionData("simpleInputSimpleOutput", []byte{0x01})
	require.ErrorIs(t, err, ErrSelectorMismatch)
}

func TestDecodeReturnDataWithoutOutputs(t *testing.T) {
	c, _ := newDummy(t)
	values, err := c.DecodeReturnData("simpleRevert", []byte{1, 2, 3})
	require.NoError(t, err)
	require.Empty(t, values)

	_, err = c.DecodeReturnData("simpleInputSimpleOutput", []byte{1, 2, 3})
	require.ErrorIs(t, err, codec.ErrMalformedEncoding)
}

func TestParseJSONRejectsOversizedArray(t *testing.T) {
	const oversized = `[{"type":"function","name":"f","stateMutability":"view",
		"inputs":[{"name":"xs","type":"uint256[1000000000]"}],"outputs":[]}]`
	_, err := ParseJSON(strings.NewReader(oversized))
	require.ErrorIs(t, err, codec.ErrInvalidType)
}

func TestOverloadedMethodsGetDistinctKeys(t *testing.T) {
	iface := abiGenDummy(t)
	first, err := iface.Method("overloadedMethod")
	require.NoError(t, err)
	second, err := iface.Method("overloadedMethod0")
	require.NoError(t, err)
	require.NotEqual(t, first.Selector, second.Selector)
	require.ElementsMatch(t,
		[]string{"overloadedMethod(int256)", "overloadedMethod(string)"},
		[]string{first.Signature, second.Signature})
	require.Equal(t, "overloadedMethod", first.Name)
	require.Equal(t, "overloadedMethod", second.Name)
}

func TestGetLogsFiltersByIndexedOwner(t *testing.T) {
	c, node := newDummy(t)
	ctx := context.Background()
	alice := common.HexToAddress("0x6ecbe1db9ef729cbe972c83fb886247691fb6beb")
	bob := common.HexToAddress("0xe36ea790bc9d7ab70c55260c66d52b1eca985f84")

	for _, from := range []common.Address{alice, bob} {
		call, err := c.Method("withdraw", 1)
		require.NoError(t, err)
		_, err = call.SendAndWait(ctx, model.TxOptions{From: from}, awaiter.Options{PollingInterval: 10 * time.Millisecond, Timeout: 100 * time.Millisecond})
		require.NoError(t, err)
	}

	blocks := model.BlockRange{From: 0, To: node.Head()}
	all, err := c.GetLogs(ctx, "Withdrawal", blocks, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	filtered, err := c.GetLogs(ctx, "Withdrawal", blocks, IndexFilter{"_owner": "0x" + strings.ToUpper(alice.Hex()[2:])})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	owner, ok := filtered[0].Arg("_owner")
	require.True(t, ok)
	require.Equal(t, alice, owner)
	value, _ := filtered[0].Arg("_value")
	require.Equal(t, "1", value.(*big.Int).String())

	queries := node.LogQueries()
	last := queries[len(queries)-1]
	require.Equal(t, []common.Address{dummyAddress}, last.Addresses)
	require.Len(t, last.Topics, 2)

	_, err = c.GetLogs(ctx, "Withdrawal", blocks, IndexFilter{"_value": 1})
	require.ErrorIs(t, err, ErrUnknownArgument)

	_, err = c.GetLogs(ctx, "NoSuchEvent", blocks, nil)
	require.ErrorIs(t, err, ErrUnknownEvent)
}

func TestSendReturnsPendingWithoutWaiting(t *testing.T) {
	c, node := newDummy(t)
	node.HoldReceipts(true)
	ctx := context.Background()

	call, err := c.Method("withdraw", 5)
	require.NoError(t, err)
	pending, err := call.Send(ctx, model.TxOptions{From: dummyAddress})
	require.NoError(t, err)

	_, err = pending.Await(ctx, awaiter.Options{PollingInterval: time.Millisecond, Timeout: 20 * time.Millisecond})
	require.ErrorIs(t, err, awaiter.ErrTransactionTimeout)

	node.Mine()
	receipt, err := pending.Await(ctx, awaiter.Options{PollingInterval: time.Millisecond, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)
	require.True(t, receipt.Succeeded())
	require.Len(t, receipt.Logs, 1)
}

func TestSendAndWaitReportsRevertReason(t *testing.T) {
	c, _ := newDummy(t)
	call, err := c.Method("withdraw", 0)
	require.NoError(t, err)

	_, err = call.SendAndWait(context.Background(), model.TxOptions{From: dummyAddress}, awaiter.Options{PollingInterval: 10 * time.Millisecond, Timeout: 100 * time.Millisecond})
	require.ErrorIs(t, err, awaiter.ErrTransactionReverted)

	var reverted *awaiter.RevertedError
	require.ErrorAs(t, err, &reverted)
	require.Equal(t, "NOTHING_TO_WITHDRAW", reverted.Reason)
}

func TestEcrecoverWithNodeSignature(t *testing.T) {
	c, node := newDummy(t)
	ctx := context.Background()
	message := common.FromHex("0x6927e990021d23b1eb7b8789f6a6feaf98fe104bb0cf8259421b79f9a34222b0")

	sig, err := Sign(ctx, node, node.Account(), message)
	require.NoError(t, err)
	require.Contains(t, []uint8{27, 28}, sig.V)

	bound, err := c.Method("ecrecoverFn", message, sig.V, sig.R[:], sig.S[:])
	require.NoError(t, err)
	out, err := bound.Call(ctx, model.CallOpts{})
	require.NoError(t, err)
	require.Equal(t, node.Account(), out[0])

	_, err = Sign(ctx, node, dummyAddress, message)
	require.ErrorContains(t, err, "unknown account")
}

func TestSplitSignature(t *testing.T) {
	raw := make([]byte, 65)
	raw[0], raw[32], raw[64] = 0xaa, 0xbb, 1
	sig, err := SplitSignature(raw)
	require.NoError(t, err)
	require.Equal(t, uint8(28), sig.V)
	require.Equal(t, byte(0xaa), sig.R[0])
	require.Equal(t, byte(0xbb), sig.S[0])
	require.Equal(t, uint8(28), sig.Bytes()[64])

	_, err = SplitSignature(raw[:64])
	require.ErrorIs(t, err, ErrInvalidSignature)

	raw[64] = 5
	_, err = SplitSignature(raw)
	require.ErrorIs(t, err, ErrInvalidSignature)
}
