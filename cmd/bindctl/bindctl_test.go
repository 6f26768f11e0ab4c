package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"contractbind/internal/codec"
	"contractbind/internal/config"
	"contractbind/internal/contract"
	"contractbind/internal/model"
	"contractbind/internal/nodetest"
	"contractbind/internal/subscription"
)

func testInterface(t *testing.T) *contract.Interface {
	t.Helper()
	transfer, err := contract.NewMethod("transfer", contract.NonPayable,
		codec.Arguments{{Name: "to", Type: codec.Address()}, {Name: "amount", Type: codec.Uint(256)}},
		codec.Arguments{{Type: codec.Bool()}},
	)
	require.NoError(t, err)
	transferEvent, err := contract.NewEvent("Transfer", false, codec.Arguments{
		{Name: "from", Type: codec.Address(), Indexed: true},
		{Name: "to", Type: codec.Address(), Indexed: true},
		{Name: "value", Type: codec.Uint(256)},
	})
	require.NoError(t, err)
	marker, err := contract.NewEvent("Marker", true, codec.Arguments{{Name: "id", Type: codec.Uint(8)}})
	require.NoError(t, err)
	iface, err := contract.NewInterface([]*contract.Method{transfer}, []*contract.Event{transferEvent, marker})
	require.NoError(t, err)
	return iface
}

func decodeJSON(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestParseMethodArgs(t *testing.T) {
	iface := testInterface(t)
	m, err := iface.Method("transfer")
	require.NoError(t, err)

	values, err := parseMethodArgs(m, []string{"0x00000000000000000000000000000000000000AA", "1000"})
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0xaa"), values[0])

	_, err = parseMethodArgs(m, []string{"0xaa"})
	require.EqualError(t, err, "transfer(address,uint256) takes 2 arguments, got 1")

	_, err = parseMethodArgs(m, []string{"0x00000000000000000000000000000000000000AA", "-1"})
	require.ErrorIs(t, err, codec.ErrValueOutOfRange)
}

func TestParseBlockAndWei(t *testing.T) {
	block, err := parseBlock("latest")
	require.NoError(t, err)
	require.Nil(t, block)

	block, err = parseBlock("0x10")
	require.NoError(t, err)
	require.Equal(t, "16", block.String())

	_, err = parseBlock("-3")
	require.Error(t, err)

	wei, err := parseWei("")
	require.NoError(t, err)
	require.Nil(t, wei)

	wei, err = parseWei("1000000000")
	require.NoError(t, err)
	require.Equal(t, "1000000000", wei.String())

	_, err = parseWei("ten")
	require.EqualError(t, err, `invalid wei amount "ten"`)
}

func TestDecodeInputCalldata(t *testing.T) {
	iface := testInterface(t)
	m, err := iface.Method("transfer")
	require.NoError(t, err)
	data, err := m.EncodeCall(common.HexToAddress("0xbb"), 42)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, decodeInput(&buf, iface, "", nil, data))
	out := decodeJSON(t, &buf)
	require.Equal(t, "calldata", out["kind"])
	require.Equal(t, "transfer(address,uint256)", out["signature"])
	require.Equal(t, map[string]any{
		"to":     "0x00000000000000000000000000000000000000bb",
		"amount": "42",
	}, out["values"])
}

func TestDecodeInputReturnData(t *testing.T) {
	iface := testInterface(t)
	data, err := codec.Encode([]codec.Type{codec.Bool()}, []any{true})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, decodeInput(&buf, iface, "transfer", nil, data))
	out := decodeJSON(t, &buf)
	require.Equal(t, "return", out["kind"])
	require.Equal(t, map[string]any{"arg0": true}, out["values"])

	err = decodeInput(&buf, iface, "approve", nil, data)
	require.ErrorIs(t, err, contract.ErrUnknownMethod)
}

func TestDecodeInputLog(t *testing.T) {
	iface := testInterface(t)
	ev, err := iface.Event("Transfer")
	require.NoError(t, err)
	data, err := codec.Encode([]codec.Type{codec.Uint(256)}, []any{7})
	require.NoError(t, err)
	topics := []string{
		ev.ID.Hex(),
		common.BytesToHash(common.HexToAddress("0x01").Bytes()).Hex(),
		common.BytesToHash(common.HexToAddress("0x02").Bytes()).Hex(),
	}

	var buf bytes.Buffer
	require.NoError(t, decodeInput(&buf, iface, "", topics, data))
	out := decodeJSON(t, &buf)
	require.Equal(t, "log", out["kind"])
	require.Equal(t, "Transfer", out["name"])
	require.Equal(t, "7", out["values"].(map[string]any)["value"])
}

func TestSelectEvents(t *testing.T) {
	iface := testInterface(t)

	events, err := selectEvents(iface, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "Transfer", events[0].Name)

	_, err = selectEvents(iface, []string{"Marker"})
	require.ErrorIs(t, err, subscription.ErrAnonymousEvent)

	_, err = selectEvents(iface, []string{"Nope"})
	require.ErrorIs(t, err, contract.ErrUnknownEvent)
}

func TestParseFilter(t *testing.T) {
	iface := testInterface(t)

	filter, err := parseFilter(iface, nil, nil)
	require.NoError(t, err)
	require.Nil(t, filter)

	_, err = parseFilter(iface, nil, map[string]string{"from": "0x01"})
	require.EqualError(t, err, "filter needs exactly one event, got 0")

	filter, err = parseFilter(iface, []string{"Transfer"}, map[string]string{"from": "0x0000000000000000000000000000000000000001"})
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0x01"), filter["from"])
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := &writerSink{w: &buf}
	err := sink.PutEventBatch(context.Background(), []model.EventRecord{
		{TxHash: "0x1", EventName: "Transfer", Args: json.RawMessage(`{"value":"1"}`)},
		{TxHash: "0x2", EventName: "Transfer", Args: json.RawMessage(`{"value":"2"}`)},
	})
	require.NoError(t, err)
	require.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\n")))
}

func TestNewLoggerRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bindctl.log")
	logger, err := newLogger(config.Common{LogLevel: "debug", LogFile: path, LogMaxSizeMB: 1, LogMaxBackups: 1, LogMaxAgeDays: 1})
	require.NoError(t, err)
	logger.Info("hello")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"hello"`)
	require.Contains(t, string(data), `"ts":`)

	_, err = newLogger(config.Common{LogLevel: "loud"})
	require.Error(t, err)
}

func TestLoadInterfaceBuiltin(t *testing.T) {
	iface, err := loadInterface("builtin:erc20")
	require.NoError(t, err)
	m, err := iface.Method("balanceOf")
	require.NoError(t, err)
	require.Equal(t, "balanceOf(address)", m.Signature)

	_, err = loadInterface(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorContains(t, err, "load abi")
}

func TestSignAndPrint(t *testing.T) {
	node := nodetest.New()
	var buf bytes.Buffer
	message, err := parseMessage("hello")
	require.NoError(t, err)
	require.NoError(t, signAndPrint(context.Background(), &buf, node, node.Account(), message))

	var out signatureOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Equal(t, strings.ToLower(node.Account().Hex()), out.Account)
	require.Equal(t, "0x68656c6c6f", out.Message)
	require.Len(t, out.Signature, 2+130)
	require.Contains(t, []uint8{27, 28}, out.V)
	require.Equal(t, out.Signature[2:66], out.R[2:])

	_, err = parseMessage("0xzz")
	require.Error(t, err)
	raw, err := parseMessage("0XCAFE")
	require.NoError(t, err)
	require.Equal(t, []byte{0xca, 0xfe}, raw)
}

func TestChainIDValue(t *testing.T) {
	id, err := chainIDValue(big.NewInt(43114))
	require.NoError(t, err)
	require.Equal(t, uint64(43114), id)

	huge := new(big.Int).Lsh(big.NewInt(1), 64)
	_, err = chainIDValue(huge)
	require.ErrorContains(t, err, "does not fit in uint64")

	_, err = chainIDValue(big.NewInt(-1))
	require.Error(t, err)
	_, err = chainIDValue(nil)
	require.Error(t, err)
}
