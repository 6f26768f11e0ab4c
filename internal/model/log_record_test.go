package model

import (
	"encoding/json"
	"math/big"
	"reflect"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func TestLogRecordJSONRoundTrip(t *testing.T) {
	original := LogRecord{
		Address:     common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Topics:      []common.Hash{common.HexToHash("0xaaa"), common.HexToHash("0xbbb")},
		Data:        []byte{0xde, 0xad, 0xbe, 0xef},
		BlockNumber: 36000000,
		BlockHash:   common.HexToHash("0xabc123"),
		TxHash:      common.HexToHash("0xdef456"),
		TxIndex:     7,
		LogIndex:    12,
	}

	b, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded LogRecord
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !reflect.DeepEqual(original, decoded) {
		t.Fatalf("round-trip mismatch: %+v != %+v", original, decoded)
	}
}

func TestNewLogRecordCopiesFields(t *testing.T) {
	log := types.Log{
		Address:     common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Topics:      []common.Hash{common.HexToHash("0x01")},
		Data:        []byte{1, 2},
		BlockNumber: 10,
		TxHash:      common.HexToHash("0x03"),
		TxIndex:     2,
		Index:       4,
	}
	record := NewLogRecord(log)
	log.Data[0] = 9

	if record.Data[0] != 1 {
		t.Fatalf("data should be copied")
	}
	if record.LogIndex != 4 || record.TxIndex != 2 || record.BlockNumber != 10 {
		t.Fatalf("unexpected positions: %+v", record)
	}
	if record.Topic0() != common.HexToHash("0x01") {
		t.Fatalf("unexpected topic0 %s", record.Topic0().Hex())
	}
	want := "10:" + common.HexToHash("0x03").Hex() + ":4"
	if record.Key() != want {
		t.Fatalf("key mismatch: %s != %s", record.Key(), want)
	}
}

func TestNewReceipt(t *testing.T) {
	r := &types.Receipt{
		Status:      types.ReceiptStatusFailed,
		TxHash:      common.HexToHash("0x05"),
		BlockNumber: big.NewInt(7),
		GasUsed:     21000,
		Logs:        []*types.Log{{Index: 1}},
	}
	receipt := NewReceipt(r)
	if receipt.Succeeded() {
		t.Fatalf("failed receipt reported success")
	}
	if receipt.BlockNumber != 7 || len(receipt.Logs) != 1 || receipt.ContractAddress != nil {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
}

func TestEventRecordArgsKeepOrderAndStrings(t *testing.T) {
	ev := &DecodedEvent{
		Event:     "Withdrawal",
		Signature: "Withdrawal(address,uint256)",
		Args: map[string]any{
			"_value": big.NewInt(1),
			"_owner": common.HexToAddress("0x6ecbe1db9ef729cbe972c83fb886247691fb6beb"),
		},
		Order: []string{"_owner", "_value"},
		Log:   LogRecord{BlockNumber: 3, LogIndex: 1},
	}

	record, err := NewEventRecord(1337, ev, 1700000000, time.Unix(0, 0), true)
	if err != nil {
		t.Fatalf("build record: %v", err)
	}
	want := `{"_owner":"0x6ecbe1db9ef729cbe972c83fb886247691fb6beb","_value":"1"}`
	if string(record.Args) != want {
		t.Fatalf("args mismatch: %s", record.Args)
	}
	if record.Raw == nil || record.Raw.Data != "0x" {
		t.Fatalf("raw reference missing: %+v", record.Raw)
	}
	if record.IngestedAt != "1970-01-01T00:00:00Z" {
		t.Fatalf("unexpected ingested_at %s", record.IngestedAt)
	}
}

func TestRevertPayloadMessage(t *testing.T) {
	err := &RevertPayload{Data: []byte{0xde, 0xad}}
	if err.Error() != "execution reverted: 0xdead" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if (&RevertPayload{}).Error() != "execution reverted" {
		t.Fatalf("unexpected empty message")
	}
}
