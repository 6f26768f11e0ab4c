package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"contractbind/internal/codec"
)

// EventRecord is the storage form of a decoded event.
type EventRecord struct {
	ChainID     uint64          `json:"chain_id"`
	BlockNumber uint64          `json:"block_number"`
	BlockHash   string          `json:"block_hash"`
	TxHash      string          `json:"tx_hash"`
	LogIndex    uint64          `json:"log_index"`
	Address     string          `json:"address"`
	EventName   string          `json:"event_name"`
	Signature   string          `json:"signature"`
	Timestamp   uint64          `json:"timestamp"`
	Args        json.RawMessage `json:"args"`
	Raw         *RawLogRef      `json:"raw,omitempty"`
	IngestedAt  string          `json:"ingested_at"`
}

// RawLogRef keeps a minimal raw reference for traceability.
type RawLogRef struct {
	Topics []string `json:"topics"`
	Data   string   `json:"data"`
}

// Key identifies the record by block, transaction and log index.
func (r EventRecord) Key() string {
	return fmt.Sprintf("%d:%s:%d", r.BlockNumber, r.TxHash, r.LogIndex)
}

// NewEventRecord flattens a decoded event. Arguments are written as a JSON
// object in declaration order.
func NewEventRecord(chainID uint64, ev *DecodedEvent, timestamp uint64, ingestedAt time.Time, keepRaw bool) (EventRecord, error) {
	args := make(codec.OrderedObject, len(ev.Order))
	for i, name := range ev.Order {
		args[i] = codec.StructField{Name: name, Value: codec.JSONValue(ev.Args[name])}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return EventRecord{}, fmt.Errorf("marshal args: %w", err)
	}

	record := EventRecord{
		ChainID:     chainID,
		BlockNumber: ev.Log.BlockNumber,
		BlockHash:   ev.Log.BlockHash.Hex(),
		TxHash:      ev.Log.TxHash.Hex(),
		LogIndex:    ev.Log.LogIndex,
		Address:     ev.Log.Address.Hex(),
		EventName:   ev.Event,
		Signature:   ev.Signature,
		Timestamp:   timestamp,
		Args:        encoded,
		IngestedAt:  ingestedAt.UTC().Format(time.RFC3339Nano),
	}
	if keepRaw {
		topics := make([]string, len(ev.Log.Topics))
		for i, topic := range ev.Log.Topics {
			topics[i] = topic.Hex()
		}
		record.Raw = &RawLogRef{Topics: topics, Data: hexutil.Encode(ev.Log.Data)}
	}
	return record, nil
}
