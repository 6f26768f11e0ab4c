package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"contractbind/internal/model"
)

// Schema creates the tables the store writes to.
const Schema = `
CREATE TABLE IF NOT EXISTS contract_events (
	chain_id      BIGINT      NOT NULL,
	block_number  BIGINT      NOT NULL,
	block_hash    TEXT        NOT NULL,
	tx_hash       TEXT        NOT NULL,
	log_index     BIGINT      NOT NULL,
	address       TEXT        NOT NULL,
	event_name    TEXT        NOT NULL,
	signature     TEXT        NOT NULL,
	block_ts      BIGINT      NOT NULL,
	args          JSONB       NOT NULL,
	raw           JSONB,
	ingested_at   TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (chain_id, tx_hash, log_index)
);
CREATE INDEX IF NOT EXISTS contract_events_block_idx ON contract_events (chain_id, address, block_number);
CREATE TABLE IF NOT EXISTS indexer_state (
	name                 TEXT PRIMARY KEY,
	last_processed_block BIGINT      NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL
);
`

const insertEvent = `
	INSERT INTO contract_events (
		chain_id, block_number, block_hash, tx_hash, log_index, address,
		event_name, signature, block_ts, args, raw, ingested_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	ON CONFLICT (chain_id, tx_hash, log_index) DO NOTHING
`

// Store provides Postgres persistence for decoded events and indexer state.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PutEventBatch inserts events, ignoring rows already stored.
func (s *Store) PutEventBatch(ctx context.Context, events []model.EventRecord) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, record := range events {
		args, err := eventArgs(record)
		if err != nil {
			return err
		}
		batch.Queue(insertEvent, args...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for _, record := range events {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert event %s: %w", record.Key(), err)
		}
	}
	return nil
}

// eventArgs lays a record out in insertEvent column order.
func eventArgs(record model.EventRecord) ([]any, error) {
	var raw []byte
	if record.Raw != nil {
		encoded, err := json.Marshal(record.Raw)
		if err != nil {
			return nil, fmt.Errorf("marshal raw log: %w", err)
		}
		raw = encoded
	}
	args := []byte(record.Args)
	if len(args) == 0 {
		args = []byte("{}")
	}
	return []any{
		int64(record.ChainID),
		int64(record.BlockNumber),
		record.BlockHash,
		record.TxHash,
		int64(record.LogIndex),
		record.Address,
		record.EventName,
		record.Signature,
		int64(record.Timestamp),
		string(args),
		nullableJSON(raw),
		record.IngestedAt,
	}, nil
}

func nullableJSON(data []byte) any {
	if data == nil {
		return nil
	}
	return string(data)
}

// LoadState returns last_processed_block for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var block int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_block FROM indexer_state WHERE name=$1`, name)
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(block), true, nil
}

// SaveState upserts last_processed_block for a name.
func (s *Store) SaveState(ctx context.Context, name string, block uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexer_state (name, last_processed_block, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_block = EXCLUDED.last_processed_block, updated_at = now()
	`, name, int64(block))
	return err
}
