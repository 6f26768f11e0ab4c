package indexer

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// CheckpointStore persists the last fully processed block.
type CheckpointStore interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, block uint64) error
}

// Checkpoint is the file form of a checkpoint.
type Checkpoint struct {
	LastProcessedBlock uint64 `json:"last_processed_block"`
	UpdatedAt          string `json:"updated_at"`
}

// FileCheckpoint stores the checkpoint in a local JSON file, replaced
// atomically on every save.
type FileCheckpoint struct {
	path string
}

func NewFileCheckpoint(path string) *FileCheckpoint {
	return &FileCheckpoint{path: path}
}

func (c *FileCheckpoint) Load(_ context.Context) (uint64, bool, error) {
	stat, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return 0, false, fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return 0, false, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return 0, false, fmt.Errorf("parse checkpoint: %w", err)
	}

	return cp.LastProcessedBlock, true, nil
}

func (c *FileCheckpoint) Save(_ context.Context, block uint64) error {
	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	cp := Checkpoint{
		LastProcessedBlock: block,
		UpdatedAt:          time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}

	return nil
}

var checkpointBucket = []byte("checkpoints")

// BoltCheckpoint stores checkpoints in a bbolt database, one key per
// backfill job so several jobs can share a file.
type BoltCheckpoint struct {
	db  *bolt.DB
	key []byte
}

// OpenBoltCheckpoint opens (or creates) the database at path.
func OpenBoltCheckpoint(path, name string) (*BoltCheckpoint, error) {
	if name == "" {
		return nil, fmt.Errorf("checkpoint name required")
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open checkpoint db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(checkpointBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create checkpoint bucket: %w", err)
	}
	return &BoltCheckpoint{db: db, key: []byte(name)}, nil
}

func (c *BoltCheckpoint) Load(_ context.Context) (uint64, bool, error) {
	var (
		block uint64
		found bool
	)
	err := c.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(checkpointBucket).Get(c.key)
		if value == nil {
			return nil
		}
		if len(value) != 8 {
			return fmt.Errorf("checkpoint %s has %d bytes", c.key, len(value))
		}
		block = binary.BigEndian.Uint64(value)
		found = true
		return nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("read checkpoint: %w", err)
	}
	return block, found, nil
}

func (c *BoltCheckpoint) Save(_ context.Context, block uint64) error {
	value := make([]byte, 8)
	binary.BigEndian.PutUint64(value, block)
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(checkpointBucket).Put(c.key, value)
	})
	if err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}

func (c *BoltCheckpoint) Close() error {
	return c.db.Close()
}

// StateStore is a named block cursor table, such as postgres.Store.
type StateStore interface {
	LoadState(ctx context.Context, name string) (uint64, bool, error)
	SaveState(ctx context.Context, name string, block uint64) error
}

// StateCheckpoint keeps the checkpoint in a StateStore row.
type StateCheckpoint struct {
	Store StateStore
	Name  string
}

func (s *StateCheckpoint) Load(ctx context.Context) (uint64, bool, error) {
	if s == nil || s.Store == nil {
		return 0, false, nil
	}
	return s.Store.LoadState(ctx, s.Name)
}

func (s *StateCheckpoint) Save(ctx context.Context, block uint64) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SaveState(ctx, s.Name, block)
}
