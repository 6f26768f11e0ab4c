package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileCheckpointRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "checkpoint.json")
	cp := NewFileCheckpoint(path)

	_, ok, err := cp.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cp.Save(ctx, 1234))
	block, ok, err := cp.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1234), block)

	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))
}

func TestFileCheckpointRejectsDirectory(t *testing.T) {
	_, _, err := NewFileCheckpoint(t.TempDir()).Load(context.Background())
	require.EqualError(t, err, "checkpoint path is a directory")
}

func TestFileCheckpointCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, _, err := NewFileCheckpoint(path).Load(context.Background())
	require.ErrorContains(t, err, "parse checkpoint")
}

func TestBoltCheckpointKeysByName(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "progress.db")

	first, err := OpenBoltCheckpoint(path, "transfers")
	require.NoError(t, err)
	_, ok, err := first.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, first.Save(ctx, 77))
	require.NoError(t, first.Save(ctx, 78))
	require.NoError(t, first.Close())

	reopened, err := OpenBoltCheckpoint(path, "transfers")
	require.NoError(t, err)
	block, ok, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(78), block)
	require.NoError(t, reopened.Close())

	other, err := OpenBoltCheckpoint(path, "approvals")
	require.NoError(t, err)
	defer other.Close()
	_, ok, err = other.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOpenBoltCheckpointRequiresName(t *testing.T) {
	_, err := OpenBoltCheckpoint(filepath.Join(t.TempDir(), "p.db"), "")
	require.EqualError(t, err, "checkpoint name required")
}

type memoryState map[string]uint64

func (m memoryState) LoadState(_ context.Context, name string) (uint64, bool, error) {
	v, ok := m[name]
	return v, ok, nil
}

func (m memoryState) SaveState(_ context.Context, name string, block uint64) error {
	m[name] = block
	return nil
}

func TestStateCheckpoint(t *testing.T) {
	ctx := context.Background()
	state := memoryState{}
	cp := &StateCheckpoint{Store: state, Name: "job"}

	require.NoError(t, cp.Save(ctx, 9))
	require.Equal(t, uint64(9), state["job"])
	block, ok, err := cp.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(9), block)

	var empty *StateCheckpoint
	_, ok, err = empty.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, empty.Save(ctx, 1))
}
