// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEncryptedFileStoreSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.enc")
	key := [32]byte{1, 2, 3}

	s := NewEncryptedFileStore(path, key)
	snap := BuildSnapshot(42, 3, nil, nil)
	require.NoError(t, s.Save(context.Background(), snap))

	loaded, ok, err := s.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(3), loaded.CurrentEpoch)
}

func TestEncryptedFileStoreLoadMissingFileIsNoData(t *testing.T) {
	dir := t.TempDir()
	s := NewEncryptedFileStore(filepath.Join(dir, "missing.enc"), [32]byte{1})

	_, ok, err := s.Load(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEncryptedFileStoreLoadWrongKeyIsNoData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.enc")
	s := NewEncryptedFileStore(path, [32]byte{1})
	require.NoError(t, s.Save(context.Background(), BuildSnapshot(0, 0, nil, nil)))

	other := NewEncryptedFileStore(path, [32]byte{2})
	_, ok, err := other.Load(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEncryptedFileStoreEvictsStaleLock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.enc")
	s := NewEncryptedFileStore(path, [32]byte{1})

	lockPath := s.lockPath()
	require.NoError(t, os.Mkdir(lockPath, 0o700))
	stale := time.Now().Add(-2 * lockStaleAge)
	require.NoError(t, os.Chtimes(lockPath, stale, stale))

	require.NoError(t, s.Save(context.Background(), BuildSnapshot(0, 0, nil, nil)))
}
