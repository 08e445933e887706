// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	lockDirName   = ".lock"
	lockStaleAge  = 5 * time.Second
	lockRetryWait = 50 * time.Millisecond
	lockTimeout   = 10 * time.Second
)

// ErrLockTimeout is returned when the advisory directory lock could not be
// acquired within lockTimeout.
var ErrLockTimeout = errors.New("store: timed out acquiring note store lock")

// EncryptedFileStore persists a Snapshot as nonce(24) || ciphertext, where
// ciphertext is an XSalsa20-Poly1305 seal of the snapshot's UTF-8 JSON under
// the wallet's viewing key. A sibling .lock directory, created with an
// atomic mkdir, serializes concurrent access across processes; a lock older
// than lockStaleAge is assumed abandoned and evicted.
type EncryptedFileStore struct {
	path       string
	viewingKey [32]byte
}

// NewEncryptedFileStore returns a store backed by the file at path.
func NewEncryptedFileStore(path string, viewingKey [32]byte) *EncryptedFileStore {
	return &EncryptedFileStore{path: path, viewingKey: viewingKey}
}

func (s *EncryptedFileStore) lockPath() string {
	return filepath.Join(filepath.Dir(s.path), lockDirName)
}

func (s *EncryptedFileStore) acquireLock(ctx context.Context) error {
	deadline := time.Now().Add(lockTimeout)
	lockPath := s.lockPath()

	for {
		err := os.Mkdir(lockPath, 0o700)
		if err == nil {
			return nil
		}
		if !os.IsExist(err) {
			return err
		}

		if info, statErr := os.Stat(lockPath); statErr == nil {
			if time.Since(info.ModTime()) > lockStaleAge {
				_ = os.Remove(lockPath)
				continue
			}
		}

		if time.Now().After(deadline) {
			return ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryWait):
		}
	}
}

func (s *EncryptedFileStore) releaseLock() {
	_ = os.Remove(s.lockPath())
}

// Save encrypts and atomically writes snapshot, holding the directory lock
// for the duration of the write.
func (s *EncryptedFileStore) Save(ctx context.Context, snapshot Snapshot) error {
	if err := s.acquireLock(ctx); err != nil {
		return err
	}
	defer s.releaseLock()

	plaintext, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return err
	}
	sealed := secretbox.Seal(nonce[:], plaintext, &nonce, &s.viewingKey)

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".notestore-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(sealed); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, s.path)
}

// Load decrypts and parses the snapshot file. Any failure — missing file,
// corruption, wrong key, version mismatch, truncation, lock timeout — is
// reported as (Snapshot{}, false, nil) rather than an error, per the "no
// data" contract. A cancelled ctx or an unexpected error creating the lock
// directory is returned as an error.
func (s *EncryptedFileStore) Load(ctx context.Context) (Snapshot, bool, error) {
	if err := s.acquireLock(ctx); err != nil {
		if errors.Is(err, ErrLockTimeout) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, err
	}
	defer s.releaseLock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return Snapshot{}, false, nil
	}
	if len(raw) < 24+secretbox.Overhead {
		return Snapshot{}, false, nil
	}

	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plaintext, ok := secretbox.Open(nil, raw[24:], &nonce, &s.viewingKey)
	if !ok {
		return Snapshot{}, false, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(plaintext, &snap); err != nil {
		return Snapshot{}, false, nil
	}
	if snap.Version != SnapshotVersion {
		return Snapshot{}, false, nil
	}
	return snap, true, nil
}
