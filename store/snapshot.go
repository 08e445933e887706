// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package store persists NoteManager state as a versioned JSON snapshot,
// either in memory or encrypted at rest on disk.
package store

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/luxfi/shieldpool/notes"
)

// SnapshotVersion is the only version this package reads or writes.
const SnapshotVersion = 1

var ErrVersionMismatch = errors.New("store: unsupported snapshot version")

// Snapshot is the versioned, serializable form of a NoteManager's state.
type Snapshot struct {
	Version      int        `json:"version"`
	UpdatedAt    int64      `json:"updated_at"`
	CurrentEpoch uint64     `json:"current_epoch"`
	Notes        []noteJSON `json:"notes"`
	PendingNotes []noteJSON `json:"pending_notes"`
}

// noteJSON mirrors notes.Note with bigints as decimal strings and byte
// arrays as hex, per the snapshot's external wire format.
type noteJSON struct {
	Value      string  `json:"value"`
	Token      string  `json:"token"`
	Owner      string  `json:"owner"`
	Randomness string  `json:"randomness"`
	Blinding   string  `json:"blinding"`
	Memo       string  `json:"memo"`
	Commitment string  `json:"commitment"`
	Epoch      *uint64 `json:"epoch,omitempty"`
	LeafIndex  *uint32 `json:"leaf_index,omitempty"`
	Nullifier  string  `json:"nullifier,omitempty"`
	Spent      bool    `json:"spent"`
	Expired    bool    `json:"expired"`
}

func toNoteJSON(n *notes.Note) noteJSON {
	out := noteJSON{
		Value:      strconv.FormatUint(n.Value, 10),
		Token:      hex.EncodeToString(n.Token[:]),
		Owner:      hex.EncodeToString(n.Owner[:]),
		Randomness: hex.EncodeToString(n.Randomness[:]),
		Blinding:   hex.EncodeToString(n.Blinding[:]),
		Memo:       n.Memo,
		Commitment: hex.EncodeToString(n.Commitment[:]),
		Epoch:      n.Epoch,
		LeafIndex:  n.LeafIndex,
		Spent:      n.Spent,
		Expired:    n.Expired,
	}
	if n.NullifierSet {
		out.Nullifier = hex.EncodeToString(n.Nullifier[:])
	}
	return out
}

func fromNoteJSON(j noteJSON) (*notes.Note, error) {
	value, err := strconv.ParseUint(j.Value, 10, 64)
	if err != nil {
		return nil, err
	}
	token, err := decodeHex32(j.Token)
	if err != nil {
		return nil, err
	}
	owner, err := decodeHex32(j.Owner)
	if err != nil {
		return nil, err
	}
	randomness, err := decodeHex32(j.Randomness)
	if err != nil {
		return nil, err
	}
	blinding, err := decodeHex32(j.Blinding)
	if err != nil {
		return nil, err
	}
	commitment, err := decodeHex32(j.Commitment)
	if err != nil {
		return nil, err
	}

	n := &notes.Note{
		Value:      value,
		Token:      notes.AssetId(token),
		Owner:      notes.ShieldedAddress(owner),
		Randomness: randomness,
		Blinding:   blinding,
		Memo:       j.Memo,
		Commitment: commitment,
		Epoch:      j.Epoch,
		LeafIndex:  j.LeafIndex,
		Spent:      j.Spent,
		Expired:    j.Expired,
	}
	if j.Nullifier != "" {
		nullifier, err := decodeHex32(j.Nullifier)
		if err != nil {
			return nil, err
		}
		n.Nullifier = nullifier
		n.NullifierSet = true
	}
	return n, nil
}

func decodeHex32(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(b) != 32 {
		return out, errors.New("store: expected 32-byte hex field")
	}
	copy(out[:], b)
	return out, nil
}

// BuildSnapshot assembles a Snapshot from live note slices.
func BuildSnapshot(updatedAt int64, currentEpoch uint64, confirmed, pending []*notes.Note) Snapshot {
	s := Snapshot{
		Version:      SnapshotVersion,
		UpdatedAt:    updatedAt,
		CurrentEpoch: currentEpoch,
	}
	for _, n := range confirmed {
		s.Notes = append(s.Notes, toNoteJSON(n))
	}
	for _, n := range pending {
		s.PendingNotes = append(s.PendingNotes, toNoteJSON(n))
	}
	return s
}

// Confirmed decodes the snapshot's confirmed notes back into Note values.
func (s Snapshot) Confirmed() ([]*notes.Note, error) {
	return decodeAll(s.Notes)
}

// Pending decodes the snapshot's pending notes back into Note values.
func (s Snapshot) Pending() ([]*notes.Note, error) {
	return decodeAll(s.PendingNotes)
}

func decodeAll(in []noteJSON) ([]*notes.Note, error) {
	out := make([]*notes.Note, 0, len(in))
	for _, j := range in {
		n, err := fromNoteJSON(j)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// Marshal and Unmarshal are the plain encoding/json codec; kept as
// named functions so callers don't need to know the snapshot is JSON under
// the hood.
func Marshal(s Snapshot) ([]byte, error)   { return json.Marshal(s) }
func Unmarshal(b []byte, s *Snapshot) error { return json.Unmarshal(b, s) }
