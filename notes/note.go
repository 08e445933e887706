// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package notes implements the Note lifecycle: commitment and nullifier
// derivation, canonical serialization, and authenticated encryption for
// shielded transfer.
package notes

import (
	"encoding/binary"
	"errors"

	"github.com/luxfi/shieldpool/field"
)

var (
	// ErrNoteMissingEpochOrIndex is returned by RecomputeNullifier when the
	// note has not yet been confirmed into a tree.
	ErrNoteMissingEpochOrIndex = errors.New("notes: note is missing epoch or leaf index")
)

// AssetId identifies a fungible asset.
type AssetId [32]byte

// ShieldedAddress is a 32-byte shielded public identifier.
type ShieldedAddress [32]byte

// Note is a hidden UTXO. Value, Token, Owner, Randomness, and Blinding are
// fixed at creation; Epoch, LeafIndex, and Nullifier are assigned once the
// note is confirmed on-chain.
type Note struct {
	Value      uint64
	Token      AssetId
	Owner      ShieldedAddress
	Randomness [32]byte
	Blinding   [32]byte
	Memo       string

	Commitment [32]byte

	Epoch     *uint64
	LeafIndex *uint32

	Nullifier    [32]byte
	NullifierSet bool

	Spent   bool
	Expired bool
}

// New creates a note with a freshly computed commitment. Blinding is
// aliased to randomness, preserved separately only for round-trip fidelity
// with stores that serialize both fields.
func New(value uint64, token AssetId, owner ShieldedAddress, randomness [32]byte, memo string) *Note {
	n := &Note{
		Value:      value,
		Token:      token,
		Owner:      owner,
		Randomness: randomness,
		Blinding:   randomness,
		Memo:       memo,
	}
	n.Commitment = ComputeCommitment(value, owner, randomness)
	return n
}

// ComputeCommitment implements §4.C: Poseidon3(value_be32, owner, randomness).
func ComputeCommitment(value uint64, owner ShieldedAddress, randomness [32]byte) [32]byte {
	valueField := field.FromUint64(value)
	ownerField, err := field.FromBytes(owner[:])
	if err != nil {
		// owner is always exactly 32 bytes; unreachable.
		panic(err)
	}
	randField, err := field.FromBytes(randomness[:])
	if err != nil {
		panic(err)
	}
	return field.ComputeCommitment(valueField, ownerField, randField).Bytes()
}

// ComputeNullifier implements §4.C: Poseidon4(commitment, nullifier_key,
// epoch, leaf_index), where epoch and leaf_index are written little-endian
// into the low bytes of a 32-byte field input — a fixed encoding that must
// match the circuit bit-for-bit.
func ComputeNullifier(commitment, nullifierKey [32]byte, epoch uint64, leafIndex uint32) ([32]byte, error) {
	commitmentField, err := field.FromBytes(commitment[:])
	if err != nil {
		return [32]byte{}, err
	}
	keyField, err := field.FromBytes(nullifierKey[:])
	if err != nil {
		return [32]byte{}, err
	}
	epochField := encodeLowBytesLE64(epoch)
	leafField := encodeLowBytesLE32(leafIndex)

	out, err := field.ComputeNullifierDirect(commitmentField, keyField, epochField, leafField)
	if err != nil {
		return [32]byte{}, err
	}
	return out.Bytes(), nil
}

func encodeLowBytesLE64(v uint64) field.Element {
	var buf [32]byte
	binary.LittleEndian.PutUint64(buf[24:32], v)
	e, err := field.FromBytes(buf[:])
	if err != nil {
		panic(err)
	}
	return e
}

func encodeLowBytesLE32(v uint32) field.Element {
	var buf [32]byte
	binary.LittleEndian.PutUint32(buf[28:32], v)
	e, err := field.FromBytes(buf[:])
	if err != nil {
		panic(err)
	}
	return e
}

// RecomputeNullifier fills in n.Nullifier from n.Commitment, the caller's
// nullifier key, and the note's assigned epoch/leaf index. It is an error to
// call this before both are set.
func (n *Note) RecomputeNullifier(nullifierKey [32]byte) error {
	if n.Epoch == nil || n.LeafIndex == nil {
		return ErrNoteMissingEpochOrIndex
	}
	nf, err := ComputeNullifier(n.Commitment, nullifierKey, *n.Epoch, *n.LeafIndex)
	if err != nil {
		return err
	}
	n.Nullifier = nf
	n.NullifierSet = true
	return nil
}

// Confirm assigns the epoch and leaf index a deposit/transfer/renew event
// reported for this note's commitment.
func (n *Note) Confirm(epoch uint64, leafIndex uint32) {
	e := epoch
	l := leafIndex
	n.Epoch = &e
	n.LeafIndex = &l
}

// Clone returns a deep copy safe to mutate independently of n.
func (n *Note) Clone() *Note {
	out := *n
	if n.Epoch != nil {
		e := *n.Epoch
		out.Epoch = &e
	}
	if n.LeafIndex != nil {
		l := *n.LeafIndex
		out.LeafIndex = &l
	}
	return &out
}
