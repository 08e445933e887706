// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package witness

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/shieldpool/field"
	"github.com/luxfi/shieldpool/merkle"
	"github.com/luxfi/shieldpool/notes"
)

func testOwner(b byte) notes.ShieldedAddress {
	var o notes.ShieldedAddress
	for i := range o {
		o[i] = b
	}
	return o
}

func buildTestProof(t *testing.T, value byte) (*notes.Note, *merkle.MerkleProof) {
	t.Helper()
	n := notes.New(100, notes.AssetId{}, testOwner(1), [32]byte{value}, "")
	n.Confirm(1, 0)

	tree := merkle.NewEpochTree(1)
	leafField, err := field.FromBytes(n.Commitment[:])
	require.NoError(t, err)
	_, _, err = tree.Insert(leafField)
	require.NoError(t, err)

	proof, err := tree.GetProof(0)
	require.NoError(t, err)
	return n, proof
}

func TestBuildWithdrawProducesOrderedPublicInputs(t *testing.T) {
	n, proof := buildTestProof(t, 7)
	b := NewBuilder(Config{})

	sig, err := b.BuildWithdraw(WithdrawParams{
		Note:         n,
		Proof:        proof,
		NullifierKey: [32]byte{9},
		Recipient:    [32]byte{2},
		PoolID:       [32]byte{3},
	})
	require.NoError(t, err)
	require.Equal(t, proof.Root, sig.Public[0])
	require.Equal(t, field.FromUint64(100), sig.Public[2])
	require.Equal(t, field.FromUint64(1), sig.Public[3])
}

func TestBuildWithdrawRejectsUnconfirmedNote(t *testing.T) {
	n := notes.New(1, notes.AssetId{}, testOwner(1), [32]byte{1}, "")
	b := NewBuilder(Config{})
	_, err := b.BuildWithdraw(WithdrawParams{Note: n, Proof: &merkle.MerkleProof{}})
	require.ErrorIs(t, err, ErrNoteMissingEpochOrIndex)
}

func TestMerkleIndicesFollowLeafIndexBits(t *testing.T) {
	n, proof := buildTestProof(t, 1)
	n.LeafIndex = uint32Ptr(5) // 0b101

	b := NewBuilder(Config{})
	sig, err := b.BuildWithdraw(WithdrawParams{
		Note:         n,
		Proof:        proof,
		NullifierKey: [32]byte{9},
	})
	require.NoError(t, err)
	require.Equal(t, 1, sig.Input.MerkleIndices[0])
	require.Equal(t, 0, sig.Input.MerkleIndices[1])
	require.Equal(t, 1, sig.Input.MerkleIndices[2])
}

func TestMerkleIndicesFlipWithLeftIsOne(t *testing.T) {
	n, proof := buildTestProof(t, 1)
	n.LeafIndex = uint32Ptr(1)

	b := NewBuilder(Config{LeftIsOne: true})
	sig, err := b.BuildWithdraw(WithdrawParams{Note: n, Proof: proof, NullifierKey: [32]byte{9}})
	require.NoError(t, err)
	require.Equal(t, 0, sig.Input.MerkleIndices[0])
}

func TestTopDownReversesProofAndIndices(t *testing.T) {
	n, proof := buildTestProof(t, 1)
	n.LeafIndex = uint32Ptr(3)

	bottomUp := NewBuilder(Config{MerkleOrder: BottomUp})
	topDown := NewBuilder(Config{MerkleOrder: TopDown})

	sigBU, err := bottomUp.BuildWithdraw(WithdrawParams{Note: n, Proof: proof, NullifierKey: [32]byte{9}})
	require.NoError(t, err)
	sigTD, err := topDown.BuildWithdraw(WithdrawParams{Note: n, Proof: proof, NullifierKey: [32]byte{9}})
	require.NoError(t, err)

	require.Equal(t, sigBU.Input.MerkleProof[0], sigTD.Input.MerkleProof[merkle.Depth-1])
}

func TestBuildTransferPadsMissingSlotsWithDummy(t *testing.T) {
	n, proof := buildTestProof(t, 2)
	b := NewBuilder(Config{})

	sig, err := b.BuildTransfer(TransferParams{
		Inputs: []TransferInput{{
			Value:      n.Value,
			Owner:      mustField(n.Owner[:]),
			Randomness: mustField(n.Randomness[:]),
			Commitment: n.Commitment,
			Epoch:      1,
			LeafIndex:  0,
			Proof:      proof,
		}},
		Outputs: []TransferOutput{{Value: 100, Owner: mustField(testOwner(5)[:]), Randomness: mustField([]byte{1})}},
	})
	require.NoError(t, err)
	require.True(t, sig.IsDummyInput[1])
	require.True(t, sig.IsDummyOutput[1])
	require.Equal(t, field.Zero, sig.Public[2])
}

func mustField(b []byte) field.Element {
	e, err := field.FromBytes(b)
	if err != nil {
		panic(err)
	}
	return e
}

func uint32Ptr(v uint32) *uint32 { return &v }
