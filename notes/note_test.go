// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package notes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testOwner(b byte) ShieldedAddress {
	var o ShieldedAddress
	for i := range o {
		o[i] = b
	}
	return o
}

func testRandomness(b byte) [32]byte {
	var r [32]byte
	for i := range r {
		r[i] = b
	}
	return r
}

func TestComputeCommitmentDeterministic(t *testing.T) {
	owner := testOwner(1)
	rand := testRandomness(2)

	c1 := ComputeCommitment(100, owner, rand)
	c2 := ComputeCommitment(100, owner, rand)
	require.Equal(t, c1, c2)
}

func TestComputeCommitmentSensitiveToValue(t *testing.T) {
	owner := testOwner(1)
	rand := testRandomness(2)

	c1 := ComputeCommitment(100, owner, rand)
	c2 := ComputeCommitment(101, owner, rand)
	require.NotEqual(t, c1, c2)
}

func TestRecomputeNullifierRequiresEpochAndIndex(t *testing.T) {
	n := New(10, AssetId{}, testOwner(1), testRandomness(2), "")
	err := n.RecomputeNullifier(testRandomness(9))
	require.ErrorIs(t, err, ErrNoteMissingEpochOrIndex)
}

func TestRecomputeNullifierIsEpochScoped(t *testing.T) {
	n := New(10, AssetId{}, testOwner(1), testRandomness(2), "")
	key := testRandomness(9)

	n.Confirm(1, 5)
	require.NoError(t, n.RecomputeNullifier(key))
	nullifierEpoch1 := n.Nullifier

	n.Confirm(2, 5)
	require.NoError(t, n.RecomputeNullifier(key))
	nullifierEpoch2 := n.Nullifier

	require.NotEqual(t, nullifierEpoch1, nullifierEpoch2)
}

func TestCloneIsIndependent(t *testing.T) {
	n := New(10, AssetId{}, testOwner(1), testRandomness(2), "memo")
	n.Confirm(1, 5)

	clone := n.Clone()
	*clone.Epoch = 99

	require.Equal(t, uint64(1), *n.Epoch)
	require.Equal(t, uint64(99), *clone.Epoch)
}
