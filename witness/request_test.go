// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package witness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeProbe struct {
	exists map[[32]byte]bool
}

func (f *fakeProbe) NullifierMarkerExists(_ [32]byte, _ uint64, nullifier [32]byte) (bool, error) {
	return f.exists[nullifier], nil
}

func TestCheckInputRejectsMissingEpoch(t *testing.T) {
	b := NewRequestBuilder([32]byte{1}, &fakeProbe{})
	err := b.CheckInput(InputRef{HasEpoch: false})
	require.ErrorIs(t, err, ErrNoteMissingEpochOrIndex)
}

func TestCheckInputRejectsExpired(t *testing.T) {
	idx := uint32(0)
	b := NewRequestBuilder([32]byte{1}, &fakeProbe{})
	err := b.CheckInput(InputRef{HasEpoch: true, LeafIndex: &idx, Expired: true})
	require.ErrorIs(t, err, ErrExpiredEpoch)
}

func TestCheckInputRejectsDoubleSpend(t *testing.T) {
	idx := uint32(0)
	nullifier := [32]byte{7}
	b := NewRequestBuilder([32]byte{1}, &fakeProbe{exists: map[[32]byte]bool{nullifier: true}})
	err := b.CheckInput(InputRef{HasEpoch: true, LeafIndex: &idx, Nullifier: nullifier})
	require.ErrorIs(t, err, ErrDoubleSpend)
}

func TestAssembleTransferDerivesAddressesForAllEpochs(t *testing.T) {
	b := NewRequestBuilder([32]byte{1}, &fakeProbe{})
	proof := &Proof{}

	req := b.AssembleTransfer(proof, []InputRef{
		{Epoch: 1, Nullifier: [32]byte{2}},
		{Epoch: 2, Nullifier: [32]byte{3}},
	}, []OutputRef{
		{Epoch: 3, NextLeafIndex: 0},
	})

	require.Len(t, req.EpochTreeAddresses, 3)
	require.Len(t, req.NullifierMarkers, 2)
	require.Len(t, req.LeafChunkAddresses, 1)
}

func TestEpochTreeAddressIsDeterministic(t *testing.T) {
	b := NewRequestBuilder([32]byte{1}, &fakeProbe{})
	require.Equal(t, b.EpochTreeAddress(5), b.EpochTreeAddress(5))
	require.NotEqual(t, b.EpochTreeAddress(5), b.EpochTreeAddress(6))
}
