// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package merkle

import (
	"context"
	"testing"

	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/shieldpool/field"
)

type fakeChainReader struct {
	headers map[uint64]EpochHeader
	chunks  map[uint64][][]field.Element
}

func (f *fakeChainReader) EpochHeader(_ context.Context, epoch uint64) (EpochHeader, error) {
	h, ok := f.headers[epoch]
	if !ok {
		return EpochHeader{}, ErrUnknownEpoch
	}
	return h, nil
}

func (f *fakeChainReader) ChunkCount(_ context.Context, epoch uint64) (uint32, error) {
	return uint32(len(f.chunks[epoch])), nil
}

func (f *fakeChainReader) LeafChunk(_ context.Context, epoch uint64, chunk uint32) ([]field.Element, error) {
	chunks := f.chunks[epoch]
	if int(chunk) >= len(chunks) {
		return nil, nil
	}
	return chunks[chunk], nil
}

func newTestForest(reader ChainReader) *EpochForest {
	return NewEpochForest(reader, log.NewTestLogger(log.InfoLevel))
}

func TestSyncEpochReconstructsFromChunks(t *testing.T) {
	reader := &fakeChainReader{
		headers: map[uint64]EpochHeader{1: {State: Active}},
		chunks: map[uint64][][]field.Element{
			1: {{leafFor(1), leafFor(2)}},
		},
	}
	forest := newTestForest(reader)

	err := forest.SyncEpoch(context.Background(), 1)
	require.NoError(t, err)

	tree, ok := forest.Tree(1)
	require.True(t, ok)
	require.Equal(t, uint32(2), tree.NextIndex)
}

func TestSyncEpochUnknownYieldsEmptyTree(t *testing.T) {
	reader := &fakeChainReader{headers: map[uint64]EpochHeader{}}
	forest := newTestForest(reader)

	err := forest.SyncEpoch(context.Background(), 42)
	require.NoError(t, err)

	tree, ok := forest.Tree(42)
	require.True(t, ok)
	require.Equal(t, uint32(0), tree.NextIndex)
}

func TestSyncEpochAppliesFinalRoot(t *testing.T) {
	root := leafFor(55)
	reader := &fakeChainReader{
		headers: map[uint64]EpochHeader{1: {State: Finalized, FinalRoot: &root}},
		chunks:  map[uint64][][]field.Element{1: {{leafFor(1)}}},
	}
	forest := newTestForest(reader)

	require.NoError(t, forest.SyncEpoch(context.Background(), 1))
	tree, _ := forest.Tree(1)
	require.Equal(t, Finalized, tree.State)
	require.Equal(t, root, tree.ComputeRoot())
}

func TestSyncEpochRejectsCorruptChunk(t *testing.T) {
	oversized := make([]field.Element, ChunkSize+1)
	reader := &fakeChainReader{
		headers: map[uint64]EpochHeader{1: {State: Active}},
		chunks:  map[uint64][][]field.Element{1: {oversized}},
	}
	forest := newTestForest(reader)

	err := forest.SyncEpoch(context.Background(), 1)
	require.ErrorIs(t, err, ErrCorruptChunk)
}

func TestFindCommitmentSearchesAllTrees(t *testing.T) {
	reader := &fakeChainReader{
		headers: map[uint64]EpochHeader{1: {State: Active}},
		chunks:  map[uint64][][]field.Element{1: {{leafFor(1), leafFor(2)}}},
	}
	forest := newTestForest(reader)
	require.NoError(t, forest.SyncEpoch(context.Background(), 1))

	epoch, idx, found := forest.FindCommitment(leafFor(2))
	require.True(t, found)
	require.Equal(t, uint64(1), epoch)
	require.Equal(t, uint32(1), idx)

	_, _, found = forest.FindCommitment(leafFor(250))
	require.False(t, found)
}
