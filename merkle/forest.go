// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package merkle

import (
	"context"
	"errors"

	"github.com/luxfi/log"
	"github.com/luxfi/shieldpool/field"
)

// ChunkSize is the number of leaves stored per on-chain storage unit that
// Sync reads from.
const ChunkSize = 256

// lookbackEpochs is how many epochs before the active one Sync refreshes
// alongside it.
const lookbackEpochs = 5

var ErrUnknownEpoch = errors.New("merkle: unknown epoch")

// EpochHeader is the on-chain metadata for one epoch, as read by a
// ChainReader.
type EpochHeader struct {
	State     EpochState
	FinalRoot *field.Element
}

// ChainReader is the narrow boundary the forest consumes to reconstruct
// trees from on-chain chunked leaf storage. Implementations live outside
// this package; the forest only ever reads through this interface.
type ChainReader interface {
	EpochHeader(ctx context.Context, epoch uint64) (EpochHeader, error)
	// LeafChunk returns the leaves stored in chunk index `chunk` of epoch,
	// or an empty slice if the chunk does not exist yet.
	LeafChunk(ctx context.Context, epoch uint64, chunk uint32) ([]field.Element, error)
	// ChunkCount reports how many chunks are known for epoch.
	ChunkCount(ctx context.Context, epoch uint64) (uint32, error)
}

// EpochForest indexes EpochTrees by epoch number and tracks the currently
// active epoch.
type EpochForest struct {
	trees       map[uint64]*EpochTree
	activeEpoch uint64
	reader      ChainReader
	log         log.Logger
}

// NewEpochForest constructs an empty forest backed by reader for Sync.
func NewEpochForest(reader ChainReader, logger log.Logger) *EpochForest {
	return &EpochForest{
		trees:  make(map[uint64]*EpochTree),
		reader: reader,
		log:    logger,
	}
}

// GetOrCreate returns the tree for epoch, creating an empty Active one if
// absent.
func (f *EpochForest) GetOrCreate(epoch uint64) *EpochTree {
	if t, ok := f.trees[epoch]; ok {
		return t
	}
	t := NewEpochTree(epoch)
	f.trees[epoch] = t
	return t
}

// ActiveEpoch returns the forest's current notion of the active epoch.
func (f *EpochForest) ActiveEpoch() uint64 { return f.activeEpoch }

// SetActiveEpoch updates the forest's active epoch pointer, used by
// EpochRollover handling.
func (f *EpochForest) SetActiveEpoch(epoch uint64) { f.activeEpoch = epoch }

// Tree returns the tree for epoch if known.
func (f *EpochForest) Tree(epoch uint64) (*EpochTree, bool) {
	t, ok := f.trees[epoch]
	return t, ok
}

// Sync refreshes the active epoch and the lookbackEpochs epochs before it.
func (f *EpochForest) Sync(ctx context.Context) error {
	epochs := []uint64{f.activeEpoch}
	for i := uint64(1); i <= lookbackEpochs && i <= f.activeEpoch; i++ {
		epochs = append(epochs, f.activeEpoch-i)
	}
	for _, e := range epochs {
		if err := f.SyncEpoch(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// SyncEpoch refreshes exactly one epoch's tree from chunked on-chain leaf
// storage. Syncing an epoch the chain has no header for yields an empty
// tree rather than an error.
func (f *EpochForest) SyncEpoch(ctx context.Context, epoch uint64) error {
	header, err := f.reader.EpochHeader(ctx, epoch)
	if err != nil {
		f.log.Debug("epoch header unavailable, leaving tree empty", "epoch", epoch, "err", err)
		f.trees[epoch] = NewEpochTree(epoch)
		return nil
	}

	chunkCount, err := f.reader.ChunkCount(ctx, epoch)
	if err != nil {
		return err
	}

	tree := NewEpochTree(epoch)
	for c := uint32(0); c < chunkCount; c++ {
		leaves, err := f.reader.LeafChunk(ctx, epoch, c)
		if err != nil {
			return err
		}
		if uint32(len(leaves)) > ChunkSize {
			return ErrCorruptChunk
		}
		if err := tree.InsertMany(leaves); err != nil {
			return err
		}
	}

	switch header.State {
	case Finalized:
		if header.FinalRoot != nil {
			tree.Finalize(*header.FinalRoot)
		} else {
			tree.State = Finalized
		}
	case Frozen:
		tree.Freeze()
	}

	f.trees[epoch] = tree
	f.log.Debug("synced epoch tree", "epoch", epoch, "leaves", tree.NextIndex, "state", tree.State.String())
	return nil
}

// FindCommitment searches all known trees for a leaf equal to cm, returning
// its (epoch, leaf_index) if found.
func (f *EpochForest) FindCommitment(cm field.Element) (epoch uint64, leafIndex uint32, found bool) {
	for e, tree := range f.trees {
		for idx, leaf := range tree.Leaves {
			if leaf == cm {
				return e, idx, true
			}
		}
	}
	return 0, 0, false
}
