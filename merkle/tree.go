// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package merkle implements the per-epoch depth-12 sparse Merkle trees that
// back commitment inclusion proofs, and the forest that indexes them by
// epoch.
package merkle

import (
	"errors"

	"github.com/luxfi/shieldpool/field"
)

// Depth is the fixed tree depth; capacity is 2^Depth leaves per epoch.
const Depth = 12

// Capacity is the maximum number of leaves an EpochTree may hold.
const Capacity = 1 << Depth

// EpochState is the lifecycle stage of one epoch's tree.
type EpochState int

const (
	Active EpochState = iota
	Frozen
	Finalized
)

func (s EpochState) String() string {
	switch s {
	case Active:
		return "active"
	case Frozen:
		return "frozen"
	case Finalized:
		return "finalized"
	default:
		return "unknown"
	}
}

var (
	ErrEpochFull       = errors.New("merkle: epoch tree is at capacity")
	ErrEpochNotActive  = errors.New("merkle: epoch tree is not active")
	ErrUnknownLeaf     = errors.New("merkle: leaf index has no leaf")
	ErrCorruptChunk    = errors.New("merkle: chunk leaf count exceeds stored count")
)

// MerkleProof is an inclusion proof for one leaf, siblings ordered
// bottom-up: index 0 is the leaf's immediate sibling.
type MerkleProof struct {
	Leaf      field.Element
	LeafIndex uint32
	Epoch     uint64
	Siblings  [Depth]field.Element
	Root      field.Element
}

// EpochTree is one epoch's sparse Merkle tree of commitments.
type EpochTree struct {
	Epoch      uint64
	State      EpochState
	NextIndex  uint32
	Leaves     map[uint32]field.Element
	RootHistory []field.Element
	FinalRoot  *field.Element
}

// NewEpochTree returns an empty, Active tree for the given epoch.
func NewEpochTree(epoch uint64) *EpochTree {
	return &EpochTree{
		Epoch:  epoch,
		State:  Active,
		Leaves: make(map[uint32]field.Element),
	}
}

// insertLeaf places leaf at the tree's next free index without touching
// RootHistory; callers recompute and record the root themselves once they
// are done inserting.
func (t *EpochTree) insertLeaf(leaf field.Element) (uint32, error) {
	if t.State != Active {
		return 0, ErrEpochNotActive
	}
	if t.NextIndex >= Capacity {
		return 0, ErrEpochFull
	}

	idx := t.NextIndex
	t.Leaves[idx] = leaf
	t.NextIndex++
	return idx, nil
}

// Insert appends leaf at the tree's next free index. Only legal while the
// tree is Active and below capacity.
func (t *EpochTree) Insert(leaf field.Element) (uint32, field.Element, error) {
	idx, err := t.insertLeaf(leaf)
	if err != nil {
		return 0, field.Element{}, err
	}

	root := t.ComputeRoot()
	t.RootHistory = append(t.RootHistory, root)
	return idx, root, nil
}

// InsertMany inserts leaves in order, used when syncing chunked on-chain
// storage. Root recomputation is deferred to the end: all leaves land first,
// then a single root is computed and pushed to RootHistory, instead of one
// full O(Capacity) recomputation per leaf.
func (t *EpochTree) InsertMany(leaves []field.Element) error {
	for _, leaf := range leaves {
		if _, err := t.insertLeaf(leaf); err != nil {
			return err
		}
	}
	if len(leaves) == 0 {
		return nil
	}
	root := t.ComputeRoot()
	t.RootHistory = append(t.RootHistory, root)
	return nil
}

// ComputeRoot recombines the tree bottom-up. Missing right siblings use the
// precomputed zero-hash chain. FinalRoot, if set, overrides the computed
// value.
func (t *EpochTree) ComputeRoot() field.Element {
	if t.FinalRoot != nil {
		return *t.FinalRoot
	}
	return t.computeLiveRoot()
}

// computeLiveRoot recombines the tree from its current leaf set,
// independent of FinalRoot.
func (t *EpochTree) computeLiveRoot() field.Element {
	levelSize := Capacity
	level := make([]field.Element, levelSize)
	for i := 0; i < levelSize; i++ {
		if leaf, ok := t.Leaves[uint32(i)]; ok {
			level[i] = leaf
		} else {
			level[i] = field.ZeroHash(0)
		}
	}

	for d := 0; d < Depth; d++ {
		next := make([]field.Element, levelSize/2)
		for i := 0; i < levelSize/2; i++ {
			left := level[2*i]
			right := level[2*i+1]
			next[i] = field.HashNodes(left, right)
		}
		level = next
		levelSize /= 2
	}
	return level[0]
}

// GetProof produces a MerkleProof for leafIndex. Missing siblings at a given
// level use the zero-hash chain.
func (t *EpochTree) GetProof(leafIndex uint32) (*MerkleProof, error) {
	leaf, ok := t.Leaves[leafIndex]
	if !ok {
		return nil, ErrUnknownLeaf
	}

	proof := &MerkleProof{
		Leaf:      leaf,
		LeafIndex: leafIndex,
		Epoch:     t.Epoch,
	}

	levelSize := Capacity
	level := make([]field.Element, levelSize)
	for i := 0; i < levelSize; i++ {
		if l, ok := t.Leaves[uint32(i)]; ok {
			level[i] = l
		} else {
			level[i] = field.ZeroHash(0)
		}
	}

	idx := int(leafIndex)
	for d := 0; d < Depth; d++ {
		siblingIdx := idx ^ 1
		if siblingIdx < len(level) {
			proof.Siblings[d] = level[siblingIdx]
		} else {
			proof.Siblings[d] = field.ZeroHash(d)
		}

		next := make([]field.Element, levelSize/2)
		for i := 0; i < levelSize/2; i++ {
			next[i] = field.HashNodes(level[2*i], level[2*i+1])
		}
		level = next
		levelSize /= 2
		idx /= 2
	}

	proof.Root = t.ComputeRoot()
	return proof, nil
}

// VerifyProof recombines p.Leaf with p.Siblings using p.LeafIndex's bit
// pattern to choose left/right order at each level, and checks the result
// equals p.Root.
func VerifyProof(p *MerkleProof) bool {
	cur := p.Leaf
	idx := p.LeafIndex
	for d := 0; d < Depth; d++ {
		sibling := p.Siblings[d]
		if (idx>>uint(d))&1 == 0 {
			cur = field.HashNodes(cur, sibling)
		} else {
			cur = field.HashNodes(sibling, cur)
		}
	}
	return cur == p.Root
}

// IsKnownRoot reports whether r is the final root or appears anywhere in
// root history.
func (t *EpochTree) IsKnownRoot(r field.Element) bool {
	if t.FinalRoot != nil && *t.FinalRoot == r {
		return true
	}
	for _, known := range t.RootHistory {
		if known == r {
			return true
		}
	}
	return false
}

// Finalize freezes the tree's root, overriding all future ComputeRoot calls.
func (t *EpochTree) Finalize(root field.Element) {
	t.State = Finalized
	t.FinalRoot = &root
}

// Freeze transitions the tree out of Active without fixing a final root.
func (t *EpochTree) Freeze() {
	t.State = Frozen
}
