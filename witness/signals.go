// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package witness

import (
	"github.com/luxfi/shieldpool/field"
	"github.com/luxfi/shieldpool/merkle"
)

// CircuitKind identifies which of the three circuits a Prover call targets.
type CircuitKind int

const (
	CircuitWithdraw CircuitKind = iota
	CircuitTransfer
	CircuitRenew
)

func (k CircuitKind) String() string {
	switch k {
	case CircuitWithdraw:
		return "withdraw"
	case CircuitTransfer:
		return "transfer"
	case CircuitRenew:
		return "renew"
	default:
		return "unknown"
	}
}

// inputSignal is the private-signal shape shared by one spent note across
// all three circuits.
type inputSignal struct {
	Value          uint64
	Owner          field.Element
	Randomness     field.Element
	NullifierKey   field.Element
	LeafIndex      uint32
	MerkleProof    [merkle.Depth]field.Element
	MerkleIndices  [merkle.Depth]int
}

func buildInputSignal(owner, randomness, nullifierKey field.Element, value uint64, leafIndex uint32, proof *merkle.MerkleProof, cfg Config) inputSignal {
	sig := inputSignal{
		Value:        value,
		Owner:        owner,
		Randomness:   randomness,
		NullifierKey: nullifierKey,
		LeafIndex:    leafIndex,
	}

	var indices [merkle.Depth]int
	for i := 0; i < merkle.Depth; i++ {
		bit := int((leafIndex >> uint(i)) & 1)
		if cfg.LeftIsOne {
			bit = 1 - bit
		}
		indices[i] = bit
	}

	siblings := proof.Siblings
	if cfg.MerkleOrder == TopDown {
		reverseElements(&siblings)
		reverseInts(&indices)
	}
	sig.MerkleProof = siblings
	sig.MerkleIndices = indices
	return sig
}

func reverseElements(a *[merkle.Depth]field.Element) {
	for i, j := 0, len(a)-1; i < j; i, j = i+1, j-1 {
		a[i], a[j] = a[j], a[i]
	}
}

func reverseInts(a *[merkle.Depth]int) {
	for i, j := 0, len(a)-1; i < j; i, j = i+1, j-1 {
		a[i], a[j] = a[j], a[i]
	}
}

// reducePoolID reduces a 32-byte pool identifier into the BN254 field.
func reducePoolID(poolID [32]byte) field.Element {
	e, err := field.FromBytes(poolID[:])
	if err != nil {
		// poolID is always exactly 32 bytes; unreachable.
		panic(err)
	}
	return e
}

// WithdrawSignals holds the private and public signals for the withdraw
// circuit.
type WithdrawSignals struct {
	// Private
	Value        uint64
	Recipient    field.Element
	Owner        field.Element
	Randomness   field.Element
	NullifierKey field.Element
	Input        inputSignal

	// Public, in normative order: merkle_root, nullifier, amount, epoch,
	// tx_anchor, pool_id, chain_id.
	Public [7]field.Element
}

// RenewSignals holds the private and public signals for the renew circuit.
type RenewSignals struct {
	Value         uint64
	Owner         field.Element
	OldRandomness field.Element
	NewRandomness field.Element
	NullifierKey  field.Element
	Input         inputSignal

	// Public, in normative order: old_root, nullifier, new_commitment,
	// old_epoch, new_epoch, tx_anchor, pool_id, chain_id.
	Public [8]field.Element
}

// dummyInput is the canonical zero-value stand-in used by the transfer
// circuit when a real second input/output is absent.
var dummyInput = inputSignal{}

// TransferInput is one spent note's contribution to a transfer.
type TransferInput struct {
	Value      uint64
	Owner      field.Element
	Randomness field.Element
	Commitment [32]byte
	Epoch      uint64
	LeafIndex  uint32
	Proof      *merkle.MerkleProof
	IsDummy    bool
}

// TransferOutput is one newly created note's contribution to a transfer.
type TransferOutput struct {
	Value      uint64
	Owner      field.Element
	Randomness field.Element
	IsDummy    bool
}

// TransferSignals holds the private and public signals for the transfer
// circuit.
type TransferSignals struct {
	Inputs  [2]inputSignal
	Outputs [2]struct {
		Value      uint64
		Owner      field.Element
		Randomness field.Element
	}
	IsDummyInput  [2]bool
	IsDummyOutput [2]bool

	// Public, in normative order: merkle_root, nullifier_1, nullifier_2,
	// output_commitment_1, output_commitment_2, tx_anchor, pool_id,
	// chain_id.
	Public [8]field.Element
}
