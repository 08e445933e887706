// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package witness

import (
	"errors"

	"github.com/luxfi/shieldpool/field"
	"github.com/luxfi/shieldpool/merkle"
	"github.com/luxfi/shieldpool/notes"
)

var ErrNoteMissingEpochOrIndex = errors.New("witness: input note lacks epoch or leaf index")

// Builder constructs circuit signals from notes, Merkle proofs, and chain
// context, honoring the configured Merkle proof orientation and index
// convention.
type Builder struct {
	cfg Config
}

// NewBuilder constructs a Builder with the given configuration.
func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg}
}

// WithdrawParams is everything BuildWithdraw needs beyond the spent note.
type WithdrawParams struct {
	Note         *notes.Note
	Proof        *merkle.MerkleProof
	NullifierKey [32]byte
	Recipient    [32]byte
	PoolID       [32]byte
	ChainID      field.Element
	TxAnchor     field.Element
}

// BuildWithdraw assembles the withdraw circuit's private and public
// signals.
func (b *Builder) BuildWithdraw(p WithdrawParams) (*WithdrawSignals, error) {
	if p.Note.Epoch == nil || p.Note.LeafIndex == nil {
		return nil, ErrNoteMissingEpochOrIndex
	}

	ownerField, err := field.FromBytes(p.Note.Owner[:])
	if err != nil {
		return nil, err
	}
	randomnessField, err := field.FromBytes(p.Note.Randomness[:])
	if err != nil {
		return nil, err
	}
	nullifierKeyField, err := field.FromBytes(p.NullifierKey[:])
	if err != nil {
		return nil, err
	}
	recipientField, err := field.FromBytes(p.Recipient[:])
	if err != nil {
		return nil, err
	}

	input := buildInputSignal(ownerField, randomnessField, nullifierKeyField, p.Note.Value, *p.Note.LeafIndex, p.Proof, b.cfg)

	nullifier, err := notes.ComputeNullifier(p.Note.Commitment, p.NullifierKey, *p.Note.Epoch, *p.Note.LeafIndex)
	if err != nil {
		return nil, err
	}
	nullifierField, err := field.FromBytes(nullifier[:])
	if err != nil {
		return nil, err
	}

	sig := &WithdrawSignals{
		Value:        p.Note.Value,
		Recipient:    recipientField,
		Owner:        ownerField,
		Randomness:   randomnessField,
		NullifierKey: nullifierKeyField,
		Input:        input,
	}
	sig.Public = [7]field.Element{
		p.Proof.Root,
		nullifierField,
		field.FromUint64(p.Note.Value),
		field.FromUint64(*p.Note.Epoch),
		p.TxAnchor,
		reducePoolID(p.PoolID),
		p.ChainID,
	}
	return sig, nil
}

// RenewParams is everything BuildRenew needs.
type RenewParams struct {
	Note          *notes.Note
	Proof         *merkle.MerkleProof
	NullifierKey  [32]byte
	NewRandomness [32]byte
	NewEpoch      uint64
	PoolID        [32]byte
	ChainID       field.Element
	TxAnchor      field.Element
}

// BuildRenew assembles the renew circuit's private and public signals.
func (b *Builder) BuildRenew(p RenewParams) (*RenewSignals, error) {
	if p.Note.Epoch == nil || p.Note.LeafIndex == nil {
		return nil, ErrNoteMissingEpochOrIndex
	}

	ownerField, err := field.FromBytes(p.Note.Owner[:])
	if err != nil {
		return nil, err
	}
	oldRandomnessField, err := field.FromBytes(p.Note.Randomness[:])
	if err != nil {
		return nil, err
	}
	newRandomnessField, err := field.FromBytes(p.NewRandomness[:])
	if err != nil {
		return nil, err
	}
	nullifierKeyField, err := field.FromBytes(p.NullifierKey[:])
	if err != nil {
		return nil, err
	}

	input := buildInputSignal(ownerField, oldRandomnessField, nullifierKeyField, p.Note.Value, *p.Note.LeafIndex, p.Proof, b.cfg)

	oldNullifier, err := notes.ComputeNullifier(p.Note.Commitment, p.NullifierKey, *p.Note.Epoch, *p.Note.LeafIndex)
	if err != nil {
		return nil, err
	}
	oldNullifierField, err := field.FromBytes(oldNullifier[:])
	if err != nil {
		return nil, err
	}

	newCommitment := notes.ComputeCommitment(p.Note.Value, p.Note.Owner, p.NewRandomness)
	newCommitmentField, err := field.FromBytes(newCommitment[:])
	if err != nil {
		return nil, err
	}

	sig := &RenewSignals{
		Value:         p.Note.Value,
		Owner:         ownerField,
		OldRandomness: oldRandomnessField,
		NewRandomness: newRandomnessField,
		NullifierKey:  nullifierKeyField,
		Input:         input,
	}
	sig.Public = [8]field.Element{
		p.Proof.Root,
		oldNullifierField,
		newCommitmentField,
		field.FromUint64(*p.Note.Epoch),
		field.FromUint64(p.NewEpoch),
		p.TxAnchor,
		reducePoolID(p.PoolID),
		p.ChainID,
	}
	return sig, nil
}

// TransferParams is everything BuildTransfer needs. Exactly one or two of
// Inputs/Outputs may be real; the rest are filled with the canonical dummy.
type TransferParams struct {
	Inputs       []TransferInput
	Outputs      []TransferOutput
	NullifierKey [32]byte
	MerkleRoot   field.Element
	PoolID       [32]byte
	ChainID      field.Element
	TxAnchor     field.Element
}

// BuildTransfer assembles the transfer circuit's private and public
// signals, padding missing inputs/outputs with the canonical dummy note.
func (b *Builder) BuildTransfer(p TransferParams) (*TransferSignals, error) {
	if len(p.Inputs) == 0 || len(p.Inputs) > 2 {
		return nil, errors.New("witness: transfer requires one or two inputs")
	}
	if len(p.Outputs) == 0 || len(p.Outputs) > 2 {
		return nil, errors.New("witness: transfer requires one or two outputs")
	}

	nullifierKeyField, err := field.FromBytes(p.NullifierKey[:])
	if err != nil {
		return nil, err
	}

	sig := &TransferSignals{}
	var nullifiers [2]field.Element

	for i := 0; i < 2; i++ {
		if i >= len(p.Inputs) || p.Inputs[i].IsDummy {
			sig.Inputs[i] = dummyInput
			sig.IsDummyInput[i] = true
			nullifiers[i] = field.Zero
			continue
		}
		in := p.Inputs[i]
		sig.Inputs[i] = buildInputSignal(in.Owner, in.Randomness, nullifierKeyField, in.Value, in.LeafIndex, in.Proof, b.cfg)

		nullifier, err := notes.ComputeNullifier(in.Commitment, p.NullifierKey, in.Epoch, in.LeafIndex)
		if err != nil {
			return nil, err
		}
		nullifierField, err := field.FromBytes(nullifier[:])
		if err != nil {
			return nil, err
		}
		nullifiers[i] = nullifierField
	}

	for i := 0; i < 2; i++ {
		if i >= len(p.Outputs) || p.Outputs[i].IsDummy {
			sig.IsDummyOutput[i] = true
			continue
		}
		out := p.Outputs[i]
		sig.Outputs[i].Value = out.Value
		sig.Outputs[i].Owner = out.Owner
		sig.Outputs[i].Randomness = out.Randomness
	}

	var commitments [2]field.Element
	for i := 0; i < 2; i++ {
		if sig.IsDummyOutput[i] {
			commitments[i] = field.Zero
			continue
		}
		c := field.ComputeCommitment(field.FromUint64(sig.Outputs[i].Value), sig.Outputs[i].Owner, sig.Outputs[i].Randomness)
		commitments[i] = c
	}

	sig.Public = [8]field.Element{
		p.MerkleRoot,
		nullifiers[0],
		nullifiers[1],
		commitments[0],
		commitments[1],
		p.TxAnchor,
		reducePoolID(p.PoolID),
		p.ChainID,
	}
	return sig, nil
}
