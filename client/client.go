// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package client orchestrates one wallet's deposit, withdraw, transfer, and
// renew flows across the key, note, Merkle forest, scanner, witness, and
// chain boundary packages, enforcing the ordering spec §5 requires: forest
// sync, note selection, witness build, prove, request assembly, submit,
// post-confirm rescan, forest re-sync.
package client

import (
	"context"
	"crypto/rand"
	"errors"
	"io"

	"github.com/luxfi/log"

	"github.com/luxfi/shieldpool/chain"
	"github.com/luxfi/shieldpool/field"
	"github.com/luxfi/shieldpool/keys"
	"github.com/luxfi/shieldpool/merkle"
	"github.com/luxfi/shieldpool/noteman"
	"github.com/luxfi/shieldpool/notes"
	"github.com/luxfi/shieldpool/scanner"
	"github.com/luxfi/shieldpool/witness"
)

var (
	ErrNoExactNote    = errors.New("client: no single confirmed note matches the withdraw amount exactly")
	ErrTooManyInputs  = errors.New("client: spend would require more than two notes; renew or consolidate first")
	ErrNothingToRenew = errors.New("client: no expiring notes to renew")
)

// Client wires one wallet's key material, note book, Merkle forest view,
// event scanner, and witness/proving pipeline to a chain.Reader/Submitter.
type Client struct {
	keys    *keys.Manager
	notes   *noteman.Manager
	forest  *merkle.EpochForest
	scanner *scanner.Scanner
	builder *witness.Builder
	prover  witness.Prover
	reqBuilder *witness.RequestBuilder

	reader    chain.Reader
	events    chain.EventSource
	submitter chain.Submitter

	poolID  [32]byte
	chainID field.Element
	cfg     witness.Config

	log log.Logger
}

// New wires a Client from its already-constructed dependencies. Callers
// build keyMgr/noteMgr/forest/scn/reqBuilder themselves so tests can swap
// in fakes for the chain boundary.
func New(
	keyMgr *keys.Manager,
	noteMgr *noteman.Manager,
	forest *merkle.EpochForest,
	scn *scanner.Scanner,
	prover witness.Prover,
	reqBuilder *witness.RequestBuilder,
	reader chain.Reader,
	events chain.EventSource,
	submitter chain.Submitter,
	poolID [32]byte,
	chainID field.Element,
	cfg witness.Config,
	logger log.Logger,
) *Client {
	return &Client{
		keys:       keyMgr,
		notes:      noteMgr,
		forest:     forest,
		scanner:    scn,
		builder:    witness.NewBuilder(cfg),
		prover:     prover,
		reqBuilder: reqBuilder,
		reader:     reader,
		events:     events,
		submitter:  submitter,
		poolID:     poolID,
		chainID:    chainID,
		cfg:        cfg,
		log:        logger,
	}
}

// Close flushes any pending debounced note-store save.
func (c *Client) Close(ctx context.Context) error {
	return c.notes.PersistNow(ctx)
}

func randomAnchor() (field.Element, error) {
	var buf [32]byte
	if _, err := io.ReadFull(rand.Reader, buf[:]); err != nil {
		return field.Element{}, err
	}
	return field.FromBytes(buf[:])
}

// Deposit creates a note of value in token owned by owner, seals it to
// viewingKey for later recovery by a scan, and submits it. It is safe to
// cancel ctx any time before Submit is called; a Deposit has no spent input
// to double-submit, so a retry after a cancellation is always safe too.
func (c *Client) Deposit(ctx context.Context, value uint64, token notes.AssetId, owner notes.ShieldedAddress, viewingKey [32]byte) (string, error) {
	n, err := c.notes.CreateNote(value, token, owner)
	if err != nil {
		return "", err
	}

	encNote, err := notes.Seal(n, viewingKey)
	if err != nil {
		return "", err
	}
	c.notes.AddPending(n)

	req := c.reqBuilder.AssembleDeposit(token, value, n.Commitment, encNote, c.forest.ActiveEpoch())
	sig, err := c.submitter.SubmitDeposit(ctx, req)
	if err != nil {
		return "", err
	}

	c.postSubmit(ctx, sig)
	return sig, nil
}

// findExactNote selects a single spendable confirmed note whose value
// equals amount — the withdraw circuit spends exactly one note and produces
// no change output, so a partial-value withdraw requires a prior Transfer
// to split the note.
func (c *Client) findExactNote(amount uint64) (*notes.Note, error) {
	selected, err := c.notes.SelectForSpend(amount, 1)
	if err != nil {
		return nil, err
	}
	if len(selected) != 1 || selected[0].Value != amount {
		return nil, ErrNoExactNote
	}
	return selected[0], nil
}

func (c *Client) proofFor(n *notes.Note) (*merkle.MerkleProof, error) {
	tree, ok := c.forest.Tree(*n.Epoch)
	if !ok {
		return nil, merkle.ErrUnknownEpoch
	}
	return tree.GetProof(*n.LeafIndex)
}

func inputRefFor(n *notes.Note) witness.InputRef {
	ref := witness.InputRef{
		HasEpoch:  n.Epoch != nil,
		LeafIndex: n.LeafIndex,
		Nullifier: n.Nullifier,
		Expired:   n.Expired,
	}
	if n.Epoch != nil {
		ref.Epoch = *n.Epoch
	}
	return ref
}

// Withdraw spends one exact-value note to an external recipient. Safe to
// cancel any time before Submit; after Submit returns, the note is
// considered consumed and must not be offered to another Withdraw/Transfer
// call until a rescan either confirms the spend or the submission is known
// to have failed on-chain.
func (c *Client) Withdraw(ctx context.Context, amount uint64, recipient [32]byte) (string, error) {
	if err := c.forest.Sync(ctx); err != nil {
		return "", err
	}

	n, err := c.findExactNote(amount)
	if err != nil {
		return "", err
	}

	if err := c.reqBuilder.CheckInput(inputRefFor(n)); err != nil {
		return "", err
	}

	proof, err := c.proofFor(n)
	if err != nil {
		return "", err
	}
	anchor, err := randomAnchor()
	if err != nil {
		return "", err
	}

	signals, err := c.builder.BuildWithdraw(witness.WithdrawParams{
		Note:         n,
		Proof:        proof,
		NullifierKey: c.keys.NullifierKey(),
		Recipient:    recipient,
		PoolID:       c.poolID,
		ChainID:      c.chainID,
		TxAnchor:     anchor,
	})
	if err != nil {
		return "", err
	}

	zkProof, err := c.prover.Prove(ctx, witness.CircuitWithdraw, signals.Public[:], signals)
	if err != nil {
		return "", err
	}

	req := c.reqBuilder.AssembleWithdraw(zkProof, *n.Epoch)
	sig, err := c.submitter.Submit(ctx, req)
	if err != nil {
		return "", err
	}

	if err := c.notes.MarkSpent(n.Commitment); err != nil {
		c.log.Warn("withdraw submitted but local note was already unmarked", "err", err)
	}
	c.postSubmit(ctx, sig)
	return sig, nil
}

// Transfer spends one or two confirmed notes totaling at least amount to a
// new shielded output for recipient, returning any change as a second
// output owned by the caller. Cancellation safety matches Withdraw.
//
// The Transfer event carries no encrypted note payload (unlike Deposit), so
// the new output commitment is only discoverable by the recipient out of
// band: Transfer returns the note sealed to recipientViewingKey for the
// caller to deliver alongside the transaction signature.
func (c *Client) Transfer(ctx context.Context, amount uint64, token notes.AssetId, recipient notes.ShieldedAddress, recipientViewingKey [32]byte, selfViewingKey [32]byte) (signature string, sealedRecipientNote []byte, err error) {
	if err := c.forest.Sync(ctx); err != nil {
		return "", nil, err
	}

	selected, err := c.notes.SelectForSpend(amount, 1)
	if err != nil {
		return "", nil, err
	}
	if len(selected) > 2 {
		return "", nil, ErrTooManyInputs
	}

	var sum uint64
	inputs := make([]witness.TransferInput, 0, 2)
	inputRefs := make([]witness.InputRef, 0, 2)
	for _, n := range selected {
		if err := c.reqBuilder.CheckInput(inputRefFor(n)); err != nil {
			return "", nil, err
		}
		proof, err := c.proofFor(n)
		if err != nil {
			return "", nil, err
		}
		ownerField, err := field.FromBytes(n.Owner[:])
		if err != nil {
			return "", nil, err
		}
		randField, err := field.FromBytes(n.Randomness[:])
		if err != nil {
			return "", nil, err
		}
		inputs = append(inputs, witness.TransferInput{
			Value:      n.Value,
			Owner:      ownerField,
			Randomness: randField,
			Commitment: n.Commitment,
			Epoch:      *n.Epoch,
			LeafIndex:  *n.LeafIndex,
			Proof:      proof,
		})
		inputRefs = append(inputRefs, inputRefFor(n))
		sum += n.Value
	}

	change := sum - amount

	var recipientRandBytes [32]byte
	if _, err := io.ReadFull(rand.Reader, recipientRandBytes[:]); err != nil {
		return "", nil, err
	}
	recipientNote := notes.New(amount, token, recipient, recipientRandBytes, "")
	recipientField, err := field.FromBytes(recipient[:])
	if err != nil {
		return "", nil, err
	}
	recipientRandField, err := field.FromBytes(recipientRandBytes[:])
	if err != nil {
		return "", nil, err
	}
	outputs := []witness.TransferOutput{{Value: amount, Owner: recipientField, Randomness: recipientRandField}}

	var changeNote *notes.Note
	if change > 0 {
		var changeRandBytes [32]byte
		if _, err := io.ReadFull(rand.Reader, changeRandBytes[:]); err != nil {
			return "", nil, err
		}
		selfOwner := c.keys.ShieldedAddress()
		changeNote = notes.New(change, token, selfOwner, changeRandBytes, "")
		changeOwnerField, err := field.FromBytes(selfOwner[:])
		if err != nil {
			return "", nil, err
		}
		changeRandField, err := field.FromBytes(changeRandBytes[:])
		if err != nil {
			return "", nil, err
		}
		outputs = append(outputs, witness.TransferOutput{Value: change, Owner: changeOwnerField, Randomness: changeRandField})
	}

	merkleRoot := field.Zero
	if len(selected) > 0 {
		if tree, ok := c.forest.Tree(*selected[0].Epoch); ok {
			merkleRoot = tree.ComputeRoot()
		}
	}
	anchor, err := randomAnchor()
	if err != nil {
		return "", nil, err
	}

	signals, err := c.builder.BuildTransfer(witness.TransferParams{
		Inputs:       inputs,
		Outputs:      outputs,
		NullifierKey: c.keys.NullifierKey(),
		MerkleRoot:   merkleRoot,
		PoolID:       c.poolID,
		ChainID:      c.chainID,
		TxAnchor:     anchor,
	})
	if err != nil {
		return "", nil, err
	}

	zkProof, err := c.prover.Prove(ctx, witness.CircuitTransfer, signals.Public[:], signals)
	if err != nil {
		return "", nil, err
	}

	activeEpoch := c.forest.ActiveEpoch()
	outputRefs := []witness.OutputRef{{Epoch: activeEpoch, NextLeafIndex: c.forest.GetOrCreate(activeEpoch).NextIndex}}
	if changeNote != nil {
		outputRefs = append(outputRefs, witness.OutputRef{Epoch: activeEpoch, NextLeafIndex: c.forest.GetOrCreate(activeEpoch).NextIndex + 1})
	}

	req := c.reqBuilder.AssembleTransfer(zkProof, inputRefs, outputRefs)
	sig, err := c.submitter.Submit(ctx, req)
	if err != nil {
		return "", nil, err
	}

	for _, n := range selected {
		if err := c.notes.MarkSpent(n.Commitment); err != nil {
			c.log.Warn("transfer submitted but local input note was already unmarked", "err", err)
		}
	}
	if changeNote != nil {
		c.notes.AddPending(changeNote)
	}

	sealed, err := notes.Seal(recipientNote, recipientViewingKey)
	if err != nil {
		return "", nil, err
	}

	c.postSubmit(ctx, sig)
	return sig, sealed, nil
}

// Renew re-commits each of up to maxNotes expiring notes under a fresh
// randomness in the active epoch, returning the submitted signatures in
// selection order. A failure partway through leaves earlier renewals
// already submitted; callers should treat Renew as best-effort over its
// selection, not atomic.
func (c *Client) Renew(ctx context.Context, maxNotes int) ([]string, error) {
	if err := c.forest.Sync(ctx); err != nil {
		return nil, err
	}

	expiring := c.notes.SelectForRenewal(maxNotes)
	if len(expiring) == 0 {
		return nil, ErrNothingToRenew
	}

	var sigs []string
	for _, n := range expiring {
		sig, err := c.renewOne(ctx, n)
		if err != nil {
			return sigs, err
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

func (c *Client) renewOne(ctx context.Context, n *notes.Note) (string, error) {
	if err := c.reqBuilder.CheckInput(inputRefFor(n)); err != nil {
		return "", err
	}
	proof, err := c.proofFor(n)
	if err != nil {
		return "", err
	}

	var newRandomness [32]byte
	if _, err := io.ReadFull(rand.Reader, newRandomness[:]); err != nil {
		return "", err
	}
	newEpoch := c.forest.ActiveEpoch()
	anchor, err := randomAnchor()
	if err != nil {
		return "", err
	}

	signals, err := c.builder.BuildRenew(witness.RenewParams{
		Note:          n,
		Proof:         proof,
		NullifierKey:  c.keys.NullifierKey(),
		NewRandomness: newRandomness,
		NewEpoch:      newEpoch,
		PoolID:        c.poolID,
		ChainID:       c.chainID,
		TxAnchor:      anchor,
	})
	if err != nil {
		return "", err
	}

	zkProof, err := c.prover.Prove(ctx, witness.CircuitRenew, signals.Public[:], signals)
	if err != nil {
		return "", err
	}

	nextIndex := c.forest.GetOrCreate(newEpoch).NextIndex
	req := c.reqBuilder.AssembleRenew(zkProof, *n.Epoch, newEpoch, witness.OutputRef{Epoch: newEpoch, NextLeafIndex: nextIndex})
	sig, err := c.submitter.Submit(ctx, req)
	if err != nil {
		return "", err
	}

	if err := c.notes.MarkSpent(n.Commitment); err != nil {
		c.log.Warn("renew submitted but local note was already unmarked", "err", err)
	}
	renewed := notes.New(n.Value, n.Token, n.Owner, newRandomness, n.Memo)
	c.notes.AddPending(renewed)

	c.postSubmit(ctx, sig)
	return sig, nil
}

// postSubmit replays the just-submitted transaction's own events so
// freshly confirmed commitments and spent nullifiers are reflected locally
// without waiting for the next full rescan, then re-syncs the forest so
// later calls see the updated tree.
func (c *Client) postSubmit(ctx context.Context, signature string) {
	if c.events != nil {
		if err := c.scanner.Rescan(ctx, c.events, signature); err != nil {
			c.log.Warn("post-submit rescan failed", "signature", signature, "err", err)
		}
	}
	if err := c.forest.Sync(ctx); err != nil {
		c.log.Warn("post-submit forest re-sync failed", "err", err)
	}
}
