// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package witness

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"github.com/luxfi/shieldpool/merkle"
)

var (
	ErrExpiredEpoch = errors.New("witness: input epoch is already expired")
	ErrDoubleSpend  = errors.New("witness: input nullifier marker already exists")
)

// NullifierMarkerProbe reports whether a nullifier marker for (pool, epoch,
// nullifier) already exists on chain — the double-spend check.
type NullifierMarkerProbe interface {
	NullifierMarkerExists(pool [32]byte, epoch uint64, nullifier [32]byte) (bool, error)
}

// InputRef is one spent note's routing context for request assembly.
type InputRef struct {
	Epoch     uint64
	HasEpoch  bool
	LeafIndex *uint32
	Nullifier [32]byte
	Expired   bool
}

// OutputRef is one newly created note's routing context.
type OutputRef struct {
	Epoch         uint64
	NextLeafIndex uint32
}

// Request is the on-chain-bound payload RequestBuilder assembles.
type Request struct {
	Proof                *Proof
	CircuitKind          CircuitKind
	PoolID               [32]byte
	EpochTreeAddresses   map[uint64][32]byte
	NullifierMarkers     [][32]byte
	LeafChunkAddresses   [][32]byte
	OldEpochHandle       *[32]byte
	NewEpochHandle       *[32]byte
}

// RequestBuilder derives program addresses and performs the early-failure
// checks spec §4.G.4 requires before a request is ever submitted.
type RequestBuilder struct {
	poolID []byte
	probe  NullifierMarkerProbe
}

// NewRequestBuilder constructs a RequestBuilder for one pool.
func NewRequestBuilder(poolID [32]byte, probe NullifierMarkerProbe) *RequestBuilder {
	return &RequestBuilder{poolID: poolID[:], probe: probe}
}

func addressHash(parts ...[]byte) [32]byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// EpochTreeAddress derives the routing address for one epoch's tree.
func (b *RequestBuilder) EpochTreeAddress(epoch uint64) [32]byte {
	return addressHash(b.poolID, []byte("epoch-tree"), u64le(epoch))
}

// NullifierMarkerAddress derives the marker address for (pool, epoch,
// nullifier).
func (b *RequestBuilder) NullifierMarkerAddress(epoch uint64, nullifier [32]byte) [32]byte {
	return addressHash(b.poolID, []byte("nullifier-marker"), u64le(epoch), nullifier[:])
}

// LeafChunkAddress derives the chunk address an output's leaf will land in.
func (b *RequestBuilder) LeafChunkAddress(outputEpoch uint64, nextLeafIndex uint32) [32]byte {
	chunk := nextLeafIndex / merkle.ChunkSize
	return addressHash(b.poolID, []byte("leaf-chunk"), u64le(outputEpoch), u32le(chunk))
}

func u64le(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func u32le(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// CheckInput runs the early-failure checks for one spent note: epoch
// presence, expiry, and double-spend.
func (b *RequestBuilder) CheckInput(ref InputRef) error {
	if !ref.HasEpoch || ref.LeafIndex == nil {
		return ErrNoteMissingEpochOrIndex
	}
	if ref.Expired {
		return ErrExpiredEpoch
	}
	exists, err := b.probe.NullifierMarkerExists(toPoolID(b.poolID), ref.Epoch, ref.Nullifier)
	if err != nil {
		return err
	}
	if exists {
		return ErrDoubleSpend
	}
	return nil
}

func toPoolID(b []byte) [32]byte {
	var out [32]byte
	copy(out[:], b)
	return out
}

// DepositRequest is the on-chain-bound payload for a deposit, which
// carries no proof: deposits cannot double-spend and need no circuit.
type DepositRequest struct {
	PoolID           [32]byte
	Token            [32]byte
	Value            uint64
	Commitment       [32]byte
	EncNote          []byte
	EpochTreeAddress [32]byte
}

// AssembleDeposit builds the DepositRequest for a deposit of value into the
// given epoch's tree.
func (b *RequestBuilder) AssembleDeposit(token [32]byte, value uint64, commitment [32]byte, encNote []byte, epoch uint64) *DepositRequest {
	return &DepositRequest{
		PoolID:           toPoolID(b.poolID),
		Token:            token,
		Value:            value,
		Commitment:       commitment,
		EncNote:          encNote,
		EpochTreeAddress: b.EpochTreeAddress(epoch),
	}
}

// AssembleWithdraw builds the Request for a withdraw after a successful
// prove call.
func (b *RequestBuilder) AssembleWithdraw(proof *Proof, epoch uint64) *Request {
	return &Request{
		Proof:              proof,
		CircuitKind:        CircuitWithdraw,
		PoolID:             toPoolID(b.poolID),
		EpochTreeAddresses: map[uint64][32]byte{epoch: b.EpochTreeAddress(epoch)},
	}
}

// AssembleTransfer builds the Request for a transfer after a successful
// prove call, given the input nullifiers/epochs and output routing.
func (b *RequestBuilder) AssembleTransfer(proof *Proof, inputs []InputRef, outputs []OutputRef) *Request {
	req := &Request{
		Proof:              proof,
		CircuitKind:        CircuitTransfer,
		PoolID:             toPoolID(b.poolID),
		EpochTreeAddresses: make(map[uint64][32]byte),
	}
	for _, in := range inputs {
		req.EpochTreeAddresses[in.Epoch] = b.EpochTreeAddress(in.Epoch)
		req.NullifierMarkers = append(req.NullifierMarkers, b.NullifierMarkerAddress(in.Epoch, in.Nullifier))
	}
	for _, out := range outputs {
		req.EpochTreeAddresses[out.Epoch] = b.EpochTreeAddress(out.Epoch)
		req.LeafChunkAddresses = append(req.LeafChunkAddresses, b.LeafChunkAddress(out.Epoch, out.NextLeafIndex))
	}
	return req
}

// AssembleRenew builds the Request for a renew after a successful prove
// call.
func (b *RequestBuilder) AssembleRenew(proof *Proof, oldEpoch, newEpoch uint64, newOutput OutputRef) *Request {
	oldHandle := b.EpochTreeAddress(oldEpoch)
	newHandle := b.EpochTreeAddress(newEpoch)
	return &Request{
		Proof:       proof,
		CircuitKind: CircuitRenew,
		PoolID:      toPoolID(b.poolID),
		EpochTreeAddresses: map[uint64][32]byte{
			oldEpoch: oldHandle,
			newEpoch: newHandle,
		},
		LeafChunkAddresses: [][32]byte{b.LeafChunkAddress(newEpoch, newOutput.NextLeafIndex)},
		OldEpochHandle:     &oldHandle,
		NewEpochHandle:     &newHandle,
	}
}
