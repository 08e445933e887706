// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package field

import (
	stdhash "hash"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"
)

// newSponge returns a fresh Poseidon2 Merkle-Damgard sponge over BN254's
// scalar field, using gnark-crypto's own canonical round constants and MDS
// matrix rather than a locally derived parameter set — the same
// construction the reference circuit uses, so commitments, nullifiers, and
// Merkle nodes stay consensus-compatible with it.
func newSponge() stdhash.Hash {
	return poseidon2.NewMerkleDamgardHasher()
}

func writeElement(h stdhash.Hash, e Element) {
	var fe fr.Element
	fe.SetBytes(e[:])
	b := fe.Bytes()
	h.Write(b[:])
}

func sumElement(h stdhash.Hash) Element {
	var fe fr.Element
	fe.SetBytes(h.Sum(nil))
	return fromFr(fe)
}

// HashBytes implements poseidon_hash_bytes: 1 to 3 big-endian byte inputs
// (each reduced modulo p), absorbed into the canonical Poseidon2 sponge in
// order. Output is the 32-byte big-endian digest.
func HashBytes(inputs ...[]byte) (Element, error) {
	if len(inputs) < 1 || len(inputs) > 3 {
		return Element{}, ErrUnsupportedWidth
	}
	h := newSponge()
	for _, in := range inputs {
		if len(in) > 32 {
			return Element{}, ErrNotInField
		}
		var fe fr.Element
		fe.SetBytes(in)
		b := fe.Bytes()
		h.Write(b[:])
	}
	return sumElement(h), nil
}

// HashElements is HashBytes over already-reduced Elements.
func HashElements(inputs ...Element) (Element, error) {
	raw := make([][]byte, len(inputs))
	for i, e := range inputs {
		b := e.Bytes()
		raw[i] = b[:]
	}
	return HashBytes(raw...)
}

// HashNodes is the Merkle tree combiner: the canonical Poseidon2 sponge
// applied to (left, right).
func HashNodes(left, right Element) Element {
	out, err := HashElements(left, right)
	if err != nil {
		// two inputs is always within HashElements' supported range.
		panic(err)
	}
	return out
}

// ComputeCommitment implements compute_commitment: Poseidon(value, owner,
// randomness) over the canonical sponge.
func ComputeCommitment(value, owner, randomness Element) Element {
	out, err := HashElements(value, owner, randomness)
	if err != nil {
		panic(err)
	}
	return out
}

// ComputeNullifierDirect hashes the four nullifier inputs (commitment,
// nullifier key, epoch, leaf index) over the same canonical sponge. Four
// inputs exceed HashElements' 3-input cap (reserved for the commitment and
// tree-node call sites), so this is its own entry point.
func ComputeNullifierDirect(a, b, c, d Element) (Element, error) {
	h := newSponge()
	writeElement(h, a)
	writeElement(h, b)
	writeElement(h, c)
	writeElement(h, d)
	return sumElement(h), nil
}
