// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package field implements BN254 scalar-field arithmetic and the
// fixed-parameter Poseidon permutation used throughout shieldpool for
// commitments, nullifiers, and Merkle tree nodes.
package field

import (
	"errors"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

var (
	// ErrUnsupportedWidth is returned when a caller asks for a Poseidon
	// width outside {2,3,4}.
	ErrUnsupportedWidth = errors.New("field: unsupported poseidon width")
	// ErrNotInField is returned when an input cannot be interpreted as a
	// BN254 scalar (e.g. more than 32 bytes).
	ErrNotInField = errors.New("field: value exceeds 32 bytes")
)

// Element is a BN254 scalar field element, serialized big-endian.
type Element [32]byte

// Zero is the additive identity.
var Zero = Element{}

// FromBytes reduces up to 32 big-endian bytes modulo p and returns the
// canonical 32-byte representation. Longer inputs are rejected.
func FromBytes(b []byte) (Element, error) {
	if len(b) > 32 {
		return Element{}, ErrNotInField
	}
	var e fr.Element
	e.SetBytes(b)
	return Element(e.Bytes()), nil
}

// FromUint64 encodes a u64 as a field element with the value in the low
// bytes of a 32-byte big-endian buffer.
func FromUint64(v uint64) Element {
	var e fr.Element
	e.SetUint64(v)
	return Element(e.Bytes())
}

// FromBig reduces a big.Int modulo p.
func FromBig(v *big.Int) Element {
	var e fr.Element
	e.SetBigInt(v)
	return Element(e.Bytes())
}

// Big returns the element as a big.Int in [0, p).
func (e Element) Big() *big.Int {
	var fe fr.Element
	fe.SetBytes(e[:])
	out := new(big.Int)
	fe.BigInt(out)
	return out
}

// Bytes returns the canonical 32-byte big-endian encoding.
func (e Element) Bytes() [32]byte {
	return e
}

func (e Element) toFr() fr.Element {
	var fe fr.Element
	fe.SetBytes(e[:])
	return fe
}

func fromFr(fe fr.Element) Element {
	return Element(fe.Bytes())
}

// Modulus returns the BN254 scalar field prime.
func Modulus() *big.Int {
	return fr.Modulus()
}
