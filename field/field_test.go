// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package field

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromBytesRejectsOversize(t *testing.T) {
	_, err := FromBytes(make([]byte, 33))
	require.ErrorIs(t, err, ErrNotInField)
}

func TestFromUint64RoundTrip(t *testing.T) {
	e := FromUint64(42)
	require.Equal(t, big.NewInt(42), e.Big())
}

func TestFromBigReducesModulus(t *testing.T) {
	p := Modulus()
	overflow := new(big.Int).Add(p, big.NewInt(7))
	e := FromBig(overflow)
	require.Equal(t, big.NewInt(7), e.Big())
}
