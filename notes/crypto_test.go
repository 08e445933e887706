// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package notes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	n := New(1234, AssetId{0xAA}, testOwner(1), testRandomness(2), "hello")

	data, err := n.Serialize()
	require.NoError(t, err)
	require.Len(t, data, fixedFieldsLen+len("hello"))

	back, err := Deserialize(data)
	require.NoError(t, err)
	require.Equal(t, n.Value, back.Value)
	require.Equal(t, n.Token, back.Token)
	require.Equal(t, n.Owner, back.Owner)
	require.Equal(t, n.Blinding, back.Blinding)
	require.Equal(t, n.Memo, back.Memo)
	require.Equal(t, n.Commitment, back.Commitment)
}

func TestSerializeRejectsOversizedMemo(t *testing.T) {
	n := New(1, AssetId{}, testOwner(1), testRandomness(2), strings.Repeat("x", 1<<16))
	_, err := n.Serialize()
	require.ErrorIs(t, err, ErrMemoTooLong)
}

func TestDeserializeRejectsTruncated(t *testing.T) {
	_, err := Deserialize(make([]byte, fixedFieldsLen-1))
	require.ErrorIs(t, err, ErrTruncatedNote)
}

func TestSealOpenRoundTrip(t *testing.T) {
	n := New(500, AssetId{0x01}, testOwner(3), testRandomness(4), "gift")
	viewingKey := testRandomness(7)

	blob, err := Seal(n, viewingKey)
	require.NoError(t, err)

	opened, err := Open(blob, viewingKey)
	require.NoError(t, err)
	require.Equal(t, n.Value, opened.Value)
	require.Equal(t, n.Memo, opened.Memo)
	require.Equal(t, n.Commitment, opened.Commitment)
}

func TestOpenWithWrongKeyFails(t *testing.T) {
	n := New(500, AssetId{}, testOwner(3), testRandomness(4), "")
	blob, err := Seal(n, testRandomness(7))
	require.NoError(t, err)

	_, err = Open(blob, testRandomness(8))
	require.ErrorIs(t, err, ErrDecryptFailed)
}

func TestOpenRejectsTruncatedBlob(t *testing.T) {
	_, err := Open([]byte{1, 2, 3}, testRandomness(1))
	require.ErrorIs(t, err, ErrDecryptFailed)
}
