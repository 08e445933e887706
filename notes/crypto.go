// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package notes

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

var (
	// ErrDecryptFailed covers corrupt ciphertext, wrong key, and truncated
	// input uniformly — callers treat it as "not mine", never as a hard
	// failure.
	ErrDecryptFailed  = errors.New("notes: decrypt failed")
	ErrMemoTooLong    = errors.New("notes: memo exceeds 65535 bytes")
	ErrTruncatedNote  = errors.New("notes: serialized note is truncated")
)

const fixedFieldsLen = 32 + 32 + 32 + 32 + 2 // value || token || owner || blinding || memo_len

// Serialize produces the canonical 130+memo_len byte encoding of n used as
// the secretbox plaintext: value(32 BE) || token(32) || owner(32) ||
// blinding(32) || memo_len(u16 LE) || memo_utf8.
func (n *Note) Serialize() ([]byte, error) {
	memo := []byte(n.Memo)
	if len(memo) > 0xFFFF {
		return nil, ErrMemoTooLong
	}

	out := make([]byte, fixedFieldsLen+len(memo))
	var valueBE [32]byte
	binary.BigEndian.PutUint64(valueBE[24:32], n.Value)
	copy(out[0:32], valueBE[:])
	copy(out[32:64], n.Token[:])
	copy(out[64:96], n.Owner[:])
	copy(out[96:128], n.Blinding[:])
	binary.LittleEndian.PutUint16(out[128:130], uint16(len(memo)))
	copy(out[130:], memo)
	return out, nil
}

// Deserialize parses the canonical encoding produced by Serialize. The
// returned note has its commitment recomputed from the parsed fields; epoch,
// leaf index, and nullifier are left unset.
func Deserialize(data []byte) (*Note, error) {
	if len(data) < fixedFieldsLen {
		return nil, ErrTruncatedNote
	}
	var valueBE [32]byte
	copy(valueBE[:], data[0:32])
	value := binary.BigEndian.Uint64(valueBE[24:32])

	var token AssetId
	copy(token[:], data[32:64])
	var owner ShieldedAddress
	copy(owner[:], data[64:96])
	var blinding [32]byte
	copy(blinding[:], data[96:128])

	memoLen := int(binary.LittleEndian.Uint16(data[128:130]))
	if len(data) != fixedFieldsLen+memoLen {
		return nil, ErrTruncatedNote
	}
	memo := string(data[130:])

	n := &Note{
		Value:      value,
		Token:      token,
		Owner:      owner,
		Randomness: blinding,
		Blinding:   blinding,
		Memo:       memo,
	}
	n.Commitment = ComputeCommitment(value, owner, blinding)
	return n, nil
}

// Seal encrypts the note to the recipient's viewing key for out-of-band
// delivery or at-rest storage, returning nonce(24) || ciphertext.
func Seal(n *Note, viewingKey [32]byte) ([]byte, error) {
	plaintext, err := n.Serialize()
	if err != nil {
		return nil, err
	}

	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}

	sealed := secretbox.Seal(nonce[:], plaintext, &nonce, &viewingKey)
	return sealed, nil
}

// Open decrypts a blob produced by Seal. Any failure — wrong key, corrupt
// ciphertext, truncated input — collapses to ErrDecryptFailed so callers can
// treat the note as not theirs without distinguishing causes.
func Open(blob []byte, viewingKey [32]byte) (*Note, error) {
	if len(blob) < 24+secretbox.Overhead {
		return nil, ErrDecryptFailed
	}
	var nonce [24]byte
	copy(nonce[:], blob[:24])

	plaintext, ok := secretbox.Open(nil, blob[24:], &nonce, &viewingKey)
	if !ok {
		return nil, ErrDecryptFailed
	}

	n, err := Deserialize(plaintext)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return n, nil
}
