// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package scanner decodes the tagged event-record stream emitted by the
// pool program and replays its effects into a NoteManager.
package scanner

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
)

// ErrMalformedRecord is returned by the low-level decode functions when a
// record's payload is too short or otherwise inconsistent. The driving loop
// treats this as best-effort: log at debug, skip the record, keep going.
var ErrMalformedRecord = errors.New("scanner: malformed event record")

func eventTag(name string) [8]byte {
	sum := sha256.Sum256([]byte("event:" + name))
	var tag [8]byte
	copy(tag[:], sum[:8])
	return tag
}

var (
	tagDeposit       = eventTag("DepositEvent")
	tagWithdraw      = eventTag("WithdrawEvent")
	tagTransfer      = eventTag("TransferEvent")
	tagRenew         = eventTag("RenewEvent")
	tagEpochRollover = eventTag("EpochRolloverEvent")
	tagEpochFinal    = eventTag("EpochFinalizedEvent")

	tagDepositV1  = eventTag("DepositEventV1")
	tagWithdrawV1 = eventTag("WithdrawEventV1")
	tagTransferV1 = eventTag("ShieldedTransferEventV1")
)

// readU64LE reads a little-endian u64 at off, returning the value and the
// next offset.
func readU64LE(b []byte, off int) (uint64, int, error) {
	if off+8 > len(b) {
		return 0, off, ErrMalformedRecord
	}
	return binary.LittleEndian.Uint64(b[off : off+8]), off + 8, nil
}

func readU32LE(b []byte, off int) (uint32, int, error) {
	if off+4 > len(b) {
		return 0, off, ErrMalformedRecord
	}
	return binary.LittleEndian.Uint32(b[off : off+4]), off + 4, nil
}

func read32(b []byte, off int) ([32]byte, int, error) {
	var out [32]byte
	if off+32 > len(b) {
		return out, off, ErrMalformedRecord
	}
	copy(out[:], b[off:off+32])
	return out, off + 32, nil
}

// readLenPrefixed reads a u32-LE byte length followed by that many bytes,
// used for variable-length blobs like enc_note.
func readLenPrefixed(b []byte, off int) ([]byte, int, error) {
	n, off, err := readU32LE(b, off)
	if err != nil {
		return nil, off, err
	}
	if off+int(n) > len(b) {
		return nil, off, ErrMalformedRecord
	}
	return b[off : off+int(n)], off + int(n), nil
}

// readElements reads a u32-LE element count followed by that many
// fixed-size elements, used for Vec<T> fields of fixed-size T.
func readElements(b []byte, off int, elemSize int) ([][]byte, int, error) {
	count, off, err := readU32LE(b, off)
	if err != nil {
		return nil, off, err
	}
	out := make([][]byte, count)
	for i := range out {
		if off+elemSize > len(b) {
			return nil, off, ErrMalformedRecord
		}
		out[i] = b[off : off+elemSize]
		off += elemSize
	}
	return out, off, nil
}
