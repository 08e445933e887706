// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package scanner

import (
	"encoding/binary"
	"testing"

	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/shieldpool/merkle"
	"github.com/luxfi/shieldpool/noteman"
	"github.com/luxfi/shieldpool/notes"
)

func testOwner(b byte) notes.ShieldedAddress {
	var o notes.ShieldedAddress
	for i := range o {
		o[i] = b
	}
	return o
}

func newTestScanner() (*Scanner, *noteman.Manager) {
	m := noteman.New([32]byte{1}, 100, nil, 0, log.NewTestLogger(log.InfoLevel))
	s := New(m, [32]byte{2}, log.NewTestLogger(log.InfoLevel))
	return s, m
}

func appendU64(b []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(b, buf[:]...)
}

func appendU32(b []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(b, buf[:]...)
}

func buildDepositRecord(epoch, leafIndex uint64, commitment [32]byte, encNote []byte) []byte {
	rec := append([]byte{}, tagDeposit[:]...)
	rec = appendU64(rec, epoch)
	rec = append(rec, make([]byte, 32)...) // pool_id
	rec = append(rec, commitment[:]...)
	rec = appendU64(rec, leafIndex)
	rec = append(rec, make([]byte, 32)...) // new_root
	rec = appendU32(rec, uint32(len(encNote)))
	rec = append(rec, encNote...)
	return rec
}

func TestProcessRecordPromotesPendingDeposit(t *testing.T) {
	s, m := newTestScanner()
	pending := notes.New(10, notes.AssetId{}, testOwner(1), [32]byte{3}, "")
	m.AddPending(pending)

	rec := buildDepositRecord(5, 2, pending.Commitment, nil)
	require.NoError(t, s.ProcessRecord(rec))

	confirmed, ok := m.Get(pending.Commitment)
	require.True(t, ok)
	require.Equal(t, uint64(5), *confirmed.Epoch)
	require.Equal(t, uint32(2), *confirmed.LeafIndex)
}

func TestProcessRecordDecryptsUnmatchedDeposit(t *testing.T) {
	s, m := newTestScanner()
	n := notes.New(77, notes.AssetId{}, testOwner(9), [32]byte{4}, "secret")
	blob, err := notes.Seal(n, [32]byte{2})
	require.NoError(t, err)

	rec := buildDepositRecord(1, 0, n.Commitment, blob)
	require.NoError(t, s.ProcessRecord(rec))

	confirmed, ok := m.Get(n.Commitment)
	require.True(t, ok)
	require.Equal(t, uint64(77), confirmed.Value)
}

func TestProcessRecordRejectsUnknownTag(t *testing.T) {
	s, _ := newTestScanner()
	err := s.ProcessRecord(make([]byte, 16))
	require.ErrorIs(t, err, ErrUnknownTag)
}

func TestProcessRecordRejectsTruncated(t *testing.T) {
	s, _ := newTestScanner()
	err := s.ProcessRecord(tagDeposit[:])
	require.Error(t, err)
}

func TestProcessStreamSkipsMalformedRecords(t *testing.T) {
	s, m := newTestScanner()
	pending := notes.New(10, notes.AssetId{}, testOwner(1), [32]byte{3}, "")
	m.AddPending(pending)

	good := buildDepositRecord(5, 2, pending.Commitment, nil)
	bad := append([]byte{}, tagDeposit[:]...)
	s.ProcessStream([][]byte{bad, good})

	_, ok := m.Get(pending.Commitment)
	require.True(t, ok)
}

func TestEpochRolloverFiresCallbacksInOrder(t *testing.T) {
	s, _ := newTestScanner()
	var observed []merkle.EpochState
	s.OnEpochTransition(func(epoch uint64, state merkle.EpochState) {
		observed = append(observed, state)
	})

	rec := append([]byte{}, tagEpochRollover[:]...)
	rec = appendU64(rec, 1)
	rec = appendU64(rec, 2)
	rec = appendU64(rec, 1000)

	require.NoError(t, s.ProcessRecord(rec))
	require.Equal(t, []merkle.EpochState{merkle.Frozen, merkle.Active}, observed)
}

func TestWithdrawMarksSpentByNullifier(t *testing.T) {
	s, m := newTestScanner()
	n := notes.New(20, notes.AssetId{}, testOwner(1), [32]byte{5}, "")
	n.Confirm(1, 0)
	require.NoError(t, m.AddConfirmed(n))
	stored, _ := m.Get(n.Commitment)

	rec := append([]byte{}, tagWithdraw[:]...)
	rec = appendU64(rec, 1)
	rec = append(rec, make([]byte, 32)...) // pool_id
	rec = append(rec, stored.Nullifier[:]...)
	rec = appendU64(rec, 20)
	rec = append(rec, make([]byte, 32)...) // recipient

	require.NoError(t, s.ProcessRecord(rec))
	stored, _ = m.Get(n.Commitment)
	require.True(t, stored.Spent)
}
