// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package scanner

import (
	"encoding/binary"
	"errors"

	"github.com/luxfi/log"

	"github.com/luxfi/shieldpool/merkle"
	"github.com/luxfi/shieldpool/noteman"
	"github.com/luxfi/shieldpool/notes"
)

// ErrUnknownTag is returned by ProcessRecord when a record's tag does not
// match any known event, including legacy variants.
var ErrUnknownTag = errors.New("scanner: unrecognized event tag")

// EpochCallback is invoked whenever the scanner observes an epoch state
// transition, in arrival order.
type EpochCallback func(epoch uint64, state merkle.EpochState)

// Scanner decodes tagged event records and replays their effects into a
// NoteManager, firing registered callbacks on epoch transitions.
type Scanner struct {
	manager    *noteman.Manager
	viewingKey [32]byte
	callbacks  []EpochCallback
	log        log.Logger
}

// New constructs a Scanner over manager, decrypting Deposit enc_note
// payloads with viewingKey.
func New(manager *noteman.Manager, viewingKey [32]byte, logger log.Logger) *Scanner {
	return &Scanner{manager: manager, viewingKey: viewingKey, log: logger}
}

// OnEpochTransition registers a callback fired for every epoch state
// transition the scanner observes.
func (s *Scanner) OnEpochTransition(cb EpochCallback) {
	s.callbacks = append(s.callbacks, cb)
}

// ProcessStream decodes and applies each record in order. Malformed
// records are logged at debug and skipped; processing never aborts on a
// single bad record.
func (s *Scanner) ProcessStream(records [][]byte) {
	for _, r := range records {
		if err := s.ProcessRecord(r); err != nil {
			s.log.Debug("skipping malformed or unknown event record", "err", err)
		}
	}
}

// ProcessRecord decodes and applies a single record. It returns an error
// for malformed payloads or unrecognized tags; callers processing a live
// stream should treat any error as skip-and-continue per ProcessStream.
func (s *Scanner) ProcessRecord(record []byte) error {
	if len(record) < 8 {
		return ErrMalformedRecord
	}
	var tag [8]byte
	copy(tag[:], record[:8])
	payload := record[8:]

	switch tag {
	case tagDeposit:
		return s.handleDeposit(payload)
	case tagWithdraw:
		return s.handleWithdraw(payload)
	case tagTransfer:
		return s.handleTransfer(payload)
	case tagRenew:
		return s.handleRenew(payload)
	case tagEpochRollover:
		return s.handleEpochRollover(payload)
	case tagEpochFinal:
		return s.handleEpochFinalized(payload)
	case tagDepositV1, tagWithdrawV1, tagTransferV1:
		return s.handleLegacy(tag, payload)
	default:
		return ErrUnknownTag
	}
}

func (s *Scanner) fireEpoch(epoch uint64, state merkle.EpochState) {
	for _, cb := range s.callbacks {
		cb(epoch, state)
	}
}

func (s *Scanner) handleDeposit(payload []byte) error {
	off := 0
	epoch, off, err := readU64LE(payload, off)
	if err != nil {
		return err
	}
	_, off, err = read32(payload, off) // pool_id, routing only
	if err != nil {
		return err
	}
	commitment, off, err := read32(payload, off)
	if err != nil {
		return err
	}
	leafIndex64, off, err := readU64LE(payload, off)
	if err != nil {
		return err
	}
	_, off, err = read32(payload, off) // new_root, informational
	if err != nil {
		return err
	}
	encNote, _, err := readLenPrefixed(payload, off)
	if err != nil {
		return err
	}

	leafIndex := uint32(leafIndex64)

	if pending, ok := s.manager.GetPending(commitment); ok {
		confirmed := pending.Clone()
		confirmed.Confirm(epoch, leafIndex)
		return s.manager.AddConfirmed(confirmed)
	}

	n, err := notes.Open(encNote, s.viewingKey)
	if err != nil {
		// Not ours: DecryptFailed is expected and silent.
		return nil
	}
	n.Confirm(epoch, leafIndex)
	return s.manager.AddConfirmed(n)
}

func (s *Scanner) handleWithdraw(payload []byte) error {
	off := 0
	epoch, off, err := readU64LE(payload, off)
	if err != nil {
		return err
	}
	_, off, err = read32(payload, off) // pool_id
	if err != nil {
		return err
	}
	nullifier, off, err := read32(payload, off)
	if err != nil {
		return err
	}
	if _, off, err = readU64LE(payload, off); err != nil { // amount, informational
		return err
	}
	if _, _, err = read32(payload, off); err != nil { // recipient, informational
		return err
	}

	if err := s.manager.MarkSpentByNullifier(nullifier, &epoch); err != nil {
		s.log.Debug("withdraw event matched no known note", "err", err)
	}
	return nil
}

func (s *Scanner) handleTransfer(payload []byte) error {
	off := 0
	outputEpoch, off, err := readU64LE(payload, off)
	if err != nil {
		return err
	}
	_, off, err = read32(payload, off) // pool_id
	if err != nil {
		return err
	}

	nullifiers, off, err := readElements(payload, off, 32)
	if err != nil {
		return err
	}
	inputEpochs, off, err := readElements(payload, off, 8)
	if err != nil {
		return err
	}
	if len(inputEpochs) != len(nullifiers) {
		return ErrMalformedRecord
	}
	commitments, off, err := readElements(payload, off, 32)
	if err != nil {
		return err
	}
	leafIndices, _, err := readElements(payload, off, 8)
	if err != nil {
		return err
	}
	if len(leafIndices) != len(commitments) {
		return ErrMalformedRecord
	}

	for i, rawNullifier := range nullifiers {
		var nullifier [32]byte
		copy(nullifier[:], rawNullifier)
		inputEpoch := binary.LittleEndian.Uint64(inputEpochs[i])
		if err := s.manager.MarkSpentByNullifier(nullifier, &inputEpoch); err != nil {
			s.log.Debug("transfer input matched no known note", "err", err)
		}
	}

	for i, rawCommitment := range commitments {
		var commitment [32]byte
		copy(commitment[:], rawCommitment)
		leafIndex := uint32(binary.LittleEndian.Uint64(leafIndices[i]))

		pending, ok := s.manager.GetPending(commitment)
		if !ok {
			continue
		}
		confirmed := pending.Clone()
		confirmed.Confirm(outputEpoch, leafIndex)
		if err := s.manager.AddConfirmed(confirmed); err != nil {
			s.log.Debug("failed to promote transfer output", "err", err)
		}
	}
	return nil
}

func (s *Scanner) handleRenew(payload []byte) error {
	off := 0
	oldEpoch, off, err := readU64LE(payload, off)
	if err != nil {
		return err
	}
	newEpoch, off, err := readU64LE(payload, off)
	if err != nil {
		return err
	}
	_, off, err = read32(payload, off) // pool_id
	if err != nil {
		return err
	}
	oldNullifier, off, err := read32(payload, off)
	if err != nil {
		return err
	}
	newCommitment, off, err := read32(payload, off)
	if err != nil {
		return err
	}
	newLeafIndex64, _, err := readU64LE(payload, off)
	if err != nil {
		return err
	}

	if err := s.manager.MarkSpentByNullifier(oldNullifier, &oldEpoch); err != nil {
		s.log.Debug("renew old note not found", "err", err)
	}

	if pending, ok := s.manager.GetPending(newCommitment); ok {
		confirmed := pending.Clone()
		confirmed.Confirm(newEpoch, uint32(newLeafIndex64))
		if err := s.manager.AddConfirmed(confirmed); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scanner) handleEpochRollover(payload []byte) error {
	off := 0
	oldEpoch, off, err := readU64LE(payload, off)
	if err != nil {
		return err
	}
	newEpoch, _, err := readU64LE(payload, off)
	if err != nil {
		return err
	}
	s.fireEpoch(oldEpoch, merkle.Frozen)
	s.fireEpoch(newEpoch, merkle.Active)
	return nil
}

func (s *Scanner) handleEpochFinalized(payload []byte) error {
	off := 0
	epoch, off, err := readU64LE(payload, off)
	if err != nil {
		return err
	}
	if _, _, err = read32(payload, off); err != nil { // final_root, carried by forest sync
		return err
	}
	s.fireEpoch(epoch, merkle.Finalized)
	return nil
}

