// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package scanner

// handleLegacy replays the V1 event variants, used only for historical
// scan_history replay against old transactions. Legacy payloads are
// prefixed with a 1-byte version and an extra 32-byte pool/chain id ahead
// of the current-format payload; everything after that prefix follows the
// same layout as the current event.
func (s *Scanner) handleLegacy(tag [8]byte, payload []byte) error {
	if len(payload) < 1+32 {
		return ErrMalformedRecord
	}
	// payload[0] is the version byte, informational only; payload[1:33] is
	// the legacy pool/chain id, superseded by pool_id in the modern layout.
	rest := payload[33:]

	switch tag {
	case tagDepositV1:
		return s.handleDeposit(rest)
	case tagWithdrawV1:
		return s.handleWithdraw(rest)
	case tagTransferV1:
		return s.handleTransfer(rest)
	default:
		return ErrUnknownTag
	}
}
