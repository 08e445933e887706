// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package chain defines the narrow boundary interfaces the client
// orchestrates against: reading epoch/leaf state, probing account
// existence, and submitting assembled requests. No implementation lives
// here — that belongs to whatever RPC client a deployment wires in.
package chain

import (
	"context"

	"github.com/luxfi/shieldpool/merkle"
	"github.com/luxfi/shieldpool/witness"
)

// Reader is the full read-side boundary the client depends on: Merkle
// forest reconstruction plus the nullifier double-spend probe.
type Reader interface {
	merkle.ChainReader
	witness.NullifierMarkerProbe
	// AccountExists reports whether an on-chain account is initialized at
	// addr, used to distinguish "not yet created" from "empty".
	AccountExists(ctx context.Context, addr [32]byte) (bool, error)
}

// EventSource streams tagged event records for scan_history/rescan.
type EventSource interface {
	// FetchTransaction returns the event records emitted by the single
	// transaction identified by signature, used by rescan.
	FetchTransaction(ctx context.Context, signature string) ([][]byte, error)
	// FetchHistory returns the event records from the last limit
	// pool-related transactions, most recent last, used by scan_history.
	FetchHistory(ctx context.Context, limit int) ([][]byte, error)
}

// Submitter submits an assembled request on-chain and returns its
// transaction signature.
type Submitter interface {
	Submit(ctx context.Context, req *witness.Request) (signature string, err error)
	// SubmitDeposit submits a proof-less deposit request.
	SubmitDeposit(ctx context.Context, req *witness.DepositRequest) (signature string, err error)
}
