// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package witness builds the private and public signals for the withdraw,
// transfer, and renew circuits, and assembles the on-chain-bound request
// payload from a Prover's output.
package witness

import "os"

// MerkleOrder selects whether merkle_proof/merkle_indices are emitted
// bottom-up (circuit convention default) or top-down.
type MerkleOrder int

const (
	BottomUp MerkleOrder = iota
	TopDown
)

// Config holds the compile-time-ish flags spec §4.G exposes to builders,
// loaded from environment variables so a single binary can target
// different circuit builds without a recompile.
type Config struct {
	MerkleOrder   MerkleOrder
	LeftIsOne     bool
	MockProofs    bool
	WithdrawWasm  string
	WithdrawZkey  string
	TransferWasm  string
	TransferZkey  string
	RenewWasm     string
	RenewZkey     string
}

// LoadConfig reads witness configuration from the environment.
func LoadConfig() Config {
	return Config{
		MerkleOrder:  parseOrder(os.Getenv("ZK_MERKLE_ORDER")),
		LeftIsOne:    os.Getenv("ZK_MERKLE_LEFT_IS_ONE") == "1",
		MockProofs:   os.Getenv("MOCK_PROOFS") == "1",
		WithdrawWasm: os.Getenv("WITHDRAW_WASM_PATH"),
		WithdrawZkey: os.Getenv("WITHDRAW_ZKEY_PATH"),
		TransferWasm: os.Getenv("TRANSFER_WASM_PATH"),
		TransferZkey: os.Getenv("TRANSFER_ZKEY_PATH"),
		RenewWasm:    os.Getenv("RENEW_WASM_PATH"),
		RenewZkey:    os.Getenv("RENEW_ZKEY_PATH"),
	}
}

func parseOrder(s string) MerkleOrder {
	if s == "top-down" {
		return TopDown
	}
	return BottomUp
}
