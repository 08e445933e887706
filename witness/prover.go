// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package witness

import (
	"context"
	"errors"

	"github.com/luxfi/shieldpool/field"
)

// ProofSize is the fixed Groth16 proof byte layout: pi_a(64) || pi_b(128,
// G2 limbs written y,x per BN254 pairing convention) || pi_c(64).
const ProofSize = 256

var ErrProverUnavailable = errors.New("witness: no real prover configured and MOCK_PROOFS is unset")

// Proof is a Groth16 proof plus the public inputs the prover attests to.
// PublicInputs always comes directly from the prover, never recomputed by
// the caller, so on-chain verification sees byte-identical values.
type Proof struct {
	Bytes        [ProofSize]byte
	PublicInputs [][32]byte
}

// Prover is the three-method capability a WitnessBuilder hands signals to.
type Prover interface {
	Prove(ctx context.Context, kind CircuitKind, publicInputs []field.Element, privateSignals interface{}) (*Proof, error)
	WasmPath(kind CircuitKind) string
	ZkeyPath(kind CircuitKind) string
}

// MockProver echoes the caller-computed public inputs back as the "proof"
// output with an all-zero proof body, for use when cfg.MockProofs is set.
// It never invokes a real circuit.
type MockProver struct {
	cfg Config
}

// NewMockProver returns a Prover that satisfies MOCK_PROOFS=1 test paths.
func NewMockProver(cfg Config) *MockProver {
	return &MockProver{cfg: cfg}
}

func (m *MockProver) Prove(_ context.Context, _ CircuitKind, publicInputs []field.Element, _ interface{}) (*Proof, error) {
	if !m.cfg.MockProofs {
		return nil, ErrProverUnavailable
	}
	out := &Proof{PublicInputs: make([][32]byte, len(publicInputs))}
	for i, pi := range publicInputs {
		out.PublicInputs[i] = pi.Bytes()
	}
	return out, nil
}

func (m *MockProver) WasmPath(kind CircuitKind) string {
	switch kind {
	case CircuitWithdraw:
		return m.cfg.WithdrawWasm
	case CircuitTransfer:
		return m.cfg.TransferWasm
	case CircuitRenew:
		return m.cfg.RenewWasm
	default:
		return ""
	}
}

func (m *MockProver) ZkeyPath(kind CircuitKind) string {
	switch kind {
	case CircuitWithdraw:
		return m.cfg.WithdrawZkey
	case CircuitTransfer:
		return m.cfg.TransferZkey
	case CircuitRenew:
		return m.cfg.RenewZkey
	default:
		return ""
	}
}
