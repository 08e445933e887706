// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package keys derives the spending, viewing, and nullifier keys and the
// shielded address for a shieldpool wallet from a BIP39 mnemonic or a raw
// 32-byte seed.
package keys

import (
	"crypto/sha256"
	"errors"

	"github.com/mr-tron/base58"
	"github.com/tyler-smith/go-bip39"
)

var (
	ErrInvalidMnemonic  = errors.New("keys: invalid mnemonic")
	ErrInvalidSeedLength = errors.New("keys: seed must be exactly 32 bytes")
	ErrInvalidAddress   = errors.New("keys: decoded address must be exactly 32 bytes")
)

// derivationPath is the SLIP-0010 path used to collapse a BIP39 seed down
// to the 32-byte shieldpool seed.
const derivationPath = "m/44'/501'/0'/0'"

// Seed is the 32-byte root of all derived key material.
type Seed [32]byte

// Manager holds the derived key material for one shielded identity.
type Manager struct {
	mnemonic        string
	seed            Seed
	spendingKey     [32]byte
	viewingKey      [32]byte
	nullifierKey    [32]byte
	shieldedAddress [32]byte
}

// Generate produces a fresh 128-bit BIP39 mnemonic, stretches it to a
// 64-byte seed via PBKDF2 (empty passphrase, handled internally by
// go-bip39), and collapses that to the 32-byte shieldpool seed via
// SLIP-0010 derivation along derivationPath.
func Generate() (*Manager, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return nil, err
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, err
	}
	return FromMnemonic(mnemonic)
}

// FromMnemonic validates the BIP39 checksum and derives keys from it.
func FromMnemonic(phrase string) (*Manager, error) {
	if !bip39.IsMnemonicValid(phrase) {
		return nil, ErrInvalidMnemonic
	}
	bip39Seed := bip39.NewSeed(phrase, "")
	seed, err := collapseSeed(bip39Seed, derivationPath)
	if err != nil {
		return nil, err
	}
	m := newManager(seed)
	m.mnemonic = phrase
	return m, nil
}

// FromSeed uses the given 32 bytes directly as the shieldpool seed, with no
// mnemonic or SLIP-0010 collapse.
func FromSeed(seed []byte) (*Manager, error) {
	if len(seed) != 32 {
		return nil, ErrInvalidSeedLength
	}
	var s Seed
	copy(s[:], seed)
	return newManager(s), nil
}

func newManager(seed Seed) *Manager {
	spending := domainHash("spending", seed[:])
	viewing := domainHash("viewing", seed[:])
	nullifier := domainHash("nullifier", seed[:])
	address := domainHash("address", spending[:])

	return &Manager{
		seed:            seed,
		spendingKey:     spending,
		viewingKey:      viewing,
		nullifierKey:    nullifier,
		shieldedAddress: address,
	}
}

func domainHash(tag string, data []byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(tag))
	h.Write(data)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Mnemonic returns the BIP39 phrase, empty if this manager was built with
// FromSeed.
func (m *Manager) Mnemonic() string { return m.mnemonic }

// Seed returns the 32-byte shieldpool seed.
func (m *Manager) Seed() Seed { return m.seed }

// SpendingKey returns SHA256("spending" || seed).
func (m *Manager) SpendingKey() [32]byte { return m.spendingKey }

// ViewingKey returns SHA256("viewing" || seed).
func (m *Manager) ViewingKey() [32]byte { return m.viewingKey }

// NullifierKey returns SHA256("nullifier" || seed).
func (m *Manager) NullifierKey() [32]byte { return m.nullifierKey }

// ShieldedAddress returns SHA256("address" || spendingKey).
func (m *Manager) ShieldedAddress() [32]byte { return m.shieldedAddress }

// EncodeAddress returns the base58 text form of the shielded address.
func (m *Manager) EncodeAddress() string {
	return EncodeAddress(m.shieldedAddress)
}

// EncodeAddress base58-encodes a 32-byte shielded address.
func EncodeAddress(addr [32]byte) string {
	return base58.Encode(addr[:])
}

// DecodeAddress base58-decodes a shielded address, rejecting anything that
// doesn't decode to exactly 32 bytes.
func DecodeAddress(s string) ([32]byte, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return [32]byte{}, ErrInvalidAddress
	}
	if len(b) != 32 {
		return [32]byte{}, ErrInvalidAddress
	}
	var out [32]byte
	copy(out[:], b)
	return out, nil
}
