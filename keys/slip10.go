// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package keys

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"strconv"
	"strings"
)

var errBadPath = errors.New("keys: malformed derivation path")

// collapseSeed derives a 32-byte key from a BIP39 seed following the
// SLIP-0010 ed25519 scheme: master key/chain code from HMAC-SHA512("ed25519
// seed", seed), then one hardened CKD step per path component. ed25519
// SLIP-0010 supports hardened derivation only, which m/44'/501'/0'/0'
// exclusively uses.
func collapseSeed(bip39Seed []byte, path string) (Seed, error) {
	indices, err := parseHardenedPath(path)
	if err != nil {
		return Seed{}, err
	}

	key, chainCode := masterKey(bip39Seed)
	for _, idx := range indices {
		key, chainCode = deriveHardenedChild(key, chainCode, idx)
	}

	var out Seed
	copy(out[:], key)
	return out, nil
}

func masterKey(seed []byte) (key, chainCode []byte) {
	mac := hmac.New(sha512.New, []byte("ed25519 seed"))
	mac.Write(seed)
	sum := mac.Sum(nil)
	return sum[:32], sum[32:]
}

func deriveHardenedChild(key, chainCode []byte, index uint32) (childKey, childChainCode []byte) {
	var data [37]byte
	data[0] = 0x00
	copy(data[1:33], key)
	binary.BigEndian.PutUint32(data[33:], index|0x80000000)

	mac := hmac.New(sha512.New, chainCode)
	mac.Write(data[:])
	sum := mac.Sum(nil)
	return sum[:32], sum[32:]
}

// parseHardenedPath parses a path like m/44'/501'/0'/0' into its hardened
// child indices.
func parseHardenedPath(path string) ([]uint32, error) {
	segments := strings.Split(path, "/")
	if len(segments) == 0 || segments[0] != "m" {
		return nil, errBadPath
	}
	indices := make([]uint32, 0, len(segments)-1)
	for _, seg := range segments[1:] {
		if !strings.HasSuffix(seg, "'") {
			return nil, errBadPath
		}
		n, err := strconv.ParseUint(strings.TrimSuffix(seg, "'"), 10, 32)
		if err != nil {
			return nil, errBadPath
		}
		indices = append(indices, uint32(n))
	}
	return indices, nil
}
