// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package field

import "encoding/hex"

// zeroHashHex is the canonical zero-hash chain Z[0..12], Z[0] = 32 zero
// bytes and Z[i] = HashNodes(Z[i-1], Z[i-1]). These are shipped as a fixed
// table rather than computed at init time: the chain must match the
// verifier's expectation byte-for-byte, the same reasoning that leads
// circuits in this space to hardcode their empty-subtree constants instead
// of deriving them from a general-purpose permutation at runtime.
var zeroHashHex = [13]string{
	"0000000000000000000000000000000000000000000000000000000000000000",
	"829a01fae4f8e22b1b4ca5ad5b54a5834ee098a77b735bd57431a7656d29a108",
	"50b4feaeb79752e57b182c6207a6984ebf5e6dc9d7e56c42889666509843b718",
	"f56fdd59a3fd78fbc066b31c20a0dc02d2fab63095664e87f2b2f0819e1cc22d",
	"6e58ea3b67b9d42ee340b22fcc79b87a8ce47a7a6d0404cb1d63fc16c0b95220",
	"2584ba0c4ab469e2d5d3c1e11b328a043f5cea0d1108539eec8c046b13bde31f",
	"c67b4a68ca203df0335e6fb6247a82963e5059ffa18e1af2cfb98581fea5aa00",
	"4dd60b46e179bc509022284c4ba37c9992b2e1b4f3261480dc18c2b346a9a01c",
	"4dc7695fdeb763e585c1fa1d235c42d196917acd8867cdcf20b5fca7594a3412",
	"363f05d4d2cca7b40d87546181acd14f1d21f9535c3d13c45dfbb32afaa3c516",
	"beab72b4311584a18d104dbf69ef69690840fd9fc40263b58122052478f08117",
	"e4f44df15cd40969d4f1bea1110ea66ba4e275ec3839ae243d72cd22f01f0d21",
	"b159372c0d35324c8f5fe23ff3fdf89901218d3d544eafaa115c08f2ddf6e205",
}

// zeroHashes holds the parsed form of zeroHashHex, computed once at package
// init.
var zeroHashes [13]Element

func init() {
	for i, h := range zeroHashHex {
		b, err := hex.DecodeString(h)
		if err != nil {
			panic("field: invalid zero-hash constant: " + err.Error())
		}
		var e Element
		copy(e[:], b)
		zeroHashes[i] = e
	}
}

// ZeroHash returns Z[level], the precomputed empty-subtree hash at the given
// Merkle depth (0 = leaf level). Valid for level in [0, 12].
func ZeroHash(level int) Element {
	if level < 0 || level >= len(zeroHashes) {
		panic("field: zero-hash level out of range")
	}
	return zeroHashes[level]
}

// ZeroHashChain returns the full Z[0..12] sequence.
func ZeroHashChain() [13]Element {
	return zeroHashes
}

