// Package crypto wraps the hashing and signature primitives of the ledger.
package crypto

import (
	"github.com/Klingon-tech/klingpay/pkg/types"
	"github.com/zeebo/blake3"
)

// Hash computes a BLAKE3-256 digest.
func Hash(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// AddressFromPubKey derives the ledger address of a compressed public key:
// the first 20 bytes of BLAKE3(pubkey).
func AddressFromPubKey(pubKey []byte) types.Address {
	h := Hash(pubKey)
	var addr types.Address
	copy(addr[:], h[:types.AddressSize])
	return addr
}
