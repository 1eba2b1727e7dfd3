package wallet

import (
	"fmt"

	"github.com/Klingon-tech/klingpay/pkg/crypto"
	"github.com/Klingon-tech/klingpay/pkg/types"
	"github.com/tyler-smith/go-bip32"
)

// Derivation path: m/44'/CoinType'/0'/chain/index.
const (
	PurposeBIP44 = bip32.FirstHardenedChild + 44
	CoinType     = bip32.FirstHardenedChild + 7386
	AccountZero  = bip32.FirstHardenedChild

	// ChainExternal holds receiving addresses.
	ChainExternal uint32 = 0
	// ChainChange holds change addresses.
	ChainChange uint32 = 1
)

// HDKey is a BIP-32 extended key.
type HDKey struct {
	key *bip32.Key
}

// NewMasterKey creates the root key from a 64-byte seed.
func NewMasterKey(seed []byte) (*HDKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	return &HDKey{key: master}, nil
}

// Child derives the key at index below k.
func (k *HDKey) Child(index uint32) (*HDKey, error) {
	child, err := k.key.NewChildKey(index)
	if err != nil {
		return nil, fmt.Errorf("derive child %d: %w", index, err)
	}
	return &HDKey{key: child}, nil
}

// Derive walks path from k.
func (k *HDKey) Derive(path ...uint32) (*HDKey, error) {
	cur := k
	for _, idx := range path {
		next, err := cur.Child(idx)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// DeriveAddressKey derives the key for (chain, index) in the first account.
func (k *HDKey) DeriveAddressKey(chain, index uint32) (*HDKey, error) {
	return k.Derive(PurposeBIP44, CoinType, AccountZero, chain, index)
}

// PrivateKey returns the signing key, or an error for public-only keys.
func (k *HDKey) PrivateKey() (*crypto.PrivateKey, error) {
	if !k.key.IsPrivate {
		return nil, fmt.Errorf("public-only key cannot sign")
	}
	raw := k.key.Key
	if len(raw) == 33 && raw[0] == 0 {
		raw = raw[1:]
	}
	return crypto.PrivateKeyFromBytes(raw)
}

// PublicKey returns the compressed public key.
func (k *HDKey) PublicKey() []byte {
	return k.key.PublicKey().Key
}

// Address returns the ledger address of the public key.
func (k *HDKey) Address() types.Address {
	return crypto.AddressFromPubKey(k.PublicKey())
}

// IsPrivate reports whether k can sign.
func (k *HDKey) IsPrivate() bool {
	return k.key.IsPrivate
}

// Neuter returns a watch-only copy of k.
func (k *HDKey) Neuter() *HDKey {
	return &HDKey{key: k.key.PublicKey()}
}
