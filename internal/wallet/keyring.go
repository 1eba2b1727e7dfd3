package wallet

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Klingon-tech/klingpay/pkg/crypto"
	"github.com/Klingon-tech/klingpay/pkg/tx"
	"github.com/Klingon-tech/klingpay/pkg/types"
)

// ErrUnknownSigner is returned when a signer address has no key in the ring.
var ErrUnknownSigner = errors.New("no key for signer")

// Keyring holds the private keys of the wallet's accounts, indexed by
// address.
type Keyring struct {
	mu   sync.RWMutex
	keys map[types.Address]*crypto.PrivateKey
}

// NewKeyring returns an empty keyring.
func NewKeyring() *Keyring {
	return &Keyring{keys: make(map[types.Address]*crypto.PrivateKey)}
}

// KeyringFromMaster derives the key of every account from master.
func KeyringFromMaster(master *HDKey, accounts []Account) (*Keyring, error) {
	kr := NewKeyring()
	for _, a := range accounts {
		hd, err := master.DeriveAddressKey(a.Chain, a.Index)
		if err != nil {
			return nil, err
		}
		priv, err := hd.PrivateKey()
		if err != nil {
			return nil, err
		}
		if priv.Address() != a.Address {
			return nil, fmt.Errorf("account %s: derived address %s does not match", a.Address, priv.Address())
		}
		kr.Add(priv)
	}
	return kr, nil
}

// Add stores key under its address.
func (kr *Keyring) Add(key *crypto.PrivateKey) {
	kr.mu.Lock()
	kr.keys[key.Address()] = key
	kr.mu.Unlock()
}

// Has reports whether the ring can sign for addr.
func (kr *Keyring) Has(addr types.Address) bool {
	kr.mu.RLock()
	defer kr.mu.RUnlock()
	_, ok := kr.keys[addr]
	return ok
}

// Sign signs every input of transaction using only the keys of signers.
// Inputs owned by an address outside signers fail.
func (kr *Keyring) Sign(transaction *tx.Transaction, signers []types.Address) error {
	kr.mu.RLock()
	subset := make(map[types.Address]*crypto.PrivateKey, len(signers))
	for _, addr := range signers {
		key, ok := kr.keys[addr]
		if !ok {
			kr.mu.RUnlock()
			return fmt.Errorf("%w %s", ErrUnknownSigner, addr)
		}
		subset[addr] = key
	}
	kr.mu.RUnlock()

	return tx.SignMulti(transaction, subset)
}

// Wipe zeroes and forgets every key.
func (kr *Keyring) Wipe() {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	for addr, key := range kr.keys {
		key.Zero()
		delete(kr.keys, addr)
	}
}
