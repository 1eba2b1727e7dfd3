// Package wallet holds the user's keys, accounts and UTXO snapshot.
package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// Supported mnemonic lengths.
const (
	Words12 = 128
	Words24 = 256
)

// SeedSize is the length of a BIP-39 seed in bytes.
const SeedSize = 64

// ErrInvalidMnemonic is returned for phrases with unknown words or a bad
// checksum.
var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// GenerateMnemonic creates a new BIP-39 phrase from entropyBits of entropy
// (Words12 or Words24).
func GenerateMnemonic(entropyBits int) (string, error) {
	if entropyBits != Words12 && entropyBits != Words24 {
		return "", fmt.Errorf("unsupported entropy size %d", entropyBits)
	}
	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	return bip39.NewMnemonic(entropy)
}

// NormalizeMnemonic lowercases the phrase and collapses whitespace, which is
// how phrases typed on a phone keyboard usually need cleaning.
func NormalizeMnemonic(phrase string) string {
	return strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
}

// SeedFromMnemonic validates phrase and derives its 64-byte seed.
func SeedFromMnemonic(phrase, passphrase string) ([]byte, error) {
	phrase = NormalizeMnemonic(phrase)
	if !bip39.IsMnemonicValid(phrase) {
		return nil, ErrInvalidMnemonic
	}
	seed, err := bip39.NewSeedWithErrorChecking(phrase, passphrase)
	if err != nil {
		return nil, fmt.Errorf("derive seed: %w", err)
	}
	return seed, nil
}
