package wallet

import (
	"fmt"

	"github.com/Klingon-tech/klingpay/pkg/types"
)

// Account is one derived address of the wallet.
type Account struct {
	Name    string
	Chain   uint32
	Index   uint32
	Address types.Address
}

// IsChange reports whether the account lives on the change chain.
func (a Account) IsChange() bool {
	return a.Chain == ChainChange
}

// DeriveAccount derives the account at (chain, index) under master.
func DeriveAccount(master *HDKey, name string, chain, index uint32) (Account, error) {
	key, err := master.DeriveAddressKey(chain, index)
	if err != nil {
		return Account{}, fmt.Errorf("derive %d/%d: %w", chain, index, err)
	}
	return Account{Name: name, Chain: chain, Index: index, Address: key.Address()}, nil
}

// Addresses returns the addresses of accounts in order.
func Addresses(accounts []Account) []types.Address {
	out := make([]types.Address, len(accounts))
	for i, a := range accounts {
		out[i] = a.Address
	}
	return out
}
