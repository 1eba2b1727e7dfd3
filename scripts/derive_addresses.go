// derive_addresses.go prints the first receive and change addresses of a
// recovery phrase read from a file.
// Usage: go run scripts/derive_addresses.go <phrasefile> [count] [testnet]
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Klingon-tech/klingpay/internal/wallet"
	"github.com/Klingon-tech/klingpay/pkg/types"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: derive_addresses <phrasefile> [count] [testnet]")
		os.Exit(1)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	count := 5
	if len(os.Args) > 2 {
		if count, err = strconv.Atoi(os.Args[2]); err != nil || count <= 0 {
			fmt.Fprintln(os.Stderr, "count must be a positive integer")
			os.Exit(1)
		}
	}
	if len(os.Args) > 3 && os.Args[3] == "testnet" {
		types.SetAddressHRP(types.TestnetHRP)
	}

	seed, err := wallet.SeedFromMnemonic(string(data), "")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	master, err := wallet.NewMasterKey(seed)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	for _, chain := range []uint32{wallet.ChainExternal, wallet.ChainChange} {
		for i := range count {
			acct, err := wallet.DeriveAccount(master, "", chain, uint32(i))
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			kind := "receive"
			if acct.IsChange() {
				kind = "change"
			}
			fmt.Printf("%-7s %3d  %s\n", kind, i, acct.Address)
		}
	}
}
