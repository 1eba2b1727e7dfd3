package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/Klingon-tech/klingpay/config"
	"github.com/Klingon-tech/klingpay/internal/wallet"
	"github.com/urfave/cli/v2"
)

func mnemonicCommand() *cli.Command {
	return &cli.Command{
		Name:  "mnemonic",
		Usage: "Generate a new recovery phrase",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "words",
				Value: 24,
				Usage: "Phrase length, 12 or 24",
			},
		},
		Action: func(c *cli.Context) error {
			bits, err := entropyBits(c.Int("words"))
			if err != nil {
				return err
			}
			phrase, err := wallet.GenerateMnemonic(bits)
			if err != nil {
				return err
			}
			fmt.Println(phrase)
			return nil
		},
	}
}

func entropyBits(words int) (int, error) {
	switch words {
	case 12:
		return wallet.Words12, nil
	case 24:
		return wallet.Words24, nil
	default:
		return 0, fmt.Errorf("--words must be 12 or 24, got %d", words)
	}
}

func configCommands() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration file commands",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write a default config file",
				Action: func(c *cli.Context) error {
					cfg := config.Default(config.NetworkType(c.String("network")))
					if dir := c.String("datadir"); dir != "" {
						cfg.DataDir = dir
					}
					path := c.String("config")
					if path == "" {
						path = cfg.ConfigFile()
					}
					if _, err := os.Stat(path); err == nil {
						return fmt.Errorf("%s already exists", path)
					}
					if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
						return err
					}
					if err := config.WriteDefaultConfig(path, cfg.Network); err != nil {
						return err
					}
					fmt.Printf("Config written: %s\n", path)
					return nil
				},
			},
		},
	}
}

func walletCommands() *cli.Command {
	return &cli.Command{
		Name:  "wallet",
		Usage: "Wallet management commands",
		Subcommands: []*cli.Command{
			walletCreateCommand(),
			walletImportCommand(),
			walletListCommand(),
			walletAddressesCommand(),
			walletNewAddressCommand(),
		},
	}
}

func walletCreateCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create a wallet from a fresh recovery phrase",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "words", Value: 24, Usage: "Phrase length, 12 or 24"},
		},
		Action: func(c *cli.Context) error {
			bits, err := entropyBits(c.Int("words"))
			if err != nil {
				return err
			}
			phrase, err := wallet.GenerateMnemonic(bits)
			if err != nil {
				return err
			}
			fmt.Println("Recovery phrase (write this down!):")
			fmt.Printf("  %s\n\n", phrase)
			return storeWallet(c, phrase)
		},
	}
}

func walletImportCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Restore a wallet from its recovery phrase",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mnemonic", Usage: "Recovery phrase (prompted when omitted)"},
		},
		Action: func(c *cli.Context) error {
			phrase := c.String("mnemonic")
			if phrase == "" {
				b, err := readPassword("Recovery phrase: ")
				if err != nil {
					return err
				}
				phrase = string(b)
			}
			return storeWallet(c, phrase)
		},
	}
}

// storeWallet encrypts the seed of phrase under a new password and derives
// the first receive and change accounts.
func storeWallet(c *cli.Context, phrase string) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	name := c.String("wallet")

	seed, err := wallet.SeedFromMnemonic(phrase, "")
	if err != nil {
		return err
	}
	defer clear(seed)
	master, err := wallet.NewMasterKey(seed)
	if err != nil {
		return err
	}

	password, err := newPassword()
	if err != nil {
		return err
	}
	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		return err
	}
	if err := ks.Create(name, seed, password, wallet.DefaultKDFParams()); err != nil {
		return err
	}
	acct, err := ks.NewAccount(name, master, wallet.ChainExternal, "Default")
	if err != nil {
		return err
	}
	if _, err := ks.ChangeAccount(name, master); err != nil {
		return err
	}

	fmt.Printf("Wallet created: %s\n", name)
	fmt.Printf("Address: %s\n", acct.Address)
	return nil
}

func newPassword() ([]byte, error) {
	if pw, ok := os.LookupEnv(passwordEnv); ok {
		return []byte(pw), nil
	}
	password, err := readPassword("Enter password: ")
	if err != nil {
		return nil, err
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(password, confirm) {
		return nil, fmt.Errorf("passwords do not match")
	}
	if len(password) == 0 {
		return nil, fmt.Errorf("password must not be empty")
	}
	return password, nil
}

func walletListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List wallets",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			ks, err := wallet.NewKeystore(cfg.KeystoreDir())
			if err != nil {
				return err
			}
			names, err := ks.List()
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(names)
			}
			if len(names) == 0 {
				fmt.Println("No wallets.")
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}
}

type accountJSON struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Change  bool   `json:"change"`
	Index   uint32 `json:"index"`
}

func walletAddressesCommand() *cli.Command {
	return &cli.Command{
		Name:  "addresses",
		Usage: "List the wallet's addresses",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			ks, err := wallet.NewKeystore(cfg.KeystoreDir())
			if err != nil {
				return err
			}
			accounts, err := ks.Accounts(c.String("wallet"))
			if err != nil {
				return err
			}
			out := make([]accountJSON, len(accounts))
			for i, a := range accounts {
				out[i] = accountJSON{Name: a.Name, Address: a.Address.String(), Change: a.IsChange(), Index: a.Index}
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			for _, a := range out {
				kind := "receive"
				if a.Change {
					kind = "change"
				}
				fmt.Printf("%-8s %3d  %s  %s\n", kind, a.Index, a.Address, a.Name)
			}
			return nil
		},
	}
}

func walletNewAddressCommand() *cli.Command {
	return &cli.Command{
		Name:  "new-address",
		Usage: "Derive a new receive address",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "label", Usage: "Address label"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			name := c.String("wallet")
			ks, err := wallet.NewKeystore(cfg.KeystoreDir())
			if err != nil {
				return err
			}
			password, err := passwordFor(fmt.Sprintf("Password for %q: ", name))
			if err != nil {
				return err
			}
			seed, err := ks.Unlock(name, password)
			if err != nil {
				return err
			}
			master, err := wallet.NewMasterKey(seed)
			clear(seed)
			if err != nil {
				return err
			}
			acct, err := ks.NewAccount(name, master, wallet.ChainExternal, c.String("label"))
			if err != nil {
				return err
			}
			fmt.Println(acct.Address)
			return nil
		},
	}
}
