// klingpay-cli is a command-line wallet: keys, balance, payments, history.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Klingon-tech/klingpay/internal/payment"
	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
)

func newApp() *cli.App {
	return &cli.App{
		Name:    "klingpay-cli",
		Usage:   "Klingpay wallet",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Commands: []*cli.Command{
			mnemonicCommand(),
			configCommands(),
			walletCommands(),
			balanceCommand(),
			feeCommand(),
			maxCommand(),
			sendCommand(),
			payCommand(),
			historyCommand(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "datadir",
				Usage:   "Data directory",
				EnvVars: []string{"KLINGPAY_DATADIR"},
			},
			&cli.StringFlag{
				Name:    "network",
				Usage:   "mainnet or testnet",
				Value:   "mainnet",
				EnvVars: []string{"KLINGPAY_NETWORK"},
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Config file (default: <datadir>/klingpay.conf)",
				EnvVars: []string{"KLINGPAY_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "rpc",
				Usage:   "Node RPC endpoint",
				EnvVars: []string{"KLINGPAY_RPC"},
			},
			&cli.StringFlag{
				Name:    "resolver",
				Usage:   "Contact directory endpoint",
				EnvVars: []string{"KLINGPAY_RESOLVER"},
			},
			&cli.StringFlag{
				Name:    "wallet",
				Aliases: []string{"w"},
				Usage:   "Wallet name",
				Value:   "default",
				EnvVars: []string{"KLINGPAY_WALLET"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
			&cli.BoolFlag{
				Name:  "log-json",
				Usage: "Log as JSON",
			},
			&cli.StringFlag{
				Name:  "metrics-out",
				Usage: "Write Prometheus metrics to this file when the command ends",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var pe *payment.Error
		if errors.As(err, &pe) && pe.Retryable() {
			fmt.Fprintln(os.Stderr, "The request may succeed if repeated.")
		}
		os.Exit(1)
	}
}
