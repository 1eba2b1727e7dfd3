package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/Klingon-tech/klingpay/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

func tipFlag() cli.Flag {
	return &cli.StringFlag{Name: "tip", Value: "0", Usage: "Tip in coins (under the tip floor is dropped)"}
}

// parseUnits parses a whole-coin amount into minor units that fit the
// signed amounts payments take.
func parseUnits(s string) (int64, error) {
	u, err := types.ParseAmount(s)
	if err != nil {
		return 0, err
	}
	if u > math.MaxInt64 {
		return 0, fmt.Errorf("amount %q is too large", s)
	}
	return int64(u), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withEnv opens the wallet environment for the duration of fn.
func withEnv(c *cli.Context, fn func(context.Context, *env) error) error {
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.close()
	return fn(c.Context, e)
}

// fiat renders units in the configured currency, or "" without a feed.
func (e *env) fiat(ctx context.Context, units uint64) string {
	if e.prices == nil {
		return ""
	}
	q, err := e.prices.Price(ctx, e.cfg.Price.Currency)
	if err != nil {
		return ""
	}
	return q.Fiat(units).StringFixed(2) + " " + q.Currency
}

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:  "balance",
		Usage: "Show the wallet balance",
		Action: func(c *cli.Context) error {
			return withEnv(c, func(ctx context.Context, e *env) error {
				snap, err := e.session.Snapshot(ctx)
				if err != nil {
					return err
				}
				fiat := e.fiat(ctx, snap.Total)
				if c.Bool("json") {
					return printJSON(map[string]any{
						"balance": types.Coins(snap.Total),
						"utxos":   len(snap.UTXOs),
						"fiat":    fiat,
					})
				}
				fmt.Printf("Balance: %s", types.FormatAmount(snap.Total))
				if fiat != "" {
					fmt.Printf(" (%s)", fiat)
				}
				fmt.Printf("\nUTXOs:   %d\n", len(snap.UTXOs))
				return nil
			})
		},
	}
}

func feeCommand() *cli.Command {
	return &cli.Command{
		Name:      "fee",
		Usage:     "Preview commission and network fee of a payment",
		ArgsUsage: "DESTINATION AMOUNT",
		Flags:     []cli.Flag{tipFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return fmt.Errorf("destination and amount are required")
			}
			amount, err := parseUnits(c.Args().Get(1))
			if err != nil {
				return err
			}
			tip, err := parseUnits(c.String("tip"))
			if err != nil {
				return err
			}
			return withEnv(c, func(ctx context.Context, e *env) error {
				o, err := e.orchestrator()
				if err != nil {
					return err
				}
				fee, err := o.EstimateNetworkFee(ctx, c.Args().Get(0), amount, tip)
				if err != nil {
					return err
				}
				comm := o.EstimateCommission(amount)
				if c.Bool("json") {
					return printJSON(map[string]any{
						"commission":  types.Coins(comm),
						"network_fee": types.Coins(fee),
					})
				}
				fmt.Printf("Commission:  %s\n", types.FormatAmount(comm))
				fmt.Printf("Network fee: %s\n", types.FormatAmount(fee))
				return nil
			})
		},
	}
}

func maxCommand() *cli.Command {
	return &cli.Command{
		Name:      "max",
		Usage:     "Show the largest amount payable to a destination",
		ArgsUsage: "DESTINATION",
		Flags: []cli.Flag{
			tipFlag(),
			&cli.BoolFlag{Name: "store", Usage: "Quote a store payment instead of a send"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("destination is required")
			}
			tip, err := parseUnits(c.String("tip"))
			if err != nil {
				return err
			}
			return withEnv(c, func(ctx context.Context, e *env) error {
				o, err := e.orchestrator()
				if err != nil {
					return err
				}
				var most uint64
				if c.Bool("store") {
					most, err = o.MaxStorePayment(ctx, c.Args().Get(0), tip)
				} else {
					most, err = o.MaxSendable(ctx, c.Args().Get(0), tip)
				}
				if err != nil {
					return err
				}
				if c.Bool("json") {
					return printJSON(map[string]any{"max": types.Coins(most)})
				}
				fmt.Println(types.FormatAmount(most))
				return nil
			})
		},
	}
}

func sendCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Pay an address or contact handle",
		ArgsUsage: "DESTINATION AMOUNT",
		Flags: []cli.Flag{
			tipFlag(),
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask for confirmation"},
		},
		Action: func(c *cli.Context) error {
			return runPayment(c, false)
		},
	}
}

func payCommand() *cli.Command {
	return &cli.Command{
		Name:      "pay",
		Usage:     "Pay a store; the commission comes out of the store's proceeds",
		ArgsUsage: "MERCHANT_ADDRESS AMOUNT",
		Flags: []cli.Flag{
			tipFlag(),
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask for confirmation"},
		},
		Action: func(c *cli.Context) error {
			return runPayment(c, true)
		},
	}
}

func runPayment(c *cli.Context, store bool) error {
	if c.NArg() < 2 {
		return fmt.Errorf("destination and amount are required")
	}
	dest := c.Args().Get(0)
	amount, err := parseUnits(c.Args().Get(1))
	if err != nil {
		return err
	}
	tip, err := parseUnits(c.String("tip"))
	if err != nil {
		return err
	}

	return withEnv(c, func(ctx context.Context, e *env) error {
		if tip > 0 && e.cfg.Payment.TipAddress == "" {
			return fmt.Errorf("payment.tip_address is not configured")
		}
		o, err := e.orchestrator()
		if err != nil {
			return err
		}
		if !c.Bool("yes") {
			if _, err := o.FeeParameters(ctx); err != nil {
				return err
			}
			comm := o.EstimateCommission(amount)
			prompt := fmt.Sprintf("Send %s to %s (commission %s, tip %s)? [y/N] ",
				types.FormatAmount(uint64(amount)), dest, types.FormatAmount(comm), types.FormatAmount(uint64(tip)))
			if store {
				prompt = fmt.Sprintf("Pay %s to store %s (commission %s deducted from the store, tip %s)? [y/N] ",
					types.FormatAmount(uint64(amount)), dest, types.FormatAmount(comm), types.FormatAmount(uint64(tip)))
			}
			if !confirm(prompt) {
				return fmt.Errorf("cancelled")
			}
		}

		var hash types.Hash
		if store {
			hash, err = o.SendStorePayment(ctx, dest, amount, tip)
		} else {
			hash, err = o.Send(ctx, dest, amount, tip)
		}
		if err != nil {
			return err
		}
		if c.Bool("json") {
			return printJSON(map[string]string{"hash": hash.String()})
		}
		fmt.Printf("Transaction submitted: %s\n", hash)
		return nil
	})
}

func confirm(prompt string) bool {
	fmt.Fprint(os.Stderr, prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

type historyJSON struct {
	Hash         string          `json:"hash"`
	Date         string          `json:"date"`
	Height       uint64          `json:"height"`
	Direction    string          `json:"direction"`
	Amount       decimal.Decimal `json:"amount"`
	Counterparty string          `json:"counterparty,omitempty"`
	Name         string          `json:"name,omitempty"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent wallet activity",
		Action: func(c *cli.Context) error {
			return withEnv(c, func(ctx context.Context, e *env) error {
				snap, err := e.session.Snapshot(ctx)
				if err != nil {
					return err
				}
				if snap.Total > math.MaxInt64 {
					return fmt.Errorf("balance %d out of range", snap.Total)
				}
				rows, err := e.history().Refresh(ctx, e.session.Addresses(), int64(snap.Total))
				if err != nil {
					return err
				}

				out := make([]historyJSON, len(rows))
				for i, r := range rows {
					h := historyJSON{
						Hash:         r.ID.String(),
						Date:         r.Date.Format("2006-01-02 15:04"),
						Height:       r.Height,
						Direction:    "in",
						Amount:       types.Coins(r.Amount),
						Name:         r.Name,
						BalanceAfter: decimal.NewFromInt(r.BalanceAfter).Shift(-types.Decimals),
					}
					if r.Outgoing {
						h.Direction = "out"
					}
					if r.HasCounterparty {
						h.Counterparty = r.Counterparty.String()
					}
					out[i] = h
				}
				if c.Bool("json") {
					return printJSON(out)
				}
				if len(out) == 0 {
					fmt.Println("No activity.")
				}
				for _, h := range out {
					who := h.Name
					if who == "" {
						who = h.Counterparty
					}
					if who == "" {
						who = "unknown"
					}
					sign := "+"
					if h.Direction == "out" {
						sign = "-"
					}
					fmt.Printf("%s  %s%s  %-44s  balance %s\n",
						h.Date, sign, h.Amount.StringFixed(types.Decimals), who, h.BalanceAfter.StringFixed(types.Decimals))
				}
				return nil
			})
		},
	}
}
