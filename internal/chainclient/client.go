// Package chainclient talks to a ledger node over JSON-RPC: UTXO listing,
// fee parameters, signing and submission, recent transactions.
package chainclient

import (
	"context"
	"fmt"
	"iter"

	"github.com/Klingon-tech/klingpay/internal/history"
	klog "github.com/Klingon-tech/klingpay/internal/log"
	"github.com/Klingon-tech/klingpay/internal/rpcclient"
	"github.com/Klingon-tech/klingpay/internal/wallet"
	"github.com/Klingon-tech/klingpay/pkg/tx"
	"github.com/Klingon-tech/klingpay/pkg/types"
	"github.com/rs/zerolog"
)

// Node RPC methods.
const (
	MethodListUnspent   = "wallet_listUnspent"
	MethodFeeParameters = "chain_getFeeParameters"
	MethodSubmit        = "tx_submit"
	MethodRecent        = "address_getRecentTransactions"
)

// Defaults for paging and history depth.
const (
	DefaultPageSize = 100
	RecentLimit     = 20
)

// Signer signs every input of a body with the keys of signers.
type Signer interface {
	Sign(body *tx.Transaction, signers []types.Address) error
}

// Client is the node adapter. It satisfies wallet.UTXOSource and
// history.Source.
type Client struct {
	rpc      *rpcclient.Client
	signer   Signer
	PageSize int
	logger   zerolog.Logger
}

// New returns a Client calling rpc and signing with signer.
func New(rpc *rpcclient.Client, signer Signer) *Client {
	return &Client{rpc: rpc, signer: signer, PageSize: DefaultPageSize, logger: klog.Chain}
}

type utxoJSON struct {
	TxID    types.Hash    `json:"txid"`
	Index   uint32        `json:"index"`
	Address types.Address `json:"address"`
	Value   uint64        `json:"value"`
	Assets  bool          `json:"assets"`
}

type listUnspentParams struct {
	Addresses []types.Address `json:"addresses"`
	Cursor    string          `json:"cursor,omitempty"`
	Limit     int             `json:"limit"`
}

type listUnspentResult struct {
	UTXOs      []utxoJSON `json:"utxos"`
	NextCursor string     `json:"next_cursor"`
}

// UTXOPages lists the unspent outputs of addrs one page at a time, following
// the node's cursor until it returns none. An error ends the sequence.
func (c *Client) UTXOPages(ctx context.Context, addrs []types.Address) iter.Seq2[[]wallet.UTXO, error] {
	return func(yield func([]wallet.UTXO, error) bool) {
		params := listUnspentParams{Addresses: addrs, Limit: c.PageSize}
		for {
			var res listUnspentResult
			if err := c.rpc.Call(ctx, MethodListUnspent, params, &res); err != nil {
				yield(nil, err)
				return
			}
			page := make([]wallet.UTXO, len(res.UTXOs))
			for i, u := range res.UTXOs {
				page[i] = wallet.UTXO{
					Outpoint: types.Outpoint{TxID: u.TxID, Index: u.Index},
					Address:  u.Address,
					Value:    u.Value,
					Assets:   u.Assets,
				}
			}
			if !yield(page, nil) {
				return
			}
			if res.NextCursor == "" || res.NextCursor == params.Cursor {
				return
			}
			params.Cursor = res.NextCursor
		}
	}
}

// FeeParameters reads the current fee model.
func (c *Client) FeeParameters(ctx context.Context) (tx.FeeParams, error) {
	var p tx.FeeParams
	if err := c.rpc.Call(ctx, MethodFeeParameters, nil, &p); err != nil {
		return tx.FeeParams{}, fmt.Errorf("fee parameters: %w", err)
	}
	return p, nil
}

type submitResult struct {
	Hash types.Hash `json:"hash"`
}

// SignAndSubmit signs body with the keys of signers and submits it. Node
// rejections are returned as the node reported them.
func (c *Client) SignAndSubmit(ctx context.Context, body *tx.Transaction, signers []types.Address) (types.Hash, error) {
	if err := c.signer.Sign(body, signers); err != nil {
		return types.Hash{}, fmt.Errorf("sign: %w", err)
	}
	if err := body.VerifySignatures(); err != nil {
		return types.Hash{}, fmt.Errorf("verify signatures: %w", err)
	}

	var res submitResult
	if err := c.rpc.Call(ctx, MethodSubmit, map[string]any{"tx": body}, &res); err != nil {
		return types.Hash{}, err
	}
	local := body.Hash()
	if res.Hash.IsZero() {
		res.Hash = local
	} else if res.Hash != local {
		c.logger.Warn().Str("node", res.Hash.String()).Str("local", local.String()).Msg("Node reported a different tx hash")
	}
	c.logger.Info().Str("hash", res.Hash.String()).Int("inputs", len(body.Inputs)).Msg("Transaction submitted")
	return res.Hash, nil
}

// RecentTransactions returns the latest RecentLimit transactions touching
// addr.
func (c *Client) RecentTransactions(ctx context.Context, addr types.Address) ([]history.RawTransaction, error) {
	var out []history.RawTransaction
	params := map[string]any{"address": addr, "limit": RecentLimit}
	if err := c.rpc.Call(ctx, MethodRecent, params, &out); err != nil {
		return nil, err
	}
	if len(out) > RecentLimit {
		out = out[:RecentLimit]
	}
	return out, nil
}
