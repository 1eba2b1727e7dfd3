package history

import (
	"context"
	"fmt"
	"time"

	klog "github.com/Klingon-tech/klingpay/internal/log"
	"github.com/Klingon-tech/klingpay/internal/metrics"
	"github.com/Klingon-tech/klingpay/pkg/types"
	"github.com/rs/zerolog"
)

// Source lists an address's recent transactions.
type Source interface {
	RecentTransactions(ctx context.Context, addr types.Address) ([]RawTransaction, error)
}

// Service refreshes the history of a multi-address wallet.
type Service struct {
	source  Source
	recon   *Reconstructor
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewService returns a Service. m may be nil.
func NewService(source Source, recon *Reconstructor, m *metrics.Metrics) *Service {
	return &Service{source: source, recon: recon, metrics: m, logger: klog.History}
}

// Refresh fetches the recent transactions of every owned address one after
// another and reconstructs them as a single history. A transaction touching
// several owned addresses appears once.
func (s *Service) Refresh(ctx context.Context, owned []types.Address, balance int64) ([]Row, error) {
	start := time.Now()
	set := make(map[types.Address]bool, len(owned))
	var raw []RawTransaction
	for _, addr := range owned {
		set[addr] = true
		txs, err := s.source.RecentTransactions(ctx, addr)
		if err != nil {
			return nil, fmt.Errorf("recent transactions of %s: %w", addr, err)
		}
		raw = append(raw, txs...)
	}

	rows, err := s.recon.Reconstruct(ctx, raw, set, balance)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordHistory(len(rows), time.Since(start))
	s.logger.Info().Int("addresses", len(owned)).Int("rows", len(rows)).Msg("History refreshed")
	return rows, nil
}
