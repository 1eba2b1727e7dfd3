package wallet

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	klog "github.com/Klingon-tech/klingpay/internal/log"
	"github.com/Klingon-tech/klingpay/pkg/types"
	"github.com/rs/zerolog"
)

// ErrNoAccounts is returned when a snapshot is requested before any account
// is loaded.
var ErrNoAccounts = errors.New("no accounts loaded")

// Snapshot is the UTXO set of the session's addresses at one point in time.
// It is read-only once captured.
type Snapshot struct {
	UTXOs     []UTXO
	Total     uint64
	FetchedAt time.Time
}

// Session is the single active wallet: its accounts, change address, keyring
// and cached UTXO snapshot. It is safe for concurrent use.
type Session struct {
	source UTXOSource
	logger zerolog.Logger

	mu        sync.Mutex
	accounts  []Account
	change    types.Address
	hasChange bool
	keyring   *Keyring
	snapshot  *Snapshot
	gen       uint64
	balance   uint64
	onBalance func(uint64)

	refreshes sync.WaitGroup
}

// NewSession creates a session reading UTXOs from source and signing with kr.
func NewSession(source UTXOSource, kr *Keyring) *Session {
	return &Session{source: source, keyring: kr, logger: klog.Wallet}
}

// SetAccounts replaces the account list and the change address. The cached
// snapshot is dropped. A zero change address means none is available.
func (s *Session) SetAccounts(accounts []Account, change types.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = slices.Clone(accounts)
	s.change = change
	s.hasChange = !change.IsZero()
	s.dropSnapshotLocked()
}

// Accounts returns a copy of the loaded accounts.
func (s *Session) Accounts() []Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.accounts)
}

// Addresses returns the addresses the wallet's snapshot covers, in account
// order.
func (s *Session) Addresses() []types.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Addresses(s.accounts)
}

// ChangeAddress returns the address change is paid to.
func (s *Session) ChangeAddress() (types.Address, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.change, s.hasChange
}

// Keyring returns the session's signing keys.
func (s *Session) Keyring() *Keyring {
	return s.keyring
}

// OnBalance registers fn to be called after every successful refresh.
func (s *Session) OnBalance(fn func(uint64)) {
	s.mu.Lock()
	s.onBalance = fn
	s.mu.Unlock()
}

// Balance returns the total of the last captured snapshot.
func (s *Session) Balance() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// Snapshot returns the cached UTXO snapshot, fetching it if none is held.
func (s *Session) Snapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	if s.snapshot != nil {
		snap := s.snapshot
		s.mu.Unlock()
		return snap, nil
	}
	if len(s.accounts) == 0 {
		s.mu.Unlock()
		return nil, ErrNoAccounts
	}
	gen := s.gen
	addrs := Addresses(s.accounts)
	s.mu.Unlock()

	utxos, err := DrainUTXOs(s.source.UTXOPages(ctx, addrs))
	if err != nil {
		return nil, fmt.Errorf("fetch utxos: %w", err)
	}
	snap := &Snapshot{UTXOs: utxos, Total: TotalValue(utxos), FetchedAt: time.Now()}

	s.mu.Lock()
	// An invalidation during the fetch makes this result stale; hand it to
	// the caller but do not cache it.
	var notify func(uint64)
	if s.gen == gen {
		s.snapshot = snap
		s.balance = snap.Total
		notify = s.onBalance
	}
	s.mu.Unlock()

	s.logger.Debug().Int("utxos", len(utxos)).Uint64("total", snap.Total).Msg("Snapshot captured")
	if notify != nil {
		notify(snap.Total)
	}
	return snap, nil
}

// Invalidate drops the cached snapshot so the next read refetches.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.dropSnapshotLocked()
	s.mu.Unlock()
}

func (s *Session) dropSnapshotLocked() {
	s.snapshot = nil
	s.gen++
}

// RefreshBalance drops the snapshot and fetches a fresh one.
func (s *Session) RefreshBalance(ctx context.Context) (uint64, error) {
	s.Invalidate()
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return snap.Total, nil
}

// RefreshBalanceAsync refreshes in the background. Failures are logged.
func (s *Session) RefreshBalanceAsync(timeout time.Duration) {
	s.refreshes.Add(1)
	go func() {
		defer s.refreshes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if _, err := s.RefreshBalance(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Background balance refresh failed")
		}
	}()
}

// Wait blocks until background refreshes have finished.
func (s *Session) Wait() {
	s.refreshes.Wait()
}
