package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/Klingon-tech/klingpay/pkg/types"
)

// ErrWalletExists and ErrWalletNotFound report keystore name clashes.
var (
	ErrWalletExists   = errors.New("wallet already exists")
	ErrWalletNotFound = errors.New("wallet not found")
)

const keystoreVersion = 1

type walletFile struct {
	Version   int            `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	Seed      []byte         `json:"sealed_seed"`
	Accounts  []accountEntry `json:"accounts"`
	// Next unused index per derivation chain.
	NextExternal uint32 `json:"next_external"`
	NextChange   uint32 `json:"next_change"`
}

type accountEntry struct {
	Name    string        `json:"name"`
	Chain   uint32        `json:"chain"`
	Index   uint32        `json:"index"`
	Address types.Address `json:"address"`
}

// Keystore keeps sealed seeds and account metadata, one file per wallet.
type Keystore struct {
	dir string
}

// NewKeystore opens the keystore directory, creating it if needed.
func NewKeystore(dir string) (*Keystore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{dir: dir}, nil
}

func (ks *Keystore) path(name string) string {
	return filepath.Join(ks.dir, name+".wallet")
}

// Create seals seed under password and writes a new wallet file.
func (ks *Keystore) Create(name string, seed, password []byte, params KDFParams) error {
	if _, err := os.Stat(ks.path(name)); err == nil {
		return fmt.Errorf("%w: %q", ErrWalletExists, name)
	}
	sealed, err := Seal(seed, password, params)
	if err != nil {
		return fmt.Errorf("seal seed: %w", err)
	}
	return ks.write(name, &walletFile{
		Version:   keystoreVersion,
		CreatedAt: time.Now().UTC(),
		Seed:      sealed,
		Accounts:  []accountEntry{},
	})
}

// Unlock opens the sealed seed of name.
func (ks *Keystore) Unlock(name string, password []byte) ([]byte, error) {
	wf, err := ks.read(name)
	if err != nil {
		return nil, err
	}
	return Open(wf.Seed, password)
}

// Accounts lists the recorded accounts of name.
func (ks *Keystore) Accounts(name string) ([]Account, error) {
	wf, err := ks.read(name)
	if err != nil {
		return nil, err
	}
	out := make([]Account, len(wf.Accounts))
	for i, e := range wf.Accounts {
		out[i] = Account{Name: e.Name, Chain: e.Chain, Index: e.Index, Address: e.Address}
	}
	return out, nil
}

// NewAccount derives the next unused address on chain, records it and
// returns it.
func (ks *Keystore) NewAccount(name string, master *HDKey, chain uint32, label string) (Account, error) {
	var acct Account
	err := ks.update(name, func(wf *walletFile) error {
		next := &wf.NextExternal
		if chain == ChainChange {
			next = &wf.NextChange
		}
		a, err := DeriveAccount(master, label, chain, *next)
		if err != nil {
			return err
		}
		wf.Accounts = append(wf.Accounts, accountEntry{Name: a.Name, Chain: a.Chain, Index: a.Index, Address: a.Address})
		*next++
		acct = a
		return nil
	})
	return acct, err
}

// ChangeAccount returns the newest change account, deriving the first one
// when none exists yet.
func (ks *Keystore) ChangeAccount(name string, master *HDKey) (Account, error) {
	accounts, err := ks.Accounts(name)
	if err != nil {
		return Account{}, err
	}
	for _, a := range slices.Backward(accounts) {
		if a.IsChange() {
			return a, nil
		}
	}
	return ks.NewAccount(name, master, ChainChange, "change")
}

// List returns the names of all wallets.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.dir)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".wallet" {
			continue
		}
		names = append(names, e.Name()[:len(e.Name())-len(".wallet")])
	}
	return names, nil
}

// Delete removes the wallet file of name.
func (ks *Keystore) Delete(name string) error {
	err := os.Remove(ks.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %q", ErrWalletNotFound, name)
	}
	return err
}

func (ks *Keystore) update(name string, fn func(*walletFile) error) error {
	wf, err := ks.read(name)
	if err != nil {
		return err
	}
	if err := fn(wf); err != nil {
		return err
	}
	return ks.write(name, wf)
}

func (ks *Keystore) write(name string, wf *walletFile) error {
	data, err := json.MarshalIndent(wf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal wallet: %w", err)
	}
	tmp := ks.path(name) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write wallet: %w", err)
	}
	return os.Rename(tmp, ks.path(name))
}

func (ks *Keystore) read(name string) (*walletFile, error) {
	data, err := os.ReadFile(ks.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrWalletNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	var wf walletFile
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parse wallet: %w", err)
	}
	if wf.Version != keystoreVersion {
		return nil, fmt.Errorf("unsupported wallet version %d", wf.Version)
	}
	return &wf, nil
}
