package wallet

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"

	"github.com/Klingon-tech/klingpay/pkg/types"
)

func testMaster(t *testing.T) *HDKey {
	t.Helper()
	seed, err := SeedFromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}
	master, err := NewMasterKey(seed)
	if err != nil {
		t.Fatalf("NewMasterKey() error: %v", err)
	}
	return master
}

func fastKDF() KDFParams {
	return KDFParams{MemoryKiB: 64, Iterations: 1, Threads: 1}
}

func outpoint(b byte, idx uint32) types.Outpoint {
	var id types.Hash
	id[0] = b
	return types.Outpoint{TxID: id, Index: idx}
}

// pagedSource serves fixed pages and counts fetches.
type pagedSource struct {
	mu      sync.Mutex
	pages   [][]UTXO
	failAt  int
	fetches int
}

var errPage = errors.New("page unavailable")

func (p *pagedSource) UTXOPages(_ context.Context, _ []types.Address) iter.Seq2[[]UTXO, error] {
	p.mu.Lock()
	p.fetches++
	pages := p.pages
	failAt := p.failAt
	p.mu.Unlock()
	return func(yield func([]UTXO, error) bool) {
		for i, page := range pages {
			if failAt > 0 && i == failAt {
				yield(nil, errPage)
				return
			}
			if !yield(page, nil) {
				return
			}
		}
	}
}

func (p *pagedSource) fetchCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetches
}
