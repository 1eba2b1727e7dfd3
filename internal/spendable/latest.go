package spendable

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned by a Latest call that a newer call replaced.
var ErrSuperseded = errors.New("superseded by a newer request")

// Latest runs computations where only the most recent request matters,
// such as quotes recomputed on every keystroke. Starting a call cancels the
// context of the one in flight.
type Latest[T any] struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// Do runs fn. If another Do starts before fn returns, fn's context is
// cancelled and Do returns ErrSuperseded regardless of fn's result.
func (l *Latest[T]) Do(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.seq++
	mine := l.seq
	l.cancel = cancel
	l.mu.Unlock()

	v, err := fn(cctx)

	l.mu.Lock()
	current := l.seq == mine
	if current {
		l.cancel = nil
	}
	l.mu.Unlock()

	if !current {
		var zero T
		return zero, ErrSuperseded
	}
	return v, err
}
