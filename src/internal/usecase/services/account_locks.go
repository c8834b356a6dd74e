package services

import (
	"context"
	"sync"
)

// accountLocks serializes transfer submissions per source account. Each lock
// is a one-slot channel so that waiting honours context cancellation.
type accountLocks struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[string]chan struct{})}
}

func (l *accountLocks) get(accountID string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[accountID]
	if !ok {
		lock = make(chan struct{}, 1)
		l.locks[accountID] = lock
	}
	return lock
}

// Lock blocks until the account's lock is held or ctx is done.
func (l *accountLocks) Lock(ctx context.Context, accountID string) (unlock func(), err error) {
	lock := l.get(accountID)
	select {
	case lock <- struct{}{}:
		return func() { <-lock }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
