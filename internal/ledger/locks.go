package ledger

import (
	"context"
	"sync"
	"time"
)

// lockTable serialises mutations per account. Each slot is a capacity-1
// channel; holding the token is holding the lock. Acquisition is bounded by
// the policy lock timeout so a stuck holder surfaces as ErrLockTimeout
// instead of blocking callers indefinitely.
type lockTable struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{slots: make(map[string]chan struct{})}
}

func (t *lockTable) slot(id string) chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.slots[id]
	if !ok {
		s = make(chan struct{}, 1)
		t.slots[id] = s
	}
	return s
}

func (t *lockTable) acquire(ctx context.Context, id string, timeout time.Duration) error {
	s := t.slot(id)
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case s <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrLockTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *lockTable) release(id string) {
	<-t.slot(id)
}

// acquireBoth takes both account locks in lexicographic id order so that
// concurrent opposite-direction transfers cannot deadlock.
func (t *lockTable) acquireBoth(ctx context.Context, a, b string, timeout time.Duration) error {
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	if err := t.acquire(ctx, first, timeout); err != nil {
		return err
	}
	if err := t.acquire(ctx, second, timeout); err != nil {
		t.release(first)
		return err
	}
	return nil
}

func (t *lockTable) releaseBoth(a, b string) {
	t.release(a)
	t.release(b)
}
