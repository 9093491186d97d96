package conversation

import (
	"context"
	"sync"
)

// turnLock is a mutex that grants ownership in strict arrival order.
// Release hands the lock directly to the oldest waiter.
type turnLock struct {
	mu      sync.Mutex
	held    bool
	waiters []chan struct{}
}

func newTurnLock() *turnLock {
	return &turnLock{}
}

// Acquire blocks until the lock is ours or ctx is done
func (l *turnLock) Acquire(ctx context.Context) error {
	l.mu.Lock()
	if !l.held && len(l.waiters) == 0 {
		l.held = true
		l.mu.Unlock()
		return nil
	}
	ready := make(chan struct{})
	l.waiters = append(l.waiters, ready)
	l.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
	}

	l.mu.Lock()
	select {
	case <-ready:
		// handed over while we were giving up: pass it on
		l.mu.Unlock()
		l.Release()
		return ctx.Err()
	default:
	}
	for i, w := range l.waiters {
		if w == ready {
			l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
			break
		}
	}
	l.mu.Unlock()
	return ctx.Err()
}

func (l *turnLock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.waiters) > 0 {
		next := l.waiters[0]
		l.waiters = l.waiters[1:]
		close(next)
		return
	}
	l.held = false
}

func (l *turnLock) waiting() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.waiters)
}
