package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/notaria/backoffice/internal/domain/billing"
	"github.com/notaria/backoffice/internal/domain/shared"
)

// keyLock is a single-slot semaphore shared by every waiter on one key
type keyLock struct {
	slot    chan struct{}
	waiters int
}

// InMemoryInvoiceLocker implements InvoiceLocker with per-key mutexes held in
// process memory. Suitable for single-instance deployments and tests.
type InMemoryInvoiceLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
	wait  time.Duration
}

// NewInMemoryInvoiceLocker creates a locker. A zero wait blocks until the
// context is done.
func NewInMemoryInvoiceLocker(wait time.Duration) *InMemoryInvoiceLocker {
	return &InMemoryInvoiceLocker{
		locks: make(map[string]*keyLock),
		wait:  wait,
	}
}

// Lock acquires every key in sorted order and returns a release func that
// frees them all. If any key cannot be taken the ones already held are freed.
func (l *InMemoryInvoiceLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	ordered := normalizeKeys(keys)

	var timeout <-chan time.Time
	if l.wait > 0 {
		timer := time.NewTimer(l.wait)
		defer timer.Stop()
		timeout = timer.C
	}

	held := make([]string, 0, len(ordered))
	for _, key := range ordered {
		kl := l.ref(key)
		select {
		case kl.slot <- struct{}{}:
			held = append(held, key)
		case <-timeout:
			l.unref(key)
			l.releaseAll(held)
			return nil, shared.ErrLockTimeout
		case <-ctx.Done():
			l.unref(key)
			l.releaseAll(held)
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.releaseAll(held) })
	}, nil
}

// ref returns the lock for key, registering the caller as a waiter
func (l *InMemoryInvoiceLocker) ref(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{slot: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.waiters++
	return kl
}

// unref drops a waiter and forgets the key once nobody references it
func (l *InMemoryInvoiceLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.locks[key]
	if !ok {
		return
	}
	kl.waiters--
	if kl.waiters == 0 {
		delete(l.locks, key)
	}
}

func (l *InMemoryInvoiceLocker) releaseAll(held []string) {
	for i := len(held) - 1; i >= 0; i-- {
		l.mu.Lock()
		kl := l.locks[held[i]]
		l.mu.Unlock()
		if kl != nil {
			<-kl.slot
		}
		l.unref(held[i])
	}
}

// size reports how many keys are currently tracked
func (l *InMemoryInvoiceLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// normalizeKeys de-duplicates keys, drops empty ones and sorts the rest
func normalizeKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var _ billing.InvoiceLocker = (*InMemoryInvoiceLocker)(nil)
