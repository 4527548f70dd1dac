package interview

import (
	"context"
	"sync"
	"time"
)

// SessionStore holds interview state per initiator. Entries idle longer than
// the store's time-to-live are treated as abandoned.
type SessionStore interface {
	Get(ctx context.Context, initiator string) (*LoanRequest, bool, error)
	Save(ctx context.Context, req *LoanRequest) error
	Delete(ctx context.Context, initiator string) error
	// Sweep evicts expired entries and reports how many were removed.
	Sweep(ctx context.Context) (int, error)
	Count(ctx context.Context) (int, error)
}

type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]LoanRequest
	ttl     time.Duration
	now     func() time.Time
}

var _ SessionStore = (*MemoryStore)(nil)

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{entries: make(map[string]LoanRequest), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) expired(r LoanRequest) bool {
	return s.ttl > 0 && s.now().Sub(r.UpdatedAt) > s.ttl
}

func (s *MemoryStore) Get(_ context.Context, initiator string) (*LoanRequest, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.entries[initiator]
	if !ok {
		return nil, false, nil
	}
	if s.expired(r) {
		delete(s.entries, initiator)
		return nil, false, nil
	}
	return &r, true, nil
}

func (s *MemoryStore) Save(_ context.Context, req *LoanRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[req.Initiator] = *req
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, initiator string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, initiator)
	return nil
}

func (s *MemoryStore) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, r := range s.entries {
		if s.expired(r) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}

// keyedMutex serialises work per key and drops idle locks.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refLock)}
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
