package otp

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	code      string
	phone     string // normalized
	createdAt time.Time
	attempts  int
	verified  bool
}

// MemoryStore is the single-process Store. One mutex guards the whole map
// and is held across the entire verification sequence, which linearizes
// concurrent Verify calls for the same reference id.
type MemoryStore struct {
	mu          sync.Mutex
	entries     map[string]*entry
	ttl         time.Duration
	maxAttempts int
	rules       PhoneRules
}

// NewMemoryStore builds an in-memory OTP store.
func NewMemoryStore(ttl time.Duration, maxAttempts int, rules PhoneRules) *MemoryStore {
	return &MemoryStore{
		entries:     make(map[string]*entry),
		ttl:         ttl,
		maxAttempts: maxAttempts,
		rules:       rules,
	}
}

// Put inserts a fresh entry with zero attempts.
func (s *MemoryStore) Put(_ context.Context, referenceID, phone, code string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[referenceID] = &entry{
		code:      code,
		phone:     s.rules.Normalize(phone),
		createdAt: now,
	}
	return nil
}

// Verify runs the whole check sequence inside the store lock.
func (s *MemoryStore) Verify(_ context.Context, referenceID, phone, code string, now time.Time) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[referenceID]
	if !ok {
		return OutcomeNotFound, nil
	}
	if now.Sub(e.createdAt) > s.ttl {
		delete(s.entries, referenceID)
		return OutcomeExpired, nil
	}
	if e.verified {
		return OutcomeAlreadyVerified, nil
	}
	if e.attempts >= s.maxAttempts {
		delete(s.entries, referenceID)
		return OutcomeTooManyAttempts, nil
	}

	e.attempts++

	if code != e.code || s.rules.Normalize(phone) != e.phone {
		if e.attempts >= s.maxAttempts {
			delete(s.entries, referenceID)
			return OutcomeTooManyAttempts, nil
		}
		return OutcomeInvalid, nil
	}

	e.verified = true
	return OutcomeValid, nil
}

// Remove drops the entry if present.
func (s *MemoryStore) Remove(_ context.Context, referenceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, referenceID)
	return nil
}

// Cleanup removes every entry past its TTL.
func (s *MemoryStore) Cleanup(_ context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		if now.Sub(e.createdAt) > s.ttl {
			delete(s.entries, id)
		}
	}
	return nil
}
