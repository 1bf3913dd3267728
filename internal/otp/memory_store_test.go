package otp

import (
	"context"
	"sync"
	"testing"
	"time"
)

func newTestStore() *MemoryStore {
	return NewMemoryStore(300*time.Second, 5, NewPhoneRules("62"))
}

func TestMemoryStoreHappyPath(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	now := time.Now()

	if err := store.Put(ctx, "ref-1", "08123456789", "123456", now); err != nil {
		t.Fatalf("put: %v", err)
	}

	outcome, err := store.Verify(ctx, "ref-1", "08123456789", "123456", now)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcome != OutcomeValid {
		t.Fatalf("expected valid, got %s", outcome)
	}
}

func TestMemoryStorePhoneNormalizationMatch(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	now := time.Now()

	if err := store.Put(ctx, "ref-1", "08123456789", "123456", now); err != nil {
		t.Fatalf("put: %v", err)
	}

	// International form of the same number must match the local form.
	outcome, err := store.Verify(ctx, "ref-1", "+628123456789", "123456", now)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcome != OutcomeValid {
		t.Fatalf("expected valid, got %s", outcome)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	store := newTestStore()

	outcome, err := store.Verify(context.Background(), "missing", "08123456789", "123456", time.Now())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcome != OutcomeNotFound {
		t.Fatalf("expected not_found, got %s", outcome)
	}
}

func TestMemoryStoreExpired(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	created := time.Now()

	if err := store.Put(ctx, "ref-1", "08123456789", "123456", created); err != nil {
		t.Fatalf("put: %v", err)
	}

	outcome, err := store.Verify(ctx, "ref-1", "08123456789", "123456", created.Add(301*time.Second))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcome != OutcomeExpired {
		t.Fatalf("expected expired, got %s", outcome)
	}

	// The expired entry is removed in the same call.
	outcome, err = store.Verify(ctx, "ref-1", "08123456789", "123456", created.Add(301*time.Second))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcome != OutcomeNotFound {
		t.Fatalf("expected not_found after expiry removal, got %s", outcome)
	}
}

func TestMemoryStoreAlreadyVerified(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	now := time.Now()

	if err := store.Put(ctx, "ref-1", "08123456789", "123456", now); err != nil {
		t.Fatalf("put: %v", err)
	}
	if outcome, _ := store.Verify(ctx, "ref-1", "08123456789", "123456", now); outcome != OutcomeValid {
		t.Fatalf("expected valid, got %s", outcome)
	}

	outcome, err := store.Verify(ctx, "ref-1", "08123456789", "123456", now)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcome != OutcomeAlreadyVerified {
		t.Fatalf("expected already_verified, got %s", outcome)
	}
}

func TestMemoryStoreAttemptCap(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	now := time.Now()

	if err := store.Put(ctx, "ref-1", "08123456789", "123456", now); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Four wrong codes are plain mismatches.
	for i := 0; i < 4; i++ {
		outcome, err := store.Verify(ctx, "ref-1", "08123456789", "000000", now)
		if err != nil {
			t.Fatalf("verify %d: %v", i, err)
		}
		if outcome != OutcomeInvalid {
			t.Fatalf("attempt %d: expected invalid, got %s", i, outcome)
		}
	}

	// The fifth wrong code reaches the cap and removes the entry.
	outcome, err := store.Verify(ctx, "ref-1", "08123456789", "000000", now)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcome != OutcomeTooManyAttempts {
		t.Fatalf("expected too_many_attempts, got %s", outcome)
	}

	outcome, err = store.Verify(ctx, "ref-1", "08123456789", "123456", now)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcome != OutcomeNotFound {
		t.Fatalf("expected not_found after removal, got %s", outcome)
	}
}

func TestMemoryStoreCorrectCodeOnLastAttempt(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	now := time.Now()

	if err := store.Put(ctx, "ref-1", "08123456789", "123456", now); err != nil {
		t.Fatalf("put: %v", err)
	}
	for i := 0; i < 4; i++ {
		if outcome, _ := store.Verify(ctx, "ref-1", "08123456789", "000000", now); outcome != OutcomeInvalid {
			t.Fatalf("attempt %d: expected invalid, got %s", i, outcome)
		}
	}

	outcome, err := store.Verify(ctx, "ref-1", "08123456789", "123456", now)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcome != OutcomeValid {
		t.Fatalf("expected valid on final attempt, got %s", outcome)
	}
}

func TestMemoryStoreWrongPhoneCountsAsAttempt(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	now := time.Now()

	if err := store.Put(ctx, "ref-1", "08123456789", "123456", now); err != nil {
		t.Fatalf("put: %v", err)
	}

	outcome, err := store.Verify(ctx, "ref-1", "08999999999", "123456", now)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcome != OutcomeInvalid {
		t.Fatalf("expected invalid for wrong phone, got %s", outcome)
	}
}

func TestMemoryStoreRemove(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	now := time.Now()

	if err := store.Put(ctx, "ref-1", "08123456789", "123456", now); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Remove(ctx, "ref-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	outcome, _ := store.Verify(ctx, "ref-1", "08123456789", "123456", now)
	if outcome != OutcomeNotFound {
		t.Fatalf("expected not_found after remove, got %s", outcome)
	}
}

func TestMemoryStoreCleanup(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	created := time.Now()

	if err := store.Put(ctx, "old", "08123456789", "123456", created); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, "fresh", "08123456789", "654321", created.Add(200*time.Second)); err != nil {
		t.Fatalf("put: %v", err)
	}

	if err := store.Cleanup(ctx, created.Add(301*time.Second)); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	if outcome, _ := store.Verify(ctx, "old", "08123456789", "123456", created.Add(301*time.Second)); outcome != OutcomeNotFound {
		t.Fatalf("expected old entry cleaned, got %s", outcome)
	}
	if outcome, _ := store.Verify(ctx, "fresh", "08123456789", "654321", created.Add(301*time.Second)); outcome != OutcomeValid {
		t.Fatalf("expected fresh entry retained, got %s", outcome)
	}
}

func TestMemoryStoreSingleValidUnderContention(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	now := time.Now()

	if err := store.Put(ctx, "ref-1", "08123456789", "123456", now); err != nil {
		t.Fatalf("put: %v", err)
	}

	const workers = 16
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		valids int
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			outcome, err := store.Verify(ctx, "ref-1", "08123456789", "123456", now)
			if err != nil {
				t.Errorf("verify: %v", err)
				return
			}
			if outcome == OutcomeValid {
				mu.Lock()
				valids++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if valids != 1 {
		t.Fatalf("expected exactly one valid outcome, got %d", valids)
	}
}
