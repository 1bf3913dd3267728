package user

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type memoryDirectory struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]User
	byCode map[string]uuid.UUID
}

// NewMemoryDirectory builds an in-memory user directory for tests and
// database-less development runs.
func NewMemoryDirectory() Directory {
	return &memoryDirectory{
		byID:   make(map[uuid.UUID]User),
		byCode: make(map[string]uuid.UUID),
	}
}

func (d *memoryDirectory) Insert(_ context.Context, u User) (uuid.UUID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.byCode[u.UniqueCode]; exists {
		return uuid.Nil, ErrDuplicateUniqueCode
	}
	d.byID[u.ID] = u
	d.byCode[u.UniqueCode] = u.ID
	return u.ID, nil
}

func (d *memoryDirectory) GetByID(_ context.Context, id uuid.UUID) (User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (d *memoryDirectory) GetByUniqueCode(_ context.Context, code string) (User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byCode[code]
	if !ok {
		return User{}, ErrNotFound
	}
	return d.byID[id], nil
}
