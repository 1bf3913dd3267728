package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no user matches the lookup key.
var ErrNotFound = errors.New("user not found")

// ErrDuplicateUniqueCode is returned when an insert collides with an
// existing unique code. The directory's uniqueness constraint is the source
// of truth for concurrent registrations.
var ErrDuplicateUniqueCode = errors.New("unique code already exists")

// Directory persists and looks up user records.
type Directory interface {
	Insert(ctx context.Context, u User) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByUniqueCode(ctx context.Context, code string) (User, error)
}
