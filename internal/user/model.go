package user

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of account roles on the platform.
type Role string

const (
	RoleKitchen  Role = "kitchen"
	RoleSupplier Role = "supplier"
	RoleSchool   Role = "school"
	RoleAdmin    Role = "admin"
)

// ParseRole validates a role string received from a caller.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleKitchen, RoleSupplier, RoleSchool, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// User is a registered account. The password hash is never serialized into
// API responses.
type User struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Role            Role      `json:"role"`
	UniqueCode      string    `json:"unique_code"`
	PasswordHash    string    `json:"-"`
	Phone           string    `json:"phone,omitempty"`
	Verified        bool      `json:"verified"`
	InstitutionName string    `json:"institution_name,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
