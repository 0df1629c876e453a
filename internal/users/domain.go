package users

import (
	"time"

	"github.com/clinicore/clinicore/internal/authz"
)

// User represents a clinic user account.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         authz.Role
	ClinicID     *string
	IsExternal   bool
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal derives the request principal from the persisted record.
func (u *User) Principal() authz.Principal {
	return authz.Principal{
		ID:         u.ID,
		Role:       u.Role,
		ClinicID:   u.ClinicID,
		IsExternal: u.IsExternal,
	}
}
