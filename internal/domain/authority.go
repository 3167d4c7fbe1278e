package domain

import "github.com/google/uuid"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleUser:
		return true
	default:
		return false
	}
}

// Authority identifies who requested a transition. Scheduled sweeps act
// with system authority, which bypasses the permission evaluator; live
// requests carry a role and user identity.
type Authority struct {
	System bool
	Role   Role
	UserID uuid.UUID
}

// SystemAuthority returns the implicit authority used by scheduled sweeps.
func SystemAuthority() Authority {
	return Authority{System: true}
}

// UserAuthority returns the authority of a live user request.
func UserAuthority(role Role, userID uuid.UUID) Authority {
	return Authority{Role: role, UserID: userID}
}
