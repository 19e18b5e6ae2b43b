package model

import "github.com/google/uuid"

const (
	RoleAdmin   = "ADMIN"
	RoleManager = "MANAGER"
	RoleStaff   = "STAFF"
)

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID uuid.UUID
	Role   string
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanManageInventory reports whether the caller may record restocking events.
func (p Principal) CanManageInventory() bool {
	return p.Role == RoleAdmin || p.Role == RoleManager
}
