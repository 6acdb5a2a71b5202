package session

import (
	"time"

	"github.com/google/uuid"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleUser is the default customer role
	RoleUser UserRole = "user"
	// RoleAdmin is the back-office administrator role
	RoleAdmin UserRole = "admin"
	// RoleEmployee is the staff role
	RoleEmployee UserRole = "employee"
	// RoleSupplier is the supplier/vendor role
	RoleSupplier UserRole = "supplier"
	// RoleInteriorDesigner is the interior designer role
	RoleInteriorDesigner UserRole = "interior_designer"
)

// User is the locally cached profile of the signed-in user. It mirrors the
// canonical record owned by the identity service; the session Manager is the
// only writer, adopting gateway responses as they settle.
type User struct {
	ID            uuid.UUID      `json:"id,omitempty"`
	Role          UserRole       `json:"role,omitempty"`
	FirstName     string         `json:"first_name,omitempty"`
	LastName      string         `json:"last_name,omitempty"`
	Email         string         `json:"email,omitempty"`
	Phone         string         `json:"phone_number,omitempty"`
	EmailVerified bool           `json:"is_email_verified,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     *time.Time     `json:"created_at,omitempty"`
	UpdatedAt     *time.Time     `json:"updated_at,omitempty"`
}

// AddMetadata will append information to a metadata attribute
func (u *User) AddMetadata(key string, val any) *User {
	if u.Metadata == nil {
		u.Metadata = make(map[string]any)
	}
	u.Metadata[key] = val
	return u
}

// Clone returns a copy of the user with its own metadata map.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}

	cloned := *u
	if len(u.Metadata) > 0 {
		cloned.Metadata = make(map[string]any, len(u.Metadata))
		for k, v := range u.Metadata {
			cloned.Metadata[k] = v
		}
	}
	return &cloned
}

// FullName joins first and last name for display purposes.
func (u *User) FullName() string {
	switch {
	case u == nil:
		return ""
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// IsValidRole checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleUser, RoleAdmin, RoleEmployee, RoleSupplier, RoleInteriorDesigner:
		return true
	default:
		return false
	}
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleUser,
		RoleAdmin,
		RoleEmployee,
		RoleSupplier,
		RoleInteriorDesigner,
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, IsValidRole(role)
}
