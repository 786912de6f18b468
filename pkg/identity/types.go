package identity

import "time"

// Role represents a user's role in the school system
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleFaculty  Role = "faculty"
	RoleStudent  Role = "student"
	RoleGuardian Role = "guardian"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleFaculty, RoleStudent, RoleGuardian:
		return true
	}
	return false
}

// Status represents whether a user account is usable
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Profile represents a user as seen by the authorization core. Profiles
// are owned by an external user-management system; this core only ever
// reads them.
type Profile struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Status    Status    `json:"status"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive reports whether the profile may act in the system.
func (p *Profile) IsActive() bool {
	return p != nil && p.Status == StatusActive
}

// IsAdmin reports whether the profile carries the admin role.
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
