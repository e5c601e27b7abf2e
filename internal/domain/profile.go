package domain

import "time"

// Role identifies what a principal may do. Each role has its own profile
// collection in storage.
type Role string

const (
	RoleTechnician    Role = "TECHNICIAN"
	RoleAdministrator Role = "ADMINISTRATOR"
	RoleEmployee      Role = "EMPLOYEE"
)

// Profile is a role-specific account record keyed by email.
type Profile struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	Location     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins first and last name for display fields on tickets and chat.
func (p *Profile) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
