// Package school holds the resources exchanged with the EduCloud API.
package school

import "time"

// Roles
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleAccountant = "accountant"
	RoleTeacher    = "teacher"
	RoleDriver     = "driver"
	RoleParent     = "parent"
	RoleStudent    = "student"
)

var (
	AllRoles = []string{RoleSuperAdmin, RoleAdmin, RoleAccountant, RoleTeacher, RoleDriver, RoleParent, RoleStudent}

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleSuperAdmin: 30,
		RoleAdmin:      29,
		RoleAccountant: 21,

		// Staff: 20 - 11
		RoleTeacher: 12,
		RoleDriver:  11,

		// Families: 10 - 1
		RoleParent:  2,
		RoleStudent: 1,
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

// User is an account of a school.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"isActive"`
	Tenant    string    `json:"tenant,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	LastLogin time.Time `json:"lastLogin,omitempty"`
}

func (u User) Key() string { return u.ID }

func (u User) IsAdmin() bool {
	return RolePriority(u.Role) > 20
}

func (u User) IsStaff() bool {
	return RolePriority(u.Role) > 10
}

// Tenant is a school registered on the platform.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subdomain string    `json:"subdomain"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}
