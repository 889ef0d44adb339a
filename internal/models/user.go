package models

import "time"

// Application roles. Authentication happens upstream; the JWT carries one of
// these values and the middleware enforces it per route.
const (
	RoleDirector   = "director"
	RoleSupervisor = "supervisor"
	RoleTeacher    = "teacher"
	RoleStudent    = "student"
	RoleParent     = "parent"
)

// User is an authenticated account of any role.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role      string    `gorm:"size:32;not null;index" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsStaff reports whether the user manages the school rather than attending it.
func (u User) IsStaff() bool {
	return u.Role == RoleDirector || u.Role == RoleSupervisor || u.Role == RoleTeacher
}
