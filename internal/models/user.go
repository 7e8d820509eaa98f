package models

import "time"

// UserRole represents the roles known to the scheduling core.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleMentor  UserRole = "mentor"
	RoleStudent UserRole = "student"
)

// User is the read-only directory view of an application user.
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	Role      UserRole  `db:"role" json:"role"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
