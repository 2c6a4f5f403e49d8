package models

import "time"

// Role is the portal a profile signs in to.
type Role string

const (
	RoleStudent  Role = "STUDENT"
	RoleFaculty  Role = "FACULTY"
	RoleGuardian Role = "GUARDIAN"
	RoleAdmin    Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleFaculty, RoleGuardian, RoleAdmin:
		return true
	}
	return false
}

// ProfileStatus gates sign in.
type ProfileStatus string

const (
	ProfileStatusActive   ProfileStatus = "ACTIVE"
	ProfileStatusInactive ProfileStatus = "INACTIVE"
	ProfileStatusPending  ProfileStatus = "PENDING"
)

// Profile is the person record shared by every role.
type Profile struct {
	ID           string        `db:"id" json:"id"`
	Email        string        `db:"email" json:"email"`
	PasswordHash string        `db:"password_hash" json:"-"`
	FullName     string        `db:"full_name" json:"full_name"`
	Phone        *string       `db:"phone" json:"phone,omitempty"`
	Role         Role          `db:"role" json:"role"`
	Status       ProfileStatus `db:"status" json:"status"`
	LastLogin    *time.Time    `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// ProfileFilter captures filtering criteria for listing profiles.
type ProfileFilter struct {
	Role      *Role
	Status    *ProfileStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// NewPagination builds pagination metadata for a list response.
func NewPagination(page, size, total int) *Pagination {
	return &Pagination{Page: page, PageSize: size, TotalCount: total}
}
