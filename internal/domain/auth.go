package domain

import "time"

// Session describes an issued dashboard session token.
type Session struct {
	Token      string
	EmployeeID string
	Role       Role
	ExpiresAt  time.Time
}

// AuthAccount is the identity provider's record of an external identity.
type AuthAccount struct {
	UID          string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// DeletedAuthAccount flags an external identity that must be removed by hand.
type DeletedAuthAccount struct {
	UID          string
	Email        string
	EmployeeID   string
	EmployeeName string
	DeletedAt    time.Time
	DeletedBy    string
}
