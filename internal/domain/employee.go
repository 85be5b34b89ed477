package domain

import (
	"strings"
	"time"
)

// Role enumerates dashboard roles.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleHead     Role = "head"
	RoleEmployee Role = "employee"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleHead, RoleEmployee:
		return true
	}
	return false
}

// EmployeeStatus represents lifecycle states for an employee.
type EmployeeStatus string

const (
	EmployeeStatusActive   EmployeeStatus = "active"
	EmployeeStatusInactive EmployeeStatus = "inactive"
)

// Valid reports whether s is a known status.
func (s EmployeeStatus) Valid() bool {
	return s == EmployeeStatusActive || s == EmployeeStatusInactive
}

// Employee models a member of one of the departments.
type Employee struct {
	ID          string
	Name        string
	Email       string
	Department  Department
	Role        Role
	Status      EmployeeStatus
	Password    string
	FirebaseUID string
	CreatedAt   time.Time
	IsSystem    bool
}

// Active reports whether the employee is active.
func (e Employee) Active() bool {
	return e.Status == EmployeeStatusActive
}

// SameEmail compares emails case-insensitively.
func SameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
