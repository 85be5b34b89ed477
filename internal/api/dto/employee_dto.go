package dto

import (
	"time"

	"github.com/spec-kit/agency-dashboard/internal/domain"
)

// EmployeeCreateRequest payload.
type EmployeeCreateRequest struct {
	Name       string `json:"employeeName" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Department string `json:"department" validate:"required"`
	Role       string `json:"role" validate:"omitempty,oneof=admin head employee"`
	Status     string `json:"status" validate:"omitempty,oneof=active inactive"`
	Password   string `json:"password" validate:"required,min=6"`
}

// EmployeeUpdateRequest payload; absent fields are left unchanged.
type EmployeeUpdateRequest struct {
	Name       *string `json:"employeeName" validate:"omitempty,min=1"`
	Department *string `json:"department"`
	Role       *string `json:"role" validate:"omitempty,oneof=admin head employee"`
	Status     *string `json:"status" validate:"omitempty,oneof=active inactive"`
}

// EmployeeResponse is the public shape of an employee.
type EmployeeResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"employeeName"`
	Email       string    `json:"email"`
	Department  string    `json:"department"`
	Role        string    `json:"role"`
	Status      string    `json:"status"`
	FirebaseUID string    `json:"firebaseUid,omitempty"`
	IsSystem    bool      `json:"isSystem"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewEmployeeResponse maps a domain employee.
func NewEmployeeResponse(e *domain.Employee) EmployeeResponse {
	return EmployeeResponse{
		ID:          e.ID,
		Name:        e.Name,
		Email:       e.Email,
		Department:  string(e.Department),
		Role:        string(e.Role),
		Status:      string(e.Status),
		FirebaseUID: e.FirebaseUID,
		IsSystem:    e.IsSystem,
		CreatedAt:   e.CreatedAt,
	}
}

// NewEmployeeResponses maps a slice of employees.
func NewEmployeeResponses(employees []domain.Employee) []EmployeeResponse {
	out := make([]EmployeeResponse, 0, len(employees))
	for i := range employees {
		out = append(out, NewEmployeeResponse(&employees[i]))
	}
	return out
}
