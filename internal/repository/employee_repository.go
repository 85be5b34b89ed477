package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/agency-dashboard/internal/domain"
	"github.com/spec-kit/agency-dashboard/internal/store"
)

// EmployeeRepository handles persistence for employees.
type EmployeeRepository interface {
	Create(ctx context.Context, employee *domain.Employee) error
	Update(ctx context.Context, employee *domain.Employee) error
	GetByID(ctx context.Context, id string) (*domain.Employee, error)
	GetByEmail(ctx context.Context, email string) (*domain.Employee, error)
	List(ctx context.Context) ([]domain.Employee, error)
}

type employeeRepository struct {
	store store.Store
}

// NewEmployeeRepository instantiates the repository.
func NewEmployeeRepository(s store.Store) EmployeeRepository {
	return &employeeRepository{store: s}
}

func (r *employeeRepository) Create(ctx context.Context, employee *domain.Employee) error {
	if employee.ID == "" {
		employee.ID = uuid.NewString()
	}
	if employee.CreatedAt.IsZero() {
		employee.CreatedAt = time.Now().UTC()
	}
	if employee.Status == "" {
		employee.Status = domain.EmployeeStatusActive
	}
	return store.Set(ctx, r.store, store.CollectionEmployees, employee.ID, EncodeEmployee(*employee))
}

func (r *employeeRepository) Update(ctx context.Context, employee *domain.Employee) error {
	return store.Merge(ctx, r.store, store.CollectionEmployees, employee.ID, EncodeEmployee(*employee))
}

func (r *employeeRepository) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	doc, err := r.store.Get(ctx, store.CollectionEmployees, id)
	if err != nil {
		return nil, err
	}
	employee := DecodeEmployee(doc)
	return &employee, nil
}

func (r *employeeRepository) GetByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	docs, err := r.store.List(ctx, store.CollectionEmployees)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		employee := DecodeEmployee(doc)
		if domain.SameEmail(employee.Email, email) {
			return &employee, nil
		}
	}
	return nil, ErrNotFound
}

// List returns every employee; filtering happens in the analytics layer.
func (r *employeeRepository) List(ctx context.Context) ([]domain.Employee, error) {
	docs, err := r.store.List(ctx, store.CollectionEmployees)
	if err != nil {
		return nil, err
	}
	result := make([]domain.Employee, 0, len(docs))
	for _, doc := range docs {
		result = append(result, DecodeEmployee(doc))
	}
	return result, nil
}

// EncodeEmployee maps an employee to document fields. The password is never
// persisted on the employee record.
func EncodeEmployee(e domain.Employee) map[string]any {
	fields := map[string]any{
		"employeeName": e.Name,
		"email":        strings.TrimSpace(e.Email),
		"department":   string(e.Department),
		"role":         string(e.Role),
		"status":       string(e.Status),
		"isSystem":     e.IsSystem,
		"createdAt":    encodeTime(e.CreatedAt),
	}
	if e.FirebaseUID != "" {
		fields["firebaseUid"] = e.FirebaseUID
	}
	return fields
}

// DecodeEmployee maps document fields to an employee, defaulting unknown
// enums: role to employee and status to active.
func DecodeEmployee(doc store.Document) domain.Employee {
	f := doc.Fields
	role := domain.Role(str(f, "role"))
	if !role.Valid() {
		role = domain.RoleEmployee
	}
	status := domain.EmployeeStatus(str(f, "status"))
	if !status.Valid() {
		status = domain.EmployeeStatusActive
	}
	return domain.Employee{
		ID:          doc.ID,
		Name:        str(f, "employeeName"),
		Email:       str(f, "email"),
		Department:  domain.Department(str(f, "department")),
		Role:        role,
		Status:      status,
		FirebaseUID: str(f, "firebaseUid"),
		CreatedAt:   timestamp(f, "createdAt"),
		IsSystem:    boolean(f, "isSystem"),
	}
}
