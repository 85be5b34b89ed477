package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/agency-dashboard/internal/auth"
	"github.com/spec-kit/agency-dashboard/internal/domain"
	"github.com/spec-kit/agency-dashboard/internal/repository"
)

// SeedEmployee is one bootstrap account.
type SeedEmployee struct {
	ID         string            `yaml:"id"`
	Name       string            `yaml:"name"`
	Email      string            `yaml:"email"`
	Department domain.Department `yaml:"department"`
	Role       domain.Role       `yaml:"role"`
	Password   string            `yaml:"password"`
}

type seedFile struct {
	Employees []SeedEmployee `yaml:"employees"`
}

// DefaultSeedEmployees are the system accounts every installation has.
func DefaultSeedEmployees() []SeedEmployee {
	return []SeedEmployee{
		{ID: "system-admin", Name: "Administrator", Email: "admin@agency.local", Department: domain.DepartmentProduction, Role: domain.RoleAdmin},
		{ID: "system-strategy-head", Name: "Strategy Head", Email: "strategy@agency.local", Department: domain.DepartmentStrategy, Role: domain.RoleHead},
	}
}

// LoadSeedFile reads system accounts from a YAML file. An empty path yields
// the defaults.
func LoadSeedFile(path string) ([]SeedEmployee, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultSeedEmployees(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var parsed seedFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for i, seed := range parsed.Employees {
		if seed.ID == "" || seed.Email == "" || !seed.Department.Valid() || !seed.Role.Valid() {
			return nil, fmt.Errorf("seed employee %d: id, email, department and role are required", i)
		}
	}
	return parsed.Employees, nil
}

// Seed writes the system accounts once. A stored employee sharing the email
// takes precedence and is left untouched. Seeds without a password use
// fallbackPassword; when both are empty no identity is provisioned.
func (s *EmployeeService) Seed(ctx context.Context, seeds []SeedEmployee, fallbackPassword string) (int, error) {
	created := 0
	for _, seed := range seeds {
		ok, err := s.seedOne(ctx, seed, fallbackPassword)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

func (s *EmployeeService) seedOne(ctx context.Context, seed SeedEmployee, fallbackPassword string) (bool, error) {
	unlock, err := s.lockEmail(ctx, seed.Email)
	if err != nil {
		return false, err
	}
	defer unlock()

	if _, err := s.employees.GetByEmail(ctx, seed.Email); err == nil {
		return false, nil
	} else if !repository.IsNotFound(err) {
		return false, err
	}

	employee := &domain.Employee{
		ID:         seed.ID,
		Name:       seed.Name,
		Email:      seed.Email,
		Department: seed.Department,
		Role:       seed.Role,
		Status:     domain.EmployeeStatusActive,
		CreatedAt:  s.now().UTC(),
		IsSystem:   true,
	}

	password := seed.Password
	if password == "" {
		password = fallbackPassword
	}
	if password != "" {
		uid, err := s.identities.CreateAccount(ctx, seed.Email, password)
		switch {
		case err == nil:
			employee.FirebaseUID = uid
		case errors.Is(err, auth.ErrAccountExists):
			if uid, authErr := s.identities.Authenticate(ctx, seed.Email, password); authErr == nil {
				employee.FirebaseUID = uid
			}
		default:
			return false, fmt.Errorf("provision seed %s: %w", seed.Email, err)
		}
	}

	if err := s.employees.Create(ctx, employee); err != nil {
		return false, err
	}
	s.logger.Info("system employee seeded", zap.String("employee_id", employee.ID), zap.String("email", employee.Email))
	return true, nil
}
