package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/agency-dashboard/internal/analytics"
	"github.com/spec-kit/agency-dashboard/internal/auth"
	"github.com/spec-kit/agency-dashboard/internal/domain"
	"github.com/spec-kit/agency-dashboard/internal/events"
	"github.com/spec-kit/agency-dashboard/internal/identity"
	"github.com/spec-kit/agency-dashboard/internal/persistence"
	"github.com/spec-kit/agency-dashboard/internal/repository"
	"github.com/spec-kit/agency-dashboard/internal/store"
	apperrors "github.com/spec-kit/agency-dashboard/pkg/util/errorutil"
)

// EmployeeService manages employees and their cascades.
type EmployeeService struct {
	store      store.Store
	employees  repository.EmployeeRepository
	tasks      repository.TaskRepository
	clients    repository.ClientRepository
	identities auth.IdentityProvider
	locker     persistence.Locker
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// EmployeeDependencies bundles collaborators for the employee service.
type EmployeeDependencies struct {
	Store        store.Store
	EmployeeRepo repository.EmployeeRepository
	TaskRepo     repository.TaskRepository
	ClientRepo   repository.ClientRepository
	Identity     auth.IdentityProvider
	Locker       persistence.Locker
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// EmployeeCreateInput describes a new employee.
type EmployeeCreateInput struct {
	Name       string
	Email      string
	Department domain.Department
	Role       domain.Role
	Status     domain.EmployeeStatus
	Password   string
}

// EmployeeUpdateInput carries optional employee changes.
type EmployeeUpdateInput struct {
	Name       *string
	Department *domain.Department
	Role       *domain.Role
	Status     *domain.EmployeeStatus
}

// EmployeeDeleteResult reports what a delete cascaded to.
type EmployeeDeleteResult struct {
	Employee             domain.Employee `json:"employee"`
	UnassignedTasks      int             `json:"unassignedTasks"`
	UnassignedClients    int             `json:"unassignedClients"`
	IdentityNeedsCleanup bool            `json:"identityNeedsCleanup"`
}

// NewEmployeeService constructs the service. Without a Locker, email
// uniqueness is only enforced within this process.
func NewEmployeeService(deps EmployeeDependencies) *EmployeeService {
	locker := deps.Locker
	if locker == nil {
		locker = persistence.NewLocalLocker()
	}
	return &EmployeeService{
		store:      deps.Store,
		employees:  deps.EmployeeRepo,
		tasks:      deps.TaskRepo,
		clients:    deps.ClientRepo,
		identities: deps.Identity,
		locker:     locker,
		dispatcher: deps.Dispatcher,
		logger:     nopIfNil(deps.Logger),
		now:        time.Now,
	}
}

// Create validates the input, provisions an identity and stores the record.
func (s *EmployeeService) Create(ctx context.Context, input EmployeeCreateInput) (*domain.Employee, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	if input.Role == "" {
		input.Role = domain.RoleEmployee
	}
	if input.Status == "" {
		input.Status = domain.EmployeeStatusActive
	}

	problems := fieldErrors{}
	problems.require("employeeName", input.Name)
	problems.require("email", input.Email)
	problems.email("email", input.Email)
	if !input.Department.Valid() {
		problems["department"] = "unknown department"
	}
	if !input.Role.Valid() {
		problems["role"] = "unknown role"
	}
	if !input.Status.Valid() {
		problems["status"] = "unknown status"
	}
	if len(input.Password) < auth.MinPasswordLength {
		problems["password"] = auth.ErrWeakPassword.Error()
	}
	if err := problems.err(); err != nil {
		return nil, err
	}

	unlock, err := s.lockEmail(ctx, input.Email)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	defer unlock()

	if _, err := s.employees.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.NewConflict("email already in use", map[string]any{"email": input.Email})
	} else if !repository.IsNotFound(err) {
		return nil, apperrors.MapError(err)
	}

	uid, err := s.identities.CreateAccount(ctx, input.Email, input.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAccountExists):
			return nil, apperrors.NewConflict("identity already exists for email", map[string]any{"email": input.Email})
		case errors.Is(err, auth.ErrWeakPassword):
			return nil, apperrors.NewValidationError("validation failed", map[string]any{"password": err.Error()})
		}
		return nil, apperrors.MapError(err)
	}

	employee := &domain.Employee{
		Name:        input.Name,
		Email:       input.Email,
		Department:  input.Department,
		Role:        input.Role,
		Status:      input.Status,
		FirebaseUID: uid,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.employees.Create(ctx, employee); err != nil {
		// the identity exists without a record; flag it like a deleted one
		s.flagOrphanedIdentity(ctx, uid, input.Email, input.Name)
		s.logger.Error("store employee failed", zap.String("email", input.Email), zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Debug("employee created", zap.String("employee_id", employee.ID))
	publish(ctx, s.dispatcher, s.logger, events.EventEmployeeCreated, employee.ID, events.RecordPayload{
		Name:       employee.Name,
		Department: employee.Department,
	})
	return employee, nil
}

// lockEmail serializes work on one email address, compared case-insensitively.
func (s *EmployeeService) lockEmail(ctx context.Context, email string) (func(), error) {
	return s.locker.Lock(ctx, emailLockKey(email))
}

func emailLockKey(email string) string {
	return "employees:email:" + strings.ToLower(strings.TrimSpace(email))
}

func (s *EmployeeService) flagOrphanedIdentity(ctx context.Context, uid, email, name string) {
	write := repository.DeletedAuthAccountWrite(domain.DeletedAuthAccount{
		UID:          uid,
		Email:        email,
		EmployeeName: name,
		DeletedAt:    s.now().UTC(),
		DeletedBy:    ActorFromContext(ctx).EmployeeID,
	})
	if err := s.store.Apply(context.WithoutCancel(ctx), store.Batch{write}); err != nil {
		s.logger.Error("flag orphaned identity failed", zap.String("uid", uid), zap.Error(err))
	}
}

// Update applies the given changes.
func (s *EmployeeService) Update(ctx context.Context, id string, input EmployeeUpdateInput) (*domain.Employee, error) {
	employee, err := s.employees.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("employee", err)
	}

	original := *employee
	problems := fieldErrors{}
	if input.Name != nil {
		problems.require("employeeName", *input.Name)
		employee.Name = strings.TrimSpace(*input.Name)
	}
	if input.Department != nil {
		if !input.Department.Valid() {
			problems["department"] = "unknown department"
		}
		employee.Department = *input.Department
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			problems["role"] = "unknown role"
		}
		employee.Role = *input.Role
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			problems["status"] = "unknown status"
		}
		employee.Status = *input.Status
	}
	if err := problems.err(); err != nil {
		return nil, err
	}
	if original.IsSystem && (employee.Status != original.Status || employee.Role != original.Role) {
		return nil, apperrors.NewForbidden("system employees cannot be deactivated or demoted")
	}

	if err := s.employees.Update(ctx, employee); err != nil {
		return nil, storeError("employee", err)
	}
	return employee, nil
}

// Get returns one employee.
func (s *EmployeeService) Get(ctx context.Context, id string) (*domain.Employee, error) {
	employee, err := s.employees.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("employee", err)
	}
	return employee, nil
}

// List returns the employees matching filter.
func (s *EmployeeService) List(ctx context.Context, filter analytics.EmployeeFilter) ([]domain.Employee, error) {
	employees, err := s.employees.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return analytics.FilterEmployees(employees, filter), nil
}

// Delete removes the employee and, in the same batch, clears every task and
// client assignment that names them by id, email or name. An external
// identity is flagged for manual removal.
func (s *EmployeeService) Delete(ctx context.Context, id string, confirmed bool) (*EmployeeDeleteResult, error) {
	if !confirmed {
		return nil, apperrors.NewConfirmationRequired("deleting an employee")
	}
	employee, err := s.employees.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("employee", err)
	}
	if employee.IsSystem {
		return nil, apperrors.NewForbidden("system employees cannot be deleted")
	}

	tasks, err := s.tasks.List(ctx, true)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	clients, err := s.clients.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	now := s.now().UTC()
	stamp := now.Format(time.RFC3339Nano)
	result := &EmployeeDeleteResult{Employee: *employee}
	batch := store.Batch{{Collection: store.CollectionEmployees, ID: employee.ID, Op: store.OpDelete}}

	for _, task := range tasks {
		if !identity.MatchesAny(task.AssignmentRefs(), *employee) {
			continue
		}
		result.UnassignedTasks++
		batch = append(batch, store.Write{
			Collection: store.CollectionTasks,
			ID:         task.ID,
			Op:         store.OpMerge,
			Fields: map[string]any{
				"assignedTo":         nil,
				"assignedEmployee":   nil,
				"assignedEmployeeId": nil,
				"updatedAt":          stamp,
			},
			IfExists: true,
		})
	}
	for _, client := range clients {
		if !identity.MatchesAny(client.AssignmentRefs(), *employee) {
			continue
		}
		result.UnassignedClients++
		batch = append(batch, repository.ClientMergeWrites(client, map[string]any{
			"assignedToEmployee":     nil,
			"assignedToEmployeeName": nil,
			"assignedEmployeeId":     nil,
			"updatedAt":              stamp,
		})...)
	}
	if employee.FirebaseUID != "" {
		result.IdentityNeedsCleanup = true
		batch = append(batch, repository.DeletedAuthAccountWrite(domain.DeletedAuthAccount{
			UID:          employee.FirebaseUID,
			Email:        employee.Email,
			EmployeeID:   employee.ID,
			EmployeeName: employee.Name,
			DeletedAt:    now,
			DeletedBy:    ActorFromContext(ctx).EmployeeID,
		}))
	}

	if err := s.store.Apply(context.WithoutCancel(ctx), batch); err != nil {
		s.logger.Error("delete employee failed", zap.String("employee_id", id), zap.Error(err))
		return nil, storeError("employee", err)
	}

	s.logger.Info("employee deleted",
		zap.String("employee_id", id),
		zap.Int("tasks_unassigned", result.UnassignedTasks),
		zap.Int("clients_unassigned", result.UnassignedClients),
	)
	publish(ctx, s.dispatcher, s.logger, events.EventEmployeeDeleted, id, events.EmployeeDeletedPayload{
		Email:              employee.Email,
		UnassignedTasks:    result.UnassignedTasks,
		UnassignedClients:  result.UnassignedClients,
		IdentityNeedsClean: result.IdentityNeedsCleanup,
	})
	return result, nil
}
