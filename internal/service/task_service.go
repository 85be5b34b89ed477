package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/agency-dashboard/internal/analytics"
	"github.com/spec-kit/agency-dashboard/internal/domain"
	"github.com/spec-kit/agency-dashboard/internal/events"
	"github.com/spec-kit/agency-dashboard/internal/repository"
	"github.com/spec-kit/agency-dashboard/internal/store"
	apperrors "github.com/spec-kit/agency-dashboard/pkg/util/errorutil"
)

// TaskService manages tasks.
type TaskService struct {
	store      store.Store
	tasks      repository.TaskRepository
	clients    repository.ClientRepository
	employees  repository.EmployeeRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TaskDependencies bundles collaborators for the task service.
type TaskDependencies struct {
	Store        store.Store
	TaskRepo     repository.TaskRepository
	ClientRepo   repository.ClientRepository
	EmployeeRepo repository.EmployeeRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// TaskCreateInput describes a new task.
type TaskCreateInput struct {
	Name        string
	Description string
	ClientID    string
	Department  domain.Department
	Status      domain.TaskStatus
	AssignedTo  string
	PostDate    string
	Deadline    string
}

// TaskUpdateInput carries optional task changes.
type TaskUpdateInput struct {
	Name        *string
	Description *string
	Department  *domain.Department
	Status      *domain.TaskStatus
	AssignedTo  *string
	PostDate    *string
	Deadline    *string
}

// NewTaskService constructs the service.
func NewTaskService(deps TaskDependencies) *TaskService {
	return &TaskService{
		store:      deps.Store,
		tasks:      deps.TaskRepo,
		clients:    deps.ClientRepo,
		employees:  deps.EmployeeRepo,
		dispatcher: deps.Dispatcher,
		logger:     nopIfNil(deps.Logger),
	}
}

// buildTask validates the fields shared by every task creation path.
func buildTask(input TaskCreateInput) (*domain.Task, error) {
	problems := fieldErrors{}
	problems.require("taskName", input.Name)
	if !input.Department.Valid() {
		problems["department"] = "unknown department"
	}
	if input.Status != "" && !input.Status.Valid() {
		problems["status"] = "unknown status"
	}
	if input.PostDate != "" && !datePattern.MatchString(input.PostDate) {
		problems["postDate"] = "must be YYYY-MM-DD"
	}
	if err := problems.err(); err != nil {
		return nil, err
	}
	return &domain.Task{
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Department:  input.Department,
		Status:      input.Status,
		PostDate:    input.PostDate,
		Deadline:    strings.TrimSpace(input.Deadline),
	}, nil
}

// Create validates and stores a task.
func (s *TaskService) Create(ctx context.Context, input TaskCreateInput) (*domain.Task, error) {
	task, err := buildTask(input)
	if err != nil {
		return nil, err
	}

	if input.ClientID != "" {
		client, err := s.findClient(ctx, input.ClientID)
		if err != nil {
			return nil, err
		}
		task.ClientID = client.ClientID
		task.ClientName = client.Name
	}
	if err := s.assign(ctx, task, input.AssignedTo); err != nil {
		return nil, err
	}

	if err := s.tasks.Create(context.WithoutCancel(ctx), task); err != nil {
		s.logger.Error("store task failed", zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}
	publish(ctx, s.dispatcher, s.logger, events.EventTaskCreated, task.ID, events.RecordPayload{
		Name:       task.Name,
		Department: task.Department,
	})
	return task, nil
}

func (s *TaskService) findClient(ctx context.Context, ref string) (*domain.Client, error) {
	client, err := s.clients.GetByClientID(ctx, ref)
	if err == nil {
		return client, nil
	}
	if !repository.IsNotFound(err) {
		return nil, apperrors.MapError(err)
	}
	client, err = s.clients.GetByID(ctx, ref)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewValidationError("unknown client", map[string]any{"clientId": ref})
		}
		return nil, apperrors.MapError(err)
	}
	return client, nil
}

func (s *TaskService) assign(ctx context.Context, task *domain.Task, ref string) error {
	employees, err := s.employees.List(ctx)
	if err != nil {
		return apperrors.MapError(err)
	}
	assignee, err := resolveAssignment(ref, employees)
	if err != nil {
		return err
	}
	task.AssignedTo = assignee.Ref
	task.AssignedEmployee = assignee.EmployeeName
	task.AssignedEmployeeID = assignee.EmployeeID
	return nil
}

// Get returns a live task.
func (s *TaskService) Get(ctx context.Context, id string) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("task", err)
	}
	if task.Deleted {
		return nil, apperrors.NewNotFound("task", nil)
	}
	return task, nil
}

// Update applies the given changes.
func (s *TaskService) Update(ctx context.Context, id string, input TaskUpdateInput) (*domain.Task, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	oldStatus := task.Status

	problems := fieldErrors{}
	if input.Name != nil {
		problems.require("taskName", *input.Name)
		task.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		task.Description = strings.TrimSpace(*input.Description)
	}
	if input.Department != nil {
		if !input.Department.Valid() {
			problems["department"] = "unknown department"
		}
		task.Department = *input.Department
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			problems["status"] = "unknown status"
		}
		task.Status = *input.Status
	}
	if input.PostDate != nil {
		if *input.PostDate != "" && !datePattern.MatchString(*input.PostDate) {
			problems["postDate"] = "must be YYYY-MM-DD"
		}
		task.PostDate = *input.PostDate
	}
	if input.Deadline != nil {
		task.Deadline = strings.TrimSpace(*input.Deadline)
	}
	if err := problems.err(); err != nil {
		return nil, err
	}
	if input.AssignedTo != nil {
		if err := s.assign(ctx, task, *input.AssignedTo); err != nil {
			return nil, err
		}
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, storeError("task", err)
	}
	if task.Status != oldStatus {
		s.publishStatus(ctx, task.ID, oldStatus, task.Status)
	}
	return task, nil
}

// UpdateStatus moves a task to status.
func (s *TaskService) UpdateStatus(ctx context.Context, id string, status domain.TaskStatus) (*domain.Task, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"status": "unknown status"})
	}
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status == status {
		return task, nil
	}
	oldStatus := task.Status
	task.Status = status
	task.UpdatedAt = time.Now().UTC()
	err = store.Merge(ctx, s.store, store.CollectionTasks, task.ID, map[string]any{
		"status":    string(status),
		"updatedAt": task.UpdatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, storeError("task", err)
	}
	s.publishStatus(ctx, task.ID, oldStatus, status)
	return task, nil
}

func (s *TaskService) publishStatus(ctx context.Context, id string, from, to domain.TaskStatus) {
	publish(ctx, s.dispatcher, s.logger, events.EventTaskStatusChanged, id, events.TaskStatusChangedPayload{
		OldStatus: from,
		NewStatus: to,
	})
}

// SoftDelete hides the task from every view.
func (s *TaskService) SoftDelete(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return apperrors.NewConfirmationRequired("deleting a task")
	}
	task, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	err = store.Merge(context.WithoutCancel(ctx), s.store, store.CollectionTasks, id, map[string]any{
		"deleted":   true,
		"updatedAt": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return storeError("task", err)
	}
	publish(ctx, s.dispatcher, s.logger, events.EventTaskDeleted, id, events.RecordPayload{Name: task.Name, Department: task.Department})
	return nil
}

// Purge removes the task record, soft-deleted or not.
func (s *TaskService) Purge(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return apperrors.NewConfirmationRequired("purging a task")
	}
	if err := store.Delete(context.WithoutCancel(ctx), s.store, store.CollectionTasks, id); err != nil {
		return storeError("task", err)
	}
	s.logger.Info("task purged", zap.String("task_id", id), zap.String("by", ActorFromContext(ctx).EmployeeID))
	return nil
}

// List returns live tasks matching filter.
func (s *TaskService) List(ctx context.Context, filter analytics.Filter) ([]domain.Task, error) {
	if !analytics.ValidMonth(filter.Month) {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"month": "must be YYYY-MM"})
	}
	tasks, err := s.tasks.List(ctx, false)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	employees, err := s.employees.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return analytics.FilterTasks(tasks, employees, filter), nil
}
