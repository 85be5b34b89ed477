package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/agency-dashboard/internal/analytics"
	"github.com/spec-kit/agency-dashboard/internal/domain"
	"github.com/spec-kit/agency-dashboard/internal/events"
	"github.com/spec-kit/agency-dashboard/internal/persistence"
	"github.com/spec-kit/agency-dashboard/internal/repository"
	"github.com/spec-kit/agency-dashboard/internal/store"
	"github.com/spec-kit/agency-dashboard/internal/workflow"
	apperrors "github.com/spec-kit/agency-dashboard/pkg/util/errorutil"
)

const clientIDLockKey = "clients:next-id"

// ClientService manages clients and drives their workflow.
type ClientService struct {
	store      store.Store
	clients    repository.ClientRepository
	employees  repository.EmployeeRepository
	engine     *workflow.Engine
	locker     persistence.Locker
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// ClientDependencies bundles collaborators for the client service.
type ClientDependencies struct {
	Store        store.Store
	ClientRepo   repository.ClientRepository
	EmployeeRepo repository.EmployeeRepository
	Engine       *workflow.Engine
	Locker       persistence.Locker
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// ClientCreateInput describes a new client.
type ClientCreateInput struct {
	Name          string
	Email         string
	ContactNumber string
	Status        string
	AssignedTo    string
	Source        domain.ClientSource
}

// ClientUpdateInput carries optional client changes.
type ClientUpdateInput struct {
	Name          *string
	Email         *string
	ContactNumber *string
	Status        *string
	AssignedTo    *string
}

// TransitionResult reports an applied stage change.
type TransitionResult struct {
	Client  *domain.Client `json:"client"`
	From    domain.Stage   `json:"from"`
	To      domain.Stage   `json:"to"`
	TaskIDs []string       `json:"taskIds"`
}

// NewClientService constructs the service.
func NewClientService(deps ClientDependencies) *ClientService {
	locker := deps.Locker
	if locker == nil {
		locker = persistence.NewLocalLocker()
	}
	return &ClientService{
		store:      deps.Store,
		clients:    deps.ClientRepo,
		employees:  deps.EmployeeRepo,
		engine:     deps.Engine,
		locker:     locker,
		dispatcher: deps.Dispatcher,
		logger:     nopIfNil(deps.Logger),
	}
}

// Create validates the input, allocates the next clientId and stores the
// client. Allocation and write happen under one lock so concurrent creations
// never share an id.
func (s *ClientService) Create(ctx context.Context, input ClientCreateInput) (*domain.Client, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.ContactNumber = strings.TrimSpace(input.ContactNumber)

	problems := fieldErrors{}
	problems.require("clientName", input.Name)
	problems.require("email", input.Email)
	problems.email("email", input.Email)
	if !phonePattern.MatchString(input.ContactNumber) {
		problems["contactNumber"] = "must be exactly 10 digits"
	}
	if input.Source != "" && input.Source != domain.ClientSourceDirect && input.Source != domain.ClientSourceStrategy {
		problems["source"] = "unknown source"
	}
	if err := problems.err(); err != nil {
		return nil, err
	}

	employees, err := s.employees.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	assignee, err := resolveAssignment(input.AssignedTo, employees)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, clientIDLockKey)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	defer unlock()

	existing, err := s.clients.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	client := &domain.Client{
		ClientID:               analytics.NextClientID(existing),
		Name:                   input.Name,
		Email:                  input.Email,
		ContactNumber:          input.ContactNumber,
		Status:                 strings.TrimSpace(input.Status),
		AssignedToEmployee:     assignee.Ref,
		AssignedToEmployeeName: assignee.EmployeeName,
		AssignedEmployeeID:     assignee.EmployeeID,
		Source:                 input.Source,
	}
	if err := s.clients.Create(context.WithoutCancel(ctx), client); err != nil {
		s.logger.Error("store client failed", zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Debug("client created", zap.String("client_id", client.ID), zap.String("display_id", client.ClientID))
	publish(ctx, s.dispatcher, s.logger, events.EventClientCreated, client.ID, events.RecordPayload{Name: client.Name})
	return client, nil
}

// NextID previews the clientId the next creation would receive.
func (s *ClientService) NextID(ctx context.Context) (string, error) {
	clients, err := s.clients.List(ctx)
	if err != nil {
		return "", apperrors.MapError(err)
	}
	return analytics.NextClientID(clients), nil
}

// Update applies the given changes to every stored record of the client.
func (s *ClientService) Update(ctx context.Context, id string, input ClientUpdateInput) (*domain.Client, error) {
	client, err := s.clients.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("client", err)
	}

	problems := fieldErrors{}
	if input.Name != nil {
		problems.require("clientName", *input.Name)
		client.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		problems.require("email", *input.Email)
		problems.email("email", *input.Email)
		client.Email = strings.TrimSpace(*input.Email)
	}
	if input.ContactNumber != nil {
		if !phonePattern.MatchString(strings.TrimSpace(*input.ContactNumber)) {
			problems["contactNumber"] = "must be exactly 10 digits"
		}
		client.ContactNumber = strings.TrimSpace(*input.ContactNumber)
	}
	if input.Status != nil {
		client.Status = strings.TrimSpace(*input.Status)
	}
	if err := problems.err(); err != nil {
		return nil, err
	}
	if input.AssignedTo != nil {
		employees, err := s.employees.List(ctx)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		assignee, err := resolveAssignment(*input.AssignedTo, employees)
		if err != nil {
			return nil, err
		}
		client.AssignedToEmployee = assignee.Ref
		client.AssignedToEmployeeName = assignee.EmployeeName
		client.AssignedEmployeeID = assignee.EmployeeID
	}

	client.UpdatedAt = time.Now().UTC()
	fields := map[string]any{
		"clientName":             client.Name,
		"email":                  client.Email,
		"contactNumber":          client.ContactNumber,
		"status":                 client.Status,
		"assignedToEmployee":     client.AssignedToEmployee,
		"assignedToEmployeeName": client.AssignedToEmployeeName,
		"assignedEmployeeId":     client.AssignedEmployeeID,
		"updatedAt":              client.UpdatedAt.Format(time.RFC3339Nano),
	}
	if err := s.store.Apply(ctx, repository.ClientMergeWrites(*client, fields)); err != nil {
		return nil, storeError("client", err)
	}
	return client, nil
}

// Get returns one client from the merged view.
func (s *ClientService) Get(ctx context.Context, id string) (*domain.Client, error) {
	client, err := s.clients.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("client", err)
	}
	client.Stage = workflow.CurrentStage(*client)
	return client, nil
}

// List returns the merged clients matching filter.
func (s *ClientService) List(ctx context.Context, filter analytics.ClientFilter) ([]domain.Client, error) {
	clients, err := s.clients.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	employees, err := s.employees.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	result := analytics.FilterClients(clients, employees, filter)
	for i := range result {
		result[i].Stage = workflow.CurrentStage(result[i])
	}
	return result, nil
}

// Delete removes every stored record of the client.
func (s *ClientService) Delete(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return apperrors.NewConfirmationRequired("deleting a client")
	}
	client, err := s.engine.Delete(ctx, id)
	if err != nil {
		return workflowError(err)
	}
	publish(ctx, s.dispatcher, s.logger, events.EventClientDeleted, client.ID, events.RecordPayload{Name: client.Name})
	return nil
}

// Transition applies a workflow event to the client.
func (s *ClientService) Transition(ctx context.Context, id string, event workflow.Event) (*TransitionResult, error) {
	result, err := s.engine.Transition(ctx, id, event)
	if err != nil {
		return nil, workflowError(err)
	}
	out := &TransitionResult{
		Client:  result.Client,
		From:    result.Outcome.From,
		To:      result.Outcome.To,
		TaskIDs: result.Outcome.TaskIDs,
	}
	publish(ctx, s.dispatcher, s.logger, events.EventClientStageChanged, result.Client.ID, events.ClientStageChangedPayload{
		ClientID: result.Client.ClientID,
		Event:    string(event),
		From:     out.From,
		To:       out.To,
	})
	if event == workflow.EventApproveAll {
		publish(ctx, s.dispatcher, s.logger, events.EventTasksApproved, result.Client.ID, events.TasksApprovedPayload{
			ClientID: result.Client.ClientID,
			TaskIDs:  out.TaskIDs,
		})
	}
	return out, nil
}

// AssignTask runs the workflow's task-assignment step.
func (s *ClientService) AssignTask(ctx context.Context, clientID string, input TaskCreateInput) (*domain.Task, error) {
	task, err := buildTask(input)
	if err != nil {
		return nil, err
	}
	employees, err := s.employees.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	assignee, err := resolveAssignment(input.AssignedTo, employees)
	if err != nil {
		return nil, err
	}
	task.AssignedTo = assignee.Ref
	task.AssignedEmployee = assignee.EmployeeName
	task.AssignedEmployeeID = assignee.EmployeeID

	created, err := s.engine.AssignTask(ctx, clientID, *task)
	if err != nil {
		return nil, workflowError(err)
	}
	publish(ctx, s.dispatcher, s.logger, events.EventTaskCreated, created.ID, events.RecordPayload{
		Name:       created.Name,
		Department: created.Department,
	})
	return created, nil
}

func workflowError(err error) error {
	switch {
	case errors.Is(err, workflow.ErrInvalidTransition):
		return apperrors.NewInvalidTransition(err.Error(), nil)
	case errors.Is(err, workflow.ErrOperationPending):
		return apperrors.NewConflict("a previous workflow update is still being applied", nil)
	case errors.Is(err, workflow.ErrWrongStage):
		return apperrors.NewWrongStage(err.Error())
	}
	return storeError("client", err)
}
