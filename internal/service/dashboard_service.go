package service

import (
	"context"
	"time"

	"github.com/spec-kit/agency-dashboard/internal/analytics"
	"github.com/spec-kit/agency-dashboard/internal/domain"
	"github.com/spec-kit/agency-dashboard/internal/report"
	"github.com/spec-kit/agency-dashboard/internal/repository"
	apperrors "github.com/spec-kit/agency-dashboard/pkg/util/errorutil"
)

// ReportRecorder counts generated reports.
type ReportRecorder interface {
	RecordReport(kind, format string)
}

// DashboardService computes rollups and exports reports.
type DashboardService struct {
	tasks     repository.TaskRepository
	clients   repository.ClientRepository
	employees repository.EmployeeRepository
	deleted   repository.DeletedAuthAccountRepository
	exporter  *report.Exporter
	recorder  ReportRecorder
}

// DashboardDependencies bundles collaborators for the dashboard service.
type DashboardDependencies struct {
	TaskRepo               repository.TaskRepository
	ClientRepo             repository.ClientRepository
	EmployeeRepo           repository.EmployeeRepository
	DeletedAuthAccountRepo repository.DeletedAuthAccountRepository
	Exporter               *report.Exporter
	Recorder               ReportRecorder
}

// Overview is the payload of the dashboard landing page.
type Overview struct {
	Month                   string                        `json:"month,omitempty"`
	Department              domain.Department             `json:"department,omitempty"`
	Tasks                   analytics.TaskSummary         `json:"tasks"`
	Departments             []analytics.DepartmentSummary `json:"departments"`
	Employees               []analytics.EmployeeSummary   `json:"employees"`
	Clients                 analytics.ClientSummary       `json:"clients"`
	PendingIdentityCleanups int                           `json:"pendingIdentityCleanups"`
	GeneratedAt             time.Time                     `json:"generatedAt"`
}

// NewDashboardService constructs the service.
func NewDashboardService(deps DashboardDependencies) *DashboardService {
	return &DashboardService{
		tasks:     deps.TaskRepo,
		clients:   deps.ClientRepo,
		employees: deps.EmployeeRepo,
		deleted:   deps.DeletedAuthAccountRepo,
		exporter:  deps.Exporter,
		recorder:  deps.Recorder,
	}
}

type snapshot struct {
	tasks     []domain.Task
	clients   []domain.Client
	employees []domain.Employee
}

func (s *DashboardService) load(ctx context.Context, filter analytics.Filter) (snapshot, error) {
	if !analytics.ValidMonth(filter.Month) {
		return snapshot{}, apperrors.NewValidationError("validation failed", map[string]any{"month": "must be YYYY-MM"})
	}
	if filter.Department != "" && !filter.Department.Valid() {
		return snapshot{}, apperrors.NewValidationError("validation failed", map[string]any{"department": "unknown department"})
	}
	tasks, err := s.tasks.List(ctx, false)
	if err != nil {
		return snapshot{}, apperrors.MapError(err)
	}
	clients, err := s.clients.List(ctx)
	if err != nil {
		return snapshot{}, apperrors.MapError(err)
	}
	employees, err := s.employees.List(ctx)
	if err != nil {
		return snapshot{}, apperrors.MapError(err)
	}
	return snapshot{
		tasks:     analytics.FilterTasks(tasks, employees, filter),
		clients:   clients,
		employees: employees,
	}, nil
}

// Overview returns the rollups for the filtered task set.
func (s *DashboardService) Overview(ctx context.Context, filter analytics.Filter) (*Overview, error) {
	snap, err := s.load(ctx, filter)
	if err != nil {
		return nil, err
	}
	employees := snap.employees
	if filter.Department != "" {
		employees = analytics.FilterEmployees(employees, analytics.EmployeeFilter{Department: filter.Department})
	}
	overview := &Overview{
		Month:       filter.Month,
		Department:  filter.Department,
		Tasks:       analytics.SummarizeTasks(snap.tasks),
		Departments: analytics.SummarizeDepartments(snap.tasks, snap.employees),
		Employees:   analytics.SummarizeEmployees(snap.tasks, employees),
		Clients:     analytics.SummarizeClients(snap.clients),
		GeneratedAt: time.Now().UTC(),
	}
	if s.deleted != nil {
		pending, err := s.deleted.List(ctx)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		overview.PendingIdentityCleanups = len(pending)
	}
	return overview, nil
}

// Report renders a report of kind for the filtered data.
func (s *DashboardService) Report(ctx context.Context, kind report.Kind, format report.Format, filter analytics.Filter) (*report.Artifact, error) {
	snap, err := s.load(ctx, filter)
	if err != nil {
		return nil, err
	}

	var r report.Report
	switch kind {
	case report.KindTasks:
		r = report.Tasks(snap.tasks, filter.Month)
	case report.KindEmployees:
		employees := analytics.FilterEmployees(snap.employees, analytics.EmployeeFilter{Department: filter.Department})
		r = report.Employees(analytics.SummarizeEmployees(snap.tasks, employees), employees, filter.Month)
	case report.KindClients:
		r = report.Clients(report.ClientsInMonth(snap.clients, filter.Month), filter.Month)
	case report.KindDepartmentSummary:
		r = report.DepartmentSummary(analytics.SummarizeDepartments(snap.tasks, snap.employees), filter.Month)
	default:
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"kind": "unknown report kind"})
	}

	artifact, err := s.exporter.Export(r, format)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if s.recorder != nil {
		s.recorder.RecordReport(string(kind), string(format))
	}
	return artifact, nil
}
