// Package analytics computes the filtered views and rollups behind the
// dashboards and reports. Every function is pure over its inputs.
package analytics

import (
	"strings"
	"time"

	"github.com/spec-kit/agency-dashboard/internal/domain"
	"github.com/spec-kit/agency-dashboard/internal/identity"
	"github.com/spec-kit/agency-dashboard/internal/workflow"
)

// MonthLayout is the format of month filters.
const MonthLayout = "2006-01"

// Filter narrows the task views.
type Filter struct {
	Month      string
	Department domain.Department
	EmployeeID string
	Status     domain.TaskStatus
	Search     string
}

// ValidMonth reports whether month is empty or a YYYY-MM value.
func ValidMonth(month string) bool {
	if month == "" {
		return true
	}
	_, err := time.Parse(MonthLayout, month)
	return err == nil
}

// StatusMatches compares statuses exactly, treating completed and posted as
// the same terminal state.
func StatusMatches(actual, wanted domain.TaskStatus) bool {
	if actual == wanted {
		return true
	}
	return isCompletedOrPosted(actual) && isCompletedOrPosted(wanted)
}

func isCompletedOrPosted(s domain.TaskStatus) bool {
	return s == domain.TaskStatusCompleted || s == domain.TaskStatusPosted
}

// FilterTasks returns the live tasks matching every set condition of f.
func FilterTasks(tasks []domain.Task, employees []domain.Employee, f Filter) []domain.Task {
	match := taskPredicate(employees, f)
	out := make([]domain.Task, 0, len(tasks))
	for _, task := range tasks {
		if match(task) {
			out = append(out, task)
		}
	}
	return out
}

func taskPredicate(employees []domain.Employee, f Filter) func(domain.Task) bool {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	var employee domain.Employee
	employeeKnown := false
	if f.EmployeeID != "" {
		for _, e := range employees {
			if e.ID == f.EmployeeID {
				employee, employeeKnown = e, true
				break
			}
		}
	}

	return func(task domain.Task) bool {
		if task.Deleted {
			return false
		}
		if f.Month != "" && (task.PostDate == "" || !strings.HasPrefix(task.PostDate, f.Month)) {
			return false
		}
		if f.Department != "" && task.Department != f.Department {
			return false
		}
		if f.EmployeeID != "" {
			if !employeeKnown {
				return false
			}
			if !identity.MatchesAny(task.AssignmentRefs(), employee) {
				return false
			}
		}
		if f.Status != "" && !StatusMatches(task.Status, f.Status) {
			return false
		}
		if search != "" && !containsAny(search, task.Name, task.ClientName, string(task.Department), string(task.Status)) {
			return false
		}
		return true
	}
}

// EmployeeFilter narrows the employee views.
type EmployeeFilter struct {
	Department domain.Department
	Role       domain.Role
	Status     domain.EmployeeStatus
	Search     string
}

// FilterEmployees returns the employees matching f.
func FilterEmployees(employees []domain.Employee, f EmployeeFilter) []domain.Employee {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]domain.Employee, 0, len(employees))
	for _, e := range employees {
		if f.Department != "" && e.Department != f.Department {
			continue
		}
		if f.Role != "" && e.Role != f.Role {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if search != "" && !containsAny(search, e.Name, e.Email, string(e.Department)) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// ClientFilter narrows the client views.
type ClientFilter struct {
	Stage      domain.Stage
	Status     string
	Source     domain.ClientSource
	EmployeeID string
	Search     string
}

// FilterClients returns the clients matching f. Stage is compared against
// the effective stage.
func FilterClients(clients []domain.Client, employees []domain.Employee, f ClientFilter) []domain.Client {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var employee domain.Employee
	employeeKnown := false
	for _, e := range employees {
		if f.EmployeeID != "" && e.ID == f.EmployeeID {
			employee, employeeKnown = e, true
			break
		}
	}

	out := make([]domain.Client, 0, len(clients))
	for _, c := range clients {
		if f.Stage != "" && workflow.CurrentStage(c) != f.Stage {
			continue
		}
		if f.Status != "" && !strings.EqualFold(c.Status, f.Status) {
			continue
		}
		if f.Source != "" && c.Source != f.Source {
			continue
		}
		if f.EmployeeID != "" && (!employeeKnown || !identity.MatchesAny(c.AssignmentRefs(), employee)) {
			continue
		}
		if search != "" && !containsAny(search, c.Name, c.Email, c.ClientID, c.ContactNumber) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func containsAny(needle string, haystacks ...string) bool {
	for _, h := range haystacks {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}
