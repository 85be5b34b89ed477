package analytics

import (
	"math"

	"github.com/spec-kit/agency-dashboard/internal/domain"
	"github.com/spec-kit/agency-dashboard/internal/identity"
	"github.com/spec-kit/agency-dashboard/internal/workflow"
)

// CompletionRate is completed/total as a whole percent, rounded half away
// from zero. An empty set has rate 0.
func CompletionRate(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) * 100 / float64(total)))
}

// TaskSummary rolls up a task set.
type TaskSummary struct {
	Total          int                       `json:"total"`
	Completed      int                       `json:"completed"`
	CompletionRate int                       `json:"completionRate"`
	ByStatus       map[domain.TaskStatus]int `json:"byStatus"`
	ByDepartment   map[domain.Department]int `json:"byDepartment"`
}

// SummarizeTasks counts live tasks per status and department.
func SummarizeTasks(tasks []domain.Task) TaskSummary {
	summary := TaskSummary{
		ByStatus:     map[domain.TaskStatus]int{},
		ByDepartment: map[domain.Department]int{},
	}
	for _, task := range tasks {
		if task.Deleted {
			continue
		}
		summary.Total++
		if task.Status.Done() {
			summary.Completed++
		}
		summary.ByStatus[task.Status]++
		summary.ByDepartment[task.Department]++
	}
	summary.CompletionRate = CompletionRate(summary.Completed, summary.Total)
	return summary
}

// DepartmentSummary is one row of the department rollup.
type DepartmentSummary struct {
	Department      domain.Department `json:"department"`
	Employees       int               `json:"employees"`
	ActiveEmployees int               `json:"activeEmployees"`
	Tasks           int               `json:"tasks"`
	Completed       int               `json:"completed"`
	CompletionRate  int               `json:"completionRate"`
}

// SummarizeDepartments returns one row per known department in display
// order. Tasks are grouped by exact department equality.
func SummarizeDepartments(tasks []domain.Task, employees []domain.Employee) []DepartmentSummary {
	rows := make([]DepartmentSummary, len(domain.Departments))
	index := make(map[domain.Department]int, len(domain.Departments))
	for i, d := range domain.Departments {
		rows[i].Department = d
		index[d] = i
	}
	for _, e := range employees {
		i, ok := index[e.Department]
		if !ok {
			continue
		}
		rows[i].Employees++
		if e.Active() {
			rows[i].ActiveEmployees++
		}
	}
	for _, task := range tasks {
		i, ok := index[task.Department]
		if !ok || task.Deleted {
			continue
		}
		rows[i].Tasks++
		if task.Status.Done() {
			rows[i].Completed++
		}
	}
	for i := range rows {
		rows[i].CompletionRate = CompletionRate(rows[i].Completed, rows[i].Tasks)
	}
	return rows
}

// EmployeeSummary is one row of the employee rollup.
type EmployeeSummary struct {
	EmployeeID     string            `json:"employeeId"`
	Name           string            `json:"name"`
	Department     domain.Department `json:"department"`
	Tasks          int               `json:"tasks"`
	Completed      int               `json:"completed"`
	CompletionRate int               `json:"completionRate"`
}

// SummarizeEmployees counts the live tasks assigned to each employee. A task
// counts for an employee when any of its assignment fields names them.
func SummarizeEmployees(tasks []domain.Task, employees []domain.Employee) []EmployeeSummary {
	rows := make([]EmployeeSummary, 0, len(employees))
	for _, e := range employees {
		row := EmployeeSummary{EmployeeID: e.ID, Name: e.Name, Department: e.Department}
		for _, task := range tasks {
			if task.Deleted || !identity.MatchesAny(task.AssignmentRefs(), e) {
				continue
			}
			row.Tasks++
			if task.Status.Done() {
				row.Completed++
			}
		}
		row.CompletionRate = CompletionRate(row.Completed, row.Tasks)
		rows = append(rows, row)
	}
	return rows
}

// ClientSummary rolls up clients per effective stage.
type ClientSummary struct {
	Total    int                  `json:"total"`
	ByStage  map[domain.Stage]int `json:"byStage"`
	Strategy int                  `json:"strategy"`
}

// SummarizeClients counts clients per stage.
func SummarizeClients(clients []domain.Client) ClientSummary {
	summary := ClientSummary{ByStage: make(map[domain.Stage]int, len(domain.Stages))}
	for _, stage := range domain.Stages {
		summary.ByStage[stage] = 0
	}
	for _, c := range clients {
		summary.Total++
		summary.ByStage[workflow.CurrentStage(c)]++
		if c.Source == domain.ClientSourceStrategy {
			summary.Strategy++
		}
	}
	return summary
}
