package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spec-kit/agency-dashboard/internal/analytics"
	"github.com/spec-kit/agency-dashboard/internal/domain"
	"github.com/spec-kit/agency-dashboard/internal/workflow"
)

func titleFor(base, month string) string {
	if month == "" {
		return base
	}
	return fmt.Sprintf("%s (%s)", base, month)
}

// Tasks lays out a task report.
func Tasks(tasks []domain.Task, month string) Report {
	r := Report{
		Kind:    KindTasks,
		Title:   titleFor("Task Report", month),
		Month:   month,
		Columns: []string{"Task", "Client", "Department", "Status", "Assigned To", "Post Date", "Deadline"},
	}
	for _, t := range tasks {
		assignee := t.AssignedEmployee
		if assignee == "" {
			assignee = t.AssignedTo
		}
		r.Rows = append(r.Rows, []string{t.Name, t.ClientName, string(t.Department), string(t.Status), assignee, t.PostDate, t.Deadline})
	}
	return r
}

// Employees lays out an employee report with per-employee task counts.
func Employees(rows []analytics.EmployeeSummary, employees []domain.Employee, month string) Report {
	byID := make(map[string]domain.Employee, len(employees))
	for _, e := range employees {
		byID[e.ID] = e
	}
	r := Report{
		Kind:    KindEmployees,
		Title:   titleFor("Employee Report", month),
		Month:   month,
		Columns: []string{"Name", "Email", "Department", "Role", "Status", "Tasks", "Completed", "Completion %"},
	}
	for _, row := range rows {
		e := byID[row.EmployeeID]
		r.Rows = append(r.Rows, []string{
			row.Name, e.Email, string(row.Department), string(e.Role), string(e.Status),
			strconv.Itoa(row.Tasks), strconv.Itoa(row.Completed), strconv.Itoa(row.CompletionRate),
		})
	}
	return r
}

// Clients lays out a client report.
func Clients(clients []domain.Client, month string) Report {
	r := Report{
		Kind:    KindClients,
		Title:   titleFor("Client Report", month),
		Month:   month,
		Columns: []string{"Client ID", "Name", "Email", "Contact", "Stage", "Assigned To", "Source", "Created"},
	}
	for _, c := range clients {
		assignee := c.AssignedToEmployeeName
		if assignee == "" {
			assignee = c.AssignedToEmployee
		}
		created := ""
		if !c.CreatedAt.IsZero() {
			created = c.CreatedAt.Format("2006-01-02")
		}
		r.Rows = append(r.Rows, []string{
			c.ClientID, c.Name, c.Email, c.ContactNumber,
			stageLabel(workflow.CurrentStage(c)), assignee, string(c.Source), created,
		})
	}
	return r
}

// DepartmentSummary lays out the department rollup.
func DepartmentSummary(rows []analytics.DepartmentSummary, month string) Report {
	r := Report{
		Kind:    KindDepartmentSummary,
		Title:   titleFor("Department Summary", month),
		Month:   month,
		Columns: []string{"Department", "Employees", "Active", "Tasks", "Completed", "Completion %"},
	}
	for _, row := range rows {
		r.Rows = append(r.Rows, []string{
			string(row.Department),
			strconv.Itoa(row.Employees), strconv.Itoa(row.ActiveEmployees),
			strconv.Itoa(row.Tasks), strconv.Itoa(row.Completed), strconv.Itoa(row.CompletionRate),
		})
	}
	return r
}

// ClientsInMonth keeps clients created in month; every client when month is
// empty.
func ClientsInMonth(clients []domain.Client, month string) []domain.Client {
	if month == "" {
		return clients
	}
	out := make([]domain.Client, 0, len(clients))
	for _, c := range clients {
		if !c.CreatedAt.IsZero() && c.CreatedAt.Format(analytics.MonthLayout) == month {
			out = append(out, c)
		}
	}
	return out
}

func stageLabel(s domain.Stage) string {
	words := strings.Split(string(s), "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

