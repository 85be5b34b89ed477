package analytics

import (
	"testing"
	"time"

	"github.com/spec-kit/agency-dashboard/internal/domain"
)

var employees = []domain.Employee{
	{ID: "e1", Name: "Jane", Email: "jane@agency.io", Department: domain.DepartmentVideo, Role: domain.RoleEmployee, Status: domain.EmployeeStatusActive},
	{ID: "e2", Name: "Raj", Email: "raj@agency.io", Department: domain.DepartmentGraphics, Role: domain.RoleHead, Status: domain.EmployeeStatusInactive},
}

var tasks = []domain.Task{
	{ID: "t1", Name: "Launch reel", ClientName: "Acme", Department: domain.DepartmentVideo, Status: domain.TaskStatusCompleted, AssignedTo: "e1", PostDate: "2025-06-02"},
	{ID: "t2", Name: "Banner", ClientName: "Acme", Department: domain.DepartmentGraphics, Status: domain.TaskStatusPosted, AssignedEmployee: "Jane", PostDate: "2025-06-15"},
	{ID: "t3", Name: "Story", ClientName: "Globex", Department: domain.DepartmentSocialMedia, Status: domain.TaskStatusPending, AssignedTo: "raj@agency.io", PostDate: "2025-07-01"},
	{ID: "t4", Name: "Undated", ClientName: "Globex", Department: domain.DepartmentVideo, Status: domain.TaskStatusApproved},
	{ID: "t5", Name: "Gone", ClientName: "Acme", Department: domain.DepartmentVideo, Status: domain.TaskStatusPending, PostDate: "2025-06-09", Deleted: true},
}

func ids(list []domain.Task) []string {
	out := make([]string, 0, len(list))
	for _, task := range list {
		out = append(out, task.ID)
	}
	return out
}

func TestFilterTasks(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "no filter drops deleted", filter: Filter{}, want: []string{"t1", "t2", "t3", "t4"}},
		{name: "month prefix", filter: Filter{Month: "2025-06"}, want: []string{"t1", "t2"}},
		{name: "department", filter: Filter{Department: domain.DepartmentVideo}, want: []string{"t1", "t4"}},
		{name: "employee by any key ignores department", filter: Filter{EmployeeID: "e1"}, want: []string{"t1", "t2"}},
		{name: "employee by email", filter: Filter{EmployeeID: "e2"}, want: []string{"t3"}},
		{name: "unknown employee", filter: Filter{EmployeeID: "e9"}, want: []string{}},
		{name: "completed covers posted", filter: Filter{Status: domain.TaskStatusCompleted}, want: []string{"t1", "t2"}},
		{name: "approved is exact", filter: Filter{Status: domain.TaskStatusApproved}, want: []string{"t4"}},
		{name: "search is anded", filter: Filter{Month: "2025-06", Search: "ACME"}, want: []string{"t1", "t2"}},
		{name: "search on status", filter: Filter{Search: "pend"}, want: []string{"t3"}},
		{name: "search on department", filter: Filter{Search: "social"}, want: []string{"t3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(FilterTasks(tasks, employees, tt.filter))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestMonthFilterIgnoresOtherFields(t *testing.T) {
	for _, task := range FilterTasks(tasks, employees, Filter{Month: "2025-06"}) {
		if task.PostDate[:7] != "2025-06" {
			t.Errorf("task %s outside month: %s", task.ID, task.PostDate)
		}
	}
}

func TestValidMonth(t *testing.T) {
	for month, want := range map[string]bool{"": true, "2025-06": true, "2025-13": false, "June": false} {
		if got := ValidMonth(month); got != want {
			t.Errorf("ValidMonth(%q) = %v", month, got)
		}
	}
}

func TestCompletionRate(t *testing.T) {
	tests := []struct{ completed, total, want int }{
		{0, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{5, 5, 100},
	}
	for _, tt := range tests {
		if got := CompletionRate(tt.completed, tt.total); got != tt.want {
			t.Errorf("CompletionRate(%d, %d) = %d, want %d", tt.completed, tt.total, got, tt.want)
		}
	}
}

func TestSummaries(t *testing.T) {
	summary := SummarizeTasks(tasks)
	if summary.Total != 4 || summary.Completed != 3 || summary.CompletionRate != 75 {
		t.Errorf("unexpected task summary %+v", summary)
	}
	if summary.ByDepartment[domain.DepartmentVideo] != 2 {
		t.Errorf("video tasks = %d", summary.ByDepartment[domain.DepartmentVideo])
	}

	departments := SummarizeDepartments(tasks, employees)
	if len(departments) != len(domain.Departments) {
		t.Fatalf("expected a row per department, got %d", len(departments))
	}
	for _, row := range departments {
		if row.Department == domain.DepartmentGraphics && (row.Employees != 1 || row.ActiveEmployees != 0 || row.CompletionRate != 100) {
			t.Errorf("unexpected graphics row %+v", row)
		}
	}

	people := SummarizeEmployees(tasks, employees)
	if people[0].Tasks != 2 || people[0].Completed != 2 {
		t.Errorf("unexpected Jane row %+v", people[0])
	}
}

func TestFilterEmployeesJaneScenario(t *testing.T) {
	list := FilterEmployees(employees, EmployeeFilter{Department: domain.DepartmentVideo})
	if len(list) != 1 || list[0].Name != "Jane" || !list[0].Active() {
		t.Errorf("unexpected result %+v", list)
	}
	if got := FilterEmployees(employees, EmployeeFilter{Search: "RAJ@"}); len(got) != 1 {
		t.Errorf("search by email failed: %+v", got)
	}
}

func TestFilterAndSummarizeClients(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	clients := []domain.Client{
		{ID: "c1", ClientID: "1", Name: "Acme", AssignedToEmployee: "jane@agency.io", Stage: domain.StageInternalApproval},
		{ID: "c2", ClientID: "2", Name: "Globex", StageCompletions: map[domain.Stage]time.Time{domain.StageInformationGathering: now}, Source: domain.ClientSourceStrategy},
		{ID: "c3", ClientID: "3", Name: "Initech"},
	}

	byStage := FilterClients(clients, employees, ClientFilter{Stage: domain.StageStrategyPreparation})
	if len(byStage) != 1 || byStage[0].ID != "c2" {
		t.Errorf("stage filter should use derived stage, got %+v", byStage)
	}
	mine := FilterClients(clients, employees, ClientFilter{EmployeeID: "e1"})
	if len(mine) != 1 || mine[0].ID != "c1" {
		t.Errorf("employee filter failed: %+v", mine)
	}

	summary := SummarizeClients(clients)
	if summary.Total != 3 || summary.Strategy != 1 ||
		summary.ByStage[domain.StageInformationGathering] != 1 ||
		summary.ByStage[domain.StageClientApproval] != 0 {
		t.Errorf("unexpected client summary %+v", summary)
	}
}

func TestNextClientID(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		want string
	}{
		{name: "empty", ids: nil, want: "1"},
		{name: "max plus one", ids: []string{"3", "12", "7"}, want: "13"},
		{name: "leading run only", ids: []string{"21-old", "CL9", ""}, want: "22"},
		{name: "no numeric ids", ids: []string{"abc"}, want: "1"},
		{name: "beyond uint64", ids: []string{"5", "123456789012345678901234"}, want: "123456789012345678901235"},
		{name: "leading zeros", ids: []string{"0009", "10"}, want: "11"},
		{name: "max uint64 carries", ids: []string{"18446744073709551615"}, want: "18446744073709551616"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clients := make([]domain.Client, 0, len(tt.ids))
			for _, id := range tt.ids {
				clients = append(clients, domain.Client{ClientID: id})
			}
			if got := NextClientID(clients); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
