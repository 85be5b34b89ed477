package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/agency-dashboard/internal/analytics"
	"github.com/spec-kit/agency-dashboard/internal/auth"
	"github.com/spec-kit/agency-dashboard/internal/config"
	"github.com/spec-kit/agency-dashboard/internal/domain"
	"github.com/spec-kit/agency-dashboard/internal/events"
	"github.com/spec-kit/agency-dashboard/internal/identity"
	"github.com/spec-kit/agency-dashboard/internal/persistence"
	"github.com/spec-kit/agency-dashboard/internal/report"
	"github.com/spec-kit/agency-dashboard/internal/repository"
	"github.com/spec-kit/agency-dashboard/internal/store"
	"github.com/spec-kit/agency-dashboard/internal/workflow"
	apperrors "github.com/spec-kit/agency-dashboard/pkg/util/errorutil"
)

type harness struct {
	store     *store.MemoryStore
	events    []events.Event
	mu        sync.Mutex
	employees *EmployeeService
	clients   *ClientService
	tasks     *TaskService
	dashboard *DashboardService
	auth      *AuthService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{store: store.NewMemoryStore()}
	dispatcher := events.NewInMemoryDispatcher(nil)
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.events = append(h.events, e)
			return nil
		})
	}

	employeeRepo := repository.NewEmployeeRepository(h.store)
	taskRepo := repository.NewTaskRepository(h.store)
	clientRepo := repository.NewClientRepository(h.store)
	provider := auth.NewLocalProvider(repository.NewAuthAccountRepository(h.store), bcrypt.MinCost)
	locker := persistence.NewLocalLocker()

	h.employees = NewEmployeeService(EmployeeDependencies{
		Store: h.store, EmployeeRepo: employeeRepo, TaskRepo: taskRepo, ClientRepo: clientRepo,
		Identity: provider, Locker: locker, Dispatcher: dispatcher,
	})
	h.clients = NewClientService(ClientDependencies{
		Store: h.store, ClientRepo: clientRepo, EmployeeRepo: employeeRepo,
		Engine:     workflow.NewEngine(workflow.EngineDependencies{Store: h.store, Locker: locker}),
		Locker:     locker,
		Dispatcher: dispatcher,
	})
	h.tasks = NewTaskService(TaskDependencies{
		Store: h.store, TaskRepo: taskRepo, ClientRepo: clientRepo, EmployeeRepo: employeeRepo, Dispatcher: dispatcher,
	})
	h.dashboard = NewDashboardService(DashboardDependencies{
		TaskRepo: taskRepo, ClientRepo: clientRepo, EmployeeRepo: employeeRepo,
		DeletedAuthAccountRepo: repository.NewDeletedAuthAccountRepository(h.store),
		Exporter:               report.NewExporter("Agency Dashboard", "Agency Dashboard"),
	})
	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "test", AccessTokenTTLMinutes: 5}}
	h.auth = NewAuthService(cfg, AuthDependencies{EmployeeRepo: employeeRepo, Identity: provider})
	return h
}

func hasCode(err error, code string) bool {
	var domainErr *apperrors.DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

func (h *harness) eventTypes() []events.EventType {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]events.EventType, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.Type)
	}
	return out
}

func (h *harness) createEmployee(t *testing.T, name, email string, dept domain.Department, role domain.Role) *domain.Employee {
	t.Helper()
	e, err := h.employees.Create(context.Background(), EmployeeCreateInput{
		Name: name, Email: email, Department: dept, Role: role, Password: "secret123",
	})
	if err != nil {
		t.Fatalf("create employee %s: %v", name, err)
	}
	return e
}

func TestAddEmployeeThenListDepartment(t *testing.T) {
	h := newHarness(t)
	h.createEmployee(t, "Jane", "jane@agency.io", domain.DepartmentVideo, domain.RoleEmployee)

	list, err := h.employees.List(context.Background(), analytics.EmployeeFilter{Department: domain.DepartmentVideo})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Jane" || list[0].Status != domain.EmployeeStatusActive {
		t.Fatalf("expected one active Jane, got %+v", list)
	}
	if list[0].FirebaseUID == "" {
		t.Error("identity UID not stored on the employee")
	}
}

func TestCreateEmployeeValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.createEmployee(t, "Jane", "jane@agency.io", domain.DepartmentVideo, domain.RoleEmployee)

	tests := []struct {
		name  string
		input EmployeeCreateInput
		code  string
	}{
		{name: "duplicate email any case", input: EmployeeCreateInput{Name: "J2", Email: "JANE@agency.io", Department: domain.DepartmentVideo, Password: "secret123"}, code: "CONFLICT"},
		{name: "missing name", input: EmployeeCreateInput{Email: "x@agency.io", Department: domain.DepartmentVideo, Password: "secret123"}, code: "VALIDATION_FAILED"},
		{name: "unknown department", input: EmployeeCreateInput{Name: "X", Email: "x@agency.io", Department: "sales", Password: "secret123"}, code: "VALIDATION_FAILED"},
		{name: "short password", input: EmployeeCreateInput{Name: "X", Email: "x@agency.io", Department: domain.DepartmentVideo, Password: "abc"}, code: "VALIDATION_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.employees.Create(ctx, tt.input); !hasCode(err, tt.code) {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
		})
	}
	all, _ := h.employees.List(ctx, analytics.EmployeeFilter{})
	if len(all) != 1 {
		t.Errorf("failed creations must not write, got %d employees", len(all))
	}
}

func TestDeleteEmployeeCascades(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	jane := h.createEmployee(t, "Jane", "jane@agency.io", domain.DepartmentVideo, domain.RoleEmployee)
	raj := h.createEmployee(t, "Raj", "raj@agency.io", domain.DepartmentGraphics, domain.RoleEmployee)

	taskRepo := repository.NewTaskRepository(h.store)
	for i, ref := range []string{jane.ID, jane.Email, jane.Name, raj.Name} {
		task := &domain.Task{Name: fmt.Sprintf("task-%d", i), Department: domain.DepartmentVideo, AssignedTo: ref}
		if i == 2 {
			task.AssignedTo, task.AssignedEmployee = "", ref
			task.Deleted = true
		}
		_ = taskRepo.Create(ctx, task)
	}
	clientRepo := repository.NewClientRepository(h.store)
	_ = clientRepo.Create(ctx, &domain.Client{ClientID: "1", Name: "Acme", AssignedToEmployee: jane.Email, AssignedToEmployeeName: jane.Name})
	_ = clientRepo.Create(ctx, &domain.Client{ClientID: "2", Name: "Globex", AssignedToEmployee: raj.Email})

	if _, err := h.employees.Delete(ctx, jane.ID, false); !hasCode(err, "CONFIRMATION_REQUIRED") {
		t.Fatalf("expected confirmation requirement, got %v", err)
	}

	result, err := h.employees.Delete(ctx, jane.ID, true)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if result.UnassignedTasks != 3 || result.UnassignedClients != 1 || !result.IdentityNeedsCleanup {
		t.Errorf("unexpected cascade result %+v", result)
	}

	tasks, _ := taskRepo.List(ctx, true)
	for _, task := range tasks {
		if identity.MatchesAny(task.AssignmentRefs(), *jane) {
			t.Errorf("task %s still references the deleted employee", task.ID)
		}
	}
	clients, _ := clientRepo.List(ctx)
	for _, client := range clients {
		if identity.MatchesAny(client.AssignmentRefs(), *jane) {
			t.Errorf("client %s still references the deleted employee", client.ClientID)
		}
		if client.ClientID == "2" && client.AssignedToEmployee != raj.Email {
			t.Error("unrelated client assignment was cleared")
		}
	}

	flagged, _ := repository.NewDeletedAuthAccountRepository(h.store).List(ctx)
	if len(flagged) != 1 || flagged[0].UID != jane.FirebaseUID || flagged[0].EmployeeID != jane.ID {
		t.Errorf("identity not flagged for cleanup: %+v", flagged)
	}
	if _, err := h.employees.Get(ctx, jane.ID); !hasCode(err, "NOT_FOUND") {
		t.Errorf("employee still present: %v", err)
	}
}

func TestSeedSystemEmployees(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.createEmployee(t, "Existing Admin", "ADMIN@agency.local", domain.DepartmentProduction, domain.RoleAdmin)

	created, err := h.employees.Seed(ctx, DefaultSeedEmployees(), "changeme1")
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if created != 1 {
		t.Fatalf("expected only the strategy head to be seeded, got %d", created)
	}
	again, _ := h.employees.Seed(ctx, DefaultSeedEmployees(), "changeme1")
	if again != 0 {
		t.Errorf("seeding twice created %d records", again)
	}

	head, err := h.employees.Get(ctx, "system-strategy-head")
	if err != nil || !head.IsSystem {
		t.Fatalf("seeded head missing: %v %+v", err, head)
	}
	if _, err := h.employees.Delete(ctx, head.ID, true); !hasCode(err, "FORBIDDEN") {
		t.Errorf("system employee delete should be forbidden, got %v", err)
	}
	inactive := domain.EmployeeStatusInactive
	if _, err := h.employees.Update(ctx, head.ID, EmployeeUpdateInput{Status: &inactive}); !hasCode(err, "FORBIDDEN") {
		t.Errorf("system employee deactivation should be forbidden, got %v", err)
	}

	if _, session, err := h.auth.SignIn(ctx, "strategy@agency.local", "changeme1"); err != nil || session.Token == "" {
		t.Errorf("seeded head cannot sign in: %v", err)
	}
}

func TestLoadSeedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	content := `employees:
  - id: boss
    name: Boss
    email: boss@agency.io
    department: strategy
    role: admin
    password: topsecret
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	seeds, err := LoadSeedFile(path)
	if err != nil {
		t.Fatalf("LoadSeedFile failed: %v", err)
	}
	if len(seeds) != 1 || seeds[0].Role != domain.RoleAdmin || seeds[0].Department != domain.DepartmentStrategy {
		t.Errorf("unexpected seeds %+v", seeds)
	}

	bad := filepath.Join(dir, "bad.yaml")
	_ = os.WriteFile(bad, []byte("employees:\n  - id: x\n    email: x@agency.io\n    department: sales\n    role: admin\n"), 0o600)
	if _, err := LoadSeedFile(bad); err == nil {
		t.Error("invalid department accepted")
	}
	if defaults, _ := LoadSeedFile(""); len(defaults) != len(DefaultSeedEmployees()) {
		t.Error("empty path should return defaults")
	}
}

func TestSignInRoles(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.createEmployee(t, "Jane", "jane@agency.io", domain.DepartmentVideo, domain.RoleEmployee)
	h.createEmployee(t, "Hana", "hana@agency.io", domain.DepartmentVideo, domain.RoleHead)

	if _, _, err := h.auth.SignIn(ctx, "jane@agency.io", "secret123"); !hasCode(err, "FORBIDDEN") {
		t.Errorf("employee role must not sign in, got %v", err)
	}
	if _, _, err := h.auth.SignIn(ctx, "hana@agency.io", "wrong-password"); !hasCode(err, "UNAUTHORIZED") {
		t.Errorf("expected UNAUTHORIZED, got %v", err)
	}
	employee, session, err := h.auth.SignIn(ctx, "hana@agency.io", "secret123")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	claims, err := h.auth.TokenManager().ParseToken(session.Token)
	if err != nil || claims.EmployeeID != employee.ID {
		t.Errorf("token does not identify the employee: %v", err)
	}
	if err := h.auth.ChangePassword(ctx, employee, "secret123", "brandnew1"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if _, _, err := h.auth.SignIn(ctx, "hana@agency.io", "brandnew1"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func validClient(name string) ClientCreateInput {
	return ClientCreateInput{Name: name, Email: name + "@client.io", ContactNumber: "0123456789"}
}

func TestCreateClientDefaultsAndValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	client, err := h.clients.Create(ctx, validClient("acme"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if client.ClientID != "1" || client.Stage != domain.StageInformationGathering {
		t.Errorf("unexpected defaults %+v", client)
	}

	for _, phone := range []string{"12345", "01234567890", "01234abcde"} {
		input := validClient("bad")
		input.ContactNumber = phone
		if _, err := h.clients.Create(ctx, input); !hasCode(err, "VALIDATION_FAILED") {
			t.Errorf("phone %q accepted: %v", phone, err)
		}
	}
	input := validClient("ghost")
	input.AssignedTo = "nobody"
	if _, err := h.clients.Create(ctx, input); !hasCode(err, "VALIDATION_FAILED") {
		t.Errorf("unknown assignee accepted: %v", err)
	}

	next, _ := h.clients.NextID(ctx)
	if next != "2" {
		t.Errorf("next id = %q", next)
	}
}

func TestConcurrentEmployeeCreationWithSameEmail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	emails := []string{"jane@agency.io", "JANE@agency.io", "Jane@Agency.io", "jane@AGENCY.io"}

	var wg sync.WaitGroup
	errs := make([]error, len(emails))
	for i, email := range emails {
		wg.Add(1)
		go func(i int, email string) {
			defer wg.Done()
			_, errs[i] = h.employees.Create(ctx, EmployeeCreateInput{
				Name: "Jane", Email: email, Department: domain.DepartmentVideo, Password: "secret123",
			})
		}(i, email)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !hasCode(err, "CONFLICT"):
			t.Errorf("expected CONFLICT for the losing creates, got %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("expected exactly one create to succeed, got %d", succeeded)
	}

	employees, _ := h.store.List(ctx, store.CollectionEmployees)
	accounts, _ := h.store.List(ctx, store.CollectionAuthAccounts)
	if len(employees) != 1 || len(accounts) != 1 {
		t.Errorf("expected one employee and one account, got %d and %d", len(employees), len(accounts))
	}
}

func TestConcurrentClientCreationNeverDuplicatesIDs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	const n = 20

	var wg sync.WaitGroup
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			client, err := h.clients.Create(ctx, validClient(fmt.Sprintf("client%d", i)))
			if err != nil {
				t.Errorf("create %d: %v", i, err)
				return
			}
			ids <- client.ClientID
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		if seen[id] {
			t.Errorf("duplicate clientId %s", id)
		}
		seen[id] = true
	}
	if len(seen) != n || !seen["1"] || !seen[fmt.Sprint(n)] {
		t.Errorf("expected ids 1..%d, got %v", n, seen)
	}
}

func TestClientWorkflowThroughService(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	head := h.createEmployee(t, "Hana", "hana@agency.io", domain.DepartmentStrategy, domain.RoleHead)
	client, _ := h.clients.Create(ctx, validClient("acme"))

	if _, err := h.clients.Transition(ctx, client.ID, workflow.EventApprove); !hasCode(err, "INVALID_TRANSITION") {
		t.Fatalf("expected INVALID_TRANSITION, got %v", err)
	}
	if _, err := h.clients.Transition(ctx, client.ID, workflow.EventComplete); err != nil {
		t.Fatalf("complete: %v", err)
	}
	task, err := h.clients.AssignTask(ctx, client.ID, TaskCreateInput{Name: "Reel", Department: domain.DepartmentVideo, AssignedTo: head.Email, PostDate: "2025-06-10"})
	if err != nil {
		t.Fatalf("assign task: %v", err)
	}
	if task.AssignedEmployeeID != head.ID || task.Status != domain.TaskStatusStrategyPreparation {
		t.Errorf("unexpected assigned task %+v", task)
	}

	for _, event := range []workflow.Event{workflow.EventComplete, workflow.EventApprove, workflow.EventApproveAll} {
		if _, err := h.clients.Transition(ctx, client.ID, event); err != nil {
			t.Fatalf("%s: %v", event, err)
		}
	}
	got, _ := h.tasks.Get(ctx, task.ID)
	if got.Status != domain.TaskStatusAssignedToDepartment || got.Department != domain.DepartmentVideo {
		t.Errorf("task after approve-all: %+v", got)
	}

	approved := 0
	for _, eventType := range h.eventTypes() {
		if eventType == events.EventTasksApproved {
			approved++
		}
	}
	if approved != 1 {
		t.Errorf("expected one tasks.approved event, got %d", approved)
	}
}

func TestTaskLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	jane := h.createEmployee(t, "Jane", "jane@agency.io", domain.DepartmentVideo, domain.RoleEmployee)
	client, _ := h.clients.Create(ctx, validClient("acme"))

	june, err := h.tasks.Create(ctx, TaskCreateInput{Name: "Reel", ClientID: client.ClientID, Department: domain.DepartmentVideo, AssignedTo: "Jane", PostDate: "2025-06-14"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if june.ClientName != "acme" || june.AssignedEmployeeID != jane.ID || june.Status != domain.TaskStatusPending {
		t.Errorf("unexpected task %+v", june)
	}
	_, _ = h.tasks.Create(ctx, TaskCreateInput{Name: "Story", Department: domain.DepartmentSocialMedia, PostDate: "2025-07-01"})

	if _, err := h.tasks.Create(ctx, TaskCreateInput{Name: "Bad", Department: domain.DepartmentVideo, PostDate: "14/06/2025"}); !hasCode(err, "VALIDATION_FAILED") {
		t.Errorf("bad postDate accepted: %v", err)
	}
	if _, err := h.tasks.Create(ctx, TaskCreateInput{Name: "Orphan", ClientID: "404", Department: domain.DepartmentVideo}); !hasCode(err, "VALIDATION_FAILED") {
		t.Errorf("unknown client accepted: %v", err)
	}

	list, _ := h.tasks.List(ctx, analytics.Filter{Month: "2025-06"})
	if len(list) != 1 || list[0].ID != june.ID {
		t.Errorf("month filter returned %+v", list)
	}
	if _, err := h.tasks.List(ctx, analytics.Filter{Month: "June"}); !hasCode(err, "VALIDATION_FAILED") {
		t.Errorf("bad month accepted: %v", err)
	}

	if _, err := h.tasks.UpdateStatus(ctx, june.ID, domain.TaskStatusPosted); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	done, _ := h.tasks.List(ctx, analytics.Filter{Status: domain.TaskStatusCompleted})
	if len(done) != 1 {
		t.Errorf("completed filter should include posted tasks, got %d", len(done))
	}

	if err := h.tasks.SoftDelete(ctx, june.ID, false); !hasCode(err, "CONFIRMATION_REQUIRED") {
		t.Errorf("expected confirmation requirement, got %v", err)
	}
	if err := h.tasks.SoftDelete(ctx, june.ID, true); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	if _, err := h.tasks.Get(ctx, june.ID); !hasCode(err, "NOT_FOUND") {
		t.Errorf("soft-deleted task still visible: %v", err)
	}
	if all, _ := h.tasks.List(ctx, analytics.Filter{}); len(all) != 1 {
		t.Errorf("soft-deleted task listed: %+v", all)
	}
	if err := h.tasks.Purge(ctx, june.ID, true); err != nil {
		t.Errorf("Purge failed: %v", err)
	}
}

func TestDashboardOverviewAndReports(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.createEmployee(t, "Jane", "jane@agency.io", domain.DepartmentVideo, domain.RoleEmployee)
	for i, status := range []domain.TaskStatus{domain.TaskStatusCompleted, domain.TaskStatusPosted, domain.TaskStatusPending} {
		_, err := h.tasks.Create(ctx, TaskCreateInput{
			Name: fmt.Sprintf("t%d", i), Department: domain.DepartmentVideo, Status: status, AssignedTo: "jane@agency.io", PostDate: "2025-06-0" + fmt.Sprint(i+1),
		})
		if err != nil {
			t.Fatalf("create task: %v", err)
		}
	}
	_, _ = h.clients.Create(ctx, validClient("acme"))

	overview, err := h.dashboard.Overview(ctx, analytics.Filter{Month: "2025-06"})
	if err != nil {
		t.Fatalf("Overview failed: %v", err)
	}
	if overview.Tasks.Total != 3 || overview.Tasks.CompletionRate != 67 {
		t.Errorf("unexpected task rollup %+v", overview.Tasks)
	}
	if overview.Clients.ByStage[domain.StageInformationGathering] != 1 {
		t.Errorf("unexpected client rollup %+v", overview.Clients)
	}
	if len(overview.Employees) != 1 || overview.Employees[0].Tasks != 3 {
		t.Errorf("unexpected employee rollup %+v", overview.Employees)
	}

	for _, kind := range []report.Kind{report.KindTasks, report.KindEmployees, report.KindClients, report.KindDepartmentSummary} {
		for _, format := range []report.Format{report.FormatPDF, report.FormatXLSX} {
			artifact, err := h.dashboard.Report(ctx, kind, format, analytics.Filter{Month: "2025-06"})
			if err != nil {
				t.Fatalf("%s/%s: %v", kind, format, err)
			}
			want := fmt.Sprintf("agency_dashboard_%s_2025-06.%s", kind, format)
			if artifact.Filename != want || len(artifact.Data) == 0 {
				t.Errorf("unexpected artifact %s (%d bytes)", artifact.Filename, len(artifact.Data))
			}
		}
	}
}
