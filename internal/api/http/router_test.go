package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/agency-dashboard/internal/api/http/handlers"
	"github.com/spec-kit/agency-dashboard/internal/auth"
	"github.com/spec-kit/agency-dashboard/internal/config"
	"github.com/spec-kit/agency-dashboard/internal/events"
	"github.com/spec-kit/agency-dashboard/internal/observability"
	"github.com/spec-kit/agency-dashboard/internal/persistence"
	"github.com/spec-kit/agency-dashboard/internal/report"
	"github.com/spec-kit/agency-dashboard/internal/repository"
	"github.com/spec-kit/agency-dashboard/internal/service"
	"github.com/spec-kit/agency-dashboard/internal/store"
	"github.com/spec-kit/agency-dashboard/internal/workflow"
)

const adminPassword = "admin-pass"

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	s := store.NewMemoryStore()
	dispatcher := events.NewInMemoryDispatcher(logger)
	locker := persistence.NewLocalLocker()

	employeeRepo := repository.NewEmployeeRepository(s)
	taskRepo := repository.NewTaskRepository(s)
	clientRepo := repository.NewClientRepository(s)
	provider := auth.NewLocalProvider(repository.NewAuthAccountRepository(s), bcrypt.MinCost)

	employees := service.NewEmployeeService(service.EmployeeDependencies{
		Store: s, EmployeeRepo: employeeRepo, TaskRepo: taskRepo, ClientRepo: clientRepo,
		Identity: provider, Locker: locker, Dispatcher: dispatcher, Logger: logger,
	})
	if _, err := employees.Seed(context.Background(), service.DefaultSeedEmployees(), adminPassword); err != nil {
		t.Fatalf("seed: %v", err)
	}
	clients := service.NewClientService(service.ClientDependencies{
		Store: s, ClientRepo: clientRepo, EmployeeRepo: employeeRepo,
		Engine:     workflow.NewEngine(workflow.EngineDependencies{Store: s, Locker: locker, Logger: logger}),
		Locker:     locker,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	tasks := service.NewTaskService(service.TaskDependencies{
		Store: s, TaskRepo: taskRepo, ClientRepo: clientRepo, EmployeeRepo: employeeRepo,
		Dispatcher: dispatcher, Logger: logger,
	})
	dashboard := service.NewDashboardService(service.DashboardDependencies{
		TaskRepo: taskRepo, ClientRepo: clientRepo, EmployeeRepo: employeeRepo,
		DeletedAuthAccountRepo: repository.NewDeletedAuthAccountRepository(s),
		Exporter:               report.NewExporter("Agency Dashboard", "Agency Dashboard"),
		Recorder:               metrics,
	})
	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5}}
	authService := service.NewAuthService(cfg, service.AuthDependencies{EmployeeRepo: employeeRepo, Identity: provider})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("agency-dashboard", "test", nil),
		Auth:           handlers.NewAuthHandler(authService),
		Employees:      handlers.NewEmployeesHandler(employees),
		Clients:        handlers.NewClientsHandler(clients),
		Tasks:          handlers.NewTasksHandler(tasks),
		Dashboard:      handlers.NewDashboardHandler(dashboard),
		Changes:        handlers.NewChangesHandler(s, logger, store.DashboardCollections...),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), employeeRepo),
		Metrics:        metrics,
	})
	return app
}

type apiResponse struct {
	Status int
	Body   map[string]any
	Header map[string]string
}

func call(t *testing.T, app *fiber.App, method, path, token string, body any) apiResponse {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := apiResponse{Status: resp.StatusCode, Header: map[string]string{}}
	for _, key := range []string{fiber.HeaderContentType, fiber.HeaderContentDisposition} {
		out.Header[key] = resp.Header.Get(key)
	}
	raw, _ := io.ReadAll(resp.Body)
	if strings.HasPrefix(out.Header[fiber.HeaderContentType], fiber.MIMEApplicationJSON) {
		_ = json.Unmarshal(raw, &out.Body)
	}
	return out
}

func (r apiResponse) data() map[string]any {
	data, _ := r.Body["data"].(map[string]any)
	return data
}

func (r apiResponse) errorCode() string {
	errBody, _ := r.Body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func signIn(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()
	resp := call(t, app, fiber.MethodPost, "/api/auth/sign-in", "", map[string]string{"email": email, "password": password})
	if resp.Status != fiber.StatusOK {
		t.Fatalf("sign-in %s: status %d %v", email, resp.Status, resp.Body)
	}
	authBody, _ := resp.data()["auth"].(map[string]any)
	token, _ := authBody["token"].(string)
	return token
}

func TestProbesAndMetrics(t *testing.T) {
	app := newTestApp(t)
	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		if resp := call(t, app, fiber.MethodGet, path, "", nil); resp.Status != fiber.StatusOK {
			t.Errorf("%s returned %d", path, resp.Status)
		}
	}
	if resp := call(t, app, fiber.MethodGet, "/nope", "", nil); resp.Status != fiber.StatusNotFound || resp.errorCode() != "NOT_FOUND" {
		t.Errorf("unknown route: %d %v", resp.Status, resp.Body)
	}
}

func TestAuthentication(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name   string
		token  string
		status int
		code   string
	}{
		{name: "missing token", token: "", status: fiber.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "garbage token", token: "not-a-jwt", status: fiber.StatusUnauthorized, code: "UNAUTHORIZED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := call(t, app, fiber.MethodGet, "/api/employees", tt.token, nil)
			if resp.Status != tt.status || resp.errorCode() != tt.code {
				t.Errorf("got %d %v", resp.Status, resp.Body)
			}
		})
	}

	bad := call(t, app, fiber.MethodPost, "/api/auth/sign-in", "", map[string]string{"email": "admin@agency.local", "password": "wrong"})
	if bad.Status != fiber.StatusUnauthorized {
		t.Errorf("wrong password returned %d", bad.Status)
	}
}

func TestEmployeeEndpoints(t *testing.T) {
	app := newTestApp(t)
	token := signIn(t, app, "admin@agency.local", adminPassword)

	invalid := call(t, app, fiber.MethodPost, "/api/employees", token, map[string]string{"employeeName": "Jane", "email": "jane"})
	if invalid.Status != fiber.StatusBadRequest || invalid.errorCode() != "VALIDATION_FAILED" {
		t.Fatalf("invalid payload: %d %v", invalid.Status, invalid.Body)
	}

	created := call(t, app, fiber.MethodPost, "/api/employees", token, map[string]string{
		"employeeName": "Jane", "email": "jane@agency.io", "department": "video", "password": "secret123",
	})
	if created.Status != fiber.StatusCreated {
		t.Fatalf("create: %d %v", created.Status, created.Body)
	}
	janeID, _ := created.data()["id"].(string)

	list := call(t, app, fiber.MethodGet, "/api/employees?department=video", token, nil)
	items, _ := list.Body["data"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected one video employee, got %v", list.Body)
	}

	unconfirmed := call(t, app, fiber.MethodDelete, "/api/employees/"+janeID, token, nil)
	if unconfirmed.Status != fiber.StatusPreconditionRequired || unconfirmed.errorCode() != "CONFIRMATION_REQUIRED" {
		t.Errorf("delete without confirm: %d %v", unconfirmed.Status, unconfirmed.Body)
	}
	deleted := call(t, app, fiber.MethodDelete, "/api/employees/"+janeID+"?confirm=true", token, nil)
	if deleted.Status != fiber.StatusOK || deleted.data()["identityNeedsCleanup"] != true {
		t.Errorf("delete: %d %v", deleted.Status, deleted.Body)
	}

	head := signIn(t, app, "strategy@agency.local", adminPassword)
	forbidden := call(t, app, fiber.MethodPost, "/api/employees", head, map[string]string{
		"employeeName": "Raj", "email": "raj@agency.io", "department": "video", "password": "secret123",
	})
	if forbidden.Status != fiber.StatusForbidden {
		t.Errorf("head created an employee: %d", forbidden.Status)
	}
}

func TestClientWorkflowEndpoints(t *testing.T) {
	app := newTestApp(t)
	token := signIn(t, app, "admin@agency.local", adminPassword)

	badPhone := call(t, app, fiber.MethodPost, "/api/clients", token, map[string]string{
		"clientName": "Acme", "email": "hello@acme.io", "contactNumber": "12345",
	})
	if badPhone.Status != fiber.StatusBadRequest {
		t.Fatalf("bad phone accepted: %d", badPhone.Status)
	}

	next := call(t, app, fiber.MethodGet, "/api/clients/next-id", token, nil)
	if next.data()["clientId"] != "1" {
		t.Errorf("next id on empty store: %v", next.Body)
	}

	created := call(t, app, fiber.MethodPost, "/api/clients", token, map[string]string{
		"clientName": "Acme", "email": "hello@acme.io", "contactNumber": "0123456789",
	})
	if created.Status != fiber.StatusCreated || created.data()["stage"] != "information-gathering" {
		t.Fatalf("create client: %d %v", created.Status, created.Body)
	}
	id, _ := created.data()["id"].(string)

	tests := []struct {
		event  string
		status int
		code   string
	}{
		{event: "approve", status: fiber.StatusConflict, code: "INVALID_TRANSITION"},
		{event: "explode", status: fiber.StatusBadRequest, code: "BAD_REQUEST"},
		{event: "complete", status: fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			resp := call(t, app, fiber.MethodPost, "/api/clients/"+id+"/workflow/"+tt.event, token, nil)
			if resp.Status != tt.status || (tt.code != "" && resp.errorCode() != tt.code) {
				t.Errorf("got %d %v", resp.Status, resp.Body)
			}
		})
	}

	task := call(t, app, fiber.MethodPost, "/api/clients/"+id+"/tasks", token, map[string]string{
		"taskName": "Launch reel", "department": "video", "postDate": "2025-06-14",
	})
	if task.Status != fiber.StatusCreated || task.data()["status"] != "strategy-preparation" {
		t.Errorf("assign task: %d %v", task.Status, task.Body)
	}
}

func TestTaskPermissionsAndReports(t *testing.T) {
	app := newTestApp(t)
	admin := signIn(t, app, "admin@agency.local", adminPassword)
	call(t, app, fiber.MethodPost, "/api/employees", admin, map[string]string{
		"employeeName": "Gina", "email": "gina@agency.io", "department": "graphics", "role": "head", "password": "secret123",
	})
	head := signIn(t, app, "gina@agency.io", "secret123")

	video := call(t, app, fiber.MethodPost, "/api/tasks", admin, map[string]string{
		"taskName": "Reel", "department": "video", "postDate": "2025-06-14",
	})
	videoID, _ := video.data()["id"].(string)
	if resp := call(t, app, fiber.MethodPatch, "/api/tasks/"+videoID+"/status", head, map[string]string{"status": "completed"}); resp.Status != fiber.StatusForbidden {
		t.Errorf("graphics head changed a video task: %d", resp.Status)
	}

	graphics := call(t, app, fiber.MethodPost, "/api/tasks", head, map[string]string{
		"taskName": "Banner", "department": "graphics", "postDate": "2025-06-20",
	})
	graphicsID, _ := graphics.data()["id"].(string)
	if resp := call(t, app, fiber.MethodPatch, "/api/tasks/"+graphicsID+"/status", head, map[string]string{"status": "completed"}); resp.Status != fiber.StatusOK {
		t.Errorf("head could not update own task: %d %v", resp.Status, resp.Body)
	}

	overview := call(t, app, fiber.MethodGet, "/api/dashboard/overview?month=2025-06", admin, nil)
	tasks, _ := overview.data()["tasks"].(map[string]any)
	if tasks["total"] != float64(2) || tasks["completionRate"] != float64(50) {
		t.Errorf("overview: %v", overview.Body)
	}

	xlsx := call(t, app, fiber.MethodGet, "/api/reports/tasks?format=xlsx&month=2025-06", admin, nil)
	if xlsx.Status != fiber.StatusOK || !strings.Contains(xlsx.Header[fiber.HeaderContentDisposition], "agency_dashboard_tasks_2025-06.xlsx") {
		t.Errorf("xlsx report: %d %v", xlsx.Status, xlsx.Header)
	}
	if resp := call(t, app, fiber.MethodGet, "/api/reports/payroll", admin, nil); resp.Status != fiber.StatusBadRequest {
		t.Errorf("unknown report kind: %d", resp.Status)
	}

	if resp := call(t, app, fiber.MethodDelete, "/api/tasks/"+graphicsID, head, nil); resp.errorCode() != "CONFIRMATION_REQUIRED" {
		t.Errorf("task delete without confirm: %v", resp.Body)
	}
	if resp := call(t, app, fiber.MethodDelete, "/api/tasks/"+graphicsID+"?confirm=true", head, nil); resp.Status != fiber.StatusNoContent {
		t.Errorf("task delete: %d %v", resp.Status, resp.Body)
	}
	if resp := call(t, app, fiber.MethodGet, "/api/tasks/"+graphicsID, admin, nil); resp.Status != fiber.StatusNotFound {
		t.Errorf("deleted task still served: %d", resp.Status)
	}
}
