package events

import (
	"time"

	"github.com/spec-kit/agency-dashboard/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventEmployeeCreated    EventType = "employee.created"
	EventEmployeeDeleted    EventType = "employee.deleted"
	EventClientCreated      EventType = "client.created"
	EventClientDeleted      EventType = "client.deleted"
	EventClientStageChanged EventType = "client.stage_changed"
	EventTasksApproved      EventType = "tasks.approved"
	EventTaskCreated        EventType = "task.created"
	EventTaskStatusChanged  EventType = "task.status_changed"
	EventTaskDeleted        EventType = "task.deleted"
)

// AllEventTypes lists every event a subscriber may receive.
var AllEventTypes = []EventType{
	EventEmployeeCreated,
	EventEmployeeDeleted,
	EventClientCreated,
	EventClientDeleted,
	EventClientStageChanged,
	EventTasksApproved,
	EventTaskCreated,
	EventTaskStatusChanged,
	EventTaskDeleted,
}

// Actor identifies the dashboard operator behind an event.
type Actor struct {
	EmployeeID string      `json:"employee_id,omitempty"`
	Role       domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	SubjectID string    `json:"subject_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// EmployeeDeletedPayload payload.
type EmployeeDeletedPayload struct {
	Email              string `json:"email"`
	UnassignedTasks    int    `json:"unassigned_tasks"`
	UnassignedClients  int    `json:"unassigned_clients"`
	IdentityNeedsClean bool   `json:"identity_needs_cleanup"`
}

// ClientStageChangedPayload payload.
type ClientStageChangedPayload struct {
	ClientID string       `json:"client_id"`
	Event    string       `json:"event"`
	From     domain.Stage `json:"from"`
	To       domain.Stage `json:"to"`
}

// TasksApprovedPayload payload.
type TasksApprovedPayload struct {
	ClientID string   `json:"client_id"`
	TaskIDs  []string `json:"task_ids"`
}

// TaskStatusChangedPayload payload.
type TaskStatusChangedPayload struct {
	OldStatus domain.TaskStatus `json:"old_status"`
	NewStatus domain.TaskStatus `json:"new_status"`
}

// RecordPayload carries a display name for created or deleted records.
type RecordPayload struct {
	Name       string            `json:"name"`
	Department domain.Department `json:"department,omitempty"`
}
