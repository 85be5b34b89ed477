package dto

import (
	"time"

	"github.com/spec-kit/agency-dashboard/internal/domain"
)

// TaskCreateRequest payload. On the task-assignment route the client comes
// from the path and ClientID is ignored.
type TaskCreateRequest struct {
	Name        string `json:"taskName" validate:"required"`
	Description string `json:"description"`
	ClientID    string `json:"clientId"`
	Department  string `json:"department" validate:"required"`
	Status      string `json:"status"`
	AssignedTo  string `json:"assignedTo"`
	PostDate    string `json:"postDate" validate:"omitempty,datetime=2006-01-02"`
	Deadline    string `json:"deadline"`
}

// TaskUpdateRequest payload; absent fields are left unchanged.
type TaskUpdateRequest struct {
	Name        *string `json:"taskName" validate:"omitempty,min=1"`
	Description *string `json:"description"`
	Department  *string `json:"department"`
	Status      *string `json:"status"`
	AssignedTo  *string `json:"assignedTo"`
	PostDate    *string `json:"postDate" validate:"omitempty,datetime=2006-01-02"`
	Deadline    *string `json:"deadline"`
}

// TaskStatusRequest payload for PATCH /tasks/:id/status.
type TaskStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// TaskResponse is the public shape of a task.
type TaskResponse struct {
	ID                 string    `json:"id"`
	Name               string    `json:"taskName"`
	Description        string    `json:"description,omitempty"`
	ClientID           string    `json:"clientId,omitempty"`
	ClientName         string    `json:"clientName,omitempty"`
	Department         string    `json:"department"`
	Status             string    `json:"status"`
	AssignedTo         string    `json:"assignedTo,omitempty"`
	AssignedEmployee   string    `json:"assignedEmployee,omitempty"`
	AssignedEmployeeID string    `json:"assignedEmployeeId,omitempty"`
	PostDate           string    `json:"postDate,omitempty"`
	Deadline           string    `json:"deadline,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// NewTaskResponse maps a domain task.
func NewTaskResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:                 t.ID,
		Name:               t.Name,
		Description:        t.Description,
		ClientID:           t.ClientID,
		ClientName:         t.ClientName,
		Department:         string(t.Department),
		Status:             string(t.Status),
		AssignedTo:         t.AssignedTo,
		AssignedEmployee:   t.AssignedEmployee,
		AssignedEmployeeID: t.AssignedEmployeeID,
		PostDate:           t.PostDate,
		Deadline:           t.Deadline,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

// NewTaskResponses maps a slice of tasks.
func NewTaskResponses(tasks []domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, NewTaskResponse(&tasks[i]))
	}
	return out
}
