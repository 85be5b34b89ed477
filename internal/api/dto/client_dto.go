package dto

import (
	"time"

	"github.com/spec-kit/agency-dashboard/internal/domain"
)

// ClientCreateRequest payload.
type ClientCreateRequest struct {
	Name          string `json:"clientName" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	ContactNumber string `json:"contactNumber" validate:"required,len=10,numeric"`
	Status        string `json:"status"`
	AssignedTo    string `json:"assignedToEmployee"`
	Source        string `json:"source" validate:"omitempty,oneof=direct strategy"`
}

// ClientUpdateRequest payload; absent fields are left unchanged.
type ClientUpdateRequest struct {
	Name          *string `json:"clientName" validate:"omitempty,min=1"`
	Email         *string `json:"email" validate:"omitempty,email"`
	ContactNumber *string `json:"contactNumber" validate:"omitempty,len=10,numeric"`
	Status        *string `json:"status"`
	AssignedTo    *string `json:"assignedToEmployee"`
}

// ClientResponse is the merged view of a client.
type ClientResponse struct {
	ID                     string               `json:"id"`
	ClientID               string               `json:"clientId"`
	Name                   string               `json:"clientName"`
	ContactNumber          string               `json:"contactNumber"`
	Email                  string               `json:"email"`
	Status                 string               `json:"status,omitempty"`
	AssignedToEmployee     string               `json:"assignedToEmployee,omitempty"`
	AssignedToEmployeeName string               `json:"assignedToEmployeeName,omitempty"`
	AssignedEmployeeID     string               `json:"assignedEmployeeId,omitempty"`
	Stage                  string               `json:"stage"`
	StageCompletions       map[string]time.Time `json:"stageCompletions"`
	CompletedAt            *time.Time           `json:"completedAt,omitempty"`
	RejectedAt             *time.Time           `json:"rejectedAt,omitempty"`
	Source                 string               `json:"source"`
	WorkflowPending        bool                 `json:"workflowPending,omitempty"`
	CreatedAt              time.Time            `json:"createdAt"`
	UpdatedAt              time.Time            `json:"updatedAt"`
}

// NewClientResponse maps a domain client.
func NewClientResponse(c *domain.Client) ClientResponse {
	completions := make(map[string]time.Time, len(c.StageCompletions))
	for stage, at := range c.StageCompletions {
		completions[string(stage)] = at
	}
	return ClientResponse{
		ID:                     c.ID,
		ClientID:               c.ClientID,
		Name:                   c.Name,
		ContactNumber:          c.ContactNumber,
		Email:                  c.Email,
		Status:                 c.Status,
		AssignedToEmployee:     c.AssignedToEmployee,
		AssignedToEmployeeName: c.AssignedToEmployeeName,
		AssignedEmployeeID:     c.AssignedEmployeeID,
		Stage:                  string(c.Stage),
		StageCompletions:       completions,
		CompletedAt:            c.CompletedAt,
		RejectedAt:             c.RejectedAt,
		Source:                 string(c.Source),
		WorkflowPending:        c.WorkflowPending != "",
		CreatedAt:              c.CreatedAt,
		UpdatedAt:              c.UpdatedAt,
	}
}

// NewClientResponses maps a slice of clients.
func NewClientResponses(clients []domain.Client) []ClientResponse {
	out := make([]ClientResponse, 0, len(clients))
	for i := range clients {
		out = append(out, NewClientResponse(&clients[i]))
	}
	return out
}

// TransitionResponse reports an applied workflow event.
type TransitionResponse struct {
	Client  ClientResponse `json:"client"`
	From    string         `json:"from"`
	To      string         `json:"to"`
	TaskIDs []string       `json:"taskIds,omitempty"`
}
