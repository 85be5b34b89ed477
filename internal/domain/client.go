package domain

import "time"

// ClientSource distinguishes how a client record was created.
type ClientSource string

const (
	ClientSourceDirect   ClientSource = "direct"
	ClientSourceStrategy ClientSource = "strategy"
)

// RecordRef locates one stored record backing a client.
type RecordRef struct {
	Collection string
	ID         string
}

// Client is a customer account moving through the workflow stages.
type Client struct {
	ID                     string
	ClientID               string
	Name                   string
	ContactNumber          string
	Email                  string
	Status                 string
	AssignedToEmployee     string
	AssignedToEmployeeName string
	AssignedEmployeeID     string
	Stage                  Stage
	StageCompletions       map[Stage]time.Time
	CompletedAt            *time.Time
	RejectedAt             *time.Time
	Source                 ClientSource
	WorkflowPending        string
	CreatedAt              time.Time
	UpdatedAt              time.Time
	// Records lists the stored documents merged into this client, primary first.
	Records []RecordRef
}

// AssignmentRefs returns the loose assignment references stored on the client.
func (c Client) AssignmentRefs() []string {
	return nonEmpty(c.AssignedEmployeeID, c.AssignedToEmployee, c.AssignedToEmployeeName)
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
