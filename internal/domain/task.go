package domain

import "time"

// TaskStatus enumerates task lifecycle states.
type TaskStatus string

const (
	TaskStatusPending              TaskStatus = "pending"
	TaskStatusInProgress           TaskStatus = "in-progress"
	TaskStatusStrategyPreparation  TaskStatus = "strategy-preparation"
	TaskStatusAssignedToDepartment TaskStatus = "assigned-to-department"
	TaskStatusPendingProduction    TaskStatus = "pending-production"
	TaskStatusCompleted            TaskStatus = "completed"
	TaskStatusPosted               TaskStatus = "posted"
	TaskStatusRevisionRequired     TaskStatus = "revision-required"
	TaskStatusApproved             TaskStatus = "approved"
)

// TaskStatuses lists every known task status.
var TaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusInProgress,
	TaskStatusStrategyPreparation,
	TaskStatusAssignedToDepartment,
	TaskStatusPendingProduction,
	TaskStatusCompleted,
	TaskStatusPosted,
	TaskStatusRevisionRequired,
	TaskStatusApproved,
}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	for _, known := range TaskStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Done reports whether s belongs to the completed set. Completed, posted and
// approved are all terminal for reporting purposes.
func (s TaskStatus) Done() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusPosted, TaskStatusApproved:
		return true
	}
	return false
}

// Task is a unit of departmental work for a client.
type Task struct {
	ID                 string
	Name               string
	Description        string
	ClientID           string
	ClientName         string
	Department         Department
	Status             TaskStatus
	AssignedTo         string
	AssignedEmployee   string
	AssignedEmployeeID string
	PostDate           string
	Deadline           string
	Deleted            bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AssignmentRefs returns the loose assignment references stored on the task.
func (t Task) AssignmentRefs() []string {
	return nonEmpty(t.AssignedEmployeeID, t.AssignedTo, t.AssignedEmployee)
}
