// Package workflow implements the client stage machine and applies its
// transitions as single atomic store batches.
package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/agency-dashboard/internal/domain"
	"github.com/spec-kit/agency-dashboard/internal/repository"
	"github.com/spec-kit/agency-dashboard/internal/store"
)

// Event drives a stage transition.
type Event string

const (
	EventComplete   Event = "complete"
	EventApprove    Event = "approve"
	EventApproveAll Event = "approve-all"
	EventReject     Event = "reject"
)

// ParseEvent validates a raw event name.
func ParseEvent(raw string) (Event, bool) {
	e := Event(raw)
	switch e {
	case EventComplete, EventApprove, EventApproveAll, EventReject:
		return e, true
	}
	return "", false
}

// ErrInvalidTransition is returned for a (stage, event) pair outside the table.
var ErrInvalidTransition = errors.New("invalid workflow transition")

type transitionKey struct {
	from  domain.Stage
	event Event
}

var transitions = map[transitionKey]domain.Stage{
	{domain.StageInformationGathering, EventComplete}: domain.StageStrategyPreparation,
	{domain.StageStrategyPreparation, EventComplete}:  domain.StageInternalApproval,
	{domain.StageInternalApproval, EventApprove}:      domain.StageClientApproval,
	{domain.StageClientApproval, EventApproveAll}:     domain.StageInformationGathering,
	{domain.StageClientApproval, EventReject}:         domain.StageInformationGathering,
}

// Next returns the stage reached from `from` on event.
func Next(from domain.Stage, event Event) (domain.Stage, error) {
	to, ok := transitions[transitionKey{from: from, event: event}]
	if !ok {
		return "", fmt.Errorf("%w: %s on %s", ErrInvalidTransition, event, from)
	}
	return to, nil
}

// CurrentStage returns the effective stage of a client. A recognised stage
// field is authoritative; otherwise the stage after the furthest completed
// one is used.
func CurrentStage(c domain.Client) domain.Stage {
	if c.Stage.Valid() {
		return c.Stage
	}
	highest := -1
	for stage := range c.StageCompletions {
		if idx := stage.Index(); idx > highest {
			highest = idx
		}
	}
	next := highest + 1
	if next >= len(domain.Stages) {
		next = len(domain.Stages) - 1
	}
	return domain.Stages[next]
}

// Outcome summarises a planned transition.
type Outcome struct {
	From    domain.Stage
	To      domain.Stage
	TaskIDs []string
}

// Plan computes every write of a transition: the client stage, its timestamps
// and, on approve-all, the status of each live task of the client. Values are
// absolute so the batch can be replayed.
func Plan(client domain.Client, event Event, tasks []domain.Task, now time.Time) (store.Batch, Outcome, error) {
	from := CurrentStage(client)
	to, err := Next(from, event)
	if err != nil {
		return nil, Outcome{}, err
	}
	now = now.UTC()
	outcome := Outcome{From: from, To: to}

	completions := make(map[domain.Stage]time.Time, len(client.StageCompletions)+1)
	for stage, at := range client.StageCompletions {
		completions[stage] = at
	}

	fields := map[string]any{
		"stage":     string(to),
		"updatedAt": now.Format(time.RFC3339Nano),
	}

	var taskWrites store.Batch
	switch event {
	case EventComplete, EventApprove:
		completions[from] = now
	case EventApproveAll:
		completions = map[domain.Stage]time.Time{}
		fields["completedAt"] = now.Format(time.RFC3339Nano)
		for _, task := range tasks {
			if task.Deleted || !BelongsTo(task, client) {
				continue
			}
			outcome.TaskIDs = append(outcome.TaskIDs, task.ID)
			taskWrites = append(taskWrites, store.Write{
				Collection: store.CollectionTasks,
				ID:         task.ID,
				Op:         store.OpMerge,
				Fields: map[string]any{
					"status":    string(domain.TaskStatusAssignedToDepartment),
					"updatedAt": now.Format(time.RFC3339Nano),
				},
				IfExists: true,
			})
		}
	case EventReject:
		completions = map[domain.Stage]time.Time{}
		fields["rejectedAt"] = now.Format(time.RFC3339Nano)
	}
	fields["stageCompletions"] = repository.EncodeStageCompletions(completions)

	batch := repository.ClientMergeWrites(client, fields)
	batch = append(batch, taskWrites...)
	return batch, outcome, nil
}

// BelongsTo reports whether a task references the client by display id or
// by one of its record ids.
func BelongsTo(task domain.Task, client domain.Client) bool {
	if task.ClientID == "" {
		return false
	}
	if task.ClientID == client.ClientID || task.ClientID == client.ID {
		return true
	}
	for _, ref := range client.Records {
		if task.ClientID == ref.ID {
			return true
		}
	}
	return false
}
