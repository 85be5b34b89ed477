package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/agency-dashboard/internal/domain"
	"github.com/spec-kit/agency-dashboard/internal/store"
)

// TaskRepository encapsulates task persistence.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	Update(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, includeDeleted bool) ([]domain.Task, error)
	ListByClient(ctx context.Context, clientRefs ...string) ([]domain.Task, error)
}

type taskRepository struct {
	store store.Store
}

// NewTaskRepository instantiates repository.
func NewTaskRepository(s store.Store) TaskRepository {
	return &taskRepository{store: s}
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	PrepareTask(task)
	return store.Set(ctx, r.store, store.CollectionTasks, task.ID, EncodeTask(*task))
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	task.UpdatedAt = time.Now().UTC()
	return store.Merge(ctx, r.store, store.CollectionTasks, task.ID, EncodeTask(*task))
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	doc, err := r.store.Get(ctx, store.CollectionTasks, id)
	if err != nil {
		return nil, err
	}
	task := DecodeTask(doc)
	return &task, nil
}

func (r *taskRepository) List(ctx context.Context, includeDeleted bool) ([]domain.Task, error) {
	docs, err := r.store.List(ctx, store.CollectionTasks)
	if err != nil {
		return nil, err
	}
	result := make([]domain.Task, 0, len(docs))
	for _, doc := range docs {
		task := DecodeTask(doc)
		if task.Deleted && !includeDeleted {
			continue
		}
		result = append(result, task)
	}
	return result, nil
}

// ListByClient returns the non-deleted tasks whose clientId equals one of
// clientRefs. Blank refs never match.
func (r *taskRepository) ListByClient(ctx context.Context, clientRefs ...string) ([]domain.Task, error) {
	tasks, err := r.List(ctx, false)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(clientRefs))
	for _, ref := range clientRefs {
		if ref != "" {
			wanted[ref] = true
		}
	}
	result := tasks[:0]
	for _, task := range tasks {
		if wanted[task.ClientID] {
			result = append(result, task)
		}
	}
	return result, nil
}

// PrepareTask fills identity and timestamps for a new task.
func PrepareTask(task *domain.Task) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = domain.TaskStatusPending
	}
}

// EncodeTask maps a task to document fields.
func EncodeTask(t domain.Task) map[string]any {
	return map[string]any{
		"taskName":           t.Name,
		"description":        t.Description,
		"clientId":           t.ClientID,
		"clientName":         t.ClientName,
		"department":         string(t.Department),
		"status":             string(t.Status),
		"assignedTo":         t.AssignedTo,
		"assignedEmployee":   t.AssignedEmployee,
		"assignedEmployeeId": t.AssignedEmployeeID,
		"postDate":           t.PostDate,
		"deadline":           t.Deadline,
		"deleted":            t.Deleted,
		"createdAt":          encodeTime(t.CreatedAt),
		"updatedAt":          encodeTime(t.UpdatedAt),
	}
}

// DecodeTask maps document fields to a task. A postDate stored as a full
// timestamp is reduced to its date.
func DecodeTask(doc store.Document) domain.Task {
	f := doc.Fields
	postDate := strings.TrimSpace(str(f, "postDate"))
	if len(postDate) > len("2006-01-02") && postDate[4] == '-' {
		postDate = postDate[:len("2006-01-02")]
	}
	return domain.Task{
		ID:                 doc.ID,
		Name:               str(f, "taskName"),
		Description:        str(f, "description"),
		ClientID:           str(f, "clientId"),
		ClientName:         str(f, "clientName"),
		Department:         domain.Department(str(f, "department")),
		Status:             domain.TaskStatus(str(f, "status")),
		AssignedTo:         str(f, "assignedTo"),
		AssignedEmployee:   str(f, "assignedEmployee"),
		AssignedEmployeeID: str(f, "assignedEmployeeId"),
		PostDate:           postDate,
		Deadline:           str(f, "deadline"),
		Deleted:            boolean(f, "deleted"),
		CreatedAt:          timestamp(f, "createdAt"),
		UpdatedAt:          timestamp(f, "updatedAt"),
	}
}
