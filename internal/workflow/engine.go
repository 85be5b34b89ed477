package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/agency-dashboard/internal/domain"
	"github.com/spec-kit/agency-dashboard/internal/persistence"
	"github.com/spec-kit/agency-dashboard/internal/repository"
	"github.com/spec-kit/agency-dashboard/internal/store"
)

var (
	// ErrOperationPending is returned while an earlier transition of the
	// client has not been fully applied.
	ErrOperationPending = errors.New("workflow operation pending for client")
	// ErrWrongStage is returned when the client is not in the stage an
	// action requires.
	ErrWrongStage = errors.New("client is not in the required stage")
)

// TransitionRecorder receives transition outcomes.
type TransitionRecorder interface {
	RecordTransition(event string, err error)
}

// Engine applies transitions with a durable in-flight marker: the marker is
// written first, and the planned batch clears it in the same atomic commit.
// A marker left behind by a failed apply is replayed by Recover.
type Engine struct {
	store      store.Store
	clients    repository.ClientRepository
	tasks      repository.TaskRepository
	operations repository.PendingOperationRepository
	locker     persistence.Locker
	recorder   TransitionRecorder
	logger     *zap.Logger
	maxRetries int
	backoff    time.Duration
	now        func() time.Time
}

// EngineDependencies bundles collaborators for the engine.
type EngineDependencies struct {
	Store      store.Store
	Locker     persistence.Locker
	Recorder   TransitionRecorder
	Logger     *zap.Logger
	MaxRetries int
	Backoff    time.Duration
	Now        func() time.Time
}

// NewEngine constructs the engine.
func NewEngine(deps EngineDependencies) *Engine {
	e := &Engine{
		store:      deps.Store,
		clients:    repository.NewClientRepository(deps.Store),
		tasks:      repository.NewTaskRepository(deps.Store),
		operations: repository.NewPendingOperationRepository(deps.Store),
		locker:     deps.Locker,
		recorder:   deps.Recorder,
		logger:     deps.Logger,
		maxRetries: deps.MaxRetries,
		backoff:    deps.Backoff,
		now:        deps.Now,
	}
	if e.locker == nil {
		e.locker = persistence.NewLocalLocker()
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.maxRetries <= 0 {
		e.maxRetries = 1
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Result describes an applied transition.
type Result struct {
	Client  *domain.Client
	Event   Event
	Outcome Outcome
}

// Transition moves a client through the stage machine.
func (e *Engine) Transition(ctx context.Context, clientID string, event Event) (result *Result, err error) {
	defer func() {
		if e.recorder != nil {
			e.recorder.RecordTransition(string(event), err)
		}
	}()

	client, err := e.clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	unlock, err := e.locker.Lock(ctx, lockKey(client.ID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	// reload under the lock
	client, err = e.clients.GetByID(ctx, client.ID)
	if err != nil {
		return nil, err
	}
	if client.WorkflowPending != "" {
		return nil, fmt.Errorf("%w: %s", ErrOperationPending, client.WorkflowPending)
	}
	tasks, err := e.tasks.ListByClient(ctx, clientRefs(*client)...)
	if err != nil {
		return nil, err
	}

	now := e.now()
	batch, outcome, err := Plan(*client, event, tasks, now)
	if err != nil {
		return nil, err
	}
	if err := e.execute(ctx, *client, string(event), batch, now); err != nil {
		return nil, err
	}

	updated, err := e.clients.GetByID(ctx, client.ID)
	if err != nil {
		return nil, err
	}
	e.logger.Info("client stage changed",
		zap.String("client_id", client.ID),
		zap.String("event", string(event)),
		zap.String("from", string(outcome.From)),
		zap.String("to", string(outcome.To)),
		zap.Int("tasks", len(outcome.TaskIDs)),
	)
	return &Result{Client: updated, Event: event, Outcome: outcome}, nil
}

// AssignTask creates a task for a client in strategy preparation and records
// the client on the strategy path, in one batch.
func (e *Engine) AssignTask(ctx context.Context, clientID string, task domain.Task) (*domain.Task, error) {
	client, err := e.clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	unlock, err := e.locker.Lock(ctx, lockKey(client.ID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	client, err = e.clients.GetByID(ctx, client.ID)
	if err != nil {
		return nil, err
	}
	if CurrentStage(*client) != domain.StageStrategyPreparation {
		return nil, fmt.Errorf("%w: %s", ErrWrongStage, domain.StageStrategyPreparation)
	}

	task.ClientID = client.ClientID
	task.ClientName = client.Name
	task.Status = domain.TaskStatusStrategyPreparation
	repository.PrepareTask(&task)

	now := e.now().UTC()
	batch := store.Batch{{
		Collection: store.CollectionTasks,
		ID:         task.ID,
		Op:         store.OpSet,
		Fields:     repository.EncodeTask(task),
	}}

	strategyFields := map[string]any{
		"clientId":   client.ClientID,
		"clientName": client.Name,
		"source":     string(domain.ClientSourceStrategy),
		"stage":      string(domain.StageStrategyPreparation),
		"updatedAt":  now.Format(time.RFC3339Nano),
	}
	if ref, ok := strategyRecord(*client); ok {
		batch = append(batch, store.Write{
			Collection: ref.Collection,
			ID:         ref.ID,
			Op:         store.OpMerge,
			Fields:     strategyFields,
		})
	} else {
		strategyFields["createdAt"] = now.Format(time.RFC3339Nano)
		batch = append(batch, store.Write{
			Collection: store.CollectionStrategyClients,
			ID:         client.ID,
			Op:         store.OpSet,
			Fields:     strategyFields,
		})
	}

	if err := e.store.Apply(ctx, batch); err != nil {
		return nil, err
	}
	e.logger.Info("task assigned from strategy",
		zap.String("client_id", client.ID),
		zap.String("task_id", task.ID),
		zap.String("department", string(task.Department)),
	)
	return &task, nil
}

// Delete removes every stored record of the client under the client's
// workflow lock. It is refused with ErrOperationPending while a transition
// marker is outstanding.
func (e *Engine) Delete(ctx context.Context, clientID string) (*domain.Client, error) {
	client, err := e.clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	unlock, err := e.locker.Lock(ctx, lockKey(client.ID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	client, err = e.clients.GetByID(ctx, client.ID)
	if err != nil {
		return nil, err
	}
	if client.WorkflowPending != "" {
		return nil, fmt.Errorf("%w: %s", ErrOperationPending, client.WorkflowPending)
	}
	if err := e.store.Apply(context.WithoutCancel(ctx), repository.ClientDeleteWrites(*client)); err != nil {
		return nil, err
	}
	e.logger.Info("client deleted", zap.String("client_id", client.ID), zap.Int("records", len(client.Records)))
	return client, nil
}

// Recover replays markers left by transitions that did not finish. It
// returns the number of operations applied.
func (e *Engine) Recover(ctx context.Context) (int, error) {
	ops, err := e.operations.List(ctx)
	if err != nil {
		return 0, err
	}
	replayed := 0
	for _, op := range ops {
		ok, err := e.replay(ctx, op)
		if err != nil {
			e.logger.Error("replay workflow operation failed",
				zap.String("operation_id", op.ID),
				zap.String("client_id", op.ClientID),
				zap.Error(err),
			)
			continue
		}
		if ok {
			replayed++
		}
	}
	return replayed, nil
}

func (e *Engine) replay(ctx context.Context, op domain.PendingOperation) (bool, error) {
	unlock, err := e.locker.Lock(ctx, lockKey(op.ClientID))
	if err != nil {
		return false, err
	}
	defer unlock()

	// the marker may have been cleared while we waited for the lock
	if _, err := e.store.Get(ctx, store.CollectionPendingOperations, op.ID); err != nil {
		if repository.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	var batch store.Batch
	if err := json.Unmarshal(op.Writes, &batch); err != nil {
		e.recordFailure(ctx, op.ID, op.Attempts+1, err)
		return false, fmt.Errorf("decode operation writes: %w", err)
	}
	if err := e.store.Apply(ctx, batch); err != nil {
		e.recordFailure(ctx, op.ID, op.Attempts+1, err)
		return false, err
	}
	e.logger.Info("workflow operation replayed",
		zap.String("operation_id", op.ID),
		zap.String("kind", op.Kind),
		zap.String("client_id", op.ClientID),
	)
	return true, nil
}

// execute writes the marker, then applies the batch until it lands or the
// retries run out. The apply outlives the caller's context.
func (e *Engine) execute(ctx context.Context, client domain.Client, kind string, batch store.Batch, now time.Time) error {
	opID := uuid.NewString()

	final := make(store.Batch, 0, len(batch)+len(client.Records)+1)
	final = append(final, batch...)
	final = append(final, repository.ClientMergeWrites(client, map[string]any{"workflowPending": nil})...)
	final = append(final, repository.PendingOperationClearWrite(opID))

	writes, err := json.Marshal(final)
	if err != nil {
		return fmt.Errorf("encode operation writes: %w", err)
	}

	marker := store.Batch{repository.PendingOperationWrite(domain.PendingOperation{
		ID:        opID,
		Kind:      kind,
		ClientID:  client.ID,
		Writes:    writes,
		CreatedAt: now,
	})}
	marker = append(marker, repository.ClientMergeWrites(client, map[string]any{"workflowPending": opID})...)
	if err := e.store.Apply(ctx, marker); err != nil {
		return err
	}

	applyCtx := context.WithoutCancel(ctx)
	var lastErr error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		if lastErr = e.store.Apply(applyCtx, final); lastErr == nil {
			return nil
		}
		e.logger.Warn("workflow apply failed",
			zap.String("operation_id", opID),
			zap.Int("attempt", attempt),
			zap.Error(lastErr),
		)
		e.recordFailure(applyCtx, opID, attempt, lastErr)
		if attempt < e.maxRetries && e.backoff > 0 {
			time.Sleep(e.backoff * time.Duration(attempt))
		}
	}
	return fmt.Errorf("apply workflow operation %s: %w", opID, lastErr)
}

func (e *Engine) recordFailure(ctx context.Context, opID string, attempts int, cause error) {
	if err := e.operations.RecordFailure(ctx, opID, attempts, cause); err != nil {
		e.logger.Warn("record workflow failure failed",
			zap.String("operation_id", opID),
			zap.Int("attempt", attempts),
			zap.Error(err),
		)
	}
}

// clientRefs lists every id a task may use to reference the client.
func clientRefs(client domain.Client) []string {
	refs := []string{client.ClientID, client.ID}
	for _, ref := range client.Records {
		refs = append(refs, ref.ID)
	}
	return refs
}

func strategyRecord(client domain.Client) (domain.RecordRef, bool) {
	for _, ref := range client.Records {
		if ref.Collection == store.CollectionStrategyClients {
			return ref, true
		}
	}
	return domain.RecordRef{}, false
}

func lockKey(clientID string) string {
	return "workflow:" + clientID
}
