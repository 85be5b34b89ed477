package repository

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/agency-dashboard/internal/domain"
	"github.com/spec-kit/agency-dashboard/internal/store"
)

func TestMergeClientsOverlaysStrategyRecords(t *testing.T) {
	primary := []store.Document{
		{ID: "p1", Fields: map[string]any{"clientId": "1", "clientName": "Acme", "email": "a@acme.io", "stage": ""}},
		{ID: "p2", Fields: map[string]any{"clientId": "2", "clientName": "Globex"}},
	}
	secondary := []store.Document{
		{ID: "s1", Fields: map[string]any{"clientId": "1", "stage": "internal-approval", "email": ""}},
		{ID: "s3", Fields: map[string]any{"clientId": "3", "clientName": "Initech"}},
	}

	clients := MergeClients(primary, secondary)
	if len(clients) != 3 {
		t.Fatalf("expected 3 merged clients, got %d", len(clients))
	}

	acme := clients[0]
	if acme.ID != "p1" || acme.Stage != domain.StageInternalApproval {
		t.Errorf("strategy stage not overlaid: %+v", acme)
	}
	if acme.Email != "a@acme.io" {
		t.Errorf("empty strategy field must not overwrite primary, got %q", acme.Email)
	}
	if len(acme.Records) != 2 || acme.Records[1].Collection != store.CollectionStrategyClients {
		t.Errorf("expected both records tracked, got %+v", acme.Records)
	}

	initech := clients[2]
	if initech.Source != domain.ClientSourceStrategy {
		t.Errorf("strategy-only client should have strategy source, got %q", initech.Source)
	}
}

func TestClientRepositoryUpdateWritesEveryRecord(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	_ = store.Set(ctx, s, store.CollectionClients, "p1", map[string]any{"clientId": "7", "clientName": "Acme"})
	_ = store.Set(ctx, s, store.CollectionStrategyClients, "s1", map[string]any{"clientId": "7", "stage": "strategy-preparation"})

	repo := NewClientRepository(s)
	client, err := repo.GetByClientID(ctx, "7")
	if err != nil {
		t.Fatalf("GetByClientID failed: %v", err)
	}
	client.Stage = domain.StageInternalApproval
	if err := repo.Update(ctx, client); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	for _, ref := range []domain.RecordRef{
		{Collection: store.CollectionClients, ID: "p1"},
		{Collection: store.CollectionStrategyClients, ID: "s1"},
	} {
		doc, _ := s.Get(ctx, ref.Collection, ref.ID)
		if doc.Fields["stage"] != string(domain.StageInternalApproval) {
			t.Errorf("%s/%s not updated: %v", ref.Collection, ref.ID, doc.Fields["stage"])
		}
	}

	byDocID, err := repo.GetByID(ctx, "s1")
	if err != nil || byDocID.ClientID != "7" {
		t.Errorf("lookup by secondary id failed: %v %+v", err, byDocID)
	}
}

func TestClientCreateDefaults(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	repo := NewClientRepository(s)

	client := &domain.Client{ClientID: "1", Name: "Acme"}
	if err := repo.Create(ctx, client); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	got, err := repo.GetByID(ctx, client.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Stage != domain.StageInformationGathering {
		t.Errorf("expected default stage, got %q", got.Stage)
	}
	if got.Source != domain.ClientSourceDirect {
		t.Errorf("expected direct source, got %q", got.Source)
	}

	strategy := &domain.Client{ClientID: "2", Name: "Globex", Source: domain.ClientSourceStrategy}
	_ = repo.Create(ctx, strategy)
	if _, err := s.Get(ctx, store.CollectionStrategyClients, strategy.ID); err != nil {
		t.Errorf("strategy client should live in strategyClients: %v", err)
	}
}

func TestDecodeTaskIsLenient(t *testing.T) {
	doc := store.Document{ID: "t1", Fields: map[string]any{
		"taskName":  "Reel",
		"postDate":  "2025-06-14T09:00:00Z",
		"deleted":   "true",
		"clientId":  float64(12),
		"createdAt": float64(1718352000000),
	}}
	task := DecodeTask(doc)
	if task.PostDate != "2025-06-14" {
		t.Errorf("expected date-only postDate, got %q", task.PostDate)
	}
	if !task.Deleted {
		t.Error("string boolean not decoded")
	}
	if task.ClientID != "12" {
		t.Errorf("numeric clientId not decoded, got %q", task.ClientID)
	}
	if task.CreatedAt.IsZero() {
		t.Error("epoch millis not decoded")
	}
}

func TestDecodeEmployeeDefaults(t *testing.T) {
	e := DecodeEmployee(store.Document{ID: "e1", Fields: map[string]any{"employeeName": "Jane", "role": "boss"}})
	if e.Role != domain.RoleEmployee || e.Status != domain.EmployeeStatusActive {
		t.Errorf("unexpected defaults %+v", e)
	}
}

func TestEmployeeRepositoryListAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewEmployeeRepository(store.NewMemoryStore())
	_ = repo.Create(ctx, &domain.Employee{Name: "Jane", Email: "Jane@x.io", Department: domain.DepartmentVideo, Role: domain.RoleEmployee})
	_ = repo.Create(ctx, &domain.Employee{Name: "Raj", Email: "raj@x.io", Department: domain.DepartmentGraphics, Role: domain.RoleHead, Status: domain.EmployeeStatusInactive})

	list, err := repo.List(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("expected both employees, got %v %+v", err, list)
	}

	found, err := repo.GetByEmail(ctx, "jane@X.IO")
	if err != nil || found.Name != "Jane" {
		t.Errorf("case-insensitive email lookup failed: %v", err)
	}
	if _, err := repo.GetByEmail(ctx, "nobody@x.io"); !IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestPendingOperationRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	op := domain.PendingOperation{ID: "op1", Kind: "approve-all", ClientID: "c1", Writes: []byte(`[{"op":"set"}]`), CreatedAt: created}
	if err := s.Apply(ctx, store.Batch{PendingOperationWrite(op)}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	repo := NewPendingOperationRepository(s)
	if err := repo.RecordFailure(ctx, "op1", 2, context.DeadlineExceeded); err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}
	ops, err := repo.List(ctx)
	if err != nil || len(ops) != 1 {
		t.Fatalf("List failed: %v %+v", err, ops)
	}
	got := ops[0]
	if string(got.Writes) != `[{"op":"set"}]` || got.Attempts != 2 || !got.CreatedAt.Equal(created) {
		t.Errorf("unexpected marker %+v", got)
	}
}

func TestTaskListByClientMatchesAnyRef(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(store.NewMemoryStore())
	_ = repo.Create(ctx, &domain.Task{ID: "t1", Name: "Reel", ClientID: "7"})
	_ = repo.Create(ctx, &domain.Task{ID: "t2", Name: "Post", ClientID: "doc-7"})
	_ = repo.Create(ctx, &domain.Task{ID: "t3", Name: "Gone", ClientID: "7", Deleted: true})
	_ = repo.Create(ctx, &domain.Task{ID: "t4", Name: "Other", ClientID: "8"})
	_ = repo.Create(ctx, &domain.Task{ID: "t5", Name: "Loose"})

	tests := []struct {
		name string
		refs []string
		want []string
	}{
		{name: "display id and record id", refs: []string{"7", "doc-7"}, want: []string{"t1", "t2"}},
		{name: "blank refs match nothing", refs: []string{"", ""}, want: nil},
		{name: "no refs", refs: nil, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := repo.ListByClient(ctx, tt.refs...)
			if err != nil {
				t.Fatalf("ListByClient failed: %v", err)
			}
			if len(tasks) != len(tt.want) {
				t.Fatalf("got %d tasks, want %v", len(tasks), tt.want)
			}
			for i, task := range tasks {
				if task.ID != tt.want[i] {
					t.Errorf("task %d: got %s, want %s", i, task.ID, tt.want[i])
				}
			}
		})
	}
}
