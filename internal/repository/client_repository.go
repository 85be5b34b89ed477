package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/agency-dashboard/internal/domain"
	"github.com/spec-kit/agency-dashboard/internal/store"
)

// ClientRepository reads the merged client view and writes client records.
type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) error
	Update(ctx context.Context, client *domain.Client) error
	GetByID(ctx context.Context, id string) (*domain.Client, error)
	GetByClientID(ctx context.Context, clientID string) (*domain.Client, error)
	List(ctx context.Context) ([]domain.Client, error)
}

type clientRepository struct {
	store store.Store
}

// NewClientRepository instantiates repository.
func NewClientRepository(s store.Store) ClientRepository {
	return &clientRepository{store: s}
}

func (r *clientRepository) Create(ctx context.Context, client *domain.Client) error {
	PrepareClient(client)
	collection := CollectionForSource(client.Source)
	client.Records = []domain.RecordRef{{Collection: collection, ID: client.ID}}
	return store.Set(ctx, r.store, collection, client.ID, EncodeClient(*client))
}

func (r *clientRepository) Update(ctx context.Context, client *domain.Client) error {
	client.UpdatedAt = time.Now().UTC()
	return r.store.Apply(ctx, ClientMergeWrites(*client, EncodeClient(*client)))
}

func (r *clientRepository) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	clients, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range clients {
		if clients[i].ID == id {
			return &clients[i], nil
		}
		for _, ref := range clients[i].Records {
			if ref.ID == id {
				return &clients[i], nil
			}
		}
	}
	return nil, ErrNotFound
}

func (r *clientRepository) GetByClientID(ctx context.Context, clientID string) (*domain.Client, error) {
	clients, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range clients {
		if clients[i].ClientID == clientID {
			return &clients[i], nil
		}
	}
	return nil, ErrNotFound
}

// List returns the primary clients with strategy records overlaid by clientId.
// Strategy records without a primary counterpart are appended.
func (r *clientRepository) List(ctx context.Context) ([]domain.Client, error) {
	primary, err := r.store.List(ctx, store.CollectionClients)
	if err != nil {
		return nil, err
	}
	secondary, err := r.store.List(ctx, store.CollectionStrategyClients)
	if err != nil {
		return nil, err
	}
	return MergeClients(primary, secondary), nil
}

// MergeClients merges the two client paths into one view keyed by clientId.
func MergeClients(primary, secondary []store.Document) []domain.Client {
	type entry struct {
		fields map[string]any
		refs   []domain.RecordRef
		id     string
	}
	entries := make([]*entry, 0, len(primary)+len(secondary))
	byClientID := make(map[string]*entry, len(primary))

	for _, doc := range primary {
		e := &entry{
			fields: copyFields(doc.Fields),
			refs:   []domain.RecordRef{{Collection: store.CollectionClients, ID: doc.ID}},
			id:     doc.ID,
		}
		entries = append(entries, e)
		if cid := str(doc.Fields, "clientId"); cid != "" {
			if _, exists := byClientID[cid]; !exists {
				byClientID[cid] = e
			}
		}
	}

	for _, doc := range secondary {
		ref := domain.RecordRef{Collection: store.CollectionStrategyClients, ID: doc.ID}
		cid := str(doc.Fields, "clientId")
		if e, ok := byClientID[cid]; ok && cid != "" {
			for k, v := range doc.Fields {
				if isEmptyValue(v) {
					continue
				}
				e.fields[k] = v
			}
			e.refs = append(e.refs, ref)
			continue
		}
		fields := copyFields(doc.Fields)
		if str(fields, "source") == "" {
			fields["source"] = string(domain.ClientSourceStrategy)
		}
		e := &entry{fields: fields, refs: []domain.RecordRef{ref}, id: doc.ID}
		entries = append(entries, e)
		if cid != "" {
			byClientID[cid] = e
		}
	}

	result := make([]domain.Client, 0, len(entries))
	for _, e := range entries {
		client := DecodeClient(store.Document{ID: e.id, Fields: e.fields})
		client.Records = e.refs
		result = append(result, client)
	}
	return result
}

// ClientMergeWrites builds one merge per stored record of the client.
func ClientMergeWrites(client domain.Client, fields map[string]any) store.Batch {
	refs := client.Records
	if len(refs) == 0 {
		refs = []domain.RecordRef{{Collection: CollectionForSource(client.Source), ID: client.ID}}
	}
	batch := make(store.Batch, 0, len(refs))
	for _, ref := range refs {
		batch = append(batch, store.Write{
			Collection: ref.Collection,
			ID:         ref.ID,
			Op:         store.OpMerge,
			Fields:     copyFields(fields),
			IfExists:   len(refs) > 1,
		})
	}
	return batch
}

// ClientDeleteWrites removes every stored record of the client.
func ClientDeleteWrites(client domain.Client) store.Batch {
	batch := make(store.Batch, 0, len(client.Records))
	for _, ref := range client.Records {
		batch = append(batch, store.Write{Collection: ref.Collection, ID: ref.ID, Op: store.OpDelete, IfExists: true})
	}
	return batch
}

// CollectionForSource picks the storage path for a client source.
func CollectionForSource(source domain.ClientSource) string {
	if source == domain.ClientSourceStrategy {
		return store.CollectionStrategyClients
	}
	return store.CollectionClients
}

// PrepareClient fills identity, defaults and timestamps for a new client.
func PrepareClient(client *domain.Client) {
	if client.ID == "" {
		client.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if client.CreatedAt.IsZero() {
		client.CreatedAt = now
	}
	client.UpdatedAt = now
	if !client.Stage.Valid() {
		client.Stage = domain.StageInformationGathering
	}
	if client.StageCompletions == nil {
		client.StageCompletions = map[domain.Stage]time.Time{}
	}
	if client.Source == "" {
		client.Source = domain.ClientSourceDirect
	}
	if client.Status == "" {
		client.Status = "active"
	}
}

// EncodeClient maps a client to document fields.
func EncodeClient(c domain.Client) map[string]any {
	return map[string]any{
		"clientId":               c.ClientID,
		"clientName":             c.Name,
		"contactNumber":          c.ContactNumber,
		"email":                  c.Email,
		"status":                 c.Status,
		"assignedToEmployee":     c.AssignedToEmployee,
		"assignedToEmployeeName": c.AssignedToEmployeeName,
		"assignedEmployeeId":     c.AssignedEmployeeID,
		"stage":                  string(c.Stage),
		"stageCompletions":       EncodeStageCompletions(c.StageCompletions),
		"completedAt":            encodeOptionalTime(c.CompletedAt),
		"rejectedAt":             encodeOptionalTime(c.RejectedAt),
		"source":                 string(c.Source),
		"createdAt":              encodeTime(c.CreatedAt),
		"updatedAt":              encodeTime(c.UpdatedAt),
	}
}

// EncodeStageCompletions maps completion timestamps to document values.
func EncodeStageCompletions(completions map[domain.Stage]time.Time) map[string]any {
	out := make(map[string]any, len(completions))
	for stage, at := range completions {
		out[string(stage)] = encodeTime(at)
	}
	return out
}

// DecodeClient maps document fields to a client. The stage field is kept as
// stored; use workflow.CurrentStage to derive the effective stage.
func DecodeClient(doc store.Document) domain.Client {
	f := doc.Fields
	completions := map[domain.Stage]time.Time{}
	if raw, ok := f["stageCompletions"].(map[string]any); ok {
		for k, v := range raw {
			stage := domain.Stage(k)
			if !stage.Valid() {
				continue
			}
			if at, ok := parseTime(v); ok {
				completions[stage] = at
			}
		}
	}
	source := domain.ClientSource(str(f, "source"))
	if source != domain.ClientSourceStrategy {
		source = domain.ClientSourceDirect
	}
	return domain.Client{
		ID:                     doc.ID,
		ClientID:               str(f, "clientId"),
		Name:                   str(f, "clientName"),
		ContactNumber:          str(f, "contactNumber"),
		Email:                  str(f, "email"),
		Status:                 str(f, "status"),
		AssignedToEmployee:     str(f, "assignedToEmployee"),
		AssignedToEmployeeName: str(f, "assignedToEmployeeName"),
		AssignedEmployeeID:     str(f, "assignedEmployeeId"),
		Stage:                  domain.Stage(str(f, "stage")),
		StageCompletions:       completions,
		CompletedAt:            optionalTime(f, "completedAt"),
		RejectedAt:             optionalTime(f, "rejectedAt"),
		Source:                 source,
		WorkflowPending:        str(f, "workflowPending"),
		CreatedAt:              timestamp(f, "createdAt"),
		UpdatedAt:              timestamp(f, "updatedAt"),
	}
}

func copyFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func isEmptyValue(v any) bool {
	switch typed := v.(type) {
	case nil:
		return true
	case string:
		return typed == ""
	case map[string]any:
		return len(typed) == 0
	}
	return false
}
