package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/agency-dashboard/internal/domain"
	"github.com/spec-kit/agency-dashboard/internal/store"
)

// AuthAccountRepository persists identity provider accounts.
type AuthAccountRepository interface {
	Create(ctx context.Context, account *domain.AuthAccount) error
	Update(ctx context.Context, account *domain.AuthAccount) error
	GetByEmail(ctx context.Context, email string) (*domain.AuthAccount, error)
}

type authAccountRepository struct {
	store store.Store
}

// NewAuthAccountRepository instantiates repository.
func NewAuthAccountRepository(s store.Store) AuthAccountRepository {
	return &authAccountRepository{store: s}
}

func (r *authAccountRepository) Create(ctx context.Context, account *domain.AuthAccount) error {
	if account.UID == "" {
		account.UID = uuid.NewString()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	return store.Set(ctx, r.store, store.CollectionAuthAccounts, account.UID, encodeAuthAccount(*account))
}

func (r *authAccountRepository) Update(ctx context.Context, account *domain.AuthAccount) error {
	return store.Merge(ctx, r.store, store.CollectionAuthAccounts, account.UID, encodeAuthAccount(*account))
}

func (r *authAccountRepository) GetByEmail(ctx context.Context, email string) (*domain.AuthAccount, error) {
	docs, err := r.store.List(ctx, store.CollectionAuthAccounts)
	if err != nil {
		return nil, err
	}
	want := normalizeEmail(email)
	for _, doc := range docs {
		if str(doc.Fields, "email") == want {
			return &domain.AuthAccount{
				UID:          doc.ID,
				Email:        want,
				PasswordHash: str(doc.Fields, "passwordHash"),
				CreatedAt:    timestamp(doc.Fields, "createdAt"),
			}, nil
		}
	}
	return nil, ErrNotFound
}

func encodeAuthAccount(a domain.AuthAccount) map[string]any {
	return map[string]any{
		"email":        normalizeEmail(a.Email),
		"passwordHash": a.PasswordHash,
		"createdAt":    encodeTime(a.CreatedAt),
	}
}

// DeletedAuthAccountRepository lists identities awaiting manual removal.
type DeletedAuthAccountRepository interface {
	List(ctx context.Context) ([]domain.DeletedAuthAccount, error)
}

type deletedAuthAccountRepository struct {
	store store.Store
}

// NewDeletedAuthAccountRepository instantiates repository.
func NewDeletedAuthAccountRepository(s store.Store) DeletedAuthAccountRepository {
	return &deletedAuthAccountRepository{store: s}
}

func (r *deletedAuthAccountRepository) List(ctx context.Context) ([]domain.DeletedAuthAccount, error) {
	docs, err := r.store.List(ctx, store.CollectionDeletedAuthAccounts)
	if err != nil {
		return nil, err
	}
	result := make([]domain.DeletedAuthAccount, 0, len(docs))
	for _, doc := range docs {
		f := doc.Fields
		result = append(result, domain.DeletedAuthAccount{
			UID:          doc.ID,
			Email:        str(f, "email"),
			EmployeeID:   str(f, "employeeId"),
			EmployeeName: str(f, "employeeName"),
			DeletedAt:    timestamp(f, "deletedAt"),
			DeletedBy:    str(f, "deletedBy"),
		})
	}
	return result, nil
}

// DeletedAuthAccountWrite flags an external identity for manual cleanup.
func DeletedAuthAccountWrite(a domain.DeletedAuthAccount) store.Write {
	return store.Write{
		Collection: store.CollectionDeletedAuthAccounts,
		ID:         a.UID,
		Op:         store.OpSet,
		Fields: map[string]any{
			"email":        a.Email,
			"employeeId":   a.EmployeeID,
			"employeeName": a.EmployeeName,
			"deletedAt":    encodeTime(a.DeletedAt),
			"deletedBy":    a.DeletedBy,
		},
	}
}
