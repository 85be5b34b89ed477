package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/spec-kit/agency-dashboard/internal/domain"
	"github.com/spec-kit/agency-dashboard/internal/repository"
)

var (
	// ErrInvalidCredentials is returned when email and password do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountExists is returned when an identity already uses the email.
	ErrAccountExists = errors.New("account already exists")
)

// IdentityProvider provisions and verifies external identities. Removing an
// identity is deliberately absent: it needs privileges the dashboard lacks.
type IdentityProvider interface {
	CreateAccount(ctx context.Context, email, password string) (uid string, err error)
	Authenticate(ctx context.Context, email, password string) (uid string, err error)
	ChangePassword(ctx context.Context, email, current, next string) error
}

// LocalProvider keeps bcrypt hashed credentials in the authAccounts
// collection. Account creation is serialized so one email maps to at most
// one account.
type LocalProvider struct {
	accounts   repository.AuthAccountRepository
	bcryptCost int
	createMu   sync.Mutex
}

// NewLocalProvider constructs the provider.
func NewLocalProvider(accounts repository.AuthAccountRepository, bcryptCost int) *LocalProvider {
	return &LocalProvider{accounts: accounts, bcryptCost: bcryptCost}
}

// CreateAccount registers a new identity and returns its UID.
func (p *LocalProvider) CreateAccount(ctx context.Context, email, password string) (string, error) {
	hash, err := HashPassword(password, p.bcryptCost)
	if err != nil {
		return "", err
	}

	p.createMu.Lock()
	defer p.createMu.Unlock()
	if _, err := p.accounts.GetByEmail(ctx, email); err == nil {
		return "", ErrAccountExists
	} else if !repository.IsNotFound(err) {
		return "", err
	}
	account := &domain.AuthAccount{Email: email, PasswordHash: hash}
	if err := p.accounts.Create(ctx, account); err != nil {
		return "", err
	}
	return account.UID, nil
}

// Authenticate verifies credentials and returns the identity UID.
func (p *LocalProvider) Authenticate(ctx context.Context, email, password string) (string, error) {
	account, err := p.accounts.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if err := ComparePassword(account.PasswordHash, password); err != nil {
		return "", ErrInvalidCredentials
	}
	return account.UID, nil
}

// ChangePassword replaces the password after verifying the current one.
func (p *LocalProvider) ChangePassword(ctx context.Context, email, current, next string) error {
	account, err := p.accounts.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrInvalidCredentials
		}
		return err
	}
	if err := ComparePassword(account.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := HashPassword(next, p.bcryptCost)
	if err != nil {
		return err
	}
	account.PasswordHash = hash
	return p.accounts.Update(ctx, account)
}
