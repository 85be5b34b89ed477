package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/agency-dashboard/internal/domain"
	"github.com/spec-kit/agency-dashboard/internal/repository"
	"github.com/spec-kit/agency-dashboard/internal/store"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	session, err := tm.GenerateToken("e1", domain.RoleHead)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	claims, err := tm.ParseToken(session.Token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if claims.EmployeeID != "e1" || claims.Role != domain.RoleHead {
		t.Errorf("unexpected claims %+v", claims)
	}
	if _, err := NewTokenManager("other", 5).ParseToken(session.Token); err == nil {
		t.Error("token signed with another secret must be rejected")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	session, err := tm.GenerateToken("e1", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := tm.ParseToken(session.Token); err == nil {
		t.Error("expired token accepted")
	}
}

func TestLocalProvider(t *testing.T) {
	ctx := context.Background()
	provider := NewLocalProvider(repository.NewAuthAccountRepository(store.NewMemoryStore()), bcrypt.MinCost)

	uid, err := provider.CreateAccount(ctx, "Jane@Agency.io", "hunter22")
	if err != nil || uid == "" {
		t.Fatalf("CreateAccount failed: %q %v", uid, err)
	}
	if _, err := provider.CreateAccount(ctx, "jane@agency.io", "another1"); !errors.Is(err, ErrAccountExists) {
		t.Errorf("expected ErrAccountExists, got %v", err)
	}
	if _, err := provider.CreateAccount(ctx, "short@agency.io", "abc"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("expected ErrWeakPassword, got %v", err)
	}

	got, err := provider.Authenticate(ctx, "jane@agency.io", "hunter22")
	if err != nil || got != uid {
		t.Fatalf("Authenticate failed: %q %v", got, err)
	}
	if _, err := provider.Authenticate(ctx, "jane@agency.io", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}

	if err := provider.ChangePassword(ctx, "jane@agency.io", "hunter22", "newpass1"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if _, err := provider.Authenticate(ctx, "jane@agency.io", "newpass1"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestLocalProviderConcurrentCreateKeepsOneAccount(t *testing.T) {
	s := store.NewMemoryStore()
	p := NewLocalProvider(repository.NewAuthAccountRepository(s), bcrypt.MinCost)
	emails := []string{"raj@agency.io", "RAJ@agency.io", "Raj@Agency.io"}

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for _, email := range emails {
		wg.Add(1)
		go func(email string) {
			defer wg.Done()
			_, err := p.CreateAccount(context.Background(), email, "secret123")
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrAccountExists) {
				t.Errorf("unexpected error %v", err)
			}
		}(email)
	}
	wg.Wait()

	docs, _ := s.List(context.Background(), store.CollectionAuthAccounts)
	if created != 1 || len(docs) != 1 {
		t.Errorf("expected one account, created=%d stored=%d", created, len(docs))
	}
}

func TestCanManage(t *testing.T) {
	head := &Principal{Employee: &domain.Employee{Department: domain.DepartmentVideo}, Role: domain.RoleHead}
	if !head.CanManage(domain.DepartmentVideo) || head.CanManage(domain.DepartmentGraphics) {
		t.Error("head may only manage their own department")
	}
	admin := &Principal{Employee: &domain.Employee{}, Role: domain.RoleAdmin}
	if !admin.CanManage(domain.DepartmentGraphics) {
		t.Error("admin manages everything")
	}
}
