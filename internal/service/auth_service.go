package service

import (
	"context"
	"errors"

	"github.com/spec-kit/agency-dashboard/internal/auth"
	"github.com/spec-kit/agency-dashboard/internal/config"
	"github.com/spec-kit/agency-dashboard/internal/domain"
	"github.com/spec-kit/agency-dashboard/internal/repository"
	apperrors "github.com/spec-kit/agency-dashboard/pkg/util/errorutil"
)

// AuthService signs dashboard operators in through the identity provider.
type AuthService struct {
	employees  repository.EmployeeRepository
	identities auth.IdentityProvider
	tokenMgr   *auth.TokenManager
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	EmployeeRepo repository.EmployeeRepository
	Identity     auth.IdentityProvider
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		employees:  deps.EmployeeRepo,
		identities: deps.Identity,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
	}
}

// SignIn authenticates an admin or department head.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*domain.Employee, domain.Session, error) {
	if _, err := s.identities.Authenticate(ctx, email, password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return nil, domain.Session{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, domain.Session{}, apperrors.MapError(err)
	}
	employee, err := s.employees.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.Session{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, domain.Session{}, apperrors.MapError(err)
	}
	if !employee.Active() {
		return nil, domain.Session{}, apperrors.NewForbidden("employee inactive")
	}
	if employee.Role != domain.RoleAdmin && employee.Role != domain.RoleHead {
		return nil, domain.Session{}, apperrors.NewForbidden("dashboard access requires admin or head role")
	}
	session, err := s.tokenMgr.GenerateToken(employee.ID, employee.Role)
	if err != nil {
		return nil, domain.Session{}, apperrors.NewInternalError(err)
	}
	return employee, session, nil
}

// ChangePassword delegates the change to the identity provider.
func (s *AuthService) ChangePassword(ctx context.Context, employee *domain.Employee, current, next string) error {
	err := s.identities.ChangePassword(ctx, employee.Email, current, next)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apperrors.NewUnauthorized("invalid credentials")
	case errors.Is(err, auth.ErrWeakPassword):
		return apperrors.NewValidationError("validation failed", map[string]any{"newPassword": err.Error()})
	}
	return apperrors.MapError(err)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
