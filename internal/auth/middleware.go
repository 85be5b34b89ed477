package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/agency-dashboard/internal/domain"
	"github.com/spec-kit/agency-dashboard/internal/repository"
	apperrors "github.com/spec-kit/agency-dashboard/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the signed-in dashboard operator.
type Principal struct {
	Employee *domain.Employee
	Role     domain.Role
}

// CanManage reports whether the principal may act on records of department d.
func (p *Principal) CanManage(d domain.Department) bool {
	if p == nil || p.Employee == nil {
		return false
	}
	if p.Role == domain.RoleAdmin {
		return true
	}
	return p.Role == domain.RoleHead && p.Employee.Department == d
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens    *TokenManager
	employees repository.EmployeeRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, employees repository.EmployeeRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, employees: employees}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token := bearerToken(c.Get("Authorization"))
	if token == "" {
		// browsers cannot set headers on websocket upgrades
		token = c.Query("access_token")
	}
	if token == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	claims, err := m.tokens.ParseToken(token)
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	employee, err := m.employees.GetByID(c.UserContext(), claims.EmployeeID)
	if err != nil {
		if repository.IsNotFound(err) {
			return apperrors.NewUnauthorized("employee not found")
		}
		return apperrors.MapError(err)
	}
	if !employee.Active() {
		return apperrors.NewUnauthorized("employee inactive")
	}
	if employee.Role == domain.RoleEmployee {
		return apperrors.NewForbidden("dashboard access requires admin or head role")
	}

	c.Locals(principalKey, &Principal{Employee: employee, Role: employee.Role})
	return c.Next()
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
