package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/agency-dashboard/internal/analytics"
	"github.com/spec-kit/agency-dashboard/internal/api/dto"
	"github.com/spec-kit/agency-dashboard/internal/auth"
	"github.com/spec-kit/agency-dashboard/internal/domain"
)

func parseBoolQuery(c *fiber.Ctx, key string, defaultVal bool) bool {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// confirmed reads the ?confirm=true flag required by destructive routes.
func confirmed(c *fiber.Ctx) bool {
	return parseBoolQuery(c, "confirm", false)
}

func parseBody(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	return dto.Validate(req)
}

func parseTaskFilter(c *fiber.Ctx) analytics.Filter {
	return analytics.Filter{
		Month:      c.Query("month"),
		Department: domain.Department(c.Query("department")),
		EmployeeID: c.Query("employeeId"),
		Status:     domain.TaskStatus(c.Query("status")),
		Search:     c.Query("search"),
	}
}

func parseEmployeeFilter(c *fiber.Ctx) analytics.EmployeeFilter {
	return analytics.EmployeeFilter{
		Department: domain.Department(c.Query("department")),
		Role:       domain.Role(c.Query("role")),
		Status:     domain.EmployeeStatus(c.Query("status")),
		Search:     c.Query("search"),
	}
}

func parseClientFilter(c *fiber.Ctx) analytics.ClientFilter {
	return analytics.ClientFilter{
		Stage:      domain.Stage(c.Query("stage")),
		Status:     c.Query("status"),
		Source:     domain.ClientSource(c.Query("source")),
		EmployeeID: c.Query("employeeId"),
		Search:     c.Query("search"),
	}
}

func requirePrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Employee == nil {
		return nil, fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	return principal, nil
}

// requireDepartment lets admins through and heads only for their own
// department.
func requireDepartment(c *fiber.Ctx, department domain.Department) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if !principal.CanManage(department) {
		return fiber.NewError(http.StatusForbidden, "department not managed by this account")
	}
	return nil
}

func optionalDepartment(raw *string) *domain.Department {
	if raw == nil {
		return nil
	}
	d := domain.Department(*raw)
	return &d
}

func optionalTaskStatus(raw *string) *domain.TaskStatus {
	if raw == nil {
		return nil
	}
	s := domain.TaskStatus(*raw)
	return &s
}
