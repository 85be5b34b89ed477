package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/agency-dashboard/internal/api/dto"
	"github.com/spec-kit/agency-dashboard/internal/domain"
	"github.com/spec-kit/agency-dashboard/internal/service"
)

// EmployeesHandler exposes employee endpoints.
type EmployeesHandler struct {
	employees *service.EmployeeService
}

// NewEmployeesHandler constructs handler.
func NewEmployeesHandler(employees *service.EmployeeService) *EmployeesHandler {
	return &EmployeesHandler{employees: employees}
}

// Create handles POST /api/employees.
func (h *EmployeesHandler) Create(c *fiber.Ctx) error {
	var req dto.EmployeeCreateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	employee, err := h.employees.Create(c.UserContext(), service.EmployeeCreateInput{
		Name:       req.Name,
		Email:      req.Email,
		Department: domain.Department(req.Department),
		Role:       domain.Role(req.Role),
		Status:     domain.EmployeeStatus(req.Status),
		Password:   req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewEmployeeResponse(employee)})
}

// List handles GET /api/employees.
func (h *EmployeesHandler) List(c *fiber.Ctx) error {
	employees, err := h.employees.List(c.UserContext(), parseEmployeeFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEmployeeResponses(employees)})
}

// Get handles GET /api/employees/:id.
func (h *EmployeesHandler) Get(c *fiber.Ctx) error {
	employee, err := h.employees.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEmployeeResponse(employee)})
}

// Update handles PUT /api/employees/:id.
func (h *EmployeesHandler) Update(c *fiber.Ctx) error {
	var req dto.EmployeeUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	input := service.EmployeeUpdateInput{
		Name:       req.Name,
		Department: optionalDepartment(req.Department),
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		input.Role = &role
	}
	if req.Status != nil {
		status := domain.EmployeeStatus(*req.Status)
		input.Status = &status
	}
	employee, err := h.employees.Update(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEmployeeResponse(employee)})
}

// Delete handles DELETE /api/employees/:id?confirm=true.
func (h *EmployeesHandler) Delete(c *fiber.Ctx) error {
	result, err := h.employees.Delete(c.UserContext(), c.Params("id"), confirmed(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"employee":             dto.NewEmployeeResponse(&result.Employee),
		"unassignedTasks":      result.UnassignedTasks,
		"unassignedClients":    result.UnassignedClients,
		"identityNeedsCleanup": result.IdentityNeedsCleanup,
	}})
}
