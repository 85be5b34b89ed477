package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/agency-dashboard/internal/api/dto"
	"github.com/spec-kit/agency-dashboard/internal/domain"
	"github.com/spec-kit/agency-dashboard/internal/service"
	"github.com/spec-kit/agency-dashboard/internal/workflow"
)

// ClientsHandler exposes client and workflow endpoints.
type ClientsHandler struct {
	clients *service.ClientService
}

// NewClientsHandler constructs handler.
func NewClientsHandler(clients *service.ClientService) *ClientsHandler {
	return &ClientsHandler{clients: clients}
}

// Create handles POST /api/clients.
func (h *ClientsHandler) Create(c *fiber.Ctx) error {
	var req dto.ClientCreateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	client, err := h.clients.Create(c.UserContext(), service.ClientCreateInput{
		Name:          req.Name,
		Email:         req.Email,
		ContactNumber: req.ContactNumber,
		Status:        req.Status,
		AssignedTo:    req.AssignedTo,
		Source:        domain.ClientSource(req.Source),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewClientResponse(client)})
}

// NextID handles GET /api/clients/next-id.
func (h *ClientsHandler) NextID(c *fiber.Ctx) error {
	next, err := h.clients.NextID(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"clientId": next}})
}

// List handles GET /api/clients.
func (h *ClientsHandler) List(c *fiber.Ctx) error {
	clients, err := h.clients.List(c.UserContext(), parseClientFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewClientResponses(clients)})
}

// Get handles GET /api/clients/:id.
func (h *ClientsHandler) Get(c *fiber.Ctx) error {
	client, err := h.clients.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewClientResponse(client)})
}

// Update handles PUT /api/clients/:id.
func (h *ClientsHandler) Update(c *fiber.Ctx) error {
	var req dto.ClientUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	client, err := h.clients.Update(c.UserContext(), c.Params("id"), service.ClientUpdateInput{
		Name:          req.Name,
		Email:         req.Email,
		ContactNumber: req.ContactNumber,
		Status:        req.Status,
		AssignedTo:    req.AssignedTo,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewClientResponse(client)})
}

// Delete handles DELETE /api/clients/:id?confirm=true.
func (h *ClientsHandler) Delete(c *fiber.Ctx) error {
	if err := h.clients.Delete(c.UserContext(), c.Params("id"), confirmed(c)); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Transition handles POST /api/clients/:id/workflow/:event.
func (h *ClientsHandler) Transition(c *fiber.Ctx) error {
	if err := requireDepartment(c, domain.DepartmentStrategy); err != nil {
		return err
	}
	event, ok := workflow.ParseEvent(c.Params("event"))
	if !ok {
		return fiber.NewError(http.StatusBadRequest, "unknown workflow event")
	}
	result, err := h.clients.Transition(c.UserContext(), c.Params("id"), event)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TransitionResponse{
		Client:  dto.NewClientResponse(result.Client),
		From:    string(result.From),
		To:      string(result.To),
		TaskIDs: result.TaskIDs,
	}})
}

// AssignTask handles POST /api/clients/:id/tasks.
func (h *ClientsHandler) AssignTask(c *fiber.Ctx) error {
	if err := requireDepartment(c, domain.DepartmentStrategy); err != nil {
		return err
	}
	var req dto.TaskCreateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	task, err := h.clients.AssignTask(c.UserContext(), c.Params("id"), service.TaskCreateInput{
		Name:        req.Name,
		Description: req.Description,
		Department:  domain.Department(req.Department),
		AssignedTo:  req.AssignedTo,
		PostDate:    req.PostDate,
		Deadline:    req.Deadline,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTaskResponse(task)})
}
