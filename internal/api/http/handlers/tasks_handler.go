package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/agency-dashboard/internal/api/dto"
	"github.com/spec-kit/agency-dashboard/internal/domain"
	"github.com/spec-kit/agency-dashboard/internal/service"
)

// TasksHandler exposes task endpoints. Heads may only touch tasks of their
// own department.
type TasksHandler struct {
	tasks *service.TaskService
}

// NewTasksHandler constructs handler.
func NewTasksHandler(tasks *service.TaskService) *TasksHandler {
	return &TasksHandler{tasks: tasks}
}

// Create handles POST /api/tasks.
func (h *TasksHandler) Create(c *fiber.Ctx) error {
	var req dto.TaskCreateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	department := domain.Department(req.Department)
	if err := requireDepartment(c, department); err != nil {
		return err
	}
	task, err := h.tasks.Create(c.UserContext(), service.TaskCreateInput{
		Name:        req.Name,
		Description: req.Description,
		ClientID:    req.ClientID,
		Department:  department,
		Status:      domain.TaskStatus(req.Status),
		AssignedTo:  req.AssignedTo,
		PostDate:    req.PostDate,
		Deadline:    req.Deadline,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTaskResponse(task)})
}

// List handles GET /api/tasks.
func (h *TasksHandler) List(c *fiber.Ctx) error {
	tasks, err := h.tasks.List(c.UserContext(), parseTaskFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTaskResponses(tasks)})
}

// Get handles GET /api/tasks/:id.
func (h *TasksHandler) Get(c *fiber.Ctx) error {
	task, err := h.tasks.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTaskResponse(task)})
}

// Update handles PUT /api/tasks/:id.
func (h *TasksHandler) Update(c *fiber.Ctx) error {
	var req dto.TaskUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.authorize(c); err != nil {
		return err
	}
	input := service.TaskUpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Department:  optionalDepartment(req.Department),
		Status:      optionalTaskStatus(req.Status),
		AssignedTo:  req.AssignedTo,
		PostDate:    req.PostDate,
		Deadline:    req.Deadline,
	}
	if input.Department != nil {
		if err := requireDepartment(c, *input.Department); err != nil {
			return err
		}
	}
	task, err := h.tasks.Update(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTaskResponse(task)})
}

// UpdateStatus handles PATCH /api/tasks/:id/status.
func (h *TasksHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.TaskStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.authorize(c); err != nil {
		return err
	}
	task, err := h.tasks.UpdateStatus(c.UserContext(), c.Params("id"), domain.TaskStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTaskResponse(task)})
}

// Delete handles DELETE /api/tasks/:id?confirm=true. With purge=true an
// admin removes the record instead of hiding it.
func (h *TasksHandler) Delete(c *fiber.Ctx) error {
	if parseBoolQuery(c, "purge", false) {
		principal, err := requirePrincipal(c)
		if err != nil {
			return err
		}
		if principal.Role != domain.RoleAdmin {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		if err := h.tasks.Purge(c.UserContext(), c.Params("id"), confirmed(c)); err != nil {
			return err
		}
		return c.SendStatus(http.StatusNoContent)
	}

	if err := h.authorize(c); err != nil {
		return err
	}
	if err := h.tasks.SoftDelete(c.UserContext(), c.Params("id"), confirmed(c)); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// authorize checks the principal against the department of the addressed task.
func (h *TasksHandler) authorize(c *fiber.Ctx) error {
	task, err := h.tasks.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return requireDepartment(c, task.Department)
}
