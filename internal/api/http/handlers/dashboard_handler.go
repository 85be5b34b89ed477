package handlers

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/agency-dashboard/internal/report"
	"github.com/spec-kit/agency-dashboard/internal/service"
)

// DashboardHandler serves rollups and report downloads.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Overview handles GET /api/dashboard/overview.
func (h *DashboardHandler) Overview(c *fiber.Ctx) error {
	overview, err := h.dashboard.Overview(c.UserContext(), parseTaskFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": overview})
}

// Report handles GET /api/reports/:kind?format=pdf|xlsx&month=YYYY-MM.
func (h *DashboardHandler) Report(c *fiber.Ctx) error {
	kind, ok := report.ParseKind(c.Params("kind"))
	if !ok {
		return fiber.NewError(http.StatusBadRequest, "unknown report kind")
	}
	format, ok := report.ParseFormat(c.Query("format"))
	if !ok {
		return fiber.NewError(http.StatusBadRequest, "format must be pdf or xlsx")
	}

	artifact, err := h.dashboard.Report(c.UserContext(), kind, format, parseTaskFilter(c))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, artifact.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	return c.Send(artifact.Data)
}
