package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/agency-dashboard/internal/api/dto"
	"github.com/spec-kit/agency-dashboard/internal/service"
)

// AuthHandler exposes sign-in and password endpoints.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// SignIn handles POST /api/auth/sign-in.
func (h *AuthHandler) SignIn(c *fiber.Ctx) error {
	var req dto.SignInRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	employee, session, err := h.authService.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"employee": dto.NewEmployeeResponse(employee),
			"auth":     dto.SessionResponse{Token: session.Token, ExpiresAt: session.ExpiresAt},
		},
	})
}

// ChangePassword handles POST /api/auth/password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.PasswordChangeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.authService.ChangePassword(c.UserContext(), principal.Employee, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "password_changed"}})
}
