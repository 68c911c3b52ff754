package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/deskops/support-core/internal/api/dto"
	"github.com/deskops/support-core/internal/service"
	apperrors "github.com/deskops/support-core/pkg/util"
)

// AgentsHandler serves agent authentication.
type AgentsHandler struct {
	auth *service.AuthService
}

// NewAgentsHandler constructs handler.
func NewAgentsHandler(authService *service.AuthService) *AgentsHandler {
	return &AgentsHandler{auth: authService}
}

// Login POST /auth/agents/login.
func (h *AgentsHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}
	result, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		AgentID:   result.Agent.ID,
		Name:      result.Agent.Name,
		Role:      string(result.Agent.Role),
	}})
}
