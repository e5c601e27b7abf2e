package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/equipdesk/equipdesk/internal/api/dto"
	"github.com/equipdesk/equipdesk/internal/auth"
	"github.com/equipdesk/equipdesk/internal/cache"
	apperrors "github.com/equipdesk/equipdesk/pkg/util"
)

// AuthHandler serves login and logout.
type AuthHandler struct {
	resolver *auth.Resolver
	tokens   *auth.TokenManager
	cache    *cache.Cache
}

// NewAuthHandler constructs handler.
func NewAuthHandler(resolver *auth.Resolver, tokens *auth.TokenManager, cache *cache.Cache) *AuthHandler {
	return &AuthHandler{resolver: resolver, tokens: tokens, cache: cache}
}

// Login POST /auth/login. The role is resolved once here and carried in the
// token for the rest of the session.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	session, err := h.resolver.Resolve(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	token, expiresAt, err := h.tokens.GenerateToken(session)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Email:     session.Email,
		Name:      session.Name,
		Role:      session.Role,
	}})
}

// Logout POST /auth/logout. Drops every cached entry so the next session
// starts from authoritative reads.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if _, ok := auth.SessionFromContext(c); !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	h.cache.Clear(c.UserContext())
	return c.JSON(fiber.Map{"data": fiber.Map{"logged_out": true}})
}
