package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/equipdesk/equipdesk/internal/domain"
	apperrors "github.com/equipdesk/equipdesk/pkg/util"
)

const sessionKey = "auth_session"

// Middleware validates bearer tokens and loads the session.
type Middleware struct {
	tokens *TokenManager
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager) *Middleware {
	return &Middleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	session, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(sessionKey, session)
	return c.Next()
}

// SessionFromContext retrieves the authenticated session.
func SessionFromContext(c *fiber.Ctx) (*Session, bool) {
	val := c.Locals(sessionKey)
	if val == nil {
		return nil, false
	}
	session, ok := val.(*Session)
	return session, ok
}

// RequireRole ensures the session holds one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		session, ok := SessionFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[session.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
