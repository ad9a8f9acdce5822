package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/existflow/ironplan/internal/model"
)

// authMiddleware checks for a valid session token and attaches the
// requesting user to the context. Handlers downstream can rely on the
// requester's identity being present.
func (s *Server) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		auth := c.Request().Header.Get("Authorization")
		if auth == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "authorization required"})
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid authorization format"})
		}

		session, err := s.sessions.Get(c.Request().Context(), token)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		}
		if session.IsExpired() {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "token expired"})
		}

		user, err := s.users.FindByID(c.Request().Context(), session.UserID)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		}

		c.Set("user", user)
		c.Set("token", token)
		return next(c)
	}
}

// currentUser returns the authenticated requester attached by
// authMiddleware
func currentUser(c echo.Context) *model.User {
	return c.Get("user").(*model.User)
}
