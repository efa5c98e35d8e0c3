package http

import (
	"net/http"
	"strings"

	"habitarc/internal/transport/http/dto/response"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	ctxUserID = "user_id"
	ctxIsDemo = "is_demo"
)

// AuthRequired validates the Authorization bearer token and stores the
// subject on the request context. Any failure yields the same 401 body.
func (r *Routers) AuthRequired(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)

		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			return c.JSON(http.StatusUnauthorized, response.ErrAuthenticationFailed)
		}

		claims, err := r.TokenService.VerifyAccess(token)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, response.ErrAuthenticationFailed)
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, response.ErrAuthenticationFailed)
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxIsDemo, claims.IsDemo)

		return next(c)
	}
}

// UserID returns the authenticated subject set by AuthRequired.
func UserID(c echo.Context) (uuid.UUID, bool) {
	userID, ok := c.Get(ctxUserID).(uuid.UUID)
	return userID, ok
}

func IsDemo(c echo.Context) bool {
	isDemo, _ := c.Get(ctxIsDemo).(bool)
	return isDemo
}
