package httpapi

import (
	"net/http"
	"strings"

	"channel-hub/contract"
	"channel-hub/services"

	"github.com/labstack/echo/v4"
)

const principalKey = "principal"

// AuthMiddleware resolves the bearer token to a Principal on every request.
// The role comes back fresh from storage, never from the token alone.
func AuthMiddleware(auth contract.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing bearer token"})
			}
			userID, role, err := auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
			}
			c.Set(principalKey, services.Principal{UserID: userID, Role: role})
			return next(c)
		}
	}
}

func principal(c echo.Context) services.Principal {
	p, _ := c.Get(principalKey).(services.Principal)
	return p
}
