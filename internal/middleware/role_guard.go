package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/solecraft/marketplace/internal/domain/model"
)

// contextのroleが許可リストにあるか確認します。AuthJWTの後に置く
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[string(r)] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxUserRoleKey).(string)
			if !ok || role == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("UNAUTHORIZED", "unauthorized"))
			}

			if _, ok := allowed[role]; !ok {
				return c.JSON(http.StatusForbidden, errorJSON("FORBIDDEN", "insufficient role"))
			}

			return next(c)
		}
	}
}
