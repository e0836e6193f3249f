package echoapi

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/fortytworoma/monitor/core"
)

// staffMiddleware rejects non-staff sessions. Denied attempts are recorded in
// the action log.
func staffMiddleware(audit core.ActionLog) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.Staff {
				return next(ctx)
			}
			audit.Record(claims.Login, fmt.Sprintf("was denied staff access to %s (IP %s)", ctx.Request().URL.Path, ctx.RealIP()))
			return errHttpForbidden
		}
	}
}
