package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/acquisitions/acquisitions-api/internal/api/metrics"
	"github.com/acquisitions/acquisitions-api/internal/core/domain"
)

// RequireRole admits actors whose role is in allowed. Membership is exact:
// admin does not imply user. It must run after Authenticate.
func RequireRole(allowed ...domain.Role) echo.MiddlewareFunc {
	set := make(map[domain.Role]struct{}, len(allowed))
	names := make([]string, 0, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
		names = append(names, string(r))
	}
	denied := domain.RoleRequired(strings.Join(names, " or "))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFrom(c)
			if !ok {
				metrics.AuthFailuresTotal.WithLabelValues(domain.ReasonNoToken).Inc()
				return domain.ErrNoToken
			}
			if _, ok := set[actor.Role]; !ok {
				metrics.AuthFailuresTotal.WithLabelValues("role").Inc()
				return denied
			}
			return next(c)
		}
	}
}
