package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/acquisitions/acquisitions-api/internal/api/metrics"
	"github.com/acquisitions/acquisitions-api/internal/api/session"
	"github.com/acquisitions/acquisitions-api/internal/core/domain"
	"github.com/acquisitions/acquisitions-api/internal/core/ports"
	"github.com/acquisitions/acquisitions-api/pkg/logger"
)

// ActorKey is the echo context key holding the *domain.Actor of a request.
const ActorKey = "actor"

// AuthMode selects how Authenticate treats a request without a usable credential.
type AuthMode int

const (
	// Required rejects the request with 401.
	Required AuthMode = iota
	// Optional lets the request through as a guest.
	Optional
)

// Authenticate verifies the session credential and attaches the actor to the
// context. An actor attached by an earlier stage is kept as is.
func Authenticate(codec ports.CredentialCodec, carrier *session.Carrier, mode AuthMode) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := ActorFrom(c); ok {
				return next(c)
			}

			token, ok := carrier.Extract(c)
			if !ok {
				if mode == Optional {
					return next(c)
				}
				metrics.AuthFailuresTotal.WithLabelValues(domain.ReasonNoToken).Inc()
				return domain.ErrNoToken
			}

			actor, err := codec.Verify(token)
			if err != nil {
				if mode == Optional {
					return next(c)
				}
				log := logger.Get()
				log.Warn().
					Err(err).
					Str("ip", c.RealIP()).
					Str("path", c.Request().URL.Path).
					Msg("credential rejected")
				metrics.AuthFailuresTotal.WithLabelValues(domain.ReasonInvalidToken).Inc()
				return domain.ErrInvalidToken
			}

			c.Set(ActorKey, &actor)
			return next(c)
		}
	}
}

// ActorFrom returns the actor attached by Authenticate.
func ActorFrom(c echo.Context) (*domain.Actor, bool) {
	actor, ok := c.Get(ActorKey).(*domain.Actor)
	return actor, ok && actor != nil
}
