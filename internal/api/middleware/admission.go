package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/acquisitions/acquisitions-api/internal/api/metrics"
	"github.com/acquisitions/acquisitions-api/internal/core/domain"
	"github.com/acquisitions/acquisitions-api/internal/core/ports"
)

// AuditSubmitter accepts denied admissions without blocking the request.
type AuditSubmitter interface {
	Submit(rec domain.AuditRecord) bool
}

// AdmissionOptions configures Admission.
type AdmissionOptions struct {
	// DryRun logs and meters denials but lets the request through.
	DryRun bool
	// Audit receives every denial. Optional.
	Audit AuditSubmitter
	Log   zerolog.Logger
}

// Admission runs the admission engine before any other pipeline stage. The
// role class comes from an actor attached earlier, or guest.
func Admission(engine ports.AdmissionEngine, opts AdmissionOptions) echo.MiddlewareFunc {
	mode := "live"
	if opts.DryRun {
		mode = "dry_run"
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, _ := ActorFrom(c)
			req := describe(c)

			decision, err := engine.Decide(c.Request().Context(), actor, req)
			if err != nil {
				metrics.AdmissionDecisionsTotal.WithLabelValues(string(domain.ClassOf(actor)), "error", mode).Inc()
				opts.Log.Error().
					Err(err).
					Str("ip", req.IP).
					Str("path", req.Path).
					Str("method", req.Method).
					Msg("admission engine failed")
				return domain.Backend("Something went wrong with security middleware", err)
			}

			metrics.AdmissionDecisionsTotal.WithLabelValues(string(decision.Class), string(decision.Reason), mode).Inc()
			if decision.Allowed {
				return next(c)
			}

			opts.Log.Warn().
				Str("ip", req.IP).
				Str("user_agent", req.UserAgent).
				Str("path", req.Path).
				Str("method", req.Method).
				Str("role_class", string(decision.Class)).
				Str("reason", string(decision.Reason)).
				Bool("dry_run", opts.DryRun).
				Msg("request denied by admission control")

			if opts.Audit != nil {
				opts.Audit.Submit(domain.AuditRecord{
					ID:        uuid.NewString(),
					ClientKey: domain.ClientKey(actor, req.IP),
					IP:        req.IP,
					UserAgent: req.UserAgent,
					Method:    req.Method,
					Path:      req.Path,
					Class:     decision.Class,
					Reason:    decision.Reason,
					DryRun:    opts.DryRun,
					CreatedAt: time.Now().UTC(),
				})
			}

			if opts.DryRun {
				return next(c)
			}
			return decision.Err()
		}
	}
}

func describe(c echo.Context) ports.RequestDescriptor {
	r := c.Request()
	return ports.RequestDescriptor{
		IP:        c.RealIP(),
		UserAgent: r.UserAgent(),
		Method:    r.Method,
		Path:      r.URL.Path,
		RawQuery:  r.URL.RawQuery,
		Header:    r.Header,
	}
}
