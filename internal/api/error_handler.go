package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/acquisitions/acquisitions-api/internal/api/handler"
	"github.com/acquisitions/acquisitions-api/internal/core/domain"
)

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps tagged domain errors to their HTTP status by kind.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error", "message", "reason", "details"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

var kindStatus = map[domain.Kind]int{
	domain.KindValidation:      http.StatusBadRequest,
	domain.KindAuthentication:  http.StatusUnauthorized,
	domain.KindAuthorization:   http.StatusForbidden,
	domain.KindNotFound:        http.StatusNotFound,
	domain.KindConflict:        http.StatusConflict,
	domain.KindAdmissionDenied: http.StatusForbidden,
	domain.KindBackend:         http.StatusInternalServerError,
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, handler.ErrorBody) {
	var de *domain.Error
	if errors.As(err, &de) {
		if status, ok := kindStatus[de.Kind]; ok {
			if de.Kind == domain.KindBackend {
				logUnexpected(log, c, err)
			}
			body := handler.ErrorBody{Error: de.Code, Message: de.Message, Reason: de.Reason}
			if len(de.Details) > 0 {
				body.Details = de.Details
			}
			return status, body
		}
	}

	// Echo's own errors (router 404/405, body too large, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusNotFound:
			return he.Code, handler.ErrorBody{Error: "Route not found"}
		case http.StatusInternalServerError:
			logUnexpected(log, c, err)
			return he.Code, handler.ErrorBody{Error: "internal server error"}
		}
		return he.Code, handler.ErrorBody{Error: fmt.Sprintf("%v", he.Message)}
	}

	logUnexpected(log, c, err)
	return http.StatusInternalServerError, handler.ErrorBody{Error: "internal server error"}
}

func logUnexpected(log zerolog.Logger, c echo.Context, err error) {
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Request().URL.Path).
		Msg("unhandled error")
}
