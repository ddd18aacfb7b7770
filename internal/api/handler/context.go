package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/acquisitions/acquisitions-api/internal/api/middleware"
	"github.com/acquisitions/acquisitions-api/internal/core/domain"
)

// ctxActor returns the actor attached by the Authenticate middleware. A route
// reaching a handler without one is misconfigured, so it fails as 401.
func ctxActor(c echo.Context) (domain.Actor, error) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return domain.Actor{}, domain.ErrNoToken
	}
	return *actor, nil
}

// pathID parses the :id path parameter as a positive integer.
func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Validation(domain.FieldError{Field: "id", Message: "id must be a positive integer"})
	}
	return id, nil
}
