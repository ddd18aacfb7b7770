package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/acquisitions/acquisitions-api/internal/core/domain"
)

func render(err error) (int, string) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/x", nil), rec)
	NewHTTPErrorHandler(zerolog.Nop())(err, c)
	return rec.Code, rec.Body.String()
}

func TestHTTPErrorHandler_Kinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		body string
	}{
		{"validation", domain.Validation(domain.FieldError{Field: "email", Message: "email is required"}), 400,
			`{"error":"validation failed","details":[{"field":"email","message":"email is required"}]}`},
		{"authentication", domain.ErrInvalidCredentials, 401, `{"error":"invalid credentials"}`},
		{"no token", domain.ErrNoToken, 401,
			`{"error":"unauthorized","message":"authentication required - please sign in","reason":"no_token"}`},
		{"authorization", domain.ErrNotOwner, 403,
			`{"error":"forbidden","message":"you can only modify your own account"}`},
		{"not found", domain.ErrUserNotFound, 404, `{"error":"user not found"}`},
		{"conflict", domain.ErrUserExists, 409, `{"error":"user with this email already exists"}`},
		{"admission", domain.Deny(domain.ClassUser, domain.ReasonRateLimit).Err(), 403,
			`{"error":"forbidden","message":"user request limit exceeded","reason":"rate_limit"}`},
		{"backend", domain.Backend("Something went wrong with security middleware", errors.New("dial tcp")), 500,
			`{"error":"internal server error","message":"Something went wrong with security middleware"}`},
		{"route", echo.ErrNotFound, 404, `{"error":"Route not found"}`},
		{"method", echo.ErrMethodNotAllowed, 405, `{"error":"Method Not Allowed"}`},
		{"unexpected", errors.New("mongo: secret connection string"), 500, `{"error":"internal server error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := render(tt.err)
			assert.Equal(t, tt.code, code)
			assert.JSONEq(t, tt.body, body)
		})
	}
}

func TestHTTPErrorHandler_WrappedDomainError(t *testing.T) {
	code, body := render(errors.Join(errors.New("context"), domain.ErrUserNotFound))
	assert.Equal(t, http.StatusNotFound, code)
	assert.JSONEq(t, `{"error":"user not found"}`, body)
}
