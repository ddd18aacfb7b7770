package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acquisitions/acquisitions-api/internal/api/metrics"
	"github.com/acquisitions/acquisitions-api/internal/api/session"
	"github.com/acquisitions/acquisitions-api/internal/core/domain"
	"github.com/acquisitions/acquisitions-api/internal/core/ports"
)

type stubAuthService struct {
	signUpFn func(ctx context.Context, in ports.SignUpInput) (string, *domain.User, error)
	signInFn func(ctx context.Context, email, password string) (string, *domain.User, error)
}

func (s *stubAuthService) SignUp(ctx context.Context, in ports.SignUpInput) (string, *domain.User, error) {
	return s.signUpFn(ctx, in)
}

func (s *stubAuthService) SignIn(ctx context.Context, email, password string) (string, *domain.User, error) {
	return s.signInFn(ctx, email, password)
}

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func testCarrier() *session.Carrier {
	return session.NewCarrier(session.Options{TTL: 15 * time.Minute})
}

func TestAuthHandler_SignUp_NormalisesInput(t *testing.T) {
	var got ports.SignUpInput
	stub := &stubAuthService{
		signUpFn: func(_ context.Context, in ports.SignUpInput) (string, *domain.User, error) {
			got = in
			return "signed-token", &domain.User{ID: 1, Name: in.Name, Email: in.Email, Role: domain.RoleUser, PasswordHash: "hash"}, nil
		},
	}
	h := NewAuthHandler(stub, testCarrier())

	c, rec := newContext(http.MethodPost, "/api/auth/sign-up",
		`{"name":" Alice ","email":" ALICE@example.com ","password":"secret123"}`)
	require.NoError(t, h.SignUp(c))

	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, domain.Role(""), got.Role)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "token=signed-token")
	assert.NotContains(t, rec.Body.String(), "hash")

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "user registered", resp["message"])
}

func TestAuthHandler_SignUp_ValidationStopsBeforeService(t *testing.T) {
	stub := &stubAuthService{
		signUpFn: func(context.Context, ports.SignUpInput) (string, *domain.User, error) {
			t.Fatal("service must not be called")
			return "", nil, nil
		},
	}
	h := NewAuthHandler(stub, testCarrier())

	c, rec := newContext(http.MethodPost, "/api/auth/sign-up", `{"name":"Al","email":"al@example.com","password":"x","role":"owner"}`)
	err := h.SignUp(c)

	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.KindValidation, de.Kind)
	require.Len(t, de.Details, 2)
	assert.Equal(t, "password", de.Details[0].Field)
	assert.Equal(t, "role", de.Details[1].Field)
	assert.Empty(t, rec.Header().Get("Set-Cookie"))
}

func TestAuthHandler_SignIn_ErrorPassesThrough(t *testing.T) {
	stub := &stubAuthService{
		signInFn: func(context.Context, string, string) (string, *domain.User, error) {
			return "", nil, domain.ErrInvalidCredentials
		},
	}
	h := NewAuthHandler(stub, testCarrier())

	c, rec := newContext(http.MethodPost, "/api/auth/sign-in", `{"email":"bob@example.com","password":"nope"}`)
	err := h.SignIn(c)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Empty(t, rec.Header().Get("Set-Cookie"))
}

func TestAuthHandler_SignIn_CountsWrappedInvalidCredentials(t *testing.T) {
	stub := &stubAuthService{
		signInFn: func(context.Context, string, string) (string, *domain.User, error) {
			return "", nil, fmt.Errorf("sign in: %w", domain.ErrInvalidCredentials)
		},
	}
	h := NewAuthHandler(stub, testCarrier())
	counter := metrics.AuthFailuresTotal.WithLabelValues("invalid_credentials")
	before := testutil.ToFloat64(counter)

	c, _ := newContext(http.MethodPost, "/api/auth/sign-in", `{"email":"bob@example.com","password":"nope"}`)
	err := h.SignIn(c)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestAuthHandler_SignOut(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, testCarrier())

	c, rec := newContext(http.MethodPost, "/api/auth/sign-out", "")
	require.NoError(t, h.SignOut(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	cookie := rec.Header().Get("Set-Cookie")
	assert.Contains(t, cookie, "token=;")
	assert.Contains(t, cookie, "Max-Age=0")
	assert.Contains(t, cookie, "HttpOnly")
}
