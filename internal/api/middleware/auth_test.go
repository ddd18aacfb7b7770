package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acquisitions/acquisitions-api/internal/api/session"
	"github.com/acquisitions/acquisitions-api/internal/core/credential"
	"github.com/acquisitions/acquisitions-api/internal/core/domain"
)

const testSecret = "middleware-test-secret"

func newAuthFixture() (*credential.Codec, *session.Carrier) {
	codec := credential.New(testSecret, time.Hour)
	return codec, session.NewCarrier(session.Options{TTL: codec.TTL()})
}

func requestWithCookie(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: token})
	}
	return req
}

func TestAuthenticate_ValidCookie(t *testing.T) {
	codec, carrier := newAuthFixture()
	want := domain.Actor{ID: 7, Email: "alice@example.com", Role: domain.RoleAdmin}
	token, err := codec.Issue(want)
	require.NoError(t, err)

	e := echo.New()
	c := e.NewContext(requestWithCookie(token), httptest.NewRecorder())

	var got *domain.Actor
	h := Authenticate(codec, carrier, Required)(func(c echo.Context) error {
		got, _ = ActorFrom(c)
		return c.NoContent(http.StatusOK)
	})

	require.NoError(t, h(c))
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestAuthenticate_MissingCookie(t *testing.T) {
	codec, carrier := newAuthFixture()
	e := echo.New()
	c := e.NewContext(requestWithCookie(""), httptest.NewRecorder())

	h := Authenticate(codec, carrier, Required)(func(echo.Context) error {
		t.Fatal("next must not run")
		return nil
	})

	err := h(c)
	assert.ErrorIs(t, err, domain.ErrNoToken)
}

func TestAuthenticate_InvalidAndExpired(t *testing.T) {
	codec, carrier := newAuthFixture()
	past := credential.New(testSecret, time.Minute, credential.WithClock(func() time.Time {
		return time.Now().Add(-time.Hour)
	}))
	expired, err := past.Issue(domain.Actor{ID: 1, Email: "a@example.com", Role: domain.RoleUser})
	require.NoError(t, err)

	foreign, err := credential.New("another-secret-entirely", time.Hour).
		Issue(domain.Actor{ID: 1, Email: "a@example.com", Role: domain.RoleUser})
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage": "not-a-jwt",
		"expired": expired,
		"foreign": foreign,
	} {
		t.Run(name, func(t *testing.T) {
			e := echo.New()
			c := e.NewContext(requestWithCookie(token), httptest.NewRecorder())
			h := Authenticate(codec, carrier, Required)(func(echo.Context) error {
				t.Fatal("next must not run")
				return nil
			})

			err := h(c)
			assert.ErrorIs(t, err, domain.ErrInvalidToken)
		})
	}
}

func TestAuthenticate_OptionalPassesThroughAsGuest(t *testing.T) {
	codec, carrier := newAuthFixture()

	for _, token := range []string{"", "not-a-jwt"} {
		e := echo.New()
		c := e.NewContext(requestWithCookie(token), httptest.NewRecorder())

		called := false
		h := Authenticate(codec, carrier, Optional)(func(c echo.Context) error {
			called = true
			_, ok := ActorFrom(c)
			assert.False(t, ok)
			return nil
		})

		require.NoError(t, h(c))
		assert.True(t, called)
	}
}

func TestAuthenticate_KeepsAttachedActor(t *testing.T) {
	codec, carrier := newAuthFixture()
	e := echo.New()
	c := e.NewContext(requestWithCookie(""), httptest.NewRecorder())
	attached := &domain.Actor{ID: 3, Role: domain.RoleUser}
	c.Set(ActorKey, attached)

	h := Authenticate(codec, carrier, Required)(func(c echo.Context) error {
		got, ok := ActorFrom(c)
		assert.True(t, ok)
		assert.Same(t, attached, got)
		return nil
	})
	require.NoError(t, h(c))
}
