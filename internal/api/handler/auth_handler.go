package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/acquisitions/acquisitions-api/internal/api/metrics"
	"github.com/acquisitions/acquisitions-api/internal/api/session"
	"github.com/acquisitions/acquisitions-api/internal/core/domain"
	"github.com/acquisitions/acquisitions-api/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
	carrier     *session.Carrier
}

func NewAuthHandler(authService ports.AuthService, carrier *session.Carrier) *AuthHandler {
	return &AuthHandler{authService: authService, carrier: carrier}
}

type signUpRequest struct {
	Name     string `json:"name"     validate:"required,min=2,max=255"`
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Role     string `json:"role"     validate:"omitempty,oneof=user admin"`
}

func (r *signUpRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

type signInRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *signInRequest) normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

type authResponse struct {
	Message string       `json:"message"`
	User    *domain.User `json:"user,omitempty"`
}

// SignUp creates a new account and starts its session.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signUpRequest  true  "Registration details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  ErrorBody
// @Failure      403   {object}  ErrorBody
// @Failure      409   {object}  ErrorBody
// @Failure      500   {object}  ErrorBody
// @Router       /api/auth/sign-up [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, user, err := h.authService.SignUp(c.Request().Context(), ports.SignUpInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		return err
	}

	h.carrier.Attach(c, token)
	metrics.CredentialsIssuedTotal.WithLabelValues("sign_up").Inc()
	return c.JSON(http.StatusCreated, authResponse{Message: "user registered", User: user})
}

// SignIn verifies credentials and starts a session.
//
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signInRequest  true  "Credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  ErrorBody
// @Failure      401   {object}  ErrorBody
// @Failure      403   {object}  ErrorBody
// @Router       /api/auth/sign-in [post]
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, user, err := h.authService.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.AuthFailuresTotal.WithLabelValues("invalid_credentials").Inc()
		}
		return err
	}

	h.carrier.Attach(c, token)
	metrics.CredentialsIssuedTotal.WithLabelValues("sign_in").Inc()
	return c.JSON(http.StatusOK, authResponse{Message: "user signed in", User: user})
}

// SignOut clears the session cookie. The credential itself stays valid until
// it expires; there is no server-side revocation.
//
// @Summary      Sign out
// @Tags         auth
// @Produce      json
// @Success      200  {object}  authResponse
// @Router       /api/auth/sign-out [post]
func (h *AuthHandler) SignOut(c echo.Context) error {
	h.carrier.Clear(c)
	return c.JSON(http.StatusOK, authResponse{Message: "user signed out successfully"})
}
