package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/acquisitions/acquisitions-api/internal/core/domain"
	"github.com/acquisitions/acquisitions-api/internal/core/ports"
)

// UserHandler serves the /api/users resource.
type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// updateUserRequest uses pointers so an absent field is left untouched.
type updateUserRequest struct {
	Name  *string `json:"name"  validate:"omitempty,min=2,max=255"`
	Email *string `json:"email" validate:"omitempty,email,max=255"`
	Role  *string `json:"role"  validate:"omitempty,oneof=user admin"`
}

func (r *updateUserRequest) normalize() {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		r.Name = &name
	}
	if r.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*r.Email))
		r.Email = &email
	}
}

func (r *updateUserRequest) patch() domain.UserPatch {
	p := domain.UserPatch{Name: r.Name, Email: r.Email}
	if r.Role != nil {
		role := domain.Role(*r.Role)
		p.Role = &role
	}
	return p
}

type userListResponse struct {
	Message string         `json:"message"`
	Users   []*domain.User `json:"users"`
	Count   int            `json:"count"`
}

type userResponse struct {
	Message string       `json:"message"`
	User    *domain.User `json:"user,omitempty"`
}

// List returns every account.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Success      200  {object}  userListResponse
// @Failure      401  {object}  ErrorBody
// @Failure      403  {object}  ErrorBody
// @Router       /api/users [get]
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	if users == nil {
		users = []*domain.User{}
	}
	return c.JSON(http.StatusOK, userListResponse{
		Message: "successfully retrieved users",
		Users:   users,
		Count:   len(users),
	})
}

// Get returns one account. Any signed-in actor may read any account.
//
// @Summary      Get user
// @Tags         users
// @Produce      json
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  userResponse
// @Failure      400  {object}  ErrorBody
// @Failure      401  {object}  ErrorBody
// @Failure      404  {object}  ErrorBody
// @Router       /api/users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	user, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{Message: "successfully retrieved user", User: user})
}

// Update patches an account. Only the owner or an admin may do so, and only
// an admin may change a role.
//
// @Summary      Update user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      int                true  "User ID"
// @Param        body  body      updateUserRequest  true  "Fields to change"
// @Success      200   {object}  userResponse
// @Failure      400   {object}  ErrorBody
// @Failure      401   {object}  ErrorBody
// @Failure      403   {object}  ErrorBody
// @Failure      404   {object}  ErrorBody
// @Failure      409   {object}  ErrorBody
// @Router       /api/users/{id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req updateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.service.Update(c.Request().Context(), actor, id, req.patch())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{Message: "user updated successfully", User: user})
}

// Delete removes an account.
//
// @Summary      Delete user
// @Tags         users
// @Produce      json
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  userResponse
// @Failure      400  {object}  ErrorBody
// @Failure      401  {object}  ErrorBody
// @Failure      403  {object}  ErrorBody
// @Failure      404  {object}  ErrorBody
// @Router       /api/users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{Message: "user deleted successfully"})
}
