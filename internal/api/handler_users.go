package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ady24s/Cloud9/internal/auth"
	"github.com/ady24s/Cloud9/internal/store"
)

// UserHandler serves the caller's own account record. Accounts are
// created by the external identity service; this surface is read-only.
type UserHandler struct {
	users *store.UserStore
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *store.UserStore) *UserHandler {
	return &UserHandler{users: users}
}

// Me returns the authenticated user's record
// GET /api/v1/me
func (h *UserHandler) Me(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	user, err := h.users.GetByID(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrorNotFound(c, "user not found")
		}
		return ErrorInternal(c, "failed to get user")
	}

	return c.JSON(http.StatusOK, user)
}
