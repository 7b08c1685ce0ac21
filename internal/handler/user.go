package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/case-approval-tracker/internal/repository"
)

// UserHandler serves /users.
type UserHandler struct {
    Users *repository.UserRepo
}

func NewUserHandler(users *repository.UserRepo) *UserHandler {
    if users == nil {
        panic("nil repository passed to NewUserHandler")
    }
    return &UserHandler{Users: users}
}

// ListUsers handles GET /users.
func (h *UserHandler) ListUsers(c echo.Context) error {
    users, err := h.Users.List(c.Request().Context())
    if err != nil {
        return storageError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"users": users})
}

// CreateUser handles POST /users.  The username is stored as given,
// duplicates and a missing name included.
func (h *UserHandler) CreateUser(c echo.Context) error {
    var body struct {
        Username any `json:"username"`
    }
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    id, err := h.Users.Create(c.Request().Context(), body.Username)
    if err != nil {
        return storageError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"id": id})
}
