package handler

import (
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/case-approval-tracker/internal/model"
    "github.com/iliyamo/case-approval-tracker/internal/queue"
    "github.com/iliyamo/case-approval-tracker/internal/repository"
)

// TestHandler serves the /tests write and listing endpoints.  Events is
// optional; when nil no lifecycle events are published.
type TestHandler struct {
    Tests  *repository.TestRepo
    Events EventPublisher
}

func NewTestHandler(tests *repository.TestRepo, events EventPublisher) *TestHandler {
    if tests == nil {
        panic("nil repository passed to NewTestHandler")
    }
    return &TestHandler{Tests: tests, Events: events}
}

// CreateTest handles POST /tests.  The new test is stamped with the current
// time and starts undecided; the body values are stored as sent and
// case_id and user_id are not checked.
func (h *TestHandler) CreateTest(c echo.Context) error {
    var body model.NewTest
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    ctx := c.Request().Context()
    id, err := h.Tests.Create(ctx, body)
    if err != nil {
        return storageError(c, err)
    }

    ev := queue.NewTestEvent(queue.TestCreated, strconv.FormatInt(id, 10))
    ev.CaseID, ev.UserID, ev.DeveloperName = body.CaseID, body.UserID, body.DeveloperName
    publish(ctx, h.Events, ev)

    return c.JSON(http.StatusOK, echo.Map{"id": id})
}

// UpdateApproval handles PATCH /tests/:id.  Whatever value arrives in
// approved is persisted, and success is reported even when no test has the
// id.
func (h *TestHandler) UpdateApproval(c echo.Context) error {
    id := c.Param("id")
    var body struct {
        Approved any `json:"approved"`
    }
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    ctx := c.Request().Context()
    if err := h.Tests.SetApproval(ctx, id, body.Approved); err != nil {
        return storageError(c, err)
    }

    ev := queue.NewTestEvent(queue.TestApprovalUpdated, id)
    ev.Approved = body.Approved
    publish(ctx, h.Events, ev)

    return c.JSON(http.StatusOK, echo.Map{"message": "Test updated successfully", "id": id})
}

// ListTests handles GET /tests?case_id=.  Tests whose user no longer exists
// are not listed.
func (h *TestHandler) ListTests(c echo.Context) error {
    tests, err := h.Tests.ListByCase(c.Request().Context(), c.QueryParam("case_id"))
    if err != nil {
        return storageError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"tests": tests})
}

// DeleteTest handles DELETE /tests/:id.  Deleting an unknown id still
// succeeds.
func (h *TestHandler) DeleteTest(c echo.Context) error {
    id := c.Param("id")
    ctx := c.Request().Context()
    if err := h.Tests.Delete(ctx, id); err != nil {
        return storageError(c, err)
    }
    publish(ctx, h.Events, queue.NewTestEvent(queue.TestDeleted, id))
    return c.JSON(http.StatusOK, echo.Map{"message": "Test deleted successfully", "id": id})
}
