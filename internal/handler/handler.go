// Package handler exposes the HTTP handlers of the test approval API.  Each
// handler performs one repository call and maps the outcome to JSON; storage
// failures are reported verbatim with status 500.
package handler

import (
    "context"
    "log"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/case-approval-tracker/internal/queue"
)

// EventPublisher delivers test lifecycle events.  It is satisfied by
// service.Publisher.
type EventPublisher interface {
    PublishTestEvent(ctx context.Context, ev queue.TestEvent) error
}

// storageError reports a repository failure with the driver message.
func storageError(c echo.Context, err error) error {
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
}

func badRequest(c echo.Context, msg string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// PublishTimeout caps how long a write request waits on the broker.
var PublishTimeout = 3 * time.Second

// publish sends ev when a publisher is configured.  Failures only get
// logged: the write it describes has already been committed.
func publish(ctx context.Context, p EventPublisher, ev queue.TestEvent) {
    if p == nil {
        return
    }
    ctx, cancel := context.WithTimeout(ctx, PublishTimeout)
    defer cancel()
    if err := p.PublishTestEvent(ctx, ev); err != nil {
        log.Printf("test-events: publish %s for test %s failed: %v", ev.Type, ev.TestID, err)
    }
}
