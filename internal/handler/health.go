package handler

import (
    "database/sql"
    "net/http"

    "github.com/labstack/echo/v4"
)

// Health returns a health-check endpoint for load balancers and monitoring
// systems.  It answers "ok" once the database responds to a ping and 503
// otherwise.
func Health(db *sql.DB) echo.HandlerFunc {
    return func(c echo.Context) error {
        if err := db.PingContext(c.Request().Context()); err != nil {
            return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
        }
        return c.String(http.StatusOK, "ok")
    }
}
