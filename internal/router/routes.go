package router

import (
    "database/sql"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/case-approval-tracker/internal/handler"
    "github.com/iliyamo/case-approval-tracker/internal/middleware"
)

// RegisterRoutes registers operational routes that bypass rate limiting:
// the health check, the metrics scrape endpoint and the dashboard page.
func RegisterRoutes(e *echo.Echo, db *sql.DB, metrics *middleware.Metrics, publicDir string) {
    e.GET("/healthz", handler.Health(db))
    if metrics != nil {
        e.GET("/metrics", metrics.Handler())
    }
    e.GET("/dashboard", handler.Dashboard(publicDir))
}

// RegisterUsers registers the user endpoints.
func RegisterUsers(e *echo.Echo, h *handler.UserHandler, mw ...echo.MiddlewareFunc) {
    g := e.Group("/users", mw...)
    g.GET("", h.ListUsers)
    g.POST("", h.CreateUser)
}

// RegisterTests registers test recording and approval endpoints.
func RegisterTests(e *echo.Echo, h *handler.TestHandler, mw ...echo.MiddlewareFunc) {
    g := e.Group("/tests", mw...)
    g.POST("", h.CreateTest)
    g.GET("", h.ListTests)
    g.PATCH("/:id", h.UpdateApproval)
    g.DELETE("/:id", h.DeleteTest)
}

// RegisterStats registers the dashboard aggregation endpoints.
func RegisterStats(e *echo.Echo, h *handler.StatsHandler, mw ...echo.MiddlewareFunc) {
    g := e.Group("/tests/count", mw...)
    g.GET("/by-period", h.CountByPeriod)
    g.GET("/by-case", h.CountByCase)
    g.GET("/by-approval", h.CountByApproval)
    g.GET("/by-user/:period", h.CountByUser)
}
