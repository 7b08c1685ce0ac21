package router // package router defines how HTTP routes are registered for the API

import (
    "log"

    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"

    "github.com/iliyamo/case-approval-tracker/internal/config"
    "github.com/iliyamo/case-approval-tracker/internal/middleware"
)

// New builds an Echo instance with the middleware every route shares:
// panic recovery, one log line per request, CORS, a JSON body size limit
// and request metrics.
func New(cfg config.Config, metrics *middleware.Metrics) *echo.Echo {
    e := echo.New()
    e.HideBanner = true
    e.HidePort = true

    e.Use(echomw.Recover())
    e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
        LogMethod:  true,
        LogURI:     true,
        LogStatus:  true,
        LogLatency: true,
        LogError:   true,
        LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
            if v.Error != nil {
                log.Printf("http: %s %s -> %d (%s): %v", v.Method, v.URI, v.Status, v.Latency, v.Error)
                return nil
            }
            log.Printf("http: %s %s -> %d (%s)", v.Method, v.URI, v.Status, v.Latency)
            return nil
        },
    }))
    e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.AllowOrigins}))
    e.Use(echomw.BodyLimit(cfg.BodyLimit))
    if metrics != nil {
        e.Use(metrics.Middleware())
    }
    return e
}
