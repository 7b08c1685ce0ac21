package handler

import (
    "path/filepath"

    "github.com/labstack/echo/v4"
)

// DashboardFile is the page served at /dashboard from the public directory.
const DashboardFile = "dashboard.html"

// Dashboard serves the static dashboard page.  A missing file yields echo's
// regular 404.
func Dashboard(publicDir string) echo.HandlerFunc {
    page := filepath.Join(publicDir, DashboardFile)
    return func(c echo.Context) error {
        return c.File(page)
    }
}
