package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/case-approval-tracker/internal/model"
    "github.com/iliyamo/case-approval-tracker/internal/repository"
)

// StatsHandler serves the /tests/count aggregation endpoints.
type StatsHandler struct {
    Stats *repository.StatsRepo
}

func NewStatsHandler(stats *repository.StatsRepo) *StatsHandler {
    if stats == nil {
        panic("nil repository passed to NewStatsHandler")
    }
    return &StatsHandler{Stats: stats}
}

// CountByPeriod handles GET /tests/count/by-period?start_date=&end_date=.
// Both dates are whole UTC days and inclusive.
func (h *StatsHandler) CountByPeriod(c echo.Context) error {
    n, err := h.Stats.CountByPeriod(c.Request().Context(), c.QueryParam("start_date"), c.QueryParam("end_date"))
    if err != nil {
        return storageError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"count": n})
}

// CountByCase handles GET /tests/count/by-case.  Without dates it counts
// every test per case; with both start_date and end_date it restricts to
// that range and splits each case by developer and approval state.
func (h *StatsHandler) CountByCase(c echo.Context) error {
    ctx := c.Request().Context()
    start, end := c.QueryParam("start_date"), c.QueryParam("end_date")
    if start != "" && end != "" {
        counts, err := h.Stats.CountByCaseDeveloper(ctx, start, end)
        if err != nil {
            return storageError(c, err)
        }
        return c.JSON(http.StatusOK, echo.Map{"counts": counts})
    }
    counts, err := h.Stats.CountByCase(ctx)
    if err != nil {
        return storageError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"counts": counts})
}

// CountByApproval handles GET /tests/count/by-approval.
func (h *StatsHandler) CountByApproval(c echo.Context) error {
    counts, err := h.Stats.CountByApproval(c.Request().Context())
    if err != nil {
        return storageError(c, err)
    }
    return c.JSON(http.StatusOK, counts)
}

// CountByUser handles GET /tests/count/by-user/:period.  An unknown period
// is rejected before any query runs.
func (h *StatsHandler) CountByUser(c echo.Context) error {
    period, err := model.ParsePeriod(c.Param("period"))
    if err != nil {
        return badRequest(c, err.Error())
    }
    counts, err := h.Stats.CountByUser(c.Request().Context(), period)
    if err != nil {
        return storageError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"counts": counts})
}
