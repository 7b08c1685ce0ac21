package router

import (
    "context"
    "database/sql"
    "net/http"
    "net/http/httptest"
    "path/filepath"
    "strings"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/case-approval-tracker/internal/config"
    "github.com/iliyamo/case-approval-tracker/internal/database"
    "github.com/iliyamo/case-approval-tracker/internal/handler"
    "github.com/iliyamo/case-approval-tracker/internal/middleware"
    "github.com/iliyamo/case-approval-tracker/internal/repository"
)

func newServer(t *testing.T) *echo.Echo {
    t.Helper()
    ctx := context.Background()
    db, err := database.Open(ctx, filepath.Join(t.TempDir(), "app.db"))
    require.NoError(t, err)
    t.Cleanup(func() { _ = db.Close() })
    _, err = database.Migrate(ctx, db)
    require.NoError(t, err)
    return wire(db, nil)
}

func wire(db *sql.DB, limiter *middleware.RateLimiter) *echo.Echo {
    cfg := config.Config{AllowOrigins: []string{"*"}, BodyLimit: "1K", PublicDir: "testdata"}
    metrics := middleware.NewMetrics()

    e := New(cfg, metrics)
    RegisterRoutes(e, db, metrics, cfg.PublicDir)
    RegisterUsers(e, handler.NewUserHandler(repository.NewUserRepo(db)), limiter.API())
    RegisterTests(e, handler.NewTestHandler(repository.NewTestRepo(db), nil), limiter.API())
    RegisterStats(e, handler.NewStatsHandler(repository.NewStatsRepo(db)), limiter.Stats())
    return e
}

func serve(e *echo.Echo, method, target, body string, headers ...string) *httptest.ResponseRecorder {
    var req *http.Request
    if body != "" {
        req = httptest.NewRequest(method, target, strings.NewReader(body))
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    } else {
        req = httptest.NewRequest(method, target, nil)
    }
    for i := 0; i+1 < len(headers); i += 2 {
        req.Header.Set(headers[i], headers[i+1])
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func TestRoutes_EndToEnd(t *testing.T) {
    e := newServer(t)

    rec := serve(e, http.MethodPost, "/users", `{"username":"alice"}`)
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"id":1}`, rec.Body.String())

    rec = serve(e, http.MethodPost, "/tests", `{"case_id":10,"user_id":1}`)
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"id":1}`, rec.Body.String())

    rec = serve(e, http.MethodPatch, "/tests/1", `{"approved":1}`)
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"message":"Test updated successfully","id":"1"}`, rec.Body.String())

    rec = serve(e, http.MethodGet, "/tests/count/by-approval", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t,
        `{"approved":1,"rejected":0,"undefined":0,"top_approved_developers":"","top_rejected_developers":""}`,
        rec.Body.String())

    rec = serve(e, http.MethodGet, "/tests/count/by-user/today", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"username":"alice","count":1`)

    rec = serve(e, http.MethodGet, "/tests/count/by-user/xyz", "")
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.JSONEq(t, `{"error":"Invalid period"}`, rec.Body.String())

    rec = serve(e, http.MethodDelete, "/tests/1", "")
    require.Equal(t, http.StatusOK, rec.Code)
    rec = serve(e, http.MethodGet, "/tests?case_id=10", "")
    assert.JSONEq(t, `{"tests":[]}`, rec.Body.String())
}

func TestRoutes_CORSAllowsAnyOrigin(t *testing.T) {
    e := newServer(t)

    rec := serve(e, http.MethodGet, "/users", "", echo.HeaderOrigin, "https://dash.example")
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

    rec = serve(e, http.MethodOptions, "/tests/1", "",
        echo.HeaderOrigin, "https://dash.example",
        echo.HeaderAccessControlRequestMethod, http.MethodPatch)
    assert.Equal(t, http.StatusNoContent, rec.Code)
    assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodPatch)
}

func TestRoutes_BodyLimit(t *testing.T) {
    e := newServer(t)
    rec := serve(e, http.MethodPost, "/users", `{"username":"`+strings.Repeat("x", 2048)+`"}`)
    assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRoutes_HealthAndMetrics(t *testing.T) {
    e := newServer(t)

    rec := serve(e, http.MethodGet, "/healthz", "")
    assert.Equal(t, http.StatusOK, rec.Code)

    serve(e, http.MethodGet, "/users", "")
    rec = serve(e, http.MethodGet, "/metrics", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/users",status="200"} 1`)
}

func TestRoutes_Dashboard(t *testing.T) {
    e := newServer(t)
    rec := serve(e, http.MethodGet, "/dashboard", "")
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), "<html")
}

func TestRoutes_RateLimitSparesDashboardPolling(t *testing.T) {
    ctx := context.Background()
    db, err := database.Open(ctx, filepath.Join(t.TempDir(), "app.db"))
    require.NoError(t, err)
    t.Cleanup(func() { _ = db.Close() })
    _, err = database.Migrate(ctx, db)
    require.NoError(t, err)

    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = rdb.Close() })

    limiter := middleware.NewRateLimiter(config.RateLimitConfig{
        Enabled:        true,
        Capacity:       2,
        RefillTokens:   1,
        RefillInterval: time.Minute,
        TTL:            time.Hour,
        KeyStrategy:    config.KeyByIP,
        Prefix:         "rl",
    }, rdb)
    e := wire(db, limiter)

    for i := 0; i < 2; i++ {
        rec := serve(e, http.MethodPost, "/users", `{"username":"alice"}`)
        require.Equal(t, http.StatusOK, rec.Code)
    }
    rec := serve(e, http.MethodGet, "/users", "")
    assert.Equal(t, http.StatusTooManyRequests, rec.Code)
    assert.Equal(t, "60", rec.Header().Get("Retry-After"))

    for i := 0; i < 5; i++ {
        rec := serve(e, http.MethodGet, "/tests/count/by-approval", "")
        assert.Equal(t, http.StatusOK, rec.Code)
        assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
    }
    rec = serve(e, http.MethodGet, "/healthz", "")
    assert.Equal(t, http.StatusOK, rec.Code)
}
