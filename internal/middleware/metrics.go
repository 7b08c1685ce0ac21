package middleware

import (
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records request counts and latencies per route on its own
// registry, so several servers (e.g. in tests) can coexist in one process.
type Metrics struct {
    Registry *prometheus.Registry
    requests *prometheus.CounterVec
    duration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
    reg := prometheus.NewRegistry()
    m := &Metrics{
        Registry: reg,
        requests: prometheus.NewCounterVec(prometheus.CounterOpts{
            Name: "http_requests_total",
            Help: "HTTP requests processed, by method, route and status.",
        }, []string{"method", "route", "status"}),
        duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
            Name:    "http_request_duration_seconds",
            Help:    "HTTP request latency, by method and route.",
            Buckets: prometheus.DefBuckets,
        }, []string{"method", "route"}),
    }
    reg.MustRegister(
        m.requests,
        m.duration,
        collectors.NewGoCollector(),
        collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
    )
    return m
}

// Middleware observes every request.  Routes are labelled by their pattern
// (e.g. /tests/:id) to keep label cardinality bounded.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)

            status := c.Response().Status
            if err != nil {
                var he *echo.HTTPError
                if errors.As(err, &he) {
                    status = he.Code
                } else {
                    status = http.StatusInternalServerError
                }
            }
            route := c.Path()
            if route == "" {
                route = "unmatched"
            }
            method := c.Request().Method
            m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
            m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
            return err
        }
    }
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() echo.HandlerFunc {
    return echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
}
