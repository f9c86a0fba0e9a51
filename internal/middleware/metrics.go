package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts failed Redis commands by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postboard_redis_errors_total",
		Help: "Total number of failed Redis commands",
	}, []string{"command"})

	// AuthFailures counts rejected sign-ins and session tokens by reason.
	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postboard_auth_failures_total",
		Help: "Total number of rejected credentials or session tokens",
	}, []string{"reason"})

	// CascadeDeletedRows counts rows removed by post deletion, by table.
	CascadeDeletedRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postboard_cascade_deleted_rows_total",
		Help: "Total number of rows removed while deleting posts",
	}, []string{"table"})

	// EventsObserved counts activity events received from pub/sub, by type.
	EventsObserved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postboard_events_observed_total",
		Help: "Total number of activity events received over pub/sub",
	}, []string{"type"})
)

var (
	promOnce     sync.Once
	promInstance *fiberprometheus.FiberPrometheus
)

// InitMetrics returns the process-wide Fiber Prometheus middleware. The
// collectors register with the default registry, so they are created once.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		promInstance = fiberprometheus.New(serviceName)
	})
	return promInstance
}

// MetricsMiddleware records request metrics, skipping the scrape endpoint itself.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}
		return prom.Middleware(c)
	}
}
