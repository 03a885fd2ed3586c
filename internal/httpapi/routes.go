// Package httpapi exposes the engine's read-only control surface: health,
// status snapshots, Prometheus metrics, and the live dashboard feed.
// Adapted from the teacher's gin router, trimmed to the observer-only
// surface this engine needs (no mutating endpoints: the engine has no
// externally triggerable actions besides the event loop itself).
package httpapi

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/instagibbs/anticycle/internal/cycle"
	"github.com/instagibbs/anticycle/internal/dashboard"
)

// StatsProvider is the subset of *cycle.Engine the router needs for
// /status, kept as an interface so routes_test.go can use a fake.
type StatsProvider interface {
	Stats() cycle.Stats
}

// SetupRouter builds the gin engine serving /healthz, /status, /metrics,
// and /dashboard/ws.
func SetupRouter(engine StatsProvider, hub *dashboard.Hub) *gin.Engine {
	r := gin.Default()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	r.GET("/healthz", handleHealth)
	r.GET("/status", handleStatus(engine))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/dashboard/ws", hub.Subscribe)

	return r
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func handleStatus(engine StatsProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := engine.Stats()
		c.JSON(http.StatusOK, gin.H{
			"dummyCacheSize":     s.DummyCacheSize,
			"dummyBytes":         s.DummyBytes,
			"protectedCacheSize": s.ProtectedCacheSize,
			"protectedBytes":     s.ProtectedBytes,
			"utxoCacheSize":      s.UTXOCacheSize,
			"topblockRate":       s.TopblockRate,
			"eventCount":         s.EventCount,
		})
	}
}
