package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/handler"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/pkg/metrics"
)

type Router struct {
	Engine *gin.Engine
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
		)
	}
}

func NewRouter(syncHandler *handler.SyncHandler, jwtSecret string) *Router {
	r := gin.Default()
	r.Use(metricsMiddleware())

	// Public
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected
	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		auth.POST("/sync", syncHandler.TriggerSync)
		auth.GET("/sync/results", syncHandler.GetResults)
		auth.GET("/sync/unparsed", syncHandler.GetUnparsed)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
