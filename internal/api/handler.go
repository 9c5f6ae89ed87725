package api

import (
	"net/http"
	"strconv"
	"time"

	"cdc-generator/internal/generator"
	"cdc-generator/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusProvider exposes the progress of a generator run
type StatusProvider interface {
	Ready() bool
	Stats() generator.Stats
}

// Handler contains HTTP handlers
type Handler struct {
	status StatusProvider
}

// NewHandler creates a new HTTP handler
func NewHandler(status StatusProvider) *Handler {
	return &Handler{
		status: status,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/status", h.getStatus)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready once existing keys have been seeded
func (h *Handler) readinessCheck(c *gin.Context) {
	if !h.status.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "seeding",
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.status.Stats())
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
