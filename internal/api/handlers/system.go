package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bible-game/common/internal/api/interfaces"
	"github.com/bible-game/common/internal/api/models"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

var startTime = time.Now()

// HealthCheck reports liveness and database reachability
func HealthCheck(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := "healthy"
		code := http.StatusOK

		dbCheck := models.HealthCheck{Status: "healthy"}
		start := time.Now()
		if err := services.PingDatabase(ctx); err != nil {
			services.GetLogger().Error("Database health check failed", "error", err.Error())
			dbCheck = models.HealthCheck{Status: "unhealthy", Message: "database unreachable"}
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		dbCheck.Latency = time.Since(start).String()

		c.JSON(code, models.HealthCheckResponse{
			Status:    status,
			Timestamp: time.Now().Unix(),
			Version:   Version,
			Uptime:    int64(time.Since(startTime).Seconds()),
			Checks: map[string]models.HealthCheck{
				"database": dbCheck,
			},
		})
	}
}

// Ping answers without touching any dependency
func Ping() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	}
}
