package handler

import (
	"main/services"
	"main/utils"
	"time"

	"github.com/gin-gonic/gin"
)

// NewHealthHandler reports liveness plus a basic system snapshot. The cache
// may be nil when the deployment runs without Redis; IsConnected handles
// that and reports false.
func NewHealthHandler(cache *services.SnapshotCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		utils.Success(c, gin.H{
			"status":          "ok",
			"time":            time.Now().UTC(),
			"cpu_percent":     utils.GetCPUUsage(),
			"cache_connected": cache.IsConnected(),
		})
	}
}
