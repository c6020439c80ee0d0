package root

import (
	"bridge/waitlist-api/internal"
	"bridge/waitlist-api/internal/service"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const serviceName = "bridge-waitlist"

// Health reports whether the database answers and a real mail provider is
// configured. It always answers 200 so the payload can be inspected.
func Health(c *gin.Context, d *internal.Deps) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbOK := true
	if err := d.Store.Ping(ctx); err != nil {
		zap.L().Warn("Database ping failed", zap.Error(err), zap.String("request_id", c.GetString("requestID")))
		dbOK = false
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":                dbOK,
		"service":           serviceName,
		"version":           d.Config.App.Version,
		"databaseConnected": dbOK,
		"emailConfigured":   d.Mailer.Provider() != service.ProviderLog,
	})
}
