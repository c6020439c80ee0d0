package app

import (
	"bridge/waitlist-api/app/root"
	"bridge/waitlist-api/app/waitlist"
	"bridge/waitlist-api/internal"
	"bridge/waitlist-api/pkg/middleware"
	"fmt"
	"net/http"
	"time"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const maxSubmitBody = 64 << 10

func NewRouter(d *internal.Deps) (*gin.Engine, error) {
	cfg := d.Config
	router := gin.New()

	if err := router.SetTrustedProxies(cfg.Host.TrustedProxies); err != nil {
		return nil, fmt.Errorf("failed to set trusted proxies, %w", err)
	}

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     cfg.Host.CORS,
			AllowMethods:     []string{"GET", "POST", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "TurnstileToken"},
			ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				return fields
			},
		}),
		gin.CustomRecovery(func(c *gin.Context, err any) {
			zap.L().Error("Recovered from panic",
				zap.Any("error", err),
				zap.String("request_id", c.GetString("requestID")))

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"ok":      false,
				"message": "INTERNAL_SERVER_ERROR",
			})
		}),
	)

	router.HandleMethodNotAllowed = true

	store := persist.NewMemoryStore(time.Minute)
	cacheFor := func(sec int) gin.HandlerFunc {
		return cache.CacheByRequestURI(store, time.Second*time.Duration(sec))
	}

	rateLimiter := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.Security.RateLimit,
		Burst:             cfg.Security.RateLimit * 2,
		CleanupInterval:   time.Minute,
	})
	turnstile := middleware.NewTurnstileMiddleware(middleware.TurnstileConfig{
		Enabled: cfg.Turnstile.Enabled,
		Secret:  cfg.Turnstile.SecretToken,
	})

	m := router.Group("/api", rateLimiter)
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		m.HEAD("/heartbeat", root.Heartbeat)

		// GET /api/health		-> Reports database and mail status
		m.GET("/health", cacheFor(5), func(c *gin.Context) { root.Health(c, d) })

		// POST /api/waitlist		-> Adds a signup to the waitlist and sends the confirmation email
		m.POST("/waitlist",
			middleware.WindowLimiterMiddleware(d.Limiter),
			middleware.BodySizeLimiter(maxSubmitBody),
			turnstile,
			func(c *gin.Context) { waitlist.WaitlistSubmit(c, d) })

		// GET /api/confirm		-> Consumes a confirmation token
		m.GET("/confirm", func(c *gin.Context) { waitlist.WaitlistConfirm(c, d) })
	}

	return router, nil
}
