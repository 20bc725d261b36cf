package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	// Release mode unless tests switched gin to test mode
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Middleware
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health"},
	}))

	r.Use(gin.Recovery())

	// CORS middleware for the admin dashboard
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Routes
	setupRoutes(r, handler, apiAccessKey)

	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	// Health and status endpoints
	r.GET("/health", handler.GetHealth)

	// API endpoints (authenticated when an access key is configured)

	api := r.Group("/api")
	if apiAccessKey != "" {
		api.Use(authMiddleware(apiAccessKey))
		slog.Info("API endpoints require authentication")
	} else {
		slog.Warn("API endpoints are unauthenticated (API_ACCESS_KEY not set)")
	}
	{
		// Report and its slices
		api.GET("/report", handler.GetReport)
		api.POST("/refresh", handler.PostRefresh)
		api.GET("/stats", handler.GetStats)
		api.GET("/timeline", handler.GetTimeline)
		api.GET("/feed", handler.GetFeed)

		// Unread message badge
		api.GET("/unread", handler.GetUnread)
		api.POST("/unread/increment", handler.PostUnreadIncrement)
		api.POST("/unread/decrement", handler.PostUnreadDecrement)
		api.POST("/unread/reset", handler.PostUnreadReset)
		api.POST("/unread/sync", handler.PostUnreadSync)

		// Operator session
		api.POST("/session", handler.PostSession)
		api.DELETE("/session", handler.DeleteSession)
	}

	// Root endpoint with basic information
	r.GET("/", func(c *gin.Context) {
		header := ""
		if apiAccessKey != "" {
			header = "X-API-Key"
		}

		c.JSON(http.StatusOK, gin.H{
			"service":     "Folio Pulse",
			"version":     handler.version,
			"description": "Content analytics and activity feed for the portfolio admin dashboard",
			"endpoints": gin.H{
				"health":   "/health",
				"report":   "/api/report?range=7d|30d|90d",
				"refresh":  "/api/refresh (POST)",
				"stats":    "/api/stats",
				"timeline": "/api/timeline",
				"feed":     "/api/feed?view=dashboard|analytics",
				"unread":   "/api/unread",
				"session":  "/api/session (POST, DELETE)",
			},
			"api_status": gin.H{
				"auth_required": apiAccessKey != "",
				"header":        header,
			},
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// authMiddleware creates authentication middleware for API endpoints
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get API key from X-API-Key header
		providedKey := c.GetHeader("X-API-Key")

		// Also check Authorization header with Bearer prefix
		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		// Check if API key is provided and matches
		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		// Continue to next middleware/handler
		c.Next()
	}
}
