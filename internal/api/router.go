package api

import (
	"github.com/gin-gonic/gin"

	"cloakedsheets/internal/api/chat"
	"cloakedsheets/internal/api/data"
	"cloakedsheets/internal/api/middleware"
	"cloakedsheets/internal/api/prefs"
	"cloakedsheets/internal/notify"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	APIKey       string
	AllowOrigins []string
}

// SetupRouter sets up the Gin router
func SetupRouter(
	chatHandler *chat.Handler,
	dataHandler *data.Handler,
	prefsHandler *prefs.Handler,
	bus *notify.Bus,
	cfg RouterConfig,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middleware.CORS(cfg.AllowOrigins))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	apiGroup := r.Group("/api")
	apiGroup.Use(middleware.Auth(cfg.APIKey))

	chatHandler.RegisterRoutes(apiGroup.Group("/chat"))
	dataHandler.RegisterRoutes(apiGroup.Group("/datasets"), apiGroup.Group("/reports"))
	prefsHandler.RegisterRoutes(apiGroup.Group("/settings"))
	apiGroup.GET("/events", Events(bus))

	return r
}
