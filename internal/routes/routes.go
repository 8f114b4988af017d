// internal/routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/acascioli/serial-chiller/internal/config"
	"github.com/acascioli/serial-chiller/internal/database"
	"github.com/acascioli/serial-chiller/internal/handler"
	"github.com/acascioli/serial-chiller/internal/middleware"
	"github.com/acascioli/serial-chiller/internal/service"
	"github.com/acascioli/serial-chiller/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config           *config.Config
	logger           *zap.Logger
	db               *database.DB
	sessionService   *service.SessionService
	exchangeService  *service.ExchangeService
	discoveryService *service.DiscoveryService
	eventBus         *handler.EventBus
}

// NewRouter creates a new router instance
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	db *database.DB,
	sessionService *service.SessionService,
	exchangeService *service.ExchangeService,
	discoveryService *service.DiscoveryService,
	eventBus *handler.EventBus,
) *Router {
	return &Router{
		config:           config,
		logger:           logger,
		db:               db,
		sessionService:   sessionService,
		exchangeService:  exchangeService,
		discoveryService: discoveryService,
		eventBus:         eventBus,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	// Set Gin mode
	switch {
	case r.config.IsProduction():
		gin.SetMode(gin.ReleaseMode)
	case r.config.IsDebugEnabled():
		gin.SetMode(gin.DebugMode)
	default:
		gin.SetMode(gin.TestMode)
	}

	router := gin.New()

	r.addMiddleware(router)
	r.addRoutes(router)

	return router
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	router.Use(middleware.CORSMiddleware(&r.config.Security))

	r.logger.Info("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	// Create handlers
	healthHandler := handler.NewHealthHandler(r.config, r.db, r.logger)
	sessionHandler := handler.NewSessionHandler(r.sessionService, r.exchangeService, r.logger)
	commandHandler := handler.NewCommandHandler(r.exchangeService, r.logger)
	discoveryHandler := handler.NewDiscoveryHandler(r.discoveryService, r.logger)
	wsHandler := handler.NewWebSocketHandler(r.sessionService, r.exchangeService, r.eventBus, r.logger)

	// Health check routes
	r.addHealthRoutes(router, healthHandler)

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	r.addSessionRoutes(apiV1, sessionHandler, commandHandler)
	r.addCommandRoutes(apiV1, commandHandler)
	r.addDiscoveryRoutes(apiV1, discoveryHandler)

	// WebSocket routes
	r.addWebSocketRoutes(router, wsHandler)

	// Documentation routes
	r.addDocumentationRoutes(router)

	r.logger.Info("All routes configured successfully")
}

// addHealthRoutes sets up health check routes
func (r *Router) addHealthRoutes(router *gin.Engine, handler *handler.HealthHandler) {
	health := router.Group("")
	{
		health.GET("/health", handler.Health)
		health.GET("/ready", handler.Readiness)
		health.GET("/live", handler.Liveness)
	}
}

// addSessionRoutes sets up session management routes
func (r *Router) addSessionRoutes(api *gin.RouterGroup, sessionHandler *handler.SessionHandler, commandHandler *handler.CommandHandler) {
	sessions := api.Group("/sessions")
	{
		sessions.POST("", sessionHandler.OpenSession)
		sessions.GET("", sessionHandler.ListSessions)

		session := sessions.Group("/:session_id")
		{
			session.GET("", sessionHandler.GetSession)
			session.DELETE("", sessionHandler.CloseSession)
			session.GET("/transcript", sessionHandler.GetTranscript)
			session.POST("/commands", commandHandler.ExecuteCommand)
		}
	}
}

// addCommandRoutes sets up command catalog routes
func (r *Router) addCommandRoutes(api *gin.RouterGroup, handler *handler.CommandHandler) {
	api.GET("/commands", handler.ListCommands)
}

// addDiscoveryRoutes sets up port discovery routes
func (r *Router) addDiscoveryRoutes(api *gin.RouterGroup, handler *handler.DiscoveryHandler) {
	api.GET("/ports", handler.ListPorts)
}

// addWebSocketRoutes sets up WebSocket routes
func (r *Router) addWebSocketRoutes(router *gin.Engine, handler *handler.WebSocketHandler) {
	ws := router.Group("/ws")
	handler.RegisterRoutes(ws)
}

// addDocumentationRoutes sets up documentation routes
func (r *Router) addDocumentationRoutes(router *gin.Engine) {
	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	// Swagger redirect for convenience
	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
}
