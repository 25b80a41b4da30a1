package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/platformbuilds/alertdesk/internal/api/handlers"
	"github.com/platformbuilds/alertdesk/internal/api/middleware"
	"github.com/platformbuilds/alertdesk/internal/config"
	"github.com/platformbuilds/alertdesk/internal/monitoring"
	"github.com/platformbuilds/alertdesk/internal/services"
	"github.com/platformbuilds/alertdesk/internal/version"
	"github.com/platformbuilds/alertdesk/pkg/cache"
	"github.com/platformbuilds/alertdesk/pkg/logger"
)

type Server struct {
	config     *config.Config
	logger     logger.Logger
	cache      cache.Cache
	upstream   services.IncidentAPI
	registry   *services.ViewRegistry
	router     *gin.Engine
	httpServer *http.Server
}

func NewServer(
	cfg *config.Config,
	log logger.Logger,
	c cache.Cache,
	upstream services.IncidentAPI,
	registry *services.ViewRegistry,
) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &Server{
		config:   cfg,
		logger:   log,
		cache:    c,
		upstream: upstream,
		registry: registry,
		router:   gin.New(),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.CORSMiddleware(s.config.CORS))
	s.router.Use(middleware.RequestLogger(s.logger))
	if s.config.Monitoring.PrometheusEnabled {
		s.router.Use(middleware.MetricsMiddleware())
	}
	s.router.Use(middleware.ErrorHandler(s.logger))

	// OpenAPI document and Swagger UI (/swagger/index.html)
	s.router.StaticFile("/api/openapi.yaml", handlers.ResolveOpenAPIPath())
	s.router.GET("/api/openapi.json", handlers.GetOpenAPISpec)
	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/api/openapi.yaml")))

	if s.config.Monitoring.PrometheusEnabled {
		monitoring.SetupPrometheusMetrics(s.router, version.Version)
	}
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.upstream, s.cache, s.registry, s.logger)
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)

	s.router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/swagger/index.html")
	})

	views := s.router.Group("/api/v1/views")

	viewHandler := handlers.NewViewHandler(s.registry, s.logger)
	views.GET("/:id", viewHandler.GetView)
	views.DELETE("/:id", viewHandler.UnmountView)

	if s.config.WebSocket.Enabled {
		stream := handlers.NewViewStreamHandler(s.registry, s.config.WebSocket, s.logger)
		views.GET("/:id/stream", stream.Stream)
	}

	incidents := handlers.NewIncidentViewHandler(s.registry, s.logger)
	views.POST("/incidents/:pk", incidents.Mount)
	views.POST("/:id/close", incidents.Close)
	views.POST("/:id/reopen", incidents.Reopen)
	views.POST("/:id/acks", incidents.Acknowledge)
	views.POST("/:id/ticket/edit", incidents.BeginTicketEdit)
	views.PUT("/:id/ticket/draft", incidents.SetTicketDraft)
	views.POST("/:id/ticket/save", incidents.SaveTicket)
	views.POST("/:id/ticket/cancel", incidents.CancelTicketEdit)

	filters := handlers.NewFilterViewHandler(s.registry, s.logger)
	views.POST("/filters", filters.Mount)
	views.POST("/:id/filters", filters.CreateFilter)
	views.DELETE("/:id/filters/:pk", filters.DeleteFilter)
	views.POST("/:id/preview", filters.Preview)
	views.GET("/:id/preview/alerts", filters.PreviewAlerts)
	views.POST("/:id/dialog/close", filters.CloseDialog)
}

// Start serves until ctx is done, then unmounts every view and shuts the
// HTTP server down.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if idle := time.Duration(s.config.Views.IdleTimeout) * time.Second; idle > 0 {
		go s.registry.StartJanitor(ctx, idle/2)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("alertdesk API server starting", "port", s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		s.logger.Info("Shutting down alertdesk gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Closing the views ends their streams so Shutdown is not held up by
	// hijacked WebSocket connections.
	s.registry.CloseAll()

	return s.httpServer.Shutdown(shutdownCtx)
}

// Handler returns the underlying Gin engine so tests (or embedders) can mount it.
func (s *Server) Handler() http.Handler {
	return s.router
}
