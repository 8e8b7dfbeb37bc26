package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"story-content-gateway/config"
	"story-content-gateway/handlers"
	"story-content-gateway/services"
)

// Server represents the HTTP server
type Server struct {
	config     *config.Config
	router     *mux.Router
	httpServer *http.Server
	services   *services.ServiceContainer

	// Handlers
	treeHandler       *handlers.TreeHandler
	structureHandler  *handlers.StructureHandler
	monitoringHandler *handlers.MonitoringHandler
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) *Server {
	serviceFactory := services.NewServiceFactory(cfg)
	serviceContainer, err := serviceFactory.CreateServices()
	if err != nil {
		log.Fatalf("Failed to create services: %v", err)
	}

	return NewServerWithServices(cfg, serviceContainer)
}

// NewServerWithServices creates a server around an existing container
func NewServerWithServices(cfg *config.Config, serviceContainer *services.ServiceContainer) *Server {
	router := mux.NewRouter()

	treeHandler := handlers.NewTreeHandler(
		serviceContainer.TreeCache,
		serviceContainer.FingerprintService,
		cfg.Cache.HTTPMaxAge,
		cfg.Cache.HTTPStaleWhileRevalidate,
	)
	structureHandler := handlers.NewStructureHandler(
		serviceContainer.RelationshipService,
		serviceContainer.Store,
	)
	monitoringHandler := handlers.NewMonitoringHandler(
		serviceContainer.Monitor,
		serviceContainer.MetricsService,
		serviceContainer.TreeCache,
		serviceContainer.ConsistencyChecker,
		serviceContainer.HealthService,
		serviceContainer.Authorizer,
	)

	server := &Server{
		config:            cfg,
		router:            router,
		services:          serviceContainer,
		treeHandler:       treeHandler,
		structureHandler:  structureHandler,
		monitoringHandler: monitoringHandler,
		httpServer: &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
	}

	server.setupRoutes()
	server.setupMiddleware()

	return server
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.monitoringHandler.GetHealth).Methods("GET", "OPTIONS")

	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Tree reads
	api.HandleFunc("/stories/{id}/tree", s.treeHandler.GetTree).Methods("GET", "OPTIONS")

	// Story lifecycle
	api.HandleFunc("/stories", s.structureHandler.CreateStory).Methods("POST")
	api.HandleFunc("/stories/{id}/publish-status", s.structureHandler.SetPublishStatus).Methods("PUT")

	// Structural writes
	api.HandleFunc("/stories/{id}/parts", s.structureHandler.AddPart).Methods("POST")
	api.HandleFunc("/stories/{id}/chapters", s.structureHandler.AddStandaloneChapter).Methods("POST")
	api.HandleFunc("/parts/{id}/chapters", s.structureHandler.AddChapter).Methods("POST")
	api.HandleFunc("/chapters/{id}/scenes", s.structureHandler.AddScene).Methods("POST")
	api.HandleFunc("/parts/{id}/title", s.structureHandler.RenamePart).Methods("PUT")
	api.HandleFunc("/chapters/{id}/title", s.structureHandler.RenameChapter).Methods("PUT")
	api.HandleFunc("/scenes/{id}", s.structureHandler.UpdateScene).Methods("PUT")
	api.HandleFunc("/parts/{id}", s.structureHandler.DeletePart).Methods("DELETE")
	api.HandleFunc("/chapters/{id}", s.structureHandler.DeleteChapter).Methods("DELETE")
	api.HandleFunc("/scenes/{id}", s.structureHandler.DeleteScene).Methods("DELETE")

	// Monitoring
	api.HandleFunc("/monitoring", s.monitoringHandler.GetMonitoringReport).Methods("GET")
	api.HandleFunc("/monitoring/metrics", s.monitoringHandler.GetPerformanceMetrics).Methods("GET")
	api.HandleFunc("/monitoring/alerts/{id}/ack", s.monitoringHandler.AcknowledgeAlert).Methods("POST")
	api.HandleFunc("/monitoring/cache", s.monitoringHandler.GetCacheStats).Methods("GET")
	api.HandleFunc("/monitoring/cache/clear", s.monitoringHandler.ClearCache).Methods("POST")
	api.HandleFunc("/monitoring/consistency", s.monitoringHandler.GetConsistencyReport).Methods("GET")
	api.HandleFunc("/monitoring/integrity", s.monitoringHandler.GetIntegrityReport).Methods("GET")
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// CORS must be first to handle preflight requests
	s.router.Use(s.corsMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.contentTypeMiddleware)

	if s.config.Performance.MonitoringEnabled && s.services.MetricsService != nil {
		s.router.Use(s.performanceMiddleware)
	}
}

// Start starts the HTTP server and blocks until shutdown
func (s *Server) Start() error {
	log.Printf("Starting server on port %s", s.config.Server.Port)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	return s.Shutdown()
}

// Shutdown gracefully shuts down the server and releases service resources
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	s.services.Shutdown()
	return err
}

// Router exposes the configured router, for tests
func (s *Server) Router() *mux.Router {
	return s.router
}
