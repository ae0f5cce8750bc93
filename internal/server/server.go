// Package server exposes the HTTP API: receipt ingestion, the budget
// dashboard, and category management. Routing and request validation live
// here; all domain behavior is delegated to the engine, ledger, and storage.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mfinch/pocketwatch/internal/budget"
	"github.com/mfinch/pocketwatch/internal/engine"
	"github.com/mfinch/pocketwatch/internal/service"
)

// Config holds the HTTP layer's tunables.
type Config struct {
	ListenAddr          string
	UploadDir           string
	MaxUploadBytes      int64
	ConfidenceThreshold float64
}

// Server wires the HTTP routes to the application components.
type Server struct {
	router     *gin.Engine
	storage    service.Storage
	blobs      service.BlobStore
	processor  *engine.Processor
	ledger     *budget.Ledger
	aggregator *budget.Aggregator
	logger     *slog.Logger
	cfg        Config
}

// New creates a server and registers all routes.
func New(cfg Config, storage service.Storage, blobs service.BlobStore, processor *engine.Processor, ledger *budget.Ledger, aggregator *budget.Aggregator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router:     router,
		storage:    storage,
		blobs:      blobs,
		processor:  processor,
		ledger:     ledger,
		aggregator: aggregator,
		logger:     logger,
		cfg:        cfg,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Use(s.requestLogger())

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if s.cfg.UploadDir != "" {
		s.router.Static("/uploads", s.cfg.UploadDir)
	}

	api := s.router.Group("/")
	api.Use(s.authenticate())
	{
		api.POST("/receipts/manual", s.createManualReceipt)
		api.POST("/receipts/upload", s.uploadReceipt)
		api.GET("/receipts", s.listReceipts)
		api.GET("/receipts/:id", s.getReceipt)
		api.PATCH("/receipts/:id", s.updateReceipt)
		api.DELETE("/receipts/:id", s.deleteReceipt)

		api.GET("/budget", s.getDashboard)
		api.PUT("/budget/categories/:id", s.setBudget)

		api.GET("/categories", s.listCategories)
		api.POST("/categories", s.createCategory)
		api.PATCH("/categories/:id", s.updateCategory)
		api.DELETE("/categories/:id", s.deleteCategory)
	}
}

// Handler returns the underlying HTTP handler, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP on the configured listen address until the listener fails.
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("listening", "addr", s.cfg.ListenAddr)
	return srv.ListenAndServe()
}
