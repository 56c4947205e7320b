package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"weatherbet/service"
)

// OwnerHeader selects the wallet and history a request acts on
const OwnerHeader = "X-Owner"

// Options configures the HTTP server
type Options struct {
	DefaultOwner string
	Environment  string
}

// Server exposes betting and resolution over HTTP
type Server struct {
	betting      service.BettingService
	resolution   service.ResolutionService
	odds         service.OddsCalculator
	hub          *Hub
	defaultOwner string
	engine       *gin.Engine
	httpServer   *http.Server
}

// NewServer creates the router with every route registered
func NewServer(betting service.BettingService, resolution service.ResolutionService, odds service.OddsCalculator, hub *Hub, opts Options) *Server {
	if opts.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else if opts.Environment == "test" {
		gin.SetMode(gin.TestMode)
	}
	if opts.DefaultOwner == "" {
		opts.DefaultOwner = "local"
	}

	s := &Server{
		betting:      betting,
		resolution:   resolution,
		odds:         odds,
		hub:          hub,
		defaultOwner: opts.DefaultOwner,
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+OwnerHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	routes := router.Group("/api")
	{
		bets := routes.Group("/bets")
		{
			bets.POST("", s.placeBet)
			bets.GET("", s.listBets)
			bets.GET("/:id", s.getBet)
		}

		routes.POST("/sweep", s.sweep)
		routes.GET("/quota/:category", s.quota)
		routes.GET("/odds/:category", s.quote)
		routes.GET("/wallet", s.wallet)
		routes.GET("/stats", s.stats)

		if hub != nil {
			routes.GET("/ws", hub.HandleWebSocket)
		}
	}

	s.engine = router
	return s
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves on port in the background
func (s *Server) Start(port string) {
	s.httpServer = &http.Server{
		Addr:              ":" + port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", port).Info("HTTP server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("HTTP server stopped")
		}
	}()
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Close()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) owner(c *gin.Context) string {
	if owner := c.GetHeader(OwnerHeader); owner != "" {
		return owner
	}
	if owner := c.Query("owner"); owner != "" {
		return owner
	}
	return s.defaultOwner
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(started),
		}).Debug("Handled request")
	}
}
