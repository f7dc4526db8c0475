package api

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/hexhaven-project/hexhaven/internal/config"
	"github.com/hexhaven-project/hexhaven/internal/db"
	"github.com/hexhaven-project/hexhaven/internal/dispatch"
	"github.com/hexhaven-project/hexhaven/internal/game"
	intnet "github.com/hexhaven-project/hexhaven/internal/network"
	"github.com/hexhaven-project/hexhaven/internal/registry"
	"github.com/hexhaven-project/hexhaven/internal/util"
)

// Server is the REST API server: a read-mostly monitoring surface over
// the game table and connection registry, plus a small set of admin
// operations.
type Server struct {
	cfg   *config.Config
	table *game.Table
	reg   *registry.Registry
	disp  *dispatch.Dispatcher
	store *db.Store // nil when the server runs without accounts

	startedAt  time.Time
	httpServer *http.Server
	router     *gin.Engine
}

// NewServer creates a new API server. store may be nil.
func NewServer(cfg *config.Config, table *game.Table, reg *registry.Registry, disp *dispatch.Dispatcher, store *db.Store) *Server {
	if cfg.GetApplicationData().Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	return &Server{
		cfg:       cfg,
		table:     table,
		reg:       reg,
		disp:      disp,
		store:     store,
		startedAt: time.Now(),
	}
}

// Start builds the router and serves until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.router = s.buildRouter()

	addr := fmt.Sprintf("%s:%d", s.cfg.GetServerData().BindAddress, s.cfg.GetServerData().APIPort)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	sec := s.cfg.GetApplicationData().Security
	if sec.TLSEnabled {
		certFile, keyFile, err := s.ensureCertificate(sec)
		if err != nil {
			return err
		}
		s.httpServer.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return fmt.Errorf("failed to load API TLS certificate: %w", err)
		}
		s.httpServer.TLSConfig.Certificates = []tls.Certificate{cert}
	}

	// SO_REUSEADDR so a restart can rebind immediately
	lc := intnet.ReuseAddrListenConfig()
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("API server error: %w", err)
	}

	log.Info().Str("addr", addr).Bool("tls", sec.TLSEnabled).Msg("REST API server starting")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if sec.TLSEnabled {
		err = s.httpServer.Serve(tls.NewListener(ln, s.httpServer.TLSConfig))
	} else {
		err = s.httpServer.Serve(ln)
	}
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("API server error: %w", err)
	}
	return nil
}

// ensureCertificate returns the configured cert/key pair, generating a
// self-signed one next to the config file when none is configured.
func (s *Server) ensureCertificate(sec config.SecurityConfig) (string, string, error) {
	certFile, keyFile := sec.CertFile, sec.KeyFile
	if certFile != "" && keyFile != "" {
		return certFile, keyFile, nil
	}

	dir := filepath.Dir(s.cfg.Path())
	certFile = filepath.Join(dir, "api-cert.pem")
	keyFile = filepath.Join(dir, "api-key.pem")
	if util.FileExists(certFile) && util.FileExists(keyFile) {
		return certFile, keyFile, nil
	}
	if err := util.GenerateSelfSignedCert(certFile, keyFile); err != nil {
		return "", "", err
	}
	return certFile, keyFile, nil
}

// buildRouter creates the Gin router with all routes and middleware.
func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	router.Use(SecurityHeaders())

	allowedOrigins := s.cfg.GetApplicationData().Security.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	rateLimiter := NewRateLimiter(s.cfg.GetApplicationData().Security.RateLimitRPS)
	router.Use(rateLimiter.Middleware())

	auth := NewAuthMiddleware(s.cfg)

	// ---- Public endpoints ----
	public := router.Group("/api/public")
	{
		public.GET("/ping", s.handlePing)
		public.GET("/server_info", s.handleServerInfo)
		public.GET("/games", s.handlePublicGames)
		public.POST("/register", s.handleRegister)
		public.GET("/stats/:nickname", s.handlePlayerStats)
	}

	// ---- Protected endpoints ----
	protected := router.Group("/api")
	protected.Use(auth.RequireAuth())

	monitor := protected.Group("/monitor")
	{
		monitor.GET("/games", s.handleGetGames)
		monitor.GET("/games/:name", s.handleGetGame)
		monitor.GET("/connections", s.handleGetConnections)
		monitor.GET("/system", s.handleGetSystem)
		monitor.GET("/log_entries", s.handleGetLogEntries)
	}

	control := protected.Group("/control")
	{
		control.DELETE("/games/:name", s.handleDeleteGame)
		control.POST("/games/:name/announce", s.handleAnnounce)
	}

	configure := protected.Group("/configure")
	{
		configure.GET("/config", s.handleGetConfig)
		configure.POST("/server_data", s.handleSetServerData)
		configure.POST("/app_data", s.handleSetAppData)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	return router
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
