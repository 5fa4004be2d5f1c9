package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/link/internal/cache"
	"github.com/thereayou/link/internal/config"
	"github.com/thereayou/link/internal/coordination"
	"github.com/thereayou/link/internal/database"
	"github.com/thereayou/link/internal/handlers"
	"github.com/thereayou/link/internal/matching"
	"github.com/thereayou/link/internal/memstore"
	"github.com/thereayou/link/internal/middleware"
	"github.com/thereayou/link/internal/oracle"
	"github.com/thereayou/link/internal/services"
	"github.com/thereayou/link/internal/websocket"
	"github.com/thereayou/link/pkg/auth"
	"go.uber.org/zap"
)

type Server struct {
	Config     config.Config
	Router     *gin.Engine
	Store      services.DatabaseService
	Cache      *cache.Cache
	Hub        *websocket.Hub
	JWTManager *auth.JWTManager
	log        *zap.Logger
	closers    []func() error
}

func NewServer(ctx context.Context, cfg config.Config, log *zap.Logger) (*Server, error) {
	s := &Server{Config: cfg, log: log}

	if cfg.Storage.DatabaseURL != "" {
		db, err := database.Connect(cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres connect failed: %w", err)
		}
		s.Store = db
		s.closers = append(s.closers, db.Close)
		log.Info("using postgres store")
	} else {
		s.Store = memstore.New()
		log.Info("DATABASE_URL not set, using in-memory store")
	}

	s.Cache = cache.New(ctx, cfg.Storage.RedisURL, log.Named("cache"))
	s.closers = append(s.closers, s.Cache.Close)

	engineOpts := []matching.Option{matching.WithTimeout(cfg.Oracle.Timeout)}
	if cfg.Oracle.APIKey != "" {
		var o matching.Oracle = oracle.NewOpenAI(cfg.Oracle.APIKey, cfg.Oracle.Model)
		o = oracle.NewCached(o, s.Cache, cfg.Oracle.CacheTTL, log.Named("oracle"))
		engineOpts = append(engineOpts, matching.WithOracle(o))
		log.Info("oracle enabled", zap.String("model", cfg.Oracle.Model))
	}
	engine := matching.NewEngine(log.Named("matching"), engineOpts...)

	s.Hub = websocket.NewHub(log.Named("hub"))
	s.JWTManager = auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL)

	svc := coordination.New(s.Store, engine, s.Hub, log.Named("coordination"))

	var tokens handlers.TokenVerifier
	if cfg.Realtime.RequireToken {
		tokens = s.JWTManager
	}

	if cfg.App.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery(log), middleware.RequestLogger(log.Named("http")))

	APIEndpoints(router, Handlers{
		Auth:         handlers.NewAuthHandler(s.Store, s.JWTManager, s.Cache, log),
		User:         handlers.NewUserHandler(svc, log),
		Event:        handlers.NewEventHandler(svc, log),
		Participant:  handlers.NewParticipantHandler(svc, log),
		Availability: handlers.NewAvailabilityHandler(svc, log),
		Group:        handlers.NewGroupHandler(svc, log),
		Message:      handlers.NewHTTPMessageHandler(svc, log),
		AI:           handlers.NewAIHandler(svc, log),
		WebSocket: handlers.NewWebSocketHandler(
			s.Hub,
			handlers.NewMessageHandler(svc, s.Hub, tokens, log.Named("realtime")),
			cfg.Realtime.AllowedOrigins,
			log.Named("ws"),
		),
	}, middleware.AuthMiddleware(s.JWTManager, s.Cache),
		middleware.WSAuthMiddleware(s.JWTManager, s.Cache, true))

	s.Router = router
	return s, nil
}

// Run обслуживает HTTP до отмены ctx, затем закрывает соединения и хранилища.
func (s *Server) Run(ctx context.Context) error {
	go s.Hub.Run()

	httpSrv := &http.Server{
		Addr:              ":" + s.Config.App.HTTPPort,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("port", s.Config.App.HTTPPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("http shutdown", zap.Error(err))
	}
	s.Hub.Stop()

	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			s.log.Warn("close failed", zap.Error(err))
		}
	}
	return runErr
}
