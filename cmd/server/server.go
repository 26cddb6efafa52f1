package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/thereayou/workspace-chat/internal/config"
	"github.com/thereayou/workspace-chat/internal/database"
	"github.com/thereayou/workspace-chat/internal/relay"
	ws "github.com/thereayou/workspace-chat/internal/websocket"
	"go.uber.org/zap"
)

type Server struct {
	Router *gin.Engine
	DB     *database.Database
	Redis  *redis.Client
	Hub    *ws.Hub
	Bridge *ws.ClusterBridge

	cfg    *config.Config
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	dbConn, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "postgres connect failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		DB:     dbConn,
		cfg:    cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	s.Hub = ws.NewHub(logger, ws.Options{
		SendQueueSize:  cfg.SendQueueSize,
		MaxMessageSize: cfg.MaxMessageBytes,
	})

	var rooms relay.RoomBroadcaster = s.Hub
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			cancel()
			return nil, errors.Wrap(err, "invalid REDIS_URL")
		}
		s.Redis = redis.NewClient(redisOpts)
		if err := s.Redis.Ping(ctx).Err(); err != nil {
			cancel()
			return nil, errors.Wrap(err, "redis connect failed")
		}
		s.Bridge = ws.NewClusterBridge(s.Hub, s.Redis, cfg.RedisChannel)
		rooms = s.Bridge
	} else {
		logger.Info("REDIS_URL not set, broadcasts stay on this instance")
	}

	s.Router = newRouter(ctx, cfg, dbConn, s.Hub, rooms, logger)

	return s, nil
}

// Run обслуживает HTTP до SIGINT/SIGTERM и затем корректно завершается
func (s *Server) Run() error {
	if s.Bridge != nil {
		if err := s.Bridge.Start(s.ctx); err != nil {
			s.shutdown()
			return err
		}
	}

	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("port", s.cfg.Port), zap.String("env", s.cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err, ok := <-errCh:
		if ok {
			s.shutdown()
			return errors.Wrap(err, "server run error")
		}
	case <-sigCtx.Done():
	}

	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	s.shutdown()
	return errors.Wrap(err, "server shutdown")
}

func (s *Server) shutdown() {
	s.cancel()
	s.Hub.Stop()

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			s.logger.Warn("redis close", zap.Error(err))
		}
	}
	if err := s.DB.Close(); err != nil {
		s.logger.Warn("postgres close", zap.Error(err))
	}
}
