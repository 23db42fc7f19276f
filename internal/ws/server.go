// Package ws implements the session listener: a gorilla/websocket upgrade
// endpoint plus the per-connection state machine in session.go
// (spec.md §4.9).
package ws

import (
	"context"
	"fmt"
	"net/http"

	"github.com/abdoElHodaky/tradSys/internal/auth"
	"github.com/abdoElHodaky/tradSys/internal/broadcast"
	"github.com/abdoElHodaky/tradSys/internal/cache"
	appconfig "github.com/abdoElHodaky/tradSys/internal/config"
	"github.com/abdoElHodaky/tradSys/internal/core/matching"
	"github.com/abdoElHodaky/tradSys/internal/metrics"
	"github.com/abdoElHodaky/tradSys/internal/orders"
	"github.com/gorilla/websocket"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server accepts websocket upgrades and spawns one session per connection.
type Server struct {
	cfg         *appconfig.Config
	books       *matching.BookManager
	orderSvc    *orders.OrderService
	broadcaster *broadcast.Broadcaster
	jwt         *auth.JWTService
	cache       *cache.Cache
	metrics     *metrics.Collectors
	logger      *zap.Logger

	httpServer *http.Server
}

func NewServer(
	cfg *appconfig.Config,
	books *matching.BookManager,
	orderSvc *orders.OrderService,
	broadcaster *broadcast.Broadcaster,
	jwt *auth.JWTService,
	sessionCache *cache.Cache,
	collectors *metrics.Collectors,
	logger *zap.Logger,
) *Server {
	return &Server{
		cfg:         cfg,
		books:       books,
		orderSvc:    orderSvc,
		broadcaster: broadcaster,
		jwt:         jwt,
		cache:       sessionCache,
		metrics:     collectors,
		logger:      logger,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sess := newSession(conn, s.books, s.orderSvc, s.broadcaster, s.jwt, s.cache, s.metrics, s.cfg, s.logger)
	go sess.run(r.Context())
}

// Start binds the listener on WebSocket.Host:Port and begins accepting
// connections in the background.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.Handle(s.cfg.WebSocket.Path, s)

	addr := fmt.Sprintf("%s:%d", s.cfg.WebSocket.Host, s.cfg.WebSocket.Port)
	s.httpServer = &http.Server{Addr: addr, Handler: mux}

	ln := s.httpServer
	go func() {
		s.logger.Info("websocket listener starting", zap.String("addr", addr))
		if err := ln.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("websocket listener stopped", zap.Error(err))
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Module wires the session listener into the fx application lifecycle.
var Module = fx.Options(
	fx.Provide(NewServer),
	fx.Invoke(func(lifecycle fx.Lifecycle, server *Server) {
		lifecycle.Append(fx.Hook{
			OnStart: func(ctx context.Context) error { return server.Start() },
			OnStop:  func(ctx context.Context) error { return server.Stop(ctx) },
		})
	}),
)
