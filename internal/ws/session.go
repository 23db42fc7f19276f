package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/abdoElHodaky/tradSys/internal/auth"
	"github.com/abdoElHodaky/tradSys/internal/broadcast"
	"github.com/abdoElHodaky/tradSys/internal/cache"
	appconfig "github.com/abdoElHodaky/tradSys/internal/config"
	"github.com/abdoElHodaky/tradSys/internal/core/matching"
	"github.com/abdoElHodaky/tradSys/internal/metrics"
	"github.com/abdoElHodaky/tradSys/internal/orders"
	"github.com/gorilla/websocket"
	"github.com/segmentio/ksuid"
	"github.com/ulule/limiter/v3"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// sessionState is the per-connection state machine (spec.md §4.9).
type sessionState int

const (
	stateConnected sessionState = iota
	stateAuthPending
	stateRegistered
	stateActive
	stateClosed
)

// session owns one upgraded socket and runs its CONNECTED..CLOSED lifecycle
// across two cooperating goroutines (reader/writer), joined by a shared
// done channel closed exactly once (spec.md §5).
type session struct {
	id    string
	conn  *websocket.Conn
	state sessionState

	principalID string

	books       *matching.BookManager
	orderSvc    *orders.OrderService
	broadcaster *broadcast.Broadcaster
	jwt         *auth.JWTService
	cache       *cache.Cache
	minVersion  *semver.Version
	metrics     *metrics.Collectors

	protocolErrLimiter *limiter.Limiter
	inboundLimiter     *rate.Limiter

	outbound chan []byte
	done     chan struct{}
	once     sync.Once

	authTimeout time.Duration
	idleTimeout time.Duration

	logger *zap.Logger
}

func newSession(
	conn *websocket.Conn,
	books *matching.BookManager,
	orderSvc *orders.OrderService,
	broadcaster *broadcast.Broadcaster,
	jwt *auth.JWTService,
	sessionCache *cache.Cache,
	collectors *metrics.Collectors,
	cfg *appconfig.Config,
	logger *zap.Logger,
) *session {
	protocolErrRate := limiter.Rate{
		Period: cfg.Session.IdleTimeout,
		Limit:  int64(cfg.Session.ProtocolErrorLimit),
	}
	store := memorystore.NewStore()

	var minVersion *semver.Version
	if cfg.Auth.MinProtocolVersion != "" {
		if v, err := semver.NewVersion(cfg.Auth.MinProtocolVersion); err == nil {
			minVersion = v
		}
	}

	id := ksuid.New().String()

	return &session{
		id:                 id,
		conn:               conn,
		state:              stateConnected,
		books:              books,
		orderSvc:           orderSvc,
		broadcaster:        broadcaster,
		jwt:                jwt,
		cache:              sessionCache,
		minVersion:         minVersion,
		metrics:            collectors,
		protocolErrLimiter: limiter.New(store, protocolErrRate),
		inboundLimiter:     rate.NewLimiter(rate.Limit(cfg.Session.InboundRatePerSec), cfg.Session.InboundBurst),
		outbound:           make(chan []byte, 256),
		done:               make(chan struct{}),
		authTimeout:        cfg.Session.AuthTimeout,
		idleTimeout:        cfg.Session.IdleTimeout,
		logger:             logger.With(zap.String("session_id", id)),
	}
}

// run drives the session to completion: CONNECTED -> AUTH_PENDING, launches
// the writer pump, then reads frames until closed.
func (s *session) run(ctx context.Context) {
	defer s.close("session ended")

	s.send(newConnectedEvent(s.id))
	s.state = stateAuthPending

	go s.writePump()

	_ = s.conn.SetReadDeadline(time.Now().Add(s.authTimeout))

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			s.logger.Debug("read pump exiting", zap.Error(err))
			return
		}

		if s.state == stateAuthPending {
			if !s.handleAuth(raw) {
				return
			}
			continue
		}

		s.dispatch(ctx, raw)
	}
}

// handleAuth validates the first inbound frame as an auth credential.
// On success it transitions AUTH_PENDING -> REGISTERED -> ACTIVE, registers
// with the broadcaster and emits the initial_state snapshot. On failure it
// emits an error frame and signals the caller to close the socket.
func (s *session) handleAuth(raw []byte) bool {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil || frame.Type != frameAuth {
		s.send(newErrorEvent(codeUnauthorized, "first frame must be an auth frame", ""))
		return false
	}

	var payload struct {
		Token           string `json:"token"`
		ProtocolVersion string `json:"protocol_version,omitempty"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.send(newErrorEvent(codeBadRequest, "malformed auth frame", err.Error()))
		return false
	}

	if payload.ProtocolVersion != "" && s.minVersion != nil {
		clientVersion, err := semver.NewVersion(payload.ProtocolVersion)
		if err != nil || clientVersion.LessThan(s.minVersion) {
			s.send(newErrorEvent(codeBadRequest, "unsupported protocol version", ""))
			return false
		}
	}

	principalID, ok := s.cache.GetClaims(payload.Token)
	if !ok {
		claims, err := s.jwt.ValidateToken(payload.Token)
		if err != nil {
			s.send(newErrorEvent(codeUnauthorized, "invalid credential", err.Error()))
			return false
		}
		principalID = claims.PrincipalID
		s.cache.PutClaims(payload.Token, principalID)
	}

	s.principalID = principalID
	s.state = stateRegistered
	s.broadcaster.AddClient(s.id, s.outbound)
	s.send(newInitialStateEvent(s.snapshot()))
	s.state = stateActive
	s.metrics.ActiveSessions.Inc()

	_ = s.conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
	return true
}

// snapshot collects a resting-book view across every known symbol for the
// initial_state event.
func (s *session) snapshot() []interface{} {
	out := make([]interface{}, 0)
	for _, symbol := range s.books.Symbols() {
		if cached, ok := s.cache.GetSnapshot(symbol); ok {
			out = append(out, cached)
			continue
		}
		snap := s.books.Book(symbol).Snapshot()
		s.cache.PutSnapshot(symbol, snap)
		out = append(out, snap)
	}
	return out
}

// dispatch handles an ACTIVE-state frame by its "type" discriminator
// (spec.md §4.9).
func (s *session) dispatch(ctx context.Context, raw []byte) {
	if !s.inboundLimiter.Allow() {
		s.send(newErrorEvent(codeBadRequest, "rate limit exceeded", ""))
		return
	}

	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		s.recordProtocolError("malformed frame")
		return
	}

	switch frame.Type {
	case frameCreateOrder, frameTrade:
		s.handleCreateOrder(ctx, raw)
	case frameMatch:
		s.send(newSuccessEvent("match is a reserved no-op"))
	default:
		s.recordProtocolError("unknown frame type")
	}
}

func (s *session) handleCreateOrder(ctx context.Context, raw []byte) {
	var payload createOrderPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.send(newErrorEvent(codeBadRequest, "malformed order payload", err.Error()))
		return
	}

	req := &orders.OrderRequest{
		UserID:   payload.UserID,
		Symbol:   payload.Symbol,
		Side:     normalizeSide(payload.Side),
		Price:    payload.Price,
		Quantity: payload.Amount,
	}

	if _, _, err := s.orderSvc.CreateOrder(ctx, req); err != nil {
		s.send(newErrorEvent(codeBadRequest, "order rejected", err.Error()))
		return
	}

	s.send(newSuccessEvent("order accepted"))
}

func normalizeSide(side string) string {
	switch side {
	case "buy", "BUY":
		return "BUY"
	case "sell", "SELL":
		return "SELL"
	default:
		return side
	}
}

// recordProtocolError counts a malformed/unknown frame against the
// session's error budget; exceeding it closes the connection
// (spec.md §4.9 "parse error beyond tolerance").
func (s *session) recordProtocolError(reason string) {
	ctx, err := s.protocolErrLimiter.Get(context.Background(), s.id)
	if err != nil {
		s.logger.Warn("protocol error limiter unavailable", zap.Error(err))
		return
	}

	s.send(newErrorEvent(codeBadRequest, reason, ""))

	if ctx.Reached {
		s.logger.Warn("session exceeded protocol error budget", zap.String("session_id", s.id))
		s.close("protocol error limit exceeded")
		_ = s.conn.Close()
	}
}

// writePump drains the outbound queue to the socket until done fires.
func (s *session) writePump() {
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-s.outbound:
			if !ok {
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.logger.Debug("write pump exiting", zap.Error(err))
				s.close("write failed")
				return
			}
		}
	}
}

// send enqueues v (marshaled to JSON) for delivery by the writer pump.
func (s *session) send(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to marshal outbound event", zap.Error(err))
		return
	}
	select {
	case s.outbound <- payload:
	default:
		s.logger.Warn("outbound queue full, dropping session", zap.String("session_id", s.id))
		s.close("outbound queue full")
	}
}

// close transitions the session to CLOSED exactly once: deregisters from
// the broadcaster, drops the outbound queue, and signals the writer pump.
func (s *session) close(reason string) {
	s.once.Do(func() {
		if s.state == stateActive {
			s.metrics.ActiveSessions.Dec()
		}
		s.state = stateClosed
		s.broadcaster.RemoveClient(s.id)
		close(s.done)
		s.logger.Info("session closed", zap.String("reason", reason))
	})
}
