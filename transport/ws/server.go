// Package ws exposes the messaging core over websockets.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"pairchat/auth"
	"pairchat/contract"
	"pairchat/domain"
	"pairchat/domain/event"
	"pairchat/observability"
	"pairchat/runtime"
	"pairchat/sink"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Options struct {
	ConnectionBufferSize int
	DeliveryTimeout      time.Duration
}

type Server struct {
	log           *slog.Logger
	coordinator   *runtime.Coordinator
	authenticator *auth.Authenticator
	presence      contract.IPresence
	metrics       *observability.Metrics
	upgrader      websocket.Upgrader
	options       Options

	// live counts the websocket handlers still running, hijacked ones included.
	live sync.WaitGroup
}

func NewServer(log *slog.Logger, coordinator *runtime.Coordinator, authenticator *auth.Authenticator,
	presence contract.IPresence, metrics *observability.Metrics, options Options) *Server {
	return &Server{
		log:           log,
		coordinator:   coordinator,
		authenticator: authenticator,
		presence:      presence,
		metrics:       metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients are served from another origin; the token is the access control.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		options: options,
	}
}

// Routes builds the HTTP surface. The websocket route is kept out of the metrics
// middleware because the upgrade needs to hijack the original writer.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.With(auth.Middleware(s.authenticator)).Get("/ws", s.serveWebsocket)

	r.Group(func(r chi.Router) {
		r.Use(s.metrics.Middleware)
		r.Get("/health", s.health)
		r.Handle("/metrics", s.metrics.Handler())
		r.Route("/api/v1", func(r chi.Router) {
			r.Use(auth.Middleware(s.authenticator))
			r.Get("/users", s.listUsers)
		})
	})
	return r
}

// Wait blocks until every websocket handler returned, which includes the disconnect
// of its session, or until ctx is done. http.Server.Shutdown does not wait for them.
func (s *Server) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.live.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	s.live.Add(1)
	defer s.live.Done()
	identity, _ := auth.IdentityFromContext(r.Context())
	credential, _ := auth.CredentialFromContext(r.Context())

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the request.
		s.log.Warn("Websocket upgrade failed", "user_id", identity.ID, "error", err)
		return
	}

	connectionSink := sink.NewConnectionSink(s.options.ConnectionBufferSize, s.options.DeliveryTimeout)
	session := runtime.NewSession(domain.ConnectionID(uuid.NewString()), identity, credential.ExpiresAt, connectionSink)
	if err := s.coordinator.Connect(r.Context(), session); err != nil {
		s.log.Error("Session activation failed", "user_id", identity.ID, "error", err)
		_ = conn.Close()
		return
	}
	newConnection(conn, session, connectionSink, s.coordinator, s.log).Serve(r.Context())
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.coordinator.Sessions(),
		"online":   s.presence.Online(),
	})
}

func (s *Server) listUsers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, event.NewAllUsers(s.presence.Snapshot()).Users)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
