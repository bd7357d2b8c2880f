package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pointdeck/pointdeck/pubsub"
	"github.com/pointdeck/pointdeck/room"
	ws "github.com/pointdeck/pointdeck/transport/websocket"
)

// Server is the HTTP gateway in front of the session store: thin create,
// get, list and end handlers, the health check, and the WebSocket upgrade.
type Server struct {
	store     *room.Store
	hub       *pubsub.PubSub
	gateway   *ws.Gateway
	logger    *slog.Logger
	router    *mux.Router
	validate  *validator.Validate
	startedAt time.Time
}

// NewServer wires the routes over the given store, hub, and WebSocket
// gateway.
func NewServer(store *room.Store, hub *pubsub.PubSub, gateway *ws.Gateway, logger *slog.Logger, corsOrigins []string) *Server {
	s := &Server{
		store:     store,
		hub:       hub,
		gateway:   gateway,
		logger:    logger,
		router:    mux.NewRouter(),
		validate:  validator.New(),
		startedAt: time.Now().UTC(),
	}
	s.setupRoutes(corsOrigins)
	return s
}

func (s *Server) setupRoutes(corsOrigins []string) {
	s.router.Use(corsMiddleware(corsOrigins))

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/session", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/session", s.handleListSessions).Methods("GET")
	api.HandleFunc("/session/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/session/{id}", s.handleEndSession).Methods("DELETE")

	s.router.HandleFunc("/ws", s.gateway.ServeWS)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler())

	// Preflight requests match no method-restricted route, and mux skips
	// middleware on unmatched routes. The middleware short-circuits these
	// with a 204.
	s.router.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(http.ResponseWriter, *http.Request) {})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// CreateSessionRequest is the POST /api/v1/session body.
type CreateSessionRequest struct {
	Name            string `json:"name" validate:"required,max=120"`
	DurationSeconds int64  `json:"duration_seconds" validate:"required,gte=1,lte=86400"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := s.store.Create(req.Name, time.Duration(req.DurationSeconds)*time.Second)
	s.logger.Info("session created", "session_id", sess.ID, "name", sess.Name)
	respondJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	sess, err := s.store.Get(sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.store.List()
	respondJSON(w, http.StatusOK, map[string]any{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

// handleEndSession tears a session down entirely. This is the one caller
// allowed to clean up the hub's entries for a session id: the session is
// gone, so surviving subscriber handles merely become unreachable.
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.store.End(sessionID); err != nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	s.hub.CleanupSession(sessionID)
	s.logger.Info("session ended", "session_id", sessionID)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "session " + sessionID + " ended",
	})
}

func corsMiddleware(origins []string) mux.MiddlewareFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); allowed[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
