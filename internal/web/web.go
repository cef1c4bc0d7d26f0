// Package web exposes a small HTTP admin surface next to the RESP port:
// a liveness probe and an engine stats snapshot.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/AnhadSachdeva/Key-Value-Store/internal/storage"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server serves the admin endpoint
type Server struct {
	httpServer *http.Server
	store      *storage.Store
	logger     *zap.Logger
}

// New builds the admin server bound to addr
func New(addr string, store *storage.Store, logger *zap.Logger) *Server {
	s := &Server{
		store:  store,
		logger: logger,
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	router.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Start runs the HTTP listener in the background
func (s *Server) Start() {
	go func() {
		s.logger.Info("admin endpoint listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("admin endpoint failed", zap.Error(err))
		}
	}()
}

// Shutdown drains the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the HTTP handler, exposed for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

type statsResponse struct {
	Keys          int   `json:"keys"`
	Expiring      int   `json:"expiring"`
	NextExpiryMS  int64 `json:"next_expiry_ms"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	st := s.store.Stats()
	s.writeJSON(w, statsResponse{
		Keys:          st.Keys,
		Expiring:      st.Expiring,
		NextExpiryMS:  st.NextExpiryMS,
		UptimeSeconds: int64(st.Uptime.Seconds()),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response failed", zap.Error(err))
	}
}
