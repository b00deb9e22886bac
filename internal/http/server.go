package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/nextlevelbuilder/careerclaw/internal/agent"
	"github.com/nextlevelbuilder/careerclaw/internal/config"
	"github.com/nextlevelbuilder/careerclaw/internal/escalation"
	"github.com/nextlevelbuilder/careerclaw/internal/journal"
	"github.com/nextlevelbuilder/careerclaw/internal/profile"
)

// Processor runs one employer message through the reply pipeline.
type Processor interface {
	Process(ctx context.Context, message, sender string) (*agent.Result, error)
}

// ProfileSource yields the current candidate profile.
type ProfileSource interface {
	Current() *profile.Profile
}

// Server exposes the pipeline and the escalation store over HTTP.
type Server struct {
	cfg      config.GatewayConfig
	pipeline Processor
	store    *escalation.Store
	profiles ProfileSource
	journal  *journal.Journal // optional: escalation history endpoint
	limiter  *SenderLimiter
	version  string

	httpServer *http.Server
}

func NewServer(cfg config.GatewayConfig, pipeline Processor, store *escalation.Store, profiles ProfileSource, version string) *Server {
	return &Server{
		cfg:      cfg,
		pipeline: pipeline,
		store:    store,
		profiles: profiles,
		limiter:  NewSenderLimiter(cfg.RateLimitRPM),
		version:  version,
	}
}

// SetJournal enables GET /v1/escalations/{id}/history.
func (s *Server) SetJournal(j *journal.Journal) { s.journal = j }

// BuildMux registers every route.
func (s *Server) BuildMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /v1/process", s.auth(s.handleProcess))
	mux.HandleFunc("GET /v1/escalations", s.auth(s.handleListEscalations))
	mux.HandleFunc("GET /v1/escalations/{id}", s.auth(s.handleGetEscalation))
	mux.HandleFunc("GET /v1/escalations/{id}/history", s.auth(s.handleEscalationHistory))
	mux.HandleFunc("GET /v1/profile", s.auth(s.handleProfile))

	return mux
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.BuildMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http server starting", "addr", addr, "auth", s.cfg.Token != "")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Token != "" {
			if extractBearerToken(r) != s.cfg.Token {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"version":     s.version,
		"escalations": s.store.Stats(),
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.profiles.Current())
}

func extractBearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
