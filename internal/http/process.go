package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/nextlevelbuilder/careerclaw/internal/agent"
	"github.com/nextlevelbuilder/careerclaw/internal/providers"
)

type processRequest struct {
	Message string `json:"message"`
	Sender  string `json:"sender"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Message = strings.TrimSpace(req.Message)
	req.Sender = strings.TrimSpace(req.Sender)
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}
	if limit := s.cfg.MaxMessageChars; limit > 0 && utf8.RuneCountInString(req.Message) > limit {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"error": fmt.Sprintf("message exceeds %d characters", limit),
		})
		return
	}

	key := req.Sender
	if key == "" {
		key = "ip:" + clientIP(r)
	}
	if !s.limiter.Allow(key) {
		w.Header().Set("Retry-After", fmt.Sprint(int(math.Ceil(s.limiter.RetryAfter().Seconds()))))
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		return
	}

	res, err := s.pipeline.Process(r.Context(), req.Message, req.Sender)
	if err != nil {
		switch {
		case errors.Is(err, agent.ErrEmptyMessage):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		case errors.Is(err, providers.ErrUpstreamUnavailable):
			slog.Warn("process: upstream unavailable", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "language model unavailable, try again later"})
		default:
			slog.Error("process: no response", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not produce a response"})
		}
		return
	}

	writeJSON(w, http.StatusOK, res)
}
