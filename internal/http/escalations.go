package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/nextlevelbuilder/careerclaw/internal/escalation"
)

// escalationView is the public shape of an escalation.
type escalationView struct {
	ID                   string              `json:"id"`
	Status               escalation.Status   `json:"status"`
	Category             escalation.Category `json:"category"`
	Source               escalation.Source   `json:"source"`
	Reason               string              `json:"reason"`
	EmployerMessage      string              `json:"employer_message"`
	Sender               string              `json:"sender,omitempty"`
	OriginalReply        string              `json:"original_reply,omitempty"`
	ProfessionalResponse string              `json:"professional_response,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
	ResolvedAt           *time.Time          `json:"resolved_at,omitempty"`
}

func toView(e escalation.Escalation) escalationView {
	v := escalationView{
		ID:              e.ID,
		Status:          e.Status,
		Category:        e.Category,
		Source:          e.Source,
		Reason:          e.Reason,
		EmployerMessage: e.OriginalMessage,
		Sender:          e.Sender,
		CreatedAt:       e.CreatedAt,
		ResolvedAt:      e.ResolvedAt,
	}
	if e.Resolution != nil {
		v.OriginalReply = e.Resolution.HumanText
		v.ProfessionalResponse = e.Resolution.TransformedText
	}
	return v
}

func (s *Server) handleGetEscalation(w http.ResponseWriter, r *http.Request) {
	e, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "escalation not found"})
		return
	}
	writeJSON(w, http.StatusOK, toView(e))
}

func (s *Server) handleListEscalations(w http.ResponseWriter, r *http.Request) {
	status := escalation.Status(r.URL.Query().Get("status"))
	switch status {
	case "", escalation.StatusPending, escalation.StatusResolved:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be pending or resolved"})
		return
	}

	items := s.store.List(status)
	views := make([]escalationView, 0, len(items))
	for _, e := range items {
		views = append(views, toView(e))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"escalations": views,
		"stats":       s.store.Stats(),
	})
}

func (s *Server) handleEscalationHistory(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "journal disabled"})
		return
	}
	id := r.PathValue("id")
	entries, err := s.journal.History(r.Context(), id)
	if err != nil {
		slog.Error("escalations.history", "escalation_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read history"})
		return
	}
	if len(entries) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "escalation not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": entries})
}
