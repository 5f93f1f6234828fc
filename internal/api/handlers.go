package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Aviral2610/Lead-gen/internal/domain"
	"github.com/Aviral2610/Lead-gen/internal/pkg/httputil"
	"github.com/Aviral2610/Lead-gen/internal/pkg/validate"
	"github.com/Aviral2610/Lead-gen/internal/reply"
	"github.com/Aviral2610/Lead-gen/internal/suppression"
)

type suppressRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Reason string `json:"reason" validate:"omitempty,oneof=unsubscribe bounce spam_complaint manual bulk_import"`
	Source string `json:"source" validate:"omitempty,oneof=instantly manual webhook bulk_import"`
}

type bulkRequest struct {
	Entries []suppressRequest `json:"entries" validate:"required,min=1,max=10000,dive"`
}

type replyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Reply string `json:"reply" validate:"required"`
}

type replyResponse struct {
	domain.RoutedAction
	Suppressed bool `json:"suppressed"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleSuppress(w http.ResponseWriter, r *http.Request) {
	var req suppressRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	reason := domain.SuppressionReason(req.Reason)
	if reason == "" {
		reason = domain.ReasonManual
	}
	added, err := s.deps.Suppression.Add(r.Context(), req.Email, reason, domain.SuppressionSource(req.Source))
	if err != nil {
		suppressionError(w, err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	httputil.JSON(w, status, map[string]any{"email": validate.SanitizeEmail(req.Email), "added": added})
}

func (s *Server) handleSuppressBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	entries := make([]domain.Suppression, len(req.Entries))
	for i, e := range req.Entries {
		entries[i] = domain.Suppression{
			Email:  e.Email,
			Reason: domain.SuppressionReason(e.Reason),
			Source: domain.SuppressionSource(e.Source),
		}
	}
	added, err := s.deps.Suppression.BulkAdd(r.Context(), entries)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]int{"submitted": len(entries), "added": added})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	httputil.OK(w, map[string]any{
		"email":      email,
		"suppressed": s.deps.Suppression.IsSuppressed(email),
	})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Suppression.Remove(r.Context(), chi.URLParam(r, "email")); err != nil {
		suppressionError(w, err)
		return
	}
	httputil.NoContent(w)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, s.deps.Suppression.Export())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, s.deps.Suppression.Stats())
}

// handleReply routes a reply and applies the suppression side effect for
// unsubscribe and not-interested replies.
func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	if s.deps.Replies == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "reply routing is not configured")
		return
	}
	var req replyRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	action, err := s.deps.Replies.Process(r.Context(), req.Email, req.Reply)
	if err != nil {
		log.Error("reply classification failed", "email", req.Email, "error", err)
		httputil.Error(w, http.StatusBadGateway, "reply classification failed")
		return
	}
	added, err := reply.ApplySuppression(r.Context(), s.deps.Suppression, action, domain.SuppressionFromWebhook)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, replyResponse{RoutedAction: action, Suppressed: added})
}

func (s *Server) handleCampaignHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "campaign health is not configured")
		return
	}
	httputil.OK(w, s.deps.Health.Check(r.Context(), chi.URLParam(r, "id")))
}

func suppressionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, suppression.ErrNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, suppression.ErrEmptyEmail):
		httputil.BadRequest(w, err.Error())
	default:
		httputil.InternalError(w, err)
	}
}
