package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lexdesk/deadline-alerts/internal/cache"
)

// dashboardCategory selects the cache TTL for dashboard reads.
const dashboardCategory = "dashboard"

type refreshRequest struct {
	UserID        string `json:"user_id"`
	ProcessNumber string `json:"process_number"`
}

type acknowledgeRequest struct {
	UserID string `json:"user_id"`
}

// refreshPublications triggers an external publication search, bounded
// by the user's rate budget. A denied request is answered with 429 and
// the instant the budget frees up, not a generic failure.
func (s *Server) refreshPublications(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ProcessNumber == "" {
		http.Error(w, "process_number is required", http.StatusBadRequest)
		return
	}

	result, err := s.pubs.Refresh(r.Context(), req.UserID, req.ProcessNumber)
	if err != nil {
		s.logger.Error("publication refresh failed",
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
		http.Error(w, "Publication search failed", http.StatusBadGateway)
		return
	}

	if !result.Allowed {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(time.Until(result.RetryAfter).Seconds())+1, 10))
		respondJSON(w, http.StatusTooManyRequests, result)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// dashboardSummary serves per-status deadline counts through the
// read-through cache.
func (s *Server) dashboardSummary(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	counts, err := cache.GetOrCompute(r.Context(), s.cache, dashboardKey(userID), dashboardCategory,
		func(ctx context.Context) (map[string]int, error) {
			return s.store.CountDeadlinesByStatus(ctx, userID)
		})
	if err != nil {
		s.logger.Error("dashboard summary failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		http.Error(w, "Failed to load summary", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, counts)
}

// dashboardKey namespaces the cached summary per user.
func dashboardKey(userID string) string {
	return "dashboard:summary:" + userID
}

// listNotifications returns a user's unread in-app notifications.
func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	records, err := s.store.GetUnreadNotifications(r.Context(), userID)
	if err != nil {
		s.logger.Error("listing notifications failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		http.Error(w, "Failed to list notifications", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, records)
}

// markNotificationRead flips one in-app notification to read.
func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	if err := s.store.MarkNotificationRead(r.Context(), id); err != nil {
		http.Error(w, "Failed to mark notification read", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// acknowledgeDeadline records the user's acknowledgment and drops the
// user's cached dashboard entries so the next read recomputes.
func (s *Server) acknowledgeDeadline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req acknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	if err := s.store.UpdateDeadlineAcknowledgement(r.Context(), id, req.UserID, time.Now().UTC()); err != nil {
		http.Error(w, "Deadline not found", http.StatusNotFound)
		return
	}

	if err := s.cache.Invalidate(r.Context(), dashboardKey(req.UserID)); err != nil {
		s.logger.Warn("cache invalidation failed",
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
	}

	w.WriteHeader(http.StatusNoContent)
}

// triggerAlertPass queues an immediate alert pass.
func (s *Server) triggerAlertPass(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		http.Error(w, "Alert job not running", http.StatusServiceUnavailable)
		return
	}

	s.runner.TriggerNow()
	w.WriteHeader(http.StatusAccepted)
}

// respondJSON writes a JSON response body with the given status.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already out; nothing further to do.
		return
	}
}
