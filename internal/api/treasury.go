package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/matrixise/nouns-dashboard/internal/storage"
	"github.com/matrixise/nouns-dashboard/internal/treasury"
)

const (
	maxWindowDays       = 365
	defaultHistoryLimit = 30
	maxHistoryLimit     = 500
)

type historyResponse struct {
	Slot    string                `json:"slot"`
	History []storage.SnapshotRow `json:"history"`
}

// getTreasury serves the summary for the configured window, or for the
// window given by ?days=N as a one-off fetch.
func (s *Server) getTreasury(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := s.Treasury.Params()

	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 1 || days > maxWindowDays {
			s.writeError(w, http.StatusBadRequest, "days must be an integer between 1 and 365")
			return
		}
		if days != params.Days {
			params.Days = days
			snap, err := s.Treasury.Fetch(ctx, params)
			if err != nil {
				s.Logger.Warn("Treasury fetch failed", "days", days, "error", err)
				s.writeError(w, http.StatusServiceUnavailable, "treasury unavailable")
				return
			}
			s.writeJSON(w, http.StatusOK, s.Treasury.Summary(snap))
			return
		}
	}

	snap := s.Treasury.Latest()
	if snap == nil {
		var err error
		snap, err = s.Treasury.Refresh(ctx)
		if errors.Is(err, treasury.ErrSuperseded) {
			snap = s.Treasury.Latest()
		} else if err != nil {
			s.Logger.Warn("Treasury refresh failed", "error", err)
		}
	}
	if snap == nil {
		s.writeError(w, http.StatusServiceUnavailable, "treasury unavailable")
		return
	}

	s.writeJSON(w, http.StatusOK, s.Treasury.Summary(snap))
}

// getSlotHistory serves GET /api/treasury/history/{slot}?limit=N
func (s *Server) getSlotHistory(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		s.writeError(w, http.StatusServiceUnavailable, "snapshot history not configured")
		return
	}

	slot := chi.URLParam(r, "slot")
	if !treasury.SlotKey(slot).Valid() {
		s.writeError(w, http.StatusNotFound, "unknown slot")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			s.writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and 500")
			return
		}
		limit = n
	}

	rows, err := s.History.SlotHistory(r.Context(), slot, limit)
	if err != nil {
		s.Logger.Error("Failed to load slot history", "slot", slot, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if rows == nil {
		rows = []storage.SnapshotRow{}
	}

	s.writeJSON(w, http.StatusOK, historyResponse{Slot: slot, History: rows})
}
