// Package api serves the treasury and member directory views over HTTP.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/matrixise/nouns-dashboard/internal/members"
	"github.com/matrixise/nouns-dashboard/internal/storage"
	"github.com/matrixise/nouns-dashboard/internal/treasury"
)

// TreasuryService is the treasury view model the API reads.
type TreasuryService interface {
	Params() treasury.Params
	Latest() *treasury.Snapshot
	Refresh(ctx context.Context) (*treasury.Snapshot, error)
	Fetch(ctx context.Context, p treasury.Params) (*treasury.Snapshot, error)
	Summary(snap *treasury.Snapshot) treasury.Summary
}

// Rosters resolves the stored roster for a viewer.
type Rosters interface {
	RosterFor(ctx context.Context, viewerID string) (members.Roster, error)
	GetMember(ctx context.Context, id string) (members.Member, error)
}

// History reads persisted snapshot rows, newest first.
type History interface {
	SlotHistory(ctx context.Context, slot string, limit int) ([]storage.SnapshotRow, error)
}

// Server holds the handler dependencies. Rosters, History and Health are
// optional.
type Server struct {
	Treasury TreasuryService
	Rosters  Rosters
	History  History
	Health   http.HandlerFunc
	Logger   *slog.Logger
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	if s.Health != nil {
		r.Get("/health", s.Health)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/treasury", s.getTreasury)
		r.Get("/treasury/history/{slot}", s.getSlotHistory)
		r.Get("/members", s.listMembers)
		r.Get("/members/{id}", s.getMember)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			s.Logger.Debug("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
