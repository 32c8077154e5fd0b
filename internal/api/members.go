package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/matrixise/nouns-dashboard/internal/members"
	"github.com/matrixise/nouns-dashboard/internal/storage"
)

type membersResponse struct {
	Query   string           `json:"query"`
	Members []members.Member `json:"members"`
}

type memberResponse struct {
	Member members.Member `json:"member"`
	Route  members.Route  `json:"route"`
}

// listMembers serves GET /api/members?viewer=ID&q=QUERY
func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	if s.Rosters == nil {
		s.writeError(w, http.StatusServiceUnavailable, "member directory not configured")
		return
	}

	ctx := r.Context()
	query := r.URL.Query().Get("q")

	roster, err := s.Rosters.RosterFor(ctx, r.URL.Query().Get("viewer"))
	if err != nil {
		s.Logger.Error("Failed to load roster", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load roster")
		return
	}

	list, err := members.NewDirectory(roster, 0, s.Logger).Search(ctx, query)
	if err != nil {
		s.Logger.Error("Member search failed", "query", query, "error", err)
		s.writeError(w, http.StatusInternalServerError, "member search failed")
		return
	}
	if list == nil {
		list = []members.Member{}
	}

	s.writeJSON(w, http.StatusOK, membersResponse{Query: query, Members: list})
}

// getMember serves GET /api/members/{id}?viewer=ID
func (s *Server) getMember(w http.ResponseWriter, r *http.Request) {
	if s.Rosters == nil {
		s.writeError(w, http.StatusServiceUnavailable, "member directory not configured")
		return
	}

	ctx := r.Context()
	id := chi.URLParam(r, "id")

	m, err := s.Rosters.GetMember(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "member not found")
		return
	}
	if err != nil {
		s.Logger.Error("Failed to load member", "member", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load member")
		return
	}

	roster, err := s.Rosters.RosterFor(ctx, r.URL.Query().Get("viewer"))
	if err != nil {
		s.Logger.Error("Failed to load roster", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load roster")
		return
	}

	annotated := members.Annotate([]members.Member{m}, roster.ViewerID(), roster.IsBlocked, roster.StarredIDs())[0]
	dir := members.NewDirectory(roster, 0, s.Logger)

	s.writeJSON(w, http.StatusOK, memberResponse{Member: annotated, Route: dir.Select(id)})
}
