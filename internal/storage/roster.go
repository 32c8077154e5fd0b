package storage

import (
	"context"
	"fmt"

	"github.com/matrixise/nouns-dashboard/internal/members"
)

// memberLister is the part of Store a Roster reads on each search
type memberLister interface {
	ListMembers(ctx context.Context) ([]members.Member, error)
}

// Roster is the stored roster seen by one viewer. The block and star sets
// are loaded once; members are re-read on every call.
type Roster struct {
	lister   memberLister
	viewerID string
	blocked  map[string]struct{}
	starred  map[string]struct{}
}

// RosterFor loads the viewer's block and star sets
func (s *Store) RosterFor(ctx context.Context, viewerID string) (*Roster, error) {
	blocked, err := s.BlockedIDs(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("load blocked members: %w", err)
	}
	starred, err := s.StarredIDs(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("load starred members: %w", err)
	}
	return newRoster(s, viewerID, blocked, starred), nil
}

func newRoster(lister memberLister, viewerID string, blocked, starred map[string]struct{}) *Roster {
	if blocked == nil {
		blocked = map[string]struct{}{}
	}
	if starred == nil {
		starred = map[string]struct{}{}
	}
	return &Roster{lister: lister, viewerID: viewerID, blocked: blocked, starred: starred}
}

func (r *Roster) ViewerID() string { return r.viewerID }

func (r *Roster) Members(ctx context.Context) ([]members.Member, error) {
	return r.lister.ListMembers(ctx)
}

func (r *Roster) IsBlocked(id string) bool {
	_, ok := r.blocked[id]
	return ok
}

func (r *Roster) StarredIDs() map[string]struct{} {
	return r.starred
}

var _ members.Roster = (*Roster)(nil)
