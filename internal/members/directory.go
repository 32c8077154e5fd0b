package members

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Directory is the member list view bound to one viewer's roster.
type Directory struct {
	roster    Roster
	debouncer *Debouncer
	logger    *slog.Logger

	mu      sync.RWMutex
	query   string
	results []Member
}

// NewDirectory creates a directory. debounce is the quiet period applied by
// Input before the filtered list is recomputed.
func NewDirectory(roster Roster, debounce time.Duration, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{
		roster:    roster,
		debouncer: NewDebouncer(debounce),
		logger:    logger,
	}
}

// Search filters the current roster against query synchronously.
func (d *Directory) Search(ctx context.Context, query string) ([]Member, error) {
	roster, err := d.roster.Members(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	return Filter(roster, d.roster.ViewerID(), d.roster.IsBlocked, d.roster.StarredIDs(), query), nil
}

// Input records a raw query and schedules a trailing recompute. onUpdate,
// when non-nil, receives the list once it has been published. Results of a
// recompute superseded by newer input are dropped.
func (d *Directory) Input(ctx context.Context, query string, onUpdate func(query string, results []Member)) {
	d.debouncer.Schedule(func(current func() bool) {
		results, err := d.Search(ctx, query)
		if err != nil {
			d.logger.Warn("Member search failed", "query", query, "error", err)
			return
		}

		d.mu.Lock()
		if !current() {
			d.mu.Unlock()
			d.logger.Debug("Dropping superseded member search", "query", query)
			return
		}
		d.query = query
		d.results = results
		d.mu.Unlock()

		if onUpdate != nil {
			onUpdate(query, results)
		}
	})
}

// Results returns the last published query and list.
func (d *Directory) Results() (string, []Member) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.query, d.results
}

// Close cancels any pending recompute.
func (d *Directory) Close() {
	d.debouncer.Cancel()
}

// Select returns the navigation target for a member.
func (d *Directory) Select(id string) Route {
	return Route{
		Screen: MemberDetailScreen,
		Params: map[string]string{"id": id},
	}
}
