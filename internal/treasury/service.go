package treasury

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrSuperseded is returned by a refresh whose params were replaced before it
// resolved.
var ErrSuperseded = errors.New("refresh superseded")

// Service keeps the latest snapshot for the current params. Concurrent
// refreshes for the same params share one fetch; changing the params cancels
// the fetches still running for the old ones.
type Service struct {
	agg    *Aggregator
	logger *slog.Logger
	group  singleflight.Group

	mu       sync.Mutex
	params   Params
	inflight map[Params]context.CancelFunc
	latest   *Snapshot
	onUpdate func(context.Context, *Snapshot)
}

// NewService creates a service for the initial params.
func NewService(agg *Aggregator, params Params, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		agg:      agg,
		params:   params,
		inflight: make(map[Params]context.CancelFunc),
		logger:   logger,
	}
}

// OnUpdate registers a hook run after each accepted refresh.
func (s *Service) OnUpdate(fn func(context.Context, *Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUpdate = fn
}

// Params returns the current params.
func (s *Service) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// Latest returns the snapshot for the current params, or nil if none has
// resolved yet.
func (s *Service) Latest() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil || s.latest.Params != s.params {
		return nil
	}
	return s.latest
}

// SetParams switches the params and refreshes when they changed.
func (s *Service) SetParams(ctx context.Context, p Params) (*Snapshot, error) {
	s.mu.Lock()
	changed := s.params != p
	s.params = p
	if changed {
		for params, cancel := range s.inflight {
			if params != p {
				cancel()
			}
		}
	}
	s.mu.Unlock()

	if !changed {
		if snap := s.Latest(); snap != nil {
			return snap, nil
		}
	}
	return s.Refresh(ctx)
}

// Refresh fetches a new snapshot for the current params, joining the fetch
// already in flight for them if there is one. The shared fetch outlives any
// single caller; ctx only bounds how long this caller waits.
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	params := s.Params()
	ch := s.group.DoChan(paramsKey(params), func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx), params)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) refresh(ctx context.Context, params Params) (*Snapshot, error) {
	s.mu.Lock()
	if params != s.params {
		s.mu.Unlock()
		return nil, ErrSuperseded
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	s.inflight[params] = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inflight, params)
		s.mu.Unlock()
		cancel()
	}()

	snap, err := s.agg.Fetch(fetchCtx, params)

	s.mu.Lock()
	if params != s.params || fetchCtx.Err() != nil {
		s.mu.Unlock()
		s.logger.Debug("Treasury refresh superseded", "days", params.Days)
		return nil, ErrSuperseded
	}
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.latest = snap
	hook := s.onUpdate
	s.mu.Unlock()

	if hook != nil {
		hook(ctx, snap)
	}
	return snap, nil
}

func paramsKey(p Params) string {
	return fmt.Sprintf("%d/%d/%t", p.ChainID, p.Days, p.ActivityEnabled)
}

// Fetch builds a one-off snapshot without touching the service state.
func (s *Service) Fetch(ctx context.Context, p Params) (*Snapshot, error) {
	return s.agg.Fetch(ctx, p)
}

// Summary renders a snapshot with the service's addresses.
func (s *Service) Summary(snap *Snapshot) Summary {
	return BuildSummary(s.agg.addrs, snap)
}
