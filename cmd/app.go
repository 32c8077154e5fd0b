package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/matrixise/nouns-dashboard/internal/blockchain"
	"github.com/matrixise/nouns-dashboard/internal/config"
	"github.com/matrixise/nouns-dashboard/internal/logger"
	"github.com/matrixise/nouns-dashboard/internal/members"
	"github.com/matrixise/nouns-dashboard/internal/storage"
	"github.com/matrixise/nouns-dashboard/internal/subgraph"
	"github.com/matrixise/nouns-dashboard/internal/treasury"
)

// app holds the clients shared by the commands. cache and store are nil
// when their URL is not configured.
type app struct {
	cfg      *config.Config
	chain    *blockchain.Client
	graph    *subgraph.Client
	cache    *subgraph.RedisCache
	store    *storage.Store
	treasury *treasury.Service
}

// loadConfig sets up logging and loads the configuration. A log level in
// the config file overrides the flag.
func loadConfig(requireDatabase bool) (*config.Config, error) {
	logger.Setup(logLevel)

	load := config.Load
	if requireDatabase {
		load = config.LoadWithDatabase
	}
	cfg, err := load(cfgFile)
	if err != nil {
		slog.Error("Configuration error", "error", err)
		return nil, err
	}

	if cfg.LogLevel != "" {
		logger.Setup(cfg.LogLevel)
	}
	return cfg, nil
}

// newApp connects to every configured backend.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	chain, err := blockchain.NewClient(cfg.RPCUrls, cfg.RPCRateLimit)
	if err != nil {
		slog.Error("Failed to connect to RPC", "error", err)
		return nil, err
	}
	a.chain = chain

	if len(cfg.RPCUrls) == 1 {
		slog.Info("RPC connection established", "endpoint", cfg.RPCUrls[0], "chain_id", chain.ChainID())
	} else {
		slog.Info("RPC connection established with failover",
			"endpoints", len(cfg.RPCUrls),
			"primary", cfg.RPCUrls[0],
			"chain_id", chain.ChainID())
	}

	if cfg.DatabaseURL != "" {
		store, err := storage.NewStore(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			slog.Error("Failed to connect to PostgreSQL", "error", err)
			return nil, err
		}
		a.store = store
		slog.Info("PostgreSQL connection established")
	}

	var activity treasury.ActivityReader
	if cfg.Subgraph.URL != "" {
		opts := []subgraph.Option{subgraph.WithLogger(slog.Default())}
		if cfg.RedisURL != "" {
			cache, err := subgraph.NewRedisCache(ctx, cfg.RedisURL)
			if err != nil {
				slog.Warn("Subgraph cache unavailable, querying directly", "error", err)
			} else {
				a.cache = cache
				opts = append(opts, subgraph.WithCache(cache, cfg.SubgraphCacheTTL()))
			}
		}
		a.graph = subgraph.NewClient(cfg.Subgraph.URL, opts...)
		activity = a.graph
	} else if cfg.Activity.Enabled {
		slog.Warn("Activity enabled without a subgraph URL, skipping activity")
	}

	agg := treasury.NewAggregator(chain, activity, treasury.AddressesFromConfig(cfg.Contracts), slog.Default())
	a.treasury = treasury.NewService(agg, treasury.Params{
		ChainID:         chain.ChainID().Int64(),
		Days:            cfg.Activity.WindowDays,
		ActivityEnabled: cfg.Activity.Enabled,
	}, slog.Default())

	return a, nil
}

// persistSnapshots stores every accepted treasury refresh.
func (a *app) persistSnapshots() {
	if a.store == nil {
		return
	}
	a.treasury.OnUpdate(func(ctx context.Context, snap *treasury.Snapshot) {
		rows, err := storage.SnapshotRows(a.treasury.Summary(snap), snap.Params.ChainID)
		if err != nil {
			slog.Error("Failed to convert snapshot", "error", err)
			return
		}
		if err := a.store.InsertSnapshot(ctx, rows); err != nil {
			slog.Error("Failed to persist snapshot", "error", err)
			return
		}
		slog.Info("Treasury snapshot persisted", "rows", len(rows))
	})
}

// Close releases every connection.
func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			slog.Warn("Failed to close cache", "error", err)
		}
	}
	if a.chain != nil {
		a.chain.Close()
	}
}

// storeRosters exposes the stored roster to the HTTP API.
type storeRosters struct {
	store *storage.Store
}

func (s storeRosters) RosterFor(ctx context.Context, viewerID string) (members.Roster, error) {
	roster, err := s.store.RosterFor(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("roster for %q: %w", viewerID, err)
	}
	return roster, nil
}

func (s storeRosters) GetMember(ctx context.Context, id string) (members.Member, error) {
	return s.store.GetMember(ctx, id)
}
