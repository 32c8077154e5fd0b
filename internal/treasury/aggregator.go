package treasury

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/matrixise/nouns-dashboard/internal/assets"
	"github.com/matrixise/nouns-dashboard/internal/proposals"
	"github.com/matrixise/nouns-dashboard/internal/subgraph"
)

// Params key a snapshot. A change of any field triggers a re-fetch.
type Params struct {
	ChainID         int64
	Days            int
	ActivityEnabled bool
}

// Snapshot is a point-in-time view of the treasury. A slot missing from
// Balances, or a nil pointer, means its source failed or did not resolve.
type Snapshot struct {
	FetchedAt time.Time
	Params    Params
	Balances  map[SlotKey]*big.Int
	USDCRate  *big.Int
	Activity  *Activity
}

// Activity holds the trailing-window aggregates. A nil field is
// unresolved; an empty AssetsDeployed means nothing was transferred.
type Activity struct {
	AuctionProceeds *big.Int
	AssetsDeployed  []assets.Amount
}

// Aggregator fans out to every source and collects whatever resolves.
type Aggregator struct {
	chain    ChainReader
	activity ActivityReader
	addrs    Addresses
	logger   *slog.Logger
	now      func() time.Time
}

// NewAggregator builds an aggregator. activity may be nil, in which case
// activity aggregates are never fetched.
func NewAggregator(chain ChainReader, activity ActivityReader, addrs Addresses, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		chain:    chain,
		activity: activity,
		addrs:    addrs,
		logger:   logger,
		now:      time.Now,
	}
}

type balanceResult struct {
	key   SlotKey
	value *big.Int
}

// Fetch reads every source concurrently. Individual failures are logged
// and leave their slot empty; only a cancelled ctx is returned as an error.
func (a *Aggregator) Fetch(ctx context.Context, p Params) (*Snapshot, error) {
	snap := &Snapshot{
		FetchedAt: a.now().UTC(),
		Params:    p,
		Balances:  make(map[SlotKey]*big.Int),
	}

	srcs := a.addrs.sources()
	results := make(chan balanceResult, len(srcs))
	var wg sync.WaitGroup

	for _, src := range srcs {
		wg.Add(1)
		go func(src source) {
			defer wg.Done()

			value, err := a.readBalance(ctx, src)
			if err != nil {
				a.warn(ctx, "Balance unavailable", "slot", src.key, "holder", src.holder.Hex(), "error", err)
				return
			}
			results <- balanceResult{key: src.key, value: value}
		}(src)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()

		rate, err := a.chain.USDCRate(ctx, a.addrs.PriceFeed)
		if err != nil {
			a.warn(ctx, "USDC rate unavailable", "feed", a.addrs.PriceFeed.Hex(), "error", err)
			return
		}
		snap.USDCRate = rate
	}()

	if p.ActivityEnabled && a.activity != nil && p.Days > 0 {
		snap.Activity = &Activity{}

		wg.Add(2)
		go func() {
			defer wg.Done()

			proceeds, err := a.auctionProceeds(ctx, p.Days)
			if err != nil {
				a.warn(ctx, "Auction proceeds unavailable", "days", p.Days, "error", err)
				return
			}
			snap.Activity.AuctionProceeds = proceeds
		}()
		go func() {
			defer wg.Done()

			deployed, err := a.assetsDeployed(ctx, p.Days)
			if err != nil {
				a.warn(ctx, "Assets deployed unavailable", "days", p.Days, "error", err)
				return
			}
			snap.Activity.AssetsDeployed = deployed
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		snap.Balances[r.key] = r.value
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.logger.Debug("Treasury snapshot fetched",
		"days", p.Days,
		"slots", len(snap.Balances),
		"rate_resolved", snap.USDCRate != nil,
	)
	return snap, nil
}

// warn logs a source failure unless the whole fetch was cancelled.
func (a *Aggregator) warn(ctx context.Context, msg string, args ...any) {
	if ctx.Err() != nil {
		return
	}
	a.logger.Warn(msg, args...)
}

func (a *Aggregator) readBalance(ctx context.Context, src source) (*big.Int, error) {
	if src.token == nil {
		return a.chain.NativeBalance(ctx, src.holder)
	}
	return a.chain.TokenBalance(ctx, *src.token, src.holder)
}

// auctionProceeds sums the winning bids of the n most recent settled
// auctions, one auction per day.
func (a *Aggregator) auctionProceeds(ctx context.Context, n int) (*big.Int, error) {
	auctions, err := a.activity.RecentAuctions(ctx, n)
	if err != nil {
		return nil, err
	}

	total := new(big.Int)
	for _, auction := range auctions {
		amount, err := auction.AmountWei()
		if err != nil {
			return nil, err
		}
		total.Add(total, amount)
	}
	return total, nil
}

// assetsDeployed merges the transfers requested by proposals executed in
// the trailing window.
func (a *Aggregator) assetsDeployed(ctx context.Context, days int) ([]assets.Amount, error) {
	// minute granularity keeps the subgraph cache key stable across refreshes
	since := a.now().Add(-time.Duration(days) * 24 * time.Hour).Truncate(time.Minute)

	props, err := a.activity.ExecutedProposals(ctx, since, subgraph.MaxProposals)
	if err != nil {
		return nil, err
	}

	contracts := a.addrs.proposalContracts()
	var requested []assets.Amount
	for _, prop := range props {
		txs, err := proposals.ParseTransactions(prop.Targets, prop.Values, prop.Signatures, prop.Calldatas)
		if err == nil {
			var amounts []assets.Amount
			if amounts, err = contracts.RequestedAssets(txs); err == nil {
				requested = append(requested, amounts...)
				continue
			}
		}
		a.warn(ctx, "Proposal skipped", "proposal", prop.ID, "error", fmt.Errorf("parse transactions: %w", err))
	}

	deployed := assets.MergeDeployed(requested)
	if deployed == nil {
		deployed = []assets.Amount{}
	}
	return deployed, nil
}
