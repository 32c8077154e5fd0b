package subgraph

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"
)

// MaxProposals caps the executed proposals fetched for one window.
const MaxProposals = 1000

const recentAuctionsQuery = `query RecentAuctions($first: Int!) {
  auctions(where: {settled: true}, orderBy: startTime, orderDirection: desc, first: $first) {
    id
    amount
    startTime
  }
}`

const executedProposalsQuery = `query ExecutedProposals($since: BigInt!, $first: Int!) {
  proposals(
    where: {status: EXECUTED, executedTimestamp_gt: $since}
    orderBy: executedTimestamp
    orderDirection: desc
    first: $first
  ) {
    id
    executedTimestamp
    targets
    values
    signatures
    calldatas
  }
}`

// Auction is a settled auction.
type Auction struct {
	ID        string `json:"id"`
	Amount    string `json:"amount"`
	StartTime string `json:"startTime"`
}

// AmountWei parses the winning bid.
func (a Auction) AmountWei() (*big.Int, error) {
	v, ok := new(big.Int).SetString(a.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("auction %s: invalid amount %q", a.ID, a.Amount)
	}
	return v, nil
}

// Proposal is an executed proposal with its raw transactions.
type Proposal struct {
	ID                string   `json:"id"`
	ExecutedTimestamp string   `json:"executedTimestamp"`
	Targets           []string `json:"targets"`
	Values            []string `json:"values"`
	Signatures        []string `json:"signatures"`
	Calldatas         []string `json:"calldatas"`
}

// RecentAuctions returns the n most recently started settled auctions.
func (c *Client) RecentAuctions(ctx context.Context, n int) ([]Auction, error) {
	var resp struct {
		Auctions []Auction `json:"auctions"`
	}
	if err := c.Query(ctx, recentAuctionsQuery, map[string]any{"first": n}, &resp); err != nil {
		return nil, err
	}
	return resp.Auctions, nil
}

// ExecutedProposals returns up to limit proposals executed after since.
func (c *Client) ExecutedProposals(ctx context.Context, since time.Time, limit int) ([]Proposal, error) {
	if limit <= 0 || limit > MaxProposals {
		limit = MaxProposals
	}
	var resp struct {
		Proposals []Proposal `json:"proposals"`
	}
	vars := map[string]any{
		"since": strconv.FormatInt(since.Unix(), 10),
		"first": limit,
	}
	if err := c.Query(ctx, executedProposalsQuery, vars, &resp); err != nil {
		return nil, err
	}
	return resp.Proposals, nil
}
