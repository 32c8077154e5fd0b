// Package treasury aggregates the DAO's balances and recent activity into
// one snapshot with independently nullable slots.
package treasury

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/matrixise/nouns-dashboard/internal/assets"
	"github.com/matrixise/nouns-dashboard/internal/config"
	"github.com/matrixise/nouns-dashboard/internal/proposals"
	"github.com/matrixise/nouns-dashboard/internal/subgraph"
)

// ChainReader reads balances and the USDC price from chain.
type ChainReader interface {
	NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, token, holder common.Address) (*big.Int, error)
	USDCRate(ctx context.Context, feed common.Address) (*big.Int, error)
}

// ActivityReader reads auctions and executed proposals.
type ActivityReader interface {
	RecentAuctions(ctx context.Context, n int) ([]subgraph.Auction, error)
	ExecutedProposals(ctx context.Context, since time.Time, limit int) ([]subgraph.Proposal, error)
}

// SlotKey names one balance in the snapshot.
type SlotKey string

const (
	TreasuryETH     SlotKey = "treasury_eth"
	TreasuryUSDC    SlotKey = "treasury_usdc"
	TreasuryWETH    SlotKey = "treasury_weth"
	TreasuryRETH    SlotKey = "treasury_reth"
	TreasurySTETH   SlotKey = "treasury_steth"
	TreasuryWSTETH  SlotKey = "treasury_wsteth"
	TreasuryNouns   SlotKey = "treasury_nouns"
	ForkEscrowNouns SlotKey = "fork_escrow_nouns"
	DAOProxyETH     SlotKey = "dao_proxy_eth"
	TokenBuyerETH   SlotKey = "token_buyer_eth"
)

// Valid reports whether k names a balance slot.
func (k SlotKey) Valid() bool {
	switch k {
	case TreasuryETH, TreasuryUSDC, TreasuryWETH, TreasuryRETH, TreasurySTETH,
		TreasuryWSTETH, TreasuryNouns, ForkEscrowNouns, DAOProxyETH, TokenBuyerETH:
		return true
	}
	return false
}

// Addresses are the contracts the aggregator reads.
type Addresses struct {
	Treasury   common.Address
	ForkEscrow common.Address
	DAOProxy   common.Address
	TokenBuyer common.Address
	Payer      common.Address
	NounsToken common.Address
	USDC       common.Address
	WETH       common.Address
	STETH      common.Address
	WSTETH     common.Address
	RETH       common.Address
	PriceFeed  common.Address
}

// AddressesFromConfig converts validated hex addresses.
func AddressesFromConfig(c config.ContractsConfig) Addresses {
	return Addresses{
		Treasury:   common.HexToAddress(c.Treasury),
		ForkEscrow: common.HexToAddress(c.ForkEscrow),
		DAOProxy:   common.HexToAddress(c.DAOProxy),
		TokenBuyer: common.HexToAddress(c.TokenBuyer),
		Payer:      common.HexToAddress(c.Payer),
		NounsToken: common.HexToAddress(c.NounsToken),
		USDC:       common.HexToAddress(c.USDC),
		WETH:       common.HexToAddress(c.WETH),
		STETH:      common.HexToAddress(c.STETH),
		WSTETH:     common.HexToAddress(c.WSTETH),
		RETH:       common.HexToAddress(c.RETH),
		PriceFeed:  common.HexToAddress(c.PriceFeed),
	}
}

// proposalContracts maps the addresses to the transfer decoder.
func (a Addresses) proposalContracts() proposals.Contracts {
	return proposals.Contracts{
		Payer:      a.Payer,
		NounsToken: a.NounsToken,
		USDC:       a.USDC,
		Tokens: map[common.Address]assets.Currency{
			a.WETH:   assets.WETH,
			a.STETH:  assets.STETH,
			a.WSTETH: assets.WSTETH,
			a.RETH:   assets.RETH,
		},
	}
}

// source is one balance read. A nil token means the native balance.
type source struct {
	key      SlotKey
	label    string
	currency assets.Currency
	holder   common.Address
	token    *common.Address
}

// sources lists the balance slots in display order.
func (a Addresses) sources() []source {
	token := func(addr common.Address) *common.Address { return &addr }

	return []source{
		{key: TreasuryETH, label: "Treasury", currency: assets.ETH, holder: a.Treasury},
		{key: TreasurySTETH, label: "Treasury", currency: assets.STETH, holder: a.Treasury, token: token(a.STETH)},
		{key: TreasuryWSTETH, label: "Treasury", currency: assets.WSTETH, holder: a.Treasury, token: token(a.WSTETH)},
		{key: TreasuryRETH, label: "Treasury", currency: assets.RETH, holder: a.Treasury, token: token(a.RETH)},
		{key: TreasuryWETH, label: "Treasury", currency: assets.WETH, holder: a.Treasury, token: token(a.WETH)},
		{key: TreasuryUSDC, label: "Treasury", currency: assets.USDC, holder: a.Treasury, token: token(a.USDC)},
		{key: TreasuryNouns, label: "Treasury", currency: assets.Nouns, holder: a.Treasury, token: token(a.NounsToken)},
		{key: ForkEscrowNouns, label: "Fork escrow", currency: assets.Nouns, holder: a.ForkEscrow, token: token(a.NounsToken)},
		{key: DAOProxyETH, label: "DAO proxy", currency: assets.ETH, holder: a.DAOProxy},
		{key: TokenBuyerETH, label: "Token buyer", currency: assets.ETH, holder: a.TokenBuyer},
	}
}
