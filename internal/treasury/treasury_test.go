package treasury

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/matrixise/nouns-dashboard/internal/assets"
	"github.com/matrixise/nouns-dashboard/internal/subgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUnavailable = errors.New("source unavailable")

func testAddresses() Addresses {
	addr := func(n int64) common.Address { return common.BigToAddress(big.NewInt(n)) }
	return Addresses{
		Treasury:   addr(1),
		ForkEscrow: addr(2),
		DAOProxy:   addr(3),
		TokenBuyer: addr(4),
		Payer:      addr(5),
		NounsToken: addr(6),
		USDC:       addr(7),
		WETH:       addr(8),
		STETH:      addr(9),
		WSTETH:     addr(10),
		RETH:       addr(11),
		PriceFeed:  addr(12),
	}
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

type fakeChain struct {
	mu      sync.Mutex
	native  map[common.Address]*big.Int
	tokens  map[[2]common.Address]*big.Int
	rate    *big.Int
	hold    chan struct{}
	waiting atomic.Int32
	calls   atomic.Int32
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		native: make(map[common.Address]*big.Int),
		tokens: make(map[[2]common.Address]*big.Int),
	}
}

func (f *fakeChain) setHold(ch chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hold = ch
}

func (f *fakeChain) wait(ctx context.Context) error {
	f.calls.Add(1)
	f.mu.Lock()
	hold := f.hold
	f.mu.Unlock()
	if hold == nil {
		return nil
	}
	f.waiting.Add(1)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-hold:
		return nil
	}
}

func (f *fakeChain) NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if v, ok := f.native[addr]; ok {
		return v, nil
	}
	return nil, errUnavailable
}

func (f *fakeChain) TokenBalance(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if v, ok := f.tokens[[2]common.Address{token, holder}]; ok {
		return v, nil
	}
	return nil, errUnavailable
}

func (f *fakeChain) USDCRate(ctx context.Context, _ common.Address) (*big.Int, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.rate == nil {
		return nil, errUnavailable
	}
	return f.rate, nil
}

type fakeActivity struct {
	mu        sync.Mutex
	auctions  []subgraph.Auction
	proposals []subgraph.Proposal
	err       error
	gotN      int
	gotSince  time.Time
	gotLimit  int
}

func (f *fakeActivity) RecentAuctions(_ context.Context, n int) ([]subgraph.Auction, error) {
	f.mu.Lock()
	f.gotN = n
	f.mu.Unlock()
	return f.auctions, f.err
}

func (f *fakeActivity) ExecutedProposals(_ context.Context, since time.Time, limit int) ([]subgraph.Proposal, error) {
	f.mu.Lock()
	f.gotSince, f.gotLimit = since, limit
	f.mu.Unlock()
	return f.proposals, f.err
}

func transferCalldata(to common.Address, amount *big.Int) string {
	data := append(common.LeftPadBytes(to.Bytes(), 32), common.LeftPadBytes(amount.Bytes(), 32)...)
	return hexutil.Encode(data)
}

func TestFetchOmitsUnresolvedSlots(t *testing.T) {
	addrs := testAddresses()
	chain := newFakeChain()
	chain.native[addrs.Treasury] = ether(5)

	agg := NewAggregator(chain, nil, addrs, nil)
	snap, err := agg.Fetch(context.Background(), Params{Days: 30})
	require.NoError(t, err)

	assert.Len(t, snap.Balances, 1)
	assert.Equal(t, ether(5), snap.Balances[TreasuryETH])
	assert.Nil(t, snap.USDCRate)
	assert.Nil(t, snap.Activity)

	summary := BuildSummary(addrs, snap)
	require.Len(t, summary.Rows, 1, "only the ETH row is shown")
	assert.Equal(t, TreasuryETH, summary.Rows[0].Key)
	assert.Equal(t, "5.00 ETH", summary.Rows[0].Display)
	assert.Equal(t, "5000000000000000000", summary.Rows[0].Amount)
}

func TestFetchAllSources(t *testing.T) {
	addrs := testAddresses()
	chain := newFakeChain()
	chain.native[addrs.Treasury] = ether(10)
	chain.native[addrs.DAOProxy] = ether(1)
	chain.native[addrs.TokenBuyer] = ether(2)
	chain.tokens[[2]common.Address{addrs.STETH, addrs.Treasury}] = ether(3)
	chain.tokens[[2]common.Address{addrs.USDC, addrs.Treasury}] = big.NewInt(2_000_000_000)
	chain.tokens[[2]common.Address{addrs.NounsToken, addrs.Treasury}] = big.NewInt(42)
	chain.tokens[[2]common.Address{addrs.NounsToken, addrs.ForkEscrow}] = big.NewInt(7)
	// 2000 USDC is worth exactly 1 ETH
	chain.rate = big.NewInt(2e14)

	agg := NewAggregator(chain, nil, addrs, nil)
	snap, err := agg.Fetch(context.Background(), Params{Days: 30})
	require.NoError(t, err)
	assert.Len(t, snap.Balances, 7)

	summary := BuildSummary(addrs, snap)
	var displays []string
	for _, row := range summary.Rows {
		displays = append(displays, row.Label+": "+row.Display)
	}
	assert.Equal(t, []string{
		"Treasury: 10.00 ETH",
		"Treasury: 3.00 stETH",
		"Treasury: 2,000 USDC (Ξ 1.00)",
		"Treasury: 42 Nouns",
		"Fork escrow: 7 Nouns",
		"DAO proxy: 1.00 ETH",
		"Token buyer: 2.00 ETH",
	}, displays)
}

func TestFetchUSDCWithoutRate(t *testing.T) {
	addrs := testAddresses()
	chain := newFakeChain()
	chain.tokens[[2]common.Address{addrs.USDC, addrs.Treasury}] = big.NewInt(1_500_000)

	snap, err := NewAggregator(chain, nil, addrs, nil).Fetch(context.Background(), Params{Days: 30})
	require.NoError(t, err)

	summary := BuildSummary(addrs, snap)
	require.Len(t, summary.Rows, 1)
	assert.Equal(t, "1.5 USDC", summary.Rows[0].Display)
}

func TestFetchActivity(t *testing.T) {
	addrs := testAddresses()
	recipient := common.HexToAddress("0x1111111111111111111111111111111111111111")
	activity := &fakeActivity{
		auctions: []subgraph.Auction{
			{ID: "900", Amount: "1000000000000000000"},
			{ID: "899", Amount: "500000000000000000"},
		},
		proposals: []subgraph.Proposal{
			{
				ID:         "400",
				Targets:    []string{recipient.Hex()},
				Values:     []string{"2000000000000000000"},
				Signatures: []string{""},
				Calldatas:  []string{"0x"},
			},
			{
				ID:         "401",
				Targets:    []string{addrs.STETH.Hex()},
				Values:     []string{"0"},
				Signatures: []string{"transfer(address,uint256)"},
				Calldatas:  []string{transferCalldata(recipient, ether(1))},
			},
			{
				ID:      "402",
				Targets: []string{recipient.Hex()},
			},
		},
	}

	agg := NewAggregator(newFakeChain(), activity, addrs, nil)
	now := time.Date(2026, 3, 10, 12, 30, 45, 0, time.UTC)
	agg.now = func() time.Time { return now }

	snap, err := agg.Fetch(context.Background(), Params{Days: 7, ActivityEnabled: true})
	require.NoError(t, err)
	require.NotNil(t, snap.Activity)

	assert.Equal(t, 7, activity.gotN)
	assert.Equal(t, subgraph.MaxProposals, activity.gotLimit)
	assert.Equal(t, time.Date(2026, 3, 3, 12, 30, 0, 0, time.UTC), activity.gotSince)

	assert.Equal(t, big.NewInt(1_500_000_000_000_000_000), snap.Activity.AuctionProceeds)
	require.Len(t, snap.Activity.AssetsDeployed, 1)
	assert.Equal(t, assets.ETH, snap.Activity.AssetsDeployed[0].Currency)
	assert.Equal(t, ether(3), snap.Activity.AssetsDeployed[0].Value)

	summary := BuildSummary(addrs, snap)
	require.NotNil(t, summary.Activity)
	assert.Equal(t, 7, summary.Activity.Days)
	assert.Equal(t, "1.50 ETH", summary.Activity.AuctionProceeds)
	assert.Equal(t, []string{"3.00 ETH"}, summary.Activity.AssetsDeployed)
}

func TestFetchActivityDisabled(t *testing.T) {
	activity := &fakeActivity{}
	snap, err := NewAggregator(newFakeChain(), activity, testAddresses(), nil).
		Fetch(context.Background(), Params{Days: 7})
	require.NoError(t, err)
	assert.Nil(t, snap.Activity)
	assert.Zero(t, activity.gotN)
}

func TestFetchActivityFailure(t *testing.T) {
	activity := &fakeActivity{err: errUnavailable}
	snap, err := NewAggregator(newFakeChain(), activity, testAddresses(), nil).
		Fetch(context.Background(), Params{Days: 7, ActivityEnabled: true})
	require.NoError(t, err)
	require.NotNil(t, snap.Activity)
	assert.Nil(t, snap.Activity.AuctionProceeds)
	assert.Nil(t, snap.Activity.AssetsDeployed)

	summary := BuildSummary(testAddresses(), snap)
	require.NotNil(t, summary.Activity)
	assert.Empty(t, summary.Activity.AuctionProceeds)
	assert.Empty(t, summary.Activity.AssetsDeployed)
}

func TestFetchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAggregator(newFakeChain(), nil, testAddresses(), nil).Fetch(ctx, Params{Days: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchWarnsOnSourceFailure(t *testing.T) {
	t.Run("failed sources are logged", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))

		_, err := NewAggregator(newFakeChain(), nil, testAddresses(), logger).
			Fetch(context.Background(), Params{Days: 1})
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "Balance unavailable")
		assert.Contains(t, buf.String(), "USDC rate unavailable")
	})

	t.Run("cancelled fetch stays quiet", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewAggregator(newFakeChain(), &fakeActivity{err: errUnavailable}, testAddresses(), logger).
			Fetch(ctx, Params{Days: 7, ActivityEnabled: true})
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotContains(t, buf.String(), `"level":"WARN"`)
	})
}

func TestSlotKeyValid(t *testing.T) {
	for _, src := range testAddresses().sources() {
		assert.True(t, src.key.Valid(), string(src.key))
	}
	assert.False(t, SlotKey("treasury_doge").Valid())
	assert.False(t, SlotKey("").Valid())
}

func TestBuildSummaryUnknownCurrencyPanics(t *testing.T) {
	snap := &Snapshot{
		Params:   Params{Days: 1},
		Balances: map[SlotKey]*big.Int{},
		Activity: &Activity{
			AssetsDeployed: []assets.Amount{{Currency: "doge", Value: big.NewInt(1)}},
		},
	}

	assert.PanicsWithValue(t, assets.UnhandledCurrencyError{Currency: "doge"}, func() {
		BuildSummary(testAddresses(), snap)
	})
}

func TestServiceRefresh(t *testing.T) {
	addrs := testAddresses()
	chain := newFakeChain()
	chain.native[addrs.Treasury] = ether(1)
	svc := NewService(NewAggregator(chain, nil, addrs, nil), Params{Days: 30}, nil)

	assert.Nil(t, svc.Latest())

	var updates atomic.Int32
	svc.OnUpdate(func(context.Context, *Snapshot) { updates.Add(1) })

	snap, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Same(t, snap, svc.Latest())
	assert.Equal(t, int32(1), updates.Load())

	again, err := svc.SetParams(context.Background(), Params{Days: 30})
	require.NoError(t, err)
	assert.Same(t, snap, again, "unchanged params reuse the snapshot")

	_, err = svc.SetParams(context.Background(), Params{Days: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, svc.Latest().Params.Days)
	assert.Equal(t, int32(2), updates.Load())

	summary := svc.Summary(svc.Latest())
	require.Len(t, summary.Rows, 1)
}

func TestServiceLastResolvedWins(t *testing.T) {
	addrs := testAddresses()
	chain := newFakeChain()
	chain.native[addrs.Treasury] = ether(1)
	chain.setHold(make(chan struct{}))

	svc := NewService(NewAggregator(chain, nil, addrs, nil), Params{Days: 30}, nil)

	first := make(chan error, 1)
	go func() {
		_, err := svc.Refresh(context.Background())
		first <- err
	}()

	require.Eventually(t, func() bool { return chain.waiting.Load() > 0 }, time.Second, 5*time.Millisecond)

	chain.setHold(nil)
	snap, err := svc.SetParams(context.Background(), Params{Days: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, snap.Params.Days)

	select {
	case err := <-first:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(time.Second):
		t.Fatal("superseded refresh was not cancelled")
	}

	assert.Equal(t, 7, svc.Latest().Params.Days)
}

func TestServiceConcurrentRefreshShareFetch(t *testing.T) {
	addrs := testAddresses()
	chain := newFakeChain()
	chain.native[addrs.Treasury] = ether(1)
	hold := make(chan struct{})
	chain.setHold(hold)

	svc := NewService(NewAggregator(chain, nil, addrs, nil), Params{Days: 30}, nil)
	reads := int32(len(addrs.sources()) + 1)

	const callers = 4
	snaps := make([]*Snapshot, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snaps[i], errs[i] = svc.Refresh(context.Background())
		}()
	}

	require.Eventually(t, func() bool { return chain.waiting.Load() == reads }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(hold)
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Same(t, snaps[0], snaps[i])
	}
	assert.Equal(t, reads, chain.calls.Load(), "one fetch served every caller")
	assert.Same(t, snaps[0], svc.Latest())
}

func TestServiceRefreshOutlivesCaller(t *testing.T) {
	addrs := testAddresses()
	chain := newFakeChain()
	chain.native[addrs.Treasury] = ether(1)
	hold := make(chan struct{})
	chain.setHold(hold)

	svc := NewService(NewAggregator(chain, nil, addrs, nil), Params{Days: 30}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := svc.Refresh(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool { return chain.waiting.Load() > 0 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(hold)
	require.Eventually(t, func() bool { return svc.Latest() != nil }, time.Second, 5*time.Millisecond)
	assert.Equal(t, ether(1), svc.Latest().Balances[TreasuryETH])
}

func TestServiceFetchLeavesStateAlone(t *testing.T) {
	svc := NewService(NewAggregator(newFakeChain(), nil, testAddresses(), nil), Params{Days: 30}, nil)

	snap, err := svc.Fetch(context.Background(), Params{Days: 90})
	require.NoError(t, err)
	assert.Equal(t, 90, snap.Params.Days)
	assert.Nil(t, svc.Latest())
	assert.Equal(t, 30, svc.Params().Days)
}
