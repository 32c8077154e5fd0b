package storage

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/matrixise/nouns-dashboard/internal/assets"
	"github.com/matrixise/nouns-dashboard/internal/members"
	"github.com/matrixise/nouns-dashboard/internal/treasury"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRows(t *testing.T) {
	fetched := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	summary := treasury.Summary{
		FetchedAt: fetched,
		Rows: []treasury.Row{
			{Key: treasury.TreasuryETH, Currency: assets.ETH, Amount: "5250000000000000000"},
			{Key: treasury.TreasuryUSDC, Currency: assets.USDC, Amount: "1500000"},
			{Key: treasury.TreasuryNouns, Currency: assets.Nouns, Amount: "42"},
		},
	}

	rows, err := SnapshotRows(summary, 1)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	tests := []struct {
		slot   string
		raw    string
		amount string
	}{
		{"treasury_eth", "5250000000000000000", "5.25"},
		{"treasury_usdc", "1500000", "1.5"},
		{"treasury_nouns", "42", "42"},
	}
	for i, tt := range tests {
		t.Run(tt.slot, func(t *testing.T) {
			r := rows[i]
			assert.Equal(t, tt.slot, r.Slot)
			assert.Equal(t, int64(1), r.ChainID)
			assert.Equal(t, fetched, r.FetchedAt)
			assert.True(t, decimal.RequireFromString(tt.raw).Equal(r.RawAmount))
			assert.True(t, decimal.RequireFromString(tt.amount).Equal(r.Amount), "got %s", r.Amount)
		})
	}
}

func TestSnapshotRowsLargeAmount(t *testing.T) {
	// beyond uint64, as balances of rebasing tokens can be
	summary := treasury.Summary{Rows: []treasury.Row{
		{Key: treasury.TreasurySTETH, Currency: assets.STETH, Amount: "999999999999999999999999999"},
	}}

	rows, err := SnapshotRows(summary, 1)
	require.NoError(t, err)
	assert.Equal(t, "999999999.999999999999999999", rows[0].Amount.String())
}

func TestSnapshotRowsInvalidAmount(t *testing.T) {
	summary := treasury.Summary{Rows: []treasury.Row{
		{Key: treasury.TreasuryETH, Currency: assets.ETH, Amount: "five"},
	}}

	_, err := SnapshotRows(summary, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "treasury_eth")
}

func TestSnapshotRowsUnknownCurrency(t *testing.T) {
	summary := treasury.Summary{Rows: []treasury.Row{
		{Key: treasury.TreasuryETH, Currency: assets.ETH, Amount: "1"},
		{Key: treasury.TreasuryWETH, Currency: "doge", Amount: "1"},
	}}

	rows, err := SnapshotRows(summary, 1)
	assert.Nil(t, rows)

	var unhandled assets.UnhandledCurrencyError
	require.ErrorAs(t, err, &unhandled)
	assert.Equal(t, assets.Currency("doge"), unhandled.Currency)
	assert.Contains(t, err.Error(), "treasury_weth")
}

func TestSnapshotRowsEmpty(t *testing.T) {
	rows, err := SnapshotRows(treasury.Summary{}, 1)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

type fakeLister struct {
	list []members.Member
	err  error
}

func (f fakeLister) ListMembers(context.Context) ([]members.Member, error) {
	return f.list, f.err
}

func TestRoster(t *testing.T) {
	lister := fakeLister{list: []members.Member{
		{ID: "1", Name: "Alice"},
		{ID: "2", Name: "Bob"},
		{ID: "3", Name: "Carol"},
	}}
	roster := newRoster(lister, "1",
		map[string]struct{}{"2": {}},
		map[string]struct{}{"3": {}},
	)

	assert.Equal(t, "1", roster.ViewerID())
	assert.True(t, roster.IsBlocked("2"))
	assert.False(t, roster.IsBlocked("3"))
	assert.Contains(t, roster.StarredIDs(), "3")

	dir := members.NewDirectory(roster, time.Millisecond, nil)
	got, err := dir.Search(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Alice (you)", got[0].Name)
	assert.True(t, got[1].IsBlocked)
	assert.True(t, got[2].IsStarred)
}

func TestRosterNilSets(t *testing.T) {
	roster := newRoster(fakeLister{err: errors.New("down")}, "1", nil, nil)

	assert.False(t, roster.IsBlocked("2"))
	assert.NotNil(t, roster.StarredIDs())
	_, err := roster.Members(context.Background())
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	data, err := fs.ReadFile(migrations, files[0])
	require.NoError(t, err)

	sql := string(data)
	assert.True(t, strings.HasPrefix(sql, "-- +goose Up"))
	assert.Contains(t, sql, "-- +goose Down")
	for _, table := range []string{"members", "member_blocks", "member_stars", "treasury_snapshots"} {
		assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}
