package storage

import (
	"fmt"
	"time"

	"github.com/matrixise/nouns-dashboard/internal/assets"
	"github.com/matrixise/nouns-dashboard/internal/treasury"
	"github.com/shopspring/decimal"
)

// SnapshotRow is one resolved balance of a persisted treasury snapshot
type SnapshotRow struct {
	ID        int64           `json:"id"`
	FetchedAt time.Time       `json:"fetched_at"`
	ChainID   int64           `json:"chain_id"`
	Slot      string          `json:"slot"`
	Currency  string          `json:"currency"`
	RawAmount decimal.Decimal `json:"raw_amount"`
	Amount    decimal.Decimal `json:"amount"`
}

// SnapshotRows flattens a summary into rows. Amount is RawAmount scaled by
// the currency decimals. A row in an unknown currency is rejected rather than
// stored unscaled.
func SnapshotRows(summary treasury.Summary, chainID int64) ([]SnapshotRow, error) {
	rows := make([]SnapshotRow, 0, len(summary.Rows))
	for _, r := range summary.Rows {
		if !r.Currency.Valid() {
			return nil, fmt.Errorf("slot %s: %w", r.Key, assets.UnhandledCurrencyError{Currency: r.Currency})
		}
		raw, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return nil, fmt.Errorf("slot %s: invalid amount %q: %w", r.Key, r.Amount, err)
		}
		rows = append(rows, SnapshotRow{
			FetchedAt: summary.FetchedAt,
			ChainID:   chainID,
			Slot:      string(r.Key),
			Currency:  string(r.Currency),
			RawAmount: raw,
			Amount:    raw.Shift(-r.Currency.Decimals()),
		})
	}
	return rows, nil
}
