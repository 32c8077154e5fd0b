package treasury

import (
	"time"

	"github.com/matrixise/nouns-dashboard/internal/assets"
)

// Row is one resolved balance in the overview.
type Row struct {
	Key      SlotKey         `json:"key"`
	Label    string          `json:"label"`
	Currency assets.Currency `json:"currency"`
	Amount   string          `json:"amount"`
	Display  string          `json:"display"`
}

// ActivityView is the rendered activity section.
type ActivityView struct {
	Days            int      `json:"days"`
	AuctionProceeds string   `json:"auction_proceeds,omitempty"`
	AssetsDeployed  []string `json:"assets_deployed,omitempty"`
}

// Summary is the treasury view model.
type Summary struct {
	FetchedAt time.Time     `json:"fetched_at"`
	Rows      []Row         `json:"rows"`
	Activity  *ActivityView `json:"activity,omitempty"`
}

// BuildSummary renders a snapshot. Unresolved slots produce no row; USD
// rows carry an ETH hint only when the rate resolved.
func BuildSummary(addrs Addresses, snap *Snapshot) Summary {
	summary := Summary{FetchedAt: snap.FetchedAt, Rows: []Row{}}

	for _, src := range addrs.sources() {
		value, ok := snap.Balances[src.key]
		if !ok || value == nil {
			continue
		}

		row := Row{
			Key:      src.key,
			Label:    src.label,
			Currency: src.currency,
			Amount:   value.String(),
		}
		row.Display = assets.Render(assets.NewAmount(src.currency, value))
		if src.currency == assets.USDC {
			row.Display += assets.ETHHint(value, snap.USDCRate)
		}
		summary.Rows = append(summary.Rows, row)
	}

	if snap.Activity != nil {
		view := &ActivityView{Days: snap.Params.Days}
		if snap.Activity.AuctionProceeds != nil {
			view.AuctionProceeds = assets.Render(assets.NewAmount(assets.ETH, snap.Activity.AuctionProceeds))
		}
		for _, amount := range snap.Activity.AssetsDeployed {
			view.AssetsDeployed = append(view.AssetsDeployed, assets.Render(amount))
		}
		summary.Activity = view
	}

	return summary
}
