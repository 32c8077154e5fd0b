package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/matrixise/nouns-dashboard/internal/treasury"
	"github.com/spf13/cobra"
)

var (
	summaryDays int
	summaryJSON bool
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the treasury summary once",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)

	summaryCmd.Flags().IntVar(&summaryDays, "days", 0, "activity window in days (default: activity.window_days)")
	summaryCmd.Flags().BoolVar(&summaryJSON, "json", false, "print the summary as JSON")
}

func runSummary(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	// snapshots are only persisted by serve
	cfg.DatabaseURL = ""

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	params := a.treasury.Params()
	if summaryDays > 0 {
		params.Days = summaryDays
	}

	snap, err := a.treasury.SetParams(ctx, params)
	if err != nil {
		return fmt.Errorf("fetch treasury: %w", err)
	}
	summary := a.treasury.Summary(snap)

	if summaryJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	return printSummary(cmd.OutOrStdout(), summary)
}

func printSummary(out io.Writer, summary treasury.Summary) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Treasury overview (%s)\n", summary.FetchedAt.Format("2006-01-02 15:04 MST"))
	for _, row := range summary.Rows {
		fmt.Fprintf(tw, "  %s\t%s\n", row.Label, row.Display)
	}

	if act := summary.Activity; act != nil {
		fmt.Fprintf(tw, "\nLast %d days\n", act.Days)
		if act.AuctionProceeds != "" {
			fmt.Fprintf(tw, "  Auction proceeds\t%s\n", act.AuctionProceeds)
		}
		for i, deployed := range act.AssetsDeployed {
			label := ""
			if i == 0 {
				label = "Assets deployed"
			}
			fmt.Fprintf(tw, "  %s\t%s\n", label, deployed)
		}
	}

	return tw.Flush()
}
