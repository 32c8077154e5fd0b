package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "nouns-dashboard",
	Short: "Nouns DAO treasury and member directory",
	Long: `nouns-dashboard reads the Nouns DAO treasury from Ethereum mainnet and the
Nouns subgraph, and serves the treasury summary and the member directory as
JSON. It can also print the summary once or search the stored roster from
the terminal.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}
