package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/matrixise/nouns-dashboard/internal/members"
	"github.com/matrixise/nouns-dashboard/internal/storage"
	"github.com/spf13/cobra"
)

var (
	membersViewer string
	membersQuery  string
)

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "Search the member directory",
	Long: `Search the stored member directory as seen by a viewer. With --query the
search runs once; otherwise each line read from stdin is a new query and the
list is printed once typing pauses.`,
	RunE: runMembers,
}

func init() {
	rootCmd.AddCommand(membersCmd)

	membersCmd.Flags().StringVar(&membersViewer, "viewer", "", "member id of the viewer")
	membersCmd.Flags().StringVarP(&membersQuery, "query", "q", "", "run a single search and exit")
}

func runMembers(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		return err
	}
	defer store.Close()

	roster, err := store.RosterFor(ctx, membersViewer)
	if err != nil {
		return err
	}

	dir := members.NewDirectory(roster, cfg.SearchDebounce(), slog.Default())
	defer dir.Close()

	out := cmd.OutOrStdout()
	if cmd.Flags().Changed("query") {
		list, err := dir.Search(ctx, membersQuery)
		if err != nil {
			return err
		}
		printMembers(out, list)
		return nil
	}

	return interactiveSearch(ctx, dir, cmd.InOrStdin(), out)
}

// interactiveSearch feeds stdin lines to the debounced directory. The last
// line is searched synchronously if its debounced search had not published
// before input ended.
func interactiveSearch(ctx context.Context, dir *members.Directory, in io.Reader, out io.Writer) error {
	var mu sync.Mutex
	show := func(_ string, list []members.Member) {
		mu.Lock()
		defer mu.Unlock()
		printMembers(out, list)
	}

	var last string
	seen := false
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		last = scanner.Text()
		seen = true
		dir.Input(ctx, last, show)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	dir.Close()
	if !seen {
		return nil
	}
	if query, list := dir.Results(); list != nil && query == last {
		return nil
	}

	list, err := dir.Search(ctx, last)
	if err != nil {
		return err
	}
	show(last, list)
	return nil
}

func printMembers(out io.Writer, list []members.Member) {
	for _, m := range list {
		var flags []string
		if m.IsBlocked {
			flags = append(flags, "blocked")
		}
		if m.IsStarred {
			flags = append(flags, "starred")
		}
		if m.Online {
			flags = append(flags, "online")
		}

		line := fmt.Sprintf("%-24s %s", m.Name, m.Address)
		if m.ENSName != "" {
			line += " (" + m.ENSName + ")"
		}
		if len(flags) > 0 {
			line += " [" + strings.Join(flags, ", ") + "]"
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, "--")
}
