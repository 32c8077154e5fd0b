package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/matrixise/nouns-dashboard/internal/config"
	"github.com/matrixise/nouns-dashboard/internal/logger"
	"github.com/matrixise/nouns-dashboard/internal/members"
	"github.com/matrixise/nouns-dashboard/internal/storage"
	"github.com/spf13/cobra"
)

var membersImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Load members from a JSON file",
	Long: `Insert or update directory members from a JSON array of objects with
id, name, address and optional ens_name, avatar_url and online fields.
Use - to read from stdin. Nothing is written if any entry is invalid.`,
	Args: cobra.ExactArgs(1),
	RunE: runMembersImport,
}

func init() {
	membersCmd.AddCommand(membersImportCmd)
}

// memberRecord is the import format of one directory entry.
type memberRecord struct {
	ID        string `json:"id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Address   string `json:"address" validate:"required,eth_addr"`
	ENSName   string `json:"ens_name"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
	Online    bool   `json:"online"`
}

type memberWriter interface {
	UpsertMember(ctx context.Context, m members.Member) error
}

func runMembersImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	logger.Setup(logLevel)

	dsn, err := config.DatabaseURL(cfgFile)
	if err != nil {
		return err
	}

	in := cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open members file: %w", err)
		}
		defer f.Close()
		in = f
	}

	list, err := decodeMembers(in)
	if err != nil {
		return err
	}

	store, err := storage.NewStore(ctx, dsn)
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		return err
	}
	defer store.Close()

	n, err := importMembers(ctx, store, list)
	if err != nil {
		slog.Error("Member import failed", "imported", n, "error", err)
		return err
	}

	slog.Info("Members imported", "count", n)
	return nil
}

// decodeMembers parses and validates every entry before any is written.
func decodeMembers(r io.Reader) ([]members.Member, error) {
	var records []memberRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode members: %w", err)
	}

	validate := config.NewValidator()
	seen := make(map[string]struct{}, len(records))
	list := make([]members.Member, 0, len(records))
	for i, rec := range records {
		if err := validate.Struct(rec); err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		if _, dup := seen[rec.ID]; dup {
			return nil, fmt.Errorf("member %d: duplicate id %q", i, rec.ID)
		}
		seen[rec.ID] = struct{}{}

		list = append(list, members.Member{
			ID:        rec.ID,
			Name:      rec.Name,
			Address:   rec.Address,
			ENSName:   rec.ENSName,
			AvatarURL: rec.AvatarURL,
			Online:    rec.Online,
		})
	}
	return list, nil
}

// importMembers upserts in order and reports how many were written.
func importMembers(ctx context.Context, dst memberWriter, list []members.Member) (int, error) {
	for i, m := range list {
		if err := dst.UpsertMember(ctx, m); err != nil {
			return i, err
		}
	}
	return len(list), nil
}
