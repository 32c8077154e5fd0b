package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/matrixise/nouns-dashboard/internal/members"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

const memberColumns = `id, name, address, COALESCE(ens_name, ''), COALESCE(avatar_url, ''), online`

// Store manages PostgreSQL operations
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new PostgreSQL store with connection pooling
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	// NUMERIC columns scan into decimal.Decimal
	config.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close closes the connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies the connection is alive
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func scanMember(row pgx.Row) (members.Member, error) {
	var m members.Member
	err := row.Scan(&m.ID, &m.Name, &m.Address, &m.ENSName, &m.AvatarURL, &m.Online)
	return m, err
}

// ListMembers returns the whole roster ordered by id
func (s *Store) ListMembers(ctx context.Context) ([]members.Member, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+memberColumns+` FROM members ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}

	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (members.Member, error) {
		return scanMember(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan members: %w", err)
	}
	return list, nil
}

// GetMember returns one member or ErrNotFound
func (s *Store) GetMember(ctx context.Context, id string) (members.Member, error) {
	m, err := scanMember(s.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return members.Member{}, fmt.Errorf("member %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return members.Member{}, fmt.Errorf("failed to get member %s: %w", id, err)
	}
	return m, nil
}

// UpsertMember inserts or updates a roster entry
func (s *Store) UpsertMember(ctx context.Context, m members.Member) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO members (id, name, address, ens_name, avatar_url, online, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			ens_name = EXCLUDED.ens_name,
			avatar_url = EXCLUDED.avatar_url,
			online = EXCLUDED.online,
			updated_at = now()`,
		m.ID, m.Name, m.Address, m.ENSName, m.AvatarURL, m.Online,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert member %s: %w", m.ID, err)
	}
	return nil
}

// BlockedIDs returns the members the viewer has blocked
func (s *Store) BlockedIDs(ctx context.Context, viewerID string) (map[string]struct{}, error) {
	return s.idSet(ctx, `SELECT blocked_id FROM member_blocks WHERE viewer_id = $1`, viewerID)
}

// StarredIDs returns the members the viewer has starred
func (s *Store) StarredIDs(ctx context.Context, viewerID string) (map[string]struct{}, error) {
	return s.idSet(ctx, `SELECT starred_id FROM member_stars WHERE viewer_id = $1`, viewerID)
}

func (s *Store) idSet(ctx context.Context, query, viewerID string) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, query, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ids: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan ids: %w", err)
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// InsertSnapshot stores the rows of one snapshot using pgx.Batch
func (s *Store) InsertSnapshot(ctx context.Context, rows []SnapshotRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO treasury_snapshots
			(fetched_at, chain_id, slot, currency, raw_amount, amount)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			r.FetchedAt,
			r.ChainID,
			r.Slot,
			r.Currency,
			r.RawAmount,
			r.Amount,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch insert failed: %w", err)
		}
	}

	return nil
}

// SlotHistory returns the most recent persisted values of one slot
func (s *Store) SlotHistory(ctx context.Context, slot string, limit int) ([]SnapshotRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, fetched_at, chain_id, slot, currency, raw_amount, amount
		FROM treasury_snapshots
		WHERE slot = $1
		ORDER BY fetched_at DESC
		LIMIT $2`, slot, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}

	history, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (SnapshotRow, error) {
		var r SnapshotRow
		err := row.Scan(&r.ID, &r.FetchedAt, &r.ChainID, &r.Slot, &r.Currency, &r.RawAmount, &r.Amount)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshots: %w", err)
	}
	return history, nil
}
