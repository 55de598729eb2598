package collection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UsageStat is one per-action counter row. Actions are trigger kinds
// ("image", "collage", ...) and share action names.
type UsageStat struct {
	Action     string
	Count      int64
	LastUsedAt *time.Time
}

// IncrementUsage bumps the counter for an action and stamps last_used_at.
func (s *Store) IncrementUsage(ctx context.Context, action string) error {
	if action == "" {
		return errors.New("action name required")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO usage_stats (action, count, last_used_at) VALUES (?, 1, ?)
         ON CONFLICT(action) DO UPDATE SET count = count + 1, last_used_at = excluded.last_used_at`,
		action,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("increment usage %s: %w", action, err)
	}
	return nil
}

// UsageFor returns the stat row for one action. The bool reports presence.
func (s *Store) UsageFor(ctx context.Context, action string) (UsageStat, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT action, count, last_used_at FROM usage_stats WHERE action = ?`,
		action,
	)
	stat, err := scanUsageStat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return UsageStat{Action: action}, false, nil
	}
	if err != nil {
		return UsageStat{}, false, fmt.Errorf("get usage stat: %w", err)
	}
	return stat, true, nil
}

// UsageStats returns all counter rows ordered by action name.
func (s *Store) UsageStats(ctx context.Context) ([]UsageStat, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT action, count, last_used_at FROM usage_stats ORDER BY action ASC`)
	if err != nil {
		return nil, fmt.Errorf("list usage stats: %w", err)
	}
	defer rows.Close()

	var stats []UsageStat
	for rows.Next() {
		stat, err := scanUsageStat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan usage stat: %w", err)
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

// ResetUsage drops all counters.
func (s *Store) ResetUsage(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM usage_stats`); err != nil {
		return fmt.Errorf("reset usage stats: %w", err)
	}
	return nil
}

func scanUsageStat(scanner interface{ Scan(dest ...any) error }) (UsageStat, error) {
	var (
		action      string
		count       int64
		lastUsedRaw sql.NullString
	)
	if err := scanner.Scan(&action, &count, &lastUsedRaw); err != nil {
		return UsageStat{}, err
	}
	stat := UsageStat{Action: action, Count: count}
	if lastUsedRaw.Valid {
		if lastUsed, err := parseTimeString(lastUsedRaw.String); err == nil {
			stat.LastUsedAt = &lastUsed
		}
	}
	return stat, nil
}
