package postgres

import (
	"context"
	"fmt"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/pitchside/matchtracker/internal/infrastructure/repository/memory"
)

// BootstrapSeed loads the demo matches and operator roster into an empty
// database. It is a no-op once any match row exists.
func BootstrapSeed(ctx context.Context, db *sqlx.DB) error {
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(1) FROM matches`); err != nil {
		return fmt.Errorf("count matches for bootstrap seed: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, m := range memory.SeedMatches() {
		homeTeam, err := sonic.Marshal(m.HomeTeam)
		if err != nil {
			return fmt.Errorf("encode seed match %s home team: %w", m.ID, err)
		}
		awayTeam, err := sonic.Marshal(m.AwayTeam)
		if err != nil {
			return fmt.Errorf("encode seed match %s away team: %w", m.ID, err)
		}

		sqlQuery, args, err := sqlx.Named(`
INSERT INTO matches (id, home_team, away_team, status, manager_ids, backup_tracker_ids)
VALUES (:id, :home_team, :away_team, :status, :manager_ids, :backup_tracker_ids)
ON CONFLICT (id) DO NOTHING`, map[string]any{
			"id":                 m.ID,
			"home_team":          homeTeam,
			"away_team":          awayTeam,
			"status":             m.Status,
			"manager_ids":        pq.StringArray(m.ManagerIDs),
			"backup_tracker_ids": pq.StringArray(m.BackupTrackerIDs),
		})
		if err != nil {
			return fmt.Errorf("bind seed match %s query: %w", m.ID, err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(sqlQuery), args...); err != nil {
			return fmt.Errorf("insert seed match %s: %w", m.ID, err)
		}
	}

	for _, t := range memory.SeedTrackers() {
		sqlQuery, args, err := sqlx.Named(`
INSERT INTO trackers (id, name, role, registered_at)
VALUES (:id, :name, :role, :registered_at)
ON CONFLICT (id) DO NOTHING`, map[string]any{
			"id":            t.ID,
			"name":          t.Name,
			"role":          string(t.Role),
			"registered_at": t.RegisteredAt,
		})
		if err != nil {
			return fmt.Errorf("bind seed tracker %s query: %w", t.ID, err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(sqlQuery), args...); err != nil {
			return fmt.Errorf("insert seed tracker %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bootstrap seed: %w", err)
	}
	return nil
}
