package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/leca/scene-archive/internal/model"
)

func (s *SQLiteDB) CreateSyncRun(ctx context.Context, run *model.SyncRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, sync_type, scenes_synced, versions_marked_live, started_at, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SyncType, run.ScenesSynced, run.VersionsMarkedLive,
		formatTime(run.StartedAt), run.Status, nullString(run.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("insert sync run: %w", err)
	}
	return nil
}

func (s *SQLiteDB) FinishSyncRun(ctx context.Context, run *model.SyncRun) error {
	var completed any
	if run.CompletedAt != nil {
		completed = formatTime(*run.CompletedAt)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE sync_runs
		SET status = ?, scenes_synced = ?, versions_marked_live = ?, completed_at = ?, error_message = ?
		WHERE id = ?`,
		run.Status, run.ScenesSynced, run.VersionsMarkedLive, completed, nullString(run.ErrorMessage), run.ID,
	)
	if err != nil {
		return fmt.Errorf("update sync run: %w", err)
	}
	return checkRowsAffected(res, fmt.Errorf("sync run %s: %w", run.ID, model.ErrNotFound))
}

func (s *SQLiteDB) LatestSyncRun(ctx context.Context) (*model.SyncRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, sync_type, scenes_synced, versions_marked_live, started_at, completed_at, status, error_message
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT 1`)

	run := &model.SyncRun{}
	var (
		startedStr   string
		completedStr sql.NullString
	)
	err := row.Scan(&run.ID, &run.SyncType, &run.ScenesSynced, &run.VersionsMarkedLive,
		&startedStr, &completedStr, &run.Status, &run.ErrorMessage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sync run: %w", model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get latest sync run: %w", err)
	}
	if run.StartedAt, err = parseTime(startedStr); err != nil {
		return nil, err
	}
	if run.CompletedAt, err = parseNullTime(completedStr); err != nil {
		return nil, err
	}
	return run, nil
}
