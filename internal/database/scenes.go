package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/leca/scene-archive/internal/model"
	"github.com/leca/scene-archive/internal/search"
)

const sceneColumns = `scene_id, batch_name, base_filename, capture_date,
	description, description_model, description_timestamp, short_description,
	roll_number, roll_date, date_source, date_notes, roll_comment,
	index_book_number, index_book_date, index_book_comment,
	created_at, updated_at`

// UpsertScene resolves the scene's identity by scene_id and by
// (batch_name, base_filename). A pair owned by a different scene_id is a
// constraint violation; otherwise every field is overwritten.
func (c *catalog) UpsertScene(ctx context.Context, sc *model.Scene) (string, error) {
	if sc.SceneID == "" || sc.BatchName == "" || sc.BaseFilename == "" {
		return "", &model.ValidationError{Item: sc.SceneID, Field: "scene", Reason: "scene_id, batch_name and base_filename are required"}
	}

	rows, err := c.q.QueryContext(ctx, `
		SELECT scene_id, created_at, updated_at FROM scenes
		WHERE scene_id = ? OR (batch_name = ? AND base_filename = ?)`,
		sc.SceneID, sc.BatchName, sc.BaseFilename,
	)
	if err != nil {
		return "", fmt.Errorf("resolve scene identity: %w", err)
	}

	var (
		exists              bool
		createdAt, previous time.Time
	)
	for rows.Next() {
		var id, createdStr, updatedStr string
		if err := rows.Scan(&id, &createdStr, &updatedStr); err != nil {
			rows.Close()
			return "", fmt.Errorf("scan scene identity: %w", err)
		}
		if id != sc.SceneID {
			rows.Close()
			return "", fmt.Errorf("%s/%s belongs to scene %s: %w",
				sc.BatchName, sc.BaseFilename, id, model.ErrConstraintViolation)
		}
		exists = true
		if createdAt, err = parseTime(createdStr); err != nil {
			rows.Close()
			return "", err
		}
		if previous, err = parseTime(updatedStr); err != nil {
			rows.Close()
			return "", err
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return "", fmt.Errorf("resolve scene identity: %w", err)
	}
	rows.Close()

	now := c.clock.stamp(previous)
	if !exists {
		createdAt = now
	}

	_, err = c.q.ExecContext(ctx, `
		INSERT INTO scenes (`+sceneColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (scene_id) DO UPDATE SET
			batch_name = excluded.batch_name,
			base_filename = excluded.base_filename,
			capture_date = excluded.capture_date,
			description = excluded.description,
			description_model = excluded.description_model,
			description_timestamp = excluded.description_timestamp,
			short_description = excluded.short_description,
			roll_number = excluded.roll_number,
			roll_date = excluded.roll_date,
			date_source = excluded.date_source,
			date_notes = excluded.date_notes,
			roll_comment = excluded.roll_comment,
			index_book_number = excluded.index_book_number,
			index_book_date = excluded.index_book_date,
			index_book_comment = excluded.index_book_comment,
			updated_at = excluded.updated_at`,
		sc.SceneID, sc.BatchName, sc.BaseFilename, nullString(sc.CaptureDate),
		nullString(sc.Description), nullString(sc.DescriptionModel),
		nullString(sc.DescriptionTimestamp), nullString(sc.ShortDescription),
		nullString(sc.RollNumber), nullString(sc.RollDate), nullString(sc.DateSource),
		nullString(sc.DateNotes), nullString(sc.RollComment),
		nullString(sc.IndexBookNumber), nullString(sc.IndexBookDate), nullString(sc.IndexBookComment),
		formatTime(createdAt), formatTime(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("upsert scene %s: %w", sc.SceneID, model.ErrConstraintViolation)
		}
		return "", fmt.Errorf("upsert scene %s: %w", sc.SceneID, err)
	}

	sc.CreatedAt = createdAt
	sc.UpdatedAt = now
	return sc.SceneID, nil
}

func (c *catalog) GetScene(ctx context.Context, sceneID string) (*model.Scene, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+sceneColumns+` FROM scenes WHERE scene_id = ?`, sceneID)
	sc, err := scanScene(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scene %s: %w", sceneID, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get scene: %w", err)
	}
	return sc, nil
}

// ListScenes pages through scenes newest first, optionally within one batch.
func (c *catalog) ListScenes(ctx context.Context, batchName string, limit, offset int) ([]*model.Scene, error) {
	limit, offset = search.Page(limit, offset)

	var (
		rows *sql.Rows
		err  error
	)
	if batchName != "" {
		rows, err = c.q.QueryContext(ctx, `
			SELECT `+sceneColumns+` FROM scenes
			WHERE batch_name = ?
			ORDER BY created_at DESC, scene_id ASC
			LIMIT ? OFFSET ?`,
			batchName, limit, offset,
		)
	} else {
		rows, err = c.q.QueryContext(ctx, `
			SELECT `+sceneColumns+` FROM scenes
			ORDER BY created_at DESC, scene_id ASC
			LIMIT ? OFFSET ?`,
			limit, offset,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	defer rows.Close()
	return scanScenes(rows)
}

func (c *catalog) ListScenesByRoll(ctx context.Context, rollNumber string) ([]*model.Scene, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT `+sceneColumns+` FROM scenes
		WHERE roll_number = ?
		ORDER BY base_filename ASC`,
		rollNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("list scenes by roll: %w", err)
	}
	defer rows.Close()
	return scanScenes(rows)
}

func scanScene(row scannable) (*model.Scene, error) {
	sc := &model.Scene{}
	var createdStr, updatedStr string
	err := row.Scan(&sc.SceneID, &sc.BatchName, &sc.BaseFilename, &sc.CaptureDate,
		&sc.Description, &sc.DescriptionModel, &sc.DescriptionTimestamp, &sc.ShortDescription,
		&sc.RollNumber, &sc.RollDate, &sc.DateSource, &sc.DateNotes, &sc.RollComment,
		&sc.IndexBookNumber, &sc.IndexBookDate, &sc.IndexBookComment,
		&createdStr, &updatedStr)
	if err != nil {
		return nil, err
	}
	if sc.CreatedAt, err = parseTime(createdStr); err != nil {
		return nil, err
	}
	if sc.UpdatedAt, err = parseTime(updatedStr); err != nil {
		return nil, err
	}
	return sc, nil
}

func scanScenes(rows *sql.Rows) ([]*model.Scene, error) {
	scenes := []*model.Scene{}
	for rows.Next() {
		sc, err := scanScene(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		scenes = append(scenes, sc)
	}
	return scenes, rows.Err()
}
