package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/leca/scene-archive/internal/model"
)

const versionColumns = `version_id, scene_id, version_type, local_path, storage_key,
	perceptual_hash, checksum, file_size, is_current, created_at, synced_at`

// UpsertVersion writes v. The owning scene must already exist. When
// isCurrent is set, siblings are cleared before v is written; callers run
// both statements in one transaction.
func (c *catalog) UpsertVersion(ctx context.Context, v *model.ImageVersion, isCurrent bool) (string, error) {
	if v.VersionID == "" || v.VersionType == "" {
		return "", &model.ValidationError{Item: v.VersionID, Field: "version", Reason: "version_id and version_type are required"}
	}

	var one int
	err := c.q.QueryRowContext(ctx, `SELECT 1 FROM scenes WHERE scene_id = ?`, v.SceneID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("version %s references %s: %w", v.VersionID, v.SceneID, model.ErrSceneNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("check scene: %w", err)
	}

	// A version belongs to one scene for life.
	var owner string
	err = c.q.QueryRowContext(ctx, `SELECT scene_id FROM image_versions WHERE version_id = ?`, v.VersionID).Scan(&owner)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return "", fmt.Errorf("check version owner: %w", err)
	case owner != v.SceneID:
		return "", fmt.Errorf("version %s belongs to %s, not %s: %w", v.VersionID, owner, v.SceneID, model.ErrConflict)
	}

	if isCurrent {
		_, err := c.q.ExecContext(ctx, `
			UPDATE image_versions SET is_current = 0
			WHERE scene_id = ? AND version_id != ? AND is_current = 1`,
			v.SceneID, v.VersionID,
		)
		if err != nil {
			return "", fmt.Errorf("clear current versions of %s: %w", v.SceneID, err)
		}
	}

	now := c.clock.stamp(v.CreatedAt)
	var syncedAt any
	if v.StorageKey != nil {
		syncedAt = formatTime(now)
	}

	_, err = c.q.ExecContext(ctx, `
		INSERT INTO image_versions (`+versionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (version_id) DO UPDATE SET
			scene_id = excluded.scene_id,
			version_type = excluded.version_type,
			local_path = excluded.local_path,
			storage_key = excluded.storage_key,
			perceptual_hash = excluded.perceptual_hash,
			checksum = excluded.checksum,
			file_size = excluded.file_size,
			is_current = excluded.is_current,
			synced_at = excluded.synced_at`,
		v.VersionID, v.SceneID, v.VersionType, v.LocalPath, nullString(v.StorageKey),
		nullString(v.PerceptualHash), nullString(v.Checksum), nullInt64(v.FileSize), boolToInt(isCurrent),
		formatTime(now), syncedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("version %s: two current versions for %s: %w", v.VersionID, v.SceneID, model.ErrConflict)
		}
		return "", fmt.Errorf("upsert version %s: %w", v.VersionID, err)
	}

	v.IsCurrent = isCurrent
	return v.VersionID, nil
}

// SetLiveStorageKey marks a version live (non-nil key) or not live. The
// key is trusted: no existence check is made against the storage backend.
func (c *catalog) SetLiveStorageKey(ctx context.Context, versionID string, key *string) error {
	var syncedAt any
	if key != nil {
		syncedAt = formatTime(c.clock.stamp(time.Time{}))
	}
	res, err := c.q.ExecContext(ctx, `
		UPDATE image_versions SET storage_key = ?, synced_at = ?
		WHERE version_id = ?`,
		nullString(key), syncedAt, versionID,
	)
	if err != nil {
		return fmt.Errorf("set storage key: %w", err)
	}
	return checkRowsAffected(res, fmt.Errorf("version %s: %w", versionID, model.ErrNotFound))
}

// ListVersions returns every version of a scene, newest first.
func (c *catalog) ListVersions(ctx context.Context, sceneID string) ([]*model.ImageVersion, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT `+versionColumns+` FROM image_versions
		WHERE scene_id = ?
		ORDER BY created_at DESC, version_id ASC`,
		sceneID,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	versions := []*model.ImageVersion{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// GetCurrentLiveVersion excludes a current version that has no storage key:
// a scene mid-sync has no publicly visible version.
func (c *catalog) GetCurrentLiveVersion(ctx context.Context, sceneID string) (*model.ImageVersion, error) {
	row := c.q.QueryRowContext(ctx, `
		SELECT `+versionColumns+` FROM image_versions
		WHERE scene_id = ? AND is_current = 1 AND storage_key IS NOT NULL`,
		sceneID,
	)
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("live version of %s: %w", sceneID, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get current live version: %w", err)
	}
	return v, nil
}

// ListLiveVersions loads live versions together with their scene's
// identity fields in one pass, newest first.
func (c *catalog) ListLiveVersions(ctx context.Context, limit int, hashedOnly bool) ([]*model.LiveVersion, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `
		SELECT v.version_id, v.scene_id, v.version_type, v.local_path, v.storage_key,
			v.perceptual_hash, v.checksum, v.file_size, v.is_current, v.created_at, v.synced_at,
			s.batch_name, s.base_filename, s.capture_date
		FROM image_versions v
		JOIN scenes s ON s.scene_id = v.scene_id
		WHERE v.storage_key IS NOT NULL`
	if hashedOnly {
		query += ` AND v.perceptual_hash IS NOT NULL`
	}
	query += `
		ORDER BY v.created_at DESC, v.version_id ASC
		LIMIT ?`

	rows, err := c.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list live versions: %w", err)
	}
	defer rows.Close()

	live := []*model.LiveVersion{}
	for rows.Next() {
		lv := &model.LiveVersion{}
		var (
			isCurrent  int
			createdStr string
			syncedStr  sql.NullString
		)
		v := &lv.ImageVersion
		if err := rows.Scan(&v.VersionID, &v.SceneID, &v.VersionType, &v.LocalPath, &v.StorageKey,
			&v.PerceptualHash, &v.Checksum, &v.FileSize, &isCurrent, &createdStr, &syncedStr,
			&lv.BatchName, &lv.BaseFilename, &lv.CaptureDate); err != nil {
			return nil, fmt.Errorf("scan live version: %w", err)
		}
		if err := fillVersionTimes(v, isCurrent, createdStr, syncedStr); err != nil {
			return nil, err
		}
		live = append(live, lv)
	}
	return live, rows.Err()
}

func scanVersion(row scannable) (*model.ImageVersion, error) {
	v := &model.ImageVersion{}
	var (
		isCurrent  int
		createdStr string
		syncedStr  sql.NullString
	)
	err := row.Scan(&v.VersionID, &v.SceneID, &v.VersionType, &v.LocalPath, &v.StorageKey,
		&v.PerceptualHash, &v.Checksum, &v.FileSize, &isCurrent, &createdStr, &syncedStr)
	if err != nil {
		return nil, err
	}
	if err := fillVersionTimes(v, isCurrent, createdStr, syncedStr); err != nil {
		return nil, err
	}
	return v, nil
}

func fillVersionTimes(v *model.ImageVersion, isCurrent int, createdStr string, syncedStr sql.NullString) error {
	var err error
	v.IsCurrent = isCurrent != 0
	if v.CreatedAt, err = parseTime(createdStr); err != nil {
		return err
	}
	v.SyncedAt, err = parseNullTime(syncedStr)
	return err
}
