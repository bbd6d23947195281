package database

import (
	"context"

	"github.com/leca/scene-archive/internal/model"
)

// Writer is the write surface of the catalog. All calls made through one
// Writer land in the same transaction.
type Writer interface {
	// UpsertScene inserts s or fully replaces the scene with the same
	// scene_id. Omitted optional fields are stored as NULL.
	UpsertScene(ctx context.Context, s *model.Scene) (string, error)

	// UpsertVersion inserts v or replaces the version with the same
	// version_id. When isCurrent is true every sibling loses its current flag.
	UpsertVersion(ctx context.Context, v *model.ImageVersion, isCurrent bool) (string, error)

	// SetLiveStorageKey sets or clears a version's storage key and synced_at.
	SetLiveStorageKey(ctx context.Context, versionID string, key *string) error
}

// Reader is the read surface of the catalog and its text index.
type Reader interface {
	GetScene(ctx context.Context, sceneID string) (*model.Scene, error)
	ListScenes(ctx context.Context, batchName string, limit, offset int) ([]*model.Scene, error)
	ListScenesByRoll(ctx context.Context, rollNumber string) ([]*model.Scene, error)

	ListVersions(ctx context.Context, sceneID string) ([]*model.ImageVersion, error)
	// GetCurrentLiveVersion returns the current version only if it is live.
	GetCurrentLiveVersion(ctx context.Context, sceneID string) (*model.ImageVersion, error)
	// ListLiveVersions joins live versions with their scene identity.
	ListLiveVersions(ctx context.Context, limit int, hashedOnly bool) ([]*model.LiveVersion, error)

	Search(ctx context.Context, query string, f model.SearchFilters, limit, offset int) (*model.SearchResult, error)
	Suggest(ctx context.Context, partial string, limit int) ([]string, error)

	Stats(ctx context.Context) (*model.CatalogStats, error)
}

// SyncLog records reconcile runs. Entries are written outside the batch
// transaction so failed runs stay visible.
type SyncLog interface {
	CreateSyncRun(ctx context.Context, run *model.SyncRun) error
	FinishSyncRun(ctx context.Context, run *model.SyncRun) error
	LatestSyncRun(ctx context.Context) (*model.SyncRun, error)
}

// Database is the catalog store.
type Database interface {
	Reader
	Writer
	SyncLog

	// Update runs fn in a single serialized write transaction and commits
	// when fn returns nil.
	Update(ctx context.Context, fn func(w Writer) error) error

	// Simulate runs fn like Update but always rolls back.
	Simulate(ctx context.Context, fn func(w Writer) error) error

	Close() error
}
