// Package reconcile applies sync batches pushed by the management system to
// the catalog store.
//
// A batch is applied in one write transaction. Malformed or conflicting
// entries are counted and skipped; any other store failure rolls back the
// whole batch. Storage keys are set without checking that the bytes exist:
// the uploader is trusted to have placed them before pushing the batch.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leca/scene-archive/internal/database"
	"github.com/leca/scene-archive/internal/model"
	"github.com/leca/scene-archive/internal/similarity"
)

// DefaultSyncType labels runs started through the admin API.
const DefaultSyncType = "api_sync"

// Store is the part of the catalog the reconciler writes to.
type Store interface {
	Update(ctx context.Context, fn func(w database.Writer) error) error
	Simulate(ctx context.Context, fn func(w database.Writer) error) error
	database.SyncLog
}

// Result is the outcome of one Reconcile call. SyncID is empty for dry runs,
// which are not recorded in the sync log.
type Result struct {
	SyncID string
	DryRun bool
	Stats  model.SyncStats
}

// Reconciler applies sync batches.
type Reconciler struct {
	store      Store
	storageKey func(sceneID string) string
	syncType   string
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithStorageKey overrides the scene_id → storage key convention.
func WithStorageKey(fn func(sceneID string) string) Option {
	return func(r *Reconciler) { r.storageKey = fn }
}

// WithSyncType sets the label written to the sync log.
func WithSyncType(t string) Option {
	return func(r *Reconciler) { r.syncType = t }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

// WithClock sets the time source for sync log entries.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// New creates a Reconciler writing to store. The storage key of a current
// version defaults to its scene_id.
func New(store Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:      store,
		storageKey: func(sceneID string) string { return sceneID },
		syncType:   DefaultSyncType,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile applies batch. With dryRun set the same writes run inside a
// transaction that is always rolled back, so the counters match what a
// real run would report and the store is left untouched.
//
// On a batch-level failure the returned error is a *model.BatchError
// carrying the counters accumulated before the abort.
func (r *Reconciler) Reconcile(ctx context.Context, batch []model.SceneDescriptor, dryRun bool) (Result, error) {
	res := Result{DryRun: dryRun}

	var run *model.SyncRun
	if !dryRun {
		run = &model.SyncRun{
			ID:        uuid.NewString(),
			SyncType:  r.syncType,
			StartedAt: r.now().UTC(),
			Status:    model.SyncStatusInProgress,
		}
		if err := r.store.CreateSyncRun(ctx, run); err != nil {
			return res, &model.BatchError{Err: fmt.Errorf("record sync run: %w", err)}
		}
		res.SyncID = run.ID
	}

	apply := r.store.Update
	if dryRun {
		apply = r.store.Simulate
	}

	var stats model.SyncStats
	err := apply(ctx, func(w database.Writer) error {
		// Counters restart if the transaction function is ever re-run.
		stats = model.SyncStats{}
		for i := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r.applyScene(ctx, w, &batch[i], &stats); err != nil {
				return err
			}
		}
		return nil
	})
	res.Stats = stats

	if err != nil {
		r.logger.Error("sync failed",
			"sync_id", res.SyncID, "dry_run", dryRun, "scenes", len(batch),
			"scenes_synced", stats.ScenesSynced, "error", err)
		r.finish(run, stats, err)
		return res, &model.BatchError{Stats: stats, Err: err}
	}

	r.logger.Info("sync completed",
		"sync_id", res.SyncID, "dry_run", dryRun, "scenes", len(batch),
		"scenes_synced", stats.ScenesSynced, "versions_marked_live", stats.VersionsMarkedLive,
		"skipped", stats.Skipped, "errors", stats.Errors)
	r.finish(run, stats, nil)
	return res, nil
}

// finish closes the sync log entry. It uses a fresh context so a cancelled
// request still leaves a terminal status behind.
func (r *Reconciler) finish(run *model.SyncRun, stats model.SyncStats, cause error) {
	if run == nil {
		return
	}
	done := r.now().UTC()
	run.CompletedAt = &done
	run.ScenesSynced = stats.ScenesSynced
	run.VersionsMarkedLive = stats.VersionsMarkedLive
	run.Status = model.SyncStatusSuccess
	if cause != nil {
		msg := cause.Error()
		run.Status = model.SyncStatusFailed
		run.ErrorMessage = &msg
		// A rolled back batch synced nothing.
		run.ScenesSynced = 0
		run.VersionsMarkedLive = 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.FinishSyncRun(ctx, run); err != nil {
		r.logger.Error("failed to record sync result", "sync_id", run.ID, "error", err)
	}
}

// applyScene writes one scene and its versions. Item-level problems are
// counted in stats and return nil; anything else is returned and aborts the
// batch.
func (r *Reconciler) applyScene(ctx context.Context, w database.Writer, d *model.SceneDescriptor, stats *model.SyncStats) error {
	if err := validateScene(d); err != nil {
		r.skipScene(d, stats, err)
		return nil
	}

	if _, err := w.UpsertScene(ctx, sceneFromDescriptor(d)); err != nil {
		if isItemError(err) {
			r.skipScene(d, stats, err)
			return nil
		}
		return fmt.Errorf("scene %s: %w", d.SceneID, err)
	}
	stats.ScenesSynced++

	for i := range d.Versions {
		vd := &d.Versions[i]
		if err := validateVersion(d.SceneID, vd); err != nil {
			r.skipVersion(d.SceneID, vd.VersionID, stats, err)
			continue
		}

		v := versionFromDescriptor(d.SceneID, vd)
		if _, err := w.UpsertVersion(ctx, v, vd.IsCurrent); err != nil {
			if isItemError(err) {
				r.skipVersion(d.SceneID, vd.VersionID, stats, err)
				continue
			}
			return fmt.Errorf("version %s: %w", vd.VersionID, err)
		}
		if !vd.IsCurrent {
			continue
		}

		key := r.storageKey(d.SceneID)
		if err := w.SetLiveStorageKey(ctx, vd.VersionID, &key); err != nil {
			return fmt.Errorf("mark %s live: %w", vd.VersionID, err)
		}
		stats.VersionsMarkedLive++
	}
	return nil
}

func (r *Reconciler) skipScene(d *model.SceneDescriptor, stats *model.SyncStats, err error) {
	stats.Errors++
	stats.Skipped += len(d.Versions)
	r.logger.Debug("skipping scene", "scene_id", d.SceneID, "error", err)
}

func (r *Reconciler) skipVersion(sceneID, versionID string, stats *model.SyncStats, err error) {
	stats.Errors++
	stats.Skipped++
	r.logger.Debug("skipping version", "scene_id", sceneID, "version_id", versionID, "error", err)
}

// isItemError reports whether err concerns one payload entry rather than
// the store as a whole.
func isItemError(err error) bool {
	return model.IsValidation(err) || errors.Is(err, model.ErrConflict)
}

func validateScene(d *model.SceneDescriptor) error {
	switch {
	case d.SceneID == "":
		return &model.ValidationError{Field: "scene_id", Reason: "required"}
	case d.BatchName == "":
		return &model.ValidationError{Item: d.SceneID, Field: "batch_name", Reason: "required"}
	case d.BaseFilename == "":
		return &model.ValidationError{Item: d.SceneID, Field: "base_filename", Reason: "required"}
	}

	current := 0
	for _, v := range d.Versions {
		if v.IsCurrent {
			current++
		}
	}
	if current > 1 {
		return fmt.Errorf("scene %s marks %d versions current: %w", d.SceneID, current, model.ErrConflict)
	}
	return nil
}

func validateVersion(sceneID string, v *model.VersionDescriptor) error {
	switch {
	case v.VersionID == "":
		return &model.ValidationError{Item: sceneID, Field: "version_id", Reason: "required"}
	case v.VersionType == "":
		return &model.ValidationError{Item: v.VersionID, Field: "version_type", Reason: "required"}
	case v.PerceptualHash != nil && !similarity.ValidHash(*v.PerceptualHash):
		return &model.ValidationError{Item: v.VersionID, Field: "perceptual_hash", Reason: "must be a hex string"}
	case v.FileSize != nil && *v.FileSize < 0:
		return &model.ValidationError{Item: v.VersionID, Field: "file_size", Reason: "must not be negative"}
	}
	return nil
}

func sceneFromDescriptor(d *model.SceneDescriptor) *model.Scene {
	captureDate := d.CaptureDate
	if captureDate == nil {
		captureDate = d.RollDate
	}
	return &model.Scene{
		SceneID:              d.SceneID,
		BatchName:            d.BatchName,
		BaseFilename:         d.BaseFilename,
		CaptureDate:          captureDate,
		Description:          d.Description,
		DescriptionModel:     d.DescriptionModel,
		DescriptionTimestamp: d.DescriptionTimestamp,
		ShortDescription:     d.ShortDescription,
		RollNumber:           d.RollNumber,
		RollDate:             d.RollDate,
		DateSource:           d.DateSource,
		DateNotes:            d.DateNotes,
		RollComment:          d.RollComment,
		IndexBookNumber:      d.IndexBookNumber,
		IndexBookDate:        d.IndexBookDate,
		IndexBookComment:     d.IndexBookComment,
	}
}

// versionFromDescriptor builds the version row without a storage key; the
// key is set separately once the version is known to be current.
func versionFromDescriptor(sceneID string, vd *model.VersionDescriptor) *model.ImageVersion {
	return &model.ImageVersion{
		VersionID:      vd.VersionID,
		SceneID:        sceneID,
		VersionType:    vd.VersionType,
		LocalPath:      vd.LocalPath,
		PerceptualHash: vd.PerceptualHash,
		Checksum:       vd.Checksum,
		FileSize:       vd.FileSize,
	}
}
