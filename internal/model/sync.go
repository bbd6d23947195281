package model

import "time"

// SceneDescriptor is one scene in a sync payload pushed by the management
// system.
type SceneDescriptor struct {
	SceneID              string              `json:"scene_id"`
	BatchName            string              `json:"batch_name"`
	BaseFilename         string              `json:"base_filename"`
	CaptureDate          *string             `json:"capture_date,omitempty"`
	Description          *string             `json:"description,omitempty"`
	DescriptionModel     *string             `json:"description_model,omitempty"`
	DescriptionTimestamp *string             `json:"description_timestamp,omitempty"`
	RollNumber           *string             `json:"roll_number,omitempty"`
	RollDate             *string             `json:"roll_date,omitempty"`
	DateSource           *string             `json:"date_source,omitempty"`
	DateNotes            *string             `json:"date_notes,omitempty"`
	RollComment          *string             `json:"roll_comment,omitempty"`
	IndexBookNumber      *string             `json:"index_book_number,omitempty"`
	IndexBookDate        *string             `json:"index_book_date,omitempty"`
	IndexBookComment     *string             `json:"index_book_comment,omitempty"`
	ShortDescription     *string             `json:"short_description,omitempty"`
	Versions             []VersionDescriptor `json:"versions"`
}

// VersionDescriptor is one version of a scene in a sync payload.
type VersionDescriptor struct {
	VersionID      string  `json:"version_id"`
	VersionType    string  `json:"version_type"`
	LocalPath      string  `json:"local_path"`
	PerceptualHash *string `json:"perceptual_hash,omitempty"`
	Checksum       *string `json:"checksum,omitempty"`
	IsCurrent      bool    `json:"is_current"`
	FileSize       *int64  `json:"file_size,omitempty"`
}

// SyncStats are the aggregate outcome counters of one reconcile call.
// Errors counts malformed or conflicting entries; Skipped counts versions
// that were not applied, including every version of a rejected scene.
type SyncStats struct {
	ScenesSynced       int `json:"scenes_synced"`
	VersionsMarkedLive int `json:"versions_marked_live"`
	Skipped            int `json:"skipped"`
	Errors             int `json:"errors"`
}

// Partial reports whether some items were skipped in an otherwise
// committed batch.
func (s SyncStats) Partial() bool {
	return s.Errors > 0 || s.Skipped > 0
}

// Add accumulates o into s.
func (s *SyncStats) Add(o SyncStats) {
	s.ScenesSynced += o.ScenesSynced
	s.VersionsMarkedLive += o.VersionsMarkedLive
	s.Skipped += o.Skipped
	s.Errors += o.Errors
}

// Sync run statuses.
const (
	SyncStatusInProgress = "in_progress"
	SyncStatusSuccess    = "success"
	SyncStatusFailed     = "failed"
)

// SyncRun is one recorded reconcile call.
type SyncRun struct {
	ID                 string     `json:"id"`
	SyncType           string     `json:"sync_type"`
	ScenesSynced       int        `json:"scenes_synced"`
	VersionsMarkedLive int        `json:"versions_marked_live"`
	StartedAt          time.Time  `json:"started_at"`
	CompletedAt        *time.Time `json:"completed_at"`
	Status             string     `json:"status"`
	ErrorMessage       *string    `json:"error_message"`
}
