package model

import "time"

// ImageVersion is one rendition of a scene. A version is live iff
// StorageKey is non-nil; at most one version per scene is current.
type ImageVersion struct {
	VersionID      string     `json:"version_id"`
	SceneID        string     `json:"scene_id"`
	VersionType    string     `json:"version_type"`
	LocalPath      string     `json:"local_path"`
	StorageKey     *string    `json:"storage_key"`
	PerceptualHash *string    `json:"perceptual_hash"`
	Checksum       *string    `json:"checksum"`
	FileSize       *int64     `json:"file_size"`
	IsCurrent      bool       `json:"is_current"`
	CreatedAt      time.Time  `json:"created_at"`
	SyncedAt       *time.Time `json:"synced_at"`
}

// IsLive reports whether the version's bytes are confirmed stored.
func (v *ImageVersion) IsLive() bool {
	return v.StorageKey != nil
}

// LiveVersion is a live version joined with its owning scene's identity
// fields, as loaded for similarity scans.
type LiveVersion struct {
	ImageVersion
	BatchName    string  `json:"batch_name"`
	BaseFilename string  `json:"base_filename"`
	CaptureDate  *string `json:"capture_date"`
}

// SimilarMatch is one similarity search hit.
type SimilarMatch struct {
	SceneID      string  `json:"scene_id"`
	VersionID    string  `json:"version_id"`
	Distance     int     `json:"distance"`
	StorageKey   string  `json:"storage_key"`
	BatchName    string  `json:"batch_name"`
	BaseFilename string  `json:"base_filename"`
	CaptureDate  *string `json:"capture_date"`
}
