package model

import "time"

// Scene is the canonical identity for one captured moment. The pair
// (BatchName, BaseFilename) is unique across the catalog.
type Scene struct {
	SceneID              string    `json:"scene_id"`
	BatchName            string    `json:"batch_name"`
	BaseFilename         string    `json:"base_filename"`
	CaptureDate          *string   `json:"capture_date"`
	Description          *string   `json:"description"`
	DescriptionModel     *string   `json:"description_model"`
	DescriptionTimestamp *string   `json:"description_timestamp"`
	ShortDescription     *string   `json:"short_description"`
	RollNumber           *string   `json:"roll_number"`
	RollDate             *string   `json:"roll_date"`
	DateSource           *string   `json:"date_source"`
	DateNotes            *string   `json:"date_notes"`
	RollComment          *string   `json:"roll_comment"`
	IndexBookNumber      *string   `json:"index_book_number"`
	IndexBookDate        *string   `json:"index_book_date"`
	IndexBookComment     *string   `json:"index_book_comment"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// RollMetadata is the roll-level provenance shared by every scene on a roll.
type RollMetadata struct {
	RollNumber       string  `json:"roll_number"`
	RollDate         *string `json:"roll_date"`
	DateSource       *string `json:"date_source"`
	DateNotes        *string `json:"date_notes"`
	RollComment      *string `json:"roll_comment"`
	IndexBookNumber  *string `json:"index_book_number"`
	IndexBookDate    *string `json:"index_book_date"`
	IndexBookComment *string `json:"index_book_comment"`
	ShortDescription *string `json:"short_description"`
}

// Roll builds the roll metadata carried by s.
func (s *Scene) Roll() RollMetadata {
	m := RollMetadata{
		RollDate:         s.RollDate,
		DateSource:       s.DateSource,
		DateNotes:        s.DateNotes,
		RollComment:      s.RollComment,
		IndexBookNumber:  s.IndexBookNumber,
		IndexBookDate:    s.IndexBookDate,
		IndexBookComment: s.IndexBookComment,
		ShortDescription: s.ShortDescription,
	}
	if s.RollNumber != nil {
		m.RollNumber = *s.RollNumber
	}
	return m
}

// CatalogStats summarises catalog contents.
type CatalogStats struct {
	TotalScenes             int `json:"total_scenes"`
	TotalVersions           int `json:"total_versions"`
	LiveVersions            int `json:"total_live_versions"`
	VersionsWithHash        int `json:"versions_with_hash"`
	CurrentVersions         int `json:"current_versions"`
	CurrentVersionsWithHash int `json:"current_versions_with_hash"`
}

// Deref returns the value behind p, or "" when p is nil.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
