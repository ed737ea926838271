package models

import "time"

// ReleaseDTO is a backend release already normalized into relserve's shape.
// Drafts never reach this type.
type ReleaseDTO struct {
	// Version is the source tag, normalization happens on ingest
	Version string
	// Channel is informational only, it is re-derived from Version
	Channel     string
	Notes       string
	PublishedAt time.Time
	Assets      []AssetDTO
}

// AssetDTO is a single downloadable file of a release
type AssetDTO struct {
	ID          string
	Filename    string
	Size        int64
	ContentType string

	// Type is an optional legacy platform tag supplied by the backend
	// (e.g. "windows_32"). Ignored when it does not decode.
	Type string

	// Raw is the backend-specific reference used to serve or read the asset
	Raw any
}
