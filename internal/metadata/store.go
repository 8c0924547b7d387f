package metadata

import (
	"context"
	"errors"
	"time"

	"photolog-backend/internal/models"
)

// ErrNotFound reports that no record exists for the requested photo ID.
var ErrNotFound = errors.New("photo not found")

type ListOptions struct {
	Limit     int
	PageToken string
	// OrderBy is checked against a per-backend allow-list; unrecognized
	// values silently fall back to the upload timestamp.
	OrderBy   string
	Direction string // "asc" or "desc", default "desc"
}

type PhotoPage struct {
	Photos     []models.PhotoRecord
	NextPage   string
	TotalCount int
}

type Stats struct {
	TotalPhotos           int
	PhotosWithLocation    int
	PhotosWithDescription int
	TotalSize             int64
}

// Store persists one structured record per photo, keyed by photo ID. The
// SQLite and Redis backends serialize nested fields differently but keep the
// same field names and status values, so records written under one backend
// stay readable after a migration.
type Store interface {
	// SavePhoto inserts or replaces the record keyed by its ID. The upload
	// timestamp is set once at creation and survives replacement.
	SavePhoto(ctx context.Context, record *models.PhotoRecord) error
	// UpdatePhotoURLs touches only the URL fields.
	UpdatePhotoURLs(ctx context.Context, id, fileURL string, thumbnailURLs map[string]string) error
	// UpdateUploadStatus touches only the status field.
	UpdateUploadStatus(ctx context.Context, id, status string) error
	GetPhoto(ctx context.Context, id string) (*models.PhotoRecord, error)
	ListPhotos(ctx context.Context, opts ListOptions) (*PhotoPage, error)
	SearchByLocation(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]models.PhotoRecord, error)
	DeletePhoto(ctx context.Context, id string) error
	// CleanupStaleUploads transitions records stuck in "uploading" for longer
	// than olderThan to "failed" and returns the affected IDs.
	CleanupStaleUploads(ctx context.Context, olderThan time.Duration) ([]string, error)
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}
