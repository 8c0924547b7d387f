package models

import "time"

// Upload status values are part of the persisted contract and must stay
// stable across metadata backend swaps.
const (
	StatusUploading = "uploading"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type PhotoRecord struct {
	ID            string            `json:"photo_id"`
	Filename      string            `json:"filename,omitempty"`
	Description   string            `json:"description,omitempty"`
	FileURL       string            `json:"file_url,omitempty"`
	ThumbnailURLs map[string]string `json:"thumbnail_urls,omitempty"`
	FileSize      int64             `json:"file_size"`
	ContentType   string            `json:"content_type,omitempty"`
	UploadStatus  string            `json:"upload_status"`
	// UploadTimestamp is set once at record creation and never mutated.
	UploadTimestamp time.Time `json:"upload_timestamp"`
	Location        *Location `json:"location,omitempty"`
	EXIF            *EXIFData `json:"exif_data,omitempty"`
	Tags            []string  `json:"tags"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country,omitempty"`
}

type EXIFData struct {
	CameraMake   string `json:"camera_make,omitempty"`
	CameraModel  string `json:"camera_model,omitempty"`
	Timestamp    string `json:"timestamp,omitempty"`
	ISO          int    `json:"iso,omitempty"`
	Aperture     string `json:"aperture,omitempty"`
	ShutterSpeed string `json:"shutter_speed,omitempty"`
	FocalLength  string `json:"focal_length,omitempty"`
}
