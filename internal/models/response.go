package models

import "time"

type UploadResponse struct {
	Success       bool              `json:"success"`
	PhotoID       string            `json:"photo_id,omitempty"`
	FileURL       string            `json:"file_url,omitempty"`
	ThumbnailURLs map[string]string `json:"thumbnail_urls,omitempty"`
	FileSize      int64             `json:"file_size,omitempty"`
	StorageType   string            `json:"storage_type,omitempty"`
	Error         string            `json:"error,omitempty"`
	Stage         string            `json:"stage,omitempty"`
}

type PhotoListResponse struct {
	Photos   []PhotoRecord `json:"photos"`
	PageInfo PageInfo      `json:"page_info"`
}

type PageInfo struct {
	NextPage   string `json:"next_page,omitempty"`
	Count      int    `json:"count"`
	TotalCount int    `json:"total_count,omitempty"`
	Limit      int    `json:"limit"`
}

type SearchResponse struct {
	Photos []PhotoRecord `json:"photos"`
	Count  int           `json:"count"`
}

type StatsResponse struct {
	TotalPhotos           int       `json:"total_photos"`
	PhotosWithLocation    int       `json:"photos_with_location"`
	PhotosWithDescription int       `json:"photos_with_description"`
	TotalSize             int64     `json:"total_size"`
	GeneratedAt           time.Time `json:"generated_at"`
}

type SweepResponse struct {
	CleanedCount int      `json:"cleaned_count"`
	PhotoIDs     []string `json:"photo_ids,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
