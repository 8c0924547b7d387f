package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"photolog-backend/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS photos (
	id TEXT NOT NULL PRIMARY KEY,
	filename TEXT,
	description TEXT,
	file_url TEXT,
	file_size INTEGER NOT NULL DEFAULT 0,
	content_type TEXT,
	upload_status TEXT NOT NULL,
	upload_timestamp TEXT NOT NULL,
	latitude REAL,
	longitude REAL,
	location_json TEXT,
	exif_json TEXT,
	thumbnail_urls_json TEXT,
	tags_json TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_photos_status_timestamp ON photos(upload_status, upload_timestamp);
`

const photoColumns = `id, filename, description, file_url, file_size, content_type,
		upload_status, upload_timestamp, latitude, longitude,
		location_json, exif_json, thumbnail_urls_json, tags_json`

// Timestamps are stored as RFC3339 UTC strings so lexicographic comparison
// matches chronological order.
const sqliteTimeLayout = time.RFC3339

// SQLiteStore is the embedded relational metadata backend. Nested structures
// are serialized into JSON columns; latitude/longitude are additionally kept
// in plain columns so location search can run inside the query.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SavePhoto(ctx context.Context, record *models.PhotoRecord) error {
	if record.ID == "" {
		return fmt.Errorf("photo id is required")
	}
	if record.UploadTimestamp.IsZero() {
		record.UploadTimestamp = time.Now().UTC()
	}

	locationJSON, err := marshalOrNull(record.Location)
	if err != nil {
		return fmt.Errorf("failed to encode location: %w", err)
	}
	exifJSON, err := marshalOrNull(record.EXIF)
	if err != nil {
		return fmt.Errorf("failed to encode exif: %w", err)
	}
	thumbsJSON, err := marshalOrNull(record.ThumbnailURLs)
	if err != nil {
		return fmt.Errorf("failed to encode thumbnail urls: %w", err)
	}
	tags := record.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	var lat, lon sql.NullFloat64
	if record.Location != nil {
		lat = sql.NullFloat64{Float64: record.Location.Latitude, Valid: true}
		lon = sql.NullFloat64{Float64: record.Location.Longitude, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO photos (
			id, filename, description, file_url, file_size, content_type,
			upload_status, upload_timestamp, latitude, longitude,
			location_json, exif_json, thumbnail_urls_json, tags_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			description = excluded.description,
			file_url = excluded.file_url,
			file_size = excluded.file_size,
			content_type = excluded.content_type,
			upload_status = excluded.upload_status,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			location_json = excluded.location_json,
			exif_json = excluded.exif_json,
			thumbnail_urls_json = excluded.thumbnail_urls_json,
			tags_json = excluded.tags_json
	`,
		record.ID,
		nullString(record.Filename),
		nullString(record.Description),
		nullString(record.FileURL),
		record.FileSize,
		nullString(record.ContentType),
		record.UploadStatus,
		record.UploadTimestamp.UTC().Format(sqliteTimeLayout),
		lat, lon,
		locationJSON, exifJSON, thumbsJSON, string(tagsJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save photo %s: %w", record.ID, err)
	}
	return nil
}

func (s *SQLiteStore) UpdatePhotoURLs(ctx context.Context, id, fileURL string, thumbnailURLs map[string]string) error {
	thumbsJSON, err := marshalOrNull(thumbnailURLs)
	if err != nil {
		return fmt.Errorf("failed to encode thumbnail urls: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE photos SET file_url = ?, thumbnail_urls_json = ? WHERE id = ?
	`, fileURL, thumbsJSON, id)
	if err != nil {
		return fmt.Errorf("failed to update photo urls: %w", err)
	}
	return requireRow(res, id)
}

func (s *SQLiteStore) UpdateUploadStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE photos SET upload_status = ? WHERE id = ?
	`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update upload status: %w", err)
	}
	return requireRow(res, id)
}

func (s *SQLiteStore) GetPhoto(ctx context.Context, id string) (*models.PhotoRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = ?`, id)
	record, err := scanPhoto(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get photo %s: %w", id, err)
	}
	return record, nil
}

var sqliteOrderColumns = map[string]string{
	"upload_timestamp": "upload_timestamp",
	"filename":         "filename",
	"file_size":        "file_size",
	"upload_status":    "upload_status",
}

func (s *SQLiteStore) ListPhotos(ctx context.Context, opts ListOptions) (*PhotoPage, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	// Order column comes from an allow-list, never from the raw input.
	column, ok := sqliteOrderColumns[opts.OrderBy]
	if !ok {
		column = "upload_timestamp"
	}
	direction := "DESC"
	if strings.EqualFold(opts.Direction, "asc") {
		direction = "ASC"
	}

	page := 1
	if n, err := strconv.Atoi(opts.PageToken); err == nil && n > 1 {
		page = n
	}
	offset := (page - 1) * limit

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM photos`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count photos: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+photoColumns+` FROM photos ORDER BY `+column+` `+direction+` LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	defer rows.Close()

	photos, err := collectPhotos(rows)
	if err != nil {
		return nil, err
	}

	result := &PhotoPage{Photos: photos, TotalCount: total}
	if offset+len(photos) < total {
		result.NextPage = strconv.Itoa(page + 1)
	}
	return result, nil
}

func (s *SQLiteStore) SearchByLocation(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]models.PhotoRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	// Great-circle distance via the haversine-equivalent spherical law of
	// cosines, computed server-side. The acos argument is clamped against
	// floating point drift for identical coordinates.
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+photoColumns+` FROM (
			SELECT *,
				(`+strconv.FormatFloat(earthRadiusKm, 'f', 1, 64)+` * acos(max(-1.0, min(1.0,
					cos(radians(?)) * cos(radians(latitude)) * cos(radians(longitude) - radians(?)) +
					sin(radians(?)) * sin(radians(latitude))
				)))) AS distance
			FROM photos
			WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		)
		WHERE distance <= ?
		ORDER BY distance
		LIMIT ?
	`, lat, lon, lat, radiusKm, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search photos by location: %w", err)
	}
	defer rows.Close()

	return collectPhotos(rows)
}

func (s *SQLiteStore) DeletePhoto(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete photo %s: %w", id, err)
	}
	return requireRow(res, id)
}

func (s *SQLiteStore) CleanupStaleUploads(ctx context.Context, olderThan time.Duration) ([]string, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(sqliteTimeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM photos
		WHERE upload_status = ? AND upload_timestamp < ?
	`, models.StatusUploading, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale uploads: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan stale upload: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stale uploads: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, models.StatusFailed)
	for _, id := range ids {
		args = append(args, id)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE photos SET upload_status = ? WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return nil, fmt.Errorf("failed to mark stale uploads failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit cleanup: %w", err)
	}
	return ids, nil
}

func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(CASE WHEN latitude IS NOT NULL AND longitude IS NOT NULL THEN 1 END),
			COUNT(CASE WHEN description IS NOT NULL AND description != '' THEN 1 END),
			COALESCE(SUM(file_size), 0)
		FROM photos
	`).Scan(&stats.TotalPhotos, &stats.PhotosWithLocation, &stats.PhotosWithDescription, &stats.TotalSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return &stats, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func collectPhotos(rows *sql.Rows) ([]models.PhotoRecord, error) {
	var photos []models.PhotoRecord
	for rows.Next() {
		record, err := scanPhoto(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read photos: %w", err)
	}
	return photos, nil
}

func scanPhoto(scan func(dest ...interface{}) error) (*models.PhotoRecord, error) {
	var (
		record                             models.PhotoRecord
		filename, description              sql.NullString
		fileURL, contentType               sql.NullString
		timestamp                          string
		lat, lon                           sql.NullFloat64
		locationJSON, exifJSON, thumbsJSON sql.NullString
		tagsJSON                           string
	)
	err := scan(
		&record.ID, &filename, &description, &fileURL, &record.FileSize, &contentType,
		&record.UploadStatus, &timestamp, &lat, &lon,
		&locationJSON, &exifJSON, &thumbsJSON, &tagsJSON,
	)
	if err != nil {
		return nil, err
	}

	record.Filename = filename.String
	record.Description = description.String
	record.FileURL = fileURL.String
	record.ContentType = contentType.String
	if ts, err := time.Parse(sqliteTimeLayout, timestamp); err == nil {
		record.UploadTimestamp = ts
	}
	if locationJSON.Valid {
		var loc models.Location
		if err := json.Unmarshal([]byte(locationJSON.String), &loc); err == nil {
			record.Location = &loc
		}
	}
	if record.Location == nil && lat.Valid && lon.Valid {
		record.Location = &models.Location{Latitude: lat.Float64, Longitude: lon.Float64}
	}
	if exifJSON.Valid {
		var exif models.EXIFData
		if err := json.Unmarshal([]byte(exifJSON.String), &exif); err == nil {
			record.EXIF = &exif
		}
	}
	if thumbsJSON.Valid {
		var thumbs map[string]string
		if err := json.Unmarshal([]byte(thumbsJSON.String), &thumbs); err == nil {
			record.ThumbnailURLs = thumbs
		}
	}
	record.Tags = []string{}
	_ = json.Unmarshal([]byte(tagsJSON), &record.Tags)

	return &record, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func marshalOrNull(v interface{}) (interface{}, error) {
	switch value := v.(type) {
	case *models.Location:
		if value == nil {
			return nil, nil
		}
	case *models.EXIFData:
		if value == nil {
			return nil, nil
		}
	case map[string]string:
		if len(value) == 0 {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
