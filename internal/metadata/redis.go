package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"photolog-backend/internal/models"
)

const (
	redisPhotoKeyPrefix = "photo:"
	redisIndexKey       = "photos:by_upload_time"

	// Location search and stats read candidates straight from the index;
	// the cap bounds a single query's fan-out.
	redisCandidateLimit = 1000
)

// RedisStore is the NoSQL metadata backend. Each photo is one JSON document
// under photo:{id}; a sorted set keyed by upload timestamp provides ordered
// listing and staleness scans. Redis has no native geo-distance query over
// document fields, so location search prefilters with a bounding box and
// applies the exact haversine check client-side.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) SavePhoto(ctx context.Context, record *models.PhotoRecord) error {
	if record.ID == "" {
		return fmt.Errorf("photo id is required")
	}
	if record.UploadTimestamp.IsZero() {
		record.UploadTimestamp = time.Now().UTC()
	}

	// Replacement keeps the original upload timestamp.
	if existing, err := s.GetPhoto(ctx, record.ID); err == nil {
		record.UploadTimestamp = existing.UploadTimestamp
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	if record.Tags == nil {
		record.Tags = []string{}
	}

	doc, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode photo %s: %w", record.ID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisPhotoKeyPrefix+record.ID, doc, 0)
	pipe.ZAdd(ctx, redisIndexKey, redis.Z{
		Score:  float64(record.UploadTimestamp.UTC().Unix()),
		Member: record.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save photo %s: %w", record.ID, err)
	}
	return nil
}

func (s *RedisStore) UpdatePhotoURLs(ctx context.Context, id, fileURL string, thumbnailURLs map[string]string) error {
	record, err := s.GetPhoto(ctx, id)
	if err != nil {
		return err
	}
	record.FileURL = fileURL
	record.ThumbnailURLs = thumbnailURLs
	return s.writeDocument(ctx, record)
}

func (s *RedisStore) UpdateUploadStatus(ctx context.Context, id, status string) error {
	record, err := s.GetPhoto(ctx, id)
	if err != nil {
		return err
	}
	record.UploadStatus = status
	return s.writeDocument(ctx, record)
}

func (s *RedisStore) GetPhoto(ctx context.Context, id string) (*models.PhotoRecord, error) {
	data, err := s.client.Get(ctx, redisPhotoKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get photo %s: %w", id, err)
	}
	var record models.PhotoRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode photo %s: %w", id, err)
	}
	return &record, nil
}

func (s *RedisStore) ListPhotos(ctx context.Context, opts ListOptions) (*PhotoPage, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	// The only ordering index is the upload timestamp; any other OrderBy
	// value falls back to it silently.
	offset := 0
	if n, err := strconv.Atoi(opts.PageToken); err == nil && n > 0 {
		offset = n
	}

	total, err := s.client.ZCard(ctx, redisIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to count photos: %w", err)
	}

	var ids []string
	stop := int64(offset + limit - 1)
	if strings.EqualFold(opts.Direction, "asc") {
		ids, err = s.client.ZRange(ctx, redisIndexKey, int64(offset), stop).Result()
	} else {
		ids, err = s.client.ZRevRange(ctx, redisIndexKey, int64(offset), stop).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}

	photos, err := s.fetchDocuments(ctx, ids)
	if err != nil {
		return nil, err
	}

	page := &PhotoPage{Photos: photos, TotalCount: int(total)}
	if offset+len(photos) < int(total) {
		page.NextPage = strconv.Itoa(offset + limit)
	}
	return page, nil
}

func (s *RedisStore) SearchByLocation(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]models.PhotoRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	ids, err := s.client.ZRevRange(ctx, redisIndexKey, 0, redisCandidateLimit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load search candidates: %w", err)
	}
	candidates, err := s.fetchDocuments(ctx, ids)
	if err != nil {
		return nil, err
	}

	type match struct {
		record   models.PhotoRecord
		distance float64
	}
	var matches []match
	for _, record := range candidates {
		loc := record.Location
		if loc == nil {
			continue
		}
		if !withinBoundingBox(loc.Latitude, loc.Longitude, lat, lon, radiusKm) {
			continue
		}
		d := haversineKm(lat, lon, loc.Latitude, loc.Longitude)
		if d <= radiusKm {
			matches = append(matches, match{record: record, distance: d})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].distance < matches[j].distance })

	if len(matches) > limit {
		matches = matches[:limit]
	}
	photos := make([]models.PhotoRecord, 0, len(matches))
	for _, m := range matches {
		photos = append(photos, m.record)
	}
	return photos, nil
}

func (s *RedisStore) DeletePhoto(ctx context.Context, id string) error {
	removed, err := s.client.Del(ctx, redisPhotoKeyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("failed to delete photo %s: %w", id, err)
	}
	if err := s.client.ZRem(ctx, redisIndexKey, id).Err(); err != nil {
		return fmt.Errorf("failed to remove photo %s from index: %w", id, err)
	}
	if removed == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *RedisStore) CleanupStaleUploads(ctx context.Context, olderThan time.Duration) ([]string, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Unix()
	ids, err := s.client.ZRangeByScore(ctx, redisIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff, 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to scan stale uploads: %w", err)
	}

	var cleaned []string
	for _, id := range ids {
		record, err := s.GetPhoto(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return cleaned, err
		}
		if record.UploadStatus != models.StatusUploading {
			continue
		}
		record.UploadStatus = models.StatusFailed
		if err := s.writeDocument(ctx, record); err != nil {
			return cleaned, err
		}
		cleaned = append(cleaned, id)
	}
	return cleaned, nil
}

func (s *RedisStore) GetStats(ctx context.Context) (*Stats, error) {
	ids, err := s.client.ZRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load photo index: %w", err)
	}
	photos, err := s.fetchDocuments(ctx, ids)
	if err != nil {
		return nil, err
	}

	stats := &Stats{TotalPhotos: len(photos)}
	for _, record := range photos {
		if record.Location != nil {
			stats.PhotosWithLocation++
		}
		if record.Description != "" {
			stats.PhotosWithDescription++
		}
		stats.TotalSize += record.FileSize
	}
	return stats, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) writeDocument(ctx context.Context, record *models.PhotoRecord) error {
	doc, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode photo %s: %w", record.ID, err)
	}
	if err := s.client.Set(ctx, redisPhotoKeyPrefix+record.ID, doc, 0).Err(); err != nil {
		return fmt.Errorf("failed to write photo %s: %w", record.ID, err)
	}
	return nil
}

func (s *RedisStore) fetchDocuments(ctx context.Context, ids []string) ([]models.PhotoRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisPhotoKeyPrefix + id
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch photos: %w", err)
	}

	photos := make([]models.PhotoRecord, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry without a document; skip rather than fail the page.
			continue
		}
		var record models.PhotoRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			continue
		}
		photos = append(photos, record)
	}
	return photos, nil
}
