package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	supastorage "github.com/supabase-community/storage-go"
)

// SupabaseStore keeps blobs in a Supabase Storage bucket and serves them via
// public object URLs.
type SupabaseStore struct {
	client  *supastorage.Client
	bucket  string
	baseURL string
}

func NewSupabaseStore(supabaseURL, serviceKey, bucket string) (*SupabaseStore, error) {
	if supabaseURL == "" || serviceKey == "" {
		return nil, fmt.Errorf("supabase url and service key are required")
	}
	baseURL := strings.TrimRight(supabaseURL, "/")
	client := supastorage.NewClient(baseURL+"/storage/v1", serviceKey, nil)

	return &SupabaseStore{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
	}, nil
}

func (s *SupabaseStore) Put(ctx context.Context, name string, data []byte, contentType string, metadata map[string]string) (*PutResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	upsert := true
	_, err := s.client.UploadFile(s.bucket, name, bytes.NewReader(data), supastorage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload object %s: %w", name, errors.Join(ErrUnavailable, err))
	}

	sum := sha256.Sum256(data)
	return &PutResult{
		URL:  s.URL(name),
		ETag: hex.EncodeToString(sum[:]),
		Size: int64(len(data)),
	}, nil
}

func (s *SupabaseStore) Delete(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := s.client.RemoveFile(s.bucket, []string{name})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete object %s: %w", name, errors.Join(ErrUnavailable, err))
	}
	return true, nil
}

func (s *SupabaseStore) URL(name string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, name)
}

func (s *SupabaseStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	folder := strings.TrimRight(prefix, "/")
	files, err := s.client.ListFiles(s.bucket, folder, supastorage.FileSearchOptions{
		Limit: 1000,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", errors.Join(ErrUnavailable, err))
	}

	objects := make([]ObjectInfo, 0, len(files))
	for _, f := range files {
		name := f.Name
		if folder != "" {
			name = path.Join(folder, f.Name)
		}
		objects = append(objects, ObjectInfo{
			Name:         name,
			Size:         objectSize(f.Metadata),
			LastModified: parseObjectTime(f.UpdatedAt),
			URL:          s.URL(name),
		})
	}
	return objects, nil
}

func objectSize(metadata interface{}) int64 {
	m, ok := metadata.(map[string]interface{})
	if !ok {
		return 0
	}
	if size, ok := m["size"].(float64); ok {
		return int64(size)
	}
	return 0
}

func parseObjectTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
