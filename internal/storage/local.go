package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// LocalStore keeps blobs as plain files under a base directory and serves
// them from a configured base URL.
type LocalStore struct {
	basePath string
	baseURL  string
}

type localObjectMeta struct {
	ContentType string            `json:"content_type"`
	FileSize    int64             `json:"file_size"`
	UploadedAt  time.Time         `json:"uploaded_at"`
	Tags        map[string]string `json:"tags,omitempty"`
}

func NewLocalStore(basePath, baseURL string) (*LocalStore, error) {
	if basePath == "" {
		return nil, fmt.Errorf("local storage base path is required")
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStore{
		basePath: abs,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *LocalStore) Put(ctx context.Context, name string, data []byte, contentType string, metadata map[string]string) (*PutResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.pathFor(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create object directory: %w", errors.Join(ErrUnavailable, err))
	}

	// Write to a temp file and rename so concurrent readers never observe a
	// partial object and retries with the same name overwrite cleanly.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", errors.Join(ErrUnavailable, err))
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to write object %s: %w", name, errors.Join(ErrUnavailable, err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to close temp file: %w", errors.Join(ErrUnavailable, err))
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to store object %s: %w", name, errors.Join(ErrUnavailable, err))
	}

	meta := localObjectMeta{
		ContentType: contentType,
		FileSize:    int64(len(data)),
		UploadedAt:  time.Now().UTC(),
		Tags:        metadata,
	}
	metaBytes, _ := json.Marshal(meta)
	// Sidecar write is best-effort; the object itself is already durable.
	_ = os.WriteFile(path+".meta", metaBytes, 0o644)

	sum := sha256.Sum256(data)
	return &PutResult{
		URL:  s.URL(name),
		ETag: hex.EncodeToString(sum[:]),
		Size: int64(len(data)),
	}, nil
}

func (s *LocalStore) Delete(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := s.pathFor(name)
	if err != nil {
		return false, err
	}
	err = os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete object %s: %w", name, errors.Join(ErrUnavailable, err))
	}
	_ = os.Remove(path + ".meta")
	return true, nil
}

func (s *LocalStore) URL(name string) string {
	return s.baseURL + "/" + strings.TrimLeft(name, "/")
}

func (s *LocalStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root := s.basePath
	if prefix != "" {
		p, err := s.pathFor(prefix)
		if err != nil {
			return nil, err
		}
		root = p
	}

	var objects []ObjectInfo
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || strings.HasSuffix(d.Name(), ".meta") || strings.HasPrefix(d.Name(), ".put-") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		objects = append(objects, ObjectInfo{
			Name:         name,
			Size:         info.Size(),
			LastModified: info.ModTime(),
			URL:          s.URL(name),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", errors.Join(ErrUnavailable, err))
	}

	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].LastModified.After(objects[j].LastModified)
	})
	return objects, nil
}

// pathFor rejects names that would escape the storage root.
func (s *LocalStore) pathFor(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("object name is required")
	}
	if strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("object name must be relative")
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	return filepath.Join(s.basePath, clean), nil
}
