package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"photolog-backend/internal/metadata"
	"photolog-backend/internal/models"
	"photolog-backend/internal/storage"
	"photolog-backend/internal/thumbnail"
)

// knownExtensions are probed when deleting a photo whose original extension
// is no longer recoverable from the record.
var knownExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// PhotoService sequences metadata pre-write, blob upload, thumbnail
// derivation and metadata finalization over one blob store and one metadata
// store. Cross-store consistency comes from ordering plus compensating status
// transitions, not from locking: the metadata row is reserved before any blob
// write, so every blob ever written has a traceable row.
type PhotoService struct {
	blobs       storage.BlobStore
	meta        metadata.Store
	thumbs      *thumbnail.Generator
	specs       []thumbnail.Spec
	maxFileSize int64
	storageType string
	log         *zap.Logger
}

func NewPhotoService(
	blobs storage.BlobStore,
	meta metadata.Store,
	thumbs *thumbnail.Generator,
	specs []thumbnail.Spec,
	maxFileSize int64,
	storageType string,
	log *zap.Logger,
) *PhotoService {
	if len(specs) == 0 {
		specs = thumbnail.DefaultSpecs()
	}
	return &PhotoService{
		blobs:       blobs,
		meta:        meta,
		thumbs:      thumbs,
		specs:       specs,
		maxFileSize: maxFileSize,
		storageType: storageType,
		log:         log,
	}
}

type UploadInput struct {
	Data        []byte
	Filename    string
	ContentType string
	Description string
	Tags        []string
	Location    *models.Location
	EXIF        *models.EXIFData
	// Thumbnails, when non-empty, are uploaded as-is instead of being
	// derived from the original bytes.
	Thumbnails map[string]thumbnail.Thumbnail
	// Specs overrides the default thumbnail sizes for this request only.
	Specs []thumbnail.Spec
}

type UploadResult struct {
	Success       bool
	PhotoID       string
	FileURL       string
	ThumbnailURLs map[string]string
	FileSize      int64
	StorageType   string
	Stage         string
	Error         string
}

// UploadPhoto runs the ingestion pipeline. On failure the returned result
// carries the stage tag and the record is flipped to failed best-effort;
// callers must check Success rather than only the error.
func (s *PhotoService) UploadPhoto(ctx context.Context, in UploadInput) (*UploadResult, error) {
	// Validation happens before any I/O: a corrupt image never reserves a
	// row or touches the blob store.
	info, err := thumbnail.Validate(in.Data, s.maxFileSize)
	if err != nil {
		verr := stageErr(StageValidation, errors.Join(ErrValidation, err))
		return failedResult(s.storageType, "", verr), verr
	}

	photoID := uuid.New().String()
	ext := fileExtension(in.Filename, info.Format)
	contentType := in.ContentType
	if contentType == "" {
		contentType = "image/" + info.Format
	}
	objectName := originalObjectName(photoID, ext)

	record := &models.PhotoRecord{
		ID:           photoID,
		Filename:     in.Filename,
		Description:  in.Description,
		FileSize:     int64(len(in.Data)),
		ContentType:  contentType,
		UploadStatus: models.StatusUploading,
		Location:     in.Location,
		EXIF:         in.EXIF,
		Tags:         in.Tags,
	}

	// Stage 1: reserve the metadata row. Nothing to roll back on failure.
	if err := s.meta.SavePhoto(ctx, record); err != nil {
		rerr := stageErr(StageMetadataReserve, err)
		s.log.Error("metadata reserve failed", zap.String("photo_id", photoID), zap.Error(err))
		return failedResult(s.storageType, photoID, rerr), rerr
	}

	// Stage 2: upload the original.
	put, err := s.blobs.Put(ctx, objectName, in.Data, contentType, map[string]string{
		"photo_id":          photoID,
		"original_filename": in.Filename,
	})
	if err != nil {
		s.markFailed(ctx, photoID)
		uerr := stageErr(StageFileUpload, err)
		s.log.Error("original upload failed", zap.String("photo_id", photoID), zap.Error(err))
		return failedResult(s.storageType, photoID, uerr), uerr
	}

	// Stage 3: derive and upload thumbnails. Per-size failures degrade the
	// result instead of failing the pipeline; the original is already safe.
	thumbnails := in.Thumbnails
	if len(thumbnails) == 0 {
		specs := in.Specs
		if len(specs) == 0 {
			specs = s.specs
		}
		thumbnails, err = s.thumbs.Generate(in.Data, specs)
		if err != nil {
			// Unexpected after validation; treat as full degradation.
			s.log.Error("thumbnail generation failed", zap.String("photo_id", photoID), zap.Error(err))
			thumbnails = nil
		}
	}
	thumbnailURLs := s.uploadThumbnails(ctx, photoID, thumbnails)

	// Stage 4: finalize. Both writes are attempted even if one fails; the
	// blob is durable, so failures here are logged and the row is left for
	// reconciliation or read-repair.
	urlsErr := s.meta.UpdatePhotoURLs(ctx, photoID, put.URL, thumbnailURLs)
	if urlsErr != nil {
		s.log.Error("finalize: url update failed", zap.String("photo_id", photoID), zap.Error(urlsErr))
	}
	statusErr := s.meta.UpdateUploadStatus(ctx, photoID, models.StatusCompleted)
	if statusErr != nil {
		s.log.Error("finalize: status update failed", zap.String("photo_id", photoID), zap.Error(statusErr))
	}

	result := &UploadResult{
		Success:       true,
		PhotoID:       photoID,
		FileURL:       put.URL,
		ThumbnailURLs: thumbnailURLs,
		FileSize:      int64(len(in.Data)),
		StorageType:   s.storageType,
	}

	if urlsErr != nil && statusErr != nil {
		// Neither finalize write landed: the row cannot reflect the stored
		// asset at all, so the caller must not be told the pipeline
		// succeeded. The file URL stays populated; the blob is retrievable.
		ferr := stageErr(StageFinalize, ErrInconsistent)
		result.Success = false
		result.Stage = StageFinalize
		result.Error = ferr.Error()
		return result, ferr
	}

	return result, nil
}

// uploadThumbnails fans out one put per size and collects the URLs of the
// ones that landed. It returns only after every attempt has resolved, so the
// finalize step always sees the complete (possibly partial) URL map.
func (s *PhotoService) uploadThumbnails(ctx context.Context, photoID string, thumbnails map[string]thumbnail.Thumbnail) map[string]string {
	urls := make(map[string]string, len(thumbnails))
	var mu sync.Mutex
	var g errgroup.Group

	for size, thumb := range thumbnails {
		size, thumb := size, thumb
		g.Go(func() error {
			name := thumbnailObjectName(photoID, size)
			put, err := s.blobs.Put(ctx, name, thumb.Data, "image/jpeg", map[string]string{
				"original_photo_id": photoID,
				"thumbnail_size":    size,
				"width":             strconv.Itoa(thumb.Width),
				"height":            strconv.Itoa(thumb.Height),
			})
			if err != nil {
				s.log.Warn("thumbnail upload failed",
					zap.String("photo_id", photoID),
					zap.String("size", size),
					zap.Error(err))
				return nil
			}
			mu.Lock()
			urls[size] = put.URL
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return urls
}

func (s *PhotoService) GetPhoto(ctx context.Context, id string) (*models.PhotoRecord, error) {
	return s.meta.GetPhoto(ctx, id)
}

func (s *PhotoService) ListPhotos(ctx context.Context, opts metadata.ListOptions) (*metadata.PhotoPage, error) {
	return s.meta.ListPhotos(ctx, opts)
}

func (s *PhotoService) SearchByLocation(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]models.PhotoRecord, error) {
	return s.meta.SearchByLocation(ctx, lat, lon, radiusKm, limit)
}

func (s *PhotoService) GetStats(ctx context.Context) (*metadata.Stats, error) {
	return s.meta.GetStats(ctx)
}

// DeletePhoto removes the metadata row and, best-effort, the original blob
// and every thumbnail. Blob-side failures are logged, not escalated.
func (s *PhotoService) DeletePhoto(ctx context.Context, id string) error {
	record, err := s.meta.GetPhoto(ctx, id)
	if err != nil {
		return err
	}

	if err := s.meta.DeletePhoto(ctx, id); err != nil {
		return fmt.Errorf("failed to delete photo metadata: %w", err)
	}

	exts := knownExtensions
	if ext := path.Ext(record.FileURL); ext != "" {
		exts = []string{ext}
	}
	deleted := false
	for _, ext := range exts {
		ok, err := s.blobs.Delete(ctx, originalObjectName(id, ext))
		if err != nil {
			s.log.Warn("original blob delete failed", zap.String("photo_id", id), zap.Error(err))
			continue
		}
		if ok {
			deleted = true
			break
		}
	}
	if !deleted {
		s.log.Warn("original blob not found during delete", zap.String("photo_id", id))
	}

	for size := range thumbnailSizes(record, s.specs) {
		if _, err := s.blobs.Delete(ctx, thumbnailObjectName(id, size)); err != nil {
			s.log.Warn("thumbnail delete failed",
				zap.String("photo_id", id),
				zap.String("size", size),
				zap.Error(err))
		}
	}
	return nil
}

// markFailed is the compensating transition; its own failure is logged, not
// escalated.
func (s *PhotoService) markFailed(ctx context.Context, photoID string) {
	if err := s.meta.UpdateUploadStatus(ctx, photoID, models.StatusFailed); err != nil {
		s.log.Error("failed to mark upload as failed", zap.String("photo_id", photoID), zap.Error(err))
		return
	}
	s.log.Info("upload marked failed", zap.String("photo_id", photoID))
}

func failedResult(storageType, photoID string, err *StageError) *UploadResult {
	return &UploadResult{
		PhotoID:     photoID,
		StorageType: storageType,
		Stage:       err.Stage,
		Error:       err.Error(),
	}
}

func originalObjectName(id, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return "photos/" + id + ext
}

// Thumbnail objects use flat naming under a single prefix.
func thumbnailObjectName(id, size string) string {
	return fmt.Sprintf("thumbnails/%s_%s.jpg", id, size)
}

func fileExtension(filename, format string) string {
	if ext := strings.ToLower(path.Ext(filename)); ext != "" {
		return ext
	}
	if format == "jpeg" {
		return ".jpg"
	}
	return "." + format
}

// thumbnailSizes unions the sizes recorded on the row with the configured
// specs, so deletes cover partially-uploaded sets too.
func thumbnailSizes(record *models.PhotoRecord, specs []thumbnail.Spec) map[string]struct{} {
	sizes := make(map[string]struct{}, len(specs)+len(record.ThumbnailURLs))
	for _, spec := range specs {
		sizes[spec.Name] = struct{}{}
	}
	for size := range record.ThumbnailURLs {
		sizes[size] = struct{}{}
	}
	return sizes
}
