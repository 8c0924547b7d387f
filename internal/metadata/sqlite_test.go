package metadata

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photolog-backend/internal/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "photos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func samplePhoto(id string) *models.PhotoRecord {
	return &models.PhotoRecord{
		ID:           id,
		Filename:     "sunset.jpg",
		Description:  "evening at the pier",
		FileSize:     2048,
		ContentType:  "image/jpeg",
		UploadStatus: models.StatusUploading,
		Location: &models.Location{
			Latitude:  37.7749,
			Longitude: -122.4194,
			City:      "San Francisco",
			Country:   "USA",
		},
		EXIF: &models.EXIFData{
			CameraMake:  "Canon",
			CameraModel: "EOS R5",
			ISO:         100,
		},
		Tags: []string{"sunset", "pier"},
	}
}

func TestSQLiteSaveAndGetRoundtrip(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	record := samplePhoto("p1")
	require.NoError(t, store.SavePhoto(ctx, record))

	got, err := store.GetPhoto(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)
	assert.Equal(t, "sunset.jpg", got.Filename)
	assert.Equal(t, "evening at the pier", got.Description)
	assert.Equal(t, int64(2048), got.FileSize)
	assert.Equal(t, models.StatusUploading, got.UploadStatus)
	assert.False(t, got.UploadTimestamp.IsZero())
	require.NotNil(t, got.Location)
	assert.Equal(t, 37.7749, got.Location.Latitude)
	assert.Equal(t, "San Francisco", got.Location.City)
	require.NotNil(t, got.EXIF)
	assert.Equal(t, "EOS R5", got.EXIF.CameraModel)
	assert.Equal(t, []string{"sunset", "pier"}, got.Tags)
}

func TestSQLiteGetMissingReturnsNotFound(t *testing.T) {
	store := newTestSQLiteStore(t)
	_, err := store.GetPhoto(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteUpsertPreservesUploadTimestamp(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	original := samplePhoto("p1")
	original.UploadTimestamp = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SavePhoto(ctx, original))

	replacement := samplePhoto("p1")
	replacement.Filename = "renamed.jpg"
	replacement.UploadTimestamp = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SavePhoto(ctx, replacement))

	got, err := store.GetPhoto(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "renamed.jpg", got.Filename)
	assert.True(t, got.UploadTimestamp.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		"replacement must not move the original upload timestamp, got %v", got.UploadTimestamp)
}

func TestSQLitePartialUpdates(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.SavePhoto(ctx, samplePhoto("p1")))

	thumbs := map[string]string{"small": "http://x/thumbnails/p1_small.jpg"}
	require.NoError(t, store.UpdatePhotoURLs(ctx, "p1", "http://x/photos/p1.jpg", thumbs))
	require.NoError(t, store.UpdateUploadStatus(ctx, "p1", models.StatusCompleted))

	got, err := store.GetPhoto(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "http://x/photos/p1.jpg", got.FileURL)
	assert.Equal(t, thumbs, got.ThumbnailURLs)
	assert.Equal(t, models.StatusCompleted, got.UploadStatus)
	// Untouched fields survive the partial updates.
	assert.Equal(t, "sunset.jpg", got.Filename)
	require.NotNil(t, got.Location)

	assert.ErrorIs(t, store.UpdatePhotoURLs(ctx, "ghost", "u", nil), ErrNotFound)
	assert.ErrorIs(t, store.UpdateUploadStatus(ctx, "ghost", models.StatusFailed), ErrNotFound)
}

func TestSQLiteListPagination(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		record := samplePhoto(fmt.Sprintf("p%d", i))
		record.UploadTimestamp = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, store.SavePhoto(ctx, record))
	}

	page1, err := store.ListPhotos(ctx, ListOptions{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page1.TotalCount)
	require.Len(t, page1.Photos, 2)
	// Default ordering: newest first.
	assert.Equal(t, "p4", page1.Photos[0].ID)
	assert.Equal(t, "p3", page1.Photos[1].ID)
	require.Equal(t, "2", page1.NextPage)

	page2, err := store.ListPhotos(ctx, ListOptions{Limit: 2, PageToken: page1.NextPage})
	require.NoError(t, err)
	require.Len(t, page2.Photos, 2)
	assert.Equal(t, "p2", page2.Photos[0].ID)
	require.Equal(t, "3", page2.NextPage)

	page3, err := store.ListPhotos(ctx, ListOptions{Limit: 2, PageToken: page2.NextPage})
	require.NoError(t, err)
	require.Len(t, page3.Photos, 1)
	assert.Equal(t, "p0", page3.Photos[0].ID)
	assert.Empty(t, page3.NextPage)
}

func TestSQLiteListOrderByIsAllowListed(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	a := samplePhoto("a")
	a.Filename = "zebra.jpg"
	a.UploadTimestamp = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := samplePhoto("b")
	b.Filename = "apple.jpg"
	b.UploadTimestamp = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SavePhoto(ctx, a))
	require.NoError(t, store.SavePhoto(ctx, b))

	page, err := store.ListPhotos(ctx, ListOptions{OrderBy: "filename", Direction: "asc"})
	require.NoError(t, err)
	require.Len(t, page.Photos, 2)
	assert.Equal(t, "apple.jpg", page.Photos[0].Filename)

	// Anything off the allow-list silently falls back to the timestamp.
	page, err = store.ListPhotos(ctx, ListOptions{OrderBy: "filename; DROP TABLE photos"})
	require.NoError(t, err)
	require.Len(t, page.Photos, 2)
	assert.Equal(t, "b", page.Photos[0].ID)
}

func TestSQLiteSearchByLocation(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	center := samplePhoto("center")
	center.Location = &models.Location{Latitude: 37.7749, Longitude: -122.4194}
	near := samplePhoto("near")
	// Roughly 5 km north of center.
	near.Location = &models.Location{Latitude: 37.8199, Longitude: -122.4194}
	far := samplePhoto("far")
	far.Location = &models.Location{Latitude: 40.7128, Longitude: -74.0060}
	nowhere := samplePhoto("nowhere")
	nowhere.Location = nil

	for _, r := range []*models.PhotoRecord{center, near, far, nowhere} {
		require.NoError(t, store.SavePhoto(ctx, r))
	}

	results, err := store.SearchByLocation(ctx, 37.7749, -122.4194, 10, 20)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "center", results[0].ID)
	assert.Equal(t, "near", results[1].ID)
}

func TestSQLiteCleanupStaleUploads(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	staleA := samplePhoto("stale-a")
	staleA.UploadTimestamp = time.Now().UTC().Add(-2 * time.Hour)
	staleB := samplePhoto("stale-b")
	staleB.UploadTimestamp = time.Now().UTC().Add(-3 * time.Hour)
	fresh := samplePhoto("fresh")
	oldCompleted := samplePhoto("done")
	oldCompleted.UploadStatus = models.StatusCompleted
	oldCompleted.UploadTimestamp = time.Now().UTC().Add(-48 * time.Hour)

	for _, r := range []*models.PhotoRecord{staleA, staleB, fresh, oldCompleted} {
		require.NoError(t, store.SavePhoto(ctx, r))
	}

	ids, err := store.CleanupStaleUploads(ctx, time.Hour)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"stale-a", "stale-b"}, ids)

	for _, id := range ids {
		got, err := store.GetPhoto(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusFailed, got.UploadStatus)
	}

	got, err := store.GetPhoto(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, models.StatusUploading, got.UploadStatus, "a just-started upload must not be swept")

	got, err = store.GetPhoto(ctx, "done")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.UploadStatus)

	// A second sweep with nothing newly stale is a no-op.
	ids, err = store.CleanupStaleUploads(ctx, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSQLiteDeletePhoto(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.SavePhoto(ctx, samplePhoto("p1")))
	require.NoError(t, store.DeletePhoto(ctx, "p1"))

	_, err := store.GetPhoto(ctx, "p1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.DeletePhoto(ctx, "p1"), ErrNotFound)
}

func TestSQLiteGetStats(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	withEverything := samplePhoto("p1")
	bare := samplePhoto("p2")
	bare.Description = ""
	bare.Location = nil
	bare.FileSize = 1000

	require.NoError(t, store.SavePhoto(ctx, withEverything))
	require.NoError(t, store.SavePhoto(ctx, bare))

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalPhotos)
	assert.Equal(t, 1, stats.PhotosWithLocation)
	assert.Equal(t, 1, stats.PhotosWithDescription)
	assert.Equal(t, int64(3048), stats.TotalSize)
}
