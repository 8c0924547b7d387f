package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"photolog-backend/internal/metadata"
	"photolog-backend/internal/models"
	"photolog-backend/internal/services"
)

// PhotosHandler is thin transport glue: it decodes the multipart request,
// hands the pipeline a raw image buffer plus parsed metadata, and serializes
// the structured result. All failure handling lives in the service.
type PhotosHandler struct {
	service    *services.PhotoService
	reconciler *services.Reconciler
}

func NewPhotosHandler(service *services.PhotoService, reconciler *services.Reconciler) *PhotosHandler {
	return &PhotosHandler{service: service, reconciler: reconciler}
}

func (h *PhotosHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "image file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "failed to open uploaded file"})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "failed to read uploaded file"})
		return
	}

	input := services.UploadInput{
		Data:        data,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Description: c.PostForm("description"),
		Location:    parseLocation(c),
		EXIF:        parseEXIF(c.PostForm("exif_data")),
	}
	if tags := c.PostForm("tags"); tags != "" {
		input.Tags = splitTags(tags)
	}

	result, _ := h.service.UploadPhoto(c.Request.Context(), input)
	status := http.StatusOK
	if !result.Success {
		switch result.Stage {
		case services.StageValidation:
			status = http.StatusBadRequest
		default:
			status = http.StatusInternalServerError
		}
	}
	c.JSON(status, models.UploadResponse{
		Success:       result.Success,
		PhotoID:       result.PhotoID,
		FileURL:       result.FileURL,
		ThumbnailURLs: result.ThumbnailURLs,
		FileSize:      result.FileSize,
		StorageType:   result.StorageType,
		Error:         result.Error,
		Stage:         result.Stage,
	})
}

func (h *PhotosHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	opts := metadata.ListOptions{
		Limit:     limit,
		PageToken: c.Query("page"),
		OrderBy:   c.Query("order_by"),
		Direction: c.Query("direction"),
	}

	page, err := h.service.ListPhotos(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list photos"})
		return
	}
	c.JSON(http.StatusOK, models.PhotoListResponse{
		Photos: page.Photos,
		PageInfo: models.PageInfo{
			NextPage:   page.NextPage,
			Count:      len(page.Photos),
			TotalCount: page.TotalCount,
			Limit:      opts.Limit,
		},
	})
}

func (h *PhotosHandler) Get(c *gin.Context) {
	record, err := h.service.GetPhoto(c.Request.Context(), c.Param("photo_id"))
	if errors.Is(err, metadata.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "photo not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to get photo"})
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *PhotosHandler) Delete(c *gin.Context) {
	err := h.service.DeletePhoto(c.Request.Context(), c.Param("photo_id"))
	if errors.Is(err, metadata.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "photo not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to delete photo"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PhotosHandler) Search(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("latitude"), 64)
	lon, lonErr := strconv.ParseFloat(c.Query("longitude"), 64)
	if latErr != nil || lonErr != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "latitude and longitude are required"})
		return
	}
	radius, err := strconv.ParseFloat(c.DefaultQuery("radius_km", "10"), 64)
	if err != nil || radius <= 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid radius_km"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	photos, err := h.service.SearchByLocation(c.Request.Context(), lat, lon, radius, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to search photos"})
		return
	}
	c.JSON(http.StatusOK, models.SearchResponse{Photos: photos, Count: len(photos)})
}

func (h *PhotosHandler) Stats(c *gin.Context) {
	stats, err := h.service.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to get stats"})
		return
	}
	c.JSON(http.StatusOK, models.StatsResponse{
		TotalPhotos:           stats.TotalPhotos,
		PhotosWithLocation:    stats.PhotosWithLocation,
		PhotosWithDescription: stats.PhotosWithDescription,
		TotalSize:             stats.TotalSize,
		GeneratedAt:           time.Now().UTC(),
	})
}

// Cleanup triggers one reconciliation sweep on demand, in addition to the
// background interval.
func (h *PhotosHandler) Cleanup(c *gin.Context) {
	ids, err := h.reconciler.Sweep(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "sweep failed"})
		return
	}
	c.JSON(http.StatusOK, models.SweepResponse{CleanedCount: len(ids), PhotoIDs: ids})
}

func parseLocation(c *gin.Context) *models.Location {
	latStr, lonStr := c.PostForm("latitude"), c.PostForm("longitude")
	if latStr == "" || lonStr == "" {
		return nil
	}
	lat, latErr := strconv.ParseFloat(latStr, 64)
	lon, lonErr := strconv.ParseFloat(lonStr, 64)
	if latErr != nil || lonErr != nil {
		return nil
	}
	return &models.Location{
		Latitude:  lat,
		Longitude: lon,
		Address:   c.PostForm("address"),
		City:      c.PostForm("city"),
		Country:   c.PostForm("country"),
	}
}

func parseEXIF(raw string) *models.EXIFData {
	if raw == "" {
		return nil
	}
	var exif models.EXIFData
	if err := json.Unmarshal([]byte(raw), &exif); err != nil {
		return nil
	}
	return &exif
}

func splitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
