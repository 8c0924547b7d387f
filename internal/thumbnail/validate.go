package thumbnail

import (
	"bytes"
	"fmt"
	"image"
)

// ImageInfo describes a decodable image without fully decoding it.
type ImageInfo struct {
	Format string
	Width  int
	Height int
}

var allowedFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"bmp":  true,
	"tiff": true,
}

// Validate checks that the bytes are a decodable image in an accepted format
// and, when maxSize is positive, within the size limit.
func Validate(data []byte, maxSize int64) (*ImageInfo, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, fmt.Errorf("file size %d exceeds limit %d", len(data), maxSize)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid image data: %w", err)
	}
	if !allowedFormats[format] {
		return nil, fmt.Errorf("unsupported image format %q", format)
	}
	return &ImageInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}
