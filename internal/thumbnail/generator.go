package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Spec names one derived size.
type Spec struct {
	Name   string
	Width  int
	Height int
}

// Thumbnail is one re-encoded derived image.
type Thumbnail struct {
	Data   []byte
	Width  int
	Height int
}

// DefaultSpecs returns the standard derived sizes.
func DefaultSpecs() []Spec {
	return []Spec{
		{Name: "small", Width: 150, Height: 150},
		{Name: "medium", Width: 400, Height: 400},
		{Name: "large", Width: 800, Height: 600},
	}
}

const defaultJPEGQuality = 85

type Generator struct {
	quality int
}

func NewGenerator() *Generator {
	return &Generator{quality: defaultJPEGQuality}
}

// Generate derives one letterboxed thumbnail per spec. A malformed source
// fails the whole call; no partial set is returned.
func (g *Generator) Generate(data []byte, specs []Spec) (map[string]Thumbnail, error) {
	src, err := decodeFlattened(data)
	if err != nil {
		return nil, err
	}

	thumbnails := make(map[string]Thumbnail, len(specs))
	for _, spec := range specs {
		thumb, err := g.letterbox(src, spec.Width, spec.Height)
		if err != nil {
			return nil, fmt.Errorf("failed to generate %s thumbnail: %w", spec.Name, err)
		}
		thumbnails[spec.Name] = thumb
	}
	return thumbnails, nil
}

// letterbox fits the source into the target box preserving aspect ratio, then
// centers it on a white canvas of exactly the target dimensions.
func (g *Generator) letterbox(src image.Image, width, height int) (Thumbnail, error) {
	fitted := imaging.Fit(src, width, height, imaging.Lanczos)
	canvas := imaging.New(width, height, color.White)
	canvas = imaging.PasteCenter(canvas, fitted)

	data, err := g.encodeJPEG(canvas)
	if err != nil {
		return Thumbnail{}, err
	}
	return Thumbnail{Data: data, Width: width, Height: height}, nil
}

// SmartCrop crops to the target aspect ratio before resizing, so the result
// fills the whole canvas with no borders. Wider sources are center-cropped;
// taller sources are cropped with a top-third bias, which keeps the subject
// of portrait shots in frame.
func (g *Generator) SmartCrop(data []byte, width, height int) (Thumbnail, error) {
	src, err := decodeFlattened(data)
	if err != nil {
		return Thumbnail{}, err
	}

	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	targetRatio := float64(width) / float64(height)
	srcRatio := float64(srcW) / float64(srcH)

	var cropped image.Image
	if srcRatio > targetRatio {
		cropW := int(float64(srcH) * targetRatio)
		cropped = imaging.CropAnchor(src, cropW, srcH, imaging.Center)
	} else {
		cropH := int(float64(srcW) / targetRatio)
		top := (srcH - cropH) / 3
		if top < 0 {
			top = 0
		}
		cropped = imaging.Crop(src, image.Rect(0, top, srcW, top+cropH))
	}

	resized := imaging.Resize(cropped, width, height, imaging.Lanczos)
	out, err := g.encodeJPEG(resized)
	if err != nil {
		return Thumbnail{}, err
	}
	return Thumbnail{Data: out, Width: width, Height: height}, nil
}

func (g *Generator) encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(g.quality)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeFlattened decodes with EXIF orientation applied and any transparency
// composited onto a white background.
func decodeFlattened(data []byte) (image.Image, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("invalid image data: %w", err)
	}
	background := imaging.New(src.Bounds().Dx(), src.Bounds().Dy(), color.White)
	return imaging.Overlay(background, src, image.Pt(0, 0), 1.0), nil
}
