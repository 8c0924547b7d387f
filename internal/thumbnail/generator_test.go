package thumbnail

import (
	"bytes"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeJPEG(t *testing.T, width, height int, fill color.Color) []byte {
	t.Helper()
	img := imaging.New(width, height, fill)
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG))
	return buf.Bytes()
}

func TestGenerateProducesAllDefaultSizes(t *testing.T) {
	gen := NewGenerator()
	src := makeJPEG(t, 1200, 900, color.NRGBA{R: 200, G: 30, B: 30, A: 255})

	thumbs, err := gen.Generate(src, DefaultSpecs())
	require.NoError(t, err)
	require.Len(t, thumbs, 3)

	expected := map[string][2]int{
		"small":  {150, 150},
		"medium": {400, 400},
		"large":  {800, 600},
	}
	for name, dims := range expected {
		thumb, ok := thumbs[name]
		require.True(t, ok, "missing %s thumbnail", name)
		assert.Equal(t, dims[0], thumb.Width)
		assert.Equal(t, dims[1], thumb.Height)

		img, err := imaging.Decode(bytes.NewReader(thumb.Data))
		require.NoError(t, err)
		assert.Equal(t, dims[0], img.Bounds().Dx())
		assert.Equal(t, dims[1], img.Bounds().Dy())
	}
}

func TestGenerateLetterboxesWithWhitePadding(t *testing.T) {
	gen := NewGenerator()
	// A wide source fitted into a square leaves white bands above and below.
	src := makeJPEG(t, 300, 100, color.NRGBA{R: 200, G: 30, B: 30, A: 255})

	thumbs, err := gen.Generate(src, []Spec{{Name: "small", Width: 150, Height: 150}})
	require.NoError(t, err)

	img, err := imaging.Decode(bytes.NewReader(thumbs["small"].Data))
	require.NoError(t, err)
	require.Equal(t, 150, img.Bounds().Dx())
	require.Equal(t, 150, img.Bounds().Dy())

	r, g, b, _ := img.At(75, 5).RGBA()
	assert.Greater(t, r>>8, uint32(240), "top band should be white")
	assert.Greater(t, g>>8, uint32(240), "top band should be white")
	assert.Greater(t, b>>8, uint32(240), "top band should be white")

	r, g, _, _ = img.At(75, 75).RGBA()
	assert.Greater(t, r>>8, uint32(150), "center should carry the source color")
	assert.Less(t, g>>8, uint32(120), "center should carry the source color")
}

func TestGenerateRejectsCorruptSource(t *testing.T) {
	gen := NewGenerator()
	thumbs, err := gen.Generate([]byte("not an image at all"), DefaultSpecs())
	assert.Error(t, err)
	assert.Nil(t, thumbs)
}

func TestSmartCropFillsTargetExactly(t *testing.T) {
	gen := NewGenerator()

	wide := makeJPEG(t, 400, 100, color.NRGBA{R: 10, G: 10, B: 200, A: 255})
	thumb, err := gen.SmartCrop(wide, 100, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, thumb.Width)
	assert.Equal(t, 100, thumb.Height)

	img, err := imaging.Decode(bytes.NewReader(thumb.Data))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())

	tall := makeJPEG(t, 100, 400, color.NRGBA{R: 10, G: 10, B: 200, A: 255})
	thumb, err = gen.SmartCrop(tall, 100, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, thumb.Width)
	assert.Equal(t, 100, thumb.Height)
}

func TestValidate(t *testing.T) {
	valid := makeJPEG(t, 40, 30, color.White)

	info, err := Validate(valid, 0)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", info.Format)
	assert.Equal(t, 40, info.Width)
	assert.Equal(t, 30, info.Height)

	_, err = Validate(valid, 10)
	assert.Error(t, err, "size limit should apply")

	_, err = Validate(nil, 0)
	assert.Error(t, err, "empty input should be rejected")

	_, err = Validate([]byte("garbage"), 0)
	assert.Error(t, err, "undecodable input should be rejected")
}
