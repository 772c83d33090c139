package utils

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFitImageKeepsSmallImages(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 50))

	dst := FitImage(src, 512)
	assert.Equal(t, src.Bounds(), dst.Bounds())
}

func TestFitImagePreservesAspectRatio(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1024, 512))

	dst := FitImage(src, 512)
	assert.Equal(t, 512, dst.Bounds().Dx())
	assert.Equal(t, 256, dst.Bounds().Dy())
}

func TestFitImagePortrait(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 600, 1200))

	dst := FitImage(src, 300)
	assert.Equal(t, 150, dst.Bounds().Dx())
	assert.Equal(t, 300, dst.Bounds().Dy())
}

func TestImageExt(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"photo.jpg", "jpg"},
		{"photo.JPEG", "jpeg"},
		{"My Photo.PNG", "png"},
		{"archive.tar.gz", "gz"},
		{"no-extension", "png"},
		{"", "png"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ImageExt(tt.filename), "filename %q", tt.filename)
	}
}
