package utils

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG 디코더 등록
	_ "image/png"  // PNG 디코더 등록
	"log"
	"math"
	"path/filepath"
	"strings"

	_ "github.com/kolesa-team/go-webp/decoder" // WebP 디코더 등록
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

// MakePreviewWebP - 업로드 원본에서 미리보기 WebP 썸네일 생성
// maxDim보다 큰 이미지는 비율을 유지하며 축소
func MakePreviewWebP(imageData []byte, maxDim int, quality float32) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxDim || bounds.Dy() > maxDim {
		img = FitImage(img, maxDim)
	}

	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, quality)
	if err != nil {
		return nil, fmt.Errorf("failed to create WebP encoder options: %w", err)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, options); err != nil {
		return nil, fmt.Errorf("failed to encode WebP: %w", err)
	}

	log.Printf("✅ Preview created: %s %dx%d → %d bytes WebP",
		format, bounds.Dx(), bounds.Dy(), buf.Len())

	return buf.Bytes(), nil
}

// FitImage - 이미지를 maxDim 안에 들어오도록 비율 유지 축소
func FitImage(src image.Image, maxDim int) image.Image {
	srcBounds := src.Bounds()
	srcWidth := srcBounds.Dx()
	srcHeight := srcBounds.Dy()

	scale := math.Min(float64(maxDim)/float64(srcWidth), float64(maxDim)/float64(srcHeight))
	if scale >= 1 {
		return src
	}

	newWidth := int(float64(srcWidth) * scale)
	newHeight := int(float64(srcHeight) * scale)
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))

	// Nearest Neighbor 방식으로 리사이즈
	for y := 0; y < newHeight; y++ {
		for x := 0; x < newWidth; x++ {
			srcX := int(float64(x) / scale)
			srcY := int(float64(y) / scale)
			dst.Set(x, y, src.At(srcX+srcBounds.Min.X, srcY+srcBounds.Min.Y))
		}
	}

	return dst
}

// ImageExt - 파일명에서 확장자 추출 (점 제외, 소문자)
// 확장자가 없으면 "png" 반환
func ImageExt(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return "png"
	}
	return ext
}
