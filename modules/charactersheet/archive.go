package charactersheet

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"math/rand"
	"regexp"
	"strings"

	"character-sheet-server/modules/common/utils"
	"character-sheet-server/modules/session"
)

// 생성 이미지의 아카이브 내 고정 확장자
const generatedExt = "jpeg"

const tagAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewSessionTag - 4자리 소문자 영숫자 세션 태그 생성
// 같은 브라우저 세션에서 반복 다운로드해도 파일명이 충돌하지 않도록 매번 새로 뽑음
func NewSessionTag() string {
	b := make([]byte, 4)
	for i := range b {
		b[i] = tagAlphabet[rand.Intn(len(tagAlphabet))]
	}
	return string(b)
}

var (
	slugSeparators = regexp.MustCompile(`[/()\s]+`)
	slugHyphenRuns = regexp.MustCompile(`-{2,}`)
)

// Slugify - 라벨을 파일명에 안전한 형태로 변환
// 소문자화, 슬래시/괄호/공백을 단일 하이픈으로, 양끝 하이픈 제거
// 예: "3/4 View (Watercolor)" → "3-4-view-watercolor"
func Slugify(label string) string {
	slug := strings.ToLower(label)
	slug = slugSeparators.ReplaceAllString(slug, "-")
	slug = slugHyphenRuns.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// BuildArchive - 원본 업로드와 생성 결과 전체를 하나의 zip으로 묶음
// 호출마다 새 태그를 뽑으므로 반복 호출해도 파일명이 겹치지 않고, 결과 목록은 변경하지 않음
func BuildArchive(original *session.UploadedImage, results []session.GeneratedResult) (string, []byte, error) {
	if original == nil {
		return "", nil, fmt.Errorf("original upload is required")
	}

	tag := NewSessionTag()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	// 원본 파일 (확장자가 없으면 png로)
	originalName := fmt.Sprintf("original-%s.%s", tag, utils.ImageExt(original.Filename))
	w, err := zw.Create(originalName)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create archive entry %s: %w", originalName, err)
	}
	if _, err := w.Write(original.Data); err != nil {
		return "", nil, fmt.Errorf("failed to write archive entry %s: %w", originalName, err)
	}

	// 생성된 뷰 이미지들
	for _, result := range results {
		data, err := decodeDataURI(result.DataURI)
		if err != nil {
			return "", nil, fmt.Errorf("failed to decode result %q: %w", result.Label, err)
		}

		name := fmt.Sprintf("%s-%s.%s", Slugify(result.Label), tag, generatedExt)
		w, err := zw.Create(name)
		if err != nil {
			return "", nil, fmt.Errorf("failed to create archive entry %s: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			return "", nil, fmt.Errorf("failed to write archive entry %s: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return "", nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	return fmt.Sprintf("character-sheet-%s.zip", tag), buf.Bytes(), nil
}

// decodeDataURI - data URI에서 바이너리 추출 (순수 base64도 허용)
func decodeDataURI(uri string) ([]byte, error) {
	payload := uri
	if idx := strings.IndexByte(uri, ','); idx >= 0 {
		payload = uri[idx+1:]
	}
	return base64.StdEncoding.DecodeString(payload)
}
