package charactersheet

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"io"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"character-sheet-server/modules/session"
)

var tagPattern = regexp.MustCompile(`^[a-z0-9]{4}$`)

func TestNewSessionTagFormat(t *testing.T) {
	for i := 0; i < 50; i++ {
		tag := NewSessionTag()
		assert.Regexp(t, tagPattern, tag)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Front View (Watercolor)", "front-view-watercolor"},
		{"3/4 View (Watercolor)", "3-4-view-watercolor"},
		{"Profile View (Comic Book)", "profile-view-comic-book"},
		{"3/4 View (Low Poly 3d)", "3-4-view-low-poly-3d"},
		{"  spaced  ", "spaced"},
		{"((nested)) / slashes", "nested-slashes"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.label), "label %q", tt.label)
	}
}

func dataURI(payload string) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte(payload))
}

func sampleResults() []session.GeneratedResult {
	return []session.GeneratedResult{
		{DataURI: dataURI("front-bytes"), Label: "Front View (Watercolor)"},
		{DataURI: dataURI("three-quarter-bytes"), Label: "3/4 View (Watercolor)"},
		{DataURI: dataURI("profile-bytes"), Label: "Profile View (Watercolor)"},
	}
}

func TestBuildArchiveContents(t *testing.T) {
	original := session.NewUploadedImage([]byte("original-bytes"), "image/png", "My Photo.PNG", nil)

	filename, data, err := BuildArchive(original, sampleResults())
	require.NoError(t, err)

	// 파일명: character-sheet-<tag>.zip
	namePattern := regexp.MustCompile(`^character-sheet-([a-z0-9]{4})\.zip$`)
	match := namePattern.FindStringSubmatch(filename)
	require.NotNil(t, match, "unexpected archive name %q", filename)
	tag := match[1]

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 4)

	entries := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		entries[f.Name] = content
	}

	// 원본은 업로드 파일의 확장자를 유지 (소문자화)
	assert.Equal(t, []byte("original-bytes"), entries["original-"+tag+".png"])
	assert.Equal(t, []byte("front-bytes"), entries["front-view-watercolor-"+tag+".jpeg"])
	assert.Equal(t, []byte("three-quarter-bytes"), entries["3-4-view-watercolor-"+tag+".jpeg"])
	assert.Equal(t, []byte("profile-bytes"), entries["profile-view-watercolor-"+tag+".jpeg"])
}

func TestBuildArchiveFreshTagPerCall(t *testing.T) {
	original := session.NewUploadedImage([]byte("o"), "image/jpeg", "me.jpg", nil)
	results := sampleResults()

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		filename, _, err := BuildArchive(original, results)
		require.NoError(t, err)
		seen[filename] = true
	}

	// 같은 세션에서 반복 다운로드해도 태그가 겹치는 일은 드묾
	assert.Greater(t, len(seen), 1)
}

func TestBuildArchiveDoesNotMutateResults(t *testing.T) {
	original := session.NewUploadedImage([]byte("o"), "image/jpeg", "me.jpg", nil)
	results := sampleResults()
	before := make([]session.GeneratedResult, len(results))
	copy(before, results)

	_, _, err := BuildArchive(original, results)
	require.NoError(t, err)
	assert.Equal(t, before, results)
}

func TestBuildArchiveRequiresOriginal(t *testing.T) {
	_, _, err := BuildArchive(nil, sampleResults())
	assert.Error(t, err)
}

func TestBuildArchiveRejectsBadDataURI(t *testing.T) {
	original := session.NewUploadedImage([]byte("o"), "image/jpeg", "me.jpg", nil)
	results := []session.GeneratedResult{
		{DataURI: "data:image/jpeg;base64,%%%not-base64%%%", Label: "Front View (Anime)"},
	}

	_, _, err := BuildArchive(original, results)
	assert.Error(t, err)
}

func TestBuildArchiveOriginalWithoutExtension(t *testing.T) {
	original := session.NewUploadedImage([]byte("o"), "image/png", "photo", nil)

	filename, data, err := BuildArchive(original, nil)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)

	// 확장자가 없으면 png로
	assert.Regexp(t, `^original-[a-z0-9]{4}\.png$`, zr.File[0].Name)
	assert.Contains(t, filename, "character-sheet-")
}
