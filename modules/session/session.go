package session

import (
	"sync"
	"time"

	"character-sheet-server/modules/catalog"
)

// Screen - 세션이 현재 머무는 화면
type Screen string

const (
	ScreenUpload  Screen = "upload"
	ScreenLoading Screen = "loading"
	ScreenResults Screen = "results"
)

// UploadedImage - 업로드된 원본 이미지와 미리보기 리소스
// 미리보기는 스토어 잠금 밖(핸들러의 스냅샷, 정리 루틴)에서도 접근되므로 자체 잠금으로 보호
type UploadedImage struct {
	Data     []byte
	MimeType string
	Filename string

	mu       sync.Mutex
	preview  []byte
	released bool
}

// NewUploadedImage - 업로드 이미지 생성 (미리보기 포함)
func NewUploadedImage(data []byte, mimeType, filename string, preview []byte) *UploadedImage {
	return &UploadedImage{
		Data:     data,
		MimeType: mimeType,
		Filename: filename,
		preview:  preview,
	}
}

// Preview - 미리보기 데이터 반환 (해제된 경우 nil)
func (u *UploadedImage) Preview() []byte {
	if u == nil {
		return nil
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.released {
		return nil
	}
	return u.preview
}

// ReleasePreview - 미리보기 리소스 해제
// 교체/리셋 시 정확히 한 번만 해제됨. 이미 해제된 경우 false 반환.
func (u *UploadedImage) ReleasePreview() bool {
	if u == nil {
		return false
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.released {
		return false
	}
	u.preview = nil
	u.released = true
	return true
}

// GeneratedResult - 뷰 하나에 대한 생성 결과
type GeneratedResult struct {
	// DataURI - data:image/...;base64,... 형식의 표시용 이미지
	DataURI string `json:"dataUri"`

	// Label - "<View Name> (<Style Title>)" 형식
	Label string `json:"label"`
}

// Session - 한 사용자의 화면 상태와 선택값
// 라이프사이클: 빈 상태로 생성 → 사용자 액션/워크플로우 단계마다 변경 → 리셋 시 전부 초기화
type Session struct {
	ID     string
	Screen Screen

	Upload *UploadedImage
	Style  catalog.Style
	Ratio  catalog.AspectRatio
	Chroma catalog.Chroma

	Results         []GeneratedResult
	ErrorMessage    string
	ProgressCaption string

	CreatedAt    time.Time
	LastActivity time.Time
}

// Ready - 생성 시작에 필요한 4개 입력이 모두 준비됐는지
func (s *Session) Ready() bool {
	return s.Upload != nil && s.Style != "" && s.Ratio != "" && s.Chroma != ""
}
