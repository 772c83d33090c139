package session

import (
	"fmt"
	"log"
	"sync"
	"time"

	"character-sheet-server/modules/catalog"
)

// 상태 전이 에러
var (
	ErrNotFound      = fmt.Errorf("session not found")
	ErrInvalidState  = fmt.Errorf("action not allowed in current screen")
	ErrInputsMissing = fmt.Errorf("image, style, aspect ratio and background color are all required")
)

// Metrics - 서버 메트릭
type Metrics struct {
	TotalSessions  int `json:"totalSessions"`
	ActiveSessions int `json:"activeSessions"`
}

// Store - 세션 저장소 (메모리, 프로세스 생명주기 한정)
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	metrics  Metrics

	// clock - 테스트에서 시간을 가로채기 위한 훅 (nil이면 time.Now)
	clock func() time.Time
}

// now - 현재 시각 (clock 훅 적용)
func (st *Store) now() time.Time {
	if st.clock != nil {
		return st.clock()
	}
	return time.Now()
}

// NewStore - 세션 저장소 생성
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate - 세션 가져오기 또는 생성
func (st *Store) GetOrCreate(id string) Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return *st.getOrCreateLocked(id)
}

// Get - 세션 조회 (스냅샷 반환)
func (st *Store) Get(id string) (Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// SetUpload - 업로드 이미지 저장
// 기존 미리보기는 교체 전에 해제됨. upload 화면에서만 허용.
func (st *Store) SetUpload(id string, upload *UploadedImage) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := st.getOrCreateLocked(id)
	if s.Screen != ScreenUpload {
		return ErrInvalidState
	}

	if s.Upload != nil {
		s.Upload.ReleasePreview()
	}
	s.Upload = upload
	s.ErrorMessage = ""
	s.LastActivity = st.now()
	return nil
}

// SetSelections - 스타일/비율/배경색 선택 저장 (빈 값은 변경하지 않음)
func (st *Store) SetSelections(id string, style catalog.Style, ratio catalog.AspectRatio, chroma catalog.Chroma) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := st.getOrCreateLocked(id)
	if s.Screen != ScreenUpload {
		return ErrInvalidState
	}

	if style != "" {
		s.Style = style
	}
	if ratio != "" {
		s.Ratio = ratio
	}
	if chroma != "" {
		s.Chroma = chroma
	}
	s.LastActivity = st.now()
	return nil
}

// SetError - 화면에 표시할 에러 메시지 설정 (upload 화면에서만 의미 있음)
func (st *Store) SetError(id, message string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := st.getOrCreateLocked(id)
	if s.Screen == ScreenUpload {
		s.ErrorMessage = message
		s.LastActivity = st.now()
	}
}

// BeginGeneration - upload → loading 전이
// 4개 입력이 모두 있어야 하며, upload 화면에서만 시작 가능 (재진입 차단)
func (st *Store) BeginGeneration(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if s.Screen != ScreenUpload {
		return ErrInvalidState
	}
	if !s.Ready() {
		return ErrInputsMissing
	}

	s.Screen = ScreenLoading
	s.ErrorMessage = ""
	s.Results = nil
	s.ProgressCaption = "Preparing..."
	s.LastActivity = st.now()
	return nil
}

// SetProgress - loading 중 진행 캡션 갱신 (표시용, 결과에는 포함 안 됨)
func (st *Store) SetProgress(id, caption string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok || s.Screen != ScreenLoading {
		return
	}
	s.ProgressCaption = caption
	s.LastActivity = st.now()
}

// CompleteGeneration - loading → results 전이
func (st *Store) CompleteGeneration(id string, results []GeneratedResult) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if s.Screen != ScreenLoading {
		return ErrInvalidState
	}

	s.Screen = ScreenResults
	s.Results = results
	s.ErrorMessage = ""
	s.ProgressCaption = ""
	s.LastActivity = st.now()
	return nil
}

// FailGeneration - loading → upload 전이 (실패)
// 에러 메시지를 표시하고 선택값은 유지. 부분 결과는 버림.
func (st *Store) FailGeneration(id, message string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if s.Screen != ScreenLoading {
		return ErrInvalidState
	}

	s.Screen = ScreenUpload
	s.Results = nil
	s.ErrorMessage = message
	s.ProgressCaption = ""
	s.LastActivity = st.now()
	return nil
}

// Reset - 세션 전체 초기화
// 미리보기 리소스를 해제하고 선택값/결과/에러를 모두 비움
func (st *Store) Reset(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if s.Screen == ScreenLoading {
		return ErrInvalidState
	}

	if s.Upload != nil {
		s.Upload.ReleasePreview()
	}
	created := s.CreatedAt
	*s = Session{
		ID:           id,
		Screen:       ScreenUpload,
		CreatedAt:    created,
		LastActivity: st.now(),
	}
	return nil
}

// GetMetrics - 메트릭 스냅샷
func (st *Store) GetMetrics() Metrics {
	st.mu.RLock()
	defer st.mu.RUnlock()

	m := st.metrics
	m.ActiveSessions = len(st.sessions)
	return m
}

// getOrCreateLocked - 잠금 상태에서 세션 가져오기/생성
func (st *Store) getOrCreateLocked(id string) *Session {
	if s, ok := st.sessions[id]; ok {
		s.LastActivity = st.now()
		return s
	}

	now := st.now()
	s := &Session{
		ID:           id,
		Screen:       ScreenUpload,
		CreatedAt:    now,
		LastActivity: now,
	}
	st.sessions[id] = s
	st.metrics.TotalSessions++

	log.Printf("✅ Created new session: %s (Total: %d)", id, st.metrics.TotalSessions)
	return s
}

// CleanupExpiredSessions - 만료/비활성 세션 정리
// 생성 후 24시간 또는 2시간 비활성 시 제거, 미리보기 리소스도 해제
func (st *Store) CleanupExpiredSessions() {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	expiredThreshold := 24 * time.Hour
	inactiveThreshold := 2 * time.Hour

	cleaned := 0
	for id, s := range st.sessions {
		// loading 중인 세션은 워크플로우가 끝날 때까지 건드리지 않음
		if s.Screen == ScreenLoading {
			continue
		}

		isExpired := now.Sub(s.CreatedAt) > expiredThreshold
		isInactive := now.Sub(s.LastActivity) > inactiveThreshold

		if isExpired || isInactive {
			if s.Upload != nil {
				s.Upload.ReleasePreview()
			}
			delete(st.sessions, id)
			cleaned++

			log.Printf("⏰ Cleaned up session: %s (Age: %v, Inactive: %v)",
				id, now.Sub(s.CreatedAt), now.Sub(s.LastActivity))
		}
	}

	if cleaned > 0 {
		log.Printf("🧹 Cleaned up %d sessions (Active: %d)", cleaned, len(st.sessions))
	}
}

// StartCleanupRoutine - 정기적 정리 작업 시작
func (st *Store) StartCleanupRoutine() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			st.CleanupExpiredSessions()
		}
	}()

	log.Printf("🔄 Started session cleanup routine (every 5min)")
}
