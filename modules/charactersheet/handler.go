package charactersheet

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"character-sheet-server/modules/catalog"
	"character-sheet-server/modules/common/utils"
	"character-sheet-server/modules/session"
)

// 미리보기 썸네일 설정
const (
	previewMaxDim  = 512
	previewQuality = 80.0
)

// Enqueuer - 생성 작업 큐 추상화 (Queue가 구현, 테스트에서 교체)
type Enqueuer interface {
	EnqueueGeneration(ctx context.Context, sessionID string) error
}

type Handler struct {
	store *session.Store
	queue Enqueuer
}

func NewHandler(store *session.Store, queue Enqueuer) *Handler {
	return &Handler{
		store: store,
		queue: queue,
	}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/sheet/upload", h.HandleUpload).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/sheet/select", h.HandleSelect).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/sheet/generate", h.HandleGenerate).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/sheet/state", h.HandleState).Methods("GET")
	r.HandleFunc("/api/sheet/preview", h.HandlePreview).Methods("GET")
	r.HandleFunc("/api/sheet/archive", h.HandleArchive).Methods("GET")
	r.HandleFunc("/api/sheet/reset", h.HandleReset).Methods("POST", "OPTIONS")
	log.Println("✅ Character sheet routes registered")
}

// HandleUpload - POST /api/sheet/upload
// 캐릭터 사진 업로드. 4 MiB 초과는 어떤 외부 호출도 하기 전에 거부.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionIDFrom(r)
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	// multipart 전체 상한 (파일 4 MiB + 폼 오버헤드)
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes+(1<<20))

	if err := r.ParseMultipartForm(MaxUploadBytes + (1 << 20)); err != nil {
		// 바디 상한 초과도 파일 크기 초과와 같은 응답으로
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.rejectOversized(w, sessionID)
			return
		}
		writeJSON(w, http.StatusBadRequest, APIResponse{
			Success:      false,
			SessionID:    sessionID,
			ErrorMessage: "Invalid multipart form",
			ErrorCode:    ErrCodeInvalidRequest,
		})
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, APIResponse{
			Success:      false,
			SessionID:    sessionID,
			ErrorMessage: "Missing image file",
			ErrorCode:    ErrCodeInvalidRequest,
		})
		return
	}
	defer file.Close()

	// 크기 검증 - 선택을 버리고 에러만 표시, 미리보기도 만들지 않음
	if header.Size > MaxUploadBytes {
		h.rejectOversized(w, sessionID)
		return
	}

	imgBytes, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, APIResponse{
			Success:      false,
			SessionID:    sessionID,
			ErrorMessage: "Failed to read image",
			ErrorCode:    ErrCodeInvalidRequest,
		})
		return
	}
	if int64(len(imgBytes)) > MaxUploadBytes {
		h.rejectOversized(w, sessionID)
		return
	}

	mimeType := detectMime(header.Header.Get("Content-Type"), imgBytes)

	// 미리보기 생성 실패는 치명적이지 않음 (미리보기 없이 진행)
	preview, err := utils.MakePreviewWebP(imgBytes, previewMaxDim, previewQuality)
	if err != nil {
		log.Printf("⚠️ [CharacterSheet] Preview creation failed, continuing without: %v", err)
		preview = nil
	}

	upload := session.NewUploadedImage(imgBytes, mimeType, header.Filename, preview)
	if err := h.store.SetUpload(sessionID, upload); err != nil {
		writeStateError(w, sessionID, err)
		return
	}

	log.Printf("📤 [CharacterSheet] Image uploaded: session=%s, %d bytes, %s", sessionID, len(imgBytes), mimeType)

	writeJSON(w, http.StatusOK, APIResponse{
		Success:   true,
		SessionID: sessionID,
		Screen:    string(session.ScreenUpload),
	})
}

// HandleSelect - POST /api/sheet/select
// 스타일/비율/배경색 선택. 빈 필드는 건드리지 않음.
func (h *Handler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionIDFrom(r)
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, APIResponse{
			Success:      false,
			ErrorMessage: "Session ID is required",
			ErrorCode:    ErrCodeInvalidRequest,
		})
		return
	}

	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIResponse{
			Success:      false,
			SessionID:    sessionID,
			ErrorMessage: "Invalid request format",
			ErrorCode:    ErrCodeInvalidRequest,
		})
		return
	}

	var style catalog.Style
	var ratio catalog.AspectRatio
	var chroma catalog.Chroma
	var err error

	if req.Style != "" {
		if style, err = catalog.ParseStyle(req.Style); err != nil {
			writeJSON(w, http.StatusBadRequest, APIResponse{
				Success:      false,
				SessionID:    sessionID,
				ErrorMessage: err.Error(),
				ErrorCode:    ErrCodeInvalidRequest,
			})
			return
		}
	}
	if req.AspectRatio != "" {
		if ratio, err = catalog.ParseAspectRatio(req.AspectRatio); err != nil {
			writeJSON(w, http.StatusBadRequest, APIResponse{
				Success:      false,
				SessionID:    sessionID,
				ErrorMessage: err.Error(),
				ErrorCode:    ErrCodeInvalidRequest,
			})
			return
		}
	}
	if req.Chroma != "" {
		if chroma, err = catalog.ParseChroma(req.Chroma); err != nil {
			writeJSON(w, http.StatusBadRequest, APIResponse{
				Success:      false,
				SessionID:    sessionID,
				ErrorMessage: err.Error(),
				ErrorCode:    ErrCodeInvalidRequest,
			})
			return
		}
	}

	if err := h.store.SetSelections(sessionID, style, ratio, chroma); err != nil {
		writeStateError(w, sessionID, err)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success:   true,
		SessionID: sessionID,
		Screen:    string(session.ScreenUpload),
	})
}

// HandleGenerate - POST /api/sheet/generate
// 4개 입력이 모두 있어야 시작. upload → loading 전이 후 작업 큐에 등록.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionIDFrom(r)
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, APIResponse{
			Success:      false,
			ErrorMessage: "Session ID is required",
			ErrorCode:    ErrCodeInvalidRequest,
		})
		return
	}

	if err := h.store.BeginGeneration(sessionID); err != nil {
		writeStateError(w, sessionID, err)
		return
	}

	if err := h.queue.EnqueueGeneration(r.Context(), sessionID); err != nil {
		log.Printf("❌ [CharacterSheet] Failed to enqueue job: %v", err)
		// 큐 등록 실패 시 upload 화면으로 롤백
		_ = h.store.FailGeneration(sessionID, "Failed to start generation. Please try again.")
		writeJSON(w, http.StatusInternalServerError, APIResponse{
			Success:      false,
			SessionID:    sessionID,
			Screen:       string(session.ScreenUpload),
			ErrorMessage: "Failed to start generation. Please try again.",
			ErrorCode:    ErrCodeInternalError,
		})
		return
	}

	log.Printf("🔄 [CharacterSheet] Generation queued: session=%s", sessionID)

	writeJSON(w, http.StatusOK, APIResponse{
		Success:   true,
		SessionID: sessionID,
		Screen:    string(session.ScreenLoading),
	})
}

// HandleState - GET /api/sheet/state
func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionIDFrom(r)
	snap, ok := h.store.Get(sessionID)
	if !ok {
		writeJSON(w, http.StatusNotFound, APIResponse{
			Success:      false,
			SessionID:    sessionID,
			ErrorMessage: "Session not found",
			ErrorCode:    ErrCodeSessionNotFound,
		})
		return
	}

	resp := StateResponse{
		Success:         true,
		SessionID:       snap.ID,
		Screen:          string(snap.Screen),
		Style:           string(snap.Style),
		AspectRatio:     string(snap.Ratio),
		Chroma:          string(snap.Chroma),
		HasImage:        snap.Upload != nil,
		Ready:           snap.Ready(),
		ProgressCaption: snap.ProgressCaption,
		ErrorMessage:    snap.ErrorMessage,
	}
	for _, result := range snap.Results {
		resp.Results = append(resp.Results, ResultItem{
			Label:   result.Label,
			DataURI: result.DataURI,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandlePreview - GET /api/sheet/preview
// 업로드 이미지의 WebP 미리보기
func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionIDFrom(r)
	snap, ok := h.store.Get(sessionID)
	if !ok || snap.Upload == nil {
		http.Error(w, "No preview available", http.StatusNotFound)
		return
	}

	preview := snap.Upload.Preview()
	if len(preview) == 0 {
		http.Error(w, "No preview available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(preview)
}

// HandleArchive - GET /api/sheet/archive
// 원본 + 생성 이미지 3장을 zip으로 다운로드. results 화면에서만 가능.
func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionIDFrom(r)
	snap, ok := h.store.Get(sessionID)
	if !ok {
		writeJSON(w, http.StatusNotFound, APIResponse{
			Success:      false,
			SessionID:    sessionID,
			ErrorMessage: "Session not found",
			ErrorCode:    ErrCodeSessionNotFound,
		})
		return
	}
	if snap.Screen != session.ScreenResults || len(snap.Results) == 0 {
		writeJSON(w, http.StatusConflict, APIResponse{
			Success:      false,
			SessionID:    sessionID,
			Screen:       string(snap.Screen),
			ErrorMessage: "No results to download",
			ErrorCode:    ErrCodeInvalidState,
		})
		return
	}

	filename, data, err := BuildArchive(snap.Upload, snap.Results)
	if err != nil {
		log.Printf("❌ [CharacterSheet] Archive build failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, APIResponse{
			Success:      false,
			SessionID:    sessionID,
			ErrorMessage: "Failed to build archive",
			ErrorCode:    ErrCodeInternalError,
		})
		return
	}

	log.Printf("📦 [CharacterSheet] Archive built: %s (%d bytes, %d entries)",
		filename, len(data), len(snap.Results)+1)

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Write(data)
}

// HandleReset - POST /api/sheet/reset
// 선택/결과/에러 초기화, 미리보기 리소스 해제
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionIDFrom(r)
	if err := h.store.Reset(sessionID); err != nil {
		writeStateError(w, sessionID, err)
		return
	}

	log.Printf("🧹 [CharacterSheet] Session reset: %s", sessionID)

	writeJSON(w, http.StatusOK, APIResponse{
		Success:   true,
		SessionID: sessionID,
		Screen:    string(session.ScreenUpload),
	})
}

// rejectOversized - 4 MiB 초과 업로드 거부 응답
func (h *Handler) rejectOversized(w http.ResponseWriter, sessionID string) {
	message := "Image is larger than 4 MiB. Please choose a smaller file."
	h.store.SetError(sessionID, message)
	writeJSON(w, http.StatusRequestEntityTooLarge, APIResponse{
		Success:      false,
		SessionID:    sessionID,
		ErrorMessage: message,
		ErrorCode:    ErrCodeFileTooLarge,
	})
}

// sessionIDFrom - 헤더 또는 쿼리에서 세션 ID 추출
func sessionIDFrom(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Session-ID")); id != "" {
		return id
	}
	return strings.TrimSpace(r.URL.Query().Get("session"))
}

// detectMime - Content-Type 헤더 정리, 없으면 내용으로 추정
func detectMime(headerValue string, data []byte) string {
	mimeType := strings.TrimSpace(headerValue)
	if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return mimeType
}

// writeStateError - 세션/상태 에러를 응답 코드로 변환
func writeStateError(w http.ResponseWriter, sessionID string, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeJSON(w, http.StatusNotFound, APIResponse{
			Success:      false,
			SessionID:    sessionID,
			ErrorMessage: "Session not found",
			ErrorCode:    ErrCodeSessionNotFound,
		})
	case errors.Is(err, session.ErrInputsMissing):
		writeJSON(w, http.StatusBadRequest, APIResponse{
			Success:      false,
			SessionID:    sessionID,
			ErrorMessage: err.Error(),
			ErrorCode:    ErrCodeInvalidRequest,
		})
	case errors.Is(err, session.ErrInvalidState):
		writeJSON(w, http.StatusConflict, APIResponse{
			Success:      false,
			SessionID:    sessionID,
			ErrorMessage: "Action not allowed in the current screen",
			ErrorCode:    ErrCodeInvalidState,
		})
	default:
		writeJSON(w, http.StatusInternalServerError, APIResponse{
			Success:      false,
			SessionID:    sessionID,
			ErrorMessage: "Internal error",
			ErrorCode:    ErrCodeInternalError,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
