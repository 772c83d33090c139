package charactersheet

// MaxUploadBytes - 업로드 파일 크기 상한 (4 MiB)
// 초과 시 네트워크 호출 전에 거부됨
const MaxUploadBytes = 4 << 20

// Error codes
const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeFileTooLarge     = "FILE_TOO_LARGE"
	ErrCodeInvalidState     = "INVALID_STATE"
	ErrCodeSessionNotFound  = "SESSION_NOT_FOUND"
	ErrCodeContentBlocked   = "CONTENT_BLOCKED"
	ErrCodeEmptyDescription = "EMPTY_DESCRIPTION"
	ErrCodeGenerationFailed = "GENERATION_FAILED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// CodedError - 에러 코드가 붙은 워크플로우 에러
// 화면에 그대로 표시되는 메시지를 담음
type CodedError struct {
	Code    string
	Message string
}

func (e *CodedError) Error() string {
	return e.Message
}

// APIResponse - 공통 응답 형식
type APIResponse struct {
	Success      bool   `json:"success"`
	SessionID    string `json:"sessionId,omitempty"`
	Screen       string `json:"screen,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	ErrorCode    string `json:"errorCode,omitempty"`
}

// SelectRequest - 스타일/비율/배경색 선택 요청
type SelectRequest struct {
	Style       string `json:"style,omitempty"`
	AspectRatio string `json:"aspectRatio,omitempty"`
	Chroma      string `json:"chroma,omitempty"`
}

// ResultItem - 상태 조회 응답의 생성 결과 항목
type ResultItem struct {
	Label   string `json:"label"`
	DataURI string `json:"dataUri"`
}

// StateResponse - 세션 상태 조회 응답
type StateResponse struct {
	Success         bool         `json:"success"`
	SessionID       string       `json:"sessionId"`
	Screen          string       `json:"screen"`
	Style           string       `json:"style,omitempty"`
	AspectRatio     string       `json:"aspectRatio,omitempty"`
	Chroma          string       `json:"chroma,omitempty"`
	HasImage        bool         `json:"hasImage"`
	Ready           bool         `json:"ready"`
	ProgressCaption string       `json:"progressCaption,omitempty"`
	ErrorMessage    string       `json:"errorMessage,omitempty"`
	Results         []ResultItem `json:"results,omitempty"`
}
