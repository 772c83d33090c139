package charactersheet

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"

	"character-sheet-server/modules/catalog"
	"character-sheet-server/modules/common/config"
	geminiutil "character-sheet-server/modules/common/gemini"
	"character-sheet-server/modules/session"
)

// generateContentClient - Gemini 호출 추상화 (*genai.Models가 구현)
// 테스트에서 가짜 서비스로 교체하기 위한 인터페이스
type generateContentClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Service - 캐릭터 시트 생성 워크플로우 오케스트레이터
// 설명 추출 → 뷰별 생성(재시도) → 집계. 뷰 하나라도 실패하면 전체 실패 (부분 결과 없음).
type Service struct {
	models     generateContentClient
	textModel  string
	imageModel string
	retry      geminiutil.RetryPolicy
}

// NewService - 설정 기반 서비스 생성
func NewService() *Service {
	cfg := config.GetConfig()

	ctx := context.Background()
	client, err := geminiutil.NewClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		log.Printf("❌ [CharacterSheet] Failed to create Gemini client: %v", err)
		return nil
	}

	log.Println("✅ [CharacterSheet] Service initialized")
	return &Service{
		models:     client.Models,
		textModel:  cfg.GeminiTextModel,
		imageModel: cfg.GeminiImageModel,
		retry:      geminiutil.DefaultRetryPolicy(),
	}
}

// NewServiceWith - 의존성 주입 생성자 (테스트용)
func NewServiceWith(models generateContentClient, textModel, imageModel string, retry geminiutil.RetryPolicy) *Service {
	return &Service{
		models:     models,
		textModel:  textModel,
		imageModel: imageModel,
		retry:      retry,
	}
}

// GenerateInput - 워크플로우 입력 (세션에서 추출한 스냅샷)
type GenerateInput struct {
	ImageData []byte
	ImageMime string
	Style     catalog.Style
	Ratio     catalog.AspectRatio
	Chroma    catalog.Chroma
}

// GenerateSheet - 3뷰 캐릭터 시트 생성 워크플로우 실행
// progress는 표시용 캡션 콜백 (nil 허용). 성공 시 정확히 뷰 순서대로 3개 결과 반환.
func (s *Service) GenerateSheet(ctx context.Context, input GenerateInput, progress func(caption string)) ([]session.GeneratedResult, error) {
	notify := func(caption string) {
		if progress != nil {
			progress(caption)
		}
	}

	// Step 1: 캐릭터 설명 추출
	notify("Analyzing character photo...")
	description, err := s.DescribeCharacter(ctx, input.ImageData, input.ImageMime)
	if err != nil {
		return nil, err
	}
	log.Printf("✅ [CharacterSheet] Description extracted: %d chars", len(description))

	// Step 2: 뷰별 이미지 생성 (고정 순서, 순차)
	results := make([]session.GeneratedResult, 0, len(catalog.Views))
	for _, view := range catalog.Views {
		log.Printf("🎨 [CharacterSheet] Generating %s...", view.Name)

		prompt := BuildViewPrompt(input.Style, view, description, input.Chroma)

		policy := s.retry
		policy.OnAttempt = func(attempt, maxAttempts int) {
			notify(fmt.Sprintf("Generating %s (attempt %d/%d)...", view.Name, attempt, maxAttempts))
		}

		data, mimeType, err := policy.GenerateImageWithRetry(ctx, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
			return s.models.GenerateContent(
				ctx,
				s.imageModel,
				[]*genai.Content{{Parts: []*genai.Part{genai.NewPartFromText(prompt)}}},
				&genai.GenerateContentConfig{
					CandidateCount:     1,
					ResponseModalities: []string{"IMAGE"},
					ImageConfig: &genai.ImageConfig{
						AspectRatio: string(input.Ratio),
					},
				},
			)
		})
		if err != nil {
			// 뷰 하나 실패 = 전체 워크플로우 실패, 지금까지의 결과는 버림
			return nil, &CodedError{
				Code:    ErrCodeGenerationFailed,
				Message: fmt.Sprintf("Failed to generate %s: %v", view.Name, err),
			}
		}

		if mimeType == "" {
			mimeType = "image/jpeg"
		}

		results = append(results, session.GeneratedResult{
			DataURI: fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)),
			Label:   fmt.Sprintf("%s (%s)", view.Name, input.Style.Title()),
		})
		log.Printf("✅ [CharacterSheet] %s generated: %d bytes", view.Name, len(data))
	}

	// Step 3: 집계 완료
	return results, nil
}

// DescribeCharacter - 원본 사진에서 캐릭터 설명 텍스트 추출
// 세 가지 결과를 구분: 정상 텍스트 / 콘텐츠 차단(사유 포함) / 빈 응답
func (s *Service) DescribeCharacter(ctx context.Context, imageData []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	resp, err := s.models.GenerateContent(
		ctx,
		s.textModel,
		[]*genai.Content{{Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: imageData}},
			genai.NewPartFromText(DescribeInstruction),
		}}},
		&genai.GenerateContentConfig{
			Temperature: floatPtr(0.2),
		},
	)
	if err != nil {
		return "", fmt.Errorf("description request failed: %w", err)
	}

	// 명시적 콘텐츠 차단 확인 (빈 응답과는 다른 에러로 구분)
	if reason := blockReason(resp); reason != "" {
		return "", &CodedError{
			Code:    ErrCodeContentBlocked,
			Message: fmt.Sprintf("The photo description was blocked by the content policy: %s", reason),
		}
	}

	text := strings.TrimSpace(geminiutil.CollectText(resp))
	if text == "" {
		return "", &CodedError{
			Code:    ErrCodeEmptyDescription,
			Message: "The description service returned an empty result. Please try a different photo.",
		}
	}

	return text, nil
}

// blockReason - 응답이 명시적으로 차단됐는지 확인하고 사유 반환
func blockReason(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		if resp.PromptFeedback.BlockReasonMessage != "" {
			return resp.PromptFeedback.BlockReasonMessage
		}
		return string(resp.PromptFeedback.BlockReason)
	}
	for _, candidate := range resp.Candidates {
		switch candidate.FinishReason {
		case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonBlocklist:
			return string(candidate.FinishReason)
		}
	}
	return ""
}

func floatPtr(f float64) *float32 {
	f32 := float32(f)
	return &f32
}
