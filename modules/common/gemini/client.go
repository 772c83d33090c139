package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// NewClient - Gemini API 클라이언트 생성
// API 키는 프로세스 시작 시 한 번만 읽음. 키 유효성은 실제 호출 시점에 확인됨.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return client, nil
}

// FirstInlineImage - 응답에서 첫 번째 이미지 데이터 추출
// 이미지가 없으면 nil 반환
func FirstInlineImage(resp *genai.GenerateContentResponse) (data []byte, mimeType string) {
	if resp == nil {
		return nil, ""
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, part.InlineData.MIMEType
			}
		}
	}
	return nil, ""
}

// CollectText - 응답의 텍스트 파트를 모두 이어붙여 반환
func CollectText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var out string
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				out += part.Text
			}
		}
	}
	return out
}
