package gemini

import (
	"context"
	"fmt"
	"log"
	"time"

	"google.golang.org/genai"
)

// GenerateFunc - 한 번의 이미지 생성 호출
type GenerateFunc func(ctx context.Context) (*genai.GenerateContentResponse, error)

// RetryPolicy - 이미지 생성 재시도 정책
// 시도 성공 조건: 응답에 비어있지 않은 이미지가 최소 1개 존재
// 그 외 (에러, 빈 응답)는 모두 시도 실패로 취급
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration

	// Sleep - 테스트에서 대기를 가로채기 위한 훅 (nil이면 time.Sleep)
	Sleep func(time.Duration)

	// OnAttempt - 매 시도 직전에 호출 (진행 상황 표시용)
	OnAttempt func(attempt, maxAttempts int)
}

// DefaultRetryPolicy - 기본 정책: 3회 시도, 실패 간 2초 대기
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Delay:       2 * time.Second,
	}
}

// GenerateImageWithRetry - 정책에 따라 이미지 생성을 재시도
// 마지막 시도 이후에는 대기하지 않음. 모든 시도 실패 시 마지막 에러를 포함해 반환.
func (p RetryPolicy) GenerateImageWithRetry(ctx context.Context, generate GenerateFunc) ([]byte, string, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if p.OnAttempt != nil {
			p.OnAttempt(attempt, maxAttempts)
		}
		if attempt > 1 {
			log.Printf("   🔄 Retry attempt %d/%d", attempt, maxAttempts)
		}

		resp, err := generate(ctx)
		if err != nil {
			lastErr = err
			log.Printf("⚠️  [Gemini Retry] Attempt %d/%d failed: %v", attempt, maxAttempts, err)
		} else if data, mimeType := FirstInlineImage(resp); len(data) > 0 {
			if attempt > 1 {
				log.Printf("✅ [Gemini Retry] Success on attempt %d/%d", attempt, maxAttempts)
			}
			return data, mimeType, nil
		} else {
			lastErr = fmt.Errorf("no image in API response")
			log.Printf("⚠️  [Gemini Retry] Attempt %d/%d returned no image", attempt, maxAttempts)
		}

		// 마지막 시도가 아니면 대기 후 재시도
		if attempt < maxAttempts {
			log.Printf("   ⏳ Waiting %v before retry...", p.Delay)
			sleep(p.Delay)
		}
	}

	return nil, "", fmt.Errorf("all %d attempts exhausted: %w", maxAttempts, lastErr)
}
