package charactersheet

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"character-sheet-server/modules/catalog"
	geminiutil "character-sheet-server/modules/common/gemini"
)

// fakeModels - 모델별로 준비된 응답을 돌려주는 가짜 클라이언트
type fakeModels struct {
	// describeResp / describeErr - 텍스트 모델 호출 응답
	describeResp *genai.GenerateContentResponse
	describeErr  error

	// imageFn - 이미지 모델 호출 처리 (호출 횟수 기반 시나리오)
	imageFn func(call int, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

	describeCalls int
	imageCalls    int
	imagePrompts  []string
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if model == "text-model" {
		f.describeCalls++
		return f.describeResp, f.describeErr
	}

	f.imageCalls++
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.imagePrompts = append(f.imagePrompts, contents[0].Parts[0].Text)
	}
	return f.imageFn(f.imageCalls, contents, config)
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []*genai.Part{{Text: text}},
			},
		}},
	}
}

func imageGenResponse(data []byte) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []*genai.Part{{
					InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: data},
				}},
			},
		}},
	}
}

func testPolicy(slept *[]time.Duration) geminiutil.RetryPolicy {
	return geminiutil.RetryPolicy{
		MaxAttempts: 3,
		Delay:       2 * time.Second,
		Sleep: func(d time.Duration) {
			if slept != nil {
				*slept = append(*slept, d)
			}
		},
	}
}

func testInput() GenerateInput {
	return GenerateInput{
		ImageData: []byte("photo"),
		ImageMime: "image/jpeg",
		Style:     catalog.StyleWatercolor,
		Ratio:     catalog.AspectLandscape,
		Chroma:    catalog.ChromaGreen,
	}
}

func TestGenerateSheetProducesThreeLabeledViews(t *testing.T) {
	fake := &fakeModels{
		describeResp: textResponse("A person with short hair."),
		imageFn: func(call int, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return imageGenResponse([]byte(fmt.Sprintf("img-%d", call))), nil
		},
	}
	svc := NewServiceWith(fake, "text-model", "image-model", testPolicy(nil))

	results, err := svc.GenerateSheet(context.Background(), testInput(), nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// 고정 순서 + "<View Name> (<Style Title>)" 라벨
	assert.Equal(t, "Front View (Watercolor)", results[0].Label)
	assert.Equal(t, "3/4 View (Watercolor)", results[1].Label)
	assert.Equal(t, "Profile View (Watercolor)", results[2].Label)

	for _, r := range results {
		assert.Regexp(t, `^data:image/jpeg;base64,`, r.DataURI)
	}

	assert.Equal(t, 1, fake.describeCalls)
	assert.Equal(t, 3, fake.imageCalls)
}

func TestGenerateSheetPassesAspectRatioAndPrompts(t *testing.T) {
	var configs []*genai.GenerateContentConfig
	fake := &fakeModels{
		describeResp: textResponse("A person with round glasses."),
		imageFn: func(call int, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			configs = append(configs, config)
			return imageGenResponse([]byte("img")), nil
		},
	}
	svc := NewServiceWith(fake, "text-model", "image-model", testPolicy(nil))

	input := testInput()
	input.Ratio = catalog.AspectPortrait

	_, err := svc.GenerateSheet(context.Background(), input, nil)
	require.NoError(t, err)

	require.Len(t, configs, 3)
	for _, cfg := range configs {
		require.NotNil(t, cfg.ImageConfig)
		assert.Equal(t, "9:16", cfg.ImageConfig.AspectRatio)
		assert.Equal(t, []string{"IMAGE"}, cfg.ResponseModalities)
	}

	// 프롬프트마다 해당 뷰의 포즈와 추출된 설명이 들어감
	require.Len(t, fake.imagePrompts, 3)
	for i, view := range catalog.Views {
		assert.Contains(t, fake.imagePrompts[i], view.Pose)
		assert.Contains(t, fake.imagePrompts[i], "A person with round glasses.")
	}
}

func TestGenerateSheetRetriesWithFixedDelay(t *testing.T) {
	var slept []time.Duration
	fake := &fakeModels{
		describeResp: textResponse("desc"),
		imageFn: func(call int, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			// 첫 번째 뷰의 처음 두 시도만 실패
			if call <= 2 {
				return nil, fmt.Errorf("transient")
			}
			return imageGenResponse([]byte("img")), nil
		},
	}
	svc := NewServiceWith(fake, "text-model", "image-model", testPolicy(&slept))

	results, err := svc.GenerateSheet(context.Background(), testInput(), nil)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	// 실패한 시도 뒤에만 2초씩 대기
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, slept)
	// 첫 뷰 3회 + 나머지 두 뷰 각 1회
	assert.Equal(t, 5, fake.imageCalls)
}

func TestGenerateSheetAllOrNothing(t *testing.T) {
	var slept []time.Duration
	fake := &fakeModels{
		describeResp: textResponse("desc"),
		imageFn: func(call int, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			// 처음 두 뷰는 성공, 세 번째 뷰는 계속 실패
			if call <= 2 {
				return imageGenResponse([]byte("img")), nil
			}
			return nil, fmt.Errorf("persistent")
		},
	}
	svc := NewServiceWith(fake, "text-model", "image-model", testPolicy(&slept))

	results, err := svc.GenerateSheet(context.Background(), testInput(), nil)
	require.Error(t, err)
	// 부분 결과는 반환되지 않음
	assert.Nil(t, results)

	var coded *CodedError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, ErrCodeGenerationFailed, coded.Code)
	assert.Contains(t, coded.Message, "Profile View")

	// 세 번째 뷰에서 정확히 3회 시도, 마지막 시도 뒤 대기 없음
	assert.Equal(t, 5, fake.imageCalls)
	assert.Len(t, slept, 2)
}

func TestGenerateSheetProgressCaptions(t *testing.T) {
	fake := &fakeModels{
		describeResp: textResponse("desc"),
		imageFn: func(call int, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			if call == 1 {
				return nil, fmt.Errorf("transient")
			}
			return imageGenResponse([]byte("img")), nil
		},
	}
	svc := NewServiceWith(fake, "text-model", "image-model", testPolicy(nil))

	var captions []string
	_, err := svc.GenerateSheet(context.Background(), testInput(), func(caption string) {
		captions = append(captions, caption)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Analyzing character photo...",
		"Generating Front View (attempt 1/3)...",
		"Generating Front View (attempt 2/3)...",
		"Generating 3/4 View (attempt 1/3)...",
		"Generating Profile View (attempt 1/3)...",
	}, captions)
}

func TestDescribeCharacterBlockedByPromptFeedback(t *testing.T) {
	fake := &fakeModels{
		describeResp: &genai.GenerateContentResponse{
			PromptFeedback: &genai.GenerateContentResponsePromptFeedback{
				BlockReason:        genai.BlockedReasonSafety,
				BlockReasonMessage: "flagged by safety filters",
			},
		},
	}
	svc := NewServiceWith(fake, "text-model", "image-model", testPolicy(nil))

	_, err := svc.DescribeCharacter(context.Background(), []byte("photo"), "image/jpeg")
	require.Error(t, err)

	var coded *CodedError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, ErrCodeContentBlocked, coded.Code)
	assert.Contains(t, coded.Message, "blocked by the content policy")
	assert.Contains(t, coded.Message, "flagged by safety filters")
}

func TestDescribeCharacterBlockedByFinishReason(t *testing.T) {
	fake := &fakeModels{
		describeResp: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				FinishReason: genai.FinishReasonSafety,
				Content:      &genai.Content{Parts: []*genai.Part{}},
			}},
		},
	}
	svc := NewServiceWith(fake, "text-model", "image-model", testPolicy(nil))

	_, err := svc.DescribeCharacter(context.Background(), []byte("photo"), "image/jpeg")
	require.Error(t, err)

	var coded *CodedError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, ErrCodeContentBlocked, coded.Code)
}

func TestDescribeCharacterEmptyResultIsDistinctFromBlocked(t *testing.T) {
	fake := &fakeModels{describeResp: textResponse("   \n  ")}
	svc := NewServiceWith(fake, "text-model", "image-model", testPolicy(nil))

	_, err := svc.DescribeCharacter(context.Background(), []byte("photo"), "image/jpeg")
	require.Error(t, err)

	var coded *CodedError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, ErrCodeEmptyDescription, coded.Code)
	assert.NotContains(t, coded.Message, "content policy")
	assert.Contains(t, coded.Message, "empty result")
}

func TestGenerateSheetStopsWhenDescriptionFails(t *testing.T) {
	fake := &fakeModels{describeErr: fmt.Errorf("network down")}
	svc := NewServiceWith(fake, "text-model", "image-model", testPolicy(nil))

	_, err := svc.GenerateSheet(context.Background(), testInput(), nil)
	require.Error(t, err)

	// 설명 실패 시 이미지 생성은 시작조차 하지 않음
	assert.Equal(t, 0, fake.imageCalls)
}
