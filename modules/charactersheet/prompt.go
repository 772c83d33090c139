package charactersheet

import (
	"fmt"

	"character-sheet-server/modules/catalog"
)

// DescribeInstruction - 캐릭터 사진 분석용 고정 지시문
// 객관적 묘사만, 머리/얼굴 한정, 150단어 이내, 서문 금지
const DescribeInstruction = `You are an objective visual analyst. Describe the physical appearance of the person's head and face in this photo.

RULES:
- Describe ONLY the head and face: face shape, skin tone, eyes, eyebrows, nose, mouth, hair style and color, facial hair, and any visible accessories on the head.
- Be strictly objective and factual. No opinions, no guesses about personality, age beyond an approximate range, or emotions.
- Maximum 150 words.
- Output the description directly with no preamble, no headings and no closing remarks.`

// BuildViewPrompt - 뷰 하나에 대한 이미지 생성 프롬프트 합성
// 번호가 매겨진 지시문 세트. 순서와 섹션 의미는 고정이며 1번(프레이밍)이 가장 중요한 규칙.
func BuildViewPrompt(style catalog.Style, view catalog.View, description string, chroma catalog.Chroma) string {
	return fmt.Sprintf(`Generate a single character concept art image by following these numbered instructions in order.

1. FRAMING (MOST CRITICAL RULE): The image must be a close-up headshot. Frame the character from the top of the head to just below the shoulders. Do not show the full body, hands, or anything below the chest.

2. POSE: %s

3. ART STYLE: %s

4. CHARACTER: The character to draw is described as follows: %s

5. BACKGROUND: %s

6. LIGHTING: Use neutral, even studio lighting with no dramatic shadows, no colored rim light and no lens effects.

7. SUBJECT COUNT: The image must contain exactly one subject. No duplicates, no reflections, no additional people or creatures.`,
		view.Pose,
		style.Prompt(),
		description,
		chroma.BackgroundDirective(),
	)
}
