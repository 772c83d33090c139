package catalog

import (
	"fmt"
	"strings"
)

// Style - 비주얼 스타일 키 (닫힌 집합)
type Style string

const (
	StyleWatercolor Style = "watercolor"
	StyleComicBook  Style = "comic-book"
	StyleAnime      Style = "anime"
	StylePixelArt   Style = "pixel-art"
	StyleLowPoly    Style = "low-poly-3d"
	StyleFilmNoir   Style = "film-noir"
)

// stylePrompts - 스타일별 상세 프롬프트 (프로세스 시작 시 고정, 변경 불가)
var stylePrompts = map[Style]string{
	StyleWatercolor: "Traditional watercolor painting style with soft translucent washes of pigment, " +
		"visible paper texture, gentle color bleeding at the edges, loose expressive brushwork, " +
		"and a light, airy palette. Edges should stay soft and organic, never hard vector lines.",
	StyleComicBook: "Bold western comic book style with heavy black ink outlines, dynamic cross-hatching " +
		"for shadows, flat saturated colors, halftone dot shading, and dramatic high-contrast lighting " +
		"reminiscent of classic superhero comics.",
	StyleAnime: "Clean Japanese anime style with crisp cel shading, large expressive eyes, smooth gradient " +
		"hair highlights, thin precise line art, and a vibrant but harmonious color palette in the manner " +
		"of a modern animation production still.",
	StylePixelArt: "Retro pixel art style at a readable sprite resolution with a limited 32-color palette, " +
		"deliberate dithering for gradients, crisp 1-pixel outlines, and no anti-aliasing, evoking " +
		"16-bit era video game character portraits.",
	StyleLowPoly: "Stylized low-poly 3D render with visible flat-shaded triangular facets, simple matte " +
		"materials, soft studio lighting, and clean geometric silhouettes, like a modern indie game " +
		"character model turntable render.",
	StyleFilmNoir: "Moody black-and-white film noir style with hard chiaroscuro lighting, deep shadows " +
		"cutting across the face, subtle film grain, venetian-blind light patterns, and a 1940s " +
		"detective cinema atmosphere.",
}

// Styles - 스타일 목록 (고정 순서)
var Styles = []Style{
	StyleWatercolor,
	StyleComicBook,
	StyleAnime,
	StylePixelArt,
	StyleLowPoly,
	StyleFilmNoir,
}

// ParseStyle - 스타일 키 검증
func ParseStyle(key string) (Style, error) {
	s := Style(key)
	if _, ok := stylePrompts[s]; !ok {
		return "", fmt.Errorf("unknown style: %q", key)
	}
	return s, nil
}

// Prompt - 스타일 상세 프롬프트 반환
func (s Style) Prompt() string {
	return stylePrompts[s]
}

// Title - 스타일 키를 표시용 이름으로 변환
// 구분자(-, _)를 공백으로 바꾸고 각 단어 첫 글자를 대문자로
func (s Style) Title() string {
	words := strings.FieldsFunc(string(s), func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// View - 캐릭터 시트의 고정 카메라 앵글
type View struct {
	Key  string
	Name string
	Pose string
}

// Views - 3개 고정 뷰 (생성 순서 고정)
var Views = []View{
	{
		Key:  "front",
		Name: "Front View",
		Pose: "The character faces the camera directly, head-on, with both eyes visible and the face perfectly symmetrical in the frame.",
	},
	{
		Key:  "three-quarter",
		Name: "3/4 View",
		Pose: "The character's head is turned 45 degrees to their left, showing a classic three-quarter angle with both eyes still visible but the far side of the face foreshortened.",
	},
	{
		Key:  "profile",
		Name: "Profile View",
		Pose: "The character's head is turned 90 degrees to their left, showing a strict side profile with only one eye visible and the nose silhouette clearly defined.",
	},
}

// Chroma - 크로마키 배경색 키 (닫힌 집합)
type Chroma string

const (
	ChromaGreen   Chroma = "green"
	ChromaBlue    Chroma = "blue"
	ChromaMagenta Chroma = "magenta"
)

// chromaHex - 배경색 hex 값 (키잉용 정확한 단색)
var chromaHex = map[Chroma]string{
	ChromaGreen:   "#00ff00",
	ChromaBlue:    "#0000ff",
	ChromaMagenta: "#ff00ff",
}

// Chromas - 배경색 목록 (고정 순서)
var Chromas = []Chroma{ChromaGreen, ChromaBlue, ChromaMagenta}

// ParseChroma - 배경색 키 검증
func ParseChroma(key string) (Chroma, error) {
	c := Chroma(key)
	if _, ok := chromaHex[c]; !ok {
		return "", fmt.Errorf("unknown chroma color: %q", key)
	}
	return c, nil
}

// Hex - 배경색 hex 값 반환
func (c Chroma) Hex() string {
	return chromaHex[c]
}

// BackgroundDirective - 배경 지시문 생성 (정확한 색상값 포함)
func (c Chroma) BackgroundDirective() string {
	return fmt.Sprintf("The background must be a single, completely flat, uniform %s chroma key color, "+
		"exactly hex %s, with no gradient, no texture, no shadows and no vignetting, "+
		"so the background can be keyed out cleanly.", string(c), c.Hex())
}

// AspectRatio - 지원하는 출력 비율
type AspectRatio string

const (
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
)

// AspectRatios - 비율 목록
var AspectRatios = []AspectRatio{AspectLandscape, AspectPortrait}

// ParseAspectRatio - 비율 값 검증
func ParseAspectRatio(value string) (AspectRatio, error) {
	switch AspectRatio(value) {
	case AspectLandscape, AspectPortrait:
		return AspectRatio(value), nil
	}
	return "", fmt.Errorf("unsupported aspect ratio: %q", value)
}
