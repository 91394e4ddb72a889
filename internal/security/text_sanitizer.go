package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService は外部APIから受け取った表示用テキストを無害化するインターフェース。
type TextSanitizerService interface {
	// SanitizeText はHTMLタグを全て除去したプレーンテキストを返す。
	SanitizeText(raw string) string
}

// textSanitizer はbluemondayのStrictPolicyでタグを除去する。
// ポリシーはスレッドセーフに共有できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// SanitizeText はタグを除去し、エスケープされた実体参照を元の文字に戻す。
// "Rock & Roll" のような名前はそのまま残る。
func (s *textSanitizer) SanitizeText(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}
