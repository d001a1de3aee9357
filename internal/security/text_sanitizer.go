package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は利用者の入力や外部APIから受け取った文字列からマークアップを取り除く。
// 検索キーワードや選手名・チーム名など、プレーンテキストとして扱う値に使用する。
type TextSanitizer interface {
	// Sanitize は全てのタグを除去し、前後の空白を取り除いたテキストを返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はStrictPolicyを使ったTextSanitizerを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// maxSanitizePasses は実体参照の入れ子を展開する回数の上限。
const maxSanitizePasses = 8

// Sanitize はタグを除去したプレーンテキストを返す。
// bluemondayがエスケープした実体参照は元の文字に戻す。出力時のエスケープはhtml/templateが行う。
// 戻した文字列が新たにタグを含む場合（例: "&lt;b&gt;"）があるため、結果が変わらなくなるまで繰り返す。
func (s *textSanitizer) Sanitize(raw string) string {
	text := strings.TrimSpace(raw)
	for i := 0; i < maxSanitizePasses && text != ""; i++ {
		next := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
		if next == text {
			break
		}
		text = next
	}
	return text
}
