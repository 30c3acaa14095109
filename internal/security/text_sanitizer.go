// Package security はユーザー入力と外部コンテンツの安全化を提供する。
package security

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// DefaultMaxTextLength は保存する自由記述テキストの最大文字数。
const DefaultMaxTextLength = 500

// TextSanitizer は自由記述テキストを保存前にプレーンテキスト化するインターフェース。
type TextSanitizer interface {
	// Clean はHTMLタグを除去し、空白を整えたプレーンテキストを返す。
	// 改行は保持し、連続する空行は1行にまとめる。最大文字数を超える部分は切り詰める。同一入力に対して常に同一出力を返す。
	Clean(raw string) string
}

// textSanitizer はbluemondayのStrictPolicyを使うTextSanitizerの実装。
type textSanitizer struct {
	policy *bluemonday.Policy
	maxLen int
}

// NewTextSanitizer はTextSanitizerを生成する。maxLenが0以下の場合はDefaultMaxTextLength。
func NewTextSanitizer(maxLen int) TextSanitizer {
	if maxLen <= 0 {
		maxLen = DefaultMaxTextLength
	}
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
		maxLen: maxLen,
	}
}

// Clean はテキストをサニタイズする。
// StrictPolicyはエンティティをエスケープするため、最後にアンエスケープして元の記号に戻す。
func (s *textSanitizer) Clean(raw string) string {
	stripped := html.UnescapeString(s.policy.Sanitize(raw))
	stripped = strings.ReplaceAll(stripped, "\r\n", "\n")

	lines := make([]string, 0, strings.Count(stripped, "\n")+1)
	for _, line := range strings.Split(stripped, "\n") {
		// 行内の空白のみ1つにまとめる
		line = strings.Join(strings.Fields(line), " ")
		if line == "" && (len(lines) == 0 || lines[len(lines)-1] == "") {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	cleaned := strings.Join(lines, "\n")

	if utf8.RuneCountInString(cleaned) > s.maxLen {
		runes := []rune(cleaned)
		cleaned = string(runes[:s.maxLen])
	}
	return cleaned
}

// compile-time interface check
var _ TextSanitizer = (*textSanitizer)(nil)
