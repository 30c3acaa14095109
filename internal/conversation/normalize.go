package conversation

import (
	"regexp"
	"strings"
)

// Normalize は入力を照合用のキーに変換する。
// 前後の空白を除去して小文字化し、[a-z0-9]以外の文字をすべて取り除く。
func Normalize(raw string) string {
	lower := strings.ToLower(strings.TrimSpace(raw))
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var greetingPattern = regexp.MustCompile(`(?i)^(hi|hello|hey|yo|good\s*(morning|afternoon|evening))\b`)

// IsGreeting は生の入力が挨拶で始まるかを判定する。
// 単語境界で判定するため "hiking" や "you" は挨拶として扱わない。
func IsGreeting(raw string) bool {
	return greetingPattern.MatchString(strings.TrimSpace(raw))
}

// IsInterrupt は会話をリセットしてメニューを表示すべき入力かを判定する。
// どのステップにいても優先される。
func IsInterrupt(raw, key string) bool {
	return IsGreeting(raw) || key == "menu" || key == "back"
}
