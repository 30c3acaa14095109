// Package i18n はユーザー向けメッセージの多言語カタログを提供する。
// 言語は表示名（"English", "Hausa"）で識別する。
package i18n

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultLanguage はユーザーの言語が未設定または未知の場合に使用する言語。
const DefaultLanguage = "English"

// Key はメッセージテンプレートの識別子。
type Key string

// メッセージキー一覧。
const (
	Menu                 Key = "menu"
	Fallback             Key = "fallback"
	TrackPrompt          Key = "trackPrompt"
	LangPrompt           Key = "langPrompt"
	SavedSymptom         Key = "savedSymptom"
	AskReminder          Key = "askReminder"
	ReminderYes          Key = "reminderYes"
	ReminderNo           Key = "reminderNo"
	PeriodReminder       Key = "periodReminder"
	InvalidDate          Key = "invalidDate"
	NotValidDate         Key = "notValidDate"
	SymptomsDone         Key = "symptomsDone"
	SymptomsCancel       Key = "symptomsCancel"
	SymptomsNothingSaved Key = "symptomsNothingSaved"
	SymptomPrompt        Key = "symptomPrompt"
	EduTopics            Key = "eduTopics"
	EduReadMore          Key = "eduReadMore"
	LanguageSet          Key = "languageSet"
	NoPeriod             Key = "noPeriod"
	CycleInfo            Key = "cycleInfo"
	NoSymptoms           Key = "noSymptoms"
	SymptomsHistory      Key = "symptomsHistory"
	FeedbackQ1           Key = "feedbackQ1"
	FeedbackQ2           Key = "feedbackQ2"
	FeedbackThanks       Key = "feedbackThanks"
	OrderQuantityPrompt  Key = "orderQuantityPrompt"
	OrderQuantityInvalid Key = "orderQuantityInvalid"
	OrderConfirmation    Key = "orderConfirmation"
	OrderVendorMessage   Key = "orderVendorMessage"
)

// EduTopic は教育トピックのメッセージキーを返す（n は1〜5）。
func EduTopic(n int) Key {
	return Key("eduTopic" + strconv.Itoa(n))
}

// Catalog は言語ごとのメッセージテンプレート集合。
type Catalog struct {
	languages map[string]map[Key]string
	// affirmatives は言語ごとの肯定応答の先頭文字列。
	affirmatives map[string][]string
	order        []string
}

// Default は組み込みの英語・ハウサ語カタログを返す。
func Default() *Catalog {
	return &Catalog{
		languages: map[string]map[Key]string{
			"English": english,
			"Hausa":   hausa,
		},
		affirmatives: map[string][]string{
			"English": {"y"},
			"Hausa":   {"e", "y"},
		},
		order: []string{"English", "Hausa"},
	}
}

// Languages はサポートする言語名を定義順に返す。
func (c *Catalog) Languages() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Resolve は入力に対して大文字小文字を区別しない前方一致でサポート言語を探す。
// 一致しない場合は入力をそのまま返す（未知の言語は既定言語にフォールバックして表示される）。
func (c *Catalog) Resolve(input string) string {
	lower := strings.ToLower(input)
	for _, lang := range c.order {
		if strings.HasPrefix(strings.ToLower(lang), lower) {
			return lang
		}
	}
	return input
}

// Text はlangのテンプレートを取得し、引数で{n}を置換した文字列を返す。
// lang → 既定言語 → 空文字列 の順にフォールバックする。
func (c *Catalog) Text(lang string, key Key, args ...any) string {
	tmpl, ok := c.languages[lang][key]
	if !ok || tmpl == "" {
		tmpl = c.languages[DefaultLanguage][key]
	}
	return Format(tmpl, args...)
}

// IsAffirmative は正規化済みの入力がlangの肯定応答で始まるかを判定する。
// 言語固有の定義がない場合は既定言語の定義を使う。
func (c *Catalog) IsAffirmative(lang, normalized string) bool {
	markers, ok := c.affirmatives[lang]
	if !ok {
		markers = c.affirmatives[DefaultLanguage]
	}
	for _, m := range markers {
		if strings.HasPrefix(normalized, m) {
			return true
		}
	}
	return false
}

var placeholder = regexp.MustCompile(`\{(\d+)\}`)

// Format はtmpl中の{n}をargs[n]の文字列表現で置換する。
// 対応する引数がないプレースホルダはそのまま残す。
func Format(tmpl string, args ...any) string {
	if len(args) == 0 {
		return tmpl
	}
	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		i, err := strconv.Atoi(m[1 : len(m)-1])
		if err != nil || i >= len(args) {
			return m
		}
		return toString(args[i])
	})
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
