package conversation

// MenuItem はメインメニューの項目。
type MenuItem int

// メインメニュー項目一覧。
const (
	MenuNone MenuItem = iota
	MenuTrackPeriod
	MenuLogSymptoms
	MenuLearn
	MenuOrder
	MenuViewCycle
	MenuViewSymptoms
	MenuChangeLanguage
	MenuFeedback
)

// menuPhrases は各項目の正規化済みフレーズ。
var menuPhrases = map[MenuItem]string{
	MenuTrackPeriod:    "trackmyperiod",
	MenuLogSymptoms:    "logsymptoms",
	MenuLearn:          "learnaboutsexualhealth",
	MenuOrder:          "ordervenillepads",
	MenuViewCycle:      "viewmycycle",
	MenuViewSymptoms:   "viewmysymptoms",
	MenuChangeLanguage: "changelanguage",
	MenuFeedback:       "givefeedback",
}

// MatchMenu は正規化済みキーをメニュー項目に変換する。
// 番号（"1"、"1."、"1)" は正規化で同じキーになる）またはフレーズで一致する。
func MatchMenu(key string) MenuItem {
	if n, ok := matchNumber(key, int(MenuFeedback)); ok {
		return MenuItem(n)
	}
	for item, phrase := range menuPhrases {
		if key == phrase {
			return item
		}
	}
	return MenuNone
}

// matchNumber は正規化済みキーが1桁の番号1〜maxに一致する場合にその番号を返す。
func matchNumber(key string, max int) (int, bool) {
	if len(key) != 1 {
		return 0, false
	}
	n := int(key[0] - '0')
	if n < 1 || n > max {
		return 0, false
	}
	return n, true
}
