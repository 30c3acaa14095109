// Package model はドメインモデルを定義する。
package model

import "time"

// CycleLengthDays は次回生理予定日の算出に用いる周期日数。
const CycleLengthDays = 28

// User はボットと会話するユーザー（送信元アイデンティティ）を表す。
// 初回メッセージ受信時に作成され、システム自身が削除することはない。
type User struct {
	JID           string // トランスポート上の安定したアドレス（一意）
	DisplayName   string
	Language      string // 空の場合はデフォルト言語
	FirstSeen     time.Time
	LastSeen      time.Time
	LastPeriod    *time.Time // 直近の生理開始日（未登録はnil）
	NextPeriod    *time.Time // 次回予定日（LastPeriod + 28日）
	WantsReminder bool
}

// PredictNextPeriod は直近の生理開始日から次回予定日を算出する。
func PredictNextPeriod(last time.Time) time.Time {
	return last.AddDate(0, 0, CycleLengthDays)
}

// Symptom は症状ログの1件を表す。追記のみで更新・削除はしない。
type Symptom struct {
	ID       string
	JID      string
	Text     string
	LoggedAt time.Time
}

// Feedback はフィードバックフロー1回分の回答を表す。
type Feedback struct {
	ID        string
	JID       string
	Response1 string // "1" または "2"
	Response2 string // 自由記述
	CreatedAt time.Time
}

// Order は注文フローで受け付けた注文を表す。
type Order struct {
	ID             string
	JID            string
	Quantity       int
	VendorNotified bool
	CreatedAt      time.Time
}

// EventLog はプロセスのライフサイクルイベント（シャットダウン等）の記録を表す。
type EventLog struct {
	ID        string
	Kind      string
	Detail    string
	CreatedAt time.Time
}
