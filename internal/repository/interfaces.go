// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/venille/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByJID は指定JIDのユーザーを取得する。見つからない場合はnilを返す。
	FindByJID(ctx context.Context, jid string) (*model.User, error)

	// Touch はユーザーをUPSERTする（初回はINSERT、以降は表示名とlast_seenを更新）。
	Touch(ctx context.Context, jid, displayName string) error

	// UpdateLanguage は優先言語を更新する。
	UpdateLanguage(ctx context.Context, jid, language string) error

	// UpdatePeriod は直近の生理開始日と次回予定日を更新する。
	UpdatePeriod(ctx context.Context, jid string, last, next time.Time) error

	// UpdateReminder はリマインダー希望フラグを更新する。
	UpdateReminder(ctx context.Context, jid string, wants bool) error

	// ListReminderCandidates はリマインダー希望かつ次回予定日が設定済みのユーザーを取得する。
	ListReminderCandidates(ctx context.Context) ([]*model.User, error)
}

// SymptomRepository は症状ログの永続化インターフェース。追記のみ。
type SymptomRepository interface {
	// Add は症状を1件追記する。
	Add(ctx context.Context, jid, text string) error

	// ListRecent は指定ユーザーの症状をlogged_at降順で最大limit件取得する。
	ListRecent(ctx context.Context, jid string, limit int) ([]*model.Symptom, error)
}

// FeedbackRepository はフィードバックの永続化インターフェース。
type FeedbackRepository interface {
	// Create はフィードバック回答を保存する。
	Create(ctx context.Context, feedback *model.Feedback) error
}

// OrderRepository は注文の永続化インターフェース。
type OrderRepository interface {
	// Create は注文を保存する。
	Create(ctx context.Context, order *model.Order) error
}

// OutgoingMessageRepository は送信キューの永続化インターフェース。
type OutgoingMessageRepository interface {
	// Enqueue は送信キューにメッセージを追加する。
	Enqueue(ctx context.Context, recipient, body string) (*model.OutgoingMessage, error)

	// ClaimPending は未送信かつ試行中でないメッセージを最大limit件取得し、
	// 同一トランザクションでattempting_atを設定する（送信前マーク）。
	// attemptsがmaxAttempts以上のメッセージは対象外とする。
	// FOR UPDATE SKIP LOCKEDで排他的に取得する。
	ClaimPending(ctx context.Context, limit, maxAttempts int) ([]*model.OutgoingMessage, error)

	// MarkSent は送信成功を記録する。
	MarkSent(ctx context.Context, id string, sentAt time.Time) error

	// MarkFailed は送信失敗を記録する。attemptsをインクリメントし、
	// エラーを保存してattempting_atをクリアする（次回サイクルで再試行される）。
	MarkFailed(ctx context.Context, id string, reason string) error

	// CountPending は未送信メッセージの件数を返す。
	CountPending(ctx context.Context) (int, error)
}

// AuthSessionRepository はトランスポート認証セッション（リモート層）の永続化インターフェース。
type AuthSessionRepository interface {
	// EnsureTable はテーブルを作成する。既に存在する場合もエラーにしない。
	EnsureTable(ctx context.Context) error

	// Find は指定論理IDのセッションを取得する。見つからない場合はnilを返す。
	Find(ctx context.Context, id string) (*model.AuthSession, error)

	// Upsert は論理IDをキーにセッションをUPSERTする。
	Upsert(ctx context.Context, session *model.AuthSession) error

	// Delete は指定論理IDのセッションを削除する。
	Delete(ctx context.Context, id string) error
}

// EventLogRepository はライフサイクルイベントの永続化インターフェース。
type EventLogRepository interface {
	// Create はイベントを記録する。
	Create(ctx context.Context, kind, detail string) error
}
