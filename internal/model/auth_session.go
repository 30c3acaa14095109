package model

import "time"

// DefaultAuthSessionID はトランスポート認証セッションの論理ID。
const DefaultAuthSessionID = "default"

// AuthSession はトランスポートが発行した不透明な認証情報（資格情報ブロブ）を表す。
// リモート層では論理IDごとに高々1行のみ存在する（UPSERTで保存する）。
type AuthSession struct {
	ID          string
	SessionData []byte
	UpdatedAt   time.Time
}
