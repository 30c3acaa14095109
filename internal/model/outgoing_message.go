package model

import "time"

// OutgoingMessage は送信キューに投入されたメッセージを表す。
// 外部のプロデューサーがINSERTし、アウトボックスワーカーが消費する。
// IDはトランスポートに渡す冪等キーを兼ねる。
type OutgoingMessage struct {
	ID           string
	Recipient    string
	Body         string
	Sent         bool
	SentAt       *time.Time
	Attempts     int
	LastError    string
	AttemptingAt *time.Time // 送信試行中のマーク（送信前に設定する）
	CreatedAt    time.Time
}
