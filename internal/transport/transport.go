// Package transport はメッセージングクライアント（ブラウザ自動化サイドカー）との接続を抽象化する。
package transport

import "context"

// EventKind はトランスポートイベントの種別。
type EventKind string

// イベント種別一覧。
const (
	EventCredential    EventKind = "qr"
	EventAuthenticated EventKind = "authenticated"
	EventReady         EventKind = "ready"
	EventMessage       EventKind = "message"
	EventDisconnected  EventKind = "disconnected"
	EventAuthFailure   EventKind = "auth_failure"
	EventError         EventKind = "error"
)

// 切断理由のうち、再接続してはならないもの。
const (
	ReasonLogout   = "LOGOUT"
	ReasonUnpaired = "UNPAIRED"
)

// InboundMessage は受信メッセージ。
type InboundMessage struct {
	From string
	Body string
	Name string
}

// OutboundMessage は送信メッセージ。IDは冪等キーとしてサイドカーに渡される。
type OutboundMessage struct {
	ID   string
	To   string
	Text string
}

// Event はトランスポートから通知されるイベント。
// Kindに応じて使用されるフィールドが異なる。
type Event struct {
	Kind    EventKind
	Code    string          // EventCredential
	Blob    []byte          // EventAuthenticated
	Message *InboundMessage // EventMessage
	Reason  string          // EventDisconnected
	Err     string          // EventError, EventAuthFailure
}

// Client はトランスポートクライアントのインターフェース。
type Client interface {
	// Connect は接続を開始する。blobが空の場合は資格情報なしで接続する。
	// 接続後のイベントはEventsから通知される。
	Connect(ctx context.Context, blob []byte) error

	// Events はイベントの受信チャネルを返す。
	Events() <-chan Event

	// Send はメッセージを送信し、サイドカーの応答を待つ。
	Send(ctx context.Context, msg OutboundMessage) error

	// Close は接続を終了する。ctxの期限で打ち切る。
	Close(ctx context.Context) error

	// State は接続状態（"open" または "closed"）を返す。
	State() string
}
