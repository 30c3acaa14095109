package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/hitoshi/venille/internal/model"
)

// frame はサイドカーとの間でやり取りするJSONフレーム。
type frame struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	To      string `json:"to,omitempty"`
	Text    string `json:"text,omitempty"`
	Session []byte `json:"session,omitempty"`
	Code    string `json:"code,omitempty"`
	From    string `json:"from,omitempty"`
	Body    string `json:"body,omitempty"`
	Name    string `json:"name,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
	OK      bool   `json:"ok,omitempty"`
	Error   string `json:"error,omitempty"`
}

// 送信フレーム種別。
const (
	frameInit       = "init"
	frameSend       = "send"
	frameDestroy    = "destroy"
	frameSendResult = "send_result"
)

// sendResult は送信結果。
type sendResult struct {
	ok  bool
	err string
}

// BridgeClient はWebSocket経由でサイドカーに接続するClient実装。
type BridgeClient struct {
	url     string
	token   string
	logger  *slog.Logger
	events  chan Event
	closing chan struct{}

	mu      sync.Mutex
	conn    *websocket.Conn
	cancel  context.CancelFunc
	pending map[string]chan sendResult
	closed  bool

	writeMu sync.Mutex
}

// NewBridgeClient はBridgeClientを生成する。
func NewBridgeClient(url, token string, logger *slog.Logger) *BridgeClient {
	return &BridgeClient{
		url:     url,
		token:   token,
		logger:  logger,
		events:  make(chan Event, 64),
		closing: make(chan struct{}),
		pending: make(map[string]chan sendResult),
	}
}

// Events はイベントの受信チャネルを返す。
func (c *BridgeClient) Events() <-chan Event {
	return c.events
}

// Connect はサイドカーに接続し、initフレームを送信する。
// 既存の接続がある場合は破棄してから接続し直す。
func (c *BridgeClient) Connect(ctx context.Context, blob []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return model.ErrTransportClosed
	}
	c.dropLocked()
	c.mu.Unlock()

	opts := &websocket.DialOptions{}
	if c.token != "" {
		opts.HTTPHeader = http.Header{"Authorization": []string{"Bearer " + c.token}}
	}

	conn, _, err := websocket.Dial(ctx, c.url, opts)
	if err != nil {
		return fmt.Errorf("failed to dial transport bridge: %w", err)
	}
	conn.SetReadLimit(8 << 20)

	readCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancel()
		_ = conn.Close(websocket.StatusNormalClosure, "client closed")
		return model.ErrTransportClosed
	}
	c.conn = conn
	c.cancel = cancel
	c.mu.Unlock()

	if err := c.write(ctx, conn, frame{Type: frameInit, Session: blob}); err != nil {
		return fmt.Errorf("failed to send init frame: %w", err)
	}

	go c.readLoop(readCtx, conn)
	return nil
}

// Send はsendフレームを送信し、同じIDのsend_resultを待つ。
func (c *BridgeClient) Send(ctx context.Context, msg OutboundMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return model.ErrNotConnected
	}
	ch := make(chan sendResult, 1)
	c.pending[msg.ID] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, msg.ID)
		c.mu.Unlock()
	}()

	if err := c.write(ctx, conn, frame{Type: frameSend, ID: msg.ID, To: msg.To, Text: msg.Text}); err != nil {
		return fmt.Errorf("failed to write send frame: %w", err)
	}

	select {
	case res := <-ch:
		if !res.ok {
			return fmt.Errorf("transport rejected message: %s", res.err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to wait for send result: %w", ctx.Err())
	}
}

// Close はdestroyフレームを送信して接続を終了する。
// 以降のConnectはErrTransportClosedを返す。
func (c *BridgeClient) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.closing)
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := c.write(ctx, conn, frame{Type: frameDestroy}); err != nil {
			c.logger.Debug("destroyフレームの送信に失敗しました", slog.String("error", err.Error()))
		}
		_ = conn.Close(websocket.StatusNormalClosure, "client closed")
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("failed to close transport in time: %w", ctx.Err())
	}

	c.mu.Lock()
	c.dropLocked()
	c.mu.Unlock()
	return err
}

// State は接続状態を返す。
func (c *BridgeClient) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return "closed"
	}
	return "open"
}

// dropLocked は現在の接続を即座に破棄し、応答待ちの送信を失敗させる。
// c.muを保持した状態で呼び出すこと。
func (c *BridgeClient) dropLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.conn != nil {
		_ = c.conn.CloseNow()
		c.conn = nil
	}
	for id, ch := range c.pending {
		ch <- sendResult{err: "connection dropped"}
		delete(c.pending, id)
	}
}

func (c *BridgeClient) write(ctx context.Context, conn *websocket.Conn, f frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wsjson.Write(ctx, conn, f)
}

// readLoop はフレームを読み取りイベントに変換する。
// 読み取りエラーで接続が失われた場合はエラーイベントを通知して終了する。
func (c *BridgeClient) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.mu.Lock()
			stale := c.conn != conn || c.closed
			if !stale {
				c.dropLocked()
			}
			c.mu.Unlock()
			if stale {
				return
			}

			if status := websocket.CloseStatus(err); status != -1 {
				c.emit(context.Background(), Event{Kind: EventError, Err: fmt.Sprintf("target closed: bridge closed with status %d", status)})
			} else {
				c.emit(context.Background(), Event{Kind: EventError, Err: "protocol error: " + err.Error()})
			}
			return
		}

		if f.Type == frameSendResult {
			c.resolve(f)
			continue
		}
		if ev, ok := toEvent(f); ok {
			if !c.emit(ctx, ev) {
				return
			}
		} else {
			c.logger.Warn("未知のフレームを受信しました", slog.String("type", f.Type))
		}
	}
}

func (c *BridgeClient) resolve(f frame) {
	c.mu.Lock()
	ch, ok := c.pending[f.ID]
	if ok {
		delete(c.pending, f.ID)
	}
	c.mu.Unlock()
	if ok {
		ch <- sendResult{ok: f.OK, err: f.Error}
	}
}

// emit はイベントを通知する。ctxの終了またはCloseで中断した場合はfalseを返す。
func (c *BridgeClient) emit(ctx context.Context, ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-ctx.Done():
		return false
	case <-c.closing:
		return false
	}
}

func toEvent(f frame) (Event, bool) {
	switch EventKind(f.Type) {
	case EventCredential:
		return Event{Kind: EventCredential, Code: f.Code}, true
	case EventAuthenticated:
		return Event{Kind: EventAuthenticated, Blob: f.Session}, true
	case EventReady:
		return Event{Kind: EventReady}, true
	case EventMessage:
		return Event{Kind: EventMessage, Message: &InboundMessage{From: f.From, Body: f.Body, Name: f.Name}}, true
	case EventDisconnected:
		return Event{Kind: EventDisconnected, Reason: f.Reason}, true
	case EventAuthFailure:
		return Event{Kind: EventAuthFailure, Err: firstNonEmpty(f.Message, f.Error)}, true
	case EventError:
		return Event{Kind: EventError, Err: firstNonEmpty(f.Message, f.Error)}, true
	}
	return Event{}, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// compile-time interface check
var _ Client = (*BridgeClient)(nil)
