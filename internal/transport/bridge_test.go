package transport

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/hitoshi/venille/internal/model"
)

// fakeBridge はサイドカーを模したWebSocketサーバー。
type fakeBridge struct {
	mu       sync.Mutex
	inits    []frame
	sends    []frame
	rejectTo string
	authz    string
	// silent がtrueの場合はsend_resultを返さない。
	silent bool
	// onInit はinitフレーム受信時にクライアントへ送るフレーム。
	onInit []frame
}

func (b *fakeBridge) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.authz = r.Header.Get("Authorization")
		b.mu.Unlock()

		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Logf("accept failed: %v", err)
			return
		}
		defer ws.CloseNow()

		ctx := r.Context()
		for {
			var f frame
			if err := wsjson.Read(ctx, ws, &f); err != nil {
				return
			}
			switch f.Type {
			case frameInit:
				b.mu.Lock()
				b.inits = append(b.inits, f)
				replies := b.onInit
				b.mu.Unlock()
				for _, rep := range replies {
					_ = wsjson.Write(ctx, ws, rep)
				}
			case frameSend:
				b.mu.Lock()
				b.sends = append(b.sends, f)
				reject := f.To == b.rejectTo
				silent := b.silent
				b.mu.Unlock()
				if silent {
					continue
				}
				res := frame{Type: frameSendResult, ID: f.ID, OK: !reject}
				if reject {
					res.Error = "invalid recipient"
				}
				_ = wsjson.Write(ctx, ws, res)
			case frameDestroy:
				_ = ws.Close(websocket.StatusNormalClosure, "bye")
				return
			}
		}
	}
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func nextEvent(t *testing.T, c *BridgeClient) Event {
	t.Helper()
	select {
	case ev := <-c.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("イベントが届かなかった")
		return Event{}
	}
}

func TestBridgeClient_ConnectSendsInitAndRelaysEvents(t *testing.T) {
	bridge := &fakeBridge{onInit: []frame{
		{Type: "qr", Code: "2@abc"},
		{Type: "authenticated", Session: []byte("blob")},
		{Type: "ready"},
		{Type: "message", From: "234@c.us", Body: "hi", Name: "Amina"},
		{Type: "disconnected", Reason: "LOGOUT"},
	}}
	srv := httptest.NewServer(bridge.handler(t))
	defer srv.Close()

	var buf bytes.Buffer
	c := NewBridgeClient(wsURL(srv), "secret", newTestLogger(&buf))
	ctx := context.Background()

	if err := c.Connect(ctx, []byte("stored")); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close(ctx)

	if ev := nextEvent(t, c); ev.Kind != EventCredential || ev.Code != "2@abc" {
		t.Errorf("1番目のイベント = %+v", ev)
	}
	if ev := nextEvent(t, c); ev.Kind != EventAuthenticated || string(ev.Blob) != "blob" {
		t.Errorf("2番目のイベント = %+v", ev)
	}
	if ev := nextEvent(t, c); ev.Kind != EventReady {
		t.Errorf("3番目のイベント = %+v", ev)
	}
	ev := nextEvent(t, c)
	if ev.Kind != EventMessage || ev.Message == nil || ev.Message.From != "234@c.us" || ev.Message.Name != "Amina" {
		t.Errorf("4番目のイベント = %+v", ev)
	}
	if ev := nextEvent(t, c); ev.Kind != EventDisconnected || ev.Reason != ReasonLogout {
		t.Errorf("5番目のイベント = %+v", ev)
	}

	bridge.mu.Lock()
	defer bridge.mu.Unlock()
	if len(bridge.inits) != 1 || string(bridge.inits[0].Session) != "stored" {
		t.Errorf("initフレーム = %+v", bridge.inits)
	}
	if bridge.authz != "Bearer secret" {
		t.Errorf("Authorization = %q", bridge.authz)
	}
}

func TestBridgeClient_SendWaitsForResult(t *testing.T) {
	bridge := &fakeBridge{rejectTo: "bad@c.us"}
	srv := httptest.NewServer(bridge.handler(t))
	defer srv.Close()

	var buf bytes.Buffer
	c := NewBridgeClient(wsURL(srv), "", newTestLogger(&buf))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Connect(ctx, nil); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close(ctx)

	if err := c.Send(ctx, OutboundMessage{ID: "msg-1", To: "ok@c.us", Text: "hello"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := c.Send(ctx, OutboundMessage{ID: "msg-2", To: "bad@c.us", Text: "hello"}); err == nil {
		t.Error("拒否された送信がエラーにならなかった")
	}

	bridge.mu.Lock()
	defer bridge.mu.Unlock()
	if len(bridge.sends) != 2 || bridge.sends[0].ID != "msg-1" {
		t.Errorf("sendフレーム = %+v", bridge.sends)
	}
}

func TestBridgeClient_SendWithoutResultTimesOut(t *testing.T) {
	bridge := &fakeBridge{silent: true}
	srv := httptest.NewServer(bridge.handler(t))
	defer srv.Close()

	var buf bytes.Buffer
	c := NewBridgeClient(wsURL(srv), "", newTestLogger(&buf))
	ctx := context.Background()

	if err := c.Connect(ctx, nil); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close(ctx)

	sendCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := c.Send(sendCtx, OutboundMessage{ID: "lost-1", To: "ok@c.us", Text: "hello"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Send() error = %v, want DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Send がタイムアウト後も待ち続けた: %v", elapsed)
	}

	c.mu.Lock()
	_, stillPending := c.pending["lost-1"]
	c.mu.Unlock()
	if stillPending {
		t.Error("タイムアウト後も送信待ちが残っている")
	}
}

func TestBridgeClient_SendWithoutConnection(t *testing.T) {
	var buf bytes.Buffer
	c := NewBridgeClient("ws://127.0.0.1:1", "", newTestLogger(&buf))

	err := c.Send(context.Background(), OutboundMessage{To: "x", Text: "y"})
	if !errors.Is(err, model.ErrNotConnected) {
		t.Errorf("Send() error = %v, want ErrNotConnected", err)
	}
	if c.State() != "closed" {
		t.Errorf("State() = %q, want closed", c.State())
	}
}

func TestBridgeClient_ConnectionLossEmitsRecoverableError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		var f frame
		_ = wsjson.Read(r.Context(), ws, &f)
		_ = ws.Close(websocket.StatusGoingAway, "browser crashed")
	}))
	defer srv.Close()

	var buf bytes.Buffer
	c := NewBridgeClient(wsURL(srv), "", newTestLogger(&buf))
	if err := c.Connect(context.Background(), nil); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close(context.Background())

	ev := nextEvent(t, c)
	if ev.Kind != EventError || !strings.Contains(ev.Err, "target closed") {
		t.Errorf("イベント = %+v, want target closed error", ev)
	}
}

func TestBridgeClient_ConnectAfterClose(t *testing.T) {
	var buf bytes.Buffer
	c := NewBridgeClient("ws://127.0.0.1:1", "", newTestLogger(&buf))
	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := c.Connect(context.Background(), nil); !errors.Is(err, model.ErrTransportClosed) {
		t.Errorf("Connect() error = %v, want ErrTransportClosed", err)
	}
}

func TestBridgeClient_DialFailure(t *testing.T) {
	var buf bytes.Buffer
	c := NewBridgeClient("ws://127.0.0.1:1", "", newTestLogger(&buf))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Connect(ctx, nil); err == nil {
		t.Error("到達不能なURLで Connect() が成功した")
	}
}
