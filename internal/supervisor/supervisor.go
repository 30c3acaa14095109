// Package supervisor はトランスポート接続のライフサイクルを管理する。
// 資格情報の取得・保存、障害分類に基づく再接続、送信可否のゲートを担う。
package supervisor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/venille/internal/authstore"
	"github.com/hitoshi/venille/internal/metrics"
	"github.com/hitoshi/venille/internal/model"
	"github.com/hitoshi/venille/internal/transport"
)

// State は接続状態。
type State string

// 接続状態一覧。
const (
	StateIdle               State = "idle"
	StateConnecting         State = "connecting"
	StateAwaitingCredential State = "awaiting_credential"
	StateAuthenticated      State = "authenticated"
	StateReady              State = "ready"
	StateDegraded           State = "degraded"
	StateDisconnected       State = "disconnected"
	StateLoggedOut          State = "logged_out"
)

// DefaultSendTimeout は送信結果を待つデフォルトの最大時間。
const DefaultSendTimeout = 30 * time.Second

// Config はスーパーバイザーの設定。
type Config struct {
	DisconnectBackoff time.Duration
	ErrorBackoff      time.Duration
	MaxBackoff        time.Duration
	CloseTimeout      time.Duration
	SendTimeout       time.Duration // 1件の送信結果を待つ最大時間（デフォルト: 30秒）
	Interactive       bool
	CredentialFile    string
}

// MessageHandler は受信メッセージの処理関数。ブロックしないこと。
type MessageHandler func(msg transport.InboundMessage)

// Supervisor はトランスポート接続を監視し、状態遷移と再接続を制御する。
// イベントはRunを呼び出した単一のゴルーチンで順番に処理する。
type Supervisor struct {
	client    transport.Client
	store     authstore.Store
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
	cfg       Config
	out       io.Writer
	onMessage MessageHandler

	mu         sync.Mutex
	state      State
	connecting bool // Connectの呼び出し中
	faults     int
	timer      *time.Timer
	credential string
	stopped    bool
	runCtx     context.Context
	wg         sync.WaitGroup
}

// New はSupervisorを生成する。outは資格情報の表示先（nilの場合は標準出力）。
func New(
	client transport.Client,
	store authstore.Store,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	cfg Config,
	out io.Writer,
) *Supervisor {
	if out == nil {
		out = os.Stdout
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	return &Supervisor{
		client:  client,
		store:   store,
		metrics: collector,
		logger:  logger,
		cfg:     cfg,
		out:     out,
		state:   StateIdle,
	}
}

// OnMessage は受信メッセージの処理関数を設定する。Runの前に呼び出すこと。
func (s *Supervisor) OnMessage(h MessageHandler) {
	s.onMessage = h
}

// State は現在の接続状態を返す。
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ready は送信可能な状態かを返す。
func (s *Supervisor) Ready() bool {
	return s.State() == StateReady
}

// PendingCredential は表示中の資格情報コードを返す。ない場合は空文字列。
func (s *Supervisor) PendingCredential() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credential
}

// Send は送信ゲート。ready状態でない場合はmodel.ErrNotConnectedを返す。
func (s *Supervisor) Send(ctx context.Context, to, text string) error {
	return s.Deliver(ctx, transport.OutboundMessage{ID: uuid.New().String(), To: to, Text: text})
}

// Deliver は冪等キー（msg.ID）付きでメッセージを送信する。
// 送信結果はSendTimeoutまで待ち、超過した場合はエラーを返す。
func (s *Supervisor) Deliver(ctx context.Context, msg transport.OutboundMessage) error {
	if !s.Ready() {
		return model.ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()
	return s.client.Send(ctx, msg)
}

// Run はセッションストアを準備して接続を開始し、ctxが終了するまでイベントを処理する。
func (s *Supervisor) Run(ctx context.Context) {
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	if err := s.store.EnsureSchema(ctx); err != nil {
		s.logger.Warn("セッションストアの準備に失敗しました", slog.String("error", err.Error()))
	}

	s.connect(ctx)

	events := s.client.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			s.handle(ctx, ev)
		}
	}
}

// Stop は再接続タイマーを停止し、トランスポートを期限付きでクローズする。
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	if s.timer != nil {
		if s.timer.Stop() {
			s.wg.Done()
		}
		s.timer = nil
	}
	s.mu.Unlock()

	s.wg.Wait()

	timeout := s.cfg.CloseTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	closeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.client.Close(closeCtx); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}

// connect はセッションを読み込んで接続を開始する。
// connecting状態の間、またはConnectの呼び出し中に呼ばれた場合は何もしない。
func (s *Supervisor) connect(ctx context.Context) {
	s.mu.Lock()
	if s.stopped || s.connecting || s.state == StateConnecting || s.state == StateLoggedOut {
		s.mu.Unlock()
		return
	}
	s.setStateLocked(StateConnecting)
	s.connecting = true
	s.mu.Unlock()

	err := func() error {
		defer func() {
			s.mu.Lock()
			s.connecting = false
			s.mu.Unlock()
		}()
		return s.dial(ctx)
	}()
	if err != nil {
		s.logger.Error("トランスポートへの接続に失敗しました", slog.String("error", err.Error()))
		s.fault(ctx, err.Error())
	}
}

// dial は保存済みセッションを読み込んでConnectを呼び出す。
func (s *Supervisor) dial(ctx context.Context) error {
	blob, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Warn("保存済みセッションの読み込みに失敗しました", slog.String("error", err.Error()))
		blob = nil
	}

	if err := s.client.Connect(ctx, blob); err != nil {
		return err
	}

	if len(blob) == 0 {
		s.mu.Lock()
		if s.state == StateConnecting {
			s.setStateLocked(StateAwaitingCredential)
		}
		s.mu.Unlock()
		s.logger.Info("保存済みセッションがないため資格情報の提示を待機します")
	} else {
		s.logger.Info("保存済みセッションで接続しました")
	}
	return nil
}

// inFlight はConnectの呼び出し中かを返す。呼び出し中の障害は接続結果に委ね、再接続を予約しない。
func (s *Supervisor) inFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connecting
}

func (s *Supervisor) handle(ctx context.Context, ev transport.Event) {
	switch ev.Kind {
	case transport.EventCredential:
		s.onCredential(ev.Code)
	case transport.EventAuthenticated:
		s.onAuthenticated(ctx, ev.Blob)
	case transport.EventReady:
		s.onReady()
	case transport.EventMessage:
		if ev.Message != nil && s.onMessage != nil {
			s.onMessage(*ev.Message)
		}
	case transport.EventDisconnected:
		s.onDisconnected(ctx, ev.Reason)
	case transport.EventAuthFailure:
		s.logger.Error("認証に失敗しました", slog.String("error", ev.Err))
		s.loggedOut(ctx, "auth failure: "+ev.Err, false)
	case transport.EventError:
		s.fault(ctx, ev.Err)
	default:
		s.logger.Warn("未知のトランスポートイベントを受信しました", slog.String("kind", string(ev.Kind)))
	}
}

func (s *Supervisor) onCredential(code string) {
	s.mu.Lock()
	s.credential = code
	s.setStateLocked(StateAwaitingCredential)
	s.mu.Unlock()

	RenderCredential(s.out, code, s.cfg.Interactive)
	if err := writeCredentialFile(s.cfg.CredentialFile, code); err != nil {
		s.logger.Warn("資格情報ファイルの保存に失敗しました", slog.String("error", err.Error()))
		return
	}
	s.logger.Info("資格情報コードを保存しました", slog.String("path", s.cfg.CredentialFile))
}

// onAuthenticated はブロブを保存してからauthenticated状態に遷移する。
// イベントは順番に処理されるため、保存完了前にready状態になることはない。
func (s *Supervisor) onAuthenticated(ctx context.Context, blob []byte) {
	if len(blob) > 0 {
		if err := s.store.Save(ctx, blob); err != nil {
			s.logger.Error("セッションの保存に失敗しました", slog.String("error", err.Error()))
		} else {
			s.logger.Info("セッションを保存しました")
		}
	}

	s.mu.Lock()
	s.setStateLocked(StateAuthenticated)
	s.mu.Unlock()
	s.logger.Info("認証されました")
}

func (s *Supervisor) onReady() {
	s.mu.Lock()
	s.setStateLocked(StateReady)
	s.faults = 0
	s.credential = ""
	s.mu.Unlock()

	if err := removeCredentialFile(s.cfg.CredentialFile); err != nil {
		s.logger.Warn("資格情報ファイルの削除に失敗しました", slog.String("error", err.Error()))
	}
	s.logger.Info("トランスポートの準備が完了しました")
}

func (s *Supervisor) onDisconnected(ctx context.Context, reason string) {
	s.logger.Warn("トランスポートが切断されました", slog.String("reason", reason))

	if IsTerminalDisconnect(reason) {
		s.loggedOut(ctx, reason, true)
		return
	}

	if s.inFlight() {
		s.logger.Info("接続処理中のため再接続を予約しません", slog.String("reason", reason))
		return
	}

	s.mu.Lock()
	s.setStateLocked(StateDisconnected)
	s.mu.Unlock()
	s.scheduleReconnect(s.cfg.DisconnectBackoff, FaultDisconnect)
}

// fault はエラーを分類し、致命的ならlogged_out、それ以外はdegradedにして再接続を予約する。
func (s *Supervisor) fault(ctx context.Context, message string) {
	class := ClassifyFault(message)
	if class == FaultTerminal {
		s.logger.Error("致命的なトランスポート障害のため再接続しません", slog.String("error", message))
		s.loggedOut(ctx, message, false)
		return
	}

	s.logger.Warn("トランスポート障害が発生しました", slog.String("error", message))
	if s.inFlight() {
		s.logger.Info("接続処理中のため再接続を予約しません", slog.String("error", message))
		return
	}

	s.mu.Lock()
	s.setStateLocked(StateDegraded)
	s.mu.Unlock()
	s.scheduleReconnect(s.cfg.ErrorBackoff, class)
}

// loggedOut は終端状態に遷移する。removeSessionがtrueの場合は保存済みセッションを削除する。
func (s *Supervisor) loggedOut(ctx context.Context, reason string, removeSession bool) {
	s.mu.Lock()
	s.setStateLocked(StateLoggedOut)
	if s.timer != nil {
		if s.timer.Stop() {
			s.wg.Done()
		}
		s.timer = nil
	}
	s.mu.Unlock()

	if removeSession {
		if err := s.store.Remove(ctx); err != nil {
			s.logger.Warn("保存済みセッションの削除に失敗しました", slog.String("error", err.Error()))
		}
	}
	s.logger.Warn("ログアウト状態になりました。再接続には再認証が必要です", slog.String("reason", reason))
}

// scheduleReconnect は連続障害回数に応じた遅延で再接続を予約する。
// 既に予約済み、または接続中の場合は何もしない。
func (s *Supervisor) scheduleReconnect(base time.Duration, class FaultClass) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.timer != nil || s.state == StateConnecting || s.state == StateLoggedOut {
		return
	}

	s.faults++
	delay := CalculateBackoff(base, s.cfg.MaxBackoff, s.faults)
	ctx := s.runCtx
	if ctx == nil {
		ctx = context.Background()
	}

	s.metrics.RecordReconnect(string(class))
	s.logger.Info("再接続を予約しました",
		slog.Duration("delay", delay),
		slog.Int("consecutive_faults", s.faults),
		slog.String("fault", string(class)),
	)

	s.wg.Add(1)
	s.timer = time.AfterFunc(delay, func() {
		defer s.wg.Done()
		defer s.recoverPanic("reconnect")
		s.mu.Lock()
		s.timer = nil
		s.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		s.connect(ctx)
	})
}

// recoverPanic はゴルーチン内のパニックを回復してスタックトレースとともにログに記録する。
func (s *Supervisor) recoverPanic(task string) {
	if rec := recover(); rec != nil {
		s.logger.Error("スーパーバイザーのタスクでパニックが発生しました",
			slog.String("task", task),
			slog.Any("panic", rec),
			slog.String("stack", string(debug.Stack())),
		)
	}
}

func (s *Supervisor) setStateLocked(state State) {
	if s.state == state {
		return
	}
	s.logger.Debug("接続状態が遷移しました",
		slog.String("from", string(s.state)),
		slog.String("to", string(state)),
	)
	s.state = state
	s.metrics.SetTransportState(string(state))
}
