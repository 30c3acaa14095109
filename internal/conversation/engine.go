// Package conversation はユーザーごとのメニュー駆動の会話ステートマシンを提供する。
package conversation

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/venille/internal/education"
	"github.com/hitoshi/venille/internal/i18n"
	"github.com/hitoshi/venille/internal/metrics"
	"github.com/hitoshi/venille/internal/repository"
	"github.com/hitoshi/venille/internal/security"
	"github.com/hitoshi/venille/internal/transport"
)

// Sender は送信ゲートのインターフェース。
type Sender interface {
	Send(ctx context.Context, to, text string) error
}

// Options はEngineの依存と設定。
type Options struct {
	Sender    Sender
	Sessions  SessionRepository
	Users     repository.UserRepository
	Symptoms  repository.SymptomRepository
	Feedback  repository.FeedbackRepository
	Orders    repository.OrderRepository
	Catalog   *i18n.Catalog
	Sanitizer security.TextSanitizer
	Education education.Provider
	Metrics   metrics.MetricsCollector
	Logger    *slog.Logger

	// SendTimeout は1件の送信を待つ最大時間（デフォルト: 30秒）。
	SendTimeout     time.Duration
	VendorRecipient string
	SalesContactURL string
}

const defaultSendTimeout = 30 * time.Second

// Engine は受信メッセージを処理し、ちょうど1件の返信を送信者に返す。
// 同じユーザーのメッセージは呼び出し側（Dispatcher）で直列化されている前提とする。
type Engine struct {
	Options
}

// NewEngine はEngineを生成する。
func NewEngine(opts Options) *Engine {
	if opts.Sessions == nil {
		opts.Sessions = NewMemorySessions()
	}
	if opts.Catalog == nil {
		opts.Catalog = i18n.Default()
	}
	if opts.Sanitizer == nil {
		opts.Sanitizer = security.NewTextSanitizer(0)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	return &Engine{Options: opts}
}

// turn は1件の受信メッセージの処理コンテキスト。
type turn struct {
	id   string
	name string
	raw  string
	key  string
	sess *Session
	// after は返信の送信後に実行する処理。
	after []func(ctx context.Context)
}

// Handle は受信メッセージを処理する。
func (e *Engine) Handle(ctx context.Context, msg transport.InboundMessage) {
	start := time.Now()
	e.Metrics.RecordMessageReceived()
	defer func() { e.Metrics.RecordHandleLatency(time.Since(start)) }()

	sess, err := e.Sessions.Load(ctx, msg.From)
	if err != nil {
		e.Logger.Error("会話セッションの読み込みに失敗しました",
			slog.String("jid", msg.From),
			slog.String("error", err.Error()),
		)
		sess = &Session{}
	}

	t := &turn{id: msg.From, name: msg.Name, raw: msg.Body, key: Normalize(msg.Body), sess: sess}

	e.bookkeep(ctx, t)
	reply := e.route(ctx, t)

	if err := e.Sessions.Save(ctx, t.id, t.sess); err != nil {
		e.Logger.Error("会話セッションの保存に失敗しました",
			slog.String("jid", t.id),
			slog.String("error", err.Error()),
		)
	}

	if reply != "" {
		e.reply(ctx, t.id, reply)
	}
	for _, fn := range t.after {
		fn(ctx)
	}
}

// bookkeep はユーザーをUPSERTし、言語キャッシュを更新する。失敗はログに記録するのみ。
func (e *Engine) bookkeep(ctx context.Context, t *turn) {
	if err := e.Users.Touch(ctx, t.id, t.name); err != nil {
		e.Logger.Warn("ユーザーの更新に失敗しました",
			slog.String("jid", t.id),
			slog.String("error", err.Error()),
		)
	}

	user, err := e.Users.FindByJID(ctx, t.id)
	if err != nil {
		e.Logger.Warn("ユーザーの取得に失敗しました",
			slog.String("jid", t.id),
			slog.String("error", err.Error()),
		)
	}
	switch {
	case user != nil && user.Language != "":
		t.sess.Language = user.Language
	case t.sess.Language == "":
		t.sess.Language = i18n.DefaultLanguage
	}
}

// route はグローバル割り込み、進行中ステップ、メニュー選択の順に処理し、返信文を返す。
func (e *Engine) route(ctx context.Context, t *turn) string {
	if IsInterrupt(t.raw, t.key) {
		t.sess.Reset()
		return e.text(t, i18n.Menu)
	}

	switch t.sess.Step {
	case StepAskDate:
		return e.askDate(ctx, t)
	case StepAskReminder:
		return e.askReminder(ctx, t)
	case StepSymLoop:
		return e.symptomLoop(ctx, t)
	case StepEdu:
		return e.educationTopic(ctx, t)
	case StepLang:
		return e.changeLanguage(ctx, t)
	case StepFeedback1:
		return e.feedback1(t)
	case StepFeedback2:
		return e.feedback2(ctx, t)
	case StepOrder:
		return e.order(t)
	}

	return e.menu(ctx, t)
}

// menu はアイドル状態のメニュー選択を処理する。
func (e *Engine) menu(ctx context.Context, t *turn) string {
	switch MatchMenu(t.key) {
	case MenuTrackPeriod:
		t.sess.Step = StepAskDate
		return e.text(t, i18n.TrackPrompt)
	case MenuLogSymptoms:
		t.sess.Step = StepSymLoop
		t.sess.Data.SymptomCount = 0
		return e.text(t, i18n.SymptomPrompt)
	case MenuLearn:
		t.sess.Step = StepEdu
		return e.text(t, i18n.EduTopics)
	case MenuOrder:
		t.sess.Step = StepOrder
		return e.text(t, i18n.OrderQuantityPrompt)
	case MenuViewCycle:
		return e.viewCycle(ctx, t)
	case MenuViewSymptoms:
		return e.viewSymptoms(ctx, t)
	case MenuChangeLanguage:
		t.sess.Step = StepLang
		return e.text(t, i18n.LangPrompt)
	case MenuFeedback:
		t.sess.Step = StepFeedback1
		return e.text(t, i18n.FeedbackQ1)
	}
	return e.text(t, i18n.Fallback)
}

func (e *Engine) text(t *turn, key i18n.Key, args ...any) string {
	return e.Catalog.Text(t.sess.Language, key, args...)
}

// reply は送信ゲート経由で返信する。失敗はログに記録するのみ。
func (e *Engine) reply(ctx context.Context, to, text string) {
	if err := e.send(ctx, to, text); err != nil {
		e.Metrics.RecordReplyFailed()
		e.Logger.Warn("返信の送信に失敗しました",
			slog.String("jid", to),
			slog.String("error", err.Error()),
		)
		return
	}
	e.Metrics.RecordReplySent()
}

// send はSendTimeoutを期限として送信する。期限を超えた送信は失敗として扱い、
// 同じ送信者の後続メッセージの処理を妨げない。
func (e *Engine) send(ctx context.Context, to, text string) error {
	ctx, cancel := context.WithTimeout(ctx, e.SendTimeout)
	defer cancel()
	return e.Sender.Send(ctx, to, text)
}
