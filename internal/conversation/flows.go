package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hitoshi/venille/internal/i18n"
	"github.com/hitoshi/venille/internal/model"
)

// maxArticles は教育トピックの返信に添える記事リンクの最大数。
const maxArticles = 3

// symptomHistoryLimit は症状履歴に表示する件数。
const symptomHistoryLimit = 5

// maxOrderQuantity は1回の注文で受け付ける最大パック数。
const maxOrderQuantity = 99

func plural(n int) string {
	if n > 1 {
		return "s"
	}
	return ""
}

// askDate は直近の生理開始日を受け取り、次回予定日を予測して保存する。
func (e *Engine) askDate(ctx context.Context, t *turn) string {
	last, err := ParseDate(t.raw)
	if errors.Is(err, errDateFormat) {
		return e.text(t, i18n.InvalidDate)
	}
	if err != nil {
		return e.text(t, i18n.NotValidDate)
	}

	next := model.PredictNextPeriod(last)
	if err := e.Users.UpdatePeriod(ctx, t.id, last, next); err != nil {
		e.Logger.Error("生理日の保存に失敗しました",
			slog.String("jid", t.id),
			slog.String("error", err.Error()),
		)
	}

	t.sess.Step = StepAskReminder
	return e.text(t, i18n.AskReminder, FormatDate(next))
}

// askReminder はリマインダー希望の有無を保存してアイドルに戻る。
func (e *Engine) askReminder(ctx context.Context, t *turn) string {
	wants := e.Catalog.IsAffirmative(t.sess.Language, t.key)
	if err := e.Users.UpdateReminder(ctx, t.id, wants); err != nil {
		e.Logger.Error("リマインダー設定の保存に失敗しました",
			slog.String("jid", t.id),
			slog.String("error", err.Error()),
		)
	}

	t.sess.Reset()
	if wants {
		return e.text(t, i18n.ReminderYes)
	}
	return e.text(t, i18n.ReminderNo)
}

// symptomLoop は症状を1件ずつ記録し、done/cancelで終了する。
func (e *Engine) symptomLoop(ctx context.Context, t *turn) string {
	switch t.key {
	case "done":
		n := t.sess.Data.SymptomCount
		t.sess.Reset()
		if n == 0 {
			return e.text(t, i18n.SymptomsNothingSaved)
		}
		return e.text(t, i18n.SymptomsDone, n, plural(n))
	case "cancel":
		t.sess.Reset()
		return e.text(t, i18n.SymptomsCancel)
	}

	text := e.Sanitizer.Clean(t.raw)
	if text == "" {
		return e.text(t, i18n.SymptomPrompt)
	}
	if err := e.Symptoms.Add(ctx, t.id, text); err != nil {
		e.Logger.Error("症状の保存に失敗しました",
			slog.String("jid", t.id),
			slog.String("error", err.Error()),
		)
		return e.text(t, i18n.SymptomPrompt)
	}
	t.sess.Data.SymptomCount++
	return e.text(t, i18n.SavedSymptom)
}

// educationTopic はトピック番号に対応する解説と関連記事を返す。
func (e *Engine) educationTopic(ctx context.Context, t *turn) string {
	n, ok := matchNumber(t.key, 5)
	if !ok {
		return e.text(t, i18n.EduTopics)
	}
	t.sess.Reset()

	body := e.text(t, i18n.EduTopic(n))
	if e.Education == nil {
		return body
	}
	articles := e.Education.Latest(ctx, n, maxArticles)
	if len(articles) == 0 {
		return body
	}

	lines := make([]string, 0, len(articles))
	for _, a := range articles {
		lines = append(lines, fmt.Sprintf("• %s\n  %s", a.Title, a.Link))
	}
	return body + "\n\n" + e.text(t, i18n.EduReadMore, strings.Join(lines, "\n"))
}

// changeLanguage は優先言語を保存し、新しい言語で確認メッセージを返す。
func (e *Engine) changeLanguage(ctx context.Context, t *turn) string {
	lang := e.Catalog.Resolve(strings.TrimSpace(t.raw))
	if err := e.Users.UpdateLanguage(ctx, t.id, lang); err != nil {
		e.Logger.Error("言語設定の保存に失敗しました",
			slog.String("jid", t.id),
			slog.String("error", err.Error()),
		)
	}
	t.sess.Language = lang
	t.sess.Reset()
	return e.text(t, i18n.LanguageSet, lang)
}

// feedback1 は1問目（1/2のみ受け付ける）を処理する。
func (e *Engine) feedback1(t *turn) string {
	if t.key != "1" && t.key != "2" {
		return e.text(t, i18n.Fallback)
	}
	t.sess.Data.Response1 = t.key
	t.sess.Step = StepFeedback2
	return e.text(t, i18n.FeedbackQ2)
}

// feedback2 は2問目の自由回答を受け取り、両方の回答を保存する。
func (e *Engine) feedback2(ctx context.Context, t *turn) string {
	fb := &model.Feedback{
		JID:       t.id,
		Response1: t.sess.Data.Response1,
		Response2: e.Sanitizer.Clean(t.raw),
	}
	if err := e.Feedback.Create(ctx, fb); err != nil {
		e.Logger.Error("フィードバックの保存に失敗しました",
			slog.String("jid", t.id),
			slog.String("error", err.Error()),
		)
	}
	t.sess.Reset()
	return e.text(t, i18n.FeedbackThanks)
}

// parseQuantity は正規化済みキーの先頭の数字列を数量として解釈する。
func parseQuantity(key string) (int, bool) {
	end := 0
	for end < len(key) && key[end] >= '0' && key[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(key[:end])
	if err != nil || n < 1 || n > maxOrderQuantity {
		return 0, false
	}
	return n, true
}

// order は数量を受け付け、顧客への確認を返信した後に販売担当へ通知して注文を記録する。
func (e *Engine) order(t *turn) string {
	qty, ok := parseQuantity(t.key)
	if !ok {
		return e.text(t, i18n.OrderQuantityInvalid)
	}
	t.sess.Reset()

	rec := &model.Order{JID: t.id, Quantity: qty}
	notice := e.text(t, i18n.OrderVendorMessage, t.name, t.id, qty, plural(qty))
	t.after = append(t.after, func(ctx context.Context) {
		e.notifyVendor(ctx, t.id, notice, rec)
		if err := e.Orders.Create(ctx, rec); err != nil {
			e.Logger.Error("注文の保存に失敗しました",
				slog.String("jid", t.id),
				slog.Int("quantity", qty),
				slog.String("error", err.Error()),
			)
		}
	})

	return e.text(t, i18n.OrderConfirmation, qty, plural(qty), e.SalesContactURL)
}

// notifyVendor は販売担当が設定されている場合に注文を通知する。失敗はログに記録するのみ。
func (e *Engine) notifyVendor(ctx context.Context, jid, notice string, rec *model.Order) {
	if e.VendorRecipient == "" {
		return
	}
	if err := e.send(ctx, e.VendorRecipient, notice); err != nil {
		e.Logger.Warn("販売担当への通知に失敗しました",
			slog.String("jid", jid),
			slog.String("error", err.Error()),
		)
		return
	}
	rec.VendorNotified = true
}

// viewCycle は記録済みの生理日と予測日を表示する。ステップは変更しない。
func (e *Engine) viewCycle(ctx context.Context, t *turn) string {
	user, err := e.Users.FindByJID(ctx, t.id)
	if err != nil {
		e.Logger.Warn("ユーザーの取得に失敗しました",
			slog.String("jid", t.id),
			slog.String("error", err.Error()),
		)
	}
	if user == nil || user.LastPeriod == nil {
		return e.text(t, i18n.NoPeriod)
	}

	next := model.PredictNextPeriod(*user.LastPeriod)
	if user.NextPeriod != nil {
		next = *user.NextPeriod
	}
	return e.text(t, i18n.CycleInfo, FormatDate(*user.LastPeriod), FormatDate(next))
}

// viewSymptoms は直近5件の症状を新しい順に表示する。ステップは変更しない。
func (e *Engine) viewSymptoms(ctx context.Context, t *turn) string {
	rows, err := e.Symptoms.ListRecent(ctx, t.id, symptomHistoryLimit)
	if err != nil {
		e.Logger.Warn("症状履歴の取得に失敗しました",
			slog.String("jid", t.id),
			slog.String("error", err.Error()),
		)
	}
	if len(rows) == 0 {
		return e.text(t, i18n.NoSymptoms)
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("• %s  _(%s)_", r.Text, FormatDate(r.LoggedAt)))
	}
	return e.text(t, i18n.SymptomsHistory, strings.Join(lines, "\n"))
}
