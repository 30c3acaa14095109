// Package reminder は次回生理予定日の3日前に届けるリマインダーの日次スキャンを提供する。
// 取りこぼした日の再送や、同じ周期での重複送信は行わない。
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/venille/internal/conversation"
	"github.com/hitoshi/venille/internal/i18n"
	"github.com/hitoshi/venille/internal/metrics"
	"github.com/hitoshi/venille/internal/repository"
	"github.com/robfig/cron/v3"
)

// DefaultSchedule はデフォルトの実行スケジュール（毎日9時）。
const DefaultSchedule = "0 9 * * *"

// LeadDays は予定日の何日前に送信するか。
const LeadDays = 3

// Gate は送信ゲートのインターフェース。
type Gate interface {
	Ready() bool
	Send(ctx context.Context, to, text string) error
}

// Job はリマインダー対象ユーザーを走査して送信するジョブ。
type Job struct {
	users    repository.UserRepository
	gate     Gate
	catalog  *i18n.Catalog
	metrics  metrics.MetricsCollector
	logger   *slog.Logger
	location *time.Location
	schedule string
	cron     *cron.Cron
}

// NewJob はJobを生成する。scheduleは5フィールドのcron式、locationは日付計算と実行時刻のタイムゾーン。
func NewJob(
	users repository.UserRepository,
	gate Gate,
	catalog *i18n.Catalog,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	schedule string,
	location *time.Location,
) (*Job, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("failed to parse reminder schedule %q: %w", schedule, err)
	}
	if location == nil {
		location = time.UTC
	}
	if catalog == nil {
		catalog = i18n.Default()
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Job{
		users:    users,
		gate:     gate,
		catalog:  catalog,
		metrics:  collector,
		logger:   logger,
		location: location,
		schedule: schedule,
	}, nil
}

// Start はcronスケジューラを起動する。ctxは各実行に引き渡される。
func (j *Job) Start(ctx context.Context) error {
	j.cron = cron.New(cron.WithLocation(j.location))
	if _, err := j.cron.AddJob(j.schedule, j.scheduledJob(ctx)); err != nil {
		return fmt.Errorf("failed to schedule reminder job: %w", err)
	}
	j.cron.Start()

	j.logger.Info("リマインダージョブを開始しました",
		slog.String("schedule", j.schedule),
		slog.String("timezone", j.location.String()),
	)
	return nil
}

// scheduledJob はスケジューラに登録するジョブを返す。
// 実行中のパニックはcron.Recoverで回復し、スケジューラは動作を継続する。
func (j *Job) scheduledJob(ctx context.Context) cron.Job {
	run := cron.FuncJob(func() {
		if _, err := j.RunOnce(ctx, time.Now()); err != nil {
			j.logger.Error("リマインダージョブの実行に失敗しました",
				slog.String("error", err.Error()),
			)
		}
	})
	return cron.NewChain(cron.Recover(cronLogger{j.logger})).Then(run)
}

// Stop はスケジューラを停止し、実行中のジョブの完了を待つ。
func (j *Job) Stop(ctx context.Context) {
	if j.cron == nil {
		return
	}
	select {
	case <-j.cron.Stop().Done():
	case <-ctx.Done():
	}
	j.logger.Info("リマインダージョブを停止しました")
}

// RunOnce はnowを基準に1回スキャンし、送信件数を返す。
// トランスポートが準備完了でない場合はスキップする（後から補完はしない）。
func (j *Job) RunOnce(ctx context.Context, now time.Time) (int, error) {
	if !j.gate.Ready() {
		j.logger.Warn("トランスポートが準備完了でないためリマインダーをスキップします")
		return 0, nil
	}

	users, err := j.users.ListReminderCandidates(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list reminder candidates: %w", err)
	}

	today := calendarDate(now.In(j.location))
	sent := 0
	for _, u := range users {
		if u.NextPeriod == nil || !u.WantsReminder {
			continue
		}
		if DaysUntil(today, *u.NextPeriod) != LeadDays {
			continue
		}

		text := j.catalog.Text(u.Language, i18n.PeriodReminder, conversation.FormatDate(*u.NextPeriod))
		if err := j.gate.Send(ctx, u.JID, text); err != nil {
			j.logger.Warn("リマインダーの送信に失敗しました",
				slog.String("jid", u.JID),
				slog.String("error", err.Error()),
			)
			continue
		}
		j.metrics.RecordReminderSent()
		sent++
	}

	j.logger.Info("リマインダージョブが完了しました",
		slog.Int("candidates", len(users)),
		slog.Int("sent", sent),
	)
	return sent, nil
}

// DaysUntil はtodayからtargetまでの暦日数を返す。時刻とタイムゾーンは無視する。
func DaysUntil(today, target time.Time) int {
	return int(calendarDate(target).Sub(calendarDate(today)).Hours() / 24)
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// cronLogger はcron.LoggerをslogのLoggerに接続する。
// ジョブ内のパニックはcron.Recoverによりスタックトレースとともにここへ記録される。
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	args := append([]any{slog.String("error", err.Error())}, keysAndValues...)
	l.logger.Error("リマインダージョブでパニックが発生しました", append(args, slog.String("cron_msg", msg))...)
}

// compile-time interface check
var _ cron.Logger = cronLogger{}
