// Package cleanup は送信キューの日次メンテナンスジョブを提供する。
// 保持期間（デフォルト30日）を超過した送信済みメッセージを削除し、
// 試行中のまま一定時間（デフォルト1時間）経過したメッセージに配信結果不明の印を付ける。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"
)

// UnknownOutcome は試行中のまま放置されたメッセージに記録するエラー文字列。
const UnknownOutcome = "delivery outcome unknown"

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CleanupJob は送信キューのメンテナンスジョブ。
// 冪等であり、対象がない場合もエラーにならない。
type CleanupJob struct {
	db            Executor
	logger        *slog.Logger
	RetentionDays int           // 送信済みメッセージの保持日数（デフォルト: 30）
	Lease         time.Duration // 試行中とみなす最大時間（デフォルト: 1時間）
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(db Executor, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		db:            db,
		logger:        logger,
		RetentionDays: 30,
		Lease:         time.Hour,
	}
}

// Start は起動直後に1回実行したあと、指定間隔のティッカーでジョブを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	j.runSafely(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runSafely(ctx)
		}
	}
}

// runSafely はRunを実行し、パニックを回復してスタックトレースとともにログに記録する。
func (j *CleanupJob) runSafely(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			j.logger.Error("送信キュークリーンアップジョブでパニックが発生しました",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	// エラーはRun内でログ出力済み
	_ = j.Run(ctx)
}

// Run は保持期間を超過した送信済みメッセージを削除し、
// リース期間を超えて試行中のメッセージにUnknownOutcomeを記録する。
// 印を付けたメッセージは試行中のまま残るため、自動では再送されない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	retention := fmt.Sprintf("%d days", j.RetentionDays)
	result, err := j.db.ExecContext(ctx,
		`DELETE FROM outgoing_messages WHERE sent = true AND sent_at < now() - $1::interval`,
		retention,
	)
	if err != nil {
		j.logger.Error("送信キュークリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("failed to delete sent outgoing messages: %w", err)
	}
	deletedCount, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get deleted count: %w", err)
	}

	lease := fmt.Sprintf("%d seconds", int(j.Lease.Seconds()))
	result, err = j.db.ExecContext(ctx,
		`UPDATE outgoing_messages SET last_error = $1
		 WHERE sent = false AND attempting_at < now() - $2::interval AND last_error <> $1`,
		UnknownOutcome, lease,
	)
	if err != nil {
		j.logger.Error("試行中メッセージの更新に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to flag stuck outgoing messages: %w", err)
	}
	flaggedCount, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get flagged count: %w", err)
	}
	if flaggedCount > 0 {
		j.logger.Warn("配信結果が不明なメッセージがあります",
			slog.Int64("flagged_count", flaggedCount),
		)
	}

	j.logger.Info("送信キュークリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int64("flagged_count", flaggedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}
