// Package outbox は送信キュー（outgoing_messages）の定期配信処理を提供する。
// 送信前にattempting_atを設定してから送信し、結果に応じて送信済みまたは失敗を記録する。
// 送信と送信済み記録の間でプロセスが停止した場合、そのメッセージは自動では再送しない。
package outbox

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/hitoshi/venille/internal/metrics"
	"github.com/hitoshi/venille/internal/model"
	"github.com/hitoshi/venille/internal/repository"
	"github.com/hitoshi/venille/internal/transport"
	"golang.org/x/time/rate"
)

// Gate は送信ゲート（トランスポートが準備完了の場合のみ送信する）のインターフェース。
type Gate interface {
	Ready() bool
	Deliver(ctx context.Context, msg transport.OutboundMessage) error
}

// Config はワーカーの設定。
type Config struct {
	BatchSize    int           // 1サイクルで取得する最大件数（デフォルト: 20）
	MaxAttempts  int           // この回数に達したメッセージは取得しない（デフォルト: 5）
	SendInterval time.Duration // 送信間隔（デフォルト: 1.5秒）
}

// Worker は送信キューを定期的に配信するワーカー。
type Worker struct {
	repo    repository.OutgoingMessageRepository
	gate    Gate
	metrics metrics.MetricsCollector
	logger  *slog.Logger
	cfg     Config
	limiter *rate.Limiter
	now     func() time.Time
}

// NewWorker はWorkerを生成する。
func NewWorker(
	repo repository.OutgoingMessageRepository,
	gate Gate,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	cfg Config,
) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.SendInterval <= 0 {
		cfg.SendInterval = 1500 * time.Millisecond
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Worker{
		repo:    repo,
		gate:    gate,
		metrics: collector,
		logger:  logger,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.SendInterval), 1),
		now:     time.Now,
	}
}

// Start は指定間隔のティッカーでワーカーを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (w *Worker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Info("送信キューワーカーを開始しました",
		slog.Duration("interval", interval),
		slog.Int("batch_size", w.cfg.BatchSize),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("送信キューワーカーを停止しました")
			return
		case <-ticker.C:
			w.runCycle(ctx)
		}
	}
}

// runCycle は1サイクルを実行する。パニックは回復してスタックトレースとともにログに記録し、
// 次のティックで再開する。
func (w *Worker) runCycle(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			w.logger.Error("送信キューの配信サイクルでパニックが発生しました",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	if _, err := w.RunOnce(ctx); err != nil {
		w.logger.Error("送信キューの配信サイクルに失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// RunOnce は未送信メッセージを1回取得して順に配信し、送信成功件数を返す。
// トランスポートが準備完了でない場合は何もしない（試行回数を消費しない）。
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	if !w.gate.Ready() {
		w.logger.Info("トランスポートが準備完了でないため送信キューの配信をスキップします")
		return 0, nil
	}

	start := time.Now()
	messages, err := w.repo.ClaimPending(ctx, w.cfg.BatchSize, w.cfg.MaxAttempts)
	if err != nil {
		return 0, err
	}
	if len(messages) == 0 {
		return 0, nil
	}

	delivered := 0
	for i, msg := range messages {
		if err := w.limiter.Wait(ctx); err != nil {
			// 未送信の取得済みメッセージは試行中マークを外して次回に回す
			w.release(messages[i:], "delivery cancelled")
			return delivered, err
		}
		if w.deliver(ctx, msg) {
			delivered++
		}
	}

	w.logger.Info("送信キューの配信サイクルが完了しました",
		slog.Int("claimed", len(messages)),
		slog.Int("delivered", delivered),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return delivered, nil
}

func (w *Worker) deliver(ctx context.Context, msg *model.OutgoingMessage) bool {
	err := w.gate.Deliver(ctx, transport.OutboundMessage{
		ID:   msg.ID,
		To:   msg.Recipient,
		Text: msg.Body,
	})
	if err != nil {
		w.metrics.RecordOutboxFailed()
		w.logger.Warn("送信キューのメッセージ配信に失敗しました",
			slog.String("message_id", msg.ID),
			slog.String("recipient", msg.Recipient),
			slog.Int("attempts", msg.Attempts+1),
			slog.String("error", err.Error()),
		)
		if markErr := w.repo.MarkFailed(ctx, msg.ID, err.Error()); markErr != nil {
			w.logger.Error("配信失敗の記録に失敗しました",
				slog.String("message_id", msg.ID),
				slog.String("error", markErr.Error()),
			)
		}
		return false
	}

	w.metrics.RecordOutboxDelivered()
	if err := w.repo.MarkSent(ctx, msg.ID, w.now()); err != nil {
		// 送信済みだが記録できなかった。attempting_atが残るため再送はされない
		w.logger.Error("送信済みの記録に失敗しました",
			slog.String("message_id", msg.ID),
			slog.String("error", err.Error()),
		)
	}
	return true
}

// release はキャンセルにより送信しなかったメッセージの試行中マークを外す。
func (w *Worker) release(messages []*model.OutgoingMessage, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, msg := range messages {
		if err := w.repo.MarkFailed(ctx, msg.ID, reason); err != nil {
			w.logger.Error("試行中マークの解除に失敗しました",
				slog.String("message_id", msg.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}
