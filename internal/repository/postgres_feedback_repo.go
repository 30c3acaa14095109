package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/venille/internal/model"
)

// PostgresFeedbackRepo はPostgreSQLを使用したフィードバックリポジトリ。
type PostgresFeedbackRepo struct {
	db *sql.DB
}

// NewPostgresFeedbackRepo はPostgresFeedbackRepoを生成する。
func NewPostgresFeedbackRepo(db *sql.DB) *PostgresFeedbackRepo {
	return &PostgresFeedbackRepo{db: db}
}

// Create はフィードバック回答を保存する。IDと作成日時が未設定の場合は採番する。
func (r *PostgresFeedbackRepo) Create(ctx context.Context, feedback *model.Feedback) error {
	if feedback.ID == "" {
		feedback.ID = uuid.New().String()
	}
	if feedback.CreatedAt.IsZero() {
		feedback.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO feedback (id, jid, response1, response2, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		feedback.ID, feedback.JID, feedback.Response1, feedback.Response2, feedback.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	return nil
}

// PostgresOrderRepo はPostgreSQLを使用した注文リポジトリ。
type PostgresOrderRepo struct {
	db *sql.DB
}

// NewPostgresOrderRepo はPostgresOrderRepoを生成する。
func NewPostgresOrderRepo(db *sql.DB) *PostgresOrderRepo {
	return &PostgresOrderRepo{db: db}
}

// Create は注文を保存する。
func (r *PostgresOrderRepo) Create(ctx context.Context, order *model.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO orders (id, jid, quantity, vendor_notified, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		order.ID, order.JID, order.Quantity, order.VendorNotified, order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// PostgresEventLogRepo はPostgreSQLを使用したイベントログリポジトリ。
type PostgresEventLogRepo struct {
	db *sql.DB
}

// NewPostgresEventLogRepo はPostgresEventLogRepoを生成する。
func NewPostgresEventLogRepo(db *sql.DB) *PostgresEventLogRepo {
	return &PostgresEventLogRepo{db: db}
}

// Create はイベントを記録する。
func (r *PostgresEventLogRepo) Create(ctx context.Context, kind, detail string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_logs (id, kind, detail, created_at) VALUES ($1, $2, $3, now())`,
		uuid.New().String(), kind, detail,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event log: %w", err)
	}
	return nil
}

// compile-time interface check
var (
	_ FeedbackRepository = (*PostgresFeedbackRepo)(nil)
	_ OrderRepository    = (*PostgresOrderRepo)(nil)
	_ EventLogRepository = (*PostgresEventLogRepo)(nil)
)
