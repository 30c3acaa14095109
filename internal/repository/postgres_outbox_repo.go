package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/venille/internal/model"
)

// PostgresOutboxRepo はPostgreSQLを使用した送信キューリポジトリ。
type PostgresOutboxRepo struct {
	db *sql.DB
}

// NewPostgresOutboxRepo はPostgresOutboxRepoを生成する。
func NewPostgresOutboxRepo(db *sql.DB) *PostgresOutboxRepo {
	return &PostgresOutboxRepo{db: db}
}

const outboxColumns = `id, recipient, body, sent, sent_at, attempts, last_error, attempting_at, created_at`

func scanOutgoing(s scanner) (*model.OutgoingMessage, error) {
	msg := &model.OutgoingMessage{}
	var sentAt, attemptingAt sql.NullTime
	if err := s.Scan(
		&msg.ID, &msg.Recipient, &msg.Body, &msg.Sent, &sentAt,
		&msg.Attempts, &msg.LastError, &attemptingAt, &msg.CreatedAt,
	); err != nil {
		return nil, err
	}
	if sentAt.Valid {
		msg.SentAt = &sentAt.Time
	}
	if attemptingAt.Valid {
		msg.AttemptingAt = &attemptingAt.Time
	}
	return msg, nil
}

// Enqueue は送信キューにメッセージを追加する。
func (r *PostgresOutboxRepo) Enqueue(ctx context.Context, recipient, body string) (*model.OutgoingMessage, error) {
	msg, err := scanOutgoing(r.db.QueryRowContext(ctx,
		`INSERT INTO outgoing_messages (id, recipient, body, created_at)
		 VALUES ($1, $2, $3, now())
		 RETURNING `+outboxColumns,
		uuid.New().String(), recipient, body,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue outgoing message: %w", err)
	}
	return msg, nil
}

// ClaimPending は未送信メッセージを作成日時の古い順に最大limit件取得し、
// attempting_atを設定したうえで返す。
// 送信後にプロセスが落ちた場合、その行は試行中のまま残り再送されない。
func (r *PostgresOutboxRepo) ClaimPending(ctx context.Context, limit, maxAttempts int) ([]*model.OutgoingMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`UPDATE outgoing_messages SET attempting_at = now()
		 WHERE id IN (
			SELECT id FROM outgoing_messages
			WHERE sent = false AND attempting_at IS NULL AND attempts < $2
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+outboxColumns,
		limit, maxAttempts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to claim outgoing messages: %w", err)
	}
	defer rows.Close()

	var msgs []*model.OutgoingMessage
	for rows.Next() {
		msg, err := scanOutgoing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outgoing message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outgoing messages: %w", err)
	}
	sortByCreatedAt(msgs)
	return msgs, nil
}

// MarkSent は送信成功を記録する。
func (r *PostgresOutboxRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outgoing_messages
		 SET sent = true, sent_at = $2, attempts = attempts + 1, last_error = ''
		 WHERE id = $1`,
		id, sentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to mark outgoing message sent: %w", err)
	}
	return nil
}

// MarkFailed は送信失敗を記録し、次回サイクルで再取得できるようattempting_atをクリアする。
func (r *PostgresOutboxRepo) MarkFailed(ctx context.Context, id string, reason string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outgoing_messages
		 SET attempts = attempts + 1, last_error = $2, attempting_at = NULL
		 WHERE id = $1`,
		id, reason,
	)
	if err != nil {
		return fmt.Errorf("failed to mark outgoing message failed: %w", err)
	}
	return nil
}

// CountPending は未送信メッセージの件数を返す。
func (r *PostgresOutboxRepo) CountPending(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM outgoing_messages WHERE sent = false`,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count pending messages: %w", err)
	}
	return n, nil
}

// sortByCreatedAt はRETURNING句の順序が保証されないため作成日時順に並べ直す。
func sortByCreatedAt(msgs []*model.OutgoingMessage) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}

// compile-time interface check
var _ OutgoingMessageRepository = (*PostgresOutboxRepo)(nil)
