package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/venille/internal/model"
)

// PostgresSymptomRepo はPostgreSQLを使用した症状ログリポジトリ。
type PostgresSymptomRepo struct {
	db *sql.DB
}

// NewPostgresSymptomRepo はPostgresSymptomRepoを生成する。
func NewPostgresSymptomRepo(db *sql.DB) *PostgresSymptomRepo {
	return &PostgresSymptomRepo{db: db}
}

// Add は症状を1件追記する。logged_atはDB側の現在時刻。
func (r *PostgresSymptomRepo) Add(ctx context.Context, jid, text string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO symptoms (id, jid, symptom, logged_at) VALUES ($1, $2, $3, now())`,
		uuid.New().String(), jid, text,
	)
	if err != nil {
		return fmt.Errorf("failed to insert symptom: %w", err)
	}
	return nil
}

// ListRecent は指定ユーザーの症状をlogged_at降順で最大limit件取得する。
func (r *PostgresSymptomRepo) ListRecent(ctx context.Context, jid string, limit int) ([]*model.Symptom, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, jid, symptom, logged_at FROM symptoms
		 WHERE jid = $1
		 ORDER BY logged_at DESC
		 LIMIT $2`,
		jid, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list symptoms: %w", err)
	}
	defer rows.Close()

	var symptoms []*model.Symptom
	for rows.Next() {
		s := &model.Symptom{}
		if err := rows.Scan(&s.ID, &s.JID, &s.Text, &s.LoggedAt); err != nil {
			return nil, fmt.Errorf("failed to scan symptom: %w", err)
		}
		symptoms = append(symptoms, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate symptoms: %w", err)
	}
	return symptoms, nil
}

// compile-time interface check
var _ SymptomRepository = (*PostgresSymptomRepo)(nil)
