package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/venille/internal/model"
	"github.com/lib/pq"
)

// pgDuplicateTable は「テーブルが既に存在する」を示すPostgreSQLのエラーコード。
const pgDuplicateTable = "42P07"

// PostgresAuthSessionRepo はPostgreSQLを使用した認証セッションリポジトリ。
type PostgresAuthSessionRepo struct {
	db *sql.DB
}

// NewPostgresAuthSessionRepo はPostgresAuthSessionRepoを生成する。
func NewPostgresAuthSessionRepo(db *sql.DB) *PostgresAuthSessionRepo {
	return &PostgresAuthSessionRepo{db: db}
}

// EnsureTable はauth_sessionsテーブルを作成する。
// マイグレーション未適用の環境でもリモート層を利用できるようにするためのもの。
// 並行起動時の競合で42P07が返った場合も成功として扱う。
func (r *PostgresAuthSessionRepo) EnsureTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS auth_sessions (
			id           TEXT PRIMARY KEY,
			session_data BYTEA NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	)
	if err != nil && !isDuplicateTable(err) {
		return fmt.Errorf("failed to ensure auth_sessions table: %w", err)
	}
	return nil
}

// Find は指定論理IDのセッションを取得する。見つからない場合はnilを返す。
func (r *PostgresAuthSessionRepo) Find(ctx context.Context, id string) (*model.AuthSession, error) {
	session := &model.AuthSession{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, session_data, updated_at FROM auth_sessions WHERE id = $1`,
		id,
	).Scan(&session.ID, &session.SessionData, &session.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find auth session: %w", err)
	}
	return session, nil
}

// Upsert は論理IDをキーにセッションを保存する。既存行は上書きする。
func (r *PostgresAuthSessionRepo) Upsert(ctx context.Context, session *model.AuthSession) error {
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_sessions (id, session_data, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE
		 SET session_data = EXCLUDED.session_data, updated_at = EXCLUDED.updated_at`,
		session.ID, session.SessionData, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert auth session: %w", err)
	}
	return nil
}

// Delete は指定論理IDのセッションを削除する。存在しない場合もエラーにしない。
func (r *PostgresAuthSessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM auth_sessions WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete auth session: %w", err)
	}
	return nil
}

func isDuplicateTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgDuplicateTable
}

// compile-time interface check
var _ AuthSessionRepository = (*PostgresAuthSessionRepo)(nil)
