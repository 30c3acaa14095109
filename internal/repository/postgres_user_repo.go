package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/venille/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `jid, wa_name, language, first_seen, last_seen, last_period, next_period, wants_reminder`

// scanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.User, error) {
	user := &model.User{}
	var lastPeriod, nextPeriod sql.NullTime
	if err := s.Scan(
		&user.JID, &user.DisplayName, &user.Language,
		&user.FirstSeen, &user.LastSeen,
		&lastPeriod, &nextPeriod,
		&user.WantsReminder,
	); err != nil {
		return nil, err
	}
	if lastPeriod.Valid {
		user.LastPeriod = &lastPeriod.Time
	}
	if nextPeriod.Valid {
		user.NextPeriod = &nextPeriod.Time
	}
	return user, nil
}

// FindByJID は指定JIDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByJID(ctx context.Context, jid string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE jid = $1`,
		jid,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by JID: %w", err)
	}
	return user, nil
}

// Touch はユーザーをUPSERTする。
// 既存ユーザーの場合は表示名とlast_seenのみ更新し、first_seenは維持する。
func (r *PostgresUserRepo) Touch(ctx context.Context, jid, displayName string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (jid, wa_name, first_seen, last_seen)
		 VALUES ($1, $2, now(), now())
		 ON CONFLICT (jid) DO UPDATE
		 SET wa_name = EXCLUDED.wa_name, last_seen = now()`,
		jid, displayName,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// UpdateLanguage は優先言語を更新する。
func (r *PostgresUserRepo) UpdateLanguage(ctx context.Context, jid, language string) error {
	return r.exec(ctx, "language",
		`UPDATE users SET language = $2 WHERE jid = $1`,
		jid, language,
	)
}

// UpdatePeriod は直近の生理開始日と次回予定日をDATE型で更新する。
func (r *PostgresUserRepo) UpdatePeriod(ctx context.Context, jid string, last, next time.Time) error {
	return r.exec(ctx, "period",
		`UPDATE users SET last_period = $2, next_period = $3 WHERE jid = $1`,
		jid, last.Format(time.DateOnly), next.Format(time.DateOnly),
	)
}

// UpdateReminder はリマインダー希望フラグを更新する。
func (r *PostgresUserRepo) UpdateReminder(ctx context.Context, jid string, wants bool) error {
	return r.exec(ctx, "reminder flag",
		`UPDATE users SET wants_reminder = $2 WHERE jid = $1`,
		jid, wants,
	)
}

// ListReminderCandidates はリマインダー希望かつ次回予定日が設定済みのユーザーを取得する。
func (r *PostgresUserRepo) ListReminderCandidates(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE wants_reminder = true AND next_period IS NOT NULL
		 ORDER BY jid`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminder candidates: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

func (r *PostgresUserRepo) exec(ctx context.Context, what, query string, args ...any) error {
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update user %s: %w", what, err)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
