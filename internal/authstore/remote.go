package authstore

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/venille/internal/model"
	"github.com/hitoshi/venille/internal/repository"
)

// RemoteStore はauth_sessionsテーブルに論理IDをキーとして保存するDB層。
type RemoteStore struct {
	repo      repository.AuthSessionRepository
	sessionID string
	logger    *slog.Logger
}

// NewRemoteStore はRemoteStoreを生成する。
func NewRemoteStore(repo repository.AuthSessionRepository, sessionID string, logger *slog.Logger) *RemoteStore {
	if sessionID == "" {
		sessionID = model.DefaultAuthSessionID
	}
	return &RemoteStore{repo: repo, sessionID: sessionID, logger: logger}
}

// EnsureSchema はテーブルを作成する。
// 失敗してもログに記録するのみで起動は継続する。
func (s *RemoteStore) EnsureSchema(ctx context.Context) error {
	if err := s.repo.EnsureTable(ctx); err != nil {
		s.logger.Warn("認証セッションテーブルの作成に失敗しました",
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// Load はブロブを取得する。行がない場合は nil, nil を返す。
func (s *RemoteStore) Load(ctx context.Context) ([]byte, error) {
	session, err := s.repo.Find(ctx, s.sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || len(session.SessionData) == 0 {
		return nil, nil
	}
	return session.SessionData, nil
}

// Save はブロブをUPSERTする。
func (s *RemoteStore) Save(ctx context.Context, blob []byte) error {
	return s.repo.Upsert(ctx, &model.AuthSession{
		ID:          s.sessionID,
		SessionData: blob,
		UpdatedAt:   time.Now().UTC(),
	})
}

// Remove はブロブを削除する。
func (s *RemoteStore) Remove(ctx context.Context) error {
	return s.repo.Delete(ctx, s.sessionID)
}

// compile-time interface check
var _ Store = (*RemoteStore)(nil)
