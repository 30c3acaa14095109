package authstore

import (
	"context"
	"log/slog"
)

// HybridStore はローカル層を優先し、リモート層をバックアップとして使うStore。
// 2つの層はトランザクション的に結合されていない。
type HybridStore struct {
	local  Store
	remote Store
	logger *slog.Logger
}

// NewHybridStore はHybridStoreを生成する。
func NewHybridStore(local, remote Store, logger *slog.Logger) *HybridStore {
	return &HybridStore{local: local, remote: remote, logger: logger}
}

// EnsureSchema は両層を準備する。失敗はログに記録するのみ。
func (s *HybridStore) EnsureSchema(ctx context.Context) error {
	if err := s.local.EnsureSchema(ctx); err != nil {
		s.logger.Warn("ローカルセッション保存先の準備に失敗しました",
			slog.String("error", err.Error()),
		)
	}
	if err := s.remote.EnsureSchema(ctx); err != nil {
		s.logger.Warn("リモートセッション保存先の準備に失敗しました",
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// Load はローカル層、リモート層の順にブロブを探す。
// リモート層から取得できた場合はローカル層へ書き戻す（失敗は無視）。
func (s *HybridStore) Load(ctx context.Context) ([]byte, error) {
	blob, err := s.local.Load(ctx)
	if err != nil {
		s.logger.Warn("ローカルセッションの読み込みに失敗しました",
			slog.String("error", err.Error()),
		)
	}
	if len(blob) > 0 {
		return blob, nil
	}

	blob, err = s.remote.Load(ctx)
	if err != nil {
		s.logger.Warn("リモートセッションの読み込みに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, nil
	}
	if len(blob) == 0 {
		return nil, nil
	}

	if err := s.local.Save(ctx, blob); err != nil {
		s.logger.Warn("ローカルセッションの書き戻しに失敗しました",
			slog.String("error", err.Error()),
		)
	}
	return blob, nil
}

// Save はローカル層に書き込み、続けてリモート層にUPSERTする。
// リモート層の失敗はログに記録するのみで、ローカル層のエラーのみを返す。
func (s *HybridStore) Save(ctx context.Context, blob []byte) error {
	localErr := s.local.Save(ctx, blob)
	if localErr != nil {
		s.logger.Error("ローカルセッションの保存に失敗しました",
			slog.String("error", localErr.Error()),
		)
	}

	if err := s.remote.Save(ctx, blob); err != nil {
		s.logger.Warn("リモートセッションの保存に失敗しました",
			slog.String("error", err.Error()),
		)
	}
	return localErr
}

// Remove は両層からブロブを削除する。エラーはログに記録するのみ。
func (s *HybridStore) Remove(ctx context.Context) error {
	if err := s.local.Remove(ctx); err != nil {
		s.logger.Warn("ローカルセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
	}
	if err := s.remote.Remove(ctx); err != nil {
		s.logger.Warn("リモートセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// compile-time interface check
var _ Store = (*HybridStore)(nil)
