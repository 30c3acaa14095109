// Package authstore はトランスポート認証セッション（資格情報ブロブ）の永続化を提供する。
// ローカルファイル層とリモートDB層、および両者を組み合わせたハイブリッド実装を持つ。
package authstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/venille/internal/repository"
)

// Store は資格情報ブロブの保存先インターフェース。
// Loadはブロブが存在しない場合に nil, nil を返す。
type Store interface {
	EnsureSchema(ctx context.Context) error
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
	Remove(ctx context.Context) error
}

// 保存方式の識別子（SESSION_STORE）。
const (
	KindHybrid = "hybrid"
	KindLocal  = "local"
	KindRemote = "remote"
)

// Options はStoreの生成オプション。
type Options struct {
	Kind      string
	Dir       string
	SessionID string
	Repo      repository.AuthSessionRepository
	Logger    *slog.Logger
}

// New はKindに応じたStoreを生成する。
func New(opts Options) (Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch opts.Kind {
	case KindLocal:
		return NewLocalStore(opts.Dir, opts.SessionID), nil
	case KindRemote:
		if opts.Repo == nil {
			return nil, fmt.Errorf("remote session store requires a repository")
		}
		return NewRemoteStore(opts.Repo, opts.SessionID, logger), nil
	case KindHybrid, "":
		if opts.Repo == nil {
			return nil, fmt.Errorf("hybrid session store requires a repository")
		}
		return NewHybridStore(
			NewLocalStore(opts.Dir, opts.SessionID),
			NewRemoteStore(opts.Repo, opts.SessionID, logger),
			logger,
		), nil
	default:
		return nil, fmt.Errorf("unknown session store kind: %q", opts.Kind)
	}
}
