// Package handler は運用HTTPサーバー（ヘルスチェック、メトリクス、資格情報、送信キュー投入）を提供する。
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/venille/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Ops         *OpsHandler
	Metrics     http.Handler
	Logger      *slog.Logger
	OpsToken    string
	RateLimiter *middleware.RateLimiter
	Panics      middleware.PanicRecorder
}

// NewRouter は運用エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders
//
// /credential と /outbox はさらに Token → RateLimit を通過する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(deps.Logger, deps.Panics))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, "/health", "/metrics"))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	r.Get("/health", deps.Ops.Health)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewTokenMiddleware(deps.OpsToken))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}

		r.Get("/credential", deps.Ops.Credential)
		r.Post("/outbox", deps.Ops.Enqueue)
	})

	return r
}
