package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// PanicRecorder はパニックの発生を記録するインターフェース。
// *metrics.Collector が実装する。
type PanicRecorder interface {
	RecordPanic(component string)
}

// NewRecoveryMiddleware は運用ハンドラーのパニックを回復して500を返すミドルウェアを生成する。
// パニック値とスタックトレースはリクエストIDとともにログに記録し、recorderがあればカウントする。
func NewRecoveryMiddleware(logger *slog.Logger, recorder PanicRecorder) func(next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					// クライアント切断による中断はnet/httpに委ねる
					panic(rec)
				}
				logger.Error("運用ハンドラーでパニックが発生しました",
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("request_id", w.Header().Get(RequestIDHeader)),
					slog.String("stack", string(debug.Stack())),
				)
				if recorder != nil {
					recorder.RecordPanic("ops_http")
				}
				WriteInternalServerError(w)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
