package middleware

import "net/http"

// opsResponseHeaders は運用エンドポイントの全応答に付与するヘッダー。
// 応答はJSONとテキストのみで、ブラウザでの描画や埋め込みを想定しない。
// 資格情報コードを含み得るため、中継点でのキャッシュも禁止する。
var opsResponseHeaders = [][2]string{
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"X-Content-Type-Options", "nosniff"},
	{"Referrer-Policy", "no-referrer"},
	{"Cross-Origin-Resource-Policy", "same-origin"},
	{"Cache-Control", "no-store"},
}

// NewSecurityHeadersMiddleware は運用エンドポイント向けのレスポンスヘッダーを付与するミドルウェアを返す。
func NewSecurityHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range opsResponseHeaders {
				h.Set(kv[0], kv[1])
			}
			next.ServeHTTP(w, r)
		})
	}
}
