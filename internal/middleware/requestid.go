package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hitoshi/adminpanel/internal/apiclient"
)

// RequestIDHeader はリクエストIDを伝播するヘッダー名。
const RequestIDHeader = "X-Request-ID"

// NewRequestIDMiddleware はリクエストごとにIDを割り当てるミドルウェアを返す。
// 受信したX-Request-IDがUUIDであればそれを引き継ぎ、なければ新規に生成する。
// IDとリクエストのオリジンはコンテキストに格納され、外部API呼び出しに使われる。
func NewRequestIDMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			ctx := apiclient.ContextWithRequestID(r.Context(), id)
			ctx = apiclient.ContextWithOrigin(ctx, requestOrigin(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestOrigin はリクエストのscheme://hostを返す。
func requestOrigin(r *http.Request) string {
	if r.Host == "" {
		return ""
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
