package middleware

import (
	"net/http"
	"slices"
	"strings"
)

// corsAllowedHeaders はブラウザから送信を許可するリクエストヘッダー。
const corsAllowedHeaders = "Content-Type, " + CSRFHeaderName + ", " + RequestIDHeader

// ParseAllowedOrigins はカンマ区切りのオリジン設定を分解する。
// 末尾のスラッシュと空要素は取り除く。
func ParseAllowedOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// NewCORSMiddleware は管理画面のオリジンからのクロスオリジン呼び出しを許可する。
// allowedOriginsはカンマ区切りで複数指定できる。一致したOriginだけをそのまま返し、
// credentials送信と共存するためワイルドカード(*)は使用しない。
// 許可されていないオリジンからのプリフライトは403で拒否する。
func NewCORSMiddleware(allowedOrigins string) func(next http.Handler) http.Handler {
	origins := ParseAllowedOrigins(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			allowed := origin != "" && slices.Contains(origins, origin)
			if allowed {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Expose-Headers", RequestIDHeader)
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if !allowed {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", corsAllowedHeaders)
				h.Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
