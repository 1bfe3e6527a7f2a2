package apiclient

import "context"

type contextKey string

var (
	originContextKey    = contextKey("origin")
	requestIDContextKey = contextKey("request_id")
)

// ContextWithOrigin はリクエストのオリジン（scheme://host）をコンテキストに注入する。
// ベースURL解決の最終手段として使われる。
func ContextWithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originContextKey, origin)
}

// OriginFromContext はコンテキストからオリジンを取得する。未設定の場合は空文字列を返す。
func OriginFromContext(ctx context.Context) string {
	origin, _ := ctx.Value(originContextKey).(string)
	return origin
}

// ContextWithRequestID はリクエストIDをコンテキストに注入する。
// 外部APIへのリクエストにX-Request-IDとして伝播される。
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext はコンテキストからリクエストIDを取得する。
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}
