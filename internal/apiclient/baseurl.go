package apiclient

import (
	"context"
	"strings"
)

// BuildBaseURL はビルド時に埋め込むAPIベースURL。
//
//	go build -ldflags "-X github.com/hitoshi/adminpanel/internal/apiclient.BuildBaseURL=https://api.example.com"
var BuildBaseURL string

// BaseURLResolver は外部APIのベースURLを解決する。
// 解決順序:
//  1. ビルド時に埋め込まれた値
//  2. 実行時に注入された値（API_BASE_URL）
//  3. 自サービスの公開URL（BASE_URL）
//  4. リクエストのオリジン（TrustOriginが有効な場合のみ）
//
// Hostヘッダーはクライアントが自由に指定できるため、BASE_URLより優先しない。
type BaseURLResolver struct {
	BuildTime   string
	Runtime     string
	Fallback    string
	TrustOrigin bool
}

// NewBaseURLResolver はBaseURLResolverを生成する。
// ビルド時の値にはBuildBaseURLが使われる。
// trustOriginはリバースプロキシがHostを書き換える環境（TRUST_PROXY）でのみ有効にする。
func NewBaseURLResolver(runtime, fallback string, trustOrigin bool) *BaseURLResolver {
	return &BaseURLResolver{
		BuildTime:   BuildBaseURL,
		Runtime:     runtime,
		Fallback:    fallback,
		TrustOrigin: trustOrigin,
	}
}

// Resolve はベースURLを解決する。末尾のスラッシュは取り除く。
// どの候補も空の場合は*ConfigurationErrorを返す。
func (r *BaseURLResolver) Resolve(ctx context.Context) (string, error) {
	candidates := []string{r.BuildTime, r.Runtime, r.Fallback}
	if r.TrustOrigin {
		candidates = append(candidates, OriginFromContext(ctx))
	}
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c != "" {
			return strings.TrimRight(c, "/"), nil
		}
	}
	return "", &ConfigurationError{}
}

// joinURL はベースURLとパスを結合する。先頭にスラッシュのないパスには補う。
func joinURL(base, path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
