// Package apiclient は管理パネルが利用する外部APIのHTTPクライアントを提供する。
// ベースURLの解決、認証ヘッダーの付与、エラーメッセージの抽出、
// レスポンスのJSON/テキスト判定を一箇所に集約する。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/adminpanel/internal/metrics"
)

const (
	// maxResponseSize はレスポンスボディの読み取り上限（10MB）。
	maxResponseSize = 10 * 1024 * 1024
	// DefaultTimeout は外部APIリクエストのデフォルトタイムアウト。
	DefaultTimeout = 15 * time.Second
)

// Auth はリクエストに付与するベアラートークンを提供する。
// トークンが空の場合はAuthorizationヘッダーを付与しない。
type Auth interface {
	BearerToken() string
}

// Token は文字列トークンをAuthとして扱うための型。
type Token string

// BearerToken はAuthインターフェースを実装する。
func (t Token) BearerToken() string {
	return string(t)
}

// Requester は外部APIへのリクエストを送信するインターフェース。
// ビュー層やダッシュボード層はこのインターフェースに依存する。
type Requester interface {
	Do(ctx context.Context, auth Auth, method, path string, body any) (*Result, error)
}

// Result は2xxレスポンスの内容。
// ボディが妥当なJSONの場合はJSONに、それ以外はTextに格納される。
type Result struct {
	StatusCode int
	JSON       json.RawMessage
	Text       string
}

// IsJSON はレスポンスがJSONとして解釈できたかを返す。
func (r *Result) IsJSON() bool {
	return r != nil && r.JSON != nil
}

// Decode はJSONレスポンスをvにデコードする。
// vがnilの場合は何もしない。テキストレスポンスの場合はvが*stringのときのみ格納する。
func (r *Result) Decode(v any) error {
	if v == nil {
		return nil
	}
	if r.IsJSON() {
		if err := json.Unmarshal(r.JSON, v); err != nil {
			return fmt.Errorf("failed to decode API response: %w", err)
		}
		return nil
	}
	if s, ok := v.(*string); ok {
		*s = r.Text
		return nil
	}
	return errors.New("API response is not JSON")
}

// Client は外部APIのHTTPクライアント。
// リトライは行わない。
type Client struct {
	httpClient *http.Client
	resolver   *BaseURLResolver
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientがnilの場合はDefaultTimeoutを持つクライアントを使用する。
func NewClient(httpClient *http.Client, resolver *BaseURLResolver, logger *slog.Logger, mc metrics.MetricsCollector) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &Client{
		httpClient: httpClient,
		resolver:   resolver,
		logger:     logger,
		metrics:    mc,
	}
}

// Do は外部APIにリクエストを送信する。
// bodyがnil以外の場合はJSONにエンコードして送信する。
// 2xx以外の応答は*RequestErrorを、ベースURLが未設定の場合は*ConfigurationErrorを返す。
func (c *Client) Do(ctx context.Context, auth Auth, method, path string, body any) (*Result, error) {
	base, err := c.resolver.Resolve(ctx)
	if err != nil {
		c.logger.Error("APIのベースURLが解決できません", slog.String("path", path))
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, joinURL(base, path), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if id := RequestIDFromContext(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}
	if auth != nil {
		if token := auth.BearerToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamFailure(method)
		c.logger.Error("外部APIの呼び出しに失敗しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to call API %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.metrics.RecordUpstreamRequest(method, resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read API response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := extractMessage(resp.StatusCode, raw)
		c.logger.Warn("外部APIがエラーステータスを返しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
			slog.String("message", msg),
		)
		return nil, &RequestError{StatusCode: resp.StatusCode, Message: msg}
	}

	result := &Result{StatusCode: resp.StatusCode}
	if isJSONContentType(resp.Header.Get("Content-Type")) && json.Valid(raw) {
		result.JSON = json.RawMessage(raw)
	} else {
		// 不正なJSONやJSON以外のコンテンツタイプはテキストとして返す
		result.Text = string(raw)
	}
	return result, nil
}

// Fetch はリクエストを送信し、JSONレスポンスをTにデコードして返す。
func Fetch[T any](ctx context.Context, r Requester, auth Auth, method, path string, body any) (T, error) {
	var out T
	res, err := r.Do(ctx, auth, method, path, body)
	if err != nil {
		return out, err
	}
	if err := res.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

// isJSONContentType はContent-Typeがapplication/json系かを判定する。
func isJSONContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "application/json") || strings.Contains(ct, "+json")
}

// extractMessage はエラーレスポンスのボディから表示用メッセージを取り出す。
// JSON文字列ならその値、messageフィールドを持つオブジェクトならその値、
// それ以外は生のボディ。いずれも空ならHTTP <status>を返す。
func extractMessage(status int, body []byte) string {
	fallback := fmt.Sprintf("HTTP %d", status)
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return fallback
	}

	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err == nil {
		switch v := decoded.(type) {
		case nil:
			return fallback
		case string:
			if v == "" {
				return fallback
			}
			return v
		case map[string]any:
			if msg, ok := v["message"].(string); ok {
				if msg == "" {
					return fallback
				}
				return msg
			}
		}
	}
	return string(trimmed)
}
