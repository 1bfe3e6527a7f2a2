package auth

import "strings"

// ページガードのリダイレクト先
const (
	LoginPath = "/login"
	HomePath  = "/users"
)

// GuardState はページガードの状態。
type GuardState int

const (
	// GuardChecking は判定前の状態。この状態ではページを描画しない。
	GuardChecking GuardState = iota
	// GuardUnauthenticated はトークンがない状態。
	GuardUnauthenticated
	// GuardAuthenticatedOnLogin はトークンを持ったままログインページを開いた状態。
	GuardAuthenticatedOnLogin
	// GuardAuthenticated はトークンを持って保護ページを開いた状態。
	GuardAuthenticated
)

// String はログ・レスポンス用の状態名を返す。
func (s GuardState) String() string {
	switch s {
	case GuardUnauthenticated:
		return "unauthenticated"
	case GuardAuthenticatedOnLogin:
		return "authenticated_on_login"
	case GuardAuthenticated:
		return "authenticated"
	default:
		return "checking"
	}
}

// GuardDecision はページガードの判定結果。
// Redirectが空でなければそのパスへ遷移させ、ページは描画しない。
type GuardDecision struct {
	State    GuardState
	Redirect string
}

// Render はページを描画してよいかを返す。
func (d GuardDecision) Render() bool {
	return d.State != GuardChecking && d.Redirect == ""
}

// IsLoginPath はパスがログインページかを判定する。
func IsLoginPath(path string) bool {
	p := strings.TrimRight(path, "/")
	return p == LoginPath
}

// EvaluateGuard はパスとトークンの有無からガードの判定を行う。
//   - トークンなし・ログインページ以外 → /login へ
//   - トークンなし・ログインページ → ログインページを描画
//   - トークンあり・ログインページ → /users へ
//   - トークンあり・保護ページ → 描画
func EvaluateGuard(path string, hasToken bool) GuardDecision {
	onLogin := IsLoginPath(path)
	switch {
	case !hasToken && !onLogin:
		return GuardDecision{State: GuardUnauthenticated, Redirect: LoginPath}
	case !hasToken:
		return GuardDecision{State: GuardUnauthenticated}
	case onLogin:
		return GuardDecision{State: GuardAuthenticatedOnLogin, Redirect: HomePath}
	default:
		return GuardDecision{State: GuardAuthenticated}
	}
}

// LogoutDecision はログアウト直後の判定を返す。ページに関係なく未認証としてログインへ遷移する。
func LogoutDecision() GuardDecision {
	return GuardDecision{State: GuardUnauthenticated, Redirect: LoginPath}
}
