package model

// Record は機能別コレクション（finanças、compromissos、conteúdo、gamificação）の1件を表す。
// 集計では件数のみを使うため、共通フィールドだけを保持する。
type Record struct {
	ID     ID `json:"id"`
	UserID ID `json:"userId,omitempty"`
}

// SupportItem はサポート指標の明細1件を表す。
type SupportItem struct {
	ID      ID      `json:"id"`
	Message string  `json:"message"`
	Reason  string  `json:"reason,omitempty"`
	Rating  float64 `json:"rating,omitempty"`
}

// SupportMetrics は metrics/support エンドポイントのレスポンス。
type SupportMetrics struct {
	UnrecognizedCommands []SupportItem `json:"unrecognizedCommands"`
	BugsReported         []SupportItem `json:"bugsReported"`
	Cancellations        []SupportItem `json:"cancellations"`
}
