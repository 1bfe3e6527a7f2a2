package view

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/adminpanel/internal/apiclient"
	"github.com/hitoshi/adminpanel/internal/model"
	"github.com/hitoshi/adminpanel/internal/security"
)

// feedbackPath は外部APIのフィードバックコレクション。
const feedbackPath = "feedback"

// FeedbackView はフィードバック管理ページの状態。
// 返信とアーカイブの後は一覧全体を読み直し、ローカルでの書き換えはしない。
type FeedbackView struct {
	*CollectionView[model.Feedback, struct{}]
	sanitizer security.ContentSanitizer
}

// NewFeedbackView はFeedbackViewを生成する。
func NewFeedbackView(api apiclient.Requester, auth apiclient.Auth, sanitizer security.ContentSanitizer) *FeedbackView {
	return &FeedbackView{
		CollectionView: newCollectionView[model.Feedback](api, auth, collectionConfig[struct{}]{
			path: feedbackPath,
		}),
		sanitizer: sanitizer,
	}
}

// FilterByBucket は評価区分で一覧を絞り込む。allの場合はそのまま返す。
func FilterByBucket(items []model.Feedback, b model.RatingBucket) []model.Feedback {
	if b == model.RatingAll || b == "" {
		return items
	}
	out := make([]model.Feedback, 0, len(items))
	for _, f := range items {
		if f.Bucket() == b {
			out = append(out, f)
		}
	}
	return out
}

// Reply は管理者の返信を送信する。
// サニタイズ後に空になる返信はリクエストを送らずEMPTY_REPLYを返す。
func (v *FeedbackView) Reply(ctx context.Context, id, text string) error {
	reply := v.sanitizer.SanitizeReply(text)
	if strings.TrimSpace(reply) == "" {
		return model.NewEmptyReplyError()
	}
	body := map[string]string{"reply": reply}
	return v.patch(ctx, id, "reply", body)
}

// Archive はフィードバックをアーカイブする。
func (v *FeedbackView) Archive(ctx context.Context, id string) error {
	return v.patch(ctx, id, "archive", nil)
}

func (v *FeedbackView) patch(ctx context.Context, id, action string, body any) error {
	path := fmt.Sprintf("%s/%s/%s", feedbackPath, url.PathEscape(id), action)
	if _, err := v.api.Do(ctx, v.auth, http.MethodPatch, path, body); err != nil {
		v.mu.Lock()
		if !v.closed {
			v.err = ErrorMessage(err)
		}
		v.mu.Unlock()
		return err
	}
	v.reloadAfterWrite(ctx)
	return nil
}

// FeedbackOverview はフィードバック管理ページのレスポンス。
type FeedbackOverview struct {
	Items   []model.Feedback   `json:"items"`
	Loading bool               `json:"loading"`
	Error   string             `json:"error,omitempty"`
	Filter  model.RatingBucket `json:"filter"`
	Total   int                `json:"total"`
}

// Overview は評価区分で絞り込み、コメントと返信をサニタイズした一覧を返す。
func (v *FeedbackView) Overview(b model.RatingBucket) FeedbackOverview {
	snap := v.Snapshot()
	visible := FilterByBucket(snap.Items, b)
	items := make([]model.Feedback, len(visible))
	for i, f := range visible {
		f.Comment = v.sanitizer.SanitizeComment(f.Comment)
		f.AdminReply = v.sanitizer.SanitizeReply(f.AdminReply)
		items[i] = f
	}
	return FeedbackOverview{
		Items:   items,
		Loading: snap.Loading,
		Error:   snap.Error,
		Filter:  b,
		Total:   len(snap.Items),
	}
}
