// Package dashboard は読み取り専用のメトリクス画面を提供する。
// 必要なコレクションを並行に取得し、1回の同期的な集計で画面の値を求める。
package dashboard

import (
	"fmt"
	"slices"

	"github.com/hitoshi/adminpanel/internal/model"
)

// 画面に表示する推定値の係数（R$）
const (
	LTVPerProUser = 50
	ROIPerProUser = 20
	EstimatedCAC  = 10
)

// 画面に表示する固定のリテンション率（%）
const (
	RetentionD1  = 45
	RetentionD7  = 25
	RetentionD30 = 10
)

// UnknownSource は流入元が未設定のユーザーをまとめる区分名。
const UnknownSource = "N/A"

// 機能利用グラフのラベル
const (
	FeatureFinancas     = "Finanças"
	FeatureCompromissos = "Compromissos"
	FeatureConteudo     = "Conteúdo"
	FeatureGamificacao  = "Gamificação"
)

// Rate はsubset/total*100を返す。totalが0の場合は0。
func Rate(subset, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(subset) / float64(total) * 100
}

// FormatRate は率を小数点以下decimals桁のパーセント表記にする。
func FormatRate(rate float64, decimals int) string {
	return fmt.Sprintf("%.*f%%", decimals, rate)
}

// CountPlan は指定プランのユーザー数を数える。
func CountPlan(users []model.User, plan string) int {
	n := 0
	for _, u := range users {
		if u.Plan == plan {
			n++
		}
	}
	return n
}

// ChurnRate は解約済みユーザーの割合（%）を返す。
func ChurnRate(users []model.User) float64 {
	churned := 0
	for _, u := range users {
		if u.Churned {
			churned++
		}
	}
	return Rate(churned, len(users))
}

// SourceBucket は流入元ごとのプラン別ユーザー数。Pro以外はfreeに数える。
type SourceBucket struct {
	Name string `json:"name"`
	Free int    `json:"free"`
	Pro  int    `json:"pro"`
}

// GroupBySource は流入元でユーザーをまとめる。
// 結果は最初に現れた順に並び、流入元が空のユーザーはN/Aに入る。
func GroupBySource(users []model.User) []SourceBucket {
	index := make(map[string]int)
	buckets := make([]SourceBucket, 0)
	for _, u := range users {
		src := u.Source
		if src == "" {
			src = UnknownSource
		}
		i, ok := index[src]
		if !ok {
			i = len(buckets)
			index[src] = i
			buckets = append(buckets, SourceBucket{Name: src})
		}
		if u.Plan == model.PlanPro {
			buckets[i].Pro++
		} else {
			buckets[i].Free++
		}
	}
	return buckets
}

// FeatureCount は機能ごとの利用件数。
type FeatureCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// FeatureUsage は4つの機能コレクションの件数をグラフ用の系列にする。
func FeatureUsage(financas, compromissos, conteudo, gamificacao int) []FeatureCount {
	return []FeatureCount{
		{Name: FeatureFinancas, Count: financas},
		{Name: FeatureCompromissos, Count: compromissos},
		{Name: FeatureConteudo, Count: conteudo},
		{Name: FeatureGamificacao, Count: gamificacao},
	}
}

// MostUsedFeature は最も件数の多い機能名を返す。
// 同数の場合は先に並んでいる方を返し、系列が空ならN/A。
func MostUsedFeature(usage []FeatureCount) string {
	if len(usage) == 0 {
		return UnknownSource
	}
	sorted := slices.Clone(usage)
	slices.SortStableFunc(sorted, func(a, b FeatureCount) int {
		return b.Count - a.Count
	})
	return sorted[0].Name
}

// PositiveFeedback は好意的な評価（8以上）のフィードバックを返す。
func PositiveFeedback(items []model.Feedback) []model.Feedback {
	out := make([]model.Feedback, 0)
	for _, f := range items {
		if f.Rating >= model.PositiveRatingThreshold {
			out = append(out, f)
		}
	}
	return out
}

// ARPU はProユーザー1人あたりの推定収益。Proユーザーがいない場合は0。
func ARPU(pro int) float64 {
	if pro <= 0 {
		return 0
	}
	return float64(pro*ROIPerProUser) / float64(pro)
}
