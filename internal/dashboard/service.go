package dashboard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/adminpanel/internal/apiclient"
	"github.com/hitoshi/adminpanel/internal/model"
	"github.com/hitoshi/adminpanel/internal/security"
)

// Service はメトリクス画面のビューモデルを組み立てる。
// 呼び出しごとに必要なコレクションを取得し、結果はキャッシュしない。
type Service struct {
	api       apiclient.Requester
	sanitizer security.ContentSanitizer
	logger    *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(api apiclient.Requester, sanitizer security.ContentSanitizer, logger *slog.Logger) *Service {
	return &Service{api: api, sanitizer: sanitizer, logger: logger}
}

// Overview はダッシュボードトップの集計値。
type Overview struct {
	TotalUsers       int            `json:"total_users"`
	ProUsers         int            `json:"pro_users"`
	PremiumUsers     int            `json:"premium_users"`
	ChurnRate        float64        `json:"churn_rate"`
	ChurnRateLabel   string         `json:"churn_rate_label"`
	LTV              int            `json:"ltv"`
	ROI              int            `json:"roi"`
	PositiveFeedback int            `json:"positive_feedback"`
	FeatureUsage     []FeatureCount `json:"feature_usage"`
}

// Overview はユーザー、4機能、フィードバックの6コレクションから集計する。
func (s *Service) Overview(ctx context.Context, auth apiclient.Auth) (*Overview, error) {
	var (
		users        []model.User
		financas     []model.Record
		compromissos []model.Record
		conteudo     []model.Record
		gamificacao  []model.Record
		feedback     []model.Feedback
	)
	if err := s.load(ctx, "overview", auth,
		target(pathUsers, &users),
		target(pathFinancas, &financas),
		target(pathCompromissos, &compromissos),
		target(pathConteudo, &conteudo),
		target(pathGamificacao, &gamificacao),
		target(pathFeedback, &feedback),
	); err != nil {
		return nil, err
	}

	pro := CountPlan(users, model.PlanPro)
	churn := ChurnRate(users)
	return &Overview{
		TotalUsers:       len(users),
		ProUsers:         pro,
		PremiumUsers:     CountPlan(users, model.PlanPremium),
		ChurnRate:        churn,
		ChurnRateLabel:   FormatRate(churn, 1),
		LTV:              pro * LTVPerProUser,
		ROI:              pro * ROIPerProUser,
		PositiveFeedback: len(PositiveFeedback(feedback)),
		FeatureUsage:     FeatureUsage(len(financas), len(compromissos), len(conteudo), len(gamificacao)),
	}, nil
}

// Conversion はコンバージョン画面の集計値。
type Conversion struct {
	TotalUsers          int            `json:"total_users"`
	ProUsers            int            `json:"pro_users"`
	ChurnRate           float64        `json:"churn_rate"`
	ConversionRate      float64        `json:"conversion_rate"`
	ConversionRateLabel string         `json:"conversion_rate_label"`
	EstimatedROI        int            `json:"estimated_roi"`
	CAC                 int            `json:"cac"`
	ARPU                float64        `json:"arpu"`
	BySource            []SourceBucket `json:"by_source"`
}

// Conversion はユーザー一覧から流入元別のコンバージョンを集計する。
func (s *Service) Conversion(ctx context.Context, auth apiclient.Auth) (*Conversion, error) {
	var users []model.User
	if err := s.load(ctx, "conversion", auth, target(pathUsers, &users)); err != nil {
		return nil, err
	}

	total := len(users)
	pro := CountPlan(users, model.PlanPro)
	rate := Rate(pro, total)
	label := "0%"
	if total > 0 {
		label = FormatRate(rate, 2)
	}
	return &Conversion{
		TotalUsers:          total,
		ProUsers:            pro,
		ChurnRate:           ChurnRate(users),
		ConversionRate:      rate,
		ConversionRateLabel: label,
		EstimatedROI:        pro * ROIPerProUser,
		CAC:                 EstimatedCAC,
		ARPU:                ARPU(pro),
		BySource:            GroupBySource(users),
	}, nil
}

// Engagement はエンゲージメント画面の集計値。
type Engagement struct {
	TotalUsers      int            `json:"total_users"`
	MostUsedFeature string         `json:"most_used_feature"`
	FeatureUsage    []FeatureCount `json:"feature_usage"`
	LTV             int            `json:"ltv"`
	RetentionD1     int            `json:"retention_d1"`
	RetentionD7     int            `json:"retention_d7"`
	RetentionD30    int            `json:"retention_d30"`
}

// Engagement はユーザーと4機能のコレクションから利用状況を集計する。
func (s *Service) Engagement(ctx context.Context, auth apiclient.Auth) (*Engagement, error) {
	var (
		users        []model.User
		financas     []model.Record
		compromissos []model.Record
		conteudo     []model.Record
		gamificacao  []model.Record
	)
	if err := s.load(ctx, "engagement", auth,
		target(pathUsers, &users),
		target(pathFinancas, &financas),
		target(pathCompromissos, &compromissos),
		target(pathConteudo, &conteudo),
		target(pathGamificacao, &gamificacao),
	); err != nil {
		return nil, err
	}

	usage := FeatureUsage(len(financas), len(compromissos), len(conteudo), len(gamificacao))
	return &Engagement{
		TotalUsers:      len(users),
		MostUsedFeature: MostUsedFeature(usage),
		FeatureUsage:    usage,
		LTV:             CountPlan(users, model.PlanPro) * LTVPerProUser,
		RetentionD1:     RetentionD1,
		RetentionD7:     RetentionD7,
		RetentionD30:    RetentionD30,
	}, nil
}

// SupportDetail はサポート画面で展開する明細の種類。
type SupportDetail string

const (
	SupportSummary       SupportDetail = ""
	SupportCommands      SupportDetail = "commands"
	SupportBugs          SupportDetail = "bugs"
	SupportCancellations SupportDetail = "cancellations"
	SupportFeedbacks     SupportDetail = "feedbacks"
)

// ParseSupportDetail はクエリパラメータから明細の種類を解析する。空文字列は概要表示。
func ParseSupportDetail(s string) (SupportDetail, error) {
	switch d := SupportDetail(s); d {
	case SupportSummary, SupportCommands, SupportBugs, SupportCancellations, SupportFeedbacks:
		return d, nil
	default:
		return "", fmt.Errorf("unknown support view: %q", s)
	}
}

// detailTitles は明細ごとの見出し。
var detailTitles = map[SupportDetail]string{
	SupportCommands:      "Comandos Não Reconhecidos",
	SupportBugs:          "Bugs Reportados",
	SupportCancellations: "Detalhes dos Cancelamentos",
	SupportFeedbacks:     "Depoimentos Positivos",
}

// SupportCounts はサポート画面のカードに表示する件数。
type SupportCounts struct {
	UnrecognizedCommands int `json:"unrecognized_commands"`
	BugsReported         int `json:"bugs_reported"`
	Cancellations        int `json:"cancellations"`
	Testimonials         int `json:"testimonials"`
}

// Support はサポート画面のビューモデル。Detailが空の場合は件数のみを返す。
type Support struct {
	Counts      SupportCounts       `json:"counts"`
	Detail      SupportDetail       `json:"detail,omitempty"`
	DetailTitle string              `json:"detail_title,omitempty"`
	Items       []model.SupportItem `json:"items,omitempty"`
}

// Support はサポート指標と好意的なフィードバックを取得し、指定された明細を組み立てる。
func (s *Service) Support(ctx context.Context, auth apiclient.Auth, detail SupportDetail) (*Support, error) {
	var (
		metrics  model.SupportMetrics
		feedback []model.Feedback
	)
	if err := s.load(ctx, "support", auth,
		target(pathSupportMetrics, &metrics),
		target(pathFeedback, &feedback),
	); err != nil {
		return nil, err
	}

	testimonials := s.testimonials(PositiveFeedback(feedback))
	out := &Support{
		Counts: SupportCounts{
			UnrecognizedCommands: len(metrics.UnrecognizedCommands),
			BugsReported:         len(metrics.BugsReported),
			Cancellations:        len(metrics.Cancellations),
			Testimonials:         len(testimonials),
		},
		Detail:      detail,
		DetailTitle: detailTitles[detail],
	}

	switch detail {
	case SupportCommands:
		out.Items = metrics.UnrecognizedCommands
	case SupportBugs:
		out.Items = metrics.BugsReported
	case SupportCancellations:
		out.Items = metrics.Cancellations
	case SupportFeedbacks:
		out.Items = testimonials
	}
	return out, nil
}

// testimonials はフィードバックを「Nota: <評価> - "<コメント>"」形式の明細にする。
func (s *Service) testimonials(items []model.Feedback) []model.SupportItem {
	out := make([]model.SupportItem, 0, len(items))
	for _, f := range items {
		out = append(out, model.SupportItem{
			ID:      f.ID,
			Message: fmt.Sprintf("Nota: %g - \"%s\"", f.Rating, s.sanitizer.SanitizeReply(f.Comment)),
			Rating:  f.Rating,
		})
	}
	return out
}

func (s *Service) load(ctx context.Context, view string, auth apiclient.Auth, targets ...fetchTarget) error {
	if err := loadAll(ctx, s.api, auth, targets...); err != nil {
		s.logger.Warn("メトリクスの取得に失敗しました",
			slog.String("view", view),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}
