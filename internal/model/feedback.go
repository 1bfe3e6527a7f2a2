package model

import "fmt"

// Feedback はユーザーから寄せられた評価（0〜10、小数を含む）とコメントを表す。
type Feedback struct {
	ID         ID            `json:"id"`
	Rating     float64       `json:"rating"`
	Comment    string        `json:"comment"`
	CreatedAt  string        `json:"createdAt"`
	AdminReply string        `json:"adminReply,omitempty"`
	Archived   bool          `json:"archived,omitempty"`
	User       *FeedbackUser `json:"user,omitempty"`
}

// FeedbackUser はフィードバック投稿者の概要。
type FeedbackUser struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// RatingBucket は評価の区分を表す。
type RatingBucket string

const (
	// RatingAll はフィルタなしを示す。
	RatingAll RatingBucket = "all"
	// RatingHigh は評価8以上。
	RatingHigh RatingBucket = "high"
	// RatingMedium は評価5以上8未満。
	RatingMedium RatingBucket = "medium"
	// RatingLow は評価5未満。
	RatingLow RatingBucket = "low"
)

// PositiveRatingThreshold は好意的な評価とみなす下限。
const PositiveRatingThreshold = 8.0

// mediumRatingThreshold はRatingMediumの下限。
const mediumRatingThreshold = 5.0

// BucketOf は評価値から区分を求める。
func BucketOf(rating float64) RatingBucket {
	switch {
	case rating >= PositiveRatingThreshold:
		return RatingHigh
	case rating >= mediumRatingThreshold:
		return RatingMedium
	default:
		return RatingLow
	}
}

// Bucket はフィードバックの評価区分を返す。
func (f Feedback) Bucket() RatingBucket {
	return BucketOf(f.Rating)
}

// ParseRatingBucket はクエリパラメータからフィルタ区分を解析する。
// 空文字列はRatingAllとして扱う。
func ParseRatingBucket(s string) (RatingBucket, error) {
	switch RatingBucket(s) {
	case "", RatingAll:
		return RatingAll, nil
	case RatingHigh, RatingMedium, RatingLow:
		return RatingBucket(s), nil
	default:
		return "", fmt.Errorf("unknown rating bucket: %q", s)
	}
}
