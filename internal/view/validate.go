package view

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/adminpanel/internal/model"
)

// newValidator はJSONタグ名でフィールドを報告するバリデータを生成する。
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError はバリデーションエラーをVALIDATION_FAILEDに変換する。
// 例: "email (email), name (required)"
func validationError(err error) *model.APIError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return model.NewValidationFailedError(err.Error())
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+" ("+fe.Tag()+")")
	}
	return model.NewValidationFailedError(strings.Join(parts, ", "))
}
