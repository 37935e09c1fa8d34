package api

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sanosuguru/go-arena-booking/internal/domain/booking"
)

// CustomValidator はEcho用のカスタムバリデーター
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator は json タグ名でフィールドを報告するバリデーターを作成する
func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return &CustomValidator{validator: v}
}

// Validate はリクエストを検証し、最初の違反を ValidationError として返す
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		fe := errs[0]
		return &booking.ValidationError{Field: fe.Field(), Reason: reason(fe)}
	}
	return &booking.ValidationError{Field: "body", Reason: err.Error()}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " は必須です"
	case "max":
		return fe.Field() + " は " + fe.Param() + " 以内で指定してください"
	case "min":
		return fe.Field() + " は " + fe.Param() + " 以上で指定してください"
	case "datetime":
		return fe.Field() + " の形式が不正です"
	case "oneof":
		return fe.Field() + " は " + fe.Param() + " のいずれかです"
	}
	return fe.Field() + " が不正です"
}
