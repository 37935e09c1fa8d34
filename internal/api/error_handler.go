package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-arena-booking/internal/domain/admin"
	"github.com/sanosuguru/go-arena-booking/internal/domain/booking"
	"github.com/sanosuguru/go-arena-booking/internal/pkg/logger"
)

// エラーコード
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodePastDate           = "PAST_DATE"
	CodeHorizonExceeded    = "HORIZON_EXCEEDED"
	CodeOutOfHours         = "OUT_OF_HOURS"
	CodeInvalidDuration    = "INVALID_DURATION"
	CodeInvalidStatus      = "INVALID_STATUS"
	CodeRateLimited        = "RATE_LIMITED"
	CodeTimeConflict       = "TIME_CONFLICT"
	CodeModificationWindow = "MODIFICATION_WINDOW"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeStoreUnavailable   = "STORE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

const (
	storeUnavailableMessage = "サービスが一時的に利用できません。しばらくしてから再度お試しください"
	internalErrorMessage    = "内部サーバーエラー"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code     string          `json:"code"`
	Message  string          `json:"message"`
	Field    string          `json:"field,omitempty"`
	Conflict *ConflictWindow `json:"conflict,omitempty"`
}

// ConflictWindow は重複した既存予約の時間帯
type ConflictWindow struct {
	Date  string `json:"date,omitempty"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type domainMapping struct {
	target error
	status int
	code   string
}

// 判定順に並べる。ErrInvalidStatusChange は ErrInvalidStatus を包むので後者で拾える
var domainMappings = []domainMapping{
	{booking.ErrStoreUnavailable, http.StatusServiceUnavailable, CodeStoreUnavailable},
	{booking.ErrValidation, http.StatusBadRequest, CodeValidation},
	{booking.ErrPastDate, http.StatusBadRequest, CodePastDate},
	{booking.ErrHorizonExceeded, http.StatusBadRequest, CodeHorizonExceeded},
	{booking.ErrOutOfHours, http.StatusBadRequest, CodeOutOfHours},
	{booking.ErrInvalidDuration, http.StatusBadRequest, CodeInvalidDuration},
	{booking.ErrInvalidStatus, http.StatusBadRequest, CodeInvalidStatus},
	{booking.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited},
	{booking.ErrTimeConflict, http.StatusConflict, CodeTimeConflict},
	{booking.ErrModificationWindow, http.StatusUnprocessableEntity, CodeModificationWindow},
	{booking.ErrBookingNotFound, http.StatusNotFound, CodeNotFound},
	{admin.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
	{admin.ErrForbidden, http.StatusForbidden, CodeForbidden},
}

// Classify はエラーをHTTPステータスとレスポンス本文に変換する
func Classify(err error) (int, ErrorBody) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, ErrorBody{Code: httpErrorCode(he.Code), Message: httpErrorMessage(he)}
	}

	for _, m := range domainMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		body := ErrorBody{Code: m.code, Message: err.Error()}
		switch m.code {
		case CodeStoreUnavailable:
			body.Message = storeUnavailableMessage
		case CodeUnauthorized:
			// リゾルバのエラー詳細は返さない
			if errors.Is(err, admin.ErrNoAuthorizationHeader) {
				body.Message = admin.ErrNoAuthorizationHeader.Error()
			} else {
				body.Message = admin.ErrInvalidToken.Error()
			}
		case CodeValidation:
			var ve *booking.ValidationError
			if errors.As(err, &ve) {
				body.Field = ve.Field
				body.Message = ve.Reason
			}
		case CodeTimeConflict:
			var ce *booking.ConflictError
			if errors.As(err, &ce) {
				body.Conflict = &ConflictWindow{
					Date:  ce.Date,
					Start: booking.FormatMinutes(ce.Range.Start),
					End:   booking.FormatMinutes(ce.Range.End),
				}
			}
		}
		return m.status, body
	}

	return http.StatusInternalServerError, ErrorBody{Code: CodeInternal, Message: internalErrorMessage}
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := Classify(err)

	// 5xx は詳細をログにだけ残す
	if status >= http.StatusInternalServerError {
		logger.Ctx(c.Request().Context()).Error("サーバーエラー",
			zap.Int("status", status),
			zap.String("code", body.Code),
			zap.String("path", c.Request().URL.Path),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.Error(err),
		)
	}

	if err := c.JSON(status, ErrorResponse{Error: body}); err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}

func httpErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusTooManyRequests:
		return CodeRateLimited
	}
	if status >= http.StatusInternalServerError {
		return CodeInternal
	}
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}

func httpErrorMessage(he *echo.HTTPError) string {
	if he.Code >= http.StatusInternalServerError {
		return internalErrorMessage
	}
	if m, ok := he.Message.(string); ok {
		return m
	}
	return http.StatusText(he.Code)
}
