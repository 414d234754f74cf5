package response

import (
	"Postpilot/internal/api/dto"
	"Postpilot/internal/service"
	"errors"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

const (
	Ok                  = 200
	BadRequest          = service.BadRequest
	Unauthorized        = service.Unauthorized
	Forbidden           = service.Forbidden
	NotFound            = service.NotFound
	InternalServerError = service.InternalServerError
)

// Success wraps data in the standard envelope
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, dto.Response{
		Code:    Ok,
		Message: "success",
		Data:    data,
	})
}

// Fail answers with a business code, the HTTP status stays 200
func Fail(c *gin.Context, businessCode int, message string) {
	FailKind(c, businessCode, "", message)
}

func FailKind(c *gin.Context, businessCode int, kind service.Kind, message string) {
	c.JSON(http.StatusOK, dto.Response{
		Code:    businessCode,
		Kind:    string(kind),
		Message: message,
		Data:    nil,
	})
}

// Error maps err to its business code and kind
func Error(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		FailKind(c, BadRequest, service.KindValidation, err.Error())
		return
	}

	var unmarshalTypeError *json.UnmarshalTypeError
	if errors.As(err, &unmarshalTypeError) {
		FailKind(c, BadRequest, service.KindValidation, "malformed json")
		return
	}

	code, ok := service.CodeOf(err)
	if !ok {
		log.ErrorContext(c.Request.Context(), "unhandled error", "err", err)
		FailKind(c, InternalServerError, service.KindInternal, service.UnExpectedError.Error())
		return
	}
	kind := service.KindOf(err)
	if errors.Is(err, service.UnauthorizedError) {
		kind = ""
	}
	FailKind(c, code, kind, err.Error())
}
