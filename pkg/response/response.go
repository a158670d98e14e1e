package response

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"

	"PaintDesk/pkg/errors"
)

// ErrorResponse 统一的错误响应格式
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Details map[string]interface{} `json:"details,omitempty"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
}

// SuccessResponse 统一的成功响应格式
type SuccessResponse struct {
	Data interface{}            `json:"data"`
	Meta map[string]interface{} `json:"meta,omitempty"`
}

func errorToHTTPStatus(err error) int {
	def, ok := err.(errors.Definition)
	if !ok {
		return http.StatusInternalServerError
	}

	// 根据错误码映射 HTTP 状态码
	switch def.Code {
	case "TOO_MANY_REQUESTS":
		return http.StatusTooManyRequests // 429
	case "QUEUE_NOT_FOUND", "JOB_NOT_FOUND", "REMINDER_NOT_FOUND":
		return http.StatusNotFound // 404
	case "JOB_NOT_FAILED", "QUEUE_ALREADY_PAUSED", "REMINDER_NOT_CANCELLABLE",
		"RECIPIENT_MISSING", "CHANNEL_INVALID", "INVALID_REQUEST":
		return http.StatusBadRequest // 400
	default:
		return http.StatusInternalServerError // 500
	}
}

// Error 返回错误响应
func Error(ctx context.Context, c *app.RequestContext, err error) {
	status := errorToHTTPStatus(err)

	detail := ErrorDetail{
		Code:    "INTERNAL_SERVER_ERROR",
		Message: err.Error(),
	}
	if def, ok := err.(errors.Definition); ok {
		detail.Code = def.Code
		detail.Message = def.Message
	}

	c.JSON(status, ErrorResponse{Error: detail})
}

// ErrorWithDetails 返回带详情的错误响应
func ErrorWithDetails(ctx context.Context, c *app.RequestContext, def errors.Definition, details map[string]interface{}) {
	c.JSON(errorToHTTPStatus(def), ErrorResponse{
		Error: ErrorDetail{
			Code:    def.Code,
			Message: def.Message,
			Details: details,
		},
	})
}

// Success 返回成功响应
func Success(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{Data: data})
}

// SuccessWithMeta 返回带 meta 的成功响应
func SuccessWithMeta(ctx context.Context, c *app.RequestContext, data interface{}, meta map[string]interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{Data: data, Meta: meta})
}
