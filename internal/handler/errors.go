// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"polyglot-chat/internal/service"
)

// statusFor 将业务错误映射为 HTTP 状态码。
func statusFor(err error) int {
	var (
		vErr *service.ValidationError
		tErr *service.TranslationError
		uErr *service.UpstreamError
		sErr *service.StorageError
	)
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest
	case errors.As(err, &tErr):
		if tErr.Unrecognized() {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	case errors.As(err, &uErr), errors.As(err, &sErr):
		return http.StatusInternalServerError
	case errors.Is(err, service.ErrSearchDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
