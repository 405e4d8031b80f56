package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"classroom-attendance/pkg/response"
)

// MustGetParam 从路径参数中提取非空值。
// 参数缺失时写入 400 响应并返回 false，调用方应在 ok=false 时直接 return。
func MustGetParam(c *gin.Context, key, message string) (string, bool) {
	v := strings.TrimSpace(c.Param(key))
	if v == "" {
		response.BadRequest(c, 10001, message)
		return "", false
	}
	return v, true
}

// badBinding 写入参数绑定失败响应；请求体超过 BodyLimit 上限时返回 413
func badBinding(c *gin.Context, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "Request body too large")
		return
	}
	response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "Invalid request parameters", bindingDetails(err))
}
