package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/carbonex30/scheduler/pkg/response"
)

// MustGetID 从路径参数中提取 UUID。
// 格式非法时写入 400 响应，调用方应在 ok=false 时直接 return。
func MustGetID(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if _, err := uuid.Parse(id); err != nil {
		response.BadRequest(c, response.CodeInvalidID, "ID 格式非法")
		return "", false
	}
	return id, true
}

// QueryBool 读取布尔查询参数，缺省或非法时为 false
func QueryBool(c *gin.Context, name string) bool {
	v, err := strconv.ParseBool(c.Query(name))
	return err == nil && v
}

// RequestID 返回请求追踪 ID（由 RequestID 中间件注入）
func RequestID(c *gin.Context) string {
	return c.GetString("request_id")
}

// bindError 请求体绑定失败的统一响应；超出大小限制时返回 413
func bindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.TooLarge(c)
		return
	}
	response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeInvalidParam, "参数校验失败", err.Error())
}
