package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carbonex30/scheduler/pkg/response"
)

// BodyLimit 全局请求体大小限制中间件
// maxBytes: 允许的最大请求体字节数（训练数据随请求上传，默认 8MB）
//
// 声明了 Content-Length 的请求直接拒绝；分块上传的请求体由 MaxBytesReader
// 截断，Handler 绑定时收到 *http.MaxBytesError 并返回 413。
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			response.TooLarge(c)
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
