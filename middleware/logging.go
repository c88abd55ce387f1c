package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"layout-translator/logger"
)

// RequestLogger 用结构化日志记录每个请求
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logger.Fields{
			"方法": c.Request.Method,
			"路径": c.FullPath(),
			"状态": c.Writer.Status(),
			"耗时": time.Since(start).String(),
		}
		if id := GetSessionID(c); len(id) >= 8 {
			fields["会话"] = id[:8]
		}
		if len(c.Errors) > 0 {
			fields["错误"] = c.Errors.String()
		}
		switch {
		case c.Writer.Status() >= 500:
			log.Warn("请求失败", fields)
		default:
			log.Debug("请求完成", fields)
		}
	}
}
