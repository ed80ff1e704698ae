package mw

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogger logs one line per request once it has been served.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if role := c.GetHeader(RoleHeader); role != "" {
			fields = append(fields, zap.String("role", role))
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("request served", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			log.Warn("request served", fields...)
		default:
			log.Info("request served", fields...)
		}
	}
}

// Recovery turns a panic in a handler into a 500 JSON response.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error("unhandled panic",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
		}()
		c.Next()
	}
}
