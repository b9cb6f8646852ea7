package utils

import (
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestIDKey is the gin context key holding the per-request id.
const RequestIDKey = "request_id"

// Ginzap returns a gin middleware that writes one access-log entry per request.
func Ginzap(gl *zap.Logger, timeFormat string, utc bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		path := ctx.Request.URL.Path
		query := ctx.Request.URL.RawQuery

		ctx.Next()

		end := time.Now()
		latency := end.Sub(start)
		if utc {
			end = end.UTC()
		}

		fields := []zap.Field{
			zap.Int("status", ctx.Writer.Status()),
			zap.String("method", ctx.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", ctx.ClientIP()),
			zap.String("user-agent", ctx.Request.UserAgent()),
			zap.String("time", end.Format(timeFormat)),
			zap.Duration("latency", latency),
		}
		if id, ok := ctx.Get(RequestIDKey); ok {
			fields = append(fields, zap.Any("request_id", id))
		}

		if len(ctx.Errors) > 0 {
			for _, e := range ctx.Errors.Errors() {
				gl.Error(e, fields...)
			}
			return
		}
		gl.Info(path, fields...)
	}
}

// RecoveryWithZap recovers from panics, logs them and answers with a 500 envelope.
func RecoveryWithZap(gl *zap.Logger, stack bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				// a broken client connection is not worth a stack trace
				var brokenPipe bool
				if ne, ok := err.(*net.OpError); ok {
					var se *os.SyscallError
					if errors.As(ne, &se) {
						msg := strings.ToLower(se.Error())
						brokenPipe = strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
					}
				}

				httpRequest, _ := httputil.DumpRequest(ctx.Request, false)
				if brokenPipe {
					gl.Error(ctx.Request.URL.Path, zap.Any("error", err), zap.String("request", string(httpRequest)))
					if e, ok := err.(error); ok {
						_ = ctx.Error(e)
					}
					ctx.Abort()
					return
				}

				fields := []zap.Field{
					zap.Time("time", time.Now()),
					zap.Any("error", err),
					zap.String("request", string(httpRequest)),
				}
				if stack {
					fields = append(fields, zap.String("stack", string(debug.Stack())))
				}
				gl.Error("[Recovery from panic]", fields...)
				Error(ctx, http.StatusInternalServerError, 50000, "Internal Server Error")
			}
		}()
		ctx.Next()
	}
}
