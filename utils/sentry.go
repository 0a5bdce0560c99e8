package utils

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Firesolami/needles-sub001/config"
)

// InitSentry configures error reporting. Without a DSN the client is a no-op.
func InitSentry(cfg config.AppConfig) error {
	return sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.Environment,
	})
}

// CaptureError reports an unexpected fault raised while serving c.
func CaptureError(c *gin.Context, err error) {
	hub := sentry.CurrentHub().Clone()
	hub.Scope().SetRequest(c.Request)
	if id := c.GetString(RequestIDKey); id != "" {
		hub.Scope().SetTag("request_id", id)
	}
	hub.CaptureException(err)
}

// CapturePanic reports a recovered panic.
func CapturePanic(c *gin.Context, rec interface{}) {
	hub := sentry.CurrentHub().Clone()
	hub.Scope().SetRequest(c.Request)
	hub.Recover(rec)
}

// FlushSentry waits for buffered events to be sent.
func FlushSentry(timeout time.Duration) {
	if !sentry.Flush(timeout) {
		Logger.Warn("sentry flush timed out", zap.Duration("timeout", timeout))
	}
}
