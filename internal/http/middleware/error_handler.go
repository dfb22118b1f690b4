package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/zealits/bulkpayout-sub001/internal/shared/apperr"
)

func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ErrorHandler turns deferred gin errors into the JSON error envelope. Runs
// after the handler chain; handlers that already wrote a body are left alone.
func ErrorHandler(l *slog.Logger) gin.HandlerFunc {
	if l == nil {
		l = slog.Default()
	}
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := apperr.HTTPStatus(err)
		publicMsg := apperr.PublicMessage(err)
		rid := GetRequestID(c)

		level := slog.LevelWarn
		if status >= 500 {
			level = slog.LevelError
		}
		l.LogAttrs(c.Request.Context(), level, "request_failed",
			slog.String("request_id", rid),
			slog.Int("status", status),
			slog.Any("err", err),
		)

		// Every failure response carries the full envelope: a short machine
		// code, the human message, and the advice block. Missing advice
		// fields get conservative defaults.
		code := "internal"
		advice := apperr.Advice{Severity: "error", Action: "none"}
		var details map[string]string
		if ae, ok := apperr.As(err); ok {
			code = string(ae.Kind)
			if ae.Code != "" {
				code = ae.Code
			}
			if ae.Advice != (apperr.Advice{}) {
				advice = ae.Advice
			}
			if advice.Severity == "" {
				advice.Severity = "error"
			}
			if advice.Action == "" {
				advice.Action = "none"
			}
			details = ae.Fields
		}
		c.AbortWithStatusJSON(status, gin.H{
			"error":      code,
			"message":    publicMsg,
			"suggestion": advice.Suggestion,
			"action":     advice.Action,
			"severity":   advice.Severity,
			"retryable":  advice.Retryable,
			"details":    details,
			"request_id": rid,
		})
	}
}
