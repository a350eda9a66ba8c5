package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/bizbridge-auth/pkg/apperror"
	"github.com/oksasatya/bizbridge-auth/pkg/response"
	"github.com/oksasatya/bizbridge-auth/pkg/validation"
)

// ErrorResponder turns the last error a handler attached with c.Error into the
// JSON envelope. Only the public message is written; the cause is logged.
// Binding errors (gin.ErrorTypeBind) become Validation with field details.
func ErrorResponder(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		var appErr *apperror.Error
		if last.IsType(gin.ErrorTypeBind) {
			appErr = apperror.Wrap(apperror.KindValidation, "invalid request payload", last.Err).
				WithDetails(validation.ToDetails(last.Err))
		} else {
			appErr = apperror.From(last.Err)
		}
		status := appErr.Kind.Status()

		entry := logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     status,
			"kind":       string(appErr.Kind),
		})
		if appErr.Err != nil {
			entry = entry.WithError(appErr.Err)
		}
		if status >= 500 {
			entry.Error(appErr.Message)
		} else {
			entry.Debug(appErr.Message)
		}

		response.Error(c, status, appErr.Message, appErr.Details)
	}
}
