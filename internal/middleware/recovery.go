package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/evxlab/certificate-api/pkg/errors"
	"github.com/evxlab/certificate-api/pkg/middleware/requestid"
	"github.com/evxlab/certificate-api/pkg/response"
)

// Recovery converts panics into the 500 envelope and logs them.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic recovered",
					zap.String("request_id", requestid.Value(c)),
					zap.String("path", c.Request.URL.Path),
					zap.Any("panic", rec),
					zap.Stack("stack"),
				)
				if c.Writer.Written() {
					c.Abort()
					return
				}
				response.Abort(c, appErrors.Wrap(fmt.Errorf("panic: %v", rec), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message))
			}
		}()
		c.Next()
	}
}
