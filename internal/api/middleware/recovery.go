package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"bms-server/internal/domain"
)

// RecoveryMiddleware converts panics into a 500 response without leaking
// the stack to the client.
func RecoveryMiddleware(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("panic recovered",
			"request_id", GetRequestID(c),
			"panic", recovered,
			"stack", string(debug.Stack()),
		)

		abortWithError(c, domain.NewInternalError(
			"PANIC_RECOVERED",
			"An internal error occurred",
			fmt.Errorf("panic: %v", recovered),
		))
	})
}
