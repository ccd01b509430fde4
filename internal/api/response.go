// Package api provides the HTTP handlers and response envelope for the
// auth core.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"bms-server/internal/domain"
)

var errHandler = domain.NewErrorHandler(slog.Default())

// SuccessResponse writes the standard success envelope.
func SuccessResponse(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// MessageResponse writes a success envelope carrying only a message.
func MessageResponse(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
	})
}

// ErrorResponse maps an error onto the standard error envelope.
func ErrorResponse(c *gin.Context, err error) {
	status, response := errHandler.HandleError(err)
	c.JSON(status, gin.H{
		"success": false,
		"error":   response,
	})
}

// BindingErrorResponse reports a malformed request body.
func BindingErrorResponse(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": domain.APIError{
			Type:    string(domain.ValidationError),
			Code:    "INVALID_REQUEST",
			Message: "Invalid request format",
			Details: map[string]interface{}{"error": err.Error()},
		},
	})
}
