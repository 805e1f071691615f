package utils

import (
	"github.com/gin-gonic/gin"
)

// JSONResponse writes the service's response envelope: the HTTP status
// repeated in the body, a human-readable message, and the payload under
// "data". Every successful endpoint uses this shape.
func JSONResponse(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// JSONError writes the failure envelope. The error string goes under
// "error" instead of "data"; callers pick the message, so internal
// detail stays out of it.
func JSONError(c *gin.Context, status int, err error, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"error":   err.Error(),
	})
}
