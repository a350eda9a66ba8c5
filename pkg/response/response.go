// Package response writes the JSON envelope every endpoint answers with:
// {"success": bool, "message": string, ...payload keys, "error": details?}.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Payload keys are merged into the envelope next to success and message.
type Payload = gin.H

func envelope(success bool, message string, payload Payload) gin.H {
	body := gin.H{}
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = success
	body["message"] = message
	return body
}

// Success writes a successful envelope. A zero status means 200.
func Success(c *gin.Context, status int, message string, payload Payload) {
	if status == 0 {
		status = http.StatusOK
	}
	c.JSON(status, envelope(true, message, payload))
}

// Error writes a failed envelope and aborts the handler chain. details is
// omitted when nil.
func Error(c *gin.Context, status int, message string, details any) {
	if status == 0 {
		status = http.StatusBadRequest
	}
	var payload Payload
	if details != nil {
		payload = Payload{"error": details}
	}
	c.AbortWithStatusJSON(status, envelope(false, message, payload))
}
