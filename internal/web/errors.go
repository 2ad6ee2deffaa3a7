package web

import (
	"github.com/gin-gonic/gin"

	"bitbucket.org/vron/connector-hub/internal/viator"
)

// handleError answers with a minimal partner-shaped XML error document.
// Used for failures that happen before the dispatcher can build a proper
// response.
func handleError(c *gin.Context, status int, message string) {
	body := viator.ErrorResponse("Response", &viator.RequestError{
		Message: message,
	})
	c.Data(status, "application/xml; charset=utf-8", body)
	c.Abort()
}
