package web

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const correlationHeader = "x-correlation-id"

// CorrelationId keeps the partner-supplied correlation id, or mints one so
// a booking can always be traced end to end through the logs.
func CorrelationId(c *gin.Context) {
	correlationId := c.GetHeader(correlationHeader)
	if correlationId == "" {
		correlationId = uuid.New().String()
	}

	c.Set("correlationId", correlationId)
}
