package web

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RegisterLogger derives a per-request logger carrying the correlation id.
// Everything downstream, including the dispatcher and the RON transport,
// logs through it. Must run after CorrelationId.
func RegisterLogger(logger *zerolog.Logger) func(c *gin.Context) {
	return func(c *gin.Context) {
		correlationId := c.MustGet("correlationId").(string)

		requestLogger := logger.
			With().
			Str("correlationId", correlationId).
			Logger()

		c.Set("logger", &requestLogger)
	}
}
