package web

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// TraceLog writes one line per handled request once the rest of the chain
// has finished. The partner protocol answers 200 even for protocol errors,
// so the duration and size fields matter more here than the status code.
func TraceLog(c *gin.Context) {
	c.Next()

	logger := c.MustGet("logger").(*zerolog.Logger)
	startTime := c.MustGet("requestStartTime").(time.Time)

	logger.Info().
		Str("label", "trace").
		Str("method", c.Request.Method).
		Str("url", c.Request.URL.Path).
		Int("code", c.Writer.Status()).
		Int("size", c.Writer.Size()).
		Float64("duration", time.Since(startTime).Seconds()).
		Msg("")
}
