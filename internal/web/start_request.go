package web

import (
	"time"

	"github.com/gin-gonic/gin"
)

// CurrentTimeFunc is swapped out by tests that pin the request clock.
var CurrentTimeFunc = time.Now

// StartRequest stamps the arrival time used by the trace log's duration.
func StartRequest(c *gin.Context) {
	c.Set("requestStartTime", CurrentTimeFunc())
}
