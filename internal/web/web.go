package web

import (
	"io"
	"net/http"
	"os"
	"time"

	"bitbucket.org/vron/connector-hub/internal/connector"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const maxRequestBody = 1 << 20

func SetupRouter(log *zerolog.Logger, dispatcher *connector.Dispatcher) *gin.Engine {
	startTime := time.Now()

	router := gin.New()

	if os.Getenv("ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router.
		Use(StartRequest).
		Use(CorrelationId).
		Use(RegisterLogger(log)).
		Use(TraceLog).
		Use(PanicRecovery)

	router.POST("/connector/api", func(c *gin.Context) {
		logger := c.MustGet("logger").(*zerolog.Logger)

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestBody))
		if err != nil {
			handleError(c, http.StatusOK, "The content could not be read")
			return
		}

		response := dispatcher.Handle(c.Request.Context(), body, logger)
		c.Data(http.StatusOK, "application/xml; charset=utf-8", response)
	})

	router.GET("/status", func(c *gin.Context) {
		response := struct {
			Uptime float64 `json:"uptime"`
		}{
			Uptime: time.Since(startTime).Seconds(),
		}

		c.JSON(http.StatusOK, response)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	pprof.Register(router)

	return router
}
