package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bitbucket.org/vron/connector-hub/internal/connector"
	"bitbucket.org/vron/connector-hub/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func testRouter() http.Handler {
	logger := zerolog.Nop()
	memory := store.NewMemory()

	dispatcher := connector.New(connector.Options{
		Configs:  memory,
		HostKeys: memory,
	})

	return SetupRouter(&logger, dispatcher)
}

func TestRouter(t *testing.T) {
	t.Run("should report uptime on the status endpoint", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/status", nil)

		testRouter().ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "uptime")
	})

	t.Run("should expose prometheus metrics", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/metrics", nil)

		testRouter().ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("should always answer the connector endpoint with xml", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodPost, "/connector/api", strings.NewReader("not xml at all"))

		testRouter().ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Header().Get("Content-Type"), "application/xml")
		assert.Contains(t, recorder.Body.String(), "Invalid XML - Missing starting tag")
	})

	t.Run("should answer an empty body with an error document", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodPost, "/connector/api", strings.NewReader(""))

		testRouter().ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "The content was empty")
	})
}
