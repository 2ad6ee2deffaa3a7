//go:build !integration

package main

import (
	"context"
	"fmt"
	"net/http"
	"net/smtp"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"bitbucket.org/vron/connector-hub/internal/auditlog"
	"bitbucket.org/vron/connector-hub/internal/connector"
	"bitbucket.org/vron/connector-hub/internal/mailer"
	"bitbucket.org/vron/connector-hub/internal/ron"
	"bitbucket.org/vron/connector-hub/internal/store"
	"bitbucket.org/vron/connector-hub/internal/tools/caching"
	"bitbucket.org/vron/connector-hub/internal/tools/redisfactory"
	"bitbucket.org/vron/connector-hub/internal/web"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func serverApp(httpServer *http.Server, logger *zerolog.Logger) int {
	shutdown := false
	done := make(chan error, 1)
	stop := make(chan os.Signal, 1)
	go func() {
		logger.
			Info().
			Msg("Listening on address " + httpServer.Addr)
		done <- httpServer.ListenAndServe()
	}()
	go func() {
		// Wait for stop
		<-stop
		shutdown = true
		logger.Info().Msg("Shutting down server...")
		_ = httpServer.Shutdown(context.Background())
	}()

	// Notify stop channel if SIGINT or SIGTERM is received
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	err := <-done
	if err != nil && !shutdown {
		logger.
			Error().
			Err(err).
			Msg("Server failed")
		return 1
	}
	return 0
}

func notifier() mailer.Notifier {
	addr := os.Getenv("SMTP_ADDR")
	from := os.Getenv("MAIL_FROM")
	to := os.Getenv("MAIL_TO")
	if addr == "" || from == "" || to == "" {
		return mailer.Noop{}
	}

	var auth smtp.Auth
	if username := os.Getenv("SMTP_USERNAME"); username != "" {
		host := strings.Split(addr, ":")[0]
		auth = smtp.PlainAuth("", username, os.Getenv("SMTP_PASSWORD"), host)
	}

	return mailer.NewSMTP(addr, from, strings.Split(to, ","), auth)
}

func main() {
	_ = godotenv.Load(".env")
	log := web.NewLogger(os.Getenv("LOG_LEVEL"))

	postgres, err := store.NewPostgres(context.Background(), os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal().Err(err).Msg("Could not connect to the database")
	}

	var cache *caching.Cacher
	if os.Getenv("CATALOG_CACHE_REDIS_URI") != "" {
		redisFactory := redisfactory.New()
		cache = caching.NewRedisCache(redisFactory.CatalogCacheClient(), "catalog")
	}

	mode := ron.ModeTrain
	if os.Getenv("RON_MODE") == string(ron.ModeLive) {
		mode = ron.ModeLive
	}

	audit := auditlog.New(postgres, log, 0)

	dispatcher := connector.New(connector.Options{
		Configs:  postgres,
		HostKeys: postgres,
		Audit:    audit,
		Notifier: notifier(),
		Cache:    cache,
		Mode:     mode,
	})

	appRouter := web.SetupRouter(log, dispatcher)

	var host string
	if os.Getenv("TEST") == "true" {
		host = "localhost"
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", host, os.Getenv("PORT")),
		Handler: appRouter,
	}

	code := serverApp(httpServer, log)

	// the server is down, no producer can reach the sink anymore; drain it
	// before releasing the database pool
	audit.Close()
	postgres.Close()

	os.Exit(code)
}
