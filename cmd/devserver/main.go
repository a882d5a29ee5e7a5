package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-services-client/internal/config"
	"github.com/jrsteele09/go-services-client/internal/metrics"
	"github.com/jrsteele09/go-services-client/servicestub"
	"github.com/jrsteele09/go-services-client/signing"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	devAPIKey = "dev-secret"
	devDomain = "localhost"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	logger := newLogger(c.GetLogLevel())
	displayAppname(c.GetAppName())

	apiKey, domain := c.GetAPIKey(), c.GetDomain()
	if apiKey == "" || domain == "" {
		apiKey, domain = devAPIKey, devDomain
		logger.Warn().Str("api_key", apiKey).Str("domain", domain).Msg("API_KEY or API_DOMAIN not set, using development credentials")
	}

	store, err := seedStore()
	if err != nil {
		return err
	}
	stub := servicestub.New(store, signing.NewHMACSigner(apiKey, domain),
		servicestub.WithLogger(logger),
		servicestub.WithMetrics(metrics.NewRegistry("devserver")),
		servicestub.WithServicePath(c.GetServicePath()),
		servicestub.WithUploadPath(c.GetUploadPath()),
	)

	server := &http.Server{Addr: c.GetPort(), Handler: stub, ReadHeaderTimeout: 10 * time.Second}
	errs := make(chan error, 1)
	go func() { errs <- listenAndServe(server, logger) }()
	if err := waitForStopSignal(errs); err != nil {
		return err
	}
	return shutdown(server)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

func listenAndServe(server *http.Server, logger zerolog.Logger) error {
	logger.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

// waitForStopSignal blocks until a stop signal arrives or the listener fails.
func waitForStopSignal(errs <-chan error) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		return nil
	case err := <-errs:
		return err
	}
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
