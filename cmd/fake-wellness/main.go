// ABOUTME: Scripted conversation service for local development and E2E testing
// ABOUTME: Usage: fake-wellness [-addr localhost:8000] [-delay 400ms] [-images URL]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/2389/wellness-client/internal/config"
	"github.com/2389/wellness-client/internal/fakeservice"
	"github.com/2389/wellness-client/internal/logging"
)

func main() {
	addr := flag.String("addr", "localhost:8000", "HTTP listen address")
	delay := flag.Duration("delay", 400*time.Millisecond, "Delay before each reply")
	images := flag.String("images", "", "Base URL for medicine images (empty sends none)")
	level := flag.String("log-level", "info", "Log level")
	flag.Parse()

	if err := run(*addr, *delay, *images, *level); err != nil {
		log.Fatal(err)
	}
}

func run(addr string, delay time.Duration, images, level string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := logging.New(config.LoggingConfig{Level: level}, os.Stderr)
	svc := fakeservice.New(fakeservice.Options{
		Delay:     delay,
		ImageBase: images,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           svc.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	fmt.Fprintf(os.Stderr, "fake-wellness listening on http://%s (say %q to get a 500)\n", addr, fakeservice.FailPhrase)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	logger.Info("stopped", "requests", svc.Requests())
	return nil
}
