package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// shutdownTimeout bounds both the HTTP drain and the scheduler drain.
const shutdownTimeout = 10 * time.Second

// startHTTPServer serves router until ctx is cancelled, then drains the HTTP
// server and the scheduler before releasing resources.
func (app *application) startHTTPServer(ctx context.Context, router http.Handler) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", app.config.Server.Port))
	if err != nil {
		app.shutdownScheduler()
		app.cleanup()
		return fmt.Errorf("failed to listen on port %d: %w", app.config.Server.Port, err)
	}
	return app.serve(ctx, listener, router)
}

func (app *application) serve(ctx context.Context, listener net.Listener, router http.Handler) error {
	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverCtx, cancelServer := context.WithCancel(ctx)
	defer cancelServer()

	serveErr := make(chan error, 1)
	go func() {
		app.logger.Info("starting server", "addr", listener.Addr().String())
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("server failed", "error", err)
			serveErr <- err
			cancelServer()
		}
	}()

	<-serverCtx.Done()
	app.logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("server shutdown failed", "error", err)
		shutdownErr = fmt.Errorf("server shutdown failed: %w", err)
	}

	app.shutdownScheduler()
	app.cleanup()

	select {
	case err := <-serveErr:
		return err
	default:
	}
	app.logger.Info("server shutdown completed")
	return shutdownErr
}

func (app *application) shutdownScheduler() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.scheduler.Shutdown(ctx); err != nil {
		app.logger.Warn("scheduler did not stop in time", "error", err)
	}
}
