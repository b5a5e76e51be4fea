package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Start serves HTTP in the background. The returned channel is closed once
// SIGINT or SIGTERM arrives; /health reports unavailable from that moment
// and, when app.server.drain_seconds is set, the channel closes only after
// that grace period so load balancers stop routing first.
func (a *App) Start() <-chan struct{} {
	done := make(chan struct{})

	go func() {
		slog.Info("http server listening", "address", a.httpServer.Addr)
		a.ready.Store(true)

		err := a.httpServer.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped", "error", err)
			os.Exit(1)
		}
	}()

	go func() {
		sigCtx, stop := signal.NotifyContext(a.ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-sigCtx.Done()

		a.ready.Store(false)
		if drain := a.config.GetSecond("app.server.drain_seconds"); drain > 0 {
			slog.Info("draining before shutdown", "for", drain)
			time.Sleep(drain)
		}

		slog.Info("shutdown signal received")
		close(done)
	}()

	return done
}

// Serve runs the HTTP server on an already bound listener until Stop.
func (a *App) Serve(l net.Listener) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		a.ready.Store(true)
		errc <- a.httpServer.Serve(l)
	}()
	return errc
}

// Stop shuts the server down, lets pending audit publishes finish and then
// releases every resource in registration order.
func (a *App) Stop(ctx context.Context) {
	a.ready.Store(false)
	defer a.cancel()

	steps := []closer{
		{name: "HTTP Server", fn: a.httpServer.Shutdown},
		{name: "Goroutines", fn: func(context.Context) error { return a.goroutine.Wait() }},
	}
	for _, c := range append(steps, a.closers...) {
		if err := c.fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to close resource", "name", c.name, "error", err)
		}
	}
	slog.InfoContext(ctx, "application stopped")
}
