package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"QuantPredict/pkg/config"
	xhttp "QuantPredict/pkg/http"
	pkgkafka "QuantPredict/pkg/kafka"
	applogger "QuantPredict/pkg/logger"
)

// Scheduler is a background job runner started with the app.
type Scheduler interface {
	Start() error
	Stop(ctx context.Context) error
}

type closer struct {
	name string
	fn   func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	l           *applogger.Logger
	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
	consumer    *pkgkafka.Consumer
	scheduler   Scheduler
	closers     []closer
}

// New creates a new App instance.
func New(cfg *config.Config, l *applogger.Logger, h xhttp.Handler) *App {
	if l == nil {
		l = applogger.NewNop()
	}
	return &App{cfg: cfg, l: l, httpHandler: h}
}

// SetConsumer attaches a Kafka consumer with its handlers registered.
func (a *App) SetConsumer(c *pkgkafka.Consumer) { a.consumer = c }

// SetScheduler attaches a background scheduler.
func (a *App) SetScheduler(s Scheduler) { a.scheduler = s }

// AddCloser registers a resource closed on shutdown, in reverse order.
func (a *App) AddCloser(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(); err != nil {
		return err
	}
	<-ctx.Done()

	a.l.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Start launches the HTTP server, the consumer and the scheduler.
func (a *App) Start() error {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(a.l),
	}
	if a.cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(a.cfg.Metrics.Path, nil, nil))
	}
	a.httpServer = xhttp.NewServer(a.httpHandler, opts...)

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
	}
	if a.scheduler != nil {
		if err := a.scheduler.Start(); err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
	}
	if err := a.httpServer.Start(); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops all services. Errors are logged and the first
// one is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var first error
	note := func(what string, err error) {
		if err == nil {
			return
		}
		a.l.Warn(what+" stop error", applogger.Error(err))
		if first == nil {
			first = err
		}
	}

	if a.httpServer != nil {
		note("http server", a.httpServer.Stop(ctx))
	}
	if a.scheduler != nil {
		note("scheduler", a.scheduler.Stop(ctx))
	}
	if a.consumer != nil {
		note("kafka consumer", a.consumer.Stop(ctx))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		note(a.closers[i].name, a.closers[i].fn())
	}

	a.l.Info("shutdown complete")
	return first
}
