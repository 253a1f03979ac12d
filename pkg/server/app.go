package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"TickAttrib/internal/usecase"
	pkgch "TickAttrib/pkg/clickhouse"
	"TickAttrib/pkg/config"
	xhttp "TickAttrib/pkg/http"
	pkgkafka "TickAttrib/pkg/kafka"
	applogger "TickAttrib/pkg/logger"
	"TickAttrib/pkg/queue"
)

// App encapsulates the application lifecycle: the HTTP/WS server, the
// optional Kafka ingestion pipeline, and the optional precompute queue.
type App struct {
	cfg      *config.Config
	l        *applogger.Logger
	handler  xhttp.Handler
	lib      *usecase.CaseLibrary
	consumer *pkgkafka.Consumer
	queue    *queue.RedisQueue
	chClient *pkgch.Client

	httpServer *xhttp.Server
}

// New creates an App. Consumer, queue, and ClickHouse client may be nil when
// the corresponding subsystem is disabled.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	lib *usecase.CaseLibrary,
	consumer *pkgkafka.Consumer,
	q *queue.RedisQueue,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:      cfg,
		l:        l,
		handler:  handler,
		lib:      lib,
		consumer: consumer,
		queue:    q,
		chClient: chClient,
	}
}

// Run starts all subsystems and blocks until an interrupt arrives.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithHost(a.cfg.Server.Host),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithShutdownTimeout(a.cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(a.cfg.Server.CORS),
	)

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			a.l.Error("kafka consumer start failed", applogger.Error(err))
			return err
		}
	}

	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			// a dead queue only loses offline precomputes, the replay path
			// still works
			a.l.Warn("precompute queue unavailable", applogger.Error(err))
			a.queue = nil
		} else {
			usecase.EnqueueMissingPrecomputes(ctx, a.lib, a.queue, a.l)
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start failed", applogger.Error(err))
		return err
	}
	a.l.Info("serving",
		applogger.String("addr", a.cfg.Server.Host),
		applogger.Int("port", a.cfg.Server.Port),
		applogger.Int("cases", len(a.lib.Cases())),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.queue != nil {
		if err := a.queue.Stop(shutdownCtx); err != nil {
			a.l.Warn("queue stop error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
