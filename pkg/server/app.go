// Package server runs the long-lived client: session restore, live feeds,
// dashboard pollers, the tick sink and the local API.
package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"LeoneAI/internal/service/feed"
	"LeoneAI/internal/usecase"
	"LeoneAI/pkg/config"
	xhttp "LeoneAI/pkg/http"
	applogger "LeoneAI/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	session    *usecase.SessionManager
	settings   *usecase.SettingsManager
	dashboard  *usecase.Dashboard
	collector  *usecase.TickCollector
	processor  *usecase.TickProcessor
	feeds      *feed.Client
	httpServer *xhttp.Server

	wg sync.WaitGroup
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	session *usecase.SessionManager,
	settings *usecase.SettingsManager,
	dashboard *usecase.Dashboard,
	collector *usecase.TickCollector,
	processor *usecase.TickProcessor,
	feeds *feed.Client,
	httpServer *xhttp.Server,
) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		cfg:        cfg,
		log:        l.Named("app"),
		session:    session,
		settings:   settings,
		dashboard:  dashboard,
		collector:  collector,
		processor:  processor,
		feeds:      feeds,
		httpServer: httpServer,
	}
}

// Session exposes the session manager to the command layer.
func (a *App) Session() *usecase.SessionManager { return a.session }

// Run starts every component and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.session.Restore(ctx); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if _, err := a.settings.Load(ctx); err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.collector.Start(ctx); err != nil {
		return fmt.Errorf("start collector: %w", err)
	}
	a.log.Info("sink selected", applogger.String("backend", a.processor.Backend()))
	a.dashboard.Start(ctx)

	a.wg.Add(1)
	go a.watchSession(ctx)
	if a.cfg.Feed.Portfolio && a.session.IsAuthenticated() {
		a.wg.Add(1)
		go a.followPortfolio(ctx)
	}

	if a.cfg.Server.Enabled && a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			cancel()
			a.shutdown()
			return fmt.Errorf("start local api: %w", err)
		}
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	a.shutdown()
	return nil
}

// watchSession reports forced logouts. Pollers keep running and fall back
// to the public views until the user logs in again.
func (a *App) watchSession(ctx context.Context) {
	defer a.wg.Done()
	expired := a.session.Expired()
	for {
		select {
		case <-ctx.Done():
			return
		case cause, ok := <-expired:
			if !ok {
				return
			}
			a.log.Warn("session expired, login required", applogger.Error(cause))
		}
	}
}

// followPortfolio applies pushed snapshots until the socket closes; the
// dashboard poller covers the gap afterwards.
func (a *App) followPortfolio(ctx context.Context) {
	defer a.wg.Done()
	stream := a.feeds.Portfolio(ctx)
	defer stream.Close()

	updates, errs := stream.Updates(), stream.Errors()
	for updates != nil || errs != nil {
		select {
		case snap, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			a.dashboard.ApplyPortfolio(snap)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			var perr *feed.ParseError
			if errors.As(err, &perr) {
				a.log.Warn("portfolio frame dropped", applogger.Error(err))
				continue
			}
			a.log.Info("portfolio stream closed, polling only", applogger.Error(err))
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown() {
	a.dashboard.Stop()
	a.collector.Stop()
	a.processor.Close()

	if a.cfg.Server.Enabled && a.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Error("local api shutdown error", applogger.Error(err))
		}
	}

	if err := a.session.Close(); err != nil {
		a.log.Warn("session close error", applogger.Error(err))
	}
	a.wg.Wait()
	a.log.Info("shutdown complete", applogger.Duration("grace", a.cfg.Server.ShutdownTimeout.Round(time.Millisecond)))
}
