// Package app initializes and runs the tracker service. It wires the sqlite
// cache, the remote store client and the synchronization controller, starts
// the connectivity watcher and the HTTP API, and handles graceful shutdown.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/medtrack/internal/api"
	"github.com/dmitrijs2005/medtrack/internal/config"
	"github.com/dmitrijs2005/medtrack/internal/localstore"
	"github.com/dmitrijs2005/medtrack/internal/logging"
	"github.com/dmitrijs2005/medtrack/internal/remote"
	"github.com/dmitrijs2005/medtrack/internal/tracker"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	tracker  *tracker.Controller
	remoteDB *sql.DB
	handler  *api.Handler
}

func NewApp(c *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	cache, err := localstore.InitDatabase(context.Background(), c.CacheDSN)
	if err != nil {
		return nil, fmt.Errorf("cache init error: %w", err)
	}

	client, remoteDB, err := remote.Open(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("remote init error: %w", err)
	}

	tr := tracker.New(client, cache, logger, tracker.Config{
		ResyncAfter:   c.ResyncAfter,
		SelfProvision: c.SelfProvision,
	})

	return &App{
		config:   c,
		logger:   logger,
		tracker:  tr,
		remoteDB: remoteDB,
		handler:  api.NewHandler(tr, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	server := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: app.handler.Routes(),
	}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(sctx); err != nil {
			app.logger.Error(ctx, "server shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "addr", app.config.EndpointAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	app.tracker.Startup(ctx)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.tracker.RunOnlineWatcher(ctx, app.config.OnlineCheckInterval)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.remoteDB.Close(); err != nil {
		app.logger.Warn(ctx, "failed to close remote pool", "error", err)
	}
}
