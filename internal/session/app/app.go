package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/portalhq/sessiond/internal/session/directory"
	httpapi "github.com/portalhq/sessiond/internal/session/http"
	"github.com/portalhq/sessiond/internal/session/notify"
	"github.com/portalhq/sessiond/internal/session/service"
	"github.com/portalhq/sessiond/internal/session/store"
	redisstore "github.com/portalhq/sessiond/internal/session/store/drivers/redis"
	"github.com/portalhq/sessiond/pkg/jwtx"
	"github.com/portalhq/sessiond/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the session service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	sessions  store.Store
	codec     *jwtx.Codec
	hub       *notify.Hub
	directory *directory.InMemory

	// Services
	tokenService *service.TokenService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "sessiond",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.Secret == "" {
		return nil, errors.New("SESSION_SECRET is required")
	}

	codec, err := jwtx.NewCodec(cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}
	app.codec = codec

	dir, err := directory.LoadFile(cfg.UsersFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load identity directory: %w", err)
	}
	app.directory = dir

	app.sessions = redisstore.NewStore(redisstore.Config{
		Addr:      cfg.RedisAddr,
		Password:  cfg.RedisPassword,
		DB:        cfg.RedisDB,
		OpTimeout: cfg.StoreTimeout,
	})

	app.hub = notify.NewHub(app.logger)

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("session service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down session service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.sessions.Close(); err != nil {
		app.logger.Error("error closing session store", "error", err)
		return err
	}

	app.logger.Info("session service stopped")
	return nil
}

// initServices initializes the business logic services.
func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		Codec:     app.codec,
		Store:     app.sessions,
		Notifier:  app.hub,
		Directory: app.directory,
		Checker:   app.directory,

		Issuer:        app.cfg.Issuer,
		AccessTTL:     app.cfg.AccessTTL,
		RememberMeTTL: app.cfg.RememberMeTTL,
		RefreshTTL:    app.cfg.RefreshTTL,
	}
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.sessions, app.logger)
	router.TokenService = app.tokenService
	router.Hub = app.hub
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
