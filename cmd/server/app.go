package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/daykeep/daykeep-api/internal/config"
	"github.com/daykeep/daykeep-api/internal/platform/gist"
	"github.com/daykeep/daykeep-api/internal/service"
	"github.com/daykeep/daykeep-api/internal/store"
	enginesync "github.com/daykeep/daykeep-api/internal/sync"
)

const (
	taskFileName       = "tasks.json"
	credentialFileName = "sync.json"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	taskStore store.TaskStore
	credStore store.CredentialStore

	gistClient  *gist.Client
	syncEngine  *enginesync.Engine
	taskService service.TaskService
}

// newApplication creates a new application instance with all dependencies
// initialized: the file-backed stores under the configured data directory,
// the remote Gist client, the reconciliation engine, and the task service
// wired to notify the engine on every mutation. It also runs the engine's
// startup reconciliation.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	taskStore, err := store.NewFileTaskStore(filepath.Join(cfg.Storage.DataDir, taskFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open task store: %w", err)
	}
	app.taskStore = taskStore

	credStore := store.NewFileCredentialStore(filepath.Join(cfg.Storage.DataDir, credentialFileName))
	app.credStore = credStore
	if err := seedCredentials(ctx, credStore, cfg.Sync, logger); err != nil {
		return nil, fmt.Errorf("failed to seed sync credentials: %w", err)
	}

	gistClient, err := gist.NewClient(cfg.Sync.BaseURL, nil, logger.With("component", "gist_client"))
	if err != nil {
		return nil, fmt.Errorf("failed to create gist client: %w", err)
	}
	app.gistClient = gistClient

	app.syncEngine = enginesync.NewEngine(
		app.taskStore,
		app.credStore,
		app.gistClient,
		enginesync.Config{
			PushDebounce: cfg.Sync.PushDebounce,
			PullDelay:    cfg.Sync.PullDelay,
			GraceWindow:  cfg.Sync.GraceWindow,
			Retention:    cfg.Sync.Retention,
		},
		logger.With("component", "sync_engine"),
	)

	app.taskService = service.NewTaskService(app.taskStore, logger.With("component", "task_service"))
	app.taskService.SetChangeListener(app.syncEngine.NotifyChange)

	// Mount reconciliation: pull and merge if configured, otherwise just
	// mark the store ready for local-only operation.
	app.syncEngine.Start(ctx)

	logger.Info("Application initialized successfully")
	return app, nil
}

// seedCredentials writes config-provided credentials into the credential
// store on first run. An existing credential file always wins: settings
// saved through the API survive restarts regardless of the environment.
func seedCredentials(
	ctx context.Context,
	credStore store.CredentialStore,
	cfg config.SyncConfig,
	logger *slog.Logger,
) error {
	if cfg.GistID == "" && cfg.GistToken == "" {
		return nil
	}

	_, err := credStore.Load(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrCredentialsNotFound) {
		return err
	}

	logger.Info("seeding sync credentials from configuration", "gist_id", cfg.GistID)
	return credStore.Save(ctx, store.Credentials{GistID: cfg.GistID, Token: cfg.GistToken})
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources. The engine
// is stopped first so no background pull or push races the final flush.
func (app *application) cleanup() {
	if app.syncEngine != nil {
		app.syncEngine.Stop()

		// Best-effort final flush of unsynced local changes.
		ctx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
		defer cancel()
		if err := app.syncEngine.PushNow(ctx); err != nil {
			app.logger.Warn("final push on shutdown failed", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
