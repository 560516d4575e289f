package app

import (
	"context"
	"fmt"

	"github.com/mstrack/mstrack/internal/common"
	"github.com/mstrack/mstrack/internal/driver"
	"github.com/mstrack/mstrack/internal/handlers"
	"github.com/mstrack/mstrack/internal/interfaces"
	"github.com/mstrack/mstrack/internal/queue"
	"github.com/mstrack/mstrack/internal/services/automation"
	"github.com/mstrack/mstrack/internal/services/credentials"
	"github.com/mstrack/mstrack/internal/services/dispatch"
	"github.com/mstrack/mstrack/internal/services/helper"
	"github.com/mstrack/mstrack/internal/services/interpreter"
	"github.com/mstrack/mstrack/internal/services/portals"
	"github.com/mstrack/mstrack/internal/services/scripts"
	"github.com/mstrack/mstrack/internal/services/secrets"
	"github.com/mstrack/mstrack/internal/services/session"
	"github.com/mstrack/mstrack/internal/services/wecom"
	"github.com/mstrack/mstrack/internal/storage/badger"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager

	// Domain services
	SecretsService     *secrets.Service
	CredentialService  *credentials.Service
	SessionService     interfaces.SessionManager
	ScriptCatalogue    *scripts.Catalogue
	PortalRegistry     *portals.Registry
	Interpreter        *interpreter.Interpreter
	HelperRunner       interfaces.StrategyRunner
	AutomationService  *automation.Service
	DispatchService    *dispatch.Service
	Messenger          interfaces.Messenger

	// Job execution
	Queue *queue.FIFOQueue

	// Session sweep scheduling
	sweeper *cron.Cron

	// HTTP handlers
	CheckHandler   *handlers.CheckHandler
	WebhookHandler *handlers.WebhookHandler
	StatusHandler  *handlers.StatusHandler
	JobsHandler    *handlers.JobsHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.initHandlers()

	// queue worker starts after everything it depends on is wired
	app.Queue.Start()

	if err := app.startSweeper(); err != nil {
		return nil, fmt.Errorf("failed to start session sweeper: %w", err)
	}

	logger.Info().
		Str("scripts_dir", cfg.Scripts.Dir).
		Str("artifact_dir", cfg.Sessions.ArtifactDir).
		Msg("Application initialization complete")
	return app, nil
}

// initStorage initializes the storage layer (Badger) and seeds credentials.
func (a *App) initStorage() error {
	storageManager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}
	a.StorageManager = storageManager

	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	// seed files are optional; a missing directory is not a startup failure
	if a.Config.Credentials.SeedDir != "" {
		if err := a.StorageManager.LoadCredentialsFromFiles(context.Background(), a.Config.Credentials.SeedDir); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to load credential seed files")
		}
	}
	return nil
}

func (a *App) initServices() error {
	secretsService, err := secrets.NewService(a.Config.Credentials.Key, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create secrets service: %w", err)
	}
	a.SecretsService = secretsService

	a.CredentialService = credentials.NewService(
		a.StorageManager.CredentialStorage(), secretsService, a.Logger)

	a.Messenger = wecom.NewClient(wecom.Config{
		APIBase:     a.Config.Messaging.APIBase,
		CorpID:      a.Config.Messaging.CorpID,
		CorpSecret:  a.Config.Messaging.CorpSecret,
		AgentID:     a.Config.Messaging.AgentID,
		SendTimeout: a.Config.Messaging.SendTimeout,
	}, a.Logger)

	driverFactory := driver.NewFactory(driver.Config{
		Headless:          a.Config.Browser.Headless,
		NoSandbox:         a.Config.Browser.NoSandbox,
		UserAgent:         a.Config.Browser.UserAgent,
		WindowLoadWait:    a.Config.Browser.WindowLoadWait,
		ScreenshotQuality: a.Config.Browser.ScreenshotQuality,
	}, a.Logger)

	a.SessionService = session.NewService(
		driverFactory,
		a.Messenger,
		a.Config.Sessions.ArtifactDir,
		a.Config.Sessions.DeliveryGrace,
		a.Logger,
	)

	a.ScriptCatalogue = scripts.NewCatalogue(a.Config.Scripts.Dir, scripts.NewResolver(), a.Logger)
	a.PortalRegistry = portals.NewRegistry(a.Logger)
	a.Interpreter = interpreter.New(a.PortalRegistry, a.Config.Interpreter.UnknownOpcodeDelay, a.Logger)
	a.HelperRunner = helper.NewRunner(a.Config.Helpers.Commands, a.Logger)

	a.AutomationService = automation.NewService(
		a.SessionService,
		a.ScriptCatalogue,
		a.Interpreter,
		a.HelperRunner,
		a.Messenger,
		a.StorageManager.JobStorage(),
		a.Config.Browser.NavigationTimeout,
		a.Logger,
	)

	a.Queue = queue.NewFIFOQueue(a.AutomationService.RunJob, a.Logger)
	a.DispatchService = dispatch.NewService(a.CredentialService, a.Queue, a.Messenger, a.Logger)

	return nil
}

func (a *App) initHandlers() {
	a.CheckHandler = handlers.NewCheckHandler(a.DispatchService, a.Logger)
	a.WebhookHandler = handlers.NewWebhookHandler(a.DispatchService, a.Config.Messaging.WebhookToken, a.Logger)
	a.StatusHandler = handlers.NewStatusHandler(a.Queue, a.SessionService, a.Logger)
	a.JobsHandler = handlers.NewJobsHandler(a.StorageManager.JobStorage(), a.Logger)
}

// startSweeper schedules the periodic expired-session sweep.
func (a *App) startSweeper() error {
	a.sweeper = cron.New()
	_, err := a.sweeper.AddFunc(a.Config.Sessions.SweepSchedule, func() {
		if swept := a.SessionService.SweepExpired(a.Config.Sessions.MaxAge); swept > 0 {
			a.Logger.Info().Int("swept", swept).Msg("Expired sessions cleaned up")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", a.Config.Sessions.SweepSchedule, err)
	}
	// piggyback storage GC on the same schedule
	_, err = a.sweeper.AddFunc(a.Config.Sessions.SweepSchedule, func() {
		if err := a.StorageManager.RunGC(); err != nil {
			a.Logger.Warn().Err(err).Msg("Storage garbage collection failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", a.Config.Sessions.SweepSchedule, err)
	}
	a.sweeper.Start()
	return nil
}

// Close shuts down all application components in dependency order: stop
// accepting work, drain the worker, release every browser, close storage.
func (a *App) Close() error {
	a.Logger.Info().Msg("Shutting down application")

	if a.sweeper != nil {
		a.sweeper.Stop()
	}
	if a.Queue != nil {
		a.Queue.Stop()
	}
	if a.SessionService != nil {
		a.SessionService.CloseAll()
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Storage close failed")
			return err
		}
	}

	a.Logger.Info().Msg("Application shutdown complete")
	return nil
}
