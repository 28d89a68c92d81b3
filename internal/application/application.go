package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/litrun/internal/api"
	"github.com/eugenenazirov/litrun/internal/config"
	"github.com/eugenenazirov/litrun/internal/discovery"
	"github.com/eugenenazirov/litrun/internal/runner"
	"github.com/eugenenazirov/litrun/internal/shtest"
	"github.com/eugenenazirov/litrun/internal/storage"
	"github.com/eugenenazirov/litrun/internal/suite"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	cfg      config.Config
	suite    suite.Config
	executor *shtest.Executor
	runner   *runner.Runner
	storage  storage.Storage
	handler  *api.Handler
	router   http.Handler
	logger   *zap.Logger
	server   *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	suitePath, err := resolveSuiteFile(cfg.SuiteFile)
	if err != nil {
		return nil, fmt.Errorf("failed to locate suite descriptor: %w", err)
	}

	suiteCfg, err := suite.LoadFile(suitePath, cfg.ObjRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to load suite: %w", err)
	}
	logger.Debug("suite loaded",
		zap.String("suite", suiteCfg.Name),
		zap.String("format", suiteCfg.Format.String()),
		zap.String("source_root", suiteCfg.SourceRoot),
		zap.String("exec_root", suiteCfg.ExecRoot),
	)

	executor := shtest.NewExecutor(suiteCfg,
		shtest.WithShell(cfg.Shell),
		shtest.WithPipefail(cfg.Pipefail),
		shtest.WithLogger(logger),
	)
	testRunner := runner.New(executor,
		runner.WithWorkers(cfg.Workers),
		runner.WithTimeout(cfg.TestTimeout),
		runner.WithLaunchRate(cfg.LaunchRPS, cfg.LaunchBurst),
		runner.WithLogger(logger),
	)
	store := storage.NewMemoryStorage(cfg.HistorySize)

	app := &App{
		cfg:      cfg,
		suite:    suiteCfg,
		executor: executor,
		runner:   testRunner,
		storage:  store,
		logger:   logger,
	}

	app.handler = api.NewHandler(suiteCfg, app, store)
	app.router = api.NewRouter(app.handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)
	app.server = NewServer(cfg, app.router)

	return app, nil
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Suite returns the loaded suite configuration.
func (a *App) Suite() suite.Config {
	return a.suite.Clone()
}

// Discover lists the tests of the suite that pass the configured filter.
func (a *App) Discover() ([]discovery.Test, error) {
	return discovery.Discover(a.suite, discovery.Options{Filter: a.cfg.Filter})
}

// Execute discovers and runs the suite and stores the run. An interrupted
// run is stored and returned along with the interruption error.
func (a *App) Execute(ctx context.Context) (runner.Run, error) {
	tests, err := a.Discover()
	if err != nil {
		return runner.Run{}, err
	}
	if len(tests) == 0 {
		a.logger.Warn("no tests discovered",
			zap.String("source_root", a.suite.SourceRoot),
			zap.Strings("suffixes", a.suite.Suffixes),
		)
	}

	run, runErr := a.runner.Run(ctx, a.suite.Name, tests)
	if err := a.storage.SaveRun(run); err != nil {
		return run, fmt.Errorf("store run: %w", err)
	}
	return run, runErr
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr), zap.String("suite", a.suite.Name))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// resolveSuiteFile returns path unchanged when it exists or is absolute;
// otherwise it looks for path relative to each parent of the working directory.
func resolveSuiteFile(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	if _, err := os.Stat(path); err == nil {
		return filepath.Abs(path)
	}
	return resolveProjectPath(path)
}

// resolveProjectPath locates a file or directory relative to the project root by walking up the directory tree.
func resolveProjectPath(relative string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, relative)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("unable to locate %s", relative)
}
