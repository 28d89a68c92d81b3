package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/litrun/internal/application"
	"github.com/eugenenazirov/litrun/internal/config"
	"github.com/eugenenazirov/litrun/internal/logging"
	"github.com/eugenenazirov/litrun/internal/report"
	"github.com/eugenenazirov/litrun/internal/runner"
	"github.com/eugenenazirov/litrun/internal/suite"
)

const (
	exitOK          = 0
	exitTestsFailed = 1
	exitSetupFailed = 2
)

var signalNotify = signal.Notify

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	kingpinApp := kingpin.New("litrun", "Runs shell-based test suites described by a suite configuration")
	kingpinApp.UsageWriter(stderr)
	kingpinApp.ErrorWriter(stderr)

	var pipefailSet, verboseSet, showAllSet bool
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	objRoot := kingpinApp.Flag("obj-root", "Build-output root the suite paths are derived from").String()
	suiteFile := kingpinApp.Flag("suite", "Path to the suite descriptor").String()
	workers := kingpinApp.Flag("workers", "Number of tests run in parallel").Short('j').Default("0").Int()
	timeout := kingpinApp.Flag("timeout", "Time budget of a single test").Default("0s").Duration()
	shell := kingpinApp.Flag("shell", "Shell executing RUN: commands").String()
	pipefail := kingpinApp.Flag("pipefail", "Fail a pipeline when any stage fails").IsSetByUser(&pipefailSet).Bool()
	filter := kingpinApp.Flag("filter", "Only run tests whose name matches this regular expression").String()
	launchRPS := kingpinApp.Flag("launch-rate", "Tests started per second (set 0 to disable)").Default("-1").Float64()
	launchBurst := kingpinApp.Flag("launch-burst", "Burst capacity for test launches").Default("-1").Int()
	verbose := kingpinApp.Flag("verbose", "Enable debug logging").Short('v').IsSetByUser(&verboseSet).Bool()

	runCmd := kingpinApp.Command("run", "Discover and run the suite").Default()
	resultsFile := runCmd.Flag("results", "Write the run as JSON to this file").String()
	showAll := runCmd.Flag("all", "List passing tests in the report").Short('a').IsSetByUser(&showAllSet).Bool()

	serveCmd := kingpinApp.Command("serve", "Expose the suite over HTTP")
	port := serveCmd.Flag("port", "HTTP port exposed by the service").String()
	rateLimitRPS := serveCmd.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurst := serveCmd.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	showCmd := kingpinApp.Command("show", "Print the resolved suite configuration")
	listCmd := kingpinApp.Command("list", "Print the discovered tests")

	command, err := kingpinApp.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "litrun: %v\n", err)
		return exitSetupFailed
	}
	overrides := &config.CLIOverrides{
		ConfigFile:  *configFile,
		ObjRoot:     objRoot,
		SuiteFile:   suiteFile,
		Workers:     workers,
		TestTimeout: timeout,
		Shell:       shell,
		Filter:      filter,
		ResultsFile: resultsFile,
		LaunchRPS:   launchRPS,
		LaunchBurst: launchBurst,
		Port:        port,
	}
	if pipefailSet {
		overrides.Pipefail = pipefail
	}
	if verboseSet {
		overrides.Verbose = verbose
	}
	if showAllSet {
		overrides.ShowAll = showAll
	}
	if *rateLimitRPS >= 0 {
		overrides.RateLimitRPS = rateLimitRPS
	}
	if *rateLimitBurst >= 0 {
		overrides.RateLimitBurst = rateLimitBurst
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		fmt.Fprintf(stderr, "litrun: failed to load configuration: %v\n", err)
		return exitSetupFailed
	}

	logger, err := logging.New(cfg.Verbose)
	if err != nil {
		fmt.Fprintf(stderr, "litrun: failed to initialize logger: %v\n", err)
		return exitSetupFailed
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", zap.Error(err))
		fmt.Fprintf(stderr, "litrun: %v\n", err)
		return exitSetupFailed
	}

	switch command {
	case runCmd.FullCommand():
		return runSuite(app, cfg, stdout, stderr, logger)
	case serveCmd.FullCommand():
		if err := app.Start(); err != nil {
			logger.Error("failed to start server", zap.Error(err))
			return exitSetupFailed
		}
		shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
		return exitOK
	case showCmd.FullCommand():
		return showSuite(app.Suite(), stdout, stderr)
	case listCmd.FullCommand():
		return listTests(app, stdout, stderr)
	}
	return exitSetupFailed
}

func runSuite(app *application.App, cfg config.Config, stdout, stderr io.Writer, logger *zap.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := app.Execute(ctx)
	if err != nil && !errors.Is(err, runner.ErrInterrupted) {
		fmt.Fprintf(stderr, "litrun: %v\n", err)
		return exitSetupFailed
	}

	if reportErr := report.WriteText(stdout, result, report.TextOptions{ShowAll: cfg.ShowAll}); reportErr != nil {
		logger.Error("failed to write report", zap.Error(reportErr))
	}
	if cfg.ResultsFile != "" {
		if saveErr := report.SaveJSON(cfg.ResultsFile, result); saveErr != nil {
			fmt.Fprintf(stderr, "litrun: %v\n", saveErr)
			return exitSetupFailed
		}
	}

	if err != nil || !result.Passed() {
		return exitTestsFailed
	}
	return exitOK
}

func showSuite(cfg suite.Config, stdout, stderr io.Writer) int {
	out, err := suite.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "litrun: %v\n", err)
		return exitSetupFailed
	}
	_, _ = stdout.Write(out)
	return exitOK
}

func listTests(app *application.App, stdout, stderr io.Writer) int {
	tests, err := app.Discover()
	if err != nil {
		fmt.Fprintf(stderr, "litrun: %v\n", err)
		return exitSetupFailed
	}
	for _, test := range tests {
		fmt.Fprintln(stdout, test.Name)
	}
	return exitOK
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
