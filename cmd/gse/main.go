// gse runs the cognitive state engine headlessly: KeyCapture, ImeContext,
// the motion collaborator and the 1Hz Supervisor analysis loop, logging
// every record to an NDJSON session file (and, if configured, mirroring
// it into SQLite). There is no dashboard here -- Non-goals
// exclude rendering -- so this binary is only useful for smoke-testing
// the pipeline or running it under a separate UI process that talks to
// Supervisor over the Commands interface.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"gse/internal/config"
	"gse/internal/ime"
	"gse/internal/intervention"
	"gse/internal/logging"
	"gse/internal/metrics"
	"gse/internal/store"
	"gse/internal/supervisor"
)

// Version information (set via ldflags during build).
var (
	Version   = "dev"
	BuildTime = "unknown"
	Commit    = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		if err := runDaemon(""); err != nil {
			fmt.Fprintf(os.Stderr, "gse: %v\n", err)
			os.Exit(1)
		}
		return
	}

	switch os.Args[1] {
	case "help", "-h", "--help":
		usage()
	case "version", "-v", "--version":
		printVersion()
	case "run":
		configPath := ""
		if len(os.Args) > 2 {
			configPath = os.Args[2]
		}
		if err := runDaemon(configPath); err != nil {
			fmt.Fprintf(os.Stderr, "gse: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`gse - keystroke-driven cognitive state engine

USAGE:
    gse [run [config.toml]]
    gse help
    gse version

Runs headlessly: no config argument loads config.ConfigPath(), a missing
file applies built-in defaults. Every session is logged as NDJSON under
the configured session directory; set event_store_path in the config to
additionally mirror records into SQLite.`)
}

func printVersion() {
	fmt.Printf("gse %s\n", Version)
	fmt.Printf("  Build:    %s\n", BuildTime)
	fmt.Printf("  Commit:   %s\n", Commit)
	fmt.Printf("  Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
}

func runDaemon(configPath string) error {
	ctx0 := context.Background()
	audit := logging.DefaultAuditLogger()
	audit.LogStartup(ctx0, Version, nil)
	defer audit.LogShutdown(ctx0, "process_exit")

	crashHandler := logging.DefaultCrashHandler()
	crashHandler.SetVersion(Version)

	cfg, err := config.Load(configPath)
	if err != nil {
		audit.LogError(ctx0, "load_config", err, nil)
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		audit.LogError(ctx0, "validate_config", err, nil)
		return fmt.Errorf("invalid config: %w", err)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logging.LevelInfo
	}
	format := logging.FormatText
	if strings.EqualFold(cfg.LogFormat, "json") {
		format = logging.FormatJSON
	}
	logCfg := logging.DefaultConfig()
	logCfg.Level = level
	logCfg.Format = format
	logCfg.Component = "gse"
	logger, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logging.SetDefault(logger)
	defer logger.Close()

	sessionDir := cfg.SessionDir
	if sessionDir == "" {
		sessionDir = logging.SessionsDir()
	}

	sessionID := logging.NewSessionID()
	crashHandler.SetSessionID(sessionID)
	logPath := logging.SessionFilePath(sessionDir, time.Now(), sessionID)
	sessionLog, err := logging.NewSessionLogger(logPath)
	if err != nil {
		return fmt.Errorf("open session log: %w", err)
	}
	logger.Info("session log opened", "path", logPath)

	if cfg.EventStorePath != "" {
		eventStore, err := store.Open(cfg.EventStorePath)
		if err != nil {
			return fmt.Errorf("open event store: %w", err)
		}
		defer eventStore.Close()
		sessionLog.SetMirror(store.NewRecordMirror(eventStore))
	}

	thresholds := intervention.Thresholds{
		NudgeEnter:    cfg.NudgeEnter,
		WallEnter:     cfg.WallEnter,
		WallDwell:     cfg.WallDwell(),
		WallSafetyCap: cfg.WallSafetyCap(),
	}

	sup := supervisor.New(ime.NewPlatformSource(), sessionLog,
		supervisor.WithSessionID(sessionID),
		supervisor.WithThresholds(thresholds),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr)
	}

	if err := sup.Start(ctx); err != nil {
		audit.LogError(ctx0, "start_supervisor", err, nil)
		return fmt.Errorf("start supervisor: %w", err)
	}
	audit.LogSessionStart(ctx0, sessionID, nil)
	if !sup.HookAlive() {
		audit.LogPermission(ctx0, "keystroke_hook", false, nil)
	}
	logger.Info("gse running", "session", sessionID, "hook_alive", sup.HookAlive())

	<-ctx.Done()
	logger.Info("shutting down")
	err = sup.Stop()
	audit.LogSessionEnd(ctx0, nil)
	return err
}

func serveMetrics(addr string) {
	defer logging.DefaultCrashHandler().RecoverGoroutine()
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Default().HTTPHandler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "gse: metrics server: %v\n", err)
	}
}
