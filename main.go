// nudge is a shell command-completion daemon. It listens on a local
// Unix socket (named pipe on Windows), gathers bounded shell/project
// context per request, calls an OpenAI-compatible chat endpoint, and
// returns sanitized, safety-checked command suggestions to shell
// front-ends.
//
// Usage:
//
//	nudge [flags]
//
// Flags:
//
//	-config string   Path to configuration file (default: XDG config search path)
//	-stop            Stop a running daemon and exit
//	-status          Report whether a daemon is running and exit
//	-verbose         Enable debug-level logging
//	-version         Print version and exit
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Zhangtiande/nudge-sub000/pkg/cache"
	"github.com/Zhangtiande/nudge-sub000/pkg/config"
	"github.com/Zhangtiande/nudge-sub000/pkg/daemon"
	"github.com/Zhangtiande/nudge-sub000/pkg/dispatch"
	"github.com/Zhangtiande/nudge-sub000/pkg/gather"
	"github.com/Zhangtiande/nudge-sub000/pkg/llm"
	"github.com/Zhangtiande/nudge-sub000/pkg/plugins"
	"github.com/Zhangtiande/nudge-sub000/pkg/safety"
	"github.com/Zhangtiande/nudge-sub000/pkg/sanitizer"
	"github.com/Zhangtiande/nudge-sub000/pkg/session"
	"github.com/Zhangtiande/nudge-sub000/pkg/shell"
	"github.com/Zhangtiande/nudge-sub000/pkg/sysinfo"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to configuration file")
		doStop     = flag.Bool("stop", false, "Stop a running daemon and exit")
		doStatus   = flag.Bool("status", false, "Report daemon liveness and exit")
		verbose    = flag.Bool("verbose", false, "Enable debug-level logging")
		showVer    = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVer {
		fmt.Printf("nudge %s (%s)\n", version, commit)
		os.Exit(0)
	}

	endpoint := daemon.EndpointPath()
	pidPath := daemon.PIDFilePath()

	if *doStatus {
		if daemon.IsLive(endpoint, pidPath) {
			fmt.Println("running")
			os.Exit(0)
		}
		fmt.Println("not running")
		os.Exit(1)
	}

	if *doStop {
		if err := stopDaemon(pidPath); err != nil {
			fmt.Fprintf(os.Stderr, "stop failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("stopped")
		os.Exit(0)
	}

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if *verbose || cfg.Log.Level == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	d, err := newDaemon(cfg, logger)
	if err != nil {
		logger.Error("daemon init failed", "error", err)
		os.Exit(1)
	}

	logger.Info("starting nudge daemon", "endpoint", endpoint, "config", *configPath)
	if err := d.run(ctx); err != nil && err != context.Canceled {
		logger.Error("daemon error", "error", err)
		os.Exit(1)
	}
}

// configDir returns the directory nudge's config file is expected to
// live in, for reporting on the Info surface only -- config.Load()
// itself owns the real search-path logic.
func configDir() string {
	if v := os.Getenv("NUDGE_CONFIG"); v != "" {
		return v
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "nudge")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "nudge")
}

func stopDaemon(pidPath string) error {
	pid, err := daemon.ReadPID(pidPath)
	if err != nil {
		return fmt.Errorf("no daemon appears to be running: %w", err)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal PID %d: %w", pid, err)
	}
	return nil
}

// daemonProcess wires every collaborator package into a single running
// server, per spec §4.1's top-level process shape.
type daemonProcess struct {
	cfg        *config.Config
	log        *slog.Logger
	server     *daemon.Server
	dispatcher *dispatch.Dispatcher
	sessions   *session.Store
	endpoint   string
	pidPath    string
	healthPath string
}

func newDaemon(cfg *config.Config, log *slog.Logger) (*daemonProcess, error) {
	endpoint := daemon.EndpointPath()
	pidPath := daemon.PIDFilePath()
	healthPath := daemon.HealthFilePath()

	sysInfo, err := sysinfo.Collect()
	if err != nil {
		log.Warn("system info collection failed, continuing without it", "error", err)
		sysInfo = nil
	}

	sessions := session.NewStore(session.StoreConfig{
		HistoryWindow: cfg.Context.HistoryWindow,
	})

	registry := buildPluginRegistry(cfg)

	gatherer := gather.New(gather.Config{
		HistoryWindow:          cfg.Context.HistoryWindow,
		IncludeCWDListing:      cfg.Context.IncludeCWDListing,
		IncludeSystemInfo:      cfg.Context.IncludeSystemInfo,
		SimilarCommandsEnabled: cfg.Context.SimilarCommandsEnabled,
		SimilarCommandsWindow:  cfg.Context.SimilarCommandsWindow,
		SimilarCommandsMax:     cfg.Context.SimilarCommandsMax,
		MaxFilesInListing:      cfg.Context.MaxFilesInListing,
		MaxTotalTokens:         cfg.Context.MaxTotalTokens,
		PriorityHistory:        cfg.Context.Priorities.History,
		PriorityCWD:            cfg.Context.Priorities.CWD,
		PriorityPlugins:        cfg.Context.Priorities.Plugins,
		PluginTimeout:          100 * time.Millisecond,
	}, sessions, registry, sysInfo)

	var sanPatterns []sanitizer.Pattern
	for _, p := range cfg.Privacy.CustomPatterns {
		sanPatterns = append(sanPatterns, sanitizer.Pattern{Name: "custom", Regex: p, Replace: "<REDACTED>"})
	}
	san := sanitizer.New(sanPatterns)

	var safetyPatterns []safety.Pattern
	for _, p := range cfg.Privacy.CustomBlocked {
		safetyPatterns = append(safetyPatterns, safety.Pattern{Name: "custom", Regex: p, Warning: "matches a user-configured blocked pattern"})
	}
	checker := safety.New(safetyPatterns)

	modelTimeout := cfg.Model.Timeout.Duration
	llmClient := llm.New(llm.Config{
		Endpoint: cfg.Model.Endpoint,
		Model:    cfg.Model.Model,
		APIKey:   cfg.Model.APIKey,
		Timeout:  modelTimeout,
	}, &http.Client{Timeout: modelTimeout})

	cacheDB := cache.NewStore(cfg.Cache.Capacity, cfg.Cache.StaleRatio)

	dispatcher := dispatch.New(dispatch.Config{
		CacheTTLAuto:     cfg.Cache.TTLAuto.Duration,
		CacheTTLManual:   cfg.Cache.TTLManual.Duration,
		CacheTTLNegative: cfg.Cache.TTLNegative.Duration,
		MaxTotalTokens:   cfg.Context.MaxTotalTokens,
		PrefixBytes:      cfg.Cache.PrefixBytes,
		DiagnosisEnabled: cfg.Diagnosis.Enabled,
		DiagnosisTimeout: cfg.Diagnosis.Timeout.Duration,
		MaxStderrBytes:   cfg.Diagnosis.MaxStderrBytes,
		ModelTimeout:     modelTimeout,
	}, cacheDB, gatherer, sessions, san, checker, llmClient, log)

	return &daemonProcess{
		cfg: cfg, log: log, dispatcher: dispatcher, sessions: sessions,
		endpoint: endpoint, pidPath: pidPath, healthPath: healthPath,
	}, nil
}

// info builds the Info surface (spec §6) reported to front-ends: config
// location, endpoint path, trigger settings, and daemon liveness -- none
// of which requires a model call or cache lookup.
func (d *daemonProcess) info() daemon.Info {
	status := "ok"
	if !daemon.IsLive(d.endpoint, d.pidPath) {
		status = "degraded"
	}
	return daemon.Info{
		ConfigDir:           configDir(),
		EndpointPath:        d.endpoint,
		TriggerMode:         d.cfg.Trigger.Mode,
		TriggerHotkey:       d.cfg.Trigger.Hotkey,
		ZshGhostOwner:       d.cfg.Trigger.ZshGhostOwner,
		ZshOverlayBackend:   d.cfg.Trigger.ZshOverlayBackend,
		DiagnosisEnabled:    d.cfg.Diagnosis.Enabled,
		InteractiveCommands: d.cfg.Diagnosis.InteractiveCommands,
		ShellType:           shell.Detect().String(),
		DaemonStatus:        status,
	}
}

func buildPluginRegistry(cfg *config.Config) *plugins.Registry {
	var active []plugins.Plugin

	if cfg.Plugins.Git.Enabled {
		depth := plugins.GitStandard
		switch cfg.Plugins.Git.Depth {
		case "light":
			depth = plugins.GitLight
		case "detailed":
			depth = plugins.GitDetailed
		}
		active = append(active, plugins.NewGitPlugin(
			cfg.Plugins.Git.Timeout.Duration, cfg.Plugins.Git.Priority, depth))
	}
	if cfg.Plugins.Docker.Enabled {
		active = append(active, plugins.NewDockerPlugin(
			cfg.Plugins.Docker.Timeout.Duration, cfg.Plugins.Docker.Priority))
	}
	if cfg.Plugins.Node.Enabled {
		active = append(active, plugins.NewNodePlugin(
			cfg.Plugins.Node.Timeout.Duration, cfg.Plugins.Node.Priority))
	}
	if cfg.Plugins.Rust.Enabled {
		active = append(active, plugins.NewRustPlugin(
			cfg.Plugins.Rust.Timeout.Duration, cfg.Plugins.Rust.Priority))
	}
	if cfg.Plugins.Python.Enabled {
		active = append(active, plugins.NewPythonPlugin(
			cfg.Plugins.Python.Timeout.Duration, cfg.Plugins.Python.Priority))
	}

	return plugins.NewRegistry(active...)
}

// isInfoRequest reports whether line is an {"type":"info"} envelope,
// handled directly by main rather than the dispatcher since its response
// shape (daemon.Info) isn't a protocol.CompletionResponse.
func isInfoRequest(line []byte) bool {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(line, &env); err != nil {
		return false
	}
	return env.Type == "info"
}

// run starts the transport server, acquires the PID file, writes the
// health file, and blocks until ctx is cancelled, per spec §4.1 and
// §4.10's startup/shutdown lifecycle.
func (d *daemonProcess) run(ctx context.Context) error {
	daemon.CleanStaleEndpoint(d.endpoint, d.pidPath)

	if err := daemon.AcquirePID(d.pidPath); err != nil {
		return fmt.Errorf("acquire PID file: %w", err)
	}
	defer daemon.ReleasePID(d.pidPath)

	handler := daemon.HandlerFunc(func(reqCtx context.Context, line []byte) []byte {
		if isInfoRequest(line) {
			data, err := json.Marshal(d.info())
			if err != nil {
				d.log.Error("failed to marshal info response", "error", err)
				return []byte(`{"error":{"code":"internal_error","message":"info marshal failed"}}`)
			}
			return data
		}
		resp := d.dispatcher.Dispatch(reqCtx, line)
		data, err := dispatch.FormatJSON(resp)
		if err != nil {
			d.log.Error("failed to marshal response", "error", err)
			return []byte(`{"error":{"code":"internal_error","message":"response marshal failed"}}`)
		}
		return []byte(data)
	})

	d.server = daemon.NewServer(d.endpoint, handler)
	if err := d.server.Start(); err != nil {
		return fmt.Errorf("start transport: %w", err)
	}
	defer d.server.Stop()

	if err := daemon.WriteHealthFile(d.healthPath, &daemon.HealthStatus{
		PID: os.Getpid(), StartedAt: time.Now(), Status: "ok",
	}); err != nil {
		d.log.Warn("failed to write health file", "error", err)
	}

	pruneTicker := time.NewTicker(5 * time.Minute)
	defer pruneTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("shutting down")
			return ctx.Err()
		case <-pruneTicker.C:
			evicted := d.sessions.Prune(time.Now())
			if evicted > 0 {
				d.log.Debug("pruned idle sessions", "count", evicted)
			}
		}
	}
}
