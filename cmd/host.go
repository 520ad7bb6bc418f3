package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/xlg/player/internal/backend"
	"github.com/xlg/player/internal/backend/mpd"
	"github.com/xlg/player/internal/backend/script"
	"github.com/xlg/player/internal/config"
	"github.com/xlg/player/internal/handler"
	"github.com/xlg/player/internal/ipc"
	"github.com/xlg/player/internal/library"
	"github.com/xlg/player/internal/protocol"
	"github.com/xlg/player/internal/storage"
)

// shutdownGrace bounds how long the host waits for in-flight favorites.
const shutdownGrace = 5 * time.Second

// HostConfig holds the merged flag and file settings for host start.
type HostConfig struct {
	Socket          string
	MPDNetwork      string
	MPDAddr         string
	MPDPassword     string
	CredentialsFile string
	FavoritesDB     string
	LogLevel        string
	ScriptCommand   string
	LogFile         string
	PIDFile         string
	Daemon          bool

	LibraryBaseURL        string
	LibraryDeveloperToken string
	LibraryRatePerMinute  int
}

// newBackends builds the primary and legacy backends. Tests replace it.
var newBackends = func(cfg *HostConfig, logger *log.Logger) (backend.Primary, backend.Legacy) {
	primary := mpd.New(mpd.Config{
		Network:  cfg.MPDNetwork,
		Addr:     cfg.MPDAddr,
		Password: cfg.MPDPassword,
	}, logger)
	return primary, script.New(cfg.ScriptCommand)
}

func runHostStart(args []string, g globalOptions, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("host start", flag.ContinueOnError)
	fs.SetOutput(stderr)

	cfg := &HostConfig{Socket: g.Socket}
	fs.StringVar(&cfg.MPDNetwork, "mpd-network", "", "MPD network: tcp or unix (default: tcp)")
	fs.StringVar(&cfg.MPDAddr, "mpd-addr", "", "MPD address or socket path (default: "+config.DefaultMPDAddr+")")
	fs.StringVar(&cfg.CredentialsFile, "credentials", "", "Credential file (default: ~/.config/xlg/config)")
	fs.StringVar(&cfg.FavoritesDB, "favorites-db", "", "Favorites ledger (default: ~/.config/xlg/favorites.db)")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level: debug, info, warn, error (default: info)")
	fs.StringVar(&cfg.ScriptCommand, "script-command", "", "Scripting host for the legacy player (default: "+config.DefaultScriptCommand+")")
	fs.BoolVar(&cfg.Daemon, "daemon", false, "Run in the background")
	fs.StringVar(&cfg.LogFile, "log-file", "", "Log file in daemon mode (default: ~/.config/xlg/host.log)")
	fs.StringVar(&cfg.PIDFile, "pid-file", "", "Write the process id to this file")
	playlist := fs.Bool("playlist", false, "Treat the initial id as a playlist")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: xlg host start [options] [--playlist] [id...]\n\nRun the player host on the command socket.\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if code, ok := parseFlags(fs, args, stderr); !ok {
		return code
	}

	fileCfg, err := loadConfig(g)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := mergeHostConfig(cfg, fileCfg); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	// Go has no fork(): the parent re-execs itself with a marker variable
	// and returns once the child survives startup.
	const daemonEnvVar = "XLG_DAEMON_CHILD"
	var logFile *os.File

	if cfg.Daemon && os.Getenv(daemonEnvVar) == "" {
		return startDaemon(cfg, os.Args[1:], daemonEnvVar, stdout, stderr)
	}
	if cfg.Daemon {
		logFile, err = os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			fmt.Fprintf(stderr, "Error: failed to open log file: %v\n", err)
			return 1
		}
		defer logFile.Close()
		stdout = logFile
		stderr = logFile
	}

	// The server, handler and this goroutine all write here.
	stderr = &syncWriter{w: stderr}
	logger := log.New(stderr, "xlg: ", log.LstdFlags)

	if cfg.PIDFile != "" {
		if err := writePIDFile(cfg.PIDFile); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		defer removePIDFile(cfg.PIDFile, stderr)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FavoritesDB), 0700); err != nil {
		fmt.Fprintf(stderr, "Error: failed to create favorites directory: %v\n", err)
		return 1
	}
	store, err := storage.NewSQLiteStore(cfg.FavoritesDB)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to open favorites ledger: %v\n", err)
		return 1
	}
	defer store.Close()

	creds, err := config.LoadCredentials(cfg.CredentialsFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	lib := library.New(library.Config{
		BaseURL:        cfg.LibraryBaseURL,
		UserToken:      creds.Get(config.UserTokenKey),
		DeveloperToken: cfg.LibraryDeveloperToken,
		RatePerMinute:  cfg.LibraryRatePerMinute,
	})
	if !lib.Configured() {
		fmt.Fprintf(stderr, "Warning: %s not set; favorite will only work through the legacy player\n", config.UserTokenKey)
	}

	primary, legacy := newBackends(cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := primary.Authorize(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	h := handler.New(handler.Options{
		Primary:  primary,
		Legacy:   legacy,
		Library:  lib,
		Ledger:   store,
		Shutdown: cancel,
		Logger:   handler.NewLogger(stderr, cfg.LogLevel),
	})

	if ids := fs.Args(); len(ids) > 0 {
		h.Play(ctx, protocol.PlayRequest{IDs: ids, Collection: *playlist})
	}

	srv := ipc.NewCommandSocketServer(cfg.Socket, h, logger)
	if err := srv.Start(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Listening on %s. Press Ctrl+C to stop.\n", cfg.Socket)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-ctx.Done():
		fmt.Fprintln(stdout, "Quit requested, stopping...")
	case sig := <-sigCh:
		fmt.Fprintf(stdout, "\nReceived signal %v, stopping...\n", sig)
	}

	if err := srv.Stop(); err != nil {
		fmt.Fprintf(stderr, "Warning: %v\n", err)
	}

	waitCtx, waitCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer waitCancel()
	h.Wait(waitCtx)

	return 0
}

// mergeHostConfig fills unset flags from the config file, then defaults.
// Explicit CLI flags always win.
func mergeHostConfig(cfg *HostConfig, fileCfg *config.Config) error {
	if cfg.Socket == "" {
		cfg.Socket = fileCfg.SocketPath
	}
	if cfg.MPDNetwork == "" {
		cfg.MPDNetwork = fileCfg.MPDNetwork
	}
	if cfg.MPDAddr == "" {
		cfg.MPDAddr = fileCfg.MPDAddr
	}
	cfg.MPDPassword = fileCfg.MPDPassword
	if cfg.CredentialsFile == "" {
		cfg.CredentialsFile = fileCfg.CredentialsFile
	}
	if cfg.FavoritesDB == "" {
		cfg.FavoritesDB = fileCfg.FavoritesDB
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = fileCfg.LogLevel
	}
	if cfg.ScriptCommand == "" {
		cfg.ScriptCommand = fileCfg.ScriptCommand
	}
	cfg.LibraryBaseURL = fileCfg.LibraryBaseURL
	cfg.LibraryDeveloperToken = fileCfg.LibraryDeveloperToken
	cfg.LibraryRatePerMinute = fileCfg.LibraryRatePerMinute

	// Flag values go through the same checks as file values.
	check := config.Config{MPDNetwork: cfg.MPDNetwork, LogLevel: cfg.LogLevel}
	if err := check.Validate(); err != nil {
		return err
	}

	if cfg.Socket == "" {
		cfg.Socket = config.DefaultSocketPath
	}
	if cfg.MPDNetwork == "" {
		cfg.MPDNetwork = config.DefaultMPDNetwork
	}
	if cfg.MPDAddr == "" {
		cfg.MPDAddr = config.DefaultMPDAddr
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = config.DefaultLogLevel
	}
	if cfg.ScriptCommand == "" {
		cfg.ScriptCommand = config.DefaultScriptCommand
	}

	var err error
	if cfg.CredentialsFile == "" {
		if cfg.CredentialsFile, err = config.DefaultCredentialsPath(); err != nil {
			return err
		}
	}
	if cfg.FavoritesDB == "" {
		if cfg.FavoritesDB, err = config.DefaultFavoritesDBPath(); err != nil {
			return err
		}
	}
	if cfg.Daemon && cfg.LogFile == "" {
		if cfg.LogFile, err = defaultLogFilePath(); err != nil {
			return err
		}
	}
	return nil
}

// startDaemon re-execs the current command in the background and waits
// briefly to catch startup failures.
func startDaemon(cfg *HostConfig, args []string, envVar string, stdout, stderr io.Writer) int {
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0700); err != nil {
		fmt.Fprintf(stderr, "Error: failed to create log directory: %v\n", err)
		return 1
	}
	logFile, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to open log file: %v\n", err)
		return 1
	}
	defer logFile.Close()

	exe, err := os.Executable()
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to get executable path: %v\n", err)
		return 1
	}

	cmd := exec.Command(exe, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = append(os.Environ(), envVar+"=1")
	if err := cmd.Start(); err != nil {
		fmt.Fprintf(stderr, "Error: failed to start daemon: %v\n", err)
		return 1
	}

	childDone := make(chan error, 1)
	go func() {
		childDone <- cmd.Wait()
	}()

	select {
	case err := <-childDone:
		if err != nil {
			fmt.Fprintf(stderr, "Error: daemon failed to start (exit: %v, check log: %s)\n", err, cfg.LogFile)
		} else {
			fmt.Fprintf(stderr, "Error: daemon exited unexpectedly (check log: %s)\n", cfg.LogFile)
		}
		return 1
	case <-time.After(2 * time.Second):
		fmt.Fprintf(stdout, "Host started (pid %d). Logging to: %s\n", cmd.Process.Pid, cfg.LogFile)
		return 0
	}
}

func runHostStop(args []string, g globalOptions, stdout, stderr io.Writer) int {
	client, ok := dialHost(g, stderr)
	if !ok {
		return 1
	}
	if client.Send(context.Background(), protocol.VerbQuit) != protocol.ResponseOK {
		fmt.Fprintln(stdout, notRunning)
		return 1
	}
	fmt.Fprintln(stdout, "Stopped")
	return 0
}

func runHostStatus(args []string, g globalOptions, stdout, stderr io.Writer) int {
	path, err := resolveSocketPath(g)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	resp := newClient(path).Send(context.Background(), protocol.VerbStatus)
	if resp == "" {
		fmt.Fprintf(stdout, "Host: not running (socket %s)\n", path)
		return 1
	}
	status, err := protocol.ParseStatus(resp)
	if err != nil {
		fmt.Fprintf(stderr, "Error: unexpected status response: %v\n", err)
		return 1
	}

	state := "paused"
	if status.Playing {
		state = "playing"
	}
	fmt.Fprintf(stdout, "Host:    running (socket %s)\n", path)
	fmt.Fprintf(stdout, "State:   %s\n", state)
	if status.Title != "" {
		fmt.Fprintf(stdout, "Track:   %s - %s\n", status.Title, status.Artist)
	}
	fmt.Fprintf(stdout, "Volume:  %d\n", status.Volume)
	return 0
}

// writePIDFile writes the current process ID to path, creating the parent
// directory if needed.
func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create PID file directory: %w", err)
	}
	pid := fmt.Sprintf("%d\n", os.Getpid())
	if err := os.WriteFile(path, []byte(pid), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// removePIDFile removes the PID file. Errors are reported but do not fail
// shutdown.
func removePIDFile(path string, stderr io.Writer) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(stderr, "Warning: failed to remove PID file: %v\n", err)
	}
}

// syncWriter serializes writes from independent loggers sharing one output.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// defaultLogFilePath returns ~/.config/xlg/host.log.
func defaultLogFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "xlg", "host.log"), nil
}
