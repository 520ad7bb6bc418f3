// Command deckplugin is the Stream Deck plugin binary. The Stream Deck app
// launches it with -port, -pluginUUID, -registerEvent and -info.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/xlg/player/internal/config"
	"github.com/xlg/player/internal/deck"
	"github.com/xlg/player/internal/ipc"
)

// pluginOptions are the launch arguments handed over by the Stream Deck app.
type pluginOptions struct {
	Port          int
	PluginUUID    string
	RegisterEvent string
	Info          string
	ConfigPath    string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// parseArgs reads the launch arguments. The Stream Deck app passes
// single-dash long flags, which the standard flag package accepts as is.
func parseArgs(args []string, stderr io.Writer) (pluginOptions, error) {
	var opts pluginOptions
	fs := flag.NewFlagSet("deckplugin", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&opts.Port, "port", 0, "Stream Deck websocket port")
	fs.StringVar(&opts.PluginUUID, "pluginUUID", "", "Plugin instance UUID")
	fs.StringVar(&opts.RegisterEvent, "registerEvent", "", "Registration event name")
	fs.StringVar(&opts.Info, "info", "", "Application info JSON (unused)")
	fs.StringVar(&opts.ConfigPath, "config", "", "Config file path (default: ~/.config/xlg/config.toml)")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.Port <= 0 || opts.Port > 65535 {
		return opts, fmt.Errorf("-port must be a valid TCP port, got %d", opts.Port)
	}
	if opts.PluginUUID == "" || opts.RegisterEvent == "" {
		return opts, errors.New("-pluginUUID and -registerEvent are required")
	}
	return opts, nil
}

func run(args []string, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	socketPath := cfg.SocketPath
	if socketPath == "" {
		socketPath = config.DefaultSocketPath
	}

	logger := log.New(stderr, "deck: ", log.LstdFlags)
	client := ipc.NewClient(socketPath, cfg.Deck.EffectiveRequestTimeout())
	session := deck.NewSession(deck.Config{
		Port:           opts.Port,
		PluginUUID:     opts.PluginUUID,
		RegisterEvent:  opts.RegisterEvent,
		PollInterval:   cfg.Deck.EffectivePollInterval(),
		ReconnectDelay: cfg.Deck.EffectiveReconnectDelay(),
		Logger:         logger,
	}, client)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Printf("plugin %s driving %s via %s", opts.PluginUUID, socketPath, session.URL())
	if err := session.Run(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
