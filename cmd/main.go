package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/xlg/player/internal/config"
)

// Version is set at build time via -ldflags.
// Example: go build -ldflags="-X main.Version=v0.1.0" ./cmd
var Version = "dev"

const usage = `xlg - terminal music player control

Usage:
  xlg [--socket <path>] [--config <path>] <command> [args]

Playback:
  play [--playlist] <id...>   Load tracks (or one playlist) and play
  pause                       Pause playback
  resume                      Resume playback
  toggle                      Toggle play/pause
  skip                        Skip to next track
  previous | prev             Go to previous track
  volume <level>              Set volume: 50, +10, -10
  status                      Print JSON status
  favorite | love             Favorite the current track
  send <raw command>          Send a raw command and print the response

Host:
  host start [options] [--playlist] [id...]   Run the player host
  host stop                   Ask a running host to quit
  host status                 Show whether a host is running

Other:
  favorites list [--limit N] [--json]   Show favorite history
  config init [--path <file>]           Write a default config file
  auth set-token <token>                Store the library user token
  version                               Print version

Run 'xlg <command> --help' for more information on a command.
`

// globalOptions are flags accepted before the command name.
type globalOptions struct {
	Socket string
	Config string
}

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("xlg", flag.ContinueOnError)
	fs.SetOutput(stderr)
	// Stop at the command name so "volume -10" reaches the command intact.
	fs.SetInterspersed(false)

	var g globalOptions
	fs.StringVar(&g.Socket, "socket", "", "Command socket path (default: from config, then "+config.DefaultSocketPath+")")
	fs.StringVar(&g.Config, "config", "", "Config file path (default: ~/.config/xlg/config.toml)")
	showVersion := fs.BoolP("version", "v", false, "Print version")
	fs.Usage = func() { fmt.Fprint(stdout, usage) }

	if len(args) > 0 {
		args = args[1:]
	}
	if code, ok := parseFlags(fs, args, stderr); !ok {
		return code
	}
	if *showVersion {
		fmt.Fprintf(stdout, "xlg %s\n", Version)
		return 0
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprint(stdout, usage)
		return 0
	}

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "pause", "resume", "toggle", "skip", "previous", "prev", "volume", "status", "favorite", "love":
		return runPlayback(cmd, cmdArgs, g, stdout, stderr)
	case "play":
		return runPlay(cmdArgs, g, stdout, stderr)
	case "send":
		return runSend(cmdArgs, g, stdout, stderr)
	case "host":
		if len(cmdArgs) < 1 {
			fmt.Fprintln(stdout, "Usage: xlg host <start|stop|status>")
			return 1
		}
		switch cmdArgs[0] {
		case "start":
			return runHostStart(cmdArgs[1:], g, stdout, stderr)
		case "stop":
			return runHostStop(cmdArgs[1:], g, stdout, stderr)
		case "status":
			return runHostStatus(cmdArgs[1:], g, stdout, stderr)
		default:
			fmt.Fprintf(stdout, "Unknown host command: %s\n", cmdArgs[0])
			return 1
		}
	case "favorites":
		if len(cmdArgs) < 1 || cmdArgs[0] != "list" {
			fmt.Fprintln(stdout, "Usage: xlg favorites list [--limit N] [--json]")
			return 1
		}
		return runFavoritesList(cmdArgs[1:], g, stdout, stderr)
	case "config":
		if len(cmdArgs) < 1 || cmdArgs[0] != "init" {
			fmt.Fprintln(stdout, "Usage: xlg config init [--path <file>]")
			return 1
		}
		return runConfigInit(cmdArgs[1:], g, stdout, stderr)
	case "auth":
		if len(cmdArgs) < 1 || cmdArgs[0] != "set-token" {
			fmt.Fprintln(stdout, "Usage: xlg auth set-token <token>")
			return 1
		}
		return runAuthSetToken(cmdArgs[1:], g, stdout, stderr)
	case "help":
		fmt.Fprint(stdout, usage)
		return 0
	case "version":
		fmt.Fprintf(stdout, "xlg %s\n", Version)
		return 0
	default:
		fmt.Fprintf(stdout, "Unknown command: %s\n", cmd)
		fmt.Fprint(stdout, usage)
		return 1
	}
}

// parseFlags parses args into fs. pflag does not report parse errors under
// ContinueOnError, so they are printed here along with the usage. ok is
// false when the caller should return code.
func parseFlags(fs *flag.FlagSet, args []string, stderr io.Writer) (code int, ok bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0, false
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if fs.Usage != nil {
			fs.Usage()
		} else {
			fs.PrintDefaults()
		}
		return 1, false
	}
	return 0, true
}

// loadConfig reads the config file named by --config, or the default one.
func loadConfig(g globalOptions) (*config.Config, error) {
	return config.Load(g.Config)
}

// resolveSocketPath applies --socket, then the config file, then the
// built-in default.
func resolveSocketPath(g globalOptions) (string, error) {
	if g.Socket != "" {
		return g.Socket, nil
	}
	cfg, err := loadConfig(g)
	if err != nil {
		return "", err
	}
	if cfg.SocketPath != "" {
		return cfg.SocketPath, nil
	}
	return config.DefaultSocketPath, nil
}
