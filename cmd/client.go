package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/xlg/player/internal/ipc"
	"github.com/xlg/player/internal/protocol"
)

// clientTimeout bounds one CLI round trip to the host.
const clientTimeout = 2 * time.Second

const notRunning = "Player not running"

// playbackMessages maps a command to the line printed when the host
// acknowledges it.
var playbackMessages = map[string]string{
	"pause":    "Paused",
	"resume":   "Resumed",
	"toggle":   "Toggled",
	"skip":     "Skipped",
	"previous": "Previous",
	"prev":     "Previous",
	"favorite": "Favorited",
	"love":     "Favorited",
}

// newClient is replaced in tests.
var newClient = func(path string) sender {
	return ipc.NewClient(path, clientTimeout)
}

type sender interface {
	Send(ctx context.Context, command string) string
}

func dialHost(g globalOptions, stderr io.Writer) (sender, bool) {
	path, err := resolveSocketPath(g)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, false
	}
	return newClient(path), true
}

func runPlayback(cmd string, args []string, g globalOptions, stdout, stderr io.Writer) int {
	client, ok := dialHost(g, stderr)
	if !ok {
		return 1
	}
	ctx := context.Background()

	switch cmd {
	case "status":
		resp := client.Send(ctx, protocol.VerbStatus)
		if resp == "" {
			resp = `{"error":"` + notRunning + `"}`
		}
		fmt.Fprintln(stdout, resp)
		return 0

	case "volume":
		if len(args) < 1 {
			fmt.Fprintln(stdout, "Usage: xlg volume <level>")
			return 1
		}
		if client.Send(ctx, protocol.VerbVolume+" "+args[0]) != protocol.ResponseOK {
			fmt.Fprintln(stdout, notRunning)
			return 0
		}
		fmt.Fprintf(stdout, "Volume: %s\n", args[0])
		return 0
	}

	wire := cmd
	if cmd == "prev" {
		wire = protocol.VerbPrevious
	}
	if client.Send(ctx, wire) != protocol.ResponseOK {
		fmt.Fprintln(stdout, notRunning)
		return 0
	}
	fmt.Fprintln(stdout, playbackMessages[cmd])
	return 0
}

func runPlay(args []string, g globalOptions, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	fs.SetOutput(stderr)
	playlist := fs.Bool("playlist", false, "Treat the id as a playlist")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: xlg play [--playlist] <id...>\n\nLoad content by catalog id and start playback.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if code, ok := parseFlags(fs, args, stderr); !ok {
		return code
	}

	ids := fs.Args()
	if len(ids) == 0 {
		fmt.Fprintln(stdout, "Usage: xlg play [--playlist] <id...>")
		return 1
	}

	client, ok := dialHost(g, stderr)
	if !ok {
		return 1
	}

	wire := strings.Join(ids, " ")
	if *playlist {
		wire = protocol.FlagPlaylist + " " + wire
	}
	if client.Send(context.Background(), wire) != protocol.ResponseOK {
		fmt.Fprintln(stdout, notRunning)
		return 0
	}
	if *playlist {
		fmt.Fprintf(stdout, "Playing playlist: %s\n", ids[0])
	} else {
		fmt.Fprintf(stdout, "Playing: %s\n", strings.Join(ids, " "))
	}
	return 0
}

func runSend(args []string, g globalOptions, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stdout, "Usage: xlg send <raw command>")
		return 1
	}
	client, ok := dialHost(g, stderr)
	if !ok {
		return 1
	}

	resp := client.Send(context.Background(), strings.Join(args, " "))
	if resp == "" {
		fmt.Fprintln(stdout, notRunning)
		return 0
	}
	fmt.Fprintln(stdout, resp)
	return 0
}
