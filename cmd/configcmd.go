package main

import (
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/xlg/player/internal/config"
)

func runConfigInit(args []string, g globalOptions, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("config init", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("path", g.Config, "Where to write the file (default: ~/.config/xlg/config.toml)")
	if code, ok := parseFlags(fs, args, stderr); !ok {
		return code
	}

	target := *path
	if target == "" {
		var err error
		if target, err = config.DefaultConfigPath(); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	if _, err := os.Stat(target); err == nil {
		fmt.Fprintf(stdout, "Config already exists: %s\n", target)
		return 0
	}
	if err := config.WriteDefault(target); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Wrote %s\n", target)
	return 0
}
