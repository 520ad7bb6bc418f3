package main

import (
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/xlg/player/internal/config"
)

func runAuthSetToken(args []string, g globalOptions, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("auth set-token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	credPath := fs.String("credentials", "", "Credential file (default: from config, then ~/.config/xlg/config)")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: xlg auth set-token [options] <token>\n\nStore the library user token used by favorite.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if code, ok := parseFlags(fs, args, stderr); !ok {
		return code
	}
	if fs.NArg() != 1 || strings.TrimSpace(fs.Arg(0)) == "" {
		fmt.Fprintln(stdout, "Usage: xlg auth set-token <token>")
		return 1
	}

	path := *credPath
	if path == "" {
		fileCfg, err := loadConfig(g)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		path = fileCfg.CredentialsFile
	}
	if path == "" {
		var err error
		if path, err = config.DefaultCredentialsPath(); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	if err := config.SaveCredential(path, config.UserTokenKey, strings.TrimSpace(fs.Arg(0))); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Saved %s to %s\n", config.UserTokenKey, path)
	return 0
}
