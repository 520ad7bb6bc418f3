package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/xlg/player/internal/config"
	"github.com/xlg/player/internal/storage"
)

// favoriteJSON is the --json form of one ledger entry.
type favoriteJSON struct {
	ID        string    `json:"id"`
	TrackID   string    `json:"track_id,omitempty"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	Mode      string    `json:"mode"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// formatAgo formats a duration in a human-readable way.
// Examples: "just now", "5m ago", "2h ago", "3d ago"
func formatAgo(d time.Duration) string {
	if d < 0 {
		return "in the future"
	}
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(d.Hours()/24))
}

func runFavoritesList(args []string, g globalOptions, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("favorites list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	limit := fs.IntP("limit", "n", 20, "Maximum entries to show (0 for all)")
	jsonOutput := fs.Bool("json", false, "Output in JSON format")
	dbPath := fs.String("db", "", "Favorites ledger (default: from config, then ~/.config/xlg/favorites.db)")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: xlg favorites list [options]\n\nShow recent favorite submissions, newest first.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if code, ok := parseFlags(fs, args, stderr); !ok {
		return code
	}

	path := *dbPath
	if path == "" {
		fileCfg, err := loadConfig(g)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		path = fileCfg.FavoritesDB
	}
	if path == "" {
		var err error
		if path, err = config.DefaultFavoritesDBPath(); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	var entries []*storage.FavoriteEntry
	if _, err := os.Stat(path); err == nil {
		store, err := storage.NewSQLiteStore(path)
		if err != nil {
			fmt.Fprintf(stderr, "Error: failed to open favorites ledger: %v\n", err)
			return 1
		}
		defer store.Close()

		entries, err = store.ListFavorites(*limit)
		if err != nil {
			fmt.Fprintf(stderr, "Error: failed to list favorites: %v\n", err)
			return 1
		}
	}

	if *jsonOutput {
		out := make([]favoriteJSON, 0, len(entries))
		for _, e := range entries {
			out = append(out, favoriteJSON{
				ID:        e.ID,
				TrackID:   e.TrackID,
				Title:     e.Title,
				Artist:    e.Artist,
				Mode:      e.Mode,
				Status:    e.Status,
				Error:     e.Error,
				CreatedAt: e.CreatedAt,
			})
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		enc.Encode(out)
		return 0
	}

	if len(entries) == 0 {
		fmt.Fprintln(stdout, "No favorites recorded.")
		return 0
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tSTATUS\tMODE\tTITLE\tARTIST")
	fmt.Fprintln(w, "----\t------\t----\t-----\t------")
	now := time.Now()
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", formatAgo(now.Sub(e.CreatedAt)), e.Status, e.Mode, title, e.Artist)
	}
	w.Flush()
	return 0
}
