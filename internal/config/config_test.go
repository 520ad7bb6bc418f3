package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/xlg/player/internal/errors"
)

func TestLoad_AllFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
socket_path = "/tmp/custom.sock"
mpd_network = "unix"
mpd_addr = "/run/mpd/socket"
mpd_password = "hunter2"
credentials_file = "/etc/xlg/creds"
library_base_url = "http://127.0.0.1:9999"
library_developer_token = "dev-token"
library_rate_per_minute = 5
favorites_db = "/tmp/fav.db"
log_level = "debug"
script_command = "/usr/local/bin/osascript"

[deck]
poll_interval_ms = 3000
request_timeout_ms = 500
reconnect_delay_ms = 2500
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.SocketPath != "/tmp/custom.sock" {
		t.Errorf("SocketPath = %q", cfg.SocketPath)
	}
	if cfg.MPDNetwork != "unix" {
		t.Errorf("MPDNetwork = %q", cfg.MPDNetwork)
	}
	if cfg.MPDAddr != "/run/mpd/socket" {
		t.Errorf("MPDAddr = %q", cfg.MPDAddr)
	}
	if cfg.MPDPassword != "hunter2" {
		t.Errorf("MPDPassword = %q", cfg.MPDPassword)
	}
	if cfg.CredentialsFile != "/etc/xlg/creds" {
		t.Errorf("CredentialsFile = %q", cfg.CredentialsFile)
	}
	if cfg.LibraryBaseURL != "http://127.0.0.1:9999" {
		t.Errorf("LibraryBaseURL = %q", cfg.LibraryBaseURL)
	}
	if cfg.LibraryDeveloperToken != "dev-token" {
		t.Errorf("LibraryDeveloperToken = %q", cfg.LibraryDeveloperToken)
	}
	if cfg.LibraryRatePerMinute != 5 {
		t.Errorf("LibraryRatePerMinute = %d", cfg.LibraryRatePerMinute)
	}
	if cfg.FavoritesDB != "/tmp/fav.db" {
		t.Errorf("FavoritesDB = %q", cfg.FavoritesDB)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.ScriptCommand != "/usr/local/bin/osascript" {
		t.Errorf("ScriptCommand = %q", cfg.ScriptCommand)
	}
	if got := cfg.Deck.EffectivePollInterval(); got != 3*time.Second {
		t.Errorf("EffectivePollInterval = %v", got)
	}
	if got := cfg.Deck.EffectiveRequestTimeout(); got != 500*time.Millisecond {
		t.Errorf("EffectiveRequestTimeout = %v", got)
	}
	if got := cfg.Deck.EffectiveReconnectDelay(); got != 2500*time.Millisecond {
		t.Errorf("EffectiveReconnectDelay = %v", got)
	}
}

func TestLoad_PartialConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := os.WriteFile(path, []byte(`socket_path = "/tmp/only.sock"`), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.SocketPath != "/tmp/only.sock" {
		t.Errorf("SocketPath = %q", cfg.SocketPath)
	}
	if cfg.MPDAddr != "" {
		t.Errorf("MPDAddr should be empty, got %q", cfg.MPDAddr)
	}
	if got := cfg.Deck.EffectivePollInterval(); got != DefaultPollInterval {
		t.Errorf("EffectivePollInterval = %v, want default", got)
	}
}

func TestLoad_ExplicitPath_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Fatal("expected error for missing explicit path")
	}
	if !apperrors.IsCode(err, apperrors.CodeConfigNotFound) {
		t.Errorf("code = %q, want %q", apperrors.GetCode(err), apperrors.CodeConfigNotFound)
	}
}

func TestLoad_EmptyPath_NoDefaultFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected empty config, got nil")
	}
	if cfg.SocketPath != "" {
		t.Errorf("SocketPath should be empty, got %q", cfg.SocketPath)
	}
}

func TestLoad_EmptyPath_DefaultFileExists(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "xlg")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`mpd_addr = "music:6600"`), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MPDAddr != "music:6600" {
		t.Errorf("MPDAddr = %q", cfg.MPDAddr)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`socket_path = [unterminated`), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := Load(path)
	if !apperrors.IsCode(err, apperrors.CodeConfigInvalid) {
		t.Errorf("code = %q, want %q", apperrors.GetCode(err), apperrors.CodeConfigInvalid)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`log_level = "loud"`), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := Load(path)
	if !apperrors.IsCode(err, apperrors.CodeConfigInvalid) {
		t.Errorf("code = %q, want %q", apperrors.GetCode(err), apperrors.CodeConfigInvalid)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("DefaultConfigPath failed: %v", err)
	}
	want := filepath.Join(home, ".config", "xlg", "config.toml")
	if path != want {
		t.Errorf("DefaultConfigPath = %q, want %q", path, want)
	}
}

func TestWriteDefault_CreatesLoadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 0600", perm)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load of default file failed: %v", err)
	}
	if cfg.SocketPath != DefaultSocketPath {
		t.Errorf("SocketPath = %q, want %q", cfg.SocketPath, DefaultSocketPath)
	}
	if cfg.MPDAddr != DefaultMPDAddr {
		t.Errorf("MPDAddr = %q, want %q", cfg.MPDAddr, DefaultMPDAddr)
	}
}

func TestWriteDefault_DoesNotOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`socket_path = "/tmp/mine.sock"`), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "/tmp/mine.sock") {
		t.Errorf("existing file was overwritten: %s", data)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "empty is valid", cfg: Config{}},
		{name: "tcp network", cfg: Config{MPDNetwork: "tcp"}},
		{name: "bad network", cfg: Config{MPDNetwork: "udp"}, wantErr: true},
		{name: "bad log level", cfg: Config{LogLevel: "trace"}, wantErr: true},
		{name: "negative rate", cfg: Config{LibraryRatePerMinute: -1}, wantErr: true},
		{name: "negative poll", cfg: Config{Deck: DeckConfig{PollIntervalMs: -5}}, wantErr: true},
		{name: "negative reconnect", cfg: Config{Deck: DeckConfig{ReconnectDelayMs: -1}}, wantErr: true},
		{name: "timeout equals poll", cfg: Config{Deck: DeckConfig{PollIntervalMs: 1000, RequestTimeoutMs: 1000}}, wantErr: true},
		{name: "timeout above default poll", cfg: Config{Deck: DeckConfig{RequestTimeoutMs: 2500}}, wantErr: true},
		{name: "timeout below poll", cfg: Config{Deck: DeckConfig{PollIntervalMs: 5000, RequestTimeoutMs: 2500}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	content := `# xlg credentials

APPLE_MUSIC_USER_TOKEN="user-token"
OTHER = 'quoted'
EMPTY=
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write credentials: %v", err)
	}

	creds, err := LoadCredentials(path)
	if err != nil {
		t.Fatalf("LoadCredentials failed: %v", err)
	}
	if got := creds[UserTokenKey]; got != "user-token" {
		t.Errorf("%s = %q", UserTokenKey, got)
	}
	if got := creds["OTHER"]; got != "quoted" {
		t.Errorf("OTHER = %q", got)
	}
	if len(creds) != 3 {
		t.Errorf("len = %d, want 3: %v", len(creds), creds)
	}
}

func TestLoadCredentials_Missing(t *testing.T) {
	creds, err := LoadCredentials(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("LoadCredentials failed: %v", err)
	}
	if len(creds) != 0 {
		t.Errorf("expected empty credentials, got %v", creds)
	}
}

func TestCredentials_GetFallsBackToEnv(t *testing.T) {
	t.Setenv(UserTokenKey, "from-env")

	if got := (Credentials{}).Get(UserTokenKey); got != "from-env" {
		t.Errorf("Get = %q, want env value", got)
	}
	if got := (Credentials{UserTokenKey: "from-file"}).Get(UserTokenKey); got != "from-file" {
		t.Errorf("Get = %q, want file value", got)
	}
}

func TestLoadCredentials_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte("TOKEN=\"unterminated\n"), 0600); err != nil {
		t.Fatalf("write credentials: %v", err)
	}
	if _, err := LoadCredentials(path); err == nil {
		t.Fatal("expected error for unterminated quote")
	}
}

func TestSaveCredential(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xlg", "config")

	if err := SaveCredential(path, UserTokenKey, "first"); err != nil {
		t.Fatalf("SaveCredential() on missing file: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %o, want 0600", info.Mode().Perm())
	}

	existing := "# keys\nAPPLE_MUSIC_KEY_ID=abc\n" + UserTokenKey + "=\"old\"\n" + UserTokenKey + "=dup\n"
	if err := os.WriteFile(path, []byte(existing), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := SaveCredential(path, UserTokenKey, "new"); err != nil {
		t.Fatalf("SaveCredential(): %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "APPLE_MUSIC_KEY_ID=\"abc\"\n" + UserTokenKey + "=\"new\"\n"
	if string(data) != want {
		t.Errorf("file = %q, want %q", data, want)
	}

	creds, err := LoadCredentials(path)
	if err != nil {
		t.Fatalf("LoadCredentials(): %v", err)
	}
	if creds[UserTokenKey] != "new" || creds["APPLE_MUSIC_KEY_ID"] != "abc" {
		t.Errorf("creds = %v", creds)
	}
}
