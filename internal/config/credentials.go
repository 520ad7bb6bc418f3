package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// UserTokenKey is the credential consumed for library writes.
const UserTokenKey = "APPLE_MUSIC_USER_TOKEN"

// Credentials is the parsed KEY=VALUE credential file.
type Credentials map[string]string

// DefaultCredentialsPath returns ~/.config/xlg/config.
func DefaultCredentialsPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config"), nil
}

// LoadCredentials parses a credential file in dotenv syntax: KEY=VALUE
// lines, "#" comments, optionally quoted values. A missing file yields
// empty credentials.
func LoadCredentials(path string) (Credentials, error) {
	creds, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, nil
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	return Credentials(creds), nil
}

// Get returns the file value for key, falling back to the environment.
func (c Credentials) Get(key string) string {
	if v := c[key]; v != "" {
		return v
	}
	return os.Getenv(key)
}

// SaveCredential sets key in the credential file, keeping every other key.
// The file is rewritten in dotenv syntax with mode 0600; comments are not
// preserved.
func SaveCredential(path, key, value string) error {
	creds, err := LoadCredentials(path)
	if err != nil {
		return err
	}
	creds[key] = value

	data, err := godotenv.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(data+"\n"), 0600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}
