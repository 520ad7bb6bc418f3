// Package library adds tracks to the user's music library over the network.
// It is the primary-mode implementation of the favorite command.
package library

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/xlg/player/internal/config"
	apperrors "github.com/xlg/player/internal/errors"
)

// DefaultTimeout bounds one library call.
const DefaultTimeout = 10 * time.Second

// Config configures the library client.
type Config struct {
	// BaseURL is the API root, e.g. https://api.music.apple.com.
	BaseURL string

	// UserToken authorizes writes to the user's library.
	UserToken string

	// DeveloperToken, if set, is sent as a bearer token.
	DeveloperToken string

	// RatePerMinute bounds submissions; the burst allows a few rapid
	// presses. Zero uses config.DefaultLibraryRatePerMinute.
	RatePerMinute int

	// Timeout bounds one call. Zero uses DefaultTimeout.
	Timeout time.Duration
}

// Client submits library writes.
type Client struct {
	baseURL        string
	userToken      string
	developerToken string
	httpClient     *http.Client
	limiter        *rate.Limiter
}

// New creates a library client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = config.DefaultLibraryBaseURL
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = config.DefaultLibraryRatePerMinute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		userToken:      cfg.UserToken,
		developerToken: cfg.DeveloperToken,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		limiter:        rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), 3),
	}
}

// Configured reports whether a user token is available.
func (c *Client) Configured() bool {
	return c.userToken != ""
}

// AddSong adds the catalog song to the user's library.
func (c *Client) AddSong(ctx context.Context, songID string) error {
	if c.userToken == "" {
		return apperrors.LibraryTokenMissing(config.UserTokenKey)
	}
	if songID == "" {
		return apperrors.LibraryWriteFailed("current track", fmt.Errorf("track has no catalog id"))
	}
	if !c.limiter.Allow() {
		return apperrors.LibraryRateLimited()
	}

	endpoint := c.baseURL + "/v1/me/library?ids[songs]=" + url.QueryEscape(songID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return apperrors.LibraryWriteFailed(songID, err)
	}
	req.Header.Set("Music-User-Token", c.userToken)
	if c.developerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.developerToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.LibraryWriteFailed(songID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.LibraryWriteFailed(songID,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
