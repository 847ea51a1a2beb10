// Package fetcher downloads a private leaderboard from adventofcode.com.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"uocsclub.net/aocstats/internal/config"
	"uocsclub.net/aocstats/internal/types"
	"uocsclub.net/aocstats/internal/validate"
)

const DefaultBaseURL = "https://adventofcode.com"

// maxBody caps the leaderboard response; a full 200-member board is well
// below it.
const maxBody = 8 << 20

var (
	ErrFetch       = errors.New("failed to fetch AOC")
	ErrRateLimited = errors.New("AOC fetch rate limited")
	ErrNoSession   = errors.New("no AOC session or leaderboard configured")
)

type AOCFetcherConfig struct {
	SessionCookie string
	LeaderboardId string
	Year          int
}

type Client struct {
	config  AOCFetcherConfig
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

type Option func(*Client)

// WithBaseURL points the client at another host, mostly for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(url, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithInterval changes the minimum time between two requests.
func WithInterval(every time.Duration) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Every(every), 1) }
}

func New(cfg *config.Config, opts ...Option) *Client {
	c := &Client{
		config: AOCFetcherConfig{
			SessionCookie: cfg.SessionCookie,
			LeaderboardId: cfg.LeaderboardId,
			Year:          cfg.Year,
		},
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(config.MinFetchInterval), 1),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Year is the event this client fetches.
func (c *Client) Year() int {
	return c.config.Year
}

// Fetch downloads and validates the leaderboard. It returns ErrRateLimited
// without contacting AoC when the previous request was too recent.
func (c *Client) Fetch(ctx context.Context) (*types.AOCEvent, error) {
	if c.config.SessionCookie == "" || c.config.LeaderboardId == "" {
		return nil, ErrNoSession
	}
	if !c.limiter.Allow() {
		return nil, ErrRateLimited
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		fmt.Sprintf("%s/%d/leaderboard/private/view/%s.json", c.baseURL, c.config.Year, c.config.LeaderboardId),
		nil,
	)
	if err != nil {
		c.logger.Warn("failed to create AOC request", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	req.AddCookie(&http.Cookie{
		Name:  "session",
		Value: c.config.SessionCookie,
		// values after this not required, but this is what AOC uses
		Domain:   ".adventofcode.com",
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
	})
	req.Header.Set("User-Agent", "aocstats (+https://uocsclub.net)")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("AOC request failed", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	// an expired session redirects to the login page instead of failing
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("AOC returned an unexpected status", slog.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	if err := validate.Payload(body); err != nil {
		c.logger.Error("AOC returned an invalid leaderboard", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	event := &types.AOCEvent{}
	if err := json.Unmarshal(body, event); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	c.logger.Info("fetched leaderboard", slog.Int("year", int(event.Year)), slog.Int("members", len(event.Members)))
	return event, nil
}
