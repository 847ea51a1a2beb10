// Package config loads service settings from defaults, an optional YAML file
// and the environment (including a .env file), in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	dotenv "github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// FileEnv names the YAML config file, if any.
const FileEnv = "AOCSTATS_CONFIG"

// MinFetchInterval is the polling limit AoC asks API users to respect.
const MinFetchInterval = 15 * time.Minute

const firstEvent = 2015

type Config struct {
	// SessionCookie is the adventofcode.com session cookie of a leaderboard member.
	SessionCookie string `koanf:"session_id"`
	LeaderboardId string `koanf:"leaderboard_id"`
	Year          int    `koanf:"year"`

	Port         int    `koanf:"server_port"`
	DatabasePath string `koanf:"database_path"`
	// CachePath holds rendered pages of shared leaderboards.
	CachePath string `koanf:"cache_path"`

	FetchInterval time.Duration `koanf:"fetch_interval"`
	LogLevel      string        `koanf:"log_level"`
}

func New(now time.Time) *Config {
	return &Config{
		Year:          DefaultYear(now),
		Port:          7071,
		DatabasePath:  "./data.sqlite3",
		CachePath:     "./fiber_storage.sqlite3",
		FetchInterval: MinFetchInterval,
		LogLevel:      "info",
	}
}

// DefaultYear is the latest event that has started by now.
func DefaultYear(now time.Time) int {
	now = now.UTC()
	if now.Month() == time.December {
		return now.Year()
	}
	return now.Year() - 1
}

// Load reads .env files (the default ".env" when none are given), then
// layers the YAML file named by AOCSTATS_CONFIG and the environment over the
// defaults. Missing .env files are not an error.
func Load(envFiles ...string) (*Config, error) {
	if err := dotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	k := koanf.New(".")

	if path := os.Getenv(FileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	// SESSION_ID -> session_id
	envProvider := env.Provider("", ".", strings.ToLower)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *New(time.Now())
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Port)
	}
	if c.FetchInterval < MinFetchInterval {
		return fmt.Errorf("fetch interval %s is below the %s minimum", c.FetchInterval, MinFetchInterval)
	}
	if c.Year < firstEvent {
		return fmt.Errorf("invalid event year %d", c.Year)
	}
	if c.DatabasePath == "" {
		return errors.New("database path must not be empty")
	}
	return nil
}

// CanFetch reports whether the credentials for the AoC API are set.
func (c *Config) CanFetch() bool {
	return c.SessionCookie != "" && c.LeaderboardId != ""
}
