package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Content source configuration
	ContentAPIURL string `long:"content-api-url" env:"CONTENT_API_URL" default:"http://localhost:3000/api" description:"Base URL of the portfolio content API"`
	AccessToken   string `long:"access-token" env:"ACCESS_TOKEN" description:"Operator access token (JWT) used to start the session at boot"`
	TokenSecret   string `long:"token-secret" env:"TOKEN_SECRET" description:"HMAC secret for verifying access tokens (optional)"`
	Gateway       string `long:"gateway" env:"GATEWAY" default:"api" choice:"api" choice:"snapshot" description:"Content source: live API or local SQLite snapshot"`
	SnapshotPath  string `long:"snapshot-path" env:"SNAPSHOT_PATH" default:"./data/snapshot.db" description:"SQLite snapshot file used when gateway is snapshot"`
	SnapshotSeed  string `long:"snapshot-seed" env:"SNAPSHOT_SEED" description:"JSON file imported into the snapshot at startup (optional)"`
	BlogFeedURL   string `long:"blog-feed-url" env:"BLOG_FEED_URL" description:"Public RSS/Atom feed to read blog posts from (optional)"`

	// Dashboard configuration
	DashboardConfig  string `long:"dashboard-config" env:"DASHBOARD_CONFIG" default:"./dashboard.yml" description:"YAML file with feed presets and chart settings"`
	PollInterval     int    `long:"poll-interval" env:"POLL_INTERVAL" default:"30" description:"Unread message poll interval in seconds"`
	FetchConcurrency int    `long:"fetch-concurrency" env:"FETCH_CONCURRENCY" default:"4" description:"Maximum parallel content fetches per refresh"`
	RequestTimeout   int    `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"15" description:"Content request timeout in seconds"`

	// HTTP server configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Folio Pulse/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for day buckets (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs parses args on top of the environment. Variables from ENV_FILE
// (default .env) are loaded first and never override the real environment.
func LoadArgs(args []string) (*Cfg, error) {
	if err := loadEnvFile(cmp.Or(os.Getenv("ENV_FILE"), ".env")); err != nil {
		return nil, err
	}

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		ContentAPIURL:    raw.ContentAPIURL,
		AccessToken:      raw.AccessToken,
		TokenSecret:      raw.TokenSecret,
		Gateway:          raw.Gateway,
		SnapshotPath:     raw.SnapshotPath,
		SnapshotSeed:     raw.SnapshotSeed,
		BlogFeedURL:      raw.BlogFeedURL,
		DashboardConfig:  raw.DashboardConfig,
		PollInterval:     raw.PollInterval,
		FetchConcurrency: raw.FetchConcurrency,
		RequestTimeout:   raw.RequestTimeout,
		Port:             raw.Port,
		APIAccessKey:     raw.APIAccessKey,
		UserAgent:        raw.UserAgent,
		Timezone:         raw.Timezone,
		Debug:            raw.Debug,
		Version:          GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func validate(cfg *Cfg) error {
	positiveFields := map[string]int{
		"poll interval":     cfg.PollInterval,
		"fetch concurrency": cfg.FetchConcurrency,
		"request timeout":   cfg.RequestTimeout,
	}

	for fieldName, fieldValue := range positiveFields {
		if fieldValue <= 0 {
			return fmt.Errorf("%s must be positive", fieldName)
		}
	}

	if cfg.Gateway == GatewayAPI && cfg.ContentAPIURL == "" {
		return fmt.Errorf("content API URL is required for the api gateway")
	}
	if cfg.Gateway == GatewaySnapshot && cfg.SnapshotPath == "" {
		return fmt.Errorf("snapshot path is required for the snapshot gateway")
	}

	return nil
}

func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load env file %s: %w", path, err)
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
