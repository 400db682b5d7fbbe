// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath    = "config.toml"
	DefaultHTTPAddr      = ":8080"
	DefaultZoomAPIURL    = "https://api.zoom.us/v2"
	DefaultZoomOAuthURL  = "https://zoom.us/oauth/token"
	DefaultZoomDLBaseURL = "https://zoom.us/v2"
	DefaultCRMBaseURL    = "https://rest.gohighlevel.com/v1"
	DefaultDedupCapacity = 1000
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log    LogConfig    `toml:"log"`
	Server ServerConfig `toml:"server"`
	Zoom   ZoomConfig   `toml:"zoom"`
	CRM    CRMConfig    `toml:"crm"`
	Links  LinksConfig  `toml:"links"`
	Dedup  DedupConfig  `toml:"dedup"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP server listen address.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// ZoomConfig holds server-to-server OAuth credentials and the webhook secret token.
type ZoomConfig struct {
	AccountID    string `toml:"account_id"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	// SecretToken signs webhook payloads and the URL-validation handshake.
	SecretToken     string `toml:"secret_token"`
	APIBaseURL      string `toml:"api_base_url"`
	OAuthURL        string `toml:"oauth_url"`
	DownloadBaseURL string `toml:"download_base_url"`
}

// CRMConfig holds the CRM API key, location, and base URL.
type CRMConfig struct {
	APIKey     string `toml:"api_key"`
	LocationID string `toml:"location_id"`
	BaseURL    string `toml:"base_url"`
}

// LinksConfig holds the public base URL used to build recording download links in notes.
type LinksConfig struct {
	PublicBaseURL string `toml:"public_base_url"`
}

// DedupConfig holds the bounded dedup window capacity.
type DedupConfig struct {
	Capacity int `toml:"capacity"`
}

// Load reads and parses the TOML config file at path and applies default values for missing fields.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Zoom: ZoomConfig{
			APIBaseURL:      DefaultZoomAPIURL,
			OAuthURL:        DefaultZoomOAuthURL,
			DownloadBaseURL: DefaultZoomDLBaseURL,
		},
		CRM: CRMConfig{
			BaseURL: DefaultCRMBaseURL,
		},
		Dedup: DedupConfig{
			Capacity: DefaultDedupCapacity,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
