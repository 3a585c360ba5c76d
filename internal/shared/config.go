package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Ingest      IngestConfig      `toml:"ingest"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials for the client-credentials flow.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// IngestConfig contains settings for the slice ingestion pipeline.
type IngestConfig struct {
	DataPath        string  `toml:"data_path"`         // Directory holding mpd.slice.*.json files
	SliceSize       int     `toml:"slice_size"`        // Playlists per slice file (1000 in the MPD)
	TrackBatchSize  int     `toml:"track_batch_size"`  // Max track IDs per catalog request
	ArtistBatchSize int     `toml:"artist_batch_size"` // Max artist IDs per catalog request
	PauseEvery      int     `toml:"pause_every"`       // Courtesy pause after this many batches
	PauseSeconds    int     `toml:"pause_seconds"`     // Courtesy pause duration
	RateLimit       float64 `toml:"rate_limit"`        // Catalog requests per second
	SideLogPath     string  `toml:"side_log_path"`     // Append-only log of failed enrichments
}

// ServerConfig contains HTTP server settings for the read API.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// A .env file in the working directory, if present, is loaded first;
// SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET and DATABASE_PATH environment
// variables override the corresponding file values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfig, path, err)
	}

	ApplyEnv(&config)
	return &config, nil
}

// ApplyEnv overlays environment variables (and a .env file, if present) onto config.
func ApplyEnv(config *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		config.Credentials.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		config.Credentials.Spotify.ClientSecret = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		config.Database.Path = v
	}
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
