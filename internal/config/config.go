package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// AppName names the config, cache and data directories under the XDG roots.
const AppName = "romart"

// Default remote endpoints.
const (
	DefaultHashIndexURL   = "https://raw.githubusercontent.com/sselph/scraper/master/hash.csv"
	DefaultConsoleGridURL = "http://consolegrid.com/api/top_picture"
	DefaultGamesDBURL     = "http://thegamesdb.net/api/GetArt.php"
)

// Index storage backends.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// Config holds application configuration.
type Config struct {
	DBPath      string            `yaml:"db_path"`
	DownloadDir string            `yaml:"download_dir"`
	HashIndex   HashIndexConfig   `yaml:"hash_index"`
	ConsoleGrid ConsoleGridConfig `yaml:"consolegrid"`
	GamesDB     GamesDBConfig     `yaml:"gamesdb"`
	IGDB        IGDBConfig        `yaml:"igdb"`
	Resolver    ResolverConfig    `yaml:"resolver"`
	HTTP        HTTPConfig        `yaml:"http"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	History     HistoryConfig     `yaml:"history"`
}

// HashIndexConfig locates the hash-to-game CSV and where it is cached.
type HashIndexConfig struct {
	Path      string `yaml:"path"`
	SourceURL string `yaml:"source_url"`
	Backend   string `yaml:"backend"` // csv or sqlite
}

type ConsoleGridConfig struct {
	APIURL string `yaml:"api_url"`
}

type GamesDBConfig struct {
	BaseURL string `yaml:"base_url"`
}

// IGDBConfig holds Twitch application credentials for the IGDB strategy.
type IGDBConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// ResolverConfig lists the strategies tried, in order.
type ResolverConfig struct {
	Strategies []string `yaml:"strategies"`
}

type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout"` // 0 leaves transport defaults
}

type LoggingConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// HistoryConfig controls recording of resolved artwork in the database.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		DBPath: DefaultDBPath(),
		HashIndex: HashIndexConfig{
			Path:      DefaultHashIndexPath(),
			SourceURL: DefaultHashIndexURL,
			Backend:   BackendCSV,
		},
		ConsoleGrid: ConsoleGridConfig{APIURL: DefaultConsoleGridURL},
		GamesDB:     GamesDBConfig{BaseURL: DefaultGamesDBURL},
		Resolver:    ResolverConfig{Strategies: []string{"thegamesdb"}},
		Logging:     LoggingConfig{Format: "text", Level: "info"},
		History:     HistoryConfig{Enabled: true},
	}
}

// DefaultDBPath places the database under $XDG_DATA_HOME/romart.
func DefaultDBPath() string {
	return filepath.Join(xdg.DataHome, AppName, "romart.db")
}

// DefaultHashIndexPath places the cached CSV under $XDG_CACHE_HOME/romart.
func DefaultHashIndexPath() string {
	return filepath.Join(xdg.CacheHome, AppName, "hash.csv")
}

// Dir returns the per-user config directory.
func Dir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// configPaths returns the list of paths to search for a config file.
func configPaths() []string {
	return []string{
		".romart.yaml",
		".romart.yml",
		filepath.Join(Dir(), "config.yaml"),
		filepath.Join(Dir(), "config.yml"),
	}
}

// Load loads configuration from file or returns defaults.
// Priority: env ROMART_CONFIG > search paths > defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if envPath := os.Getenv("ROMART_CONFIG"); envPath != "" {
		if err := cfg.loadFromFile(envPath); err != nil {
			return nil, err
		}
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	for _, path := range configPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := cfg.loadFromFile(path); err != nil {
				return nil, err
			}
			break
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // Path from env or fixed search list
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if dbPath := os.Getenv("ROMART_DB"); dbPath != "" {
		c.DBPath = dbPath
	}
	if indexPath := os.Getenv("ROMART_HASH_INDEX"); indexPath != "" {
		c.HashIndex.Path = indexPath
	}
	if id := os.Getenv("IGDB_CLIENT_ID"); id != "" {
		c.IGDB.ClientID = id
	}
	if secret := os.Getenv("IGDB_CLIENT_SECRET"); secret != "" {
		c.IGDB.ClientSecret = secret
	}
}

// GetDBPath returns the database path, applying defaults.
func (c *Config) GetDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return DefaultDBPath()
}

// GetHashIndexPath returns the CSV cache location, applying defaults.
func (c *Config) GetHashIndexPath() string {
	if c.HashIndex.Path != "" {
		return c.HashIndex.Path
	}
	return DefaultHashIndexPath()
}

// GetHashIndexURL returns the remote CSV source, applying defaults.
func (c *Config) GetHashIndexURL() string {
	if c.HashIndex.SourceURL != "" {
		return c.HashIndex.SourceURL
	}
	return DefaultHashIndexURL
}

// GetStrategies returns the resolver strategy order.
func (c *Config) GetStrategies() []string {
	if len(c.Resolver.Strategies) > 0 {
		return c.Resolver.Strategies
	}
	return []string{"thegamesdb"}
}

// HasIGDBCredentials reports whether both Twitch credentials are set.
func (c *Config) HasIGDBCredentials() bool {
	return c.IGDB.ClientID != "" && c.IGDB.ClientSecret != ""
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	out.Resolver.Strategies = append([]string(nil), c.Resolver.Strategies...)
	if out.IGDB.ClientSecret != "" {
		out.IGDB.ClientSecret = "********"
	}
	return &out
}

const exampleConfig = `# romart configuration

# SQLite database for artwork history and the sqlite index backend
# (default: $XDG_DATA_HOME/romart/romart.db)
# db_path: romart.db

# Where downloaded images are written (default: OS temp dir)
download_dir: ""

hash_index:
  # path: hash.csv   # default: $XDG_CACHE_HOME/romart/hash.csv
  source_url: https://raw.githubusercontent.com/sselph/scraper/master/hash.csv
  backend: csv   # csv or sqlite

consolegrid:
  api_url: http://consolegrid.com/api/top_picture

gamesdb:
  base_url: http://thegamesdb.net/api/GetArt.php

# Strategies tried in order; the first image found wins.
# Available: thegamesdb, consolegrid, igdb
resolver:
  strategies: [thegamesdb]

igdb:
  client_id: ""
  client_secret: ""

http:
  timeout: 0s   # 0 keeps transport defaults

logging:
  level: info   # debug, info, warn, error
  format: text  # text or json

metrics:
  textfile: ""

# Record each downloaded image in the database (see "romart history")
history:
  enabled: true
`

// WriteExample writes a commented example config to path. It refuses to
// overwrite an existing file.
func WriteExample(path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0o644); err != nil { //nolint:gosec // Config is not secret by default
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}
