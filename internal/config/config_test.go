package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultDBPath(), cfg.DBPath)
	assert.Equal(t, DefaultHashIndexPath(), cfg.HashIndex.Path)
	assert.Equal(t, DefaultHashIndexURL, cfg.HashIndex.SourceURL)
	assert.Equal(t, BackendCSV, cfg.HashIndex.Backend)
	assert.Equal(t, DefaultConsoleGridURL, cfg.ConsoleGrid.APIURL)
	assert.Equal(t, DefaultGamesDBURL, cfg.GamesDB.BaseURL)
	assert.Equal(t, []string{"thegamesdb"}, cfg.Resolver.Strategies)
	assert.Equal(t, time.Duration(0), cfg.HTTP.Timeout)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.History.Enabled)
}

func TestDefaultPaths_UnderXDGDirs(t *testing.T) {
	assert.True(t, filepath.IsAbs(DefaultDBPath()))
	assert.Equal(t, AppName, filepath.Base(filepath.Dir(DefaultDBPath())))
	assert.Equal(t, AppName, filepath.Base(filepath.Dir(DefaultHashIndexPath())))
	assert.NotEqual(t, filepath.Dir(DefaultDBPath()), filepath.Dir(DefaultHashIndexPath()))
}

func TestConfig_Getters(t *testing.T) {
	empty := &Config{}
	assert.Equal(t, DefaultDBPath(), empty.GetDBPath())
	assert.Equal(t, DefaultHashIndexPath(), empty.GetHashIndexPath())
	assert.Equal(t, DefaultHashIndexURL, empty.GetHashIndexURL())
	assert.Equal(t, []string{"thegamesdb"}, empty.GetStrategies())

	set := &Config{
		DBPath:    "custom.db",
		HashIndex: HashIndexConfig{Path: "/cache/hash.csv", SourceURL: "http://mirror/hash.csv"},
		Resolver:  ResolverConfig{Strategies: []string{"consolegrid", "thegamesdb"}},
	}
	assert.Equal(t, "custom.db", set.GetDBPath())
	assert.Equal(t, "/cache/hash.csv", set.GetHashIndexPath())
	assert.Equal(t, "http://mirror/hash.csv", set.GetHashIndexURL())
	assert.Equal(t, []string{"consolegrid", "thegamesdb"}, set.GetStrategies())
}

func TestConfig_HasIGDBCredentials(t *testing.T) {
	tests := []struct {
		name     string
		igdb     IGDBConfig
		expected bool
	}{
		{"both set", IGDBConfig{ClientID: "id", ClientSecret: "secret"}, true},
		{"missing secret", IGDBConfig{ClientID: "id"}, false},
		{"missing id", IGDBConfig{ClientSecret: "secret"}, false},
		{"none", IGDBConfig{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{IGDB: tt.igdb}
			assert.Equal(t, tt.expected, cfg.HasIGDBCredentials())
		})
	}
}

func TestConfig_LoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	configContent := `
db_path: /var/lib/romart/romart.db
download_dir: /tmp/grid
hash_index:
  path: /var/cache/romart/hash.csv
  backend: sqlite
consolegrid:
  api_url: http://localhost:9000/api/top_picture
resolver:
  strategies:
    - consolegrid
    - thegamesdb
http:
  timeout: 15s
logging:
  format: json
  level: debug
metrics:
  textfile: /var/lib/node_exporter/romart.prom
history:
  enabled: false
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644)) // #nosec G306

	cfg := DefaultConfig()
	require.NoError(t, cfg.loadFromFile(configPath))

	assert.Equal(t, "/var/lib/romart/romart.db", cfg.DBPath)
	assert.Equal(t, "/tmp/grid", cfg.DownloadDir)
	assert.Equal(t, "/var/cache/romart/hash.csv", cfg.HashIndex.Path)
	assert.Equal(t, BackendSQLite, cfg.HashIndex.Backend)
	assert.Equal(t, DefaultHashIndexURL, cfg.HashIndex.SourceURL, "unset keys keep defaults")
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "http://localhost:9000/api/top_picture", cfg.ConsoleGrid.APIURL)
	assert.Equal(t, []string{"consolegrid", "thegamesdb"}, cfg.Resolver.Strategies)
	assert.Equal(t, 15*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/var/lib/node_exporter/romart.prom", cfg.Metrics.Textfile)
}

func TestConfig_LoadFromFile_NotFound(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.loadFromFile("/nonexistent/path.yaml"))
}

func TestConfig_LoadFromFile_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("invalid: yaml: content:"), 0o644)) // #nosec G306

	cfg := DefaultConfig()
	assert.Error(t, cfg.loadFromFile(configPath))
}

func TestConfig_ApplyEnvOverrides(t *testing.T) {
	t.Setenv("ROMART_DB", "/env/romart.db")
	t.Setenv("ROMART_HASH_INDEX", "/env/hash.csv")
	t.Setenv("IGDB_CLIENT_ID", "env-id")
	t.Setenv("IGDB_CLIENT_SECRET", "env-secret")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "/env/romart.db", cfg.DBPath)
	assert.Equal(t, "/env/hash.csv", cfg.HashIndex.Path)
	assert.True(t, cfg.HasIGDBCredentials())
}

func TestLoad_WithEnvConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("db_path: from_file.db"), 0o644)) // #nosec G306

	t.Setenv("ROMART_CONFIG", configPath)
	t.Setenv("ROMART_DB", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from_file.db", cfg.DBPath)
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	t.Setenv("ROMART_CONFIG", "")
	t.Setenv("ROMART_DB", "")
	t.Setenv("ROMART_HASH_INDEX", "")

	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultDBPath(), cfg.DBPath)
	assert.Equal(t, DefaultHashIndexPath(), cfg.HashIndex.Path)
	assert.True(t, cfg.History.Enabled)
}

func TestLoad_FindsDotfileInWorkingDirectory(t *testing.T) {
	t.Setenv("ROMART_CONFIG", "")
	t.Setenv("ROMART_DB", "")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".romart.yaml"), []byte("download_dir: grid"), 0o644)) // #nosec G306
	t.Chdir(dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "grid", cfg.DownloadDir)
}

func TestDir_UnderXDGConfigHome(t *testing.T) {
	assert.Equal(t, AppName, filepath.Base(Dir()))
}

func TestWriteExample_ParsesAndRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".romart.yaml")

	written, err := WriteExample(path)
	require.NoError(t, err)
	assert.Equal(t, path, written)

	cfg := DefaultConfig()
	require.NoError(t, cfg.loadFromFile(path))
	assert.Equal(t, DefaultConfig().GetStrategies(), cfg.GetStrategies())
	assert.Equal(t, BackendCSV, cfg.HashIndex.Backend)
	assert.Equal(t, DefaultDBPath(), cfg.DBPath)
	assert.Equal(t, DefaultHashIndexPath(), cfg.HashIndex.Path)
	assert.True(t, cfg.History.Enabled)

	_, err = WriteExample(path)
	assert.ErrorContains(t, err, "already exists")
}

func TestRedacted_MasksSecret(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IGDB = IGDBConfig{ClientID: "id", ClientSecret: "hunter2"}

	red := cfg.Redacted()
	assert.Equal(t, "id", red.IGDB.ClientID)
	assert.NotEqual(t, "hunter2", red.IGDB.ClientSecret)
	assert.Equal(t, "hunter2", cfg.IGDB.ClientSecret, "original untouched")

	red.Resolver.Strategies[0] = "changed"
	assert.Equal(t, "thegamesdb", cfg.Resolver.Strategies[0])
}
