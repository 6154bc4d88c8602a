package rom

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameFromPath(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/roms/snes/Chrono Trigger (USA).smc", "Chrono Trigger (USA)"},
		{"/roms/snes/Chrono Trigger (USA).zip", "Chrono Trigger (USA)"},
		{"/roms/snes/Chrono Trigger (USA).smc.gz", "Chrono Trigger (USA)"},
		{"/roms/nes/Super Mario Bros. 3.zip", "Super Mario Bros. 3"},
		{"/roms/nes/Dr. Mario.7z", "Dr. Mario"},
		{"Tetris.GB", "Tetris"},
		{"noext", "noext"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, NameFromPath(tt.path))
		})
	}
}

func TestNewDescriptor(t *testing.T) {
	snes := Console{ShortName: "snes", FullName: "Super Nintendo"}
	d := NewDescriptor("/roms/Super Metroid.sfc", snes)

	assert.Equal(t, "Super Metroid", d.Name)
	assert.Equal(t, "/roms/Super Metroid.sfc", d.Path)
	assert.Equal(t, snes, d.Console)
	assert.Equal(t, "Super Metroid [snes]", d.String())
	assert.Equal(t, "Super Metroid", Descriptor{Name: "Super Metroid"}.String())
}

func TestLookupConsole(t *testing.T) {
	c, ok := LookupConsole("SNES")
	require.True(t, ok)
	assert.Equal(t, "snes", c.ShortName)
	assert.Equal(t, "Super Nintendo", c.FullName)

	_, ok = LookupConsole("dreamcast")
	assert.False(t, ok)
}

func TestDetectConsole(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
		found    bool
	}{
		{"extension", "/any/where/Zelda.smc", "snes", true},
		{"extension case-insensitive", "/any/where/ZELDA.SFC", "snes", true},
		{"through compression suffix", "/any/where/Sonic.md.gz", "genesis", true},
		{"directory fallback for archives", "/roms/gba/Metroid Fusion.zip", "gba", true},
		{"unknown", "/roms/misc/readme.txt", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := DetectConsole(tt.path)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.expected, c.ShortName)
		})
	}
}

func TestLoadCatalog_MergesUserOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "consoles.yaml")
	content := `
consoles:
  snes:
    name: Super Famicom
    extensions: [.sfc]
  PSX:
    name: PlayStation
    extensions: [.cue]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644)) // #nosec G306

	cat, err := LoadCatalog(path)
	require.NoError(t, err)

	snes, ok := cat.Lookup("snes")
	require.True(t, ok)
	assert.Equal(t, "Super Famicom", snes.FullName)

	psx, ok := cat.Lookup("psx")
	require.True(t, ok)
	assert.Equal(t, "PlayStation", psx.FullName)

	_, ok = cat.Lookup("nes")
	assert.True(t, ok, "built-in entries survive the merge")

	// The embedded defaults are untouched.
	def, _ := LookupConsole("snes")
	assert.Equal(t, "Super Nintendo", def.FullName)
}

func TestLoadCatalog_MissingFileUsesDefaults(t *testing.T) {
	cat, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultCatalog().ShortNames(), cat.ShortNames())
}

func TestParseCatalog_Invalid(t *testing.T) {
	_, err := ParseCatalog([]byte("consoles: [not, a, map]"))
	assert.Error(t, err)
}
