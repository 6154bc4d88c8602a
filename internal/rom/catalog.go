package rom

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed consoles.yaml
var defaultsFS embed.FS

// ConsoleEntry is one console in the catalog file.
type ConsoleEntry struct {
	Name        string   `yaml:"name"`
	Extensions  []string `yaml:"extensions"`
	Directories []string `yaml:"directories"`
}

// Catalog maps console short names to their full names and the file
// extensions and directory names used to detect them.
type Catalog struct {
	Consoles map[string]ConsoleEntry `yaml:"consoles"`
}

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		data, err := defaultsFS.ReadFile("consoles.yaml")
		if err != nil {
			defaultCatalog = &Catalog{Consoles: map[string]ConsoleEntry{}}
			return
		}
		cat, err := ParseCatalog(data)
		if err != nil {
			defaultCatalog = &Catalog{Consoles: map[string]ConsoleEntry{}}
			return
		}
		defaultCatalog = cat
	})
	return defaultCatalog
}

// ParseCatalog decodes a catalog from YAML.
func ParseCatalog(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse console catalog: %w", err)
	}
	if cat.Consoles == nil {
		cat.Consoles = map[string]ConsoleEntry{}
	}
	return &cat, nil
}

// LoadCatalog returns the embedded catalog merged with the user overrides
// in path, if that file exists. Entries in the file replace built-in ones.
func LoadCatalog(path string) (*Catalog, error) {
	merged := DefaultCatalog().clone()

	data, err := os.ReadFile(path) //nolint:gosec // Path from config dir
	if os.IsNotExist(err) {
		return merged, nil
	}
	if err != nil {
		return nil, err
	}

	user, err := ParseCatalog(data)
	if err != nil {
		return nil, err
	}
	for short, entry := range user.Consoles {
		merged.Consoles[strings.ToLower(short)] = entry
	}
	return merged, nil
}

func (c *Catalog) clone() *Catalog {
	out := &Catalog{Consoles: make(map[string]ConsoleEntry, len(c.Consoles))}
	for k, v := range c.Consoles {
		out.Consoles[k] = v
	}
	return out
}

// Lookup returns the console with the given short name.
func (c *Catalog) Lookup(shortName string) (Console, bool) {
	short := strings.ToLower(shortName)
	entry, ok := c.Consoles[short]
	if !ok {
		return Console{}, false
	}
	return Console{ShortName: short, FullName: entry.Name}, true
}

// Detect guesses the console for a ROM path, first from the ROM extension
// (looking through compression suffixes), then from the parent directory name.
func (c *Catalog) Detect(path string) (Console, bool) {
	ext := strings.ToLower(filepath.Ext(NameFromPathKeepExt(path)))
	for _, short := range c.ShortNames() {
		for _, e := range c.Consoles[short].Extensions {
			if strings.EqualFold(e, ext) {
				return c.Lookup(short)
			}
		}
	}

	dir := strings.ToLower(filepath.Base(filepath.Dir(path)))
	for _, short := range c.ShortNames() {
		for _, d := range c.Consoles[short].Directories {
			if strings.EqualFold(d, dir) {
				return c.Lookup(short)
			}
		}
	}
	return Console{}, false
}

// ShortNames returns the catalog keys in sorted order.
func (c *Catalog) ShortNames() []string {
	names := make([]string, 0, len(c.Consoles))
	for k := range c.Consoles {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// NameFromPathKeepExt strips the directory and any compression suffix but
// keeps the ROM extension: "/roms/a.smc.gz" -> "a.smc".
func NameFromPathKeepExt(path string) string {
	base := filepath.Base(path)
	lower := strings.ToLower(base)
	for _, suffix := range compressedSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return base[:len(base)-len(suffix)]
		}
	}
	return base
}

// LookupConsole resolves a short name against the embedded catalog.
func LookupConsole(shortName string) (Console, bool) {
	return DefaultCatalog().Lookup(shortName)
}

// DetectConsole guesses a console against the embedded catalog.
func DetectConsole(path string) (Console, bool) {
	return DefaultCatalog().Detect(path)
}
