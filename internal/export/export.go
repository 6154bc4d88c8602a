// Package export renders resolved artwork history for frontends and spreadsheets.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ryanm101/romart/internal/db"
)

// Format defines output format.
type Format string

const (
	FormatGamelist Format = "gamelist"
	FormatCSV      Format = "csv"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatGamelist, FormatCSV}
}

// ParseFormat maps a user supplied name to a Format.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q", name)
}

// GamelistGame represents a single game entry in EmulationStation's gamelist.xml.
type GamelistGame struct {
	XMLName xml.Name `xml:"game"`
	Path    string   `xml:"path"`
	Name    string   `xml:"name"`
	Image   string   `xml:"image,omitempty"`
}

// GamelistXML represents the root gamelist.xml structure.
type GamelistXML struct {
	XMLName xml.Name       `xml:"gameList"`
	Games   []GamelistGame `xml:"game"`
}

// Options configures an export.
type Options struct {
	Console    string // Only include artwork for this console short name
	PathPrefix string // Prefix for ROM paths (e.g., "./")
	ImageDir   string // Rewrite image paths into this directory (e.g., "./images/")
}

// Latest keeps the newest entry per ROM path, preserving first-seen order.
// Input is expected newest first, as db.ListArtwork returns it.
func Latest(entries []db.Artwork, console string) []db.Artwork {
	seen := make(map[string]bool, len(entries))
	out := make([]db.Artwork, 0, len(entries))
	for _, e := range entries {
		if console != "" && !strings.EqualFold(e.Console, console) {
			continue
		}
		if seen[e.ROMPath] {
			continue
		}
		seen[e.ROMPath] = true
		out = append(out, e)
	}
	return out
}

// Render writes entries in the requested format.
func Render(entries []db.Artwork, format Format, opts Options) ([]byte, error) {
	latest := Latest(entries, opts.Console)
	switch format {
	case FormatGamelist:
		return Gamelist(latest, opts)
	case FormatCSV:
		return CSV(latest)
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// Gamelist generates an EmulationStation gamelist.xml from artwork entries.
func Gamelist(entries []db.Artwork, opts Options) ([]byte, error) {
	games := make([]GamelistGame, 0, len(entries))
	for _, e := range entries {
		games = append(games, GamelistGame{
			Path:  formatPath(e.ROMPath, opts.PathPrefix),
			Name:  gameName(e.ROMPath),
			Image: imagePath(e.LocalPath, opts.ImageDir),
		})
	}

	output, err := xml.MarshalIndent(GamelistXML{Games: games}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), output...), nil
}

// CSV renders one row per entry with a header line.
func CSV(entries []db.Artwork) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"resolved_at", "strategy", "console", "rom", "url", "image"}); err != nil {
		return nil, err
	}
	for _, e := range entries {
		row := []string{
			e.ResolvedAt.UTC().Format(time.RFC3339),
			e.Strategy,
			e.Console,
			e.ROMPath,
			e.URL,
			e.LocalPath,
		}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	return buf.Bytes(), writer.Error()
}

func formatPath(path, prefix string) string {
	if prefix != "" {
		return prefix + filepath.Base(path)
	}
	return path
}

func imagePath(local, dir string) string {
	if local == "" || dir == "" {
		return local
	}
	return filepath.Join(dir, filepath.Base(local))
}

func gameName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
