// Package rom describes the ROM files and consoles romart resolves artwork for.
package rom

import (
	"path/filepath"
	"strings"
)

// Console identifies the platform a ROM runs on.
type Console struct {
	ShortName string // e.g. "snes", used in service queries
	FullName  string // e.g. "Super Nintendo", used in log messages
}

// Descriptor identifies a single game file.
type Descriptor struct {
	Name    string // logical game name
	Path    string // filesystem path to the ROM or archive
	Console Console
}

// compressedSuffixes are stripped before deriving a game name from a path.
var compressedSuffixes = []string{".zip", ".7z", ".rar", ".gz", ".xz"}

// NewDescriptor builds a descriptor whose name is the file's base name
// without archive and ROM extensions.
func NewDescriptor(path string, console Console) Descriptor {
	return Descriptor{
		Name:    NameFromPath(path),
		Path:    path,
		Console: console,
	}
}

// NameFromPath strips the directory, any compression suffix and the ROM
// extension: "/roms/Chrono Trigger (USA).smc.gz" -> "Chrono Trigger (USA)".
func NameFromPath(path string) string {
	base := NameFromPathKeepExt(path)
	if ext := filepath.Ext(base); isROMExtension(ext) {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// isROMExtension rejects "extensions" that are really part of a title,
// as in "Super Mario Bros. 3".
func isROMExtension(ext string) bool {
	return len(ext) > 1 && len(ext) <= 5 && !strings.ContainsAny(ext, " ()[]")
}

func (d Descriptor) String() string {
	if d.Console.ShortName == "" {
		return d.Name
	}
	return d.Name + " [" + d.Console.ShortName + "]"
}
