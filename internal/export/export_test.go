package export

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanm101/romart/internal/db"
)

func history() []db.Artwork {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return []db.Artwork{
		{ID: 3, ROMPath: "roms/snes/Chrono Trigger.sfc", Console: "snes", Strategy: "thegamesdb", URL: "http://x/new.png", LocalPath: "/tmp/romart-2.png", ResolvedAt: now},
		{ID: 2, ROMPath: "roms/nes/Metroid.nes", Console: "nes", Strategy: "consolegrid", URL: "http://x/m.png", LocalPath: "/tmp/romart-1.png", ResolvedAt: now.Add(-time.Hour)},
		{ID: 1, ROMPath: "roms/snes/Chrono Trigger.sfc", Console: "snes", Strategy: "consolegrid", URL: "http://x/old.png", LocalPath: "/tmp/romart-0.png", ResolvedAt: now.Add(-2 * time.Hour)},
	}
}

func TestLatest(t *testing.T) {
	got := Latest(history(), "")
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, int64(2), got[1].ID)

	snes := Latest(history(), "SNES")
	require.Len(t, snes, 1)
	assert.Equal(t, "http://x/new.png", snes[0].URL)
}

func TestGamelist(t *testing.T) {
	data, err := Render(history(), FormatGamelist, Options{PathPrefix: "./", ImageDir: "./images"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), xml.Header))

	var doc GamelistXML
	require.NoError(t, xml.Unmarshal(data, &doc))
	require.Len(t, doc.Games, 2)
	assert.Equal(t, "./Chrono Trigger.sfc", doc.Games[0].Path)
	assert.Equal(t, "Chrono Trigger", doc.Games[0].Name)
	assert.Equal(t, "images/romart-2.png", doc.Games[0].Image)
}

func TestGamelist_KeepsPathsWithoutOptions(t *testing.T) {
	data, err := Gamelist(history()[:1], Options{})
	require.NoError(t, err)
	assert.Contains(t, string(data), "<path>roms/snes/Chrono Trigger.sfc</path>")
	assert.Contains(t, string(data), "<image>/tmp/romart-2.png</image>")
}

func TestCSV(t *testing.T) {
	data, err := Render(history(), FormatCSV, Options{Console: "nes"})
	require.NoError(t, err)
	assert.Equal(t,
		"resolved_at,strategy,console,rom,url,image\n"+
			"2024-05-01T11:00:00Z,consolegrid,nes,roms/nes/Metroid.nes,http://x/m.png,/tmp/romart-1.png\n",
		string(data))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("txt")
	assert.ErrorContains(t, err, "unknown export format")
}
