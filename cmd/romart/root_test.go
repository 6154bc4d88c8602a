package main

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // Index keys are MD5
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var romBytes = []byte("pretend this is a super famicom cartridge dump")

// fakeServices serves the hash index, art listings, images and ConsoleGrid.
type fakeServices struct {
	*httptest.Server
	indexHits int32
}

func newFakeServices(t *testing.T) *fakeServices {
	t.Helper()
	sum := md5.Sum(romBytes) //nolint:gosec // Index keys are MD5
	csv := fmt.Sprintf("0000,1,x,Other Game\n%s,42,x,Chrono Trigger\n", hex.EncodeToString(sum[:]))

	fs := &fakeServices{}
	mux := http.NewServeMux()
	mux.HandleFunc("/hash.csv", func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&fs.indexHits, 1)
		_, _ = w.Write([]byte(csv))
	})
	mux.HandleFunc("/api/GetArt.php", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "42" {
			_, _ = w.Write([]byte(`<Data></Data>`))
			return
		}
		_, _ = fmt.Fprintf(w, `<Data><baseImgUrl>%s/banners/</baseImgUrl><Images>
<fanart><original width="10" height="10">fanart/42.jpg</original></fanart>
<boxart side="front" width="300" height="400">boxart/42.png</boxart>
</Images></Data>`, fs.URL)
	})
	mux.HandleFunc("/banners/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("PNG"))
	})
	mux.HandleFunc("/api/top_picture", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("game") == "Earthbound" {
			_, _ = fmt.Fprintf(w, "%s/banners/cg/earthbound.png\n", fs.URL)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

// setupWorkspace chdirs into a temp dir with a config pointing at fs.
func setupWorkspace(t *testing.T, fs *fakeServices, extra string) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("ROMART_DB", "")
	t.Setenv("ROMART_HASH_INDEX", "")
	t.Setenv("IGDB_CLIENT_ID", "")
	t.Setenv("IGDB_CLIENT_SECRET", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	require.NoError(t, os.Mkdir(filepath.Join(dir, "images"), 0o755))
	cfg := fmt.Sprintf(`db_path: %s
download_dir: %s
hash_index:
  path: %s
  source_url: %s/hash.csv
consolegrid:
  api_url: %s/api/top_picture
gamesdb:
  base_url: %s/api/GetArt.php
logging:
  level: error
%s`, filepath.Join(dir, "romart.db"), filepath.Join(dir, "images"), filepath.Join(dir, "hash.csv"),
		fs.URL, fs.URL, fs.URL, extra)
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644)) // #nosec G306
	t.Setenv("ROMART_CONFIG", cfgPath)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "snes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "snes", "Chrono Trigger.sfc"), romBytes, 0o644))    // #nosec G306
	require.NoError(t, os.WriteFile(filepath.Join(dir, "snes", "Earthbound.sfc"), []byte("other"), 0o644)) // #nosec G306
	return dir
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestImage_HashStrategyDownloadsBestImage(t *testing.T) {
	fs := newFakeServices(t)
	dir := setupWorkspace(t, fs, "")

	stdout, _, err := run(t, "image", "snes/Chrono Trigger.sfc", "--json")
	require.NoError(t, err)

	var res imageResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, "thegamesdb", res.Strategy)
	assert.Equal(t, "snes", res.Console)
	assert.Equal(t, fs.URL+"/banners/boxart/42.png", res.URL)
	assert.Equal(t, filepath.Join(dir, "images"), filepath.Dir(res.Path))
	assert.Equal(t, ".png", filepath.Ext(res.Path))

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "PNG", string(data))
	assert.FileExists(t, filepath.Join(dir, "hash.csv"))
}

func TestImage_NotFoundIsError(t *testing.T) {
	fs := newFakeServices(t)
	setupWorkspace(t, fs, "")

	_, _, err := run(t, "image", "snes/Earthbound.sfc")
	assert.ErrorContains(t, err, "no image found")
}

func TestImage_ConsoleGridChaining(t *testing.T) {
	fs := newFakeServices(t)
	setupWorkspace(t, fs, "resolver:\n  strategies: [thegamesdb, consolegrid]\n")

	stdout, _, err := run(t, "image", "snes/Earthbound.sfc", "--url-only", "--json")
	require.NoError(t, err)

	var res imageResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, "consolegrid", res.Strategy)
	assert.Equal(t, fs.URL+"/banners/cg/earthbound.png", res.URL)
	assert.Empty(t, res.Path)
}

func TestImage_UnknownConsole(t *testing.T) {
	fs := newFakeServices(t)
	setupWorkspace(t, fs, "")

	_, _, err := run(t, "image", "snes/Chrono Trigger.sfc", "--console", "dreamcast-9000")
	assert.ErrorContains(t, err, "unknown console")
}

func TestHistory_ListsResolvedImages(t *testing.T) {
	fs := newFakeServices(t)
	setupWorkspace(t, fs, "")

	_, _, err := run(t, "image", "snes/Chrono Trigger.sfc", "-q")
	require.NoError(t, err)

	stdout, _, err := run(t, "history", "--json")
	require.NoError(t, err)

	var rows []map[string]string
	require.NoError(t, json.Unmarshal([]byte(stdout), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "thegamesdb", rows[0]["strategy"])
	assert.Equal(t, "snes/Chrono Trigger.sfc", rows[0]["rom"])
}

func TestExport_GamelistAndCSV(t *testing.T) {
	fs := newFakeServices(t)
	dir := setupWorkspace(t, fs, "")

	_, _, err := run(t, "image", "snes/Chrono Trigger.sfc", "-q")
	require.NoError(t, err)

	stdout, _, err := run(t, "export", "--path-prefix", "./")
	require.NoError(t, err)
	assert.Contains(t, stdout, "<gameList>")
	assert.Contains(t, stdout, "<path>./Chrono Trigger.sfc</path>")
	assert.Contains(t, stdout, "<name>Chrono Trigger</name>")

	out := filepath.Join(dir, "art.csv")
	_, _, err = run(t, "export", "--format", "csv", "--output", out, "-q")
	require.NoError(t, err)
	data, err := os.ReadFile(out) //nolint:gosec // Test temp dir
	require.NoError(t, err)
	assert.Contains(t, string(data), "thegamesdb,snes,snes/Chrono Trigger.sfc,"+fs.URL+"/banners/boxart/42.png")

	_, _, err = run(t, "export", "--format", "txt")
	assert.ErrorContains(t, err, "unknown export format")
}

func TestImage_HistoryDisabledLeavesNoDatabase(t *testing.T) {
	fs := newFakeServices(t)
	dir := setupWorkspace(t, fs, "history:\n  enabled: false\n")

	_, _, err := run(t, "image", "snes/Chrono Trigger.sfc", "-q")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "romart.db"))
}

func TestIndexFetch_DownloadsOnceUnlessForced(t *testing.T) {
	fs := newFakeServices(t)
	setupWorkspace(t, fs, "")

	for range 2 {
		_, _, err := run(t, "index", "fetch", "-q")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&fs.indexHits))

	_, _, err := run(t, "index", "fetch", "--force", "-q")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fs.indexHits))
}

func TestIndexFetch_SQLiteBackend(t *testing.T) {
	fs := newFakeServices(t)
	dir := setupWorkspace(t, fs, "")

	cfgPath := filepath.Join(dir, "config.yaml")
	data, err := os.ReadFile(cfgPath) //nolint:gosec // Test temp dir
	require.NoError(t, err)
	patched := strings.Replace(string(data), "hash_index:\n", "hash_index:\n  backend: sqlite\n", 1)
	require.NoError(t, os.WriteFile(cfgPath, []byte(patched), 0o644)) // #nosec G306

	_, _, err = run(t, "index", "fetch", "-q")
	require.NoError(t, err)
	assert.NoFileExists(t, "hash.csv")

	sum := md5.Sum(romBytes) //nolint:gosec // Index keys are MD5
	stdout, _, err := run(t, "lookup", strings.ToUpper(hex.EncodeToString(sum[:])))
	require.NoError(t, err)
	assert.Contains(t, stdout, "42  Chrono Trigger")
}

func TestLookup_Miss(t *testing.T) {
	fs := newFakeServices(t)
	setupWorkspace(t, fs, "")

	_, _, err := run(t, "lookup", "deadbeef")
	assert.ErrorContains(t, err, "no hash found for deadbeef")
}

func TestHash_PrintsDigestAndWritesMetrics(t *testing.T) {
	fs := newFakeServices(t)
	dir := setupWorkspace(t, fs, "")
	metricsPath := filepath.Join(dir, "romart.prom")

	stdout, _, err := run(t, "hash", "snes/Chrono Trigger.sfc", "--metrics-file", metricsPath)
	require.NoError(t, err)

	sum := md5.Sum(romBytes) //nolint:gosec // Index keys are MD5
	assert.Equal(t, hex.EncodeToString(sum[:])+"  snes/Chrono Trigger.sfc\n", stdout)

	prom, err := os.ReadFile(metricsPath) //nolint:gosec // Test temp dir
	require.NoError(t, err)
	assert.Contains(t, string(prom), "romart_hash_duration_seconds")
}

func TestImage_NotFoundStillWritesMetrics(t *testing.T) {
	fs := newFakeServices(t)
	dir := setupWorkspace(t, fs, "")
	metricsPath := filepath.Join(dir, "m.prom")

	_, _, err := run(t, "image", "snes/Earthbound.sfc", "--metrics-file", metricsPath)
	require.ErrorContains(t, err, "no image found")

	prom, err := os.ReadFile(metricsPath) //nolint:gosec // Test temp dir
	require.NoError(t, err)
	assert.Contains(t, string(prom), `romart_lookups_total{outcome="miss",strategy="thegamesdb"}`)
}

func TestHash_BadAlgorithm(t *testing.T) {
	fs := newFakeServices(t)
	setupWorkspace(t, fs, "")

	_, _, err := run(t, "hash", "snes/Chrono Trigger.sfc", "--algo", "sha3")
	assert.Error(t, err)
}

func TestConsoleGridCommand(t *testing.T) {
	fs := newFakeServices(t)
	setupWorkspace(t, fs, "")

	stdout, _, err := run(t, "consolegrid", "snes/Earthbound.sfc", "--json")
	require.NoError(t, err)
	assert.Contains(t, stdout, "earthbound.png")

	_, _, err = run(t, "consolegrid", "snes/Chrono Trigger.sfc")
	assert.ErrorContains(t, err, "no image")
}

func TestConsolesCommand(t *testing.T) {
	fs := newFakeServices(t)
	setupWorkspace(t, fs, "")

	stdout, _, err := run(t, "consoles")
	require.NoError(t, err)
	assert.Contains(t, stdout, "snes")
	assert.Contains(t, stdout, "Super Nintendo")
}

func TestConfigShowAndInit(t *testing.T) {
	fs := newFakeServices(t)
	setupWorkspace(t, fs, "igdb:\n  client_id: abc\n  client_secret: topsecret\n")

	stdout, _, err := run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "client_id: abc")
	assert.NotContains(t, stdout, "topsecret")

	_, _, err = run(t, "config", "init")
	require.NoError(t, err)
	assert.FileExists(t, ".romart.yaml")

	_, _, err = run(t, "config", "init")
	assert.ErrorContains(t, err, "already exists")
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "romart version "))
}

func TestPrinterTable(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{out: &buf}
	p.Table([]string{"a", "long"}, [][]string{{"xyz", "1"}})
	assert.Equal(t, "a    long\n---  ----\nxyz  1\n", buf.String())

	buf.Reset()
	p.json = true
	p.Table([]string{"a"}, [][]string{{"1"}})
	assert.JSONEq(t, `[{"a":"1"}]`, buf.String())
}
