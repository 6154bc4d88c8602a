package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ryanm101/romart/internal/config"
	"github.com/ryanm101/romart/internal/consolegrid"
	"github.com/ryanm101/romart/internal/db"
	"github.com/ryanm101/romart/internal/fetch"
	"github.com/ryanm101/romart/internal/gamesdb"
	"github.com/ryanm101/romart/internal/gridimage"
	"github.com/ryanm101/romart/internal/hashindex"
	"github.com/ryanm101/romart/internal/igdb"
	"github.com/ryanm101/romart/internal/logging"
	"github.com/ryanm101/romart/internal/metrics"
	"github.com/ryanm101/romart/internal/rom"
	"github.com/ryanm101/romart/internal/tracing"
)

// app carries configuration and lazily built clients across a command run.
type app struct {
	cfg *config.Config
	out *printer

	jsonOut     bool
	quiet       bool
	verbose     bool
	metricsFile string

	shutdown func(context.Context) error
	client   *fetch.Client
	database *db.DB
	bar      *progressbar.ProgressBar
}

// setup loads config and installs logging and tracing.
func (a *app) setup(cmd *cobra.Command) error {
	a.out = &printer{out: cmd.OutOrStdout(), err: cmd.ErrOrStderr(), json: a.jsonOut, quiet: a.quiet}

	cfg, err := config.Load()
	if err != nil {
		a.out.Error("Warning: failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}
	a.cfg = cfg

	logging.Setup(logging.Config{
		Format:  cfg.Logging.Format,
		Level:   cfg.Logging.Level,
		Verbose: a.verbose,
		Output:  cmd.ErrOrStderr(),
	})

	shutdown, err := tracing.Setup(cmd.Context(), tracing.FromEnv(getVersion()))
	if err != nil {
		logging.Error("failed to setup tracing", "error", err)
		shutdown = func(context.Context) error { return nil }
	}
	a.shutdown = shutdown
	return nil
}

// teardown flushes traces, writes metrics and closes the database. It is
// safe to call more than once.
func (a *app) teardown(ctx context.Context) {
	if a.bar != nil {
		_ = a.bar.Finish()
		a.bar = nil
	}
	if a.shutdown != nil {
		if err := a.shutdown(ctx); err != nil {
			logging.Error("failed to shutdown tracing", "error", err)
		}
		a.shutdown = nil
	}
	if path := a.metricsPath(); path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			logging.Error("failed to write metrics", "path", path, "error", err)
		}
	}
	if a.database != nil {
		_ = a.database.Close()
		a.database = nil
	}
}

func (a *app) metricsPath() string {
	if a.metricsFile != "" {
		return a.metricsFile
	}
	if a.cfg != nil {
		return a.cfg.Metrics.Textfile
	}
	return ""
}

func (a *app) httpClient() *fetch.Client {
	if a.client == nil {
		a.client = fetch.New(
			fetch.WithTimeout(a.cfg.HTTP.Timeout),
			fetch.WithDownloadDir(a.cfg.DownloadDir),
		)
	}
	return a.client
}

func (a *app) openDB(ctx context.Context) (*db.DB, error) {
	if a.database == nil {
		d, err := db.Open(ctx, a.cfg.GetDBPath())
		if err != nil {
			return nil, err
		}
		a.database = d
	}
	return a.database, nil
}

func (a *app) hashStore(ctx context.Context) (hashindex.Store, error) {
	switch strings.ToLower(a.cfg.HashIndex.Backend) {
	case "", config.BackendCSV:
		return hashindex.NewFileStore(a.cfg.GetHashIndexPath()), nil
	case config.BackendSQLite:
		d, err := a.openDB(ctx)
		if err != nil {
			return nil, err
		}
		return db.NewHashStore(d), nil
	default:
		return nil, fmt.Errorf("unknown hash index backend %q", a.cfg.HashIndex.Backend)
	}
}

func (a *app) index(ctx context.Context, opts ...hashindex.Option) (*hashindex.Index, error) {
	store, err := a.hashStore(ctx)
	if err != nil {
		return nil, err
	}
	return hashindex.New(store, a.cfg.GetHashIndexURL(), a.httpClient(), opts...), nil
}

func (a *app) consoleGrid() *consolegrid.Client {
	return consolegrid.New(a.cfg.ConsoleGrid.APIURL, a.httpClient())
}

func (a *app) catalog() *rom.Catalog {
	cat, err := rom.LoadCatalog(filepath.Join(config.Dir(), "consoles.yaml"))
	if err != nil {
		logging.Warn("failed to load console overrides", "error", err)
		return rom.DefaultCatalog()
	}
	return cat
}

// resolver builds the configured strategy chain. Successful resolutions
// are recorded in the artwork history unless history is disabled.
func (a *app) resolver(ctx context.Context, strategies []string) (*gridimage.Resolver, error) {
	idx, err := a.index(ctx, a.progressOption())
	if err != nil {
		return nil, err
	}

	deps := gridimage.Deps{
		ConsoleGrid: a.consoleGrid(),
		Index:       idx,
		GamesDB:     gamesdb.New(a.cfg.GamesDB.BaseURL, a.httpClient()),
	}
	if containsFold(strategies, gridimage.StrategyIGDB) && a.cfg.HasIGDBCredentials() {
		s, err := igdb.Connect(ctx, a.httpClient().HTTP(), a.cfg.IGDB.ClientID, a.cfg.IGDB.ClientSecret)
		if err != nil {
			logging.Warn("igdb unavailable", "error", err)
		} else {
			deps.IGDB = s
		}
	}

	list, err := gridimage.BuildStrategies(strategies, deps)
	if err != nil {
		return nil, err
	}

	var opts []gridimage.Option
	if a.cfg.History.Enabled {
		if d, err := a.openDB(ctx); err != nil {
			logging.Warn("artwork history disabled", "error", err)
		} else {
			opts = append(opts, gridimage.WithRecorder(recordTo(d)))
		}
	}
	return gridimage.NewResolver(a.httpClient(), list, opts...), nil
}

func recordTo(d *db.DB) gridimage.RecordFunc {
	return func(ctx context.Context, r rom.Descriptor, res gridimage.Result) error {
		_, err := d.RecordArtwork(ctx, db.Artwork{
			ROMPath:   r.Path,
			Console:   r.Console.ShortName,
			Strategy:  res.Strategy,
			URL:       res.URL,
			LocalPath: res.Path,
		})
		return err
	}
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
