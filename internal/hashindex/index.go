// Package hashindex maps ROM content hashes to game identifiers using a
// community-maintained CSV. The CSV is fetched once from its canonical
// location and cached through a Store; it is never refreshed unless asked.
package hashindex

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ryanm101/romart/internal/fetch"
	"github.com/ryanm101/romart/internal/logging"
	"github.com/ryanm101/romart/internal/metrics"
	"github.com/ryanm101/romart/internal/tracing"
)

// CSV column layout.
const (
	colHash   = 0
	colGameID = 1
	colTitle  = 3
	minCols   = 4
)

// GameRef identifies a game in the metadata service.
type GameRef struct {
	GameID string
	Title  string
}

// Finder is implemented by stores that can answer lookups without a scan.
type Finder interface {
	Find(ctx context.Context, hash string) (GameRef, bool, error)
}

// ProgressFunc receives bytes read so far and the expected total (-1 when
// the server does not say).
type ProgressFunc func(read, total int64)

// Index resolves hashes against the cached CSV.
type Index struct {
	store     Store
	sourceURL string
	client    *fetch.Client
	progress  ProgressFunc
}

// Option configures an Index.
type Option func(*Index)

// WithProgress reports download progress while populating the store.
func WithProgress(fn ProgressFunc) Option {
	return func(i *Index) { i.progress = fn }
}

// New creates an Index that downloads from sourceURL when store is empty.
func New(store Store, sourceURL string, client *fetch.Client, opts ...Option) *Index {
	if client == nil {
		client = fetch.New()
	}
	idx := &Index{store: store, sourceURL: sourceURL, client: client}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// EnsurePresent downloads the CSV into the store if it is not cached yet.
// Failures are returned as-is; there is no retry.
func (i *Index) EnsurePresent(ctx context.Context) error {
	ok, err := i.store.Exists(ctx)
	if err != nil {
		return fmt.Errorf("check hash index: %w", err)
	}
	if ok {
		return nil
	}
	return i.Refresh(ctx)
}

// Refresh downloads the CSV and replaces whatever the store holds.
func (i *Index) Refresh(ctx context.Context) (err error) {
	ctx, span := tracing.StartSpan(ctx, "hashindex.Refresh",
		tracing.WithAttributes(attribute.String("source", i.sourceURL)))
	defer func() {
		tracing.RecordError(span, err)
		metrics.RecordDownload(fetch.KindIndex, err)
		span.End()
	}()

	logging.Info("downloading hash index", "url", i.sourceURL)
	body, total, err := i.client.Open(ctx, i.sourceURL)
	if err != nil {
		return fmt.Errorf("download hash index: %w", err)
	}
	defer func() { _ = body.Close() }()

	var src io.Reader = body
	if i.progress != nil {
		src = &progressReader{r: body, total: total, fn: i.progress}
	}
	if err := i.store.Populate(ctx, src); err != nil {
		return fmt.Errorf("store hash index: %w", err)
	}
	return nil
}

// Lookup returns the game whose hash matches, ignoring case. The first
// matching row wins. A miss is (GameRef{}, false, nil).
func (i *Index) Lookup(ctx context.Context, hash string) (GameRef, bool, error) {
	if err := i.EnsurePresent(ctx); err != nil {
		return GameRef{}, false, err
	}

	if f, ok := i.store.(Finder); ok {
		return f.Find(ctx, hash)
	}

	rc, err := i.store.Load(ctx)
	if err != nil {
		return GameRef{}, false, fmt.Errorf("open hash index: %w", err)
	}
	defer func() { _ = rc.Close() }()

	ref, ok, rows, err := Scan(rc, hash)
	metrics.IndexRows.Set(float64(rows))
	return ref, ok, err
}

// Scan reads CSV rows from r until one matches hash. Rows with fewer than
// four columns are skipped. It also returns the number of rows read.
func Scan(r io.Reader, hash string) (GameRef, bool, int, error) {
	cr := newReader(r)
	rows := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return GameRef{}, false, rows, nil
		}
		if err != nil {
			return GameRef{}, false, rows, fmt.Errorf("read hash index: %w", err)
		}
		rows++
		if len(rec) < minCols {
			continue
		}
		if strings.EqualFold(rec[colHash], hash) {
			return GameRef{GameID: rec[colGameID], Title: rec[colTitle]}, true, rows, nil
		}
	}
}

// Each calls fn for every usable row, stopping at the first error.
func Each(r io.Reader, fn func(hash string, ref GameRef) error) error {
	cr := newReader(r)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read hash index: %w", err)
		}
		if len(rec) < minCols {
			continue
		}
		if err := fn(rec[colHash], GameRef{GameID: rec[colGameID], Title: rec[colTitle]}); err != nil {
			return err
		}
	}
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	return cr
}

type progressReader struct {
	r     io.Reader
	read  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	p.fn(p.read, p.total)
	return n, err
}
