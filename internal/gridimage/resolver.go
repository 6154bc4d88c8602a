// Package gridimage resolves a single grid image for a ROM by running an
// ordered list of lookup strategies and downloading the first hit.
package gridimage

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ryanm101/romart/internal/logging"
	"github.com/ryanm101/romart/internal/metrics"
	"github.com/ryanm101/romart/internal/rom"
	"github.com/ryanm101/romart/internal/tracing"
)

// Provider is anything that can supply a local grid image for a ROM.
type Provider interface {
	Name() string
	Enabled() bool
	ImageForROM(ctx context.Context, r rom.Descriptor) (path string, found bool, err error)
}

// Strategy produces a candidate image URL. A miss is ("", false, nil);
// a non-nil error aborts the resolution.
type Strategy interface {
	Name() string
	TryResolve(ctx context.Context, r rom.Descriptor) (url string, found bool, err error)
}

// Downloader turns an image URL into a local file.
type Downloader interface {
	Download(ctx context.Context, url string) (string, error)
}

// Result describes a successful resolution.
type Result struct {
	Strategy string
	URL      string
	Path     string
}

// RecordFunc is told about every successful resolution.
type RecordFunc func(ctx context.Context, r rom.Descriptor, res Result) error

// Resolver runs strategies in order. It is a Provider.
type Resolver struct {
	strategies []Strategy
	downloader Downloader
	record     RecordFunc
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRecorder registers a callback for successful resolutions. Its
// errors are logged, not returned.
func WithRecorder(fn RecordFunc) Option {
	return func(r *Resolver) { r.record = fn }
}

// NewResolver creates a Resolver over strategies.
func NewResolver(downloader Downloader, strategies []Strategy, opts ...Option) *Resolver {
	r := &Resolver{strategies: strategies, downloader: downloader}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ Provider = (*Resolver)(nil)

func (r *Resolver) Name() string {
	names := make([]string, 0, len(r.strategies))
	for _, s := range r.strategies {
		names = append(names, s.Name())
	}
	return "resolver[" + strings.Join(names, ",") + "]"
}

// Enabled reports whether there is any strategy to run.
func (r *Resolver) Enabled() bool {
	return len(r.strategies) > 0
}

// ImageForROM returns the local path of a downloaded image for rom.
func (r *Resolver) ImageForROM(ctx context.Context, desc rom.Descriptor) (string, bool, error) {
	res, ok, err := r.Resolve(ctx, desc)
	if err != nil || !ok {
		return "", ok, err
	}
	return res.Path, true, nil
}

// FindURL runs strategies until one yields a URL, without downloading.
func (r *Resolver) FindURL(ctx context.Context, desc rom.Descriptor) (url, strategy string, found bool, err error) {
	for _, s := range r.strategies {
		u, ok, err := s.TryResolve(ctx, desc)
		switch {
		case err != nil:
			metrics.RecordLookup(s.Name(), metrics.OutcomeError)
			return "", s.Name(), false, err
		case ok && u != "":
			metrics.RecordLookup(s.Name(), metrics.OutcomeHit)
			return u, s.Name(), true, nil
		default:
			metrics.RecordLookup(s.Name(), metrics.OutcomeMiss)
			logging.ForROM(desc.Path, desc.Console.ShortName).Debug("strategy found nothing", "strategy", s.Name())
		}
	}
	return "", "", false, nil
}

// Resolve finds the first image URL and downloads it. At most one image
// is downloaded per call.
func (r *Resolver) Resolve(ctx context.Context, desc rom.Descriptor) (res Result, found bool, err error) {
	ctx, span := tracing.StartSpan(ctx, "gridimage.Resolve",
		tracing.WithAttributes(
			attribute.String("rom.path", desc.Path),
			attribute.String("rom.console", desc.Console.ShortName),
		))
	defer func() {
		tracing.RecordError(span, err)
		span.End()
	}()

	u, strategy, ok, err := r.FindURL(ctx, desc)
	if err != nil || !ok {
		return Result{}, false, err
	}
	tracing.AddSpanAttributes(span, attribute.String("strategy", strategy), attribute.String("image.url", u))

	path, err := r.downloader.Download(ctx, u)
	if err != nil {
		return Result{}, false, wrap("download image", desc.Path, ErrDownload, err)
	}

	res = Result{Strategy: strategy, URL: u, Path: path}
	if r.record != nil {
		if err := r.record(ctx, desc, res); err != nil {
			logging.ForROM(desc.Path, desc.Console.ShortName).Warn("failed to record artwork", "error", err)
		}
	}
	tracing.SetSpanOK(span)
	return res, true, nil
}
