// Package consolegrid asks ConsoleGrid for the top-voted grid picture of a
// game. ConsoleGrid being down or not knowing a game are both ordinary
// misses, never errors.
package consolegrid

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ryanm101/romart/internal/fetch"
	"github.com/ryanm101/romart/internal/logging"
	"github.com/ryanm101/romart/internal/rom"
	"github.com/ryanm101/romart/internal/tracing"
)

// DefaultAPIURL is the top_picture endpoint.
const DefaultAPIURL = "http://consolegrid.com/api/top_picture"

// Client queries a ConsoleGrid-compatible API.
type Client struct {
	apiURL string
	http   *http.Client
}

// New creates a Client. An empty apiURL uses DefaultAPIURL.
func New(apiURL string, client *fetch.Client) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if client == nil {
		client = fetch.New()
	}
	return &Client{apiURL: apiURL, http: client.HTTP()}
}

// TopPictureURL builds the query URL for r. Spaces become %20 and '/' is
// left as is; every other reserved character is percent-encoded.
func (c *Client) TopPictureURL(r rom.Descriptor) string {
	return fmt.Sprintf("%s?console=%s&game=%s", c.apiURL, quote(r.Console.ShortName), quote(r.Name))
}

func quote(s string) string {
	q := url.QueryEscape(s)
	q = strings.ReplaceAll(q, "+", "%20")
	return strings.ReplaceAll(q, "%2F", "/")
}

// FindURL returns the image URL ConsoleGrid suggests for r.
func (c *Client) FindURL(ctx context.Context, r rom.Descriptor) (string, bool) {
	ctx, span := tracing.StartSpan(ctx, "consolegrid.FindURL",
		tracing.WithAttributes(
			attribute.String("rom.name", r.Name),
			attribute.String("rom.console", r.Console.ShortName),
		))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.TopPictureURL(r), nil)
	if err != nil {
		logging.Debug("No image was downloaded due to an error with ConsoleGrid", "error", err)
		return "", false
	}

	resp, err := c.http.Do(req)
	if err != nil {
		tracing.RecordError(span, err)
		logging.Debug("No image was downloaded due to an error with ConsoleGrid", "error", err)
		return "", false
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		logging.Debug(fmt.Sprintf("ConsoleGrid has no game called `%s` for %s", r.Name, r.Console.FullName))
		return "", false
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		logging.Debug("ConsoleGrid returned an unexpected status", "status", resp.Status, "game", r.Name)
		return "", false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		tracing.RecordError(span, err)
		logging.Debug("No image was downloaded due to an error with ConsoleGrid", "error", err)
		return "", false
	}

	found := strings.TrimSpace(string(body))
	if found == "" {
		return "", false
	}
	tracing.SetSpanOK(span)
	return found, true
}
