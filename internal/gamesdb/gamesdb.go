// Package gamesdb picks the best artwork TheGamesDB lists for a game.
package gamesdb

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ryanm101/romart/internal/fetch"
	"github.com/ryanm101/romart/internal/tracing"
)

// DefaultBaseURL is the legacy GetArt endpoint.
const DefaultBaseURL = "http://thegamesdb.net/api/GetArt.php"

// artResponse is the subset of a GetArt document that matters.
type artResponse struct {
	BaseImgURL string       `xml:"baseImgUrl"`
	Images     []imageGroup `xml:"Images"`
}

type imageGroup struct {
	Items []Element `xml:",any"`
}

// Client talks to TheGamesDB.
type Client struct {
	baseURL string
	fetch   *fetch.Client
}

// New creates a Client. An empty baseURL uses DefaultBaseURL.
func New(baseURL string, client *fetch.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = fetch.New()
	}
	return &Client{baseURL: baseURL, fetch: client}
}

// ArtURL returns the GetArt document URL for gameID.
func (c *Client) ArtURL(gameID string) string {
	return c.baseURL + "?" + url.Values{"id": {gameID}}.Encode()
}

// BestImageURL fetches the art document at xmlURL and returns the absolute
// URL of its highest-scoring image. A document without images is a miss;
// transport, status and parse failures are errors.
func (c *Client) BestImageURL(ctx context.Context, xmlURL string) (imageURL string, found bool, err error) {
	ctx, span := tracing.StartSpan(ctx, "gamesdb.BestImageURL",
		tracing.WithAttributes(attribute.String("url", xmlURL)))
	defer func() {
		tracing.RecordError(span, err)
		span.End()
	}()

	body, _, err := c.fetch.Open(ctx, xmlURL)
	if err != nil {
		return "", false, fmt.Errorf("fetch art listing: %w", err)
	}
	defer func() { _ = body.Close() }()

	var doc artResponse
	if err := xml.NewDecoder(body).Decode(&doc); err != nil {
		return "", false, fmt.Errorf("parse art listing: %w", err)
	}
	return best(doc)
}

// ParseBest selects the best image from a raw GetArt document.
func ParseBest(data []byte) (string, bool, error) {
	var doc artResponse
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", false, fmt.Errorf("parse art listing: %w", err)
	}
	return best(doc)
}

// best resolves the winning image path against the document's base URL.
func best(doc artResponse) (string, bool, error) {
	if len(doc.Images) == 0 {
		return "", false, nil
	}
	ranked := Rank(doc.Images[0].Items)
	if len(ranked) == 0 || ranked[0].Path == "" {
		return "", false, nil
	}

	base, err := url.Parse(strings.TrimSpace(doc.BaseImgURL))
	if err != nil {
		return "", false, fmt.Errorf("parse baseImgUrl %q: %w", doc.BaseImgURL, err)
	}
	ref, err := url.Parse(ranked[0].Path)
	if err != nil {
		return "", false, fmt.Errorf("parse image path %q: %w", ranked[0].Path, err)
	}
	return base.ResolveReference(ref).String(), true, nil
}
