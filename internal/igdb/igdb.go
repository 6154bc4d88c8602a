// Package igdb resolves cover art through the IGDB API. It needs Twitch
// application credentials and is only wired in when they are configured.
package igdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Henry-Sarabia/igdb/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ryanm101/romart/internal/logging"
	"github.com/ryanm101/romart/internal/rom"
	"github.com/ryanm101/romart/internal/tracing"
)

// Name is the strategy name used in config and metrics.
const Name = "igdb"

// TwitchTokenURL issues app access tokens.
const TwitchTokenURL = "https://id.twitch.tv/oauth2/token"

// ErrMissingCredentials is returned when the client ID or secret is empty.
var ErrMissingCredentials = errors.New("IGDB client ID and secret are required")

// API is the slice of IGDB the strategy needs.
type API interface {
	// SearchCover returns the cover ID of the best match for name.
	SearchCover(name string) (coverID int, found bool, err error)
	// CoverImageID returns the image ID of a cover.
	CoverImageID(coverID int) (string, error)
}

// Strategy finds a game by ROM name and returns its large cover.
type Strategy struct {
	api API
}

// NewStrategy wraps an API.
func NewStrategy(api API) *Strategy {
	return &Strategy{api: api}
}

// Connect authenticates with Twitch and returns a ready Strategy.
func Connect(ctx context.Context, hc *http.Client, clientID, clientSecret string) (*Strategy, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ErrMissingCredentials
	}
	token, err := TwitchToken(ctx, hc, TwitchTokenURL, clientID, clientSecret)
	if err != nil {
		return nil, fmt.Errorf("authenticate with Twitch: %w", err)
	}
	return NewStrategy(&clientAPI{client: igdb.NewClient(clientID, token, hc)}), nil
}

func (s *Strategy) Name() string {
	return Name
}

// TryResolve searches IGDB for r.Name. No match or no cover is a miss.
func (s *Strategy) TryResolve(ctx context.Context, r rom.Descriptor) (imageURL string, found bool, err error) {
	_, span := tracing.StartSpan(ctx, "igdb.TryResolve",
		tracing.WithAttributes(attribute.String("rom.name", r.Name)))
	defer func() {
		tracing.RecordError(span, err)
		span.End()
	}()

	coverID, ok, err := s.api.SearchCover(r.Name)
	if err != nil {
		return "", false, fmt.Errorf("search IGDB for %q: %w", r.Name, err)
	}
	if !ok || coverID == 0 {
		logging.Debug("IGDB has no cover", "game", r.Name)
		return "", false, nil
	}

	imageID, err := s.api.CoverImageID(coverID)
	if err != nil {
		return "", false, fmt.Errorf("get IGDB cover %d: %w", coverID, err)
	}
	if imageID == "" {
		return "", false, nil
	}

	u, err := igdb.SizedImageURL(imageID, igdb.SizeCoverBig, 1)
	if err != nil {
		return "", false, fmt.Errorf("build cover URL: %w", err)
	}
	if strings.HasPrefix(u, "//") {
		u = "https:" + u
	}
	return u, true, nil
}

// clientAPI adapts *igdb.Client to API.
type clientAPI struct {
	client *igdb.Client
}

func (c *clientAPI) SearchCover(name string) (int, bool, error) {
	games, err := c.client.Games.Search(name, igdb.SetFields("name", "cover"), igdb.SetLimit(1))
	if errors.Is(err, igdb.ErrNoResults) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if len(games) == 0 {
		return 0, false, nil
	}
	return games[0].Cover, true, nil
}

func (c *clientAPI) CoverImageID(coverID int) (string, error) {
	cover, err := c.client.Covers.Get(coverID, igdb.SetFields("image_id"))
	if err != nil {
		return "", err
	}
	return cover.ImageID, nil
}

// TwitchToken fetches an app access token with the client-credentials grant.
func TwitchToken(ctx context.Context, hc *http.Client, tokenURL, clientID, clientSecret string) (string, error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	vals := url.Values{}
	vals.Set("client_id", clientID)
	vals.Set("client_secret", clientSecret)
	vals.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(vals.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := hc.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.AccessToken == "" {
		return "", errors.New("empty access token")
	}
	return result.AccessToken, nil
}
