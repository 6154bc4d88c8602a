package gridimage

import (
	"context"
	"fmt"
	"strings"

	"github.com/ryanm101/romart/internal/consolegrid"
	"github.com/ryanm101/romart/internal/gamesdb"
	"github.com/ryanm101/romart/internal/hashindex"
	"github.com/ryanm101/romart/internal/logging"
	"github.com/ryanm101/romart/internal/rom"
	"github.com/ryanm101/romart/internal/romhash"
)

// Strategy names accepted in resolver configuration.
const (
	StrategyConsoleGrid = "consolegrid"
	StrategyTheGamesDB  = "thegamesdb"
	StrategyIGDB        = "igdb"
)

// ConsoleGridStrategy asks ConsoleGrid by console and game name. It never
// fails; outages are misses.
type ConsoleGridStrategy struct {
	client *consolegrid.Client
}

func NewConsoleGridStrategy(client *consolegrid.Client) *ConsoleGridStrategy {
	return &ConsoleGridStrategy{client: client}
}

func (s *ConsoleGridStrategy) Name() string { return StrategyConsoleGrid }

func (s *ConsoleGridStrategy) TryResolve(ctx context.Context, r rom.Descriptor) (string, bool, error) {
	u, ok := s.client.FindURL(ctx, r)
	return u, ok, nil
}

// HashStrategy identifies the ROM by content hash and picks the best image
// TheGamesDB lists for the matching game.
type HashStrategy struct {
	index *hashindex.Index
	games *gamesdb.Client
	algo  romhash.Algorithm
}

func NewHashStrategy(index *hashindex.Index, games *gamesdb.Client) *HashStrategy {
	return &HashStrategy{index: index, games: games, algo: romhash.MD5}
}

func (s *HashStrategy) Name() string { return StrategyTheGamesDB }

func (s *HashStrategy) TryResolve(ctx context.Context, r rom.Descriptor) (string, bool, error) {
	if err := s.index.EnsurePresent(ctx); err != nil {
		return "", false, wrap("load hash index", r.Path, ErrIndexUnavailable, err)
	}

	sum, err := romhash.Compute(r.Path, s.algo)
	if err != nil {
		return "", false, wrap("hash rom", r.Path, nil, err)
	}

	ref, ok, err := s.index.Lookup(ctx, sum)
	if err != nil {
		return "", false, wrap("look up hash", r.Path, ErrIndexUnavailable, err)
	}
	if !ok {
		logging.Debug(fmt.Sprintf("no hash found for %s", r.Path), "hash", sum)
		return "", false, nil
	}

	imageURL, ok, err := s.games.BestImageURL(ctx, s.games.ArtURL(ref.GameID))
	if err != nil {
		return "", false, wrap("fetch art listing", r.Path, nil, err)
	}
	logging.Debug("Hash-based image found", "rom", r.Path, "game", ref.Title, "url", imageURL)
	if !ok || imageURL == "" {
		return "", false, nil
	}
	return imageURL, true, nil
}

// Deps holds the clients strategies are built from. IGDB may be nil when
// no credentials are configured.
type Deps struct {
	ConsoleGrid *consolegrid.Client
	Index       *hashindex.Index
	GamesDB     *gamesdb.Client
	IGDB        Strategy
}

// BuildStrategies returns strategies for names, in order. IGDB is skipped
// with a warning when it is listed but unavailable.
func BuildStrategies(names []string, deps Deps) ([]Strategy, error) {
	out := make([]Strategy, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case StrategyConsoleGrid:
			out = append(out, NewConsoleGridStrategy(deps.ConsoleGrid))
		case StrategyTheGamesDB:
			out = append(out, NewHashStrategy(deps.Index, deps.GamesDB))
		case StrategyIGDB:
			if deps.IGDB == nil {
				logging.Warn("igdb strategy configured without credentials, skipping")
				continue
			}
			out = append(out, deps.IGDB)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
		}
	}
	return out, nil
}
