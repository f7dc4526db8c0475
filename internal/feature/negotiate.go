package feature

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hexhaven-project/hexhaven/internal/game"
)

// Join gating outcomes.
var (
	// ErrVersionTooLow rejects a client older than the game's minimum
	// version.
	ErrVersionTooLow = errors.New("client version too low")

	// ErrMissingFeatures rejects a client that did not declare a
	// capability the game's options require.
	ErrMissingFeatures = errors.New("client missing required features")
)

// RequiredFor derives the feature set a game's active options demand
// of a joining client. Returns nil when the game requires nothing.
func RequiredFor(g *game.Game) *Set {
	s := New()
	if g.MaxPlayers() > 4 {
		s.Add(game.FeatureSixPlayers)
	}
	if g.HasSeaBoard() {
		s.Add(game.FeatureSeaBoard)
	}
	for _, o := range g.Options().All() {
		if !o.IsActive() || o.ClientFeature == "" {
			continue
		}
		if o.HasFlag(game.FlagOpportunistic) {
			// opportunistic options degrade instead of gating
			continue
		}
		switch o.ClientFeature {
		case game.FeatureScenarioVersion:
			want := o.MinVersion
			if sc, ok := game.ScenarioByKey(o.StrValue); ok {
				want = sc.MinVersion
			}
			s.AddValue(game.FeatureScenarioVersion, want)
		case game.FeatureSixPlayers, game.FeatureSeaBoard:
			s.Add(o.ClientFeature)
		default:
			s.Add(o.ClientFeature)
		}
	}
	if s.IsEmpty() {
		return nil
	}
	return s
}

// CheckJoin gates a client on a game: version floor first, then the
// feature difference. clientFeats may be nil.
func CheckJoin(g *game.Game, clientVersion int, clientFeats *Set) error {
	if min := g.MinVersionRequired(); min != -1 && clientVersion < min {
		return fmt.Errorf("%w: need %d, have %d", ErrVersionTooLow, min, clientVersion)
	}
	if missing := clientFeats.Missing(RequiredFor(g)); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFeatures, strings.Join(missing, ";"))
	}
	return nil
}

// SupportsOption reports whether a client can use one option: new
// enough, and declaring the option's client feature if it names one.
func SupportsOption(o *game.Option, clientVersion int, clientFeats *Set) bool {
	if o.MinVersion != -1 && clientVersion < o.MinVersion {
		return false
	}
	if o.ClientFeature != "" && !clientFeats.IsActive(o.ClientFeature) {
		return false
	}
	return true
}

// DegradeOpportunistic switches off any active opportunistic options
// the joining client cannot use, for the whole game. Everyone then
// plays by the same rules; the caller re-announces the changed option
// set to seated players. Returns the degraded option keys, sorted.
func DegradeOpportunistic(g *game.Game, clientVersion int, clientFeats *Set) []string {
	return g.DegradeOpportunisticOptions(func(o *game.Option) bool {
		return SupportsOption(o, clientVersion, clientFeats)
	})
}
