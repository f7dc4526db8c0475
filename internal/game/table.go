package game

import (
	"regexp"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// savegameNameRe bounds names acceptable for on-disk artifacts
// derived from a game (saves, transcripts).
var savegameNameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// IsValidSavegameName reports whether a name is safe to use as a
// filename stem.
func IsValidSavegameName(name string) bool {
	return name != "" && len(name) <= MaxGameNameLength && savegameNameRe.MatchString(name)
}

// Table is the server's registry of live games. Creation and deletion
// are serialized here; per-game actions are serialized by the game's
// dispatcher worker.
type Table struct {
	mu     sync.RWMutex
	logger zerolog.Logger
	games  map[string]*Game
}

// NewTable returns an empty game table.
func NewTable() *Table {
	return &Table{
		logger: log.With().Str("component", "gametable").Logger(),
		games:  make(map[string]*Game),
	}
}

// Create makes and registers a new game. The name must be unused.
func (t *Table) Create(name string, opts *OptionSet) (*Game, error) {
	g, err := New(name, opts)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.games[name]; exists {
		return nil, configf("game %q already exists", name)
	}
	t.games[name] = g
	t.logger.Info().Str("game", name).Int("max_players", g.MaxPlayers()).Msg("game created")
	return g, nil
}

// Get returns a game by name, or nil.
func (t *Table) Get(name string) *Game {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.games[name]
}

// Delete removes a game from the table and marks it destroyed.
// References already handed out stay readable; the destroyed flag
// stops further mutation from late arrivals.
func (t *Table) Delete(name string) bool {
	t.mu.Lock()
	g, ok := t.games[name]
	if ok {
		delete(t.games, name)
	}
	t.mu.Unlock()

	if !ok {
		return false
	}
	g.MarkDestroyed()
	t.logger.Info().Str("game", name).Msg("game deleted")
	return true
}

// Names returns all live game names, sorted.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.games))
	for name := range t.games {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// All returns the live games, sorted by name.
func (t *Table) All() []*Game {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Game, 0, len(t.games))
	for _, g := range t.games {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Count returns the number of live games.
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.games)
}

// PotentialSettlements returns the nodes where the given seat could
// legally place a settlement right now. During initial placement the
// road-adjacency requirement does not apply.
func (g *Game) PotentialSettlements(pn int) []int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.board == nil {
		return nil
	}
	occupied := g.occupiedNodesLocked()
	free := g.board.PotentialSettlements(occupied)
	if g.state == Start1A || g.state == Start2A {
		return free
	}
	p := g.seats[pn]
	if p == nil {
		return nil
	}
	var out []int
	for _, n := range free {
		if p.touchesRoadNetwork(n) {
			out = append(out, n)
		}
	}
	return out
}
