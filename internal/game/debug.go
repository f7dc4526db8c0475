package game

import (
	"strconv"
	"strings"
)

// Debug commands are typed as chat text by a privileged user and
// parsed here. They exist for live diagnosis and scripted tests, not
// regular play.

// DebugHelp lists the recognized debug chat commands.
func DebugHelp() []string {
	return []string{
		"--- Debug Commands ---",
		"rsrcs: #cl #or #sh #wh #wo player  (give resources)",
		"*STATS*   show game state summary",
		"*WHO*     list seated players",
	}
}

// ParseResourceGrant parses an "rsrcs:" debug command body: five
// resource counts followed by a player name.
func ParseResourceGrant(body string) (ResourceSet, string, error) {
	fields := strings.Fields(strings.TrimSpace(body))
	if len(fields) != 6 {
		return ResourceSet{}, "", configf("rsrcs: want 5 counts and a player, got %d fields", len(fields))
	}
	var counts [5]int
	for i := 0; i < 5; i++ {
		v, err := strconv.Atoi(fields[i])
		if err != nil || v < 0 {
			return ResourceSet{}, "", configf("rsrcs: bad count %q", fields[i])
		}
		counts[i] = v
	}
	rs := ResourceSet{Clay: counts[0], Ore: counts[1], Sheep: counts[2], Wheat: counts[3], Wood: counts[4]}
	return rs, fields[5], nil
}

// GrantResources adds resources to a seated player out of band.
func (g *Game) GrantResources(name string, rs ResourceSet) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	pn := g.seatOfLocked(name)
	if pn < 0 {
		return illegalf("%s is not seated", name)
	}
	g.seats[pn].Resources.Add(rs)
	g.logger.Debug().Str("player", name).Int("total", g.seats[pn].Resources.Total()).
		Msg("debug resource grant")
	return nil
}
