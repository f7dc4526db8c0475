package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hexhaven-project/hexhaven/internal/game"
	"github.com/hexhaven-project/hexhaven/internal/util"
)

// gameSummary is one row in the game listing.
type gameSummary struct {
	Name       string `json:"name"`
	State      string `json:"state"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"max_players"`
	Members    int    `json:"members"`
	Round      int    `json:"round"`
	CreatedAt  string `json:"created_at"`
}

func (s *Server) summarize(g *game.Game) gameSummary {
	return gameSummary{
		Name:       g.Name(),
		State:      game.StateName(g.State()),
		Players:    g.PlayerCount(),
		MaxPlayers: g.MaxPlayers(),
		Members:    s.disp.MemberCount(g.Name()),
		Round:      g.Round(),
		CreatedAt:  g.CreatedAt().UTC().Format(time.RFC3339),
	}
}

// handleGetGames returns a summary of every game on the table.
func (s *Server) handleGetGames(c *gin.Context) {
	games := s.table.All()
	summaries := make([]gameSummary, 0, len(games))
	for _, g := range games {
		summaries = append(summaries, s.summarize(g))
	}
	c.JSON(http.StatusOK, gin.H{"games": summaries, "total": len(summaries)})
}

// handleGetGame returns one game's full state: seats, turn, options.
func (s *Server) handleGetGame(c *gin.Context) {
	name := c.Param("name")
	g := s.table.Get(name)
	if g == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such game", "name": name})
		return
	}

	type seatInfo struct {
		Seat      int    `json:"seat"`
		Nickname  string `json:"nickname"`
		Robot     bool   `json:"robot"`
		VP        int    `json:"vp"`
		CardCount int    `json:"card_count"`
	}
	seats := make([]seatInfo, 0, g.MaxPlayers())
	for pn := 0; pn < g.MaxPlayers(); pn++ {
		p := g.PlayerAt(pn)
		if p == nil {
			continue
		}
		seats = append(seats, seatInfo{
			Seat:      pn,
			Nickname:  p.Name,
			Robot:     p.Robot,
			VP:        p.VP,
			CardCount: p.Resources.Total(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"summary":      s.summarize(g),
		"seats":        seats,
		"current_turn": g.CurrentTurn(),
		"dice":         g.CurrentDice(),
		"options":      g.Options().Encode(),
		"winner":       g.Winner(),
	})
}

// handleGetConnections lists live connections.
func (s *Server) handleGetConnections(c *gin.Context) {
	type connInfo struct {
		ID        string `json:"id"`
		Nickname  string `json:"nickname"`
		Version   int    `json:"version"`
		Remote    string `json:"remote"`
		Connected string `json:"connected_at"`
		IdleSec   int    `json:"idle_sec"`
	}

	clients := s.reg.All()
	conns := make([]connInfo, 0, len(clients))
	for _, cl := range clients {
		conns = append(conns, connInfo{
			ID:        cl.ID,
			Nickname:  cl.Nickname,
			Version:   cl.Version,
			Remote:    cl.Conn.RemoteAddr(),
			Connected: cl.ConnectedAt.UTC().Format(time.RFC3339),
			IdleSec:   int(time.Since(cl.LastActive()).Seconds()),
		})
	}
	c.JSON(http.StatusOK, gin.H{"connections": conns, "total": len(conns)})
}

// handleGetSystem returns host resource usage.
func (s *Server) handleGetSystem(c *gin.Context) {
	cpuPercent, err := util.GetCPUUsage()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	memUsage, err := util.GetMemoryUsage()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	diskUsage, _ := util.GetDiskUsage(".")

	c.JSON(http.StatusOK, gin.H{
		"info":        util.GetSystemInfo(),
		"cpu_percent": cpuPercent,
		"memory":      memUsage,
		"disk":        diskUsage,
	})
}

// handleGetLogEntries returns recent log entries.
func (s *Server) handleGetLogEntries(c *gin.Context) {
	count, err := strconv.Atoi(c.DefaultQuery("count", "100"))
	if err != nil || count < 1 {
		count = 100
	}
	if count > 1000 {
		count = 1000
	}

	entries, err := readRecentLogEntries(s.cfg.GetApplicationData().Logging.Directory, count)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// logEntry is a parsed log entry for the API response.
type logEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// readRecentLogEntries reads the tail of the most recent log file.
// Zerolog writes JSON lines; they are parsed into structured objects.
func readRecentLogEntries(logDir string, count int) ([]logEntry, error) {
	dirEntries, err := os.ReadDir(logDir)
	if err != nil {
		return nil, err
	}

	var latestFile string
	for i := len(dirEntries) - 1; i >= 0; i-- {
		if !dirEntries[i].IsDir() && filepath.Ext(dirEntries[i].Name()) == ".log" {
			latestFile = filepath.Join(logDir, dirEntries[i].Name())
			break
		}
	}
	if latestFile == "" {
		return []logEntry{}, nil
	}

	data, err := os.ReadFile(latestFile)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(string(data), "\n")
	start := len(lines) - count
	if start < 0 {
		start = 0
	}

	knownKeys := map[string]bool{
		"level": true, "time": true, "message": true, "app": true,
	}

	result := make([]logEntry, 0, count)
	for _, line := range lines[start:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var raw map[string]interface{}
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			result = append(result, logEntry{Message: line})
			continue
		}

		entry := logEntry{
			Level:   stringFromMap(raw, "level"),
			Message: stringFromMap(raw, "message"),
		}
		if t, ok := raw["time"]; ok {
			entry.Timestamp = fmt.Sprintf("%v", t)
		}

		extra := make(map[string]interface{})
		for k, v := range raw {
			if !knownKeys[k] {
				extra[k] = v
			}
		}
		if len(extra) > 0 {
			entry.Fields = extra
		}

		result = append(result, entry)
	}

	return result, nil
}

// stringFromMap extracts a string value from a map, returning "" if
// missing.
func stringFromMap(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		return fmt.Sprintf("%v", v)
	}
	return ""
}
