// Package cli implements the interactive operator console: live game
// and connection listings plus the management commands also exposed by
// the REST API.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/hexhaven-project/hexhaven/internal/config"
	"github.com/hexhaven-project/hexhaven/internal/dispatch"
	"github.com/hexhaven-project/hexhaven/internal/events"
	"github.com/hexhaven-project/hexhaven/internal/game"
	"github.com/hexhaven-project/hexhaven/internal/registry"
)

// CLI provides an interactive command-line interface.
type CLI struct {
	cfg      *config.Config
	eventBus *events.EventBus
	table    *game.Table
	reg      *registry.Registry
	disp     *dispatch.Dispatcher
}

// NewCLI creates a new CLI handler.
func NewCLI(cfg *config.Config, eventBus *events.EventBus, table *game.Table, reg *registry.Registry, disp *dispatch.Dispatcher) *CLI {
	return &CLI{
		cfg:      cfg,
		eventBus: eventBus,
		table:    table,
		reg:      reg,
		disp:     disp,
	}
}

// Start begins the interactive CLI loop; it returns when stdin closes
// or the context is cancelled.
func (c *CLI) Start(ctx context.Context) {
	fmt.Println("\nHexhaven console ready. Type 'help' for available commands.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fmt.Print("hexhaven> ")
		if !scanner.Scan() {
			return // EOF
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		if err := c.execute(ctx, cmd, args); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

// execute processes a single CLI command.
func (c *CLI) execute(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help", "h", "?":
		c.printHelp()
	case "games", "g":
		c.printGames(os.Stdout)
	case "game":
		return c.printGameDetail(args)
	case "connections", "conns", "c":
		c.printConnections(os.Stdout)
	case "announce":
		return c.cmdAnnounce(args)
	case "dropgame":
		return c.cmdDropGame(ctx, args)
	case "setconfig":
		return c.cmdSetConfig(args)
	case "quit", "exit", "q":
		fmt.Println("Shutting down...")
		c.eventBus.Emit(ctx, events.Event{
			Type:   events.EventShutdown,
			Source: "cli",
		})
	default:
		fmt.Printf("Unknown command: '%s'. Type 'help' for available commands.\n", cmd)
	}
	return nil
}

// printHelp displays available commands.
func (c *CLI) printHelp() {
	fmt.Println()
	fmt.Println("  games                  List all games")
	fmt.Println("  game <name>            Show one game in detail")
	fmt.Println("  connections            List live connections")
	fmt.Println("  announce <game> <msg>  Send a server message to a game")
	fmt.Println("  dropgame <name>        Force-delete a game")
	fmt.Println("  setconfig <key> <val>  Update a server configuration value")
	fmt.Println("  quit                   Shut the server down")
	fmt.Println("  help                   Show this help message")
	fmt.Println()
}

// printGames renders the game table.
func (c *CLI) printGames(w io.Writer) {
	games := c.table.All()
	fmt.Println()

	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Name", "State", "Players", "Members", "Round", "Age"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	for _, g := range games {
		tw.Append([]string{
			g.Name(),
			game.StateName(g.State()),
			fmt.Sprintf("%d/%d", g.PlayerCount(), g.MaxPlayers()),
			fmt.Sprintf("%d", c.disp.MemberCount(g.Name())),
			fmt.Sprintf("%d", g.Round()),
			time.Since(g.CreatedAt()).Round(time.Second).String(),
		})
	}

	tw.Render()
	fmt.Printf("%d games\n\n", len(games))
}

// printGameDetail prints one game's seats and progress.
func (c *CLI) printGameDetail(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: game <name>")
	}
	g := c.table.Get(args[0])
	if g == nil {
		return fmt.Errorf("no such game: %s", args[0])
	}

	fmt.Printf("\n  Game:     %s\n", g.Name())
	fmt.Printf("  State:    %s\n", game.StateName(g.State()))
	fmt.Printf("  Options:  %s\n", g.Options().Encode())
	fmt.Printf("  Round:    %d\n", g.Round())
	fmt.Printf("  Turn:     seat %d\n", g.CurrentTurn())
	fmt.Printf("  Dice:     %d\n", g.CurrentDice())
	if g.State() == game.StateOver {
		fmt.Printf("  Winner:   seat %d\n", g.Winner())
	}

	fmt.Println("  Seats:")
	for pn := 0; pn < g.MaxPlayers(); pn++ {
		p := g.PlayerAt(pn)
		if p == nil {
			fmt.Printf("    %d: (vacant)\n", pn)
			continue
		}
		kind := ""
		if p.Robot {
			kind = " [bot]"
		}
		fmt.Printf("    %d: %s%s  vp=%d cards=%d\n", pn, p.Name, kind, p.VP, p.Resources.Total())
	}
	fmt.Println()
	return nil
}

// printConnections renders the connection table.
func (c *CLI) printConnections(w io.Writer) {
	clients := c.reg.All()
	fmt.Println()

	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Nickname", "Version", "Remote", "Idle"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	for _, cl := range clients {
		nickname := cl.Nickname
		if nickname == "" {
			nickname = "(pre-auth)"
		}
		tw.Append([]string{
			nickname,
			fmt.Sprintf("%d", cl.Version),
			cl.Conn.RemoteAddr(),
			time.Since(cl.LastActive()).Round(time.Second).String(),
		})
	}

	tw.Render()
	fmt.Printf("%d connections\n\n", len(clients))
}

func (c *CLI) cmdAnnounce(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: announce <game> <message>")
	}
	name := args[0]
	text := strings.Join(args[1:], " ")

	if !c.disp.Announce(name, text) {
		return fmt.Errorf("no such game: %s", name)
	}
	fmt.Printf("Announcement sent to %s\n", name)
	return nil
}

func (c *CLI) cmdDropGame(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: dropgame <name>")
	}
	if !c.disp.DropGame(ctx, args[0]) {
		return fmt.Errorf("no such game: %s", args[0])
	}
	fmt.Printf("Game %s deleted\n", args[0])
	return nil
}

func (c *CLI) cmdSetConfig(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: setconfig <key> <value>")
	}

	key := args[0]
	value := strings.Join(args[1:], " ")

	if err := c.cfg.UpdateServerField(key, value); err != nil {
		return err
	}
	if err := c.cfg.Save(); err != nil {
		return err
	}

	fmt.Printf("Config updated: %s = %s\n", key, value)
	return nil
}
