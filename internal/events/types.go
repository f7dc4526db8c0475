// Package events defines the event types flowing through the server's
// publish-subscribe bus: connection lifecycle, lobby changes, and
// in-game milestones that observers (telemetry, API) consume.
package events

// EventType names one kind of event on the bus.
type EventType string

const (
	// Connection lifecycle
	EventClientConnected     EventType = "client_connected"
	EventClientDisconnected  EventType = "client_disconnected"
	EventClientAuthenticated EventType = "client_authenticated"
	EventNicknameTakeover    EventType = "nickname_takeover"

	// Lobby
	EventGameCreated EventType = "game_created"
	EventGameDeleted EventType = "game_deleted"
	EventPlayerSat   EventType = "player_sat"
	EventPlayerLeft  EventType = "player_left"

	// In-game milestones
	EventGameStarted     EventType = "game_started"
	EventDiceRolled      EventType = "dice_rolled"
	EventPiecePlaced     EventType = "piece_placed"
	EventRobbery         EventType = "robbery"
	EventOptionsDegraded EventType = "options_degraded"
	EventGameOver        EventType = "game_over"

	// System
	EventConfigChanged EventType = "config_changed"
	EventShutdown      EventType = "shutdown"
)

// Event is a single occurrence published on the bus.
type Event struct {
	Type    EventType
	Source  string
	Payload interface{}
}

// ClientPayload describes a connection lifecycle event.
type ClientPayload struct {
	ConnID   string
	Nickname string
	Version  int
	Remote   string
}

// TakeoverPayload describes a nickname takeover.
type TakeoverPayload struct {
	Nickname  string
	OldConnID string
	NewConnID string
}

// GamePayload describes a lobby or game milestone.
type GamePayload struct {
	Game    string
	Player  string
	Seat    int
	Players int
}

// DicePayload describes a dice roll.
type DicePayload struct {
	Game  string
	Seat  int
	Total int
}

// PiecePayload describes a placed piece.
type PiecePayload struct {
	Game      string
	Seat      int
	PieceType int
	Coord     int
}

// RobberyPayload describes a robber move and its outcome.
type RobberyPayload struct {
	Game    string
	Robber  int
	Victim  int // -1 when the choose step was skipped
	Skipped bool
}

// GameOverPayload describes a finished game.
type GameOverPayload struct {
	Game   string
	Winner int
	VP     int
}

// OptionsDegradedPayload describes opportunistic options switched off
// because an incapable client sat down.
type OptionsDegradedPayload struct {
	Game    string
	Keys    []string
	Trigger string // nickname of the client that forced it
}

// ConfigChangedPayload is emitted when configuration changes.
type ConfigChangedPayload struct {
	Section string
	Key     string
	Value   interface{}
}
