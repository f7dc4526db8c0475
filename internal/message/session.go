package message

import "fmt"

// Version is the handshake sent by both sides as the first frame of a
// connection. It drives the feature negotiation baseline for the
// client: everything version-gated keys off Number, and Feats carries
// the sender's declared capability set in ";f1;f2=v;" form.
type Version struct {
	Number     int    // e.g. 2700 for release 2.7.00
	VersString string // e.g. "2.7.00"
	Build      string // build identifier, may be empty
	Feats      string // encoded feature set, may be empty
}

// NewVersion constructs a Version handshake message.
func NewVersion(number int, versString, build, feats string) (*Version, error) {
	if number < 0 {
		return nil, fmt.Errorf("%w: negative version %d", ErrInvalidArgument, number)
	}
	if !okFieldValue(versString) || !okFieldValue(build) || !okFieldValue(feats) {
		return nil, fmt.Errorf("%w: delimiter in version fields", ErrInvalidArgument)
	}
	return &Version{Number: number, VersString: versString, Build: build, Feats: feats}, nil
}

func (m *Version) Type() MsgType { return TypeVersion }

func (m *Version) fields() []string {
	return []string{itoa(m.Number), m.VersString, encStr(m.Build), encStr(m.Feats)}
}

func decodeVersion(fs []string) (Message, error) {
	if len(fs) != 4 {
		return nil, arityErr(4, len(fs))
	}
	n, err := parseInt(fs[0])
	if err != nil {
		return nil, err
	}
	return &Version{Number: n, VersString: fs[1], Build: decStr(fs[2]), Feats: decStr(fs[3])}, nil
}

// Status values carried by StatusMessage.
const (
	StatusOK             = 0
	StatusNotOK          = 1
	StatusNameInUse      = 2
	StatusNameNotAllowed = 3
	StatusPWWrong        = 4
	StatusCantJoin       = 5
)

// StatusMessage reports an authentication or join result to one client.
type StatusMessage struct {
	Status int
	Text   string
}

// NewStatusMessage constructs a status report.
func NewStatusMessage(status int, text string) (*StatusMessage, error) {
	if !okFieldValue(text) {
		return nil, fmt.Errorf("%w: delimiter in status text", ErrInvalidArgument)
	}
	return &StatusMessage{Status: status, Text: text}, nil
}

func (m *StatusMessage) Type() MsgType { return TypeStatusMessage }

func (m *StatusMessage) fields() []string {
	return []string{itoa(m.Status), encStr(m.Text)}
}

func decodeStatusMessage(fs []string) (Message, error) {
	if len(fs) != 2 {
		return nil, arityErr(2, len(fs))
	}
	sv, err := parseInt(fs[0])
	if err != nil {
		return nil, err
	}
	return &StatusMessage{Status: sv, Text: decStr(fs[1])}, nil
}

// JoinGame is a client's request to join (or create) a named game.
// HostMarker is an opaque legacy field echoed back verbatim.
type JoinGame struct {
	Nickname   string
	Password   string // may be empty
	HostMarker string
	Game       string
}

// NewJoinGame constructs a join request, rejecting delimiter characters
// in any identity field.
func NewJoinGame(nickname, password, hostMarker, game string) (*JoinGame, error) {
	if !okFieldValue(nickname) || !okFieldValue(password) || !okFieldValue(hostMarker) || !okFieldValue(game) {
		return nil, fmt.Errorf("%w: delimiter in join fields", ErrInvalidArgument)
	}
	return &JoinGame{Nickname: nickname, Password: password, HostMarker: hostMarker, Game: game}, nil
}

func (m *JoinGame) Type() MsgType { return TypeJoinGame }

func (m *JoinGame) fields() []string {
	return []string{m.Nickname, encStr(m.Password), encStr(m.HostMarker), m.Game}
}

func decodeJoinGame(fs []string) (Message, error) {
	if len(fs) != 4 {
		return nil, arityErr(4, len(fs))
	}
	return &JoinGame{
		Nickname:   fs[0],
		Password:   decStr(fs[1]),
		HostMarker: decStr(fs[2]),
		Game:       fs[3],
	}, nil
}

// JoinGameAuth confirms to one client that its join was accepted.
type JoinGameAuth struct {
	Game string
}

func (m *JoinGameAuth) Type() MsgType { return TypeJoinGameAuth }

func (m *JoinGameAuth) fields() []string { return []string{m.Game} }

func decodeJoinGameAuth(fs []string) (Message, error) {
	if len(fs) != 1 {
		return nil, arityErr(1, len(fs))
	}
	return &JoinGameAuth{Game: fs[0]}, nil
}

// LeaveGame announces a member leaving a game.
type LeaveGame struct {
	Nickname   string
	HostMarker string
	Game       string
}

// NewLeaveGame constructs a leave announcement.
func NewLeaveGame(nickname, hostMarker, game string) (*LeaveGame, error) {
	if !okFieldValue(nickname) || !okFieldValue(hostMarker) || !okFieldValue(game) {
		return nil, fmt.Errorf("%w: delimiter in leave fields", ErrInvalidArgument)
	}
	return &LeaveGame{Nickname: nickname, HostMarker: hostMarker, Game: game}, nil
}

func (m *LeaveGame) Type() MsgType { return TypeLeaveGame }

func (m *LeaveGame) fields() []string {
	return []string{m.Nickname, encStr(m.HostMarker), m.Game}
}

func decodeLeaveGame(fs []string) (Message, error) {
	if len(fs) != 3 {
		return nil, arityErr(3, len(fs))
	}
	return &LeaveGame{Nickname: fs[0], HostMarker: decStr(fs[1]), Game: fs[2]}, nil
}

// SitDown is a request to occupy a seat, or the server's broadcast
// that a seat is now occupied.
type SitDown struct {
	Game     string
	Nickname string
	Seat     int
	Robot    bool
}

// NewSitDown constructs a sit-down message.
func NewSitDown(game, nickname string, seat int, robot bool) (*SitDown, error) {
	if !okFieldValue(game) || !okFieldValue(nickname) {
		return nil, fmt.Errorf("%w: delimiter in sitdown fields", ErrInvalidArgument)
	}
	if seat < 0 {
		return nil, fmt.Errorf("%w: negative seat %d", ErrInvalidArgument, seat)
	}
	return &SitDown{Game: game, Nickname: nickname, Seat: seat, Robot: robot}, nil
}

func (m *SitDown) Type() MsgType { return TypeSitDown }

func (m *SitDown) fields() []string {
	return []string{m.Game, m.Nickname, itoa(m.Seat), encBool(m.Robot)}
}

func decodeSitDown(fs []string) (Message, error) {
	if len(fs) != 4 {
		return nil, arityErr(4, len(fs))
	}
	seat, err := parseInt(fs[2])
	if err != nil {
		return nil, err
	}
	robot, err := parseBool(fs[3])
	if err != nil {
		return nil, err
	}
	return &SitDown{Game: fs[0], Nickname: fs[1], Seat: seat, Robot: robot}, nil
}

// Games lists the server's current joinable games.
type Games struct {
	Names []string
}

func (m *Games) Type() MsgType { return TypeGames }

func (m *Games) fields() []string {
	return []string{joinSub(m.Names)}
}

func decodeGames(fs []string) (Message, error) {
	if len(fs) != 1 {
		return nil, arityErr(1, len(fs))
	}
	return &Games{Names: splitSub(fs[0])}, nil
}

// RejectConnection tells a client it may not stay connected, with a
// human-readable reason, before the server drops the socket.
type RejectConnection struct {
	Text string
}

func (m *RejectConnection) Type() MsgType { return TypeRejectConnection }

func (m *RejectConnection) fields() []string { return []string{encStr(m.Text)} }

func decodeRejectConnection(fs []string) (Message, error) {
	if len(fs) != 1 {
		return nil, arityErr(1, len(fs))
	}
	return &RejectConnection{Text: decStr(fs[0])}, nil
}

// ServerPing is the keepalive probe; SleepTime hints when the next
// ping will arrive.
type ServerPing struct {
	SleepTime int
}

func (m *ServerPing) Type() MsgType { return TypeServerPing }

func (m *ServerPing) fields() []string { return []string{itoa(m.SleepTime)} }

func decodeServerPing(fs []string) (Message, error) {
	if len(fs) != 1 {
		return nil, arityErr(1, len(fs))
	}
	st, err := parseInt(fs[0])
	if err != nil {
		return nil, err
	}
	return &ServerPing{SleepTime: st}, nil
}

// NewGameWithOptions asks the server to create a game with an encoded
// option string such as "PL=2,UB=t,N7=t7".
type NewGameWithOptions struct {
	Nickname   string
	Password   string
	HostMarker string
	Game       string
	Opts       string
}

// NewNewGameWithOptions constructs a game-creation request.
func NewNewGameWithOptions(nickname, password, hostMarker, game, opts string) (*NewGameWithOptions, error) {
	if !okFieldValue(nickname) || !okFieldValue(password) || !okFieldValue(hostMarker) || !okFieldValue(game) {
		return nil, fmt.Errorf("%w: delimiter in newgame fields", ErrInvalidArgument)
	}
	// opts legitimately contains the sub-delimiter; only the field
	// delimiter is forbidden.
	if idx := indexAny(opts, FieldSep+"\n"); idx >= 0 {
		return nil, fmt.Errorf("%w: delimiter in option string", ErrInvalidArgument)
	}
	return &NewGameWithOptions{
		Nickname: nickname, Password: password, HostMarker: hostMarker,
		Game: game, Opts: opts,
	}, nil
}

func (m *NewGameWithOptions) Type() MsgType { return TypeNewGameWithOptions }

func (m *NewGameWithOptions) fields() []string {
	return []string{m.Nickname, encStr(m.Password), encStr(m.HostMarker), m.Game, encStr(m.Opts)}
}

func decodeNewGameWithOptions(fs []string) (Message, error) {
	if len(fs) != 5 {
		return nil, arityErr(5, len(fs))
	}
	return &NewGameWithOptions{
		Nickname:   fs[0],
		Password:   decStr(fs[1]),
		HostMarker: decStr(fs[2]),
		Game:       fs[3],
		Opts:       decStr(fs[4]),
	}, nil
}
