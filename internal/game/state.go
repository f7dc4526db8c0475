package game

// Game states. Values are frozen: clients compare them numerically
// and they appear inside GameState and Turn frames.
const (
	StateNew                  = 0
	StateReady                = 1
	Start1A                   = 5  // first settlement placement
	Start1B                   = 6  // first road placement
	Start2A                   = 10 // second settlement placement
	Start2B                   = 11 // second road placement
	RollOrCard                = 15 // current player must roll
	Play1                     = 20 // build/trade portion of the turn
	PlacingRoad               = 30
	PlacingSettlement         = 31
	PlacingCity               = 32
	PlacingRobber             = 33
	WaitingForRobChoosePlayer = 51
	StateOver                 = 1000
)

// stateNames maps states to their log/debug representation.
var stateNames = map[int]string{
	StateNew:                  "NEW",
	StateReady:                "READY",
	Start1A:                   "START1A",
	Start1B:                   "START1B",
	Start2A:                   "START2A",
	Start2B:                   "START2B",
	RollOrCard:                "ROLL_OR_CARD",
	Play1:                     "PLAY1",
	PlacingRoad:               "PLACING_ROAD",
	PlacingSettlement:         "PLACING_SETTLEMENT",
	PlacingCity:               "PLACING_CITY",
	PlacingRobber:             "PLACING_ROBBER",
	WaitingForRobChoosePlayer: "WAITING_FOR_ROB_CHOOSE_PLAYER",
	StateOver:                 "OVER",
}

// StateName returns the debug name of a game state.
func StateName(state int) string {
	if n, ok := stateNames[state]; ok {
		return n
	}
	return "UNKNOWN"
}
