package room

import "errors"

// Sentinel errors for the lobby-level failures of spec.md §7, grounded on
// the teacher's Err* sentinel style in internal/app/service.go.
var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room full")
	ErrNameInUse     = errors.New("name in use")
	ErrGameInProgress = errors.New("game in progress")
	ErrNotHost       = errors.New("not host")
	ErrTooFewPlayers = errors.New("too few players to start")
)
