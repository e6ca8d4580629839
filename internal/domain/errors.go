package domain

import "errors"

// Sentinel errors returned by Engine operations, comparable with errors.Is.
// Grounded on the teacher's internal/app/service.go sentinel-error style.
var (
	ErrNotYourTurn         = errors.New("not your turn")
	ErrGameNotStarted      = errors.New("game not started")
	ErrGameEnded           = errors.New("game has ended")
	ErrPowerDrawPending    = errors.New("draw your power card before continuing")
	ErrCardNotInHand       = errors.New("card not in hand")
	ErrIllegalMove         = errors.New("illegal move")
	ErrWildRequiresColor   = errors.New("wild card requires a chosen color")
	ErrAlreadyPlayedPower  = errors.New("already played a power card this turn")
	ErrPowerCardNotFound   = errors.New("power card not found")
	ErrInsufficientPoints  = errors.New("insufficient power points")
	ErrMissingTarget         = errors.New("missing target player")
	ErrMissingColor          = errors.New("missing color")
	ErrNoMatchingColorInHand = errors.New("no matching color in hand")
	ErrTooFewPlayers         = errors.New("too few players to start")
	ErrTooManyPlayers        = errors.New("too many players to start")
	ErrUnknownPlayer         = errors.New("unknown player")
)
