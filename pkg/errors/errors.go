package errors

import "errors"

// Room and session errors.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrNotInRoom        = errors.New("not in a room")
	ErrAlreadyInRoom    = errors.New("already in another room")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrNotHost          = errors.New("only host can do this")
	ErrNotEnoughPlayers = errors.New("need at least 2 players")
	ErrInvalidToken     = errors.New("invalid token")
	ErrUnauthorized     = errors.New("unauthorized")
)

// Game action errors.
var (
	ErrWrongPhase        = errors.New("action not allowed in current phase")
	ErrNotDealer         = errors.New("only dealer can decide")
	ErrDealerNoBet       = errors.New("dealer does not bet")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrNotPlaying        = errors.New("you are not in playing state")
	ErrInvalidPayload    = errors.New("invalid payload")
	ErrInvalidNumber     = errors.New("invalid number")
	ErrOutOfRange        = errors.New("value out of range")
	ErrWallInsufficient  = errors.New("wall has too few tiles, please reset")
	ErrWallEmpty         = errors.New("wall empty, round ended")
	ErrUnsupportedAction = errors.New("unsupported action")
)
