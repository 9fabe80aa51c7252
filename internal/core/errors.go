package core

import "errors"

// Conflict, capacity, and lookup failures surface as error events.
var (
	ErrRoomNotFound         = errors.New("room does not exist")
	ErrRoomFull             = errors.New("room is full")
	ErrNameTaken            = errors.New("username taken (or player still active)")
	ErrAlreadyVoted         = errors.New("you already voted this round")
	ErrInvalidTarget        = errors.New("vote target is not an alive player")
	ErrSelfVote             = errors.New("you cannot vote for yourself")
	ErrNotEnoughPlayers     = errors.New("not enough players to start")
	ErrInvalidImpostorCount = errors.New("impostor count must be below the player count")
	ErrInvalidCategory      = errors.New("unknown category")
)

// Authorization failures are swallowed by the gateway: no error event,
// no mutation, nothing leaked about the room's internals.
var (
	ErrNotHost   = errors.New("caller is not the host")
	ErrNotInRoom = errors.New("caller is not a player in this room")
	ErrBadState  = errors.New("action not allowed in the current state")
)

// Silent reports whether an error must be swallowed rather than
// emitted to the sender.
func Silent(err error) bool {
	return errors.Is(err, ErrNotHost) ||
		errors.Is(err, ErrNotInRoom) ||
		errors.Is(err, ErrBadState)
}
