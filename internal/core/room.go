package core

import (
	"strings"
	"sync"
	"time"
)

type RoomState string

const (
	StateWaiting  RoomState = "waiting"
	StateStarting RoomState = "starting"
	StatePlaying  RoomState = "playing"
	StateVoting   RoomState = "voting"
	StateEnding   RoomState = "ending"
)

// RoomConfig is the host-tunable part of a room.
type RoomConfig struct {
	MaxPlayers     int    `json:"maxPlayers"`
	ImpostorCount  int    `json:"impostorCount"`
	VotingTime     int    `json:"votingTime"`
	DiscussionTime int    `json:"discussionTime"`
	Category       string `json:"category"`
}

// Vote is ephemeral: one per voter per voting round, cleared when the
// round resolves.
type Vote struct {
	VoterID   string `json:"voterId"`
	VoterName string `json:"voterName"`
	VotedFor  string `json:"votedFor"`
}

// Room is the aggregate root for one game session. It is mutated only
// while mu is held; the engine locks it for the full duration of each
// intent so round-critical mutations never interleave.
type Room struct {
	Code             string
	Players          []*Player
	Spectators       []*Spectator
	Config           RoomConfig
	State            RoomState
	CurrentRound     int
	Word             string
	Category         string // category key; players carry the display name
	Votes            []Vote
	DescriptionOrder []string
	Winner           string
	StartedAt        time.Time

	mu           sync.Mutex
	advanceTimer *time.Timer
}

func NewRoom(code string, cfg RoomConfig, host *Player) *Room {
	return &Room{
		Code:    code,
		Players: []*Player{host},
		Config:  cfg,
		State:   StateWaiting,
	}
}

func (r *Room) Host() *Player {
	for _, p := range r.Players {
		if p.IsHost {
			return p
		}
	}
	return nil
}

func (r *Room) FindPlayer(id string) *Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// FindByUsername matches case-insensitively; usernames are the stable
// identity used for reconnection.
func (r *Room) FindByUsername(username string) *Player {
	for _, p := range r.Players {
		if strings.EqualFold(p.Username, username) {
			return p
		}
	}
	return nil
}

func (r *Room) FindSpectator(id string) *Spectator {
	for _, s := range r.Spectators {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// AddPlayer appends a player, refusing when the room is at capacity.
func (r *Room) AddPlayer(p *Player) bool {
	if len(r.Players) >= r.Config.MaxPlayers {
		return false
	}
	r.Players = append(r.Players, p)
	return true
}

func (r *Room) AddSpectator(s *Spectator) {
	r.Spectators = append(r.Spectators, s)
}

// RemovePlayer removes by id, preserving join order of the rest.
func (r *Room) RemovePlayer(id string) *Player {
	for i, p := range r.Players {
		if p.ID == id {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return p
		}
	}
	return nil
}

func (r *Room) RemoveSpectator(id string) *Spectator {
	for i, s := range r.Spectators {
		if s.ID == id {
			r.Spectators = append(r.Spectators[:i], r.Spectators[i+1:]...)
			return s
		}
	}
	return nil
}

// MemberName resolves a connection to its display name within a room,
// reporting whether it is a spectator. Used by the chat subsystem.
func (r *Room) MemberName(connID string) (string, bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p := r.FindPlayer(connID); p != nil {
		return p.Username, false, true
	}
	if s := r.FindSpectator(connID); s != nil {
		return s.Username, true, true
	}
	return "", false, false
}

func (r *Room) AlivePlayers() []*Player {
	alive := make([]*Player, 0, len(r.Players))
	for _, p := range r.Players {
		if p.Alive {
			alive = append(alive, p)
		}
	}
	return alive
}

// ResetToLobby clears all match state and returns the room to
// waiting. Roles, words, and votes become unrepresentable outside a
// match; spectators are promoted into free player slots. Any pending
// auto-advance timer is stopped so it cannot fire into the fresh
// lobby.
func (r *Room) ResetToLobby() {
	r.stopAdvanceTimer()

	for _, p := range r.Players {
		p.Role = ""
		p.Alive = true
		p.Word = ""
		p.Category = ""
	}

	r.State = StateWaiting
	r.CurrentRound = 0
	r.Word = ""
	r.Category = ""
	r.Votes = nil
	r.DescriptionOrder = nil
	r.Winner = ""
	r.StartedAt = time.Time{}

	r.promoteSpectators()
}

func (r *Room) promoteSpectators() {
	for len(r.Spectators) > 0 && len(r.Players) < r.Config.MaxPlayers {
		s := r.Spectators[0]
		r.Spectators = r.Spectators[1:]
		r.Players = append(r.Players, NewPlayer(s.ID, s.Username, false))
	}
}

func (r *Room) stopAdvanceTimer() {
	if r.advanceTimer != nil {
		r.advanceTimer.Stop()
		r.advanceTimer = nil
	}
}

// PublicPlayers is the sanitized roster for playerListUpdate.
func (r *Room) PublicPlayers() []PublicPlayer {
	out := make([]PublicPlayer, 0, len(r.Players))
	for _, p := range r.Players {
		out = append(out, p.public())
	}
	return out
}

func publicSlice(players []*Player) []PublicPlayer {
	out := make([]PublicPlayer, 0, len(players))
	for _, p := range players {
		out = append(out, p.public())
	}
	return out
}

// RoomInfo is the public summary of a room, without any secret state.
type RoomInfo struct {
	Code         string         `json:"code"`
	Players      []PublicPlayer `json:"players"`
	GameState    RoomState      `json:"gameState"`
	CurrentRound int            `json:"currentRound"`
	MaxPlayers   int            `json:"maxPlayers"`
}

func (r *Room) PublicInfo() RoomInfo {
	return RoomInfo{
		Code:         r.Code,
		Players:      r.PublicPlayers(),
		GameState:    r.State,
		CurrentRound: r.CurrentRound,
		MaxPlayers:   r.Config.MaxPlayers,
	}
}
