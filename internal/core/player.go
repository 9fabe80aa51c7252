package core

import "time"

type Role string

const (
	RoleImpostor Role = "impostor"
	RoleInnocent Role = "innocent"
)

// PlayerStats accumulate across matches within the same room instance.
// They die with the room; long-term persistence lives in the stats
// service.
type PlayerStats struct {
	GamesPlayed  int `json:"gamesPlayed"`
	ImpostorWins int `json:"impostorWins"`
	InnocentWins int `json:"innocentWins"`
	CorrectVotes int `json:"correctVotes"`
}

// Player is owned by its Room. ID is the transport connection id and
// is swapped in place on reconnection; Username is the stable identity
// within the room.
type Player struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsHost   bool   `json:"isHost"`
	Role     Role   `json:"role,omitempty"`
	Alive    bool   `json:"alive"`
	Word     string `json:"word,omitempty"`
	Category string `json:"category,omitempty"`

	Disconnected   bool      `json:"disconnected,omitempty"`
	DisconnectTime time.Time `json:"-"`

	Stats PlayerStats `json:"stats"`
}

func NewPlayer(id, username string, host bool) *Player {
	return &Player{ID: id, Username: username, IsHost: host, Alive: true}
}

// Spectator joined mid-round; never votes, never holds a role.
type Spectator struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// PublicPlayer is the sanitized view broadcast to clients. Roles and
// words are delivered privately only.
type PublicPlayer struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	IsHost       bool   `json:"isHost"`
	Alive        bool   `json:"alive"`
	Disconnected bool   `json:"disconnected,omitempty"`
}

func (p *Player) public() PublicPlayer {
	return PublicPlayer{
		ID:           p.ID,
		Username:     p.Username,
		IsHost:       p.IsHost,
		Alive:        p.Alive,
		Disconnected: p.Disconnected,
	}
}
