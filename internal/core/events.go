package core

import "time"

// Event is one outbound message produced by an intent handler. The
// gateway routes it: Target set = private delivery to that connection,
// ToSender = only the initiating connection, otherwise the whole room.
type Event struct {
	Name     string
	Target   string
	ToSender bool
	Payload  any
}

func roomEvent(name string, payload any) Event {
	return Event{Name: name, Payload: payload}
}

func privateEvent(target, name string, payload any) Event {
	return Event{Name: name, Target: target, Payload: payload}
}

func senderEvent(name string, payload any) Event {
	return Event{Name: name, ToSender: true, Payload: payload}
}

type RoomCreatedPayload struct {
	RoomCode   string            `json:"roomCode"`
	Room       RoomInfo          `json:"room"`
	Categories map[string]string `json:"categories"`
}

type RoomJoinedPayload struct {
	RoomCode       string            `json:"roomCode"`
	Room           RoomInfo          `json:"room"`
	Categories     map[string]string `json:"categories"`
	IsReconnection bool              `json:"isReconnection,omitempty"`
	IsSpectator    bool              `json:"isSpectator,omitempty"`
	CurrentPeriod  *PeriodSnapshot   `json:"currentPeriod,omitempty"`
}

// PeriodSnapshot is the live readout shown to spectators joining
// mid-round.
type PeriodSnapshot struct {
	State   RoomState      `json:"state"`
	Players []PublicPlayer `json:"players"`
	Config  RoomConfig     `json:"config"`
	Votes   int            `json:"votes"`
}

type PlayerRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type GameStartedPayload struct {
	Category         string      `json:"category"`
	DescriptionOrder []PlayerRef `json:"descriptionOrder"`
}

type YourRolePayload struct {
	IsImpostor bool        `json:"isImpostor"`
	Word       string      `json:"word,omitempty"`
	Category   string      `json:"category,omitempty"`
	Players    []PlayerRef `json:"players"`
}

type VotingStartedPayload struct {
	VotingOrder       []PublicPlayer `json:"votingOrder"`
	CurrentVoterIndex int            `json:"currentVoterIndex"`
}

type VoteCastPayload struct {
	VoterName         string         `json:"voterName"`
	VotedForName      string         `json:"votedForName"`
	VotingOrder       []PublicPlayer `json:"votingOrder"`
	CurrentVoterIndex int            `json:"currentVoterIndex"`
}

type PlayerEliminatedPayload struct {
	PlayerName  string         `json:"playerName"`
	WasImpostor bool           `json:"wasImpostor"`
	GameEnded   bool           `json:"gameEnded"`
	Winner      string         `json:"winner,omitempty"`
	Word        string         `json:"word,omitempty"`
	Players     []PublicPlayer `json:"players,omitempty"`
}

type TieVotingPayload struct {
	Players []string `json:"players"`
}

type ContinueGamePayload struct {
	AlivePlayers []PublicPlayer `json:"alivePlayers"`
	RoundNumber  int            `json:"roundNumber"`
}

type ConfigUpdatePayload = RoomConfig

type CategorySelectedPayload struct {
	CategoryKey  string `json:"categoryKey"`
	CategoryName string `json:"categoryName"`
}

type GameCancelledPayload struct {
	Message    string            `json:"message"`
	Room       RoomInfo          `json:"room"`
	Categories map[string]string `json:"categories"`
}

type GameResetPayload struct {
	Room       RoomInfo          `json:"room"`
	Categories map[string]string `json:"categories"`
}

type GameInterruptedPayload struct {
	Message    string            `json:"message"`
	Categories map[string]string `json:"categories"`
}

type MessagePayload struct {
	Message string `json:"message"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type ReactionPayload struct {
	Username string `json:"username"`
	Emoji    string `json:"emoji"`
}

type SpectatorJoinedPayload struct {
	Username string `json:"username"`
}

type PlayerStatsEntry struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Stats    PlayerStats `json:"stats"`
}

type ChatMessagePayload struct {
	ID          string `json:"id"`
	SenderID    string `json:"senderId,omitempty"`
	SenderName  string `json:"senderName"`
	Content     string `json:"content"`
	Timestamp   int64  `json:"timestamp"`
	IsSpectator bool   `json:"isSpectator,omitempty"`
}

// SystemChat builds the system-authored chat notice used for
// disconnect and reconnect announcements.
func SystemChat(content string) ChatMessagePayload {
	return ChatMessagePayload{
		SenderName: "System",
		Content:    content,
		Timestamp:  time.Now().UnixMilli(),
	}
}
