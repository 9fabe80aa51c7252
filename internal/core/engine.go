package core

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// RoomRegistry is what the engine needs from the room store.
type RoomRegistry interface {
	GenerateCode() (string, error)
	Create(room *Room) error
	Get(code string) *Room
	Delete(code string)
	All() []*Room
}

// WordSource provides the word/category dataset.
type WordSource interface {
	Has(key string) bool
	Categories() map[string]string
	DisplayName(key string) string
	RandomCategory() (string, error)
	RandomWord(key string) (string, error)
}

// EngineOptions are the fixed game parameters the engine runs with.
type EngineOptions struct {
	Defaults    RoomConfig
	MinPlayers  int
	GracePeriod time.Duration
	RevealDelay time.Duration
}

// Engine drives the per-room state machine. Every intent handler
// resolves the room, holds its lock for the whole mutation, and
// returns the ordered outbound events for the gateway to deliver.
// Timer-driven transitions (grace expiry, post-elimination advance)
// re-enter through the broadcast callback after re-validating state.
type Engine struct {
	rooms     RoomRegistry
	words     WordSource
	saver     GameSaver
	opts      EngineOptions
	broadcast func(roomCode string, events []Event)
	reconnect *ReconnectionManager
}

func NewEngine(rooms RoomRegistry, words WordSource, saver GameSaver, opts EngineOptions) *Engine {
	e := &Engine{
		rooms:     rooms,
		words:     words,
		saver:     saver,
		opts:      opts,
		broadcast: func(string, []Event) {},
	}
	e.reconnect = NewReconnectionManager(opts.GracePeriod, e.expireGracePeriod)
	return e
}

// SetBroadcast installs the fan-out used by timer-driven events.
func (e *Engine) SetBroadcast(fn func(roomCode string, events []Event)) {
	e.broadcast = fn
}

// ConfigPatch is the host-editable subset of the room config.
type ConfigPatch struct {
	Category      *string `json:"category,omitempty"`
	ImpostorCount *int    `json:"impostorCount,omitempty"`
}

// CreateRoom returns the new room's code alongside the events so the
// gateway can register the connection as a member.
func (e *Engine) CreateRoom(connID, username string) (string, []Event, error) {
	code, err := e.rooms.GenerateCode()
	if err != nil {
		return "", nil, err
	}

	host := NewPlayer(connID, username, true)
	room := NewRoom(code, e.opts.Defaults, host)
	if err := e.rooms.Create(room); err != nil {
		return "", nil, err
	}

	log.Info().Str("room", code).Str("host", username).Msg("room created")
	return code, []Event{
		senderEvent("roomCreated", RoomCreatedPayload{
			RoomCode:   code,
			Room:       room.PublicInfo(),
			Categories: e.words.Categories(),
		}),
		roomEvent("playerListUpdate", room.PublicPlayers()),
	}, nil
}

func (e *Engine) JoinRoom(connID, username, code string) ([]Event, error) {
	room := e.rooms.Get(code)
	if room == nil {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if p := room.FindByUsername(username); p != nil {
		if !p.Disconnected {
			return nil, ErrNameTaken
		}
		return e.reconnectPlayer(room, p, connID), nil
	}

	if room.State != StateWaiting {
		room.AddSpectator(&Spectator{ID: connID, Username: username})
		return []Event{
			senderEvent("roomJoined", RoomJoinedPayload{
				RoomCode:    code,
				Room:        room.PublicInfo(),
				Categories:  e.words.Categories(),
				IsSpectator: true,
				CurrentPeriod: &PeriodSnapshot{
					State:   room.State,
					Players: room.PublicPlayers(),
					Config:  room.Config,
					Votes:   len(room.Votes),
				},
			}),
			roomEvent("spectatorJoined", SpectatorJoinedPayload{Username: username}),
		}, nil
	}

	p := NewPlayer(connID, username, false)
	if !room.AddPlayer(p) {
		return nil, ErrRoomFull
	}

	log.Info().Str("room", code).Str("player", username).Msg("player joined")
	return []Event{
		roomEvent("playerListUpdate", room.PublicPlayers()),
		senderEvent("roomJoined", RoomJoinedPayload{
			RoomCode:   code,
			Room:       room.PublicInfo(),
			Categories: e.words.Categories(),
		}),
	}, nil
}

// reconnectPlayer swaps the connection id in place and replays the
// player's private match state. Called with the room locked.
func (e *Engine) reconnectPlayer(room *Room, p *Player, connID string) []Event {
	e.reconnect.Cancel(p.Username, room.Code)

	p.ID = connID
	p.Disconnected = false
	p.DisconnectTime = time.Time{}

	events := []Event{
		senderEvent("roomJoined", RoomJoinedPayload{
			RoomCode:       room.Code,
			Room:           room.PublicInfo(),
			Categories:     e.words.Categories(),
			IsReconnection: true,
		}),
	}

	if room.State != StateWaiting {
		events = append(events,
			privateEvent(connID, "yourRole", rolePayload(room, p)),
			privateEvent(connID, "gameStarted", GameStartedPayload{
				Category:         e.words.DisplayName(room.Category),
				DescriptionOrder: orderRefs(room),
			}),
		)
		if room.State == StateVoting {
			events = append(events, roomEvent("votingStarted", VotingStartedPayload{
				VotingOrder:       publicSlice(room.AlivePlayers()),
				CurrentVoterIndex: len(room.Votes),
			}))
		}
	}

	log.Info().Str("room", room.Code).Str("player", p.Username).Msg("player reconnected")
	return append(events,
		roomEvent("playerListUpdate", room.PublicPlayers()),
		roomEvent("chatMessage", SystemChat(p.Username+" has reconnected.")),
	)
}

func (e *Engine) UpdateConfig(connID, code string, patch ConfigPatch) ([]Event, error) {
	room := e.rooms.Get(code)
	if room == nil {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if _, err := hostOf(room, connID); err != nil {
		return nil, err
	}

	if patch.Category != nil {
		if !e.words.Has(*patch.Category) {
			return nil, ErrInvalidCategory
		}
		room.Config.Category = *patch.Category
	}
	if patch.ImpostorCount != nil {
		if *patch.ImpostorCount < 1 || *patch.ImpostorCount > 3 {
			return nil, ErrInvalidImpostorCount
		}
		room.Config.ImpostorCount = *patch.ImpostorCount
	}

	return []Event{roomEvent("configUpdate", room.Config)}, nil
}

func (e *Engine) RandomCategory(connID, code string) ([]Event, error) {
	room := e.rooms.Get(code)
	if room == nil {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.FindPlayer(connID) == nil {
		return nil, ErrNotInRoom
	}

	key, err := e.words.RandomCategory()
	if err != nil {
		return nil, err
	}
	return []Event{roomEvent("categorySelected", CategorySelectedPayload{
		CategoryKey:  key,
		CategoryName: e.words.DisplayName(key),
	})}, nil
}

func (e *Engine) StartGame(connID, code string) ([]Event, error) {
	room := e.rooms.Get(code)
	if room == nil {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if _, err := hostOf(room, connID); err != nil {
		return nil, err
	}
	if room.State != StateWaiting {
		return nil, ErrBadState
	}

	alive := room.AlivePlayers()
	if len(alive) < e.opts.MinPlayers {
		return nil, ErrNotEnoughPlayers
	}
	if room.Config.ImpostorCount >= len(alive) {
		return nil, ErrInvalidImpostorCount
	}

	key := room.Config.Category
	if key == "random" {
		var err error
		if key, err = e.words.RandomCategory(); err != nil {
			return nil, err
		}
	}
	word, err := e.words.RandomWord(key)
	if err != nil {
		return nil, ErrInvalidCategory
	}

	room.State = StateStarting
	room.CurrentRound = 1
	room.StartedAt = time.Now()
	room.Category = key
	room.Word = word

	AssignRoles(room.Players, room.Config.ImpostorCount)
	AssignWord(room.Players, e.words.DisplayName(key), word)
	room.DescriptionOrder = ShuffledOrder(alive)

	events := []Event{roomEvent("gameStarted", GameStartedPayload{
		Category:         e.words.DisplayName(key),
		DescriptionOrder: orderRefs(room),
	})}
	for _, p := range room.Players {
		events = append(events, privateEvent(p.ID, "yourRole", rolePayload(room, p)))
	}

	room.State = StatePlaying
	log.Info().Str("room", code).Str("category", key).Int("players", len(alive)).Msg("game started")
	return events, nil
}

func (e *Engine) StartVoting(connID, code string) ([]Event, error) {
	room := e.rooms.Get(code)
	if room == nil {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if _, err := hostOf(room, connID); err != nil {
		return nil, err
	}
	if room.State != StatePlaying {
		return nil, ErrBadState
	}

	room.State = StateVoting
	room.Votes = nil

	return []Event{roomEvent("votingStarted", VotingStartedPayload{
		VotingOrder:       publicSlice(room.AlivePlayers()),
		CurrentVoterIndex: 0,
	})}, nil
}

func (e *Engine) CastVote(connID, code, votedFor string) ([]Event, error) {
	room := e.rooms.Get(code)
	if room == nil {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.State != StateVoting {
		return nil, ErrBadState
	}

	voter := room.FindPlayer(connID)
	if voter == nil {
		return nil, ErrNotInRoom
	}
	if !voter.Alive {
		return nil, ErrBadState
	}
	for _, v := range room.Votes {
		if v.VoterID == connID {
			return nil, ErrAlreadyVoted
		}
	}
	if votedFor == connID {
		return nil, ErrSelfVote
	}
	target := room.FindPlayer(votedFor)
	if target == nil || !target.Alive {
		return nil, ErrInvalidTarget
	}

	room.Votes = append(room.Votes, Vote{VoterID: connID, VoterName: voter.Username, VotedFor: votedFor})

	alive := room.AlivePlayers()
	if len(room.Votes) >= len(alive) {
		return e.resolveVoting(room), nil
	}

	return []Event{roomEvent("voteCast", VoteCastPayload{
		VoterName:         voter.Username,
		VotedForName:      target.Username,
		VotingOrder:       publicSlice(alive),
		CurrentVoterIndex: len(room.Votes),
	})}, nil
}

func (e *Engine) FinishVoting(connID, code string) ([]Event, error) {
	room := e.rooms.Get(code)
	if room == nil {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if _, err := hostOf(room, connID); err != nil {
		return nil, err
	}
	if room.State != StateVoting {
		return nil, ErrBadState
	}
	return e.resolveVoting(room), nil
}

// resolveVoting runs tally and win evaluation atomically with the
// elimination and round bookkeeping. Called with the room locked.
func (e *Engine) resolveVoting(room *Room) []Event {
	room.State = StateEnding
	outcome := TallyVotes(room.Votes)

	eliminated := room.FindPlayer(outcome.Eliminated)
	if outcome.Tie || eliminated == nil {
		e.armAdvance(room)
		return []Event{roomEvent("tieVoting", TieVotingPayload{Players: outcome.TiedIDs})}
	}

	eliminated.Alive = false
	verdict := EvaluateWin(room.Players)

	payload := PlayerEliminatedPayload{
		PlayerName:  eliminated.Username,
		WasImpostor: eliminated.Role == RoleImpostor,
		GameEnded:   verdict.GameOver,
	}

	if !verdict.GameOver {
		e.armAdvance(room)
		return []Event{roomEvent("playerEliminated", payload)}
	}

	payload.Winner = verdict.Winner
	payload.Word = room.Word
	payload.Players = room.PublicPlayers()
	room.Winner = verdict.Winner

	updateRoomStats(room, verdict.Winner)
	e.saveResult(room)

	log.Info().Str("room", room.Code).Str("winner", verdict.Winner).Msg("game ended")
	return []Event{
		roomEvent("playerEliminated", payload),
		roomEvent("statsUpdate", statsEntries(room)),
	}
}

// armAdvance schedules the post-elimination advance after the reveal
// delay. Called with the room locked; the callback re-validates that
// the room is still in ending before advancing.
func (e *Engine) armAdvance(room *Room) {
	room.stopAdvanceTimer()
	code := room.Code
	room.advanceTimer = time.AfterFunc(e.opts.RevealDelay, func() {
		e.advanceRound(code)
	})
}

func (e *Engine) advanceRound(code string) {
	room := e.rooms.Get(code)
	if room == nil {
		return
	}

	room.mu.Lock()
	if room.State != StateEnding || room.Winner != "" {
		room.mu.Unlock()
		return
	}
	room.State = StatePlaying
	room.CurrentRound++
	room.Votes = nil
	room.advanceTimer = nil
	events := []Event{roomEvent("continueGame", ContinueGamePayload{
		AlivePlayers: publicSlice(room.AlivePlayers()),
		RoundNumber:  room.CurrentRound,
	})}
	room.mu.Unlock()

	e.broadcast(code, events)
}

func (e *Engine) CancelGame(connID, code string) ([]Event, error) {
	room := e.rooms.Get(code)
	if room == nil {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if _, err := hostOf(room, connID); err != nil {
		return nil, err
	}
	if room.State == StateWaiting {
		return nil, ErrBadState
	}

	room.ResetToLobby()
	return []Event{
		roomEvent("gameCancelled", GameCancelledPayload{
			Message:    "The host cancelled the game",
			Room:       room.PublicInfo(),
			Categories: e.words.Categories(),
		}),
		roomEvent("playerListUpdate", room.PublicPlayers()),
	}, nil
}

func (e *Engine) ContinueInRoom(connID, code string) ([]Event, error) {
	room := e.rooms.Get(code)
	if room == nil {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if _, err := hostOf(room, connID); err != nil {
		return nil, err
	}

	room.ResetToLobby()
	return []Event{
		roomEvent("gameResetToLobby", GameResetPayload{
			Room:       room.PublicInfo(),
			Categories: e.words.Categories(),
		}),
		roomEvent("playerListUpdate", room.PublicPlayers()),
	}, nil
}

func (e *Engine) SendReaction(connID, code, emoji string) ([]Event, error) {
	room := e.rooms.Get(code)
	if room == nil {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	p := room.FindPlayer(connID)
	if p == nil {
		return nil, ErrNotInRoom
	}
	return []Event{roomEvent("reactionReceived", ReactionPayload{Username: p.Username, Emoji: emoji})}, nil
}

// Disconnect handles the transport-level leave. It returns the code of
// the room the connection belonged to (empty if none) and the events
// to deliver to the remaining members.
func (e *Engine) Disconnect(connID string) (string, []Event) {
	for _, room := range e.rooms.All() {
		room.mu.Lock()

		if s := room.RemoveSpectator(connID); s != nil {
			code := room.Code
			room.mu.Unlock()
			return code, nil
		}

		p := room.FindPlayer(connID)
		if p == nil {
			room.mu.Unlock()
			continue
		}
		code := room.Code

		if p.IsHost {
			if room.State == StateWaiting && len(room.Players) > 1 {
				room.RemovePlayer(connID)
				heir := room.Players[0]
				heir.IsHost = true
				events := []Event{
					privateEvent(heir.ID, "becameHost", MessagePayload{Message: "The host left. You are the new host."}),
					roomEvent("playerListUpdate", room.PublicPlayers()),
				}
				room.mu.Unlock()
				log.Info().Str("room", code).Str("host", heir.Username).Msg("host migrated")
				return code, events
			}
			room.mu.Unlock()

			e.reconnect.CancelRoom(code)
			e.rooms.Delete(code)
			log.Info().Str("room", code).Msg("host disconnected, room destroyed")
			return code, []Event{roomEvent("hostDisconnected", MessagePayload{Message: "The host disconnected."})}
		}

		if room.State != StateWaiting {
			p.Disconnected = true
			p.DisconnectTime = time.Now()
			username := p.Username
			notice := fmt.Sprintf("%s lost connection. Waiting %ds for them to return...",
				username, int(e.opts.GracePeriod.Seconds()))
			room.mu.Unlock()

			e.reconnect.Arm(username, code)
			return code, []Event{roomEvent("chatMessage", SystemChat(notice))}
		}

		room.RemovePlayer(connID)
		empty := len(room.Players) == 0
		events := []Event{roomEvent("playerListUpdate", room.PublicPlayers())}
		room.mu.Unlock()

		if empty {
			e.rooms.Delete(code)
			return code, nil
		}
		return code, events
	}
	return "", nil
}

// expireGracePeriod fires when a disconnected player's grace window
// runs out. A single lost player interrupts the whole room rather than
// letting the match limp on shorthanded.
func (e *Engine) expireGracePeriod(username, code string) {
	room := e.rooms.Get(code)
	if room == nil {
		return
	}

	room.mu.Lock()
	p := room.FindByUsername(username)
	if p == nil || !p.Disconnected {
		room.mu.Unlock()
		return
	}

	room.ResetToLobby()
	room.RemovePlayer(p.ID)
	empty := len(room.Players) == 0
	events := []Event{
		roomEvent("gameInterrupted", GameInterruptedPayload{
			Message:    username + " did not return. Game cancelled.",
			Categories: e.words.Categories(),
		}),
		roomEvent("playerListUpdate", room.PublicPlayers()),
	}
	room.mu.Unlock()

	if empty {
		e.rooms.Delete(code)
		return
	}
	e.broadcast(code, events)
}

func hostOf(room *Room, connID string) (*Player, error) {
	p := room.FindPlayer(connID)
	if p == nil {
		return nil, ErrNotInRoom
	}
	if !p.IsHost {
		return nil, ErrNotHost
	}
	return p, nil
}

func rolePayload(room *Room, p *Player) YourRolePayload {
	refs := make([]PlayerRef, 0, len(room.Players))
	for _, pl := range room.Players {
		refs = append(refs, PlayerRef{ID: pl.ID, Username: pl.Username})
	}
	return YourRolePayload{
		IsImpostor: p.Role == RoleImpostor,
		Word:       p.Word,
		Category:   p.Category,
		Players:    refs,
	}
}

func orderRefs(room *Room) []PlayerRef {
	refs := make([]PlayerRef, 0, len(room.DescriptionOrder))
	for _, id := range room.DescriptionOrder {
		if p := room.FindPlayer(id); p != nil {
			refs = append(refs, PlayerRef{ID: p.ID, Username: p.Username})
		}
	}
	return refs
}

func updateRoomStats(room *Room, winner string) {
	for _, p := range room.Players {
		p.Stats.GamesPlayed++
		if winner == WinnerImpostors && p.Role == RoleImpostor {
			p.Stats.ImpostorWins++
		}
		if winner == WinnerInnocents && p.Role == RoleInnocent {
			p.Stats.InnocentWins++
		}
	}
	for _, v := range room.Votes {
		voter := room.FindPlayer(v.VoterID)
		target := room.FindPlayer(v.VotedFor)
		if voter != nil && target != nil && target.Role == RoleImpostor {
			voter.Stats.CorrectVotes++
		}
	}
}

func statsEntries(room *Room) []PlayerStatsEntry {
	out := make([]PlayerStatsEntry, 0, len(room.Players))
	for _, p := range room.Players {
		out = append(out, PlayerStatsEntry{ID: p.ID, Username: p.Username, Stats: p.Stats})
	}
	return out
}
