package core_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"impostor-server/internal/core"
	"impostor-server/internal/store"
)

const (
	testGrace  = 80 * time.Millisecond
	testReveal = 20 * time.Millisecond
)

type fakeWords struct{}

func (fakeWords) Has(key string) bool { return key == "random" || key == "animals" }
func (fakeWords) Categories() map[string]string {
	return map[string]string{"animals": "Animals"}
}
func (fakeWords) DisplayName(string) string         { return "Animals" }
func (fakeWords) RandomCategory() (string, error)   { return "animals", nil }
func (fakeWords) RandomWord(string) (string, error) { return "Lion", nil }

type captureSaver struct {
	mu    sync.Mutex
	saved []core.GameSummary
	done  chan struct{}
}

func (s *captureSaver) SaveGameResult(summary core.GameSummary) {
	s.mu.Lock()
	s.saved = append(s.saved, summary)
	s.mu.Unlock()
	select {
	case s.done <- struct{}{}:
	default:
	}
}

func newTestEngine(t *testing.T) (*core.Engine, *store.RoomStore, *captureSaver) {
	t.Helper()

	rooms, err := store.New()
	require.NoError(t, err)

	saver := &captureSaver{done: make(chan struct{}, 1)}
	engine := core.NewEngine(rooms, fakeWords{}, saver, core.EngineOptions{
		Defaults: core.RoomConfig{
			MaxPlayers:     8,
			ImpostorCount:  1,
			VotingTime:     30,
			DiscussionTime: 30,
			Category:       "random",
		},
		MinPlayers:  4,
		GracePeriod: testGrace,
		RevealDelay: testReveal,
	})
	return engine, rooms, saver
}

// setupRoom creates a room with Alice hosting and n-1 players joined.
// Connection ids are c1..cn.
func setupRoom(t *testing.T, e *core.Engine, n int) (string, []string) {
	t.Helper()
	req := require.New(t)

	names := []string{"Alice", "Bob", "Carol", "Dave", "Erin", "Frank", "Grace", "Heidi"}
	conns := make([]string, n)

	code, _, err := e.CreateRoom("c1", names[0])
	req.NoError(err)
	conns[0] = "c1"

	for i := 1; i < n; i++ {
		conns[i] = "c" + string(rune('1'+i))
		_, err := e.JoinRoom(conns[i], names[i], code)
		req.NoError(err)
	}
	return code, conns
}

func findEvent(events []core.Event, name string) (core.Event, bool) {
	for _, ev := range events {
		if ev.Name == name {
			return ev, true
		}
	}
	return core.Event{}, false
}

func countEvents(events []core.Event, name string) int {
	n := 0
	for _, ev := range events {
		if ev.Name == name {
			n++
		}
	}
	return n
}

func impostorConn(room *core.Room) string {
	for _, p := range room.Players {
		if p.Role == core.RoleImpostor {
			return p.ID
		}
	}
	return ""
}

func innocentConns(room *core.Room) []string {
	var out []string
	for _, p := range room.Players {
		if p.Role == core.RoleInnocent {
			out = append(out, p.ID)
		}
	}
	return out
}

func TestCreateRoom(t *testing.T) {
	req := require.New(t)
	engine, rooms, _ := newTestEngine(t)

	code, events, err := engine.CreateRoom("c1", "Alice")
	req.NoError(err)
	req.Len(code, 4)

	created, ok := findEvent(events, "roomCreated")
	req.True(ok)
	req.True(created.ToSender)
	payload := created.Payload.(core.RoomCreatedPayload)
	req.Equal(code, payload.RoomCode)
	req.Len(payload.Room.Players, 1)
	req.True(payload.Room.Players[0].IsHost)

	room := rooms.Get(code)
	req.NotNil(room)
	req.Equal(core.StateWaiting, room.State)
}

func TestJoinRoom_UnknownCode(t *testing.T) {
	req := require.New(t)
	engine, _, _ := newTestEngine(t)

	_, err := engine.JoinRoom("c1", "Alice", "ZZZZ")
	req.ErrorIs(err, core.ErrRoomNotFound)
}

func TestJoinRoom_DuplicateName(t *testing.T) {
	req := require.New(t)
	engine, _, _ := newTestEngine(t)

	code, _, err := engine.CreateRoom("c1", "Alice")
	req.NoError(err)

	_, err = engine.JoinRoom("c2", "alice", code)
	req.ErrorIs(err, core.ErrNameTaken)
}

func TestJoinRoom_Full(t *testing.T) {
	req := require.New(t)
	engine, _, _ := newTestEngine(t)

	code, _ := setupRoom(t, engine, 8)
	_, err := engine.JoinRoom("c9", "Ivan", code)
	req.ErrorIs(err, core.ErrRoomFull)
}

func TestUpdateConfig(t *testing.T) {
	req := require.New(t)
	engine, rooms, _ := newTestEngine(t)

	code, conns := setupRoom(t, engine, 4)

	category := "animals"
	impostors := 2
	events, err := engine.UpdateConfig(conns[0], code, core.ConfigPatch{
		Category:      &category,
		ImpostorCount: &impostors,
	})
	req.NoError(err)
	_, ok := findEvent(events, "configUpdate")
	req.True(ok)

	room := rooms.Get(code)
	req.Equal("animals", room.Config.Category)
	req.Equal(2, room.Config.ImpostorCount)

	bogus := "flowers"
	_, err = engine.UpdateConfig(conns[0], code, core.ConfigPatch{Category: &bogus})
	req.ErrorIs(err, core.ErrInvalidCategory)

	_, err = engine.UpdateConfig(conns[1], code, core.ConfigPatch{Category: &category})
	req.ErrorIs(err, core.ErrNotHost)
	req.True(core.Silent(err))
}

func TestStartGame_Preconditions(t *testing.T) {
	req := require.New(t)
	engine, _, _ := newTestEngine(t)

	code, conns := setupRoom(t, engine, 3)

	_, err := engine.StartGame(conns[0], code)
	req.ErrorIs(err, core.ErrNotEnoughPlayers)

	_, err = engine.JoinRoom("c4", "Dave", code)
	req.NoError(err)

	_, err = engine.StartGame(conns[1], code)
	req.ErrorIs(err, core.ErrNotHost)
}

func TestStartGame_AssignsRolesAndWords(t *testing.T) {
	req := require.New(t)
	engine, rooms, _ := newTestEngine(t)

	code, conns := setupRoom(t, engine, 4)

	events, err := engine.StartGame(conns[0], code)
	req.NoError(err)

	started, ok := findEvent(events, "gameStarted")
	req.True(ok)
	req.Len(started.Payload.(core.GameStartedPayload).DescriptionOrder, 4)
	req.Equal(4, countEvents(events, "yourRole"))

	room := rooms.Get(code)
	req.Equal(core.StatePlaying, room.State)
	req.Equal(1, room.CurrentRound)
	req.Equal("Lion", room.Word)

	impostors := 0
	for _, p := range room.Players {
		if p.Role == core.RoleImpostor {
			impostors++
			req.Empty(p.Word)
		} else {
			req.Equal("Lion", p.Word)
		}
	}
	req.Equal(1, impostors)

	// A second start on a running game is refused.
	_, err = engine.StartGame(conns[0], code)
	req.ErrorIs(err, core.ErrBadState)
}

func TestVoting_ImpostorEliminated_InnocentsWin(t *testing.T) {
	req := require.New(t)
	engine, rooms, saver := newTestEngine(t)

	code, conns := setupRoom(t, engine, 4)
	_, err := engine.StartGame(conns[0], code)
	req.NoError(err)

	_, err = engine.StartVoting(conns[0], code)
	req.NoError(err)

	room := rooms.Get(code)
	imp := impostorConn(room)
	innocents := innocentConns(room)

	// The impostor votes first so the last innocent vote resolves the
	// round.
	_, err = engine.CastVote(imp, code, innocents[0])
	req.NoError(err)

	var final []core.Event
	for _, conn := range innocents {
		final, err = engine.CastVote(conn, code, imp)
		req.NoError(err)
	}

	elim, ok := findEvent(final, "playerEliminated")
	req.True(ok)
	payload := elim.Payload.(core.PlayerEliminatedPayload)
	req.True(payload.WasImpostor)
	req.True(payload.GameEnded)
	req.Equal(core.WinnerInnocents, payload.Winner)
	req.Equal("Lion", payload.Word)

	_, ok = findEvent(final, "statsUpdate")
	req.True(ok)
	req.Equal(core.WinnerInnocents, room.Winner)

	select {
	case <-saver.done:
	case <-time.After(time.Second):
		t.Fatal("game result was never saved")
	}
	saver.mu.Lock()
	defer saver.mu.Unlock()
	req.Len(saver.saved, 1)
	req.Equal(core.WinnerInnocents, saver.saved[0].WinnerTeam)
	req.Equal(4, saver.saved[0].PlayerCount)

	// Terminal rounds never auto-advance.
	time.Sleep(3 * testReveal)
	req.Equal(core.StateEnding, room.State)
	req.Equal(1, room.CurrentRound)
}

func TestVoting_InnocentEliminated_GameContinues(t *testing.T) {
	req := require.New(t)
	engine, rooms, _ := newTestEngine(t)

	broadcasts := make(chan []core.Event, 4)
	engine.SetBroadcast(func(_ string, events []core.Event) {
		broadcasts <- events
	})

	code, conns := setupRoom(t, engine, 4)
	_, err := engine.StartGame(conns[0], code)
	req.NoError(err)
	_, err = engine.StartVoting(conns[0], code)
	req.NoError(err)

	room := rooms.Get(code)
	imp := impostorConn(room)
	innocents := innocentConns(room)
	victim := innocents[0]

	_, err = engine.CastVote(imp, code, victim)
	req.NoError(err)
	_, err = engine.CastVote(innocents[1], code, victim)
	req.NoError(err)
	_, err = engine.CastVote(innocents[2], code, victim)
	req.NoError(err)
	final, err := engine.CastVote(victim, code, imp)
	req.NoError(err)

	elim, ok := findEvent(final, "playerEliminated")
	req.True(ok)
	payload := elim.Payload.(core.PlayerEliminatedPayload)
	req.False(payload.WasImpostor)
	req.False(payload.GameEnded)
	req.Empty(payload.Winner)

	select {
	case events := <-broadcasts:
		cont, ok := findEvent(events, "continueGame")
		req.True(ok)
		next := cont.Payload.(core.ContinueGamePayload)
		req.Equal(2, next.RoundNumber)
		req.Len(next.AlivePlayers, 3)
	case <-time.After(time.Second):
		t.Fatal("round never advanced after elimination")
	}

	req.Equal(core.StatePlaying, room.State)
	req.Equal(2, room.CurrentRound)
	req.Empty(room.Votes)
	req.False(rooms.Get(code).FindPlayer(victim).Alive)
}

func TestVoting_TieAdvancesRound(t *testing.T) {
	req := require.New(t)
	engine, rooms, _ := newTestEngine(t)

	broadcasts := make(chan []core.Event, 4)
	engine.SetBroadcast(func(_ string, events []core.Event) {
		broadcasts <- events
	})

	code, conns := setupRoom(t, engine, 5)
	_, err := engine.StartGame(conns[0], code)
	req.NoError(err)
	_, err = engine.StartVoting(conns[0], code)
	req.NoError(err)

	// 2-2-1: conns[0] and conns[1] tie at two votes each.
	votes := map[string]string{
		conns[0]: conns[1],
		conns[1]: conns[0],
		conns[2]: conns[1],
		conns[3]: conns[0],
		conns[4]: conns[2],
	}
	var final []core.Event
	for _, voter := range conns {
		final, err = engine.CastVote(voter, code, votes[voter])
		req.NoError(err)
	}

	tie, ok := findEvent(final, "tieVoting")
	req.True(ok)
	req.Len(tie.Payload.(core.TieVotingPayload).Players, 2)
	_, ok = findEvent(final, "playerEliminated")
	req.False(ok)

	room := rooms.Get(code)
	for _, p := range room.Players {
		req.True(p.Alive)
	}

	select {
	case events := <-broadcasts:
		cont, ok := findEvent(events, "continueGame")
		req.True(ok)
		req.Equal(2, cont.Payload.(core.ContinueGamePayload).RoundNumber)
	case <-time.After(time.Second):
		t.Fatal("round never advanced after tie")
	}
	req.Equal(core.StatePlaying, room.State)
}

func TestCastVote_Validation(t *testing.T) {
	req := require.New(t)
	engine, rooms, _ := newTestEngine(t)

	code, conns := setupRoom(t, engine, 4)
	_, err := engine.StartGame(conns[0], code)
	req.NoError(err)

	// Voting has not started yet.
	_, err = engine.CastVote(conns[0], code, conns[1])
	req.ErrorIs(err, core.ErrBadState)

	_, err = engine.StartVoting(conns[0], code)
	req.NoError(err)

	_, err = engine.CastVote(conns[0], code, conns[0])
	req.ErrorIs(err, core.ErrSelfVote)

	_, err = engine.CastVote(conns[0], code, "nobody")
	req.ErrorIs(err, core.ErrInvalidTarget)

	_, err = engine.CastVote(conns[0], code, conns[1])
	req.NoError(err)
	_, err = engine.CastVote(conns[0], code, conns[2])
	req.ErrorIs(err, core.ErrAlreadyVoted)

	_, err = engine.CastVote("stranger", code, conns[1])
	req.ErrorIs(err, core.ErrNotInRoom)

	req.Len(rooms.Get(code).Votes, 1)
}

func TestFinishVoting_ResolvesWithPartialVotes(t *testing.T) {
	req := require.New(t)
	engine, rooms, _ := newTestEngine(t)

	code, conns := setupRoom(t, engine, 4)
	_, err := engine.StartGame(conns[0], code)
	req.NoError(err)
	_, err = engine.StartVoting(conns[0], code)
	req.NoError(err)

	room := rooms.Get(code)
	imp := impostorConn(room)
	var voter string
	for _, conn := range innocentConns(room) {
		if conn != conns[0] {
			voter = conn
			break
		}
	}

	_, err = engine.CastVote(voter, code, imp)
	req.NoError(err)

	_, err = engine.FinishVoting(conns[1], code)
	req.ErrorIs(err, core.ErrNotHost)

	events, err := engine.FinishVoting(conns[0], code)
	req.NoError(err)

	elim, ok := findEvent(events, "playerEliminated")
	req.True(ok)
	payload := elim.Payload.(core.PlayerEliminatedPayload)
	req.True(payload.WasImpostor)
	req.True(payload.GameEnded)
}

func TestCancelGame_ReturnsToLobby(t *testing.T) {
	req := require.New(t)
	engine, rooms, _ := newTestEngine(t)

	code, conns := setupRoom(t, engine, 4)

	// Nothing to cancel while waiting.
	_, err := engine.CancelGame(conns[0], code)
	req.ErrorIs(err, core.ErrBadState)

	_, err = engine.StartGame(conns[0], code)
	req.NoError(err)

	_, err = engine.CancelGame(conns[1], code)
	req.ErrorIs(err, core.ErrNotHost)

	events, err := engine.CancelGame(conns[0], code)
	req.NoError(err)
	_, ok := findEvent(events, "gameCancelled")
	req.True(ok)

	room := rooms.Get(code)
	req.Equal(core.StateWaiting, room.State)
	req.Equal(0, room.CurrentRound)
	for _, p := range room.Players {
		req.Empty(p.Role)
		req.Empty(p.Word)
		req.True(p.Alive)
	}
}

func TestCancelGame_StopsPendingAdvance(t *testing.T) {
	req := require.New(t)
	engine, rooms, _ := newTestEngine(t)

	code, conns := setupRoom(t, engine, 4)
	_, err := engine.StartGame(conns[0], code)
	req.NoError(err)
	_, err = engine.StartVoting(conns[0], code)
	req.NoError(err)

	// Force a tie resolution so an advance timer is armed.
	_, err = engine.FinishVoting(conns[0], code)
	req.NoError(err)
	req.Equal(core.StateEnding, rooms.Get(code).State)

	_, err = engine.CancelGame(conns[0], code)
	req.NoError(err)

	time.Sleep(3 * testReveal)
	room := rooms.Get(code)
	req.Equal(core.StateWaiting, room.State)
	req.Equal(0, room.CurrentRound)
}

func TestSpectator_JoinsMidGameAndGetsPromoted(t *testing.T) {
	req := require.New(t)
	engine, rooms, _ := newTestEngine(t)

	code, conns := setupRoom(t, engine, 4)
	_, err := engine.StartGame(conns[0], code)
	req.NoError(err)

	events, err := engine.JoinRoom("spec1", "Erin", code)
	req.NoError(err)

	joined, ok := findEvent(events, "roomJoined")
	req.True(ok)
	req.True(joined.ToSender)
	payload := joined.Payload.(core.RoomJoinedPayload)
	req.True(payload.IsSpectator)
	req.NotNil(payload.CurrentPeriod)
	req.Equal(core.StatePlaying, payload.CurrentPeriod.State)

	_, ok = findEvent(events, "spectatorJoined")
	req.True(ok)

	_, err = engine.StartVoting(conns[0], code)
	req.NoError(err)
	_, err = engine.CastVote("spec1", code, conns[1])
	req.ErrorIs(err, core.ErrNotInRoom)

	events, err = engine.ContinueInRoom(conns[0], code)
	req.NoError(err)
	_, ok = findEvent(events, "gameResetToLobby")
	req.True(ok)

	room := rooms.Get(code)
	req.Equal(core.StateWaiting, room.State)
	req.Len(room.Players, 5)
	req.Empty(room.Spectators)
	req.NotNil(room.FindByUsername("Erin"))
}

func TestDisconnect_HostInWaitingMigrates(t *testing.T) {
	req := require.New(t)
	engine, rooms, _ := newTestEngine(t)

	code, conns := setupRoom(t, engine, 3)

	gone, events := engine.Disconnect(conns[0])
	req.Equal(code, gone)

	became, ok := findEvent(events, "becameHost")
	req.True(ok)
	req.Equal(conns[1], became.Target)

	room := rooms.Get(code)
	req.NotNil(room)
	req.Len(room.Players, 2)
	req.Equal(conns[1], room.Host().ID)
}

func TestDisconnect_HostMidGameDestroysRoom(t *testing.T) {
	req := require.New(t)
	engine, rooms, _ := newTestEngine(t)

	code, conns := setupRoom(t, engine, 4)
	_, err := engine.StartGame(conns[0], code)
	req.NoError(err)

	gone, events := engine.Disconnect(conns[0])
	req.Equal(code, gone)
	_, ok := findEvent(events, "hostDisconnected")
	req.True(ok)
	req.Nil(rooms.Get(code))
}

func TestDisconnect_PlayerInWaitingIsRemoved(t *testing.T) {
	req := require.New(t)
	engine, rooms, _ := newTestEngine(t)

	code, conns := setupRoom(t, engine, 3)

	gone, events := engine.Disconnect(conns[1])
	req.Equal(code, gone)
	_, ok := findEvent(events, "playerListUpdate")
	req.True(ok)

	room := rooms.Get(code)
	req.Len(room.Players, 2)
	req.Nil(room.FindByUsername("Bob"))
}

func TestDisconnect_SpectatorLeavesQuietly(t *testing.T) {
	req := require.New(t)
	engine, rooms, _ := newTestEngine(t)

	code, conns := setupRoom(t, engine, 4)
	_, err := engine.StartGame(conns[0], code)
	req.NoError(err)
	_, err = engine.JoinRoom("spec1", "Erin", code)
	req.NoError(err)

	gone, events := engine.Disconnect("spec1")
	req.Equal(code, gone)
	req.Empty(events)
	req.Empty(rooms.Get(code).Spectators)
}

func TestReconnect_RestoresRoleAndWord(t *testing.T) {
	req := require.New(t)
	engine, rooms, _ := newTestEngine(t)

	code, conns := setupRoom(t, engine, 4)
	_, err := engine.StartGame(conns[0], code)
	req.NoError(err)

	room := rooms.Get(code)
	bob := room.FindByUsername("Bob")
	wasImpostor := bob.Role == core.RoleImpostor
	word := bob.Word

	gone, events := engine.Disconnect(bob.ID)
	req.Equal(code, gone)
	_, ok := findEvent(events, "chatMessage")
	req.True(ok)
	req.True(bob.Disconnected)

	events, err = engine.JoinRoom("c99", "bob", code)
	req.NoError(err)

	joined, ok := findEvent(events, "roomJoined")
	req.True(ok)
	req.True(joined.Payload.(core.RoomJoinedPayload).IsReconnection)

	role, ok := findEvent(events, "yourRole")
	req.True(ok)
	req.Equal("c99", role.Target)
	payload := role.Payload.(core.YourRolePayload)
	req.Equal(wasImpostor, payload.IsImpostor)
	req.Equal(word, payload.Word)

	req.Equal("c99", bob.ID)
	req.False(bob.Disconnected)

	// The grace timer was cancelled: the room survives past it.
	time.Sleep(testGrace + 3*testReveal)
	req.Equal(core.StatePlaying, room.State)
	req.Len(room.Players, 4)
}

func TestGraceExpiry_InterruptsGame(t *testing.T) {
	req := require.New(t)
	engine, rooms, _ := newTestEngine(t)

	broadcasts := make(chan []core.Event, 4)
	engine.SetBroadcast(func(_ string, events []core.Event) {
		broadcasts <- events
	})

	code, conns := setupRoom(t, engine, 4)
	_, err := engine.StartGame(conns[0], code)
	req.NoError(err)

	room := rooms.Get(code)
	bob := room.FindByUsername("Bob")
	engine.Disconnect(bob.ID)

	select {
	case events := <-broadcasts:
		_, ok := findEvent(events, "gameInterrupted")
		req.True(ok)
	case <-time.After(time.Second):
		t.Fatal("grace expiry never fired")
	}

	req.Equal(core.StateWaiting, room.State)
	req.Equal(0, room.CurrentRound)
	req.Len(room.Players, 3)
	req.Nil(room.FindByUsername("Bob"))
}

func TestReaction_RequiresMembership(t *testing.T) {
	req := require.New(t)
	engine, _, _ := newTestEngine(t)

	code, conns := setupRoom(t, engine, 4)

	events, err := engine.SendReaction(conns[1], code, "🔥")
	req.NoError(err)
	reaction, ok := findEvent(events, "reactionReceived")
	req.True(ok)
	req.Equal("Bob", reaction.Payload.(core.ReactionPayload).Username)

	_, err = engine.SendReaction("stranger", code, "🔥")
	req.ErrorIs(err, core.ErrNotInRoom)
}

func TestRandomCategory(t *testing.T) {
	req := require.New(t)
	engine, _, _ := newTestEngine(t)

	code, conns := setupRoom(t, engine, 4)

	events, err := engine.RandomCategory(conns[1], code)
	req.NoError(err)
	selected, ok := findEvent(events, "categorySelected")
	req.True(ok)
	payload := selected.Payload.(core.CategorySelectedPayload)
	req.Equal("animals", payload.CategoryKey)
	req.Equal("Animals", payload.CategoryName)
}
