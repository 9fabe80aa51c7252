package core

import "time"

// GameSummary is the record handed to the persistence service when a
// match ends. Saving is best-effort: the live room state is the source
// of truth and never waits on it.
type GameSummary struct {
	RoomCode      string
	Category      string
	ImpostorCount int
	PlayerCount   int
	WinnerTeam    string
	Duration      time.Duration
	Players       []SummaryPlayer
}

type SummaryPlayer struct {
	Name       string
	Role       string
	IsImpostor bool
	IsWinner   bool
	VotedFor   string
}

type GameSaver interface {
	SaveGameResult(summary GameSummary)
}

// saveResult builds the summary and hands it off without blocking the
// handler. Called with the room locked, on terminal resolutions only.
func (e *Engine) saveResult(room *Room) {
	if e.saver == nil {
		return
	}

	votedFor := make(map[string]string, len(room.Votes))
	for _, v := range room.Votes {
		if target := room.FindPlayer(v.VotedFor); target != nil {
			votedFor[v.VoterID] = target.Username
		}
	}

	summary := GameSummary{
		RoomCode:      room.Code,
		Category:      room.Category,
		ImpostorCount: room.Config.ImpostorCount,
		PlayerCount:   len(room.Players),
		WinnerTeam:    room.Winner,
		Duration:      time.Since(room.StartedAt),
	}
	for _, p := range room.Players {
		summary.Players = append(summary.Players, SummaryPlayer{
			Name:       p.Username,
			Role:       string(p.Role),
			IsImpostor: p.Role == RoleImpostor,
			IsWinner: (room.Winner == WinnerImpostors && p.Role == RoleImpostor) ||
				(room.Winner == WinnerInnocents && p.Role == RoleInnocent),
			VotedFor: votedFor[p.ID],
		})
	}

	go e.saver.SaveGameResult(summary)
}
