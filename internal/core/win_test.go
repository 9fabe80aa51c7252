package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func roster(aliveImpostors, deadImpostors, aliveInnocents, deadInnocents int) []*Player {
	var players []*Player
	add := func(role Role, alive bool, n int) {
		for i := 0; i < n; i++ {
			p := NewPlayer("", "", false)
			p.Role = role
			p.Alive = alive
			players = append(players, p)
		}
	}
	add(RoleImpostor, true, aliveImpostors)
	add(RoleImpostor, false, deadImpostors)
	add(RoleInnocent, true, aliveInnocents)
	add(RoleInnocent, false, deadInnocents)
	return players
}

func TestEvaluateWin_InnocentsWhenNoImpostorsLeft(t *testing.T) {
	req := require.New(t)

	v := EvaluateWin(roster(0, 1, 3, 0))
	req.True(v.GameOver)
	req.Equal(WinnerInnocents, v.Winner)
}

func TestEvaluateWin_ImpostorsAtParity(t *testing.T) {
	req := require.New(t)

	v := EvaluateWin(roster(1, 0, 1, 2))
	req.True(v.GameOver)
	req.Equal(WinnerImpostors, v.Winner)
}

func TestEvaluateWin_ContinuesWhileInnocentsLead(t *testing.T) {
	req := require.New(t)

	v := EvaluateWin(roster(1, 0, 2, 1))
	req.False(v.GameOver)
	req.Empty(v.Winner)
}

// The zero-impostor check runs before the parity check: killing the
// last impostor wins for innocents even when the remaining counts
// would otherwise look even.
func TestEvaluateWin_LastImpostorEliminationBeatsParity(t *testing.T) {
	req := require.New(t)

	v := EvaluateWin(roster(0, 1, 1, 2))
	req.True(v.GameOver)
	req.Equal(WinnerInnocents, v.Winner)
}

// Once the impostors are gone no further elimination can flip the
// verdict.
func TestEvaluateWin_Monotonic(t *testing.T) {
	req := require.New(t)

	players := roster(0, 1, 3, 0)
	req.Equal(WinnerInnocents, EvaluateWin(players).Winner)

	for _, p := range players {
		if p.Alive {
			p.Alive = false
			req.Equal(WinnerInnocents, EvaluateWin(players).Winner)
		}
	}
}
