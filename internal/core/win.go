package core

// Winner team identifiers, as sent in playerEliminated/statsUpdate.
const (
	WinnerInnocents = "innocents"
	WinnerImpostors = "impostors"
)

// Verdict is the result of inspecting alive role counts.
type Verdict struct {
	GameOver bool
	Winner   string
	Reason   string
}

// EvaluateWin checks the win conditions. The zero-impostors check runs
// first, so eliminating the last impostor always yields an innocent
// win even when the surviving counts would otherwise reach impostor
// parity.
func EvaluateWin(players []*Player) Verdict {
	aliveImpostors, aliveInnocents := 0, 0
	for _, p := range players {
		if !p.Alive {
			continue
		}
		switch p.Role {
		case RoleImpostor:
			aliveImpostors++
		case RoleInnocent:
			aliveInnocents++
		}
	}

	if aliveImpostors == 0 {
		return Verdict{GameOver: true, Winner: WinnerInnocents, Reason: "the impostor was found"}
	}
	if aliveImpostors >= aliveInnocents {
		return Verdict{GameOver: true, Winner: WinnerImpostors, Reason: "the impostors took over the room"}
	}
	return Verdict{}
}
