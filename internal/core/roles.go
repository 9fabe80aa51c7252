package core

import "math/rand"

// ClampImpostorCount forces the impostor count into 1..playerCount-1.
func ClampImpostorCount(count, playerCount int) int {
	if count < 1 {
		return 1
	}
	if count >= playerCount {
		return playerCount - 1
	}
	return count
}

// AssignRoles marks impostorCount players as impostor and the rest as
// innocent, picked via a Fisher-Yates shuffle of the indices.
func AssignRoles(players []*Player, impostorCount int) {
	impostorCount = ClampImpostorCount(impostorCount, len(players))

	indices := make([]int, len(players))
	for i := range indices {
		indices[i] = i
	}
	rand.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	for pos, idx := range indices {
		if pos < impostorCount {
			players[idx].Role = RoleImpostor
		} else {
			players[idx].Role = RoleInnocent
		}
	}
}

// AssignWord hands the secret word and category name to innocents;
// impostors get nothing.
func AssignWord(players []*Player, categoryName, word string) {
	for _, p := range players {
		if p.Role == RoleImpostor {
			p.Word = ""
			p.Category = ""
		} else {
			p.Word = word
			p.Category = categoryName
		}
	}
}

// ShuffledOrder returns a shuffled snapshot of player ids, fixed for
// the round as the description turn order.
func ShuffledOrder(players []*Player) []string {
	ids := make([]string, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	rand.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	return ids
}
