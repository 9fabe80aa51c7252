package core

import "sort"

// VoteOutcome is the pure reduction of a round's votes: either a
// single eliminated player id, or a tie among TiedIDs.
type VoteOutcome struct {
	Eliminated string
	Tie        bool
	TiedIDs    []string
	Counts     map[string]int
}

// TallyVotes reduces the cast votes to an elimination decision. Two or
// more targets sharing the maximum count is a tie and nobody is
// eliminated. The reduction is deterministic for a given vote set.
func TallyVotes(votes []Vote) VoteOutcome {
	counts := make(map[string]int)
	maxVotes := 0
	for _, v := range votes {
		if v.VotedFor == "" {
			continue
		}
		counts[v.VotedFor]++
		if counts[v.VotedFor] > maxVotes {
			maxVotes = counts[v.VotedFor]
		}
	}

	var top []string
	for id, n := range counts {
		if n == maxVotes {
			top = append(top, id)
		}
	}
	sort.Strings(top)

	out := VoteOutcome{Counts: counts, TiedIDs: top}
	if len(top) == 1 {
		out.Eliminated = top[0]
	} else {
		out.Tie = true
	}
	return out
}
