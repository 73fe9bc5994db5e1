package app

import (
	"sort"

	"trivia-live-service/internal/domain"
)

// ProjectLeaderboard derives the ranked scoreboard from a match snapshot.
// It is a pure projection: every call recomputes fully from the snapshot,
// never patching a previous result, since the store may coalesce updates.
// Entries are ordered by score descending; ties are left in a stable order
// by player id so two projections of the same snapshot are identical.
func ProjectLeaderboard(m domain.Match) domain.Leaderboard {
	entries := make([]domain.LeaderboardEntry, 0, len(m.Players))
	for id, p := range m.Players {
		entries = append(entries, domain.LeaderboardEntry{
			PlayerID: id,
			Name:     p.Name,
			Score:    p.Score,
			Firsts:   p.Firsts,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].PlayerID < entries[j].PlayerID
	})

	return domain.Leaderboard{MatchID: m.ID, Entries: entries}
}
