package arena

import (
	"arena-server/internal/arena/spatial"
)

// Leaderboard provides rank queries over ship scores using a skip list
// ordered by score. Locating a ship's key is a linear scan, so a rank
// query is O(n).
//
// Score is kills*100 - deaths*50 (spec §4.2), recomputed and
// re-inserted whenever a ship's kill or death count changes.
type Leaderboard struct {
	skipList *spatial.SkipList
}

// NewLeaderboard creates an empty leaderboard.
func NewLeaderboard() *Leaderboard {
	return &Leaderboard{skipList: spatial.NewSkipList()}
}

// rankScore computes the §4.2 ranking score for a ship.
func rankScore(kills, deaths int) float64 {
	return float64(kills)*100.0 - float64(deaths)*50.0
}

// Update recomputes and re-inserts a ship's score.
func (lb *Leaderboard) Update(shipID string, kills, deaths int) {
	lb.skipList.Insert(shipID, rankScore(kills, deaths))
}

// Remove drops a ship from the leaderboard, e.g. on disconnect.
func (lb *Leaderboard) Remove(shipID string) {
	lb.skipList.Remove(shipID)
}

// RankOf returns the ship's 1-based rank (1 = highest score), or 0 if
// the ship is not present.
func (lb *Leaderboard) RankOf(shipID string) int {
	return lb.skipList.GetRank(shipID)
}

// Len returns the number of ranked ships.
func (lb *Leaderboard) Len() int {
	return lb.skipList.Length()
}

// Clear removes every entry, used when a room is reset between games.
func (lb *Leaderboard) Clear() {
	lb.skipList.Clear()
}

// LeaderboardEntry is one ranked row, for REST introspection
// (`/api/leaderboard`).
type LeaderboardEntry struct {
	Rank  int
	ID    string
	Label string
	Score float64
}

// Top returns up to limit ranked entries, highest score first. Label
// is left blank — the caller fills it in from live ship state.
func (lb *Leaderboard) Top(limit int) []LeaderboardEntry {
	raw := lb.skipList.GetRange(1, limit)
	out := make([]LeaderboardEntry, len(raw))
	for i, e := range raw {
		out[i] = LeaderboardEntry{Rank: i + 1, ID: e.Key, Score: e.Score}
	}
	return out
}
