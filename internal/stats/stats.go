// Package stats is the read side: career aggregation over finalized session
// records, used by the summary and standings screens.
package stats

import (
	"sort"
	"time"

	"github.com/hoopday/pickup-stats-backend/internal/store"
)

// ActiveWindow is how recently a player must have played to count as active.
const ActiveWindow = 14 * 24 * time.Hour

// SessionLine is one session's contribution to a player's career.
type SessionLine struct {
	Date          string  `json:"date"`
	GamesPlayed   int     `json:"games_played"`
	GamesWon      int     `json:"games_won"`
	WinPercentage float64 `json:"win_percentage"`
	Notes         string  `json:"notes,omitempty"`
}

// PlayerCareer is a player's aggregate across all finalized sessions.
type PlayerCareer struct {
	Name             string        `json:"name"`
	TotalGamesPlayed int           `json:"total_games_played"`
	TotalGamesWon    int           `json:"total_games_won"`
	SessionsAttended int           `json:"sessions_attended"`
	LastPlayed       string        `json:"last_played,omitempty"`
	WinPercentage    float64       `json:"win_percentage"`
	Sessions         []SessionLine `json:"sessions"`
}

// WinPercentage is wins over games, zero when no games were played.
func WinPercentage(won, played int) float64 {
	if played == 0 {
		return 0
	}
	return float64(won) / float64(played)
}

// Aggregate folds finalized sessions into per-player careers. Sessions are
// assumed date-ascending, so LastPlayed ends up at the most recent date.
func Aggregate(sessions []store.FinalizedSession) []PlayerCareer {
	index := make(map[string]int)
	careers := make([]PlayerCareer, 0)

	for _, sess := range sessions {
		for _, p := range sess.Players {
			i, ok := index[p.Name]
			if !ok {
				i = len(careers)
				index[p.Name] = i
				careers = append(careers, PlayerCareer{Name: p.Name})
			}
			c := &careers[i]
			c.TotalGamesPlayed += p.GamesPlayed
			c.TotalGamesWon += p.GamesWon
			c.SessionsAttended++
			c.LastPlayed = sess.Date
			c.Sessions = append(c.Sessions, SessionLine{
				Date:          sess.Date,
				GamesPlayed:   p.GamesPlayed,
				GamesWon:      p.GamesWon,
				WinPercentage: WinPercentage(p.GamesWon, p.GamesPlayed),
				Notes:         p.Notes,
			})
		}
	}

	for i := range careers {
		careers[i].WinPercentage = WinPercentage(careers[i].TotalGamesWon, careers[i].TotalGamesPlayed)
	}
	return careers
}

// SortByWinPercentage orders careers best-first, stable on insertion order.
func SortByWinPercentage(careers []PlayerCareer) {
	sort.SliceStable(careers, func(i, j int) bool {
		return careers[i].WinPercentage > careers[j].WinPercentage
	})
}

// IsActive reports whether the player's last session falls inside the
// activity window. Dates are YYYY-MM-DD.
func IsActive(lastPlayed string, now time.Time) bool {
	if lastPlayed == "" {
		return false
	}
	t, err := time.Parse("2006-01-02", lastPlayed)
	if err != nil {
		return false
	}
	return !t.Before(now.Add(-ActiveWindow))
}

// MinimumGamesThreshold is the dynamic cutoff for the main standings table:
// 40% of the average games played, clamped to [5, 20].
func MinimumGamesThreshold(careers []PlayerCareer) int {
	if len(careers) == 0 {
		return 5
	}
	total := 0
	for _, c := range careers {
		total += c.TotalGamesPlayed
	}
	threshold := int(float64(total) / float64(len(careers)) * 0.4)
	if threshold < 5 {
		return 5
	}
	if threshold > 20 {
		return 20
	}
	return threshold
}

// Buckets splits careers into the three standings groups.
type Buckets struct {
	Active         []PlayerCareer `json:"active"`
	NeedsMoreGames []PlayerCareer `json:"needs_more_games"`
	Inactive       []PlayerCareer `json:"inactive"`
}

// Categorize assigns each career to a standings bucket.
func Categorize(careers []PlayerCareer, minimumGames int, now time.Time) Buckets {
	var b Buckets
	for _, c := range careers {
		switch {
		case !IsActive(c.LastPlayed, now):
			b.Inactive = append(b.Inactive, c)
		case c.TotalGamesPlayed >= minimumGames:
			b.Active = append(b.Active, c)
		default:
			b.NeedsMoreGames = append(b.NeedsMoreGames, c)
		}
	}
	return b
}
