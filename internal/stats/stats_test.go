package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoopday/pickup-stats-backend/internal/store"
)

func finalized(date string, players ...store.FinalizedPlayer) store.FinalizedSession {
	return store.FinalizedSession{Date: date, Players: players}
}

func player(name string, played, won int) store.FinalizedPlayer {
	return store.FinalizedPlayer{Name: name, GamesPlayed: played, GamesWon: won}
}

func TestAggregate(t *testing.T) {
	sessions := []store.FinalizedSession{
		finalized("2025-06-01", player("ana", 5, 3), player("ben", 5, 2)),
		finalized("2025-06-08", player("ana", 4, 4), player("cal", 4, 0)),
	}

	careers := Aggregate(sessions)
	require.Len(t, careers, 3)

	byName := make(map[string]PlayerCareer)
	for _, c := range careers {
		byName[c.Name] = c
	}

	ana := byName["ana"]
	assert.Equal(t, 9, ana.TotalGamesPlayed)
	assert.Equal(t, 7, ana.TotalGamesWon)
	assert.Equal(t, 2, ana.SessionsAttended)
	assert.Equal(t, "2025-06-08", ana.LastPlayed)
	assert.InDelta(t, 7.0/9.0, ana.WinPercentage, 1e-9)
	require.Len(t, ana.Sessions, 2)
	assert.Equal(t, "2025-06-01", ana.Sessions[0].Date)
	assert.InDelta(t, 1.0, ana.Sessions[1].WinPercentage, 1e-9)

	ben := byName["ben"]
	assert.Equal(t, 1, ben.SessionsAttended)
	assert.Equal(t, "2025-06-01", ben.LastPlayed)

	cal := byName["cal"]
	assert.Equal(t, 4, cal.TotalGamesPlayed)
	assert.Zero(t, cal.WinPercentage)
}

func TestAggregate_Empty(t *testing.T) {
	assert.Empty(t, Aggregate(nil))
}

func TestAggregate_PreservesNotes(t *testing.T) {
	sessions := []store.FinalizedSession{
		finalized("2025-06-01", store.FinalizedPlayer{Name: "ana", GamesPlayed: 3, GamesWon: 1, Notes: "knee brace"}),
	}
	careers := Aggregate(sessions)
	require.Len(t, careers, 1)
	assert.Equal(t, "knee brace", careers[0].Sessions[0].Notes)
}

func TestWinPercentage(t *testing.T) {
	assert.Zero(t, WinPercentage(0, 0))
	assert.InDelta(t, 0.5, WinPercentage(3, 6), 1e-9)
	assert.InDelta(t, 1.0, WinPercentage(4, 4), 1e-9)
}

func TestSortByWinPercentage(t *testing.T) {
	careers := []PlayerCareer{
		{Name: "ben", WinPercentage: 0.4},
		{Name: "ana", WinPercentage: 0.8},
		{Name: "cal", WinPercentage: 0.4},
	}
	SortByWinPercentage(careers)

	assert.Equal(t, "ana", careers[0].Name)
	// Stable sort keeps ben ahead of cal on the tie.
	assert.Equal(t, "ben", careers[1].Name)
	assert.Equal(t, "cal", careers[2].Name)
}

func TestIsActive(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	assert.True(t, IsActive("2025-06-14", now))
	assert.True(t, IsActive("2025-06-02", now))
	// Dates parse to midnight, so day 14 has already aged out by noon.
	assert.False(t, IsActive("2025-06-01", now))
	assert.False(t, IsActive("2025-05-31", now))
	assert.False(t, IsActive("", now))
	assert.False(t, IsActive("June 14", now))
}

func TestMinimumGamesThreshold(t *testing.T) {
	t.Run("empty defaults to floor", func(t *testing.T) {
		assert.Equal(t, 5, MinimumGamesThreshold(nil))
	})

	t.Run("clamped below", func(t *testing.T) {
		careers := []PlayerCareer{{TotalGamesPlayed: 10}, {TotalGamesPlayed: 10}}
		// 40% of avg 10 is 4, under the floor.
		assert.Equal(t, 5, MinimumGamesThreshold(careers))
	})

	t.Run("in range", func(t *testing.T) {
		careers := []PlayerCareer{{TotalGamesPlayed: 30}, {TotalGamesPlayed: 20}}
		// 40% of avg 25 is 10.
		assert.Equal(t, 10, MinimumGamesThreshold(careers))
	})

	t.Run("clamped above", func(t *testing.T) {
		careers := []PlayerCareer{{TotalGamesPlayed: 100}, {TotalGamesPlayed: 100}}
		assert.Equal(t, 20, MinimumGamesThreshold(careers))
	})
}

func TestCategorize(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	careers := []PlayerCareer{
		{Name: "regular", TotalGamesPlayed: 30, LastPlayed: "2025-06-14"},
		{Name: "newcomer", TotalGamesPlayed: 3, LastPlayed: "2025-06-14"},
		{Name: "ghost", TotalGamesPlayed: 50, LastPlayed: "2025-04-01"},
	}

	b := Categorize(careers, 10, now)

	require.Len(t, b.Active, 1)
	assert.Equal(t, "regular", b.Active[0].Name)
	require.Len(t, b.NeedsMoreGames, 1)
	assert.Equal(t, "newcomer", b.NeedsMoreGames[0].Name)
	require.Len(t, b.Inactive, 1)
	assert.Equal(t, "ghost", b.Inactive[0].Name)
}
