package ledger

import (
	"errors"
	"slices"
	"sort"

	"github.com/hoopday/pickup-stats-backend/internal/roster"
)

var (
	ErrEmptyLedger     = errors.New("no games recorded")
	ErrGameNotLive     = errors.New("game is not in progress")
	ErrUnknownPlayer   = errors.New("player not registered in session")
	ErrDuplicatePlayer = errors.New("player already registered")
)

// Record is one completed game. Records are immutable once appended; the only
// way one leaves the ledger is an explicit undo of the most recent game.
type Record struct {
	GameNumber int         `json:"game_number"`
	TeamA      []string    `json:"team_a_players"`
	TeamB      []string    `json:"team_b_players"`
	Bench      []string    `json:"sitting_out_players"`
	Winner     roster.Team `json:"winning_team"`
}

// Totals are a player's running counts, always derived by replaying the
// ledger rather than kept as independent state.
type Totals struct {
	GamesPlayed int `json:"games_played"`
	GamesWon    int `json:"games_won"`
}

// Standing is one row of the session leaderboard.
type Standing struct {
	Name        string  `json:"name"`
	GamesPlayed int     `json:"games_played"`
	GamesWon    int     `json:"games_won"`
	WinRate     float64 `json:"win_rate"`
}

// Ledger is the append-only log of completed games for one session. It also
// remembers player registration order so standings tie-breaks are stable.
type Ledger struct {
	players []string
	records []Record
}

func New(players []string) *Ledger {
	return &Ledger{players: slices.Clone(players)}
}

// Rebuild reconstructs a ledger from durable game rows, e.g. when resuming an
// interrupted session.
func Rebuild(players []string, records []Record) *Ledger {
	l := New(players)
	l.records = slices.Clone(records)
	return l
}

func (l *Ledger) Len() int { return len(l.records) }

// NextGameNumber is the session-scoped sequence key the next completed game
// will take. Numbers are gapless and strictly increasing.
func (l *Ledger) NextGameNumber() int { return len(l.records) + 1 }

func (l *Ledger) Last() (Record, bool) {
	if len(l.records) == 0 {
		return Record{}, false
	}
	return l.records[len(l.records)-1], true
}

func (l *Ledger) Records() []Record { return slices.Clone(l.records) }

func (l *Ledger) Players() []string { return slices.Clone(l.players) }

// AddPlayer registers a late arrival so totals and standings include them.
func (l *Ledger) AddPlayer(name string) error {
	if slices.Contains(l.players, name) {
		return ErrDuplicatePlayer
	}
	l.players = append(l.players, name)
	return nil
}

// RecordGame appends the outcome of the game described by state. The roster
// must be a playable partition of registered players.
func (l *Ledger) RecordGame(state roster.State, winner roster.Team) (Record, error) {
	if !state.InProgress() {
		return Record{}, ErrGameNotLive
	}
	for _, name := range state.Players() {
		if !slices.Contains(l.players, name) {
			return Record{}, ErrUnknownPlayer
		}
	}

	rec := Record{
		GameNumber: l.NextGameNumber(),
		TeamA:      state.TeamPlayers(roster.TeamA),
		TeamB:      state.TeamPlayers(roster.TeamB),
		Bench:      slices.Clone(state.Bench),
		Winner:     winner,
	}
	l.records = append(l.records, rec)
	return rec, nil
}

// UndoLast removes the highest-numbered record. Totals are derived, so
// dropping the record reverses exactly the increments it caused.
func (l *Ledger) UndoLast() (Record, error) {
	if len(l.records) == 0 {
		return Record{}, ErrEmptyLedger
	}
	rec := l.records[len(l.records)-1]
	l.records = l.records[:len(l.records)-1]
	return rec, nil
}

// WinStreak counts consecutive most-recent wins by the given team, reading
// newest to oldest.
func (l *Ledger) WinStreak(team roster.Team) int {
	streak := 0
	for i := len(l.records) - 1; i >= 0; i-- {
		if l.records[i].Winner != team {
			break
		}
		streak++
	}
	return streak
}

// Totals replays the ledger into per-player counts. Every registered player
// gets an entry, including those yet to play.
func (l *Ledger) Totals() map[string]Totals {
	totals := make(map[string]Totals, len(l.players))
	for _, name := range l.players {
		totals[name] = Totals{}
	}
	for _, rec := range l.records {
		for _, name := range rec.TeamA {
			t := totals[name]
			t.GamesPlayed++
			if rec.Winner == roster.TeamA {
				t.GamesWon++
			}
			totals[name] = t
		}
		for _, name := range rec.TeamB {
			t := totals[name]
			t.GamesPlayed++
			if rec.Winner == roster.TeamB {
				t.GamesWon++
			}
			totals[name] = t
		}
	}
	return totals
}

// Standings sorts players by win rate, then games won. The sort is stable so
// ties keep registration order.
func (l *Ledger) Standings() []Standing {
	totals := l.Totals()
	rows := make([]Standing, 0, len(l.players))
	for _, name := range l.players {
		t := totals[name]
		row := Standing{Name: name, GamesPlayed: t.GamesPlayed, GamesWon: t.GamesWon}
		if t.GamesPlayed > 0 {
			row.WinRate = float64(t.GamesWon) / float64(t.GamesPlayed)
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].WinRate != rows[j].WinRate {
			return rows[i].WinRate > rows[j].WinRate
		}
		return rows[i].GamesWon > rows[j].GamesWon
	})
	return rows
}
