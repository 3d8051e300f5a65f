package session

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/hoopday/pickup-stats-backend/internal/ledger"
	"github.com/hoopday/pickup-stats-backend/internal/roster"
	"github.com/hoopday/pickup-stats-backend/internal/rotation"
	"github.com/hoopday/pickup-stats-backend/internal/snapshot"
	"github.com/hoopday/pickup-stats-backend/internal/store"
)

// View is the immutable snapshot of controller state handed to subscribers.
// The UI renders from views; it never owns state itself.
type View struct {
	Session    *store.LiveSession       `json:"session"`
	TeamA      []string                 `json:"team_a"`
	TeamB      []string                 `json:"team_b"`
	Bench      []string                 `json:"bench"`
	Totals     map[string]ledger.Totals `json:"totals"`
	GameNumber int                      `json:"game_number"`
	StreakA    int                      `json:"streak_a"`
	StreakB    int                      `json:"streak_b"`
	Standings  []ledger.Standing        `json:"standings"`

	// Rotation decision in flight, if any.
	PlannerPhase rotation.Phase `json:"planner_phase,omitempty"`
	PlannerNeed  int            `json:"planner_need,omitempty"`
	LosingTeam   roster.Team    `json:"losing_team,omitempty"`
}

// View materializes the current state. Safe to hand out: everything is
// copied.
func (c *Controller) View() View {
	v := View{Session: c.Session()}
	if c.ledger == nil {
		return v
	}
	v.TeamA = c.roster.TeamPlayers(roster.TeamA)
	v.TeamB = c.roster.TeamPlayers(roster.TeamB)
	v.Bench = append([]string(nil), c.roster.Bench...)
	v.Totals = c.ledger.Totals()
	v.GameNumber = c.ledger.NextGameNumber()
	v.StreakA = c.ledger.WinStreak(roster.TeamA)
	v.StreakB = c.ledger.WinStreak(roster.TeamB)
	v.Standings = c.ledger.Standings()
	if c.planner != nil {
		v.PlannerPhase = c.planner.Phase()
		v.PlannerNeed = c.planner.Need()
		v.LosingTeam = c.planner.Losing()
	}
	return v
}

// Backup is the local-snapshot payload. It exists to accelerate recovery on
// the same device; the durable store remains authoritative.
type Backup struct {
	Session    store.LiveSession `json:"session"`
	Players    []string          `json:"players"`
	Records    []ledger.Record   `json:"records"`
	TeamA      []string          `json:"team_a"`
	TeamB      []string          `json:"team_b"`
	Bench      []string          `json:"bench"`
	GameNumber int               `json:"game_number"`
	Timestamp  time.Time         `json:"timestamp"`
}

// writeBackup refreshes the local snapshot after a state transition. Best
// effort: a failed write is logged, never surfaced.
func (c *Controller) writeBackup() {
	if c.sess == nil || c.ledger == nil {
		return
	}
	b := Backup{
		Session:    *c.sess,
		Players:    c.ledger.Players(),
		Records:    c.ledger.Records(),
		TeamA:      c.roster.TeamPlayers(roster.TeamA),
		TeamB:      c.roster.TeamPlayers(roster.TeamB),
		Bench:      append([]string(nil), c.roster.Bench...),
		GameNumber: c.ledger.NextGameNumber(),
		Timestamp:  c.now(),
	}
	blob, err := json.Marshal(b)
	if err != nil {
		c.log.Warn("marshaling backup failed", zap.Error(err))
		return
	}
	if err := c.snaps.Save(snapshot.LiveSessionKey, blob); err != nil {
		c.log.Warn("writing backup failed", zap.Error(err))
	}
}

// LoadBackup reads the advisory local snapshot, if one exists.
func LoadBackup(snaps snapshot.Store) (*Backup, error) {
	blob, err := snaps.Load(snapshot.LiveSessionKey)
	if err != nil {
		return nil, err
	}
	var b Backup
	if err := json.Unmarshal(blob, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
