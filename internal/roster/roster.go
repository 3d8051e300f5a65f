package roster

import (
	"errors"
	"slices"
)

var ErrInvariantViolation = errors.New("roster partition violated")

type Team string

const (
	TeamA Team = "team_a"
	TeamB Team = "team_b"
)

func (t Team) Opponent() Team {
	if t == TeamA {
		return TeamB
	}
	return TeamA
}

func ParseTeam(s string) (Team, bool) {
	switch s {
	case string(TeamA):
		return TeamA, true
	case string(TeamB):
		return TeamB, true
	default:
		return "", false
	}
}

// State is the partition of all session players into the two on-court teams
// and the bench. Values are immutable: every operation returns a fresh State
// and callers replace the whole triple at once.
type State struct {
	TeamA []string
	TeamB []string
	Bench []string
}

// Initialize puts every player on the bench.
func Initialize(players []string) State {
	return State{
		TeamA: []string{},
		TeamB: []string{},
		Bench: slices.Clone(players),
	}
}

// Players returns the full player pool in partition order (team A, team B,
// bench).
func (s State) Players() []string {
	all := make([]string, 0, len(s.TeamA)+len(s.TeamB)+len(s.Bench))
	all = append(all, s.TeamA...)
	all = append(all, s.TeamB...)
	all = append(all, s.Bench...)
	return all
}

// Side reports which group a player currently belongs to. The second return
// is false for the bench and for unknown names.
func (s State) Side(name string) (Team, bool) {
	if slices.Contains(s.TeamA, name) {
		return TeamA, true
	}
	if slices.Contains(s.TeamB, name) {
		return TeamB, true
	}
	return "", false
}

func (s State) TeamPlayers(t Team) []string {
	if t == TeamA {
		return slices.Clone(s.TeamA)
	}
	return slices.Clone(s.TeamB)
}

// InProgress reports whether the state describes a playable game: both teams
// populated and equal in size.
func (s State) InProgress() bool {
	return len(s.TeamA) > 0 && len(s.TeamA) == len(s.TeamB)
}

// SetTeams rebuilds the partition. The three groups must be disjoint and
// together cover exactly the players known to s, and the two teams must be
// equal in size (both may be empty, which parks everyone on the bench).
func (s State) SetTeams(teamA, teamB, bench []string) (State, error) {
	if len(teamA) != len(teamB) {
		return State{}, ErrInvariantViolation
	}

	known := make(map[string]bool, len(s.TeamA)+len(s.TeamB)+len(s.Bench))
	for _, name := range s.Players() {
		known[name] = true
	}

	seen := make(map[string]bool, len(known))
	for _, group := range [][]string{teamA, teamB, bench} {
		for _, name := range group {
			if !known[name] || seen[name] {
				return State{}, ErrInvariantViolation
			}
			seen[name] = true
		}
	}
	if len(seen) != len(known) {
		return State{}, ErrInvariantViolation
	}

	return State{
		TeamA: slices.Clone(teamA),
		TeamB: slices.Clone(teamB),
		Bench: slices.Clone(bench),
	}, nil
}

// AddPlayer admits a late arrival onto the bench.
func (s State) AddPlayer(name string) (State, error) {
	for _, existing := range s.Players() {
		if existing == name {
			return State{}, ErrInvariantViolation
		}
	}
	return State{
		TeamA: slices.Clone(s.TeamA),
		TeamB: slices.Clone(s.TeamB),
		Bench: append(slices.Clone(s.Bench), name),
	}, nil
}
